// Package fusion implements the signal fusion orchestrator: it fans a page
// visit out to the independent analysis branches, isolates each branch's
// failures, and merges whatever came back into one ThreatVerdict. The
// request path is fail-open: a caller always receives a well-formed
// verdict, never an error, with degraded branches resolved to neutral
// defaults.
package fusion

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kavach-ai/securenet/pkg/anomaly"
	"github.com/kavach-ai/securenet/pkg/features"
	"github.com/kavach-ai/securenet/pkg/narrative"
	"github.com/kavach-ai/securenet/pkg/scoring"
	"github.com/kavach-ai/securenet/pkg/sslcheck"
	"github.com/kavach-ai/securenet/pkg/telemetry"
)

// Request is one page visit submitted for analysis. Screenshot is raw or
// base64-encoded image bytes; Behavior may be nil.
type Request struct {
	URL        string             `json:"url"`
	Screenshot string             `json:"screenshot,omitempty"`
	Behavior   *features.Behavior `json:"behavior,omitempty"`
}

// Thresholds for the merge-phase derivation rules.
const (
	urlRiskFactorThreshold     = 0.7
	visualRiskFactorThreshold  = 0.8
	contentRiskFactorThreshold = 0.6
	blockActionThreshold       = 0.8
	cautionActionThreshold     = 0.6
)

// Options wires an Engine's collaborators. Registry is required; every
// other field may be nil or zero for a reduced but functional engine.
type Options struct {
	Registry      *scoring.Registry
	Detector      *anomaly.Detector
	Reasoner      *narrative.Reasoner
	SSL           sslcheck.Validator
	Cache         *Cache
	BranchTimeout time.Duration
}

// Engine coordinates the analysis branches for each request. It holds no
// per-request state; the model registry is the only shared resource and is
// read-only on this path.
type Engine struct {
	registry      *scoring.Registry
	detector      *anomaly.Detector
	reasoner      *narrative.Reasoner
	ssl           sslcheck.Validator
	cache         *Cache
	branchTimeout time.Duration
}

// NewEngine creates the orchestrator.
func NewEngine(opts Options) *Engine {
	if opts.BranchTimeout <= 0 {
		opts.BranchTimeout = 5 * time.Second
	}
	if opts.Detector == nil {
		opts.Detector = anomaly.NewDetector(nil)
	}
	return &Engine{
		registry:      opts.Registry,
		detector:      opts.Detector,
		reasoner:      opts.Reasoner,
		ssl:           opts.SSL,
		cache:         opts.Cache,
		branchTimeout: opts.BranchTimeout,
	}
}

// collected holds the branch results gathered during the COLLECTING phase.
// Each branch writes its own field exactly once; the group Wait is the
// synchronization point before MERGING reads them.
type collected struct {
	urlScore      scoring.SignalScore
	visualScore   scoring.SignalScore
	behaviorScore scoring.SignalScore
	contentScore  scoring.SignalScore
	anomalyReport anomaly.Report
	explanation   *narrative.Explanation
	sslResult     sslcheck.Result
	sslChecked    bool

	mu       sync.Mutex
	degraded []string
}

func (c *collected) markDegraded(branch string) {
	c.mu.Lock()
	c.degraded = append(c.degraded, branch)
	c.mu.Unlock()
}

// Analyze runs one request through COLLECTING, MERGING and DONE. It never
// returns an error: any failure inside orchestration itself resolves to
// the fully defaulted neutral verdict.
func (e *Engine) Analyze(ctx context.Context, req *Request) (verdict *Verdict) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] analysis orchestration panicked: %v", r)
			verdict = NeutralVerdict(requestURL(req))
		}
	}()

	if req == nil {
		req = &Request{}
	}
	if cached := e.cache.Get(ctx, req.URL); cached != nil {
		telemetry.Global.CacheHits.Add(1)
		return cached
	}

	snap := e.registry.Current()
	pageText := ""
	if req.Behavior != nil {
		pageText = req.Behavior.PageText
	}

	col := e.collect(ctx, req, snap, pageText)
	v := e.merge(req, col)
	e.cache.Put(ctx, v)
	return v
}

// collect dispatches every branch concurrently and waits for all of them.
// Branches never cancel each other: each gets its own timeout derived from
// the request context, and a branch that times out, errors or panics
// resolves to its component's default.
func (e *Engine) collect(ctx context.Context, req *Request, snap *scoring.Snapshot, pageText string) *collected {
	col := &collected{
		explanation: narrative.DefaultExplanation(),
	}

	g := new(errgroup.Group)

	e.branch(ctx, g, col, "url", func(ctx context.Context) {
		col.urlScore = snap.URL.Score(ctx, features.URLFeatures(req.URL))
		if col.urlScore.Degraded {
			col.markDegraded("url")
		}
	})

	e.branch(ctx, g, col, "visual", func(ctx context.Context) {
		img, err := features.DecodeScreenshot([]byte(req.Screenshot))
		if err != nil && req.Screenshot != "" {
			log.Printf("[WARN] screenshot decode failed: %v", err)
		}
		col.visualScore = snap.Visual.Score(ctx, features.VisualFeatures(img))
		if col.visualScore.Degraded {
			col.markDegraded("visual")
		}
	})

	e.branch(ctx, g, col, "behavior", func(ctx context.Context) {
		col.behaviorScore = snap.Behavior.Score(ctx, features.BehaviorFeatures(req.Behavior))
		if col.behaviorScore.Degraded {
			col.markDegraded("behavior")
		}
	})

	e.branch(ctx, g, col, "content", func(ctx context.Context) {
		col.contentScore = snap.Content.Classify(ctx, pageText)
		if col.contentScore.Degraded {
			col.markDegraded("content")
		}
	})

	e.branch(ctx, g, col, "anomaly", func(ctx context.Context) {
		col.anomalyReport = e.detector.Detect(ctx, req.URL, pageText, req.Behavior)
	})

	e.branch(ctx, g, col, "narrative", func(ctx context.Context) {
		col.explanation = e.reasoner.Explain(ctx, req.URL, pageText)
		if col.explanation.Degraded {
			col.markDegraded("narrative")
		}
	})

	if e.ssl != nil {
		e.branch(ctx, g, col, "ssl", func(ctx context.Context) {
			col.sslResult = e.ssl.Check(ctx, req.URL)
			col.sslChecked = true
		})
	} else {
		col.markDegraded("ssl")
	}

	g.Wait()
	return col
}

// branch runs one collection branch in the group with its own timeout and
// failure boundary. The timeout is derived per branch so an expired branch
// never cancels its siblings. The branch function records its own result;
// a panic leaves the zero/default value in place and marks the branch
// degraded.
func (e *Engine) branch(parent context.Context, g *errgroup.Group, col *collected, name string, fn func(ctx context.Context)) {
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[WARN] %s branch panicked: %v", name, r)
				col.markDegraded(name)
			}
		}()
		ctx, cancel := context.WithTimeout(parent, e.branchTimeout)
		defer cancel()
		fn(ctx)
		return nil
	})
}

// merge is the MERGING and DONE phases: fixed combination policy, then
// verdict assembly. This path cannot fail; it only reads the collected
// values, all of which have defined defaults.
func (e *Engine) merge(req *Request, col *collected) *Verdict {
	overall := math.Max(col.urlScore.Value, math.Max(col.visualScore.Value, col.behaviorScore.Value))
	threatLevel := math.Max(overall, col.anomalyReport.Score)

	riskFactors := []string{}
	if col.urlScore.Value > urlRiskFactorThreshold {
		riskFactors = append(riskFactors, "High-risk URL detected")
	}
	if col.visualScore.Value > visualRiskFactorThreshold {
		riskFactors = append(riskFactors, "Potential brand impersonation")
	}
	if col.contentScore.Value > contentRiskFactorThreshold {
		riskFactors = append(riskFactors, "Suspicious content detected")
	}

	actions := []string{}
	switch {
	case overall > blockActionThreshold:
		actions = append(actions, "Block access immediately")
	case overall > cautionActionThreshold:
		actions = append(actions, "Proceed with caution")
	}

	sslOK := col.sslChecked && col.sslResult.Valid

	return &Verdict{
		ID:           uuid.New().String(),
		URL:          req.URL,
		URLRisk:      col.urlScore.Value,
		VisualRisk:   col.visualScore.Value,
		BehaviorRisk: col.behaviorScore.Value,
		SSLStatus:    sslOK,
		OverallRisk:  overall,
		Analysis: Analysis{
			ZeroDayDetection: ZeroDayDetection{
				IsZeroDay:    col.anomalyReport.IsAnomaly,
				Confidence:   col.anomalyReport.Score,
				AnomalyScore: col.anomalyReport.Score,
				Details:      col.anomalyReport.Details,
			},
			PhishingRisk: PhishingRisk{
				OverallRiskLevel:   overall,
				ThreatLevel:        threatLevel,
				RiskFactors:        riskFactors,
				RecommendedActions: actions,
				PreventiveMeasures: preventiveMeasures,
				URLAnalysis:        col.explanation.URLAnalysis,
				ContentAnalysis:    col.explanation.ContentAnalysis,
				SecurityAssessment: col.explanation.SecurityAssessment,
			},
			ContentRisk:      col.contentScore.Value,
			BehaviorAnalysis: col.behaviorScore.Value,
			SSLDetails:       col.sslResult,
		},
		Degraded:   col.degraded,
		AnalyzedAt: time.Now().UTC(),
	}
}

func requestURL(req *Request) string {
	if req == nil {
		return ""
	}
	return req.URL
}
