// Package anomaly implements the zero-day pattern detector: statistical and
// structural outlier tests that flag pages not matching any catalogued
// attack signature. Three independent sub-detectors (pattern, behavior,
// structure) each produce a verdict; any one anomalous flags the whole
// report, and the combined confidence is the mean of the sub-scores.
package anomaly

import (
	"context"
	"log"
	"math"

	"github.com/kavach-ai/securenet/pkg/features"
	"github.com/kavach-ai/securenet/pkg/patterns"
)

// Threshold is the fixed anomaly threshold shared by the behavior entropy
// test and the structure similarity test.
const Threshold = 0.85

// SubReport is the verdict of one sub-detector.
type SubReport struct {
	IsAnomaly bool     `json:"is_anomaly"`
	Score     float64  `json:"score"`
	Findings  []string `json:"findings,omitempty"`
}

// Report is the combined anomaly verdict. IsAnomaly is the OR of the
// sub-detectors; Score is their mean (the declared confidence aggregation).
type Report struct {
	IsAnomaly bool                 `json:"is_anomaly"`
	Score     float64              `json:"score"`
	Details   map[string]SubReport `json:"details"`
}

// Detector runs the three sub-detectors. The optional similarity index
// (chromem-backed) sharpens the pattern test when embeddings are available;
// everything else is self-contained and deterministic.
type Detector struct {
	similarity *ContentSimilarity
}

// NewDetector creates a detector. similarity may be nil.
func NewDetector(similarity *ContentSimilarity) *Detector {
	return &Detector{similarity: similarity}
}

// Detect runs all sub-detectors on one page visit. Sub-detector failures
// are isolated: a panicking sub-detector defaults to {false, 0} and the
// others still run. Detect itself never fails.
func (d *Detector) Detect(ctx context.Context, url, content string, b *features.Behavior) Report {
	pattern := runSub("pattern", func() SubReport { return d.detectPatternAnomalies(ctx, url, content) })
	behavior := runSub("behavior", func() SubReport { return detectBehaviorAnomalies(b) })
	structure := runSub("structure", func() SubReport { return detectStructureAnomalies(content) })

	return Report{
		IsAnomaly: pattern.IsAnomaly || behavior.IsAnomaly || structure.IsAnomaly,
		Score:     (pattern.Score + behavior.Score + structure.Score) / 3,
		Details: map[string]SubReport{
			"pattern":   pattern,
			"behavior":  behavior,
			"structure": structure,
		},
	}
}

// runSub isolates one sub-detector; a panic yields the neutral default.
func runSub(name string, fn func() SubReport) (report SubReport) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] anomaly sub-detector %s panicked: %v", name, r)
			report = SubReport{}
		}
	}()
	return fn()
}

// urlBaseline holds per-slot mean and standard deviation observed over the
// legitimate-URL corpus. Only slots with discriminative power are listed;
// the pattern test measures how far a URL strays from this profile.
var urlBaseline = map[int]struct{ mean, std float64 }{
	0:  {42, 28},   // total length
	1:  {2.4, 1.2}, // dot count
	16: {3.5, 5},   // digit count
	29: {4.1, 0.6}, // entropy
}

const (
	urlSlotSuspTLD = 28
	urlSlotEntropy = 29
)

// detectPatternAnomalies runs the URL/content feature outlier test. The
// score grows with the largest z-score against the baseline profile, with
// a similarity boost when the content matches known phishing text closely.
func (d *Detector) detectPatternAnomalies(ctx context.Context, url, content string) SubReport {
	vec := features.URLFeatures(url)

	var findings []string
	maxZ := 0.0
	for slot, base := range urlBaseline {
		z := math.Abs(vec[slot]-base.mean) / base.std
		if z > maxZ {
			maxZ = z
		}
	}
	score := clamp01(maxZ / 6)

	if vec[urlSlotSuspTLD] == 1 {
		score = clamp01(score + 0.3)
		findings = append(findings, "suspicious or unparseable top-level domain")
	}
	if vec[urlSlotEntropy] > 5.2 {
		findings = append(findings, "high URL entropy")
	}

	if matches := patterns.Get().MatchAll(url, patterns.CategoryURLTricks); len(matches) > 0 {
		maxSev := 0
		for _, m := range matches {
			if m.Severity > maxSev {
				maxSev = m.Severity
			}
			findings = append(findings, m.Description)
		}
		score = clamp01(score + float64(maxSev)/200)
	}
	if content != "" {
		norm := features.NormalizeText(content)
		if matches := patterns.Get().MatchAll(norm, patterns.ContentCategories...); len(matches) > 0 {
			maxSev := 0
			for _, m := range matches {
				if m.Severity > maxSev {
					maxSev = m.Severity
				}
				findings = append(findings, m.Description)
			}
			score = clamp01(score + float64(maxSev)/200)
		}
	}

	if d.similarity != nil && d.similarity.Ready() && content != "" {
		if sim, category, err := d.similarity.BestMatch(ctx, content); err == nil && sim > 0.6 {
			score = math.Max(score, sim)
			findings = append(findings, "content resembles known phishing pattern: "+category)
		}
	}

	return SubReport{IsAnomaly: score > Threshold, Score: score, Findings: findings}
}

// detectBehaviorAnomalies measures the entropy of the behavior feature
// distribution. Legitimate pages concentrate activity in one or two
// channels; telemetry spread evenly across forms, redirects, popups,
// monitoring and clipboard access is the zero-day behavioral fingerprint.
func detectBehaviorAnomalies(b *features.Behavior) SubReport {
	vec := features.BehaviorFeatures(b)
	entropy := distributionEntropy(vec)

	var findings []string
	if b != nil {
		if n := features.SuspiciousScriptCount(b.Scripts); n > 0 {
			findings = append(findings, "suspicious script patterns present")
		}
	}
	return SubReport{IsAnomaly: entropy > Threshold, Score: entropy, Findings: findings}
}

// distributionEntropy returns the Shannon entropy of the vector treated as
// a distribution, normalized to [0,1] by log2(n). An all-zero vector has
// entropy 0.
func distributionEntropy(vec []float64) float64 {
	var sum float64
	for _, v := range vec {
		if v > 0 {
			sum += v
		}
	}
	if sum == 0 || len(vec) < 2 {
		return 0
	}
	var h float64
	for _, v := range vec {
		if v <= 0 {
			continue
		}
		p := v / sum
		h -= p * math.Log2(p)
	}
	return h / math.Log2(float64(len(vec)))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
