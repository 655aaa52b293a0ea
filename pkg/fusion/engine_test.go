package fusion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/kavach-ai/securenet/pkg/features"
	"github.com/kavach-ai/securenet/pkg/scoring"
	"github.com/kavach-ai/securenet/pkg/sslcheck"
)

// stubBackend returns a fixed value, or a value derived from the feature
// vector when derive is set.
type stubBackend struct {
	value  float64
	err    error
	derive func([]float64) float64
}

func (s *stubBackend) Predict(ctx context.Context, vec []float64) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.derive != nil {
		return s.derive(vec), nil
	}
	return s.value, nil
}

func (s *stubBackend) Name() string { return "stub" }

func testEngine(urlV, visualV, behaviorV float64, ssl sslcheck.Validator) *Engine {
	reg := scoring.NewStaticRegistry(&scoring.Snapshot{
		URL:      scoring.NewScorer("url", &stubBackend{value: urlV}),
		Visual:   scoring.NewScorer("visual", &stubBackend{value: visualV}),
		Behavior: scoring.NewScorer("behavior", &stubBackend{value: behaviorV}),
	})
	return NewEngine(Options{Registry: reg, SSL: ssl})
}

func TestAnalyzeScoresInRange(t *testing.T) {
	e := testEngine(0.3, 0.9, 0.2, sslcheck.StaticValidator{Result: sslcheck.Result{Valid: true}})
	v := e.Analyze(context.Background(), &Request{URL: "https://example.com"})

	for name, score := range map[string]float64{
		"url_risk":      v.URLRisk,
		"visual_risk":   v.VisualRisk,
		"behavior_risk": v.BehaviorRisk,
		"overall_risk":  v.OverallRisk,
		"content_risk":  v.Analysis.ContentRisk,
		"threat_level":  v.Analysis.PhishingRisk.ThreatLevel,
	} {
		if score < 0 || score > 1 {
			t.Errorf("%s = %f, out of [0,1]", name, score)
		}
	}
}

func TestOverallRiskIsMax(t *testing.T) {
	cases := []struct{ url, visual, behavior float64 }{
		{0.1, 0.2, 0.9},
		{0.95, 0.1, 0.1},
		{0.4, 0.7, 0.4},
		{0.5, 0.5, 0.5},
	}
	for _, c := range cases {
		e := testEngine(c.url, c.visual, c.behavior, nil)
		v := e.Analyze(context.Background(), &Request{URL: "https://example.com"})
		want := math.Max(c.url, math.Max(c.visual, c.behavior))
		if v.OverallRisk != want {
			t.Errorf("overall = %f, want max %f for %+v", v.OverallRisk, want, c)
		}
	}
}

func TestSingleScorerFailureDegradesOnlyThatSignal(t *testing.T) {
	reg := scoring.NewStaticRegistry(&scoring.Snapshot{
		URL:      scoring.NewScorer("url", &stubBackend{err: errors.New("backend down")}),
		Visual:   scoring.NewScorer("visual", &stubBackend{value: 0.2}),
		Behavior: scoring.NewScorer("behavior", &stubBackend{value: 0.3}),
	})
	e := NewEngine(Options{Registry: reg})
	v := e.Analyze(context.Background(), &Request{URL: "https://example.com"})

	if v.URLRisk != scoring.NeutralScore {
		t.Errorf("url_risk = %f, want neutral %f", v.URLRisk, scoring.NeutralScore)
	}
	if v.VisualRisk != 0.2 || v.BehaviorRisk != 0.3 {
		t.Errorf("healthy scorers affected: visual=%f behavior=%f", v.VisualRisk, v.BehaviorRisk)
	}
	found := false
	for _, d := range v.Degraded {
		if d == "url" {
			found = true
		}
		if d == "visual" || d == "behavior" {
			t.Errorf("healthy branch %q marked degraded", d)
		}
	}
	if !found {
		t.Error("url branch not marked degraded")
	}

	// Verdict must still serialize to the full schema
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{"url_risk", "visual_risk", "behavior_risk", "ssl_status", "overall_risk", "kavach_analysis"} {
		if !json.Valid(raw) || !containsField(raw, field) {
			t.Errorf("serialized verdict missing %q", field)
		}
	}
}

func containsField(raw []byte, field string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m[field]
	return ok
}

func TestOrchestrationFailureFailsOpen(t *testing.T) {
	// Nil registry makes snapshot access panic inside Analyze.
	e := NewEngine(Options{})
	v := e.Analyze(context.Background(), &Request{URL: "https://example.com"})

	if v == nil {
		t.Fatal("nil verdict")
	}
	if v.URLRisk != scoring.NeutralScore || v.OverallRisk != scoring.NeutralScore {
		t.Errorf("neutral verdict expected, got %+v", v)
	}
	if len(v.Analysis.PhishingRisk.RiskFactors) != 0 {
		t.Errorf("risk factors on neutral verdict: %v", v.Analysis.PhishingRisk.RiskFactors)
	}
}

func TestConcurrentRequestsDoNotCrossContaminate(t *testing.T) {
	// The backend derives its score from the URL length slot, so each
	// request has a distinct expected output.
	reg := scoring.NewStaticRegistry(&scoring.Snapshot{
		URL: scoring.NewScorer("url", &stubBackend{derive: func(vec []float64) float64 {
			return vec[0] / 100
		}}),
		Visual:   scoring.NewScorer("visual", &stubBackend{value: 0}),
		Behavior: scoring.NewScorer("behavior", &stubBackend{value: 0}),
	})
	e := NewEngine(Options{Registry: reg})

	const n = 32
	var wg sync.WaitGroup
	results := make([]*Verdict, n)
	urls := make([]string, n)
	for i := 0; i < n; i++ {
		urls[i] = fmt.Sprintf("https://example.com/%0*d", i+1, i)
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Analyze(context.Background(), &Request{URL: urls[i]})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		want := float64(len(urls[i])) / 100
		if math.Abs(results[i].URLRisk-want) > 1e-12 {
			t.Errorf("request %d url_risk = %f, want %f", i, results[i].URLRisk, want)
		}
	}
}

func TestBenignScenario(t *testing.T) {
	e := testEngine(0.1, 0.1, 0.05, sslcheck.StaticValidator{Result: sslcheck.Result{Valid: true, Issuer: "Test CA"}})
	v := e.Analyze(context.Background(), &Request{
		URL: "https://example.com",
		Behavior: &features.Behavior{
			FormSubmissions: 0,
			Redirects:       0,
			Popups:          0,
			Scripts:         []string{},
		},
	})

	if !v.SSLStatus {
		t.Error("ssl_status = false for valid certificate")
	}
	if len(v.Analysis.PhishingRisk.RiskFactors) != 0 {
		t.Errorf("risk_factors = %v, want empty", v.Analysis.PhishingRisk.RiskFactors)
	}
	if len(v.Analysis.PhishingRisk.RecommendedActions) != 0 {
		t.Errorf("recommended_actions = %v, want none beyond preventive guidance", v.Analysis.PhishingRisk.RecommendedActions)
	}
	if len(v.Analysis.PhishingRisk.PreventiveMeasures) == 0 {
		t.Error("static preventive guidance missing")
	}
	if v.OverallRisk != 0.1 {
		t.Errorf("overall_risk = %f, want url/visual baseline 0.1", v.OverallRisk)
	}
}

func TestPasswordHarvestScriptRaisesBehaviorRisk(t *testing.T) {
	// Behavior backend keys on the suspicious-script slot.
	reg := scoring.NewStaticRegistry(&scoring.Snapshot{
		URL:    scoring.NewScorer("url", &stubBackend{value: 0.1}),
		Visual: scoring.NewScorer("visual", &stubBackend{value: 0.1}),
		Behavior: scoring.NewScorer("behavior", &stubBackend{derive: func(vec []float64) float64 {
			return vec[4] * 0.4
		}}),
	})
	e := NewEngine(Options{Registry: reg})

	v := e.Analyze(context.Background(), &Request{
		URL: "http://login-update.example",
		Behavior: &features.Behavior{
			Scripts: []string{"document.forms[0].submit(); // POST password"},
		},
	})
	if v.BehaviorRisk <= 0 {
		t.Errorf("behavior_risk = %f, want > 0 for password-harvest script", v.BehaviorRisk)
	}
	if v.OverallRisk < v.BehaviorRisk {
		t.Error("overall_risk must not be below behavior_risk")
	}
}

func TestRiskFactorAndActionThresholds(t *testing.T) {
	cases := []struct {
		url, visual float64
		factors     int
		action      string
	}{
		{0.75, 0.1, 1, "Proceed with caution"},
		{0.9, 0.85, 2, "Block access immediately"},
		{0.2, 0.2, 0, ""},
	}
	for _, c := range cases {
		e := testEngine(c.url, c.visual, 0.1, nil)
		v := e.Analyze(context.Background(), &Request{URL: "https://example.com"})
		if len(v.Analysis.PhishingRisk.RiskFactors) != c.factors {
			t.Errorf("url=%.2f visual=%.2f: factors = %v, want %d",
				c.url, c.visual, v.Analysis.PhishingRisk.RiskFactors, c.factors)
		}
		actions := v.Analysis.PhishingRisk.RecommendedActions
		if c.action == "" && len(actions) != 0 {
			t.Errorf("unexpected actions %v", actions)
		}
		if c.action != "" && (len(actions) != 1 || actions[0] != c.action) {
			t.Errorf("actions = %v, want [%s]", actions, c.action)
		}
	}
}

func TestNilRequest(t *testing.T) {
	e := testEngine(0.1, 0.1, 0.1, nil)
	v := e.Analyze(context.Background(), nil)
	if v == nil {
		t.Fatal("nil verdict for nil request")
	}
	if v.OverallRisk < 0 || v.OverallRisk > 1 {
		t.Errorf("overall_risk = %f", v.OverallRisk)
	}
}
