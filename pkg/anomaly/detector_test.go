package anomaly

import (
	"context"
	"math"
	"testing"

	"github.com/kavach-ai/securenet/pkg/features"
)

func TestDetectBenignPage(t *testing.T) {
	d := NewDetector(nil)
	report := d.Detect(context.Background(), "https://example.com", "<html><body>Hello</body></html>", &features.Behavior{})

	if report.IsAnomaly {
		t.Errorf("benign page flagged anomalous: %+v", report)
	}
	if report.Score < 0 || report.Score > 1 {
		t.Errorf("score %f out of [0,1]", report.Score)
	}
	for _, name := range []string{"pattern", "behavior", "structure"} {
		if _, ok := report.Details[name]; !ok {
			t.Errorf("missing sub-report %q", name)
		}
	}
}

func TestDetectNilBehavior(t *testing.T) {
	d := NewDetector(nil)
	report := d.Detect(context.Background(), "https://example.com", "", nil)
	if report.Details["behavior"].IsAnomaly {
		t.Error("nil behavior must not be anomalous")
	}
	if report.Details["behavior"].Score != 0 {
		t.Errorf("nil behavior score = %f, want 0", report.Details["behavior"].Score)
	}
}

func TestScoreIsMeanOfSubScores(t *testing.T) {
	d := NewDetector(nil)
	report := d.Detect(context.Background(), "http://suspicious-login.xyz/verify?acct=123", "", nil)
	want := (report.Details["pattern"].Score + report.Details["behavior"].Score + report.Details["structure"].Score) / 3
	if math.Abs(report.Score-want) > 1e-12 {
		t.Errorf("combined score = %f, want mean of sub-scores %f", report.Score, want)
	}
}

func TestDistributionEntropy(t *testing.T) {
	if e := distributionEntropy(make([]float64, 8)); e != 0 {
		t.Errorf("all-zero entropy = %f, want 0", e)
	}
	// Evenly spread mass maximizes normalized entropy at 1
	even := []float64{1, 1, 1, 1}
	if e := distributionEntropy(even); math.Abs(e-1) > 1e-9 {
		t.Errorf("even distribution entropy = %f, want 1", e)
	}
	// Concentrated mass scores low
	spike := []float64{10, 0, 0, 0}
	if e := distributionEntropy(spike); e != 0 {
		t.Errorf("single-channel entropy = %f, want 0", e)
	}
}

func TestBehaviorEntropyFlagsSpreadActivity(t *testing.T) {
	// Activity across every telemetry channel pushes normalized entropy
	// over the threshold.
	b := &features.Behavior{
		FormSubmissions: 5,
		Redirects:       5,
		Popups:          5,
		Scripts:         []string{"window.open(1)", "a", "b", "c", "d"},
		InputMonitoring: 5,
		ClipboardAccess: 5,
		PageText:        "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
	}
	sub := detectBehaviorAnomalies(b)
	if !sub.IsAnomaly {
		t.Errorf("spread activity entropy = %f, want > %f", sub.Score, Threshold)
	}
	if len(sub.Findings) == 0 {
		t.Error("suspicious script finding expected")
	}
}

func TestPatternRegistryIndicators(t *testing.T) {
	d := NewDetector(nil)
	ctx := context.Background()

	benign := d.detectPatternAnomalies(ctx, "https://example.com", "Weekly newsletter with recipes")
	phish := d.detectPatternAnomalies(ctx, "http://paypal.com@203.0.113.7/login",
		"URGENT ACTION REQUIRED: verify your account within 24 hours")

	if phish.Score <= benign.Score {
		t.Errorf("phishing indicators score %f should exceed benign %f", phish.Score, benign.Score)
	}
	if len(phish.Findings) < 2 {
		t.Errorf("findings = %v, want URL trick and content lure indicators", phish.Findings)
	}
}

func TestSubDetectorPanicIsIsolated(t *testing.T) {
	got := runSub("test", func() SubReport { panic("sub-detector bug") })
	if got.IsAnomaly || got.Score != 0 {
		t.Errorf("panicking sub-detector result = %+v, want neutral default", got)
	}
}

func TestPatternAnomalyOnSuspiciousTLD(t *testing.T) {
	d := NewDetector(nil)
	clean := d.detectPatternAnomalies(context.Background(), "https://example.com", "")
	susp := d.detectPatternAnomalies(context.Background(), "http://a.xyz", "")
	if susp.Score <= clean.Score {
		t.Errorf("suspicious TLD score %f should exceed clean score %f", susp.Score, clean.Score)
	}
	if len(susp.Findings) == 0 {
		t.Error("suspicious TLD finding expected")
	}
}
