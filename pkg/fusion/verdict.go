package fusion

import (
	"time"

	"github.com/google/uuid"

	"github.com/kavach-ai/securenet/pkg/anomaly"
	"github.com/kavach-ai/securenet/pkg/scoring"
	"github.com/kavach-ai/securenet/pkg/sslcheck"
)

// Verdict is the per-request assessment returned to callers. All risk
// fields lie in [0,1]; overall_risk is the max of the three signal risks.
// A verdict is assembled once and never mutated after return.
type Verdict struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	URLRisk      float64  `json:"url_risk"`
	VisualRisk   float64  `json:"visual_risk"`
	BehaviorRisk float64  `json:"behavior_risk"`
	SSLStatus    bool     `json:"ssl_status"`
	OverallRisk  float64  `json:"overall_risk"`
	Analysis     Analysis `json:"kavach_analysis"`
	// Degraded lists the branches that resolved to fallback defaults.
	Degraded   []string  `json:"degraded_signals,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Analysis is the detailed breakdown nested under kavach_analysis.
type Analysis struct {
	ZeroDayDetection ZeroDayDetection `json:"zero_day_detection"`
	PhishingRisk     PhishingRisk     `json:"phishing_risk"`
	ContentRisk      float64          `json:"content_risk"`
	BehaviorAnalysis float64          `json:"behavior_analysis"`
	SSLDetails       sslcheck.Result  `json:"ssl_details"`
}

// ZeroDayDetection carries the anomaly detector's verdict.
type ZeroDayDetection struct {
	IsZeroDay    bool                         `json:"is_zero_day"`
	Confidence   float64                      `json:"confidence"`
	AnomalyScore float64                      `json:"anomaly_score"`
	Details      map[string]anomaly.SubReport `json:"details,omitempty"`
}

// PhishingRisk carries the merged threat picture plus the narrative
// explanation and the derived guidance lists.
type PhishingRisk struct {
	OverallRiskLevel   float64  `json:"overall_risk_level"`
	ThreatLevel        float64  `json:"threat_level"`
	RiskFactors        []string `json:"risk_factors"`
	RecommendedActions []string `json:"recommended_actions"`
	PreventiveMeasures []string `json:"preventive_measures"`
	URLAnalysis        string   `json:"url_analysis"`
	ContentAnalysis    string   `json:"content_analysis"`
	SecurityAssessment string   `json:"security_assessment"`
}

// preventiveMeasures is static guidance attached to every verdict.
var preventiveMeasures = []string{
	"Enable two-factor authentication",
	"Keep software updated",
	"Use strong, unique passwords",
}

// NeutralVerdict is the fully defaulted verdict emitted when orchestration
// itself fails: every signal neutral, no factors, all branches degraded.
func NeutralVerdict(url string) *Verdict {
	return &Verdict{
		ID:           uuid.New().String(),
		URL:          url,
		URLRisk:      scoring.NeutralScore,
		VisualRisk:   scoring.NeutralScore,
		BehaviorRisk: scoring.NeutralScore,
		OverallRisk:  scoring.NeutralScore,
		Analysis: Analysis{
			PhishingRisk: PhishingRisk{
				OverallRiskLevel:   scoring.NeutralScore,
				ThreatLevel:        scoring.NeutralScore,
				RiskFactors:        []string{},
				RecommendedActions: []string{},
				PreventiveMeasures: preventiveMeasures,
				URLAnalysis:        "Analysis failed",
				ContentAnalysis:    "Analysis failed",
				SecurityAssessment: "Assessment failed",
			},
			ContentRisk:      scoring.NeutralScore,
			BehaviorAnalysis: scoring.NeutralScore,
		},
		Degraded:   []string{"url", "visual", "behavior", "content", "anomaly", "narrative", "ssl"},
		AnalyzedAt: time.Now().UTC(),
	}
}
