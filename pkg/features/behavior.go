package features

import (
	"math"
	"regexp"
)

// BehaviorFeatureCount is the fixed length of the behavior feature vector.
const BehaviorFeatureCount = 8

// Behavior holds the client-side telemetry reported for a page visit.
// It is transient, constructed once per request and never mutated.
type Behavior struct {
	FormSubmissions int            `json:"form_submissions"`
	Redirects       int            `json:"redirects"`
	Popups          int            `json:"popups"`
	Scripts         []string       `json:"scripts"`
	InputMonitoring int            `json:"input_monitoring"`
	ClipboardAccess int            `json:"clipboard_access"`
	PageText        string         `json:"page_text"`
	Metadata        map[string]any `json:"metadata"`
}

// suspiciousScriptPatterns flag script snippets associated with credential
// harvesting and user coercion. Matching is case-insensitive.
var suspiciousScriptPatterns = map[string]*regexp.Regexp{
	"form_submission":  regexp.MustCompile(`(?i)POST.*?password`),
	"redirect_chain":   regexp.MustCompile(`(?i)window\.location`),
	"popup_spam":       regexp.MustCompile(`(?i)window\.open`),
	"clipboard_access": regexp.MustCompile(`(?i)navigator\.clipboard`),
	"keyboard_logging": regexp.MustCompile(`(?i)addEventListener.*?keydown`),
}

// BehaviorFeatures extracts the 8-slot behavior feature vector.
// A nil Behavior yields the all-zero vector; the length is invariant across
// all inputs.
//
// Slots: 0 form submissions, 1 redirects, 2 popups, 3 script count,
// 4 suspicious-script count, 5 input monitoring events, 6 clipboard
// accesses, 7 log-scaled page text length.
func BehaviorFeatures(b *Behavior) []float64 {
	v := make([]float64, BehaviorFeatureCount)
	if b == nil {
		return v
	}
	v[0] = float64(b.FormSubmissions)
	v[1] = float64(b.Redirects)
	v[2] = float64(b.Popups)
	v[3] = float64(len(b.Scripts))
	v[4] = float64(SuspiciousScriptCount(b.Scripts))
	v[5] = float64(b.InputMonitoring)
	v[6] = float64(b.ClipboardAccess)
	v[7] = math.Log1p(float64(len(b.PageText)))
	return v
}

// SuspiciousScriptCount returns the number of pattern hits across all
// scripts. A script matching several patterns counts once per pattern.
func SuspiciousScriptCount(scripts []string) int {
	count := 0
	for _, script := range scripts {
		norm := NormalizeText(script)
		for _, re := range suspiciousScriptPatterns {
			if re.MatchString(norm) {
				count++
			}
		}
	}
	return count
}
