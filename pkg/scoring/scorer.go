// Package scoring wraps the opaque predictive model backends behind the
// PredictiveScorer capability. A scorer never propagates a backend failure:
// an unavailable or crashing backend degrades to the neutral score 0.5,
// tagged so consumers can tell a computed value from a substituted one.
package scoring

import (
	"context"
	"fmt"
	"log"
	"math"
)

// NeutralScore encodes "unknown risk", not "safe". It is what every scorer
// returns when its backend cannot produce a real prediction.
const NeutralScore = 0.5

// SignalScore is one independently computed risk estimate in [0,1].
// Degraded marks a value produced by fallback substitution rather than a
// real model prediction.
type SignalScore struct {
	Value    float64 `json:"value"`
	Degraded bool    `json:"degraded"`
}

// Neutral returns the degraded fallback score.
func Neutral() SignalScore {
	return SignalScore{Value: NeutralScore, Degraded: true}
}

// Backend is the opaque model capability: anything that maps a feature
// vector to a score satisfies it (linear model, tree ensemble, neural
// network, hand-written rule table).
type Backend interface {
	Predict(ctx context.Context, features []float64) (float64, error)
	Name() string
}

// Scorer wraps a Backend with the fallback contract. A Scorer with a nil
// backend is permanently degraded; that is the startup policy when a model
// fails to load.
type Scorer struct {
	backend Backend
	domain  string
}

// NewScorer creates a scorer for the given signal domain ("url", "visual",
// "behavior"). backend may be nil for a permanently degraded scorer.
func NewScorer(domain string, backend Backend) *Scorer {
	return &Scorer{backend: backend, domain: domain}
}

// Degraded reports whether the scorer has no live backend.
func (s *Scorer) Degraded() bool {
	return s == nil || s.backend == nil
}

// Domain returns the signal domain this scorer covers.
func (s *Scorer) Domain() string {
	if s == nil {
		return ""
	}
	return s.domain
}

// Score runs the backend on a feature vector. Any failure mode (nil
// backend, inference error, panic, non-finite result) yields the
// neutral degraded score instead of an error.
func (s *Scorer) Score(ctx context.Context, features []float64) (score SignalScore) {
	if s == nil || s.backend == nil {
		return Neutral()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] %s backend %s panicked: %v", s.domain, s.backend.Name(), r)
			score = Neutral()
		}
	}()

	v, err := s.backend.Predict(ctx, features)
	if err != nil {
		log.Printf("[WARN] %s backend %s failed: %v", s.domain, s.backend.Name(), err)
		return Neutral()
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		log.Printf("[WARN] %s backend %s produced non-finite score", s.domain, s.backend.Name())
		return Neutral()
	}
	return SignalScore{Value: clamp01(v)}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// String implements fmt.Stringer for log lines.
func (s SignalScore) String() string {
	if s.Degraded {
		return fmt.Sprintf("%.3f (degraded)", s.Value)
	}
	return fmt.Sprintf("%.3f", s.Value)
}
