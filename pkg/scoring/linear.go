package scoring

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// LinearBackend is a logistic model over a fixed-length feature vector.
// It is the reference Backend implementation: weight files are exported by
// the training pipeline as plain YAML so deployments can ship models
// without a runtime dependency on the training stack.
type LinearBackend struct {
	name    string
	weights []float64
	bias    float64
}

// linearModelFile is the on-disk YAML shape of an exported model.
type linearModelFile struct {
	Name     string    `yaml:"name"`
	Features int       `yaml:"features"`
	Bias     float64   `yaml:"bias"`
	Weights  []float64 `yaml:"weights"`
}

// LoadLinearBackend reads a YAML weight file exported by the training
// pipeline. The declared feature count must match the weight vector.
func LoadLinearBackend(path string) (*LinearBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var mf linearModelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}
	if mf.Features == 0 || len(mf.Weights) != mf.Features {
		return nil, fmt.Errorf("model %s declares %d features but carries %d weights",
			path, mf.Features, len(mf.Weights))
	}
	name := mf.Name
	if name == "" {
		name = path
	}
	return &LinearBackend{name: name, weights: mf.Weights, bias: mf.Bias}, nil
}

// NewLinearBackend builds a backend from in-memory weights. Used by tests
// and by the bundled fallback models.
func NewLinearBackend(name string, weights []float64, bias float64) *LinearBackend {
	return &LinearBackend{name: name, weights: weights, bias: bias}
}

// Name returns the model identifier from the weight file.
func (l *LinearBackend) Name() string { return l.name }

// Predict computes sigmoid(w·x + b). The feature vector length must match
// the model; a mismatch is an inference error, not a panic.
func (l *LinearBackend) Predict(_ context.Context, features []float64) (float64, error) {
	if len(features) != len(l.weights) {
		return 0, fmt.Errorf("model %s expects %d features, got %d",
			l.name, len(l.weights), len(features))
	}
	z := l.bias
	for i, w := range l.weights {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
