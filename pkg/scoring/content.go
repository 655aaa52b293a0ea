package scoring

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// ContentClassifier scores page text for phishing indicators using a local
// ONNX text-classification model via Hugot. The model is optional: when no
// model is present or initialization fails, classification degrades to a
// keyword heuristic and the result is tagged degraded.
type ContentClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	ready    bool
}

// ContentModelConfig configures the optional page-text model.
type ContentModelConfig struct {
	// ModelPath is the local path to the ONNX model directory.
	ModelPath string

	// OnnxLibraryPath is the path to libonnxruntime.so. Empty selects the
	// pure Go backend.
	OnnxLibraryPath string
}

// phishingKeywords drive the heuristic fallback. Weights are cumulative
// and the sum is capped at 1.
var phishingKeywords = map[string]float64{
	"verify your account":     0.3,
	"suspended":               0.2,
	"confirm your password":   0.35,
	"urgent action required":  0.3,
	"click here immediately":  0.25,
	"unusual activity":        0.2,
	"update payment":          0.25,
	"login to continue":       0.2,
	"your account will be":    0.2,
	"limited time":            0.1,
	"security alert":          0.2,
	"enter your credit card":  0.4,
	"social security number":  0.4,
}

// NewContentClassifier initializes the classifier, degrading gracefully if
// the model directory or ONNX runtime is unavailable.
func NewContentClassifier(cfg ContentModelConfig) *ContentClassifier {
	c := &ContentClassifier{}
	if cfg.ModelPath == "" {
		log.Println("[STARTUP] content model disabled (no model path configured)")
		return c
	}
	if _, err := os.Stat(filepath.Join(cfg.ModelPath, "model.onnx")); err != nil {
		log.Printf("[STARTUP] content model disabled (no model at %s)", cfg.ModelPath)
		return c
	}
	if err := c.initialize(cfg); err != nil {
		log.Printf("[WARN] content model initialization failed (degrading to keyword heuristic): %v", err)
	}
	return c
}

func (c *ContentClassifier) initialize(cfg ContentModelConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.createSession(cfg)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: cfg.ModelPath,
		Name:      "phishing-content-classifier",
	})
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create pipeline: %w", err)
	}

	c.session = session
	c.pipeline = pipeline
	c.ready = true
	log.Printf("[STARTUP] content model loaded from %s", cfg.ModelPath)
	return nil
}

func (c *ContentClassifier) createSession(cfg ContentModelConfig) (*hugot.Session, error) {
	if cfg.OnnxLibraryPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(cfg.OnnxLibraryPath))
		if err == nil {
			return session, nil
		}
		log.Printf("[STARTUP] ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}
	return hugot.NewGoSession()
}

// Ready reports whether the ONNX model is loaded.
func (c *ContentClassifier) Ready() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Classify scores page text for phishing content risk. The model path
// returns a real prediction; every other path returns the keyword
// heuristic tagged degraded. Empty text scores 0.
func (c *ContentClassifier) Classify(ctx context.Context, text string) SignalScore {
	if strings.TrimSpace(text) == "" {
		return SignalScore{Value: 0, Degraded: !c.Ready()}
	}
	if !c.Ready() {
		return SignalScore{Value: keywordContentRisk(text), Degraded: true}
	}

	c.mu.RLock()
	pipeline := c.pipeline
	c.mu.RUnlock()

	result, err := pipeline.RunPipeline([]string{truncateForModel(text)})
	if err != nil || len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		if err != nil {
			log.Printf("[WARN] content model inference failed: %v", err)
		}
		return SignalScore{Value: keywordContentRisk(text), Degraded: true}
	}

	out := result.ClassificationOutputs[0][0]
	score := float64(out.Score)
	if !isPhishingLabel(out.Label) {
		score = 1 - score
	}
	return SignalScore{Value: clamp01(score)}
}

// isPhishingLabel maps model label conventions to the positive class.
func isPhishingLabel(label string) bool {
	switch label {
	case "phishing", "PHISHING", "malicious", "LABEL_1":
		return true
	default:
		return false
	}
}

// keywordContentRisk is the degraded-path heuristic: weighted keyword hits
// capped at 1.
func keywordContentRisk(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for kw, w := range phishingKeywords {
		if strings.Contains(lower, kw) {
			score += w
		}
	}
	return clamp01(score)
}

// truncateForModel bounds input length; transformer models have a fixed
// token window and tokenizing megabytes of page text wastes inference time.
func truncateForModel(text string) string {
	const maxLen = 4096
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}

// Close releases the ONNX session.
func (c *ContentClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	}
	return nil
}
