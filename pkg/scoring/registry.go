package scoring

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable set of loaded scorer backends. A snapshot is
// built once, published to the registry, and never mutated afterwards, so
// every in-flight request sees one consistent model version.
type Snapshot struct {
	URL      *Scorer
	Visual   *Scorer
	Behavior *Scorer
	Content  *ContentClassifier
	Version  int64
	LoadedAt time.Time
}

// Registry publishes the current Snapshot. Readers on the request path pay
// one atomic load; the feedback path replaces the whole snapshot with a
// versioned successor rather than touching live model objects.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// ModelPaths names the weight files for the three predictive scorers and
// the optional content model directory.
type ModelPaths struct {
	URLModel        string
	VisualModel     string
	BehaviorModel   string
	ContentModel    string
	OnnxLibraryPath string
}

// NewRegistry builds the startup snapshot and publishes it as version 1.
// Per-scorer load failure degrades that scorer for the process lifetime
// (until an explicit reload); it never aborts startup.
func NewRegistry(paths ModelPaths) *Registry {
	r := &Registry{}
	r.current.Store(buildSnapshot(paths, 1))
	return r
}

// NewStaticRegistry publishes a caller-built snapshot. Used when backends
// are constructed directly instead of loaded from weight files.
func NewStaticRegistry(snap *Snapshot) *Registry {
	if snap.Version == 0 {
		snap.Version = 1
	}
	r := &Registry{}
	r.current.Store(snap)
	return r
}

// Current returns the active snapshot. Never nil after NewRegistry.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Reload builds a fresh snapshot from the same paths and atomically swaps
// it in. Triggered by the report/feedback path after the training pipeline
// exports updated weights. Concurrent readers see either the old or the
// new snapshot, never a mix.
func (r *Registry) Reload(ctx context.Context, paths ModelPaths) *Snapshot {
	prev := r.current.Load()
	next := buildSnapshot(paths, prev.Version+1)
	// Carry the content model forward; ONNX sessions are expensive and the
	// feedback path only retrains the feature-vector scorers.
	if next.Content == nil || !next.Content.Ready() {
		next.Content = prev.Content
	}
	r.current.Store(next)
	log.Printf("[MODELS] registry swapped to version %d", next.Version)
	return next
}

func buildSnapshot(paths ModelPaths, version int64) *Snapshot {
	return &Snapshot{
		URL:      loadScorer("url", paths.URLModel),
		Visual:   loadScorer("visual", paths.VisualModel),
		Behavior: loadScorer("behavior", paths.BehaviorModel),
		Content: NewContentClassifier(ContentModelConfig{
			ModelPath:       paths.ContentModel,
			OnnxLibraryPath: paths.OnnxLibraryPath,
		}),
		Version:  version,
		LoadedAt: time.Now(),
	}
}

// loadScorer loads one weight file, substituting a permanently degraded
// scorer on failure. Startup proceeds either way.
func loadScorer(domain, path string) *Scorer {
	if path == "" {
		log.Printf("[STARTUP] %s model disabled (no path configured)", domain)
		return NewScorer(domain, nil)
	}
	backend, err := LoadLinearBackend(path)
	if err != nil {
		log.Printf("[WARN] %s model load failed, scorer degraded: %v", domain, err)
		return NewScorer(domain, nil)
	}
	log.Printf("[STARTUP] %s model loaded: %s", domain, backend.Name())
	return NewScorer(domain, backend)
}
