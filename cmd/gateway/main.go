package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/time/rate"

	"github.com/kavach-ai/securenet/pkg/anomaly"
	"github.com/kavach-ai/securenet/pkg/config"
	"github.com/kavach-ai/securenet/pkg/fusion"
	"github.com/kavach-ai/securenet/pkg/httputil"
	"github.com/kavach-ai/securenet/pkg/narrative"
	"github.com/kavach-ai/securenet/pkg/reportstore"
	"github.com/kavach-ai/securenet/pkg/scoring"
	"github.com/kavach-ai/securenet/pkg/sslcheck"
	"github.com/kavach-ai/securenet/pkg/telemetry"
)

const Version = "0.1.0"

// Gateway holds the analysis components.
// All components are optional and gracefully degrade if unavailable
type Gateway struct {
	cfg       *config.Config
	registry  *scoring.Registry
	engine    *fusion.Engine
	cache     *fusion.Cache
	store     reportstore.Store
	reloadSem *httputil.Semaphore
	limiter   *ipLimiter
}

// NewGateway wires the full analysis pipeline from configuration. Every
// optional collaborator that fails to initialize is logged and skipped;
// only broken configuration aborts startup.
func NewGateway(cfg *config.Config) *Gateway {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	registry := scoring.NewRegistry(scoring.ModelPaths{
		URLModel:        cfg.URLModelPath,
		VisualModel:     cfg.VisualModelPath,
		BehaviorModel:   cfg.BehaviorModelPath,
		ContentModel:    cfg.ContentModelPath,
		OnnxLibraryPath: cfg.OnnxLibraryPath,
	})

	// Content-similarity index (chromem-go + Ollama embeddings) - optional
	var similarity *anomaly.ContentSimilarity
	if sim, err := anomaly.NewContentSimilarity(cfg.OllamaURL, cfg.EmbeddingModel); err != nil {
		log.Printf("○ Content similarity disabled (init failed: %v)", err)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		if err := sim.LoadSeeds(ctx); err != nil {
			log.Printf("○ Content similarity disabled (seed load failed: %v)", err)
		} else {
			similarity = sim
			log.Println("✓ Content similarity enabled (chromem-go + Ollama embeddings)")
		}
		cancel()
	}

	// Narrative reasoner - optional, needs a provider
	var reasoner *narrative.Reasoner
	if cfg.LLMProvider != config.ProviderNone {
		reasoner = narrative.New(narrative.Config{
			Provider: narrative.Provider(cfg.LLMProvider),
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			BaseURL:  cfg.LLMBaseURL,
			Timeout:  cfg.LLMTimeout,
		})
		log.Printf("✓ Narrative reasoner enabled (provider: %s)", cfg.LLMProvider)
	} else {
		log.Println("○ Narrative reasoner disabled")
	}

	var ssl sslcheck.Validator
	if cfg.EnableSSL {
		ssl = sslcheck.NewTLSValidator(cfg.SSLTimeout)
	}

	cache := fusion.NewCache(cfg.RedisAddr, cfg.CacheTTL)

	// Report store: Postgres when configured, in-memory otherwise
	var store reportstore.Store
	if cfg.PostgresDSN != "" {
		if pg, err := reportstore.NewPGStore(context.Background(), cfg.PostgresDSN); err != nil {
			log.Printf("○ Postgres report store unavailable, using in-memory: %v", err)
			store = reportstore.NewMemStore()
		} else {
			store = pg
		}
	} else {
		store = reportstore.NewMemStore()
	}

	engine := fusion.NewEngine(fusion.Options{
		Registry:      registry,
		Detector:      anomaly.NewDetector(similarity),
		Reasoner:      reasoner,
		SSL:           ssl,
		Cache:         cache,
		BranchTimeout: cfg.BranchTimeout,
	})

	return &Gateway{
		cfg:       cfg,
		registry:  registry,
		engine:    engine,
		cache:     cache,
		store:     store,
		reloadSem: httputil.NewSemaphore(cfg.ReloadConcurrency),
		limiter:   newIPLimiter(rate.Limit(float64(cfg.ReportRatePerMin)/60), cfg.ReportRatePerMin),
	}
}

func (g *Gateway) Close() {
	g.cache.Close()
	g.store.Close()
}

// scheduleReload kicks a registry rebuild in the background. Rebuilds are
// bounded by the semaphore; a rebuild already in flight absorbs the new
// request.
func (g *Gateway) scheduleReload() {
	if !g.reloadSem.TryAcquire() {
		return
	}
	go func() {
		defer g.reloadSem.Release()
		g.registry.Reload(context.Background(), scoring.ModelPaths{
			URLModel:        g.cfg.URLModelPath,
			VisualModel:     g.cfg.VisualModelPath,
			BehaviorModel:   g.cfg.BehaviorModelPath,
			ContentModel:    g.cfg.ContentModelPath,
			OnnxLibraryPath: g.cfg.OnnxLibraryPath,
		})
		telemetry.Global.ModelReloads.Add(1)
	}()
}

// parseReport pulls url and description out of an arbitrary report
// payload. Reports are community feedback, so a body that is not JSON is
// still accepted as a report; fields that do not parse come back empty.
func parseReport(body []byte) (url, description string) {
	var fields struct {
		URL         string `json:"url"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		log.Printf("[WARN] malformed report payload: %v", err)
		return "", ""
	}
	return fields.URL, fields.Description
}

// ipLimiter rate-limits report submissions per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		// Bound the map so a scan across addresses cannot grow it forever
		if len(l.limiters) > 10000 {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim.Allow()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cfg := config.NewDefaultConfig()
		if len(os.Args) > 2 {
			if p, err := strconv.Atoi(os.Args[2]); err == nil {
				cfg.Port = p
			}
		}
		cfg.MustValidate()
		runHTTPServer(cfg)
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: securenet analyze <url>")
			os.Exit(1)
		}
		runCLIAnalyze(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("SecureNet Gateway v%s\n", Version)
		fmt.Println("Multi-Signal Threat Fusion Engine")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("SecureNet Gateway v%s - Multi-Signal Threat Fusion Engine\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  securenet serve [port]   Start HTTP server (default: 8080)")
	fmt.Println("  securenet analyze <url>  Analyze one URL from the command line")
	fmt.Println("  securenet version        Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  SECURENET_URL_MODEL       URL scorer weight file")
	fmt.Println("  SECURENET_CONTENT_MODEL   ONNX model directory for content classification")
	fmt.Println("  SECURENET_LLM_API_KEY     API key for narrative risk analysis")
	fmt.Println("  SECURENET_LLM_PROVIDER    Provider: ollama, openrouter, groq (default: ollama)")
	fmt.Println("  SECURENET_REDIS_ADDR      Redis address for verdict caching")
	fmt.Println("  SECURENET_POSTGRES_DSN    Postgres DSN for report storage")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(cfg *config.Config) {
	gw := NewGateway(cfg)
	defer gw.Close()

	app := fiber.New(fiber.Config{
		AppName: "SecureNet Gateway",
	})

	// Capability listing
	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "SecureNet Gateway",
			"version": Version,
			"endpoints": fiber.Map{
				"POST /analyze": "Analyze a page visit (url, screenshot, behavior)",
				"POST /report":  "Report a suspicious URL",
				"GET /health":   "Health and counters",
			},
		})
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"version":       Version,
			"model_version": gw.registry.Current().Version,
			"counters":      telemetry.Global.Read(),
		})
	})

	// Analysis endpoint. Always 200: a malformed body analyzes as an empty
	// request and comes back neutral rather than erroring.
	analyzeHandler := func(c fiber.Ctx) error {
		var req fusion.Request
		if err := c.Bind().Body(&req); err != nil {
			log.Printf("[WARN] malformed analyze request: %v", err)
		}

		verdict := gw.engine.Analyze(c.Context(), &req)

		telemetry.Global.Analyses.Add(1)
		telemetry.Global.DegradedSignals.Add(int64(len(verdict.Degraded)))
		if verdict.Analysis.ZeroDayDetection.IsZeroDay {
			telemetry.Global.Anomalies.Add(1)
		}
		return c.JSON(verdict)
	}
	app.Post("/analyze", analyzeHandler)
	app.Post("/api/analyze", analyzeHandler)

	// Report endpoint: feedback path. Accepting the report may schedule a
	// model-registry version swap; only a storage failure is a 500.
	reportHandler := func(c fiber.Ctx) error {
		if !gw.limiter.allow(c.IP()) {
			telemetry.Global.ReportsRejected.Add(1)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "rate limit exceeded",
			})
		}

		url, description := parseReport(c.Body())
		report := reportstore.NewReport(url, description, c.IP())
		if err := gw.store.Save(c.Context(), report); err != nil {
			log.Printf("[ERROR] report save failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "failed to store report",
			})
		}

		telemetry.Global.Reports.Add(1)
		gw.scheduleReload()
		return c.JSON(fiber.Map{"success": true, "id": report.ID})
	}
	app.Post("/report", reportHandler)
	app.Post("/api/report", reportHandler)

	log.Printf("SecureNet Gateway starting on :%d", cfg.Port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /        - Capability listing")
	log.Printf("  GET  /health  - Health and counters")
	log.Printf("  POST /analyze - Page analysis")
	log.Printf("  POST /report  - Report suspicious URL")

	if err := app.Listen(":" + strconv.Itoa(cfg.Port)); err != nil {
		log.Fatal(err)
	}
}

// ============================================================================
// CLI Mode
// ============================================================================

func runCLIAnalyze(url string) {
	cfg := config.NewDefaultConfig()
	gw := NewGateway(cfg)
	defer gw.Close()

	verdict := gw.engine.Analyze(context.Background(), &fusion.Request{URL: url})
	out, _ := json.MarshalIndent(verdict, "", "  ")
	fmt.Println(string(out))
}
