// Package config holds the gateway's runtime settings. Everything is
// configurable through environment variables; programmatic overrides are
// for tests and embedded use.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLMProvider defines the backend LLM service for the narrative reasoner
type LLMProvider string

const (
	ProviderNone       LLMProvider = "none"       // No LLM, numeric signals only
	ProviderOllama     LLMProvider = "ollama"     // Local Ollama server
	ProviderOpenRouter LLMProvider = "openrouter" // OpenRouter (default, has free tier)
	ProviderGroq       LLMProvider = "groq"       // Groq (high-speed inference)
)

// Config holds global settings for the SecureNet gateway.
// All settings can be configured via environment variables or programmatically
type Config struct {
	// === Core Settings ===
	Port      int  // HTTP listen port (default: 8080)
	EnableSSL bool // Probe target hosts' TLS certificates (default: true)

	// === Model Paths ===
	// Weight files for the predictive scorers. A missing or unreadable
	// file degrades that scorer to neutral, it never blocks startup.
	URLModelPath      string
	VisualModelPath   string
	BehaviorModelPath string
	ContentModelPath  string // ONNX model directory for the content classifier
	OnnxLibraryPath   string // libonnxruntime location; empty = pure-Go backend

	// === LLM Provider Configuration ===
	// These settings control the narrative risk reasoner
	LLMProvider LLMProvider // Which LLM service to use: "ollama", "openrouter", "groq", "none"
	LLMAPIKey   string      // API key for cloud providers (env: SECURENET_LLM_API_KEY or provider-specific)
	LLMModel    string      // Model identifier (e.g., "meta-llama/llama-3.3-70b-instruct:free")
	LLMBaseURL  string      // Custom base URL for self-hosted or custom providers
	LLMTimeout  time.Duration

	// === Analysis Pipeline ===
	BranchTimeout time.Duration // Per-branch cap inside one analysis (default: 5s)
	SSLTimeout    time.Duration // TLS handshake cap (default: 5s)

	// === Embeddings ===
	OllamaURL      string // Ollama endpoint for content-similarity embeddings
	EmbeddingModel string // Embedding model name (default: "nomic-embed-text")

	// === Storage ===
	RedisAddr   string        // Verdict cache; empty disables caching
	CacheTTL    time.Duration // Verdict cache TTL (default: 5m)
	PostgresDSN string        // Report store; empty falls back to in-memory

	// === Feedback Path ===
	ReportRatePerMin  int // Per-client report submissions per minute (default: 10)
	ReloadConcurrency int // Max concurrent registry rebuilds (default: 1)
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables
func NewDefaultConfig() *Config {
	return &Config{
		Port:      GetEnvInt("SECURENET_PORT", 8080),
		EnableSSL: GetEnvBool("SECURENET_ENABLE_SSL", true),

		URLModelPath:      GetEnv("SECURENET_URL_MODEL", "models/url_model.yaml"),
		VisualModelPath:   GetEnv("SECURENET_VISUAL_MODEL", "models/visual_model.yaml"),
		BehaviorModelPath: GetEnv("SECURENET_BEHAVIOR_MODEL", "models/behavior_model.yaml"),
		ContentModelPath:  GetEnv("SECURENET_CONTENT_MODEL", ""),
		OnnxLibraryPath:   GetEnv("SECURENET_ONNX_LIBRARY", ""),

		LLMProvider: detectLLMProvider(),
		LLMAPIKey:   GetEnv("SECURENET_LLM_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		LLMModel:    GetEnv("SECURENET_LLM_MODEL", ""),
		LLMBaseURL:  GetEnv("SECURENET_LLM_BASE_URL", ""),
		LLMTimeout:  time.Duration(GetEnvInt("SECURENET_LLM_TIMEOUT_MS", 8000)) * time.Millisecond,

		BranchTimeout: time.Duration(GetEnvInt("SECURENET_BRANCH_TIMEOUT_MS", 5000)) * time.Millisecond,
		SSLTimeout:    time.Duration(GetEnvInt("SECURENET_SSL_TIMEOUT_MS", 5000)) * time.Millisecond,

		OllamaURL:      GetEnv("SECURENET_OLLAMA_URL", "http://localhost:11434"),
		EmbeddingModel: GetEnv("SECURENET_EMBEDDING_MODEL", "nomic-embed-text"),

		RedisAddr:   GetEnv("SECURENET_REDIS_ADDR", ""),
		CacheTTL:    time.Duration(GetEnvInt("SECURENET_CACHE_TTL_SECONDS", 300)) * time.Second,
		PostgresDSN: GetEnv("SECURENET_POSTGRES_DSN", os.Getenv("DATABASE_URL")),

		ReportRatePerMin:  clampInt(GetEnvInt("SECURENET_REPORT_RATE_PER_MIN", 10), 1, 1000),
		ReloadConcurrency: clampInt(GetEnvInt("SECURENET_RELOAD_CONCURRENCY", 1), 1, 8),
	}
}

// NewLocalConfig creates a Config for fully local operation (no cloud API
// calls). Use this for development and air-gapped deployments.
func NewLocalConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LLMProvider = ProviderOllama
	cfg.LLMBaseURL = "http://localhost:11434/v1"
	cfg.LLMModel = "qwen2.5:7b"
	cfg.LLMAPIKey = ""
	return cfg
}

func detectLLMProvider() LLMProvider {
	if p := os.Getenv("SECURENET_LLM_PROVIDER"); p != "" {
		return LLMProvider(p)
	}
	if os.Getenv("GROQ_API_KEY") != "" {
		return ProviderGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("SECURENET_LLM_API_KEY") != "" {
		return ProviderOpenRouter
	}
	return ProviderOllama
}

// Validate checks the configuration for values that cannot possibly work.
// Analysis-path settings are never fatal (the pipeline degrades instead);
// only structurally broken configuration fails here.
func (c *Config) Validate() error {
	var problems []string
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if c.BranchTimeout <= 0 {
		problems = append(problems, "branch timeout must be positive")
	}
	switch c.LLMProvider {
	case ProviderNone, ProviderOllama, ProviderOpenRouter, ProviderGroq:
	default:
		problems = append(problems, fmt.Sprintf("unknown LLM provider %q", c.LLMProvider))
	}
	if c.LLMProvider != ProviderNone && c.LLMProvider != ProviderOllama && c.LLMAPIKey == "" {
		log.Printf("[STARTUP] Warning: no API key for LLM provider %q, narrative analysis will degrade", c.LLMProvider)
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing
// These are exported for use by other packages

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
