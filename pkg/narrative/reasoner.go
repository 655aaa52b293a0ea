// Package narrative wraps the external LLM reasoning service that turns a
// URL and page content into structured textual risk explanations. The
// service is network-bound with unbounded worst-case latency, so every
// call carries a hard timeout and degrades to a fixed placeholder
// explanation. Its output is advisory: the fusion engine never needs it to
// produce a verdict.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kavach-ai/securenet/pkg/httputil"
)

// Provider identifies the backing LLM service.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderGroq       Provider = "groq"
	ProviderOllama     Provider = "ollama"
)

// Explanation is the structured reasoning output. Free-form text, not
// numeric; Degraded marks the fixed fallback payload.
type Explanation struct {
	URLAnalysis        string  `json:"url_analysis"`
	ContentAnalysis    string  `json:"content_analysis"`
	SecurityAssessment string  `json:"security_assessment"`
	Degraded           bool    `json:"degraded"`
	LatencyMs          float64 `json:"latency_ms,omitempty"`
}

// DefaultExplanation is the fixed payload substituted when the reasoning
// service is unavailable, times out, or returns garbage.
func DefaultExplanation() *Explanation {
	return &Explanation{
		URLAnalysis:        "Analysis failed",
		ContentAnalysis:    "Analysis failed",
		SecurityAssessment: "Assessment failed",
		Degraded:           true,
	}
}

// Config holds the reasoner settings.
type Config struct {
	Provider Provider
	APIKey   string // optional for Ollama
	Model    string
	BaseURL  string        // override for self-hosted endpoints
	Timeout  time.Duration // hard cap per Explain call
}

// Reasoner calls the external LLM service.
type Reasoner struct {
	client  *http.Client
	cfg     Config
	baseURL string
}

const systemPrompt = `You are a web security analyst. Given a URL and the visible text of the
page it serves, explain the phishing risk in plain language.

Respond with JSON only:
{"url_analysis": "indicators found in the URL itself",
 "content_analysis": "indicators found in the page content",
 "security_assessment": "overall assessment and what a user should do"}`

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// New creates a reasoner. A missing API key for a cloud provider is not an
// error here; Explain will degrade per call.
func New(cfg Config) *Reasoner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.Model == "" {
		if cfg.Provider == ProviderOllama {
			cfg.Model = "qwen2.5:7b"
		} else {
			cfg.Model = "meta-llama/llama-3.3-70b-instruct:free"
		}
	}

	var baseURL string
	switch cfg.Provider {
	case ProviderOllama:
		baseURL = "http://localhost:11434/v1"
	case ProviderGroq:
		baseURL = "https://api.groq.com/openai/v1"
	case ProviderOpenRouter:
		fallthrough
	default:
		baseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	return &Reasoner{
		client:  httputil.SlowClient(),
		cfg:     cfg,
		baseURL: baseURL,
	}
}

// Explain requests a structured risk explanation for a page visit. It
// always returns a usable Explanation: any failure path yields the fixed
// default with Degraded set. The configured timeout applies on top of the
// caller's context.
func (r *Reasoner) Explain(ctx context.Context, url, content string) *Explanation {
	if r == nil {
		return DefaultExplanation()
	}
	if r.cfg.Provider != ProviderOllama && r.cfg.APIKey == "" {
		return DefaultExplanation()
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	userContent := fmt.Sprintf("URL: %s\n\nPAGE TEXT:\n%s", url, truncate(content, 8000))
	body := chatRequest{
		Model: r.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0.1,
	}

	respContent, err := r.callLLM(ctx, body)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		log.Printf("[WARN] narrative reasoner unavailable: %v", err)
		exp := DefaultExplanation()
		exp.LatencyMs = latency
		return exp
	}

	var exp Explanation
	if err := json.Unmarshal([]byte(extractJSON(respContent)), &exp); err != nil {
		log.Printf("[WARN] narrative reasoner returned unparseable output: %v", err)
		exp := DefaultExplanation()
		exp.LatencyMs = latency
		return exp
	}
	if exp.URLAnalysis == "" && exp.ContentAnalysis == "" && exp.SecurityAssessment == "" {
		return DefaultExplanation()
	}
	exp.LatencyMs = latency
	return &exp
}

func (r *Reasoner) callLLM(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(r.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer httputil.DrainAndClose(resp.Body)

	body, err := httputil.ReadResponseBody(resp.Body, 2*1024*1024)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, body)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

// extractJSON strips markdown fences and surrounding prose from a model
// response that should contain one JSON object.
func extractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
