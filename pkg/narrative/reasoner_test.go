package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestExplainSuccess(t *testing.T) {
	srv := chatServer(t, "```json\n{\"url_analysis\": \"misspelled brand domain\", \"content_analysis\": \"urgent credential request\", \"security_assessment\": \"likely phishing, do not enter credentials\"}\n```")
	defer srv.Close()

	r := New(Config{Provider: ProviderOpenRouter, APIKey: "test-key", BaseURL: srv.URL})
	exp := r.Explain(context.Background(), "http://paypa1-login.xyz", "Verify your account now")

	if exp.Degraded {
		t.Fatalf("successful call marked degraded: %+v", exp)
	}
	if exp.URLAnalysis != "misspelled brand domain" {
		t.Errorf("URLAnalysis = %q", exp.URLAnalysis)
	}
	if exp.SecurityAssessment == "" {
		t.Error("empty SecurityAssessment")
	}
}

func TestExplainMalformedModelOutput(t *testing.T) {
	srv := chatServer(t, "I cannot answer in JSON, sorry.")
	defer srv.Close()

	r := New(Config{Provider: ProviderGroq, APIKey: "test-key", BaseURL: srv.URL})
	exp := r.Explain(context.Background(), "https://example.com", "hello")

	if !exp.Degraded {
		t.Fatal("unparseable output should degrade")
	}
	if exp.SecurityAssessment != "Assessment failed" {
		t.Errorf("SecurityAssessment = %q, want fixed default", exp.SecurityAssessment)
	}
}

func TestExplainTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	r := New(Config{Provider: ProviderOllama, BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	exp := r.Explain(context.Background(), "https://example.com", "hello")

	if !exp.Degraded {
		t.Fatal("timed-out call should degrade")
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Explain took %v, timeout not enforced", elapsed)
	}
	if exp.URLAnalysis != "Analysis failed" || exp.ContentAnalysis != "Analysis failed" {
		t.Errorf("degraded explanation = %+v, want fixed defaults", exp)
	}
}

func TestExplainMissingAPIKey(t *testing.T) {
	r := New(Config{Provider: ProviderOpenRouter})
	exp := r.Explain(context.Background(), "https://example.com", "hello")
	if !exp.Degraded {
		t.Fatal("cloud provider without key should degrade immediately")
	}
}

func TestExplainServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := New(Config{Provider: ProviderGroq, APIKey: "k", BaseURL: srv.URL})
	if exp := r.Explain(context.Background(), "https://example.com", ""); !exp.Degraded {
		t.Fatal("non-200 response should degrade")
	}
}

func TestNilReasoner(t *testing.T) {
	var r *Reasoner
	if exp := r.Explain(context.Background(), "https://example.com", ""); !exp.Degraded {
		t.Fatal("nil reasoner should return the degraded default")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                          "{\"a\":1}",
		"```json\n{\"a\":1}\n```":            "{\"a\":1}",
		"Here is the result: {\"a\":1} done": "{\"a\":1}",
	}
	for in, want := range cases {
		if got := extractJSON(in); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
