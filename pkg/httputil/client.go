// Package httputil provides shared HTTP plumbing for the gateway's
// outbound calls: pooled transports, tiered timeout clients, and bounded
// response reads. External services (embedding backends, LLM providers)
// are untrusted; every read here is size-limited.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize bounds response body reads from external services.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// sharedTransport pools connections across all outbound calls. Reusing one
// transport avoids per-request TCP and TLS handshakes.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier groups outbound operations by expected latency.
type TimeoutTier int

const (
	// TierFast covers health checks and cache lookups (5s).
	TierFast TimeoutTier = iota
	// TierMedium covers standard API calls such as embeddings (30s).
	TierMedium
	// TierSlow covers LLM reasoning calls (60s).
	TierSlow
)

var timeoutDurations = map[TimeoutTier]time.Duration{
	TierFast:   5 * time.Second,
	TierMedium: 30 * time.Second,
	TierSlow:   60 * time.Second,
}

var (
	tierClients map[TimeoutTier]*http.Client
	clientOnce  sync.Once
)

// Client returns the shared client for a timeout tier. All tiers share one
// connection pool; never construct per-request clients.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(func() {
		tierClients = make(map[TimeoutTier]*http.Client, len(timeoutDurations))
		for t, d := range timeoutDurations {
			tierClients[t] = &http.Client{Timeout: d, Transport: sharedTransport}
		}
	})
	if c, ok := tierClients[tier]; ok {
		return c
	}
	return tierClients[TierMedium]
}

// FastClient returns the 5s-timeout client.
func FastClient() *http.Client { return Client(TierFast) }

// MediumClient returns the 30s-timeout client.
func MediumClient() *http.Client { return Client(TierMedium) }

// SlowClient returns the 60s-timeout client.
func SlowClient() *http.Client { return Client(TierSlow) }

// ReadResponseBody reads a response body with a size limit, defaulting to
// MaxResponseSize when maxSize is not positive.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadErrorBody reads a response body for error reporting. Error payloads
// get a tighter 1MB limit.
func ReadErrorBody(r io.Reader) ([]byte, error) {
	const maxErrorSize = 1 * 1024 * 1024
	return io.ReadAll(io.LimitReader(r, maxErrorSize))
}

// DrainAndClose drains and closes a response body so the underlying
// connection returns to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
