// Package sslcheck verifies the TLS posture of a target host. The check is
// a coarse binary signal: either the host presents a certificate that
// chains to a trusted root and matches its name, or it does not.
package sslcheck

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strings"
	"time"
)

// Result describes one TLS handshake attempt.
type Result struct {
	Valid   bool       `json:"valid"`
	Issuer  string     `json:"issuer,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
	Err     string     `json:"error,omitempty"`
}

// Validator checks the TLS certificate of the host behind a URL.
type Validator interface {
	Check(ctx context.Context, rawURL string) Result
}

// TLSValidator performs a real handshake against port 443.
type TLSValidator struct {
	Timeout time.Duration
}

// NewTLSValidator returns a validator with the given handshake timeout.
func NewTLSValidator(timeout time.Duration) *TLSValidator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TLSValidator{Timeout: timeout}
}

// Check dials the URL's host on port 443 and validates the presented
// chain. Plain-HTTP URLs, unreachable hosts, and invalid certificates all
// come back Valid=false with the reason in Err; the caller treats that as
// a risk signal, not a failure.
func (v *TLSValidator) Check(ctx context.Context, rawURL string) Result {
	host, err := hostOf(rawURL)
	if err != nil {
		return Result{Valid: false, Err: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    &tls.Config{ServerName: host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return Result{Valid: false, Err: err.Error()}
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	res := Result{Valid: true}
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		res.Issuer = leaf.Issuer.CommonName
		expires := leaf.NotAfter
		res.Expires = &expires
		if time.Now().After(leaf.NotAfter) {
			res.Valid = false
			res.Err = "certificate expired"
		}
	}
	return res
}

func hostOf(rawURL string) (string, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", &url.Error{Op: "parse", URL: rawURL, Err: net.InvalidAddrError("empty host")}
	}
	return host, nil
}

// StaticValidator returns a fixed result, used when live TLS probing is
// disabled or in tests.
type StaticValidator struct {
	Result Result
}

func (s StaticValidator) Check(ctx context.Context, rawURL string) Result {
	return s.Result
}
