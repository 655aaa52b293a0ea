// Package features provides deterministic feature extraction from raw
// analysis inputs (URLs, behavioral telemetry, screenshots).
//
// All extractors are pure: the same input always produces the same output,
// no I/O happens, and malformed input yields a zero-valued vector of the
// declared fixed length rather than an error. Slot order within a vector is
// part of the contract consumed by the scoring backends and is never
// renumbered.
package features

import (
	"math"
	"net/url"
	"strings"
	"unicode"
)

// URLFeatureCount is the fixed length of the URL feature vector.
const URLFeatureCount = 30

// URL feature slots. Scoring backends are trained against these positions.
const (
	urlSlotLength     = 0  // total URL length
	urlSlotDots       = 1  // '.' count
	urlSlotSlashes    = 2  // '/' count
	urlSlotDigits     = 16 // digit count
	urlSlotLetters    = 17 // letter count
	urlSlotHostLen    = 18
	urlSlotPathLen    = 19
	urlSlotQueryLen   = 20
	urlSlotFragLen    = 21
	urlSlotHTTPS      = 22
	urlSlotHostDashes = 23
	urlSlotHostDots   = 24
	urlSlotDomainLen  = 25
	urlSlotPathDepth  = 26
	urlSlotPathDots   = 27
	urlSlotSuspTLD    = 28
	urlSlotEntropy    = 29
)

// countedChars maps slots 1..15 to the character counted in that slot.
var countedChars = []struct {
	slot int
	ch   byte
}{
	{1, '.'}, {2, '/'}, {3, '?'}, {4, '='}, {5, '-'}, {6, '_'},
	{7, '@'}, {8, '&'}, {9, '!'}, {10, ' '}, {11, '+'}, {12, '*'},
	{13, '#'}, {14, '$'}, {15, '%'},
}

// suspiciousTLDs is the fixed set of top-level domains that mark a URL
// suspicious on their own.
var suspiciousTLDs = map[string]bool{
	"xyz":   true,
	"top":   true,
	"work":  true,
	"party": true,
	"gq":    true,
	"ml":    true,
}

// URLFeatures extracts the 30-slot lexical/structural feature vector for a
// URL. An empty URL yields the all-zero vector. The suspicious-TLD slot is
// the single fail-closed feature: a URL that cannot be parsed is marked
// suspicious rather than neutral.
func URLFeatures(raw string) []float64 {
	v := make([]float64, URLFeatureCount)
	if raw == "" {
		return v
	}

	v[urlSlotLength] = float64(len(raw))
	for _, c := range countedChars {
		v[c.slot] = float64(strings.Count(raw, string(c.ch)))
	}

	var digits, letters int
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	v[urlSlotDigits] = float64(digits)
	v[urlSlotLetters] = float64(letters)

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host := u.Hostname()
		v[urlSlotHostLen] = float64(len(u.Host))
		v[urlSlotPathLen] = float64(len(u.Path))
		v[urlSlotQueryLen] = float64(len(u.RawQuery))
		v[urlSlotFragLen] = float64(len(u.Fragment))
		if u.Scheme == "https" {
			v[urlSlotHTTPS] = 1
		}
		v[urlSlotHostDashes] = float64(strings.Count(host, "-"))
		v[urlSlotHostDots] = float64(strings.Count(host, "."))
		v[urlSlotDomainLen] = float64(len(host))
		v[urlSlotPathDepth] = float64(strings.Count(u.Path, "/"))
		v[urlSlotPathDots] = float64(strings.Count(u.Path, "."))
		if suspiciousTLDs[tldOf(host)] {
			v[urlSlotSuspTLD] = 1
		}
	} else {
		// Fail closed: an unparseable URL is itself a risk signal.
		v[urlSlotSuspTLD] = 1
	}

	v[urlSlotEntropy] = Entropy(raw)
	return v
}

// tldOf returns the last dot-separated label of a hostname, lowercased.
// IP literals and single-label hosts have no TLD.
func tldOf(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	i := strings.LastIndexByte(host, '.')
	if i < 0 || i == len(host)-1 {
		return ""
	}
	tld := host[i+1:]
	for _, r := range tld {
		if unicode.IsDigit(r) {
			return "" // trailing numeric label = IPv4 literal
		}
	}
	return tld
}

// Entropy computes the Shannon entropy of s in bits over its byte
// distribution. The empty string has entropy 0.
func Entropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	n := float64(len(s))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
