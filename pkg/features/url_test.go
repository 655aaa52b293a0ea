package features

import (
	"math"
	"strings"
	"testing"
)

func TestURLFeaturesLength(t *testing.T) {
	cases := []string{
		"",
		"https://example.com",
		"not a url at all ::::",
		"http://a-b.c-d.xyz/path/to?q=1#frag",
	}
	for _, c := range cases {
		v := URLFeatures(c)
		if len(v) != URLFeatureCount {
			t.Fatalf("URLFeatures(%q) length = %d, want %d", c, len(v), URLFeatureCount)
		}
	}
}

func TestURLFeaturesEmpty(t *testing.T) {
	v := URLFeatures("")
	for i, f := range v {
		if f != 0 {
			t.Fatalf("slot %d = %f, want 0 for empty URL", i, f)
		}
	}
}

func TestURLFeaturesBasicCounts(t *testing.T) {
	v := URLFeatures("https://login.example.com/account?user=a&token=b")
	if v[urlSlotLength] != 48 {
		t.Errorf("length slot = %f, want 48", v[urlSlotLength])
	}
	if v[urlSlotDots] != 2 {
		t.Errorf("dot count = %f, want 2", v[urlSlotDots])
	}
	if v[urlSlotHTTPS] != 1 {
		t.Errorf("https flag = %f, want 1", v[urlSlotHTTPS])
	}
	if v[urlSlotSuspTLD] != 0 {
		t.Errorf("suspicious TLD flag = %f, want 0 for .com", v[urlSlotSuspTLD])
	}
}

func TestSuspiciousTLDFailsClosed(t *testing.T) {
	// Known suspicious TLD
	if v := URLFeatures("http://x.xyz"); v[urlSlotSuspTLD] != 1 {
		t.Errorf("x.xyz suspicious flag = %f, want 1", v[urlSlotSuspTLD])
	}
	// Unparseable URL also flags suspicious (fail closed)
	if v := URLFeatures("http://%zz%invalid"); v[urlSlotSuspTLD] != 1 {
		t.Errorf("unparseable URL suspicious flag = %f, want 1", v[urlSlotSuspTLD])
	}
	// Relative reference with no host fails closed too
	if v := URLFeatures("just-some-text"); v[urlSlotSuspTLD] != 1 {
		t.Errorf("hostless input suspicious flag = %f, want 1", v[urlSlotSuspTLD])
	}
}

func TestEntropy(t *testing.T) {
	if e := Entropy(""); e != 0 {
		t.Errorf("Entropy(\"\") = %f, want 0", e)
	}
	if e := Entropy("aaaaaaa"); e != 0 {
		t.Errorf("Entropy of repeated char = %f, want 0", e)
	}
	// n equally frequent distinct characters -> log2(n)
	for _, n := range []int{2, 4, 8, 16} {
		s := "abcdefghijklmnop"[:n]
		want := math.Log2(float64(n))
		if e := Entropy(s); math.Abs(e-want) > 1e-9 {
			t.Errorf("Entropy(%q) = %f, want %f", s, e, want)
		}
	}
	// Repetition should not change entropy of the distribution
	if a, b := Entropy("abab"), Entropy(strings.Repeat("ab", 100)); math.Abs(a-b) > 1e-9 {
		t.Errorf("entropy should depend on distribution only: %f vs %f", a, b)
	}
}

func TestTLDOf(t *testing.T) {
	cases := map[string]string{
		"example.com":     "com",
		"a.b.example.xyz": "xyz",
		"localhost":       "",
		"192.168.0.1":     "",
		"example.com.":    "com",
	}
	for host, want := range cases {
		if got := tldOf(host); got != want {
			t.Errorf("tldOf(%q) = %q, want %q", host, got, want)
		}
	}
}
