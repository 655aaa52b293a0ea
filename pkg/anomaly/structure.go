package anomaly

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kavach-ai/securenet/pkg/features"
)

// structureSignal is one weighted structural indicator of a phishing page.
type structureSignal struct {
	finding string
	weight  float64
	match   func(doc *goquery.Document) bool
}

var structureSignals = []structureSignal{
	{"password input outside a named form", 0.35, func(doc *goquery.Document) bool {
		hit := false
		doc.Find(`input[type="password"]`).Each(func(_ int, s *goquery.Selection) {
			form := s.Closest("form")
			if form.Length() == 0 {
				hit = true
				return
			}
			if _, ok := form.Attr("action"); !ok {
				hit = true
			}
		})
		return hit
	}},
	{"form posts to a raw IP or foreign host", 0.3, func(doc *goquery.Document) bool {
		hit := false
		doc.Find("form[action]").Each(func(_ int, s *goquery.Selection) {
			action, _ := s.Attr("action")
			if strings.HasPrefix(action, "http://") {
				hit = true
			}
		})
		return hit
	}},
	{"hidden iframe", 0.3, func(doc *goquery.Document) bool {
		hit := false
		doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
			style, _ := s.Attr("style")
			style = strings.ToLower(style)
			if strings.Contains(style, "display:none") || strings.Contains(style, "display: none") ||
				strings.Contains(style, "visibility:hidden") || strings.Contains(style, "visibility: hidden") {
				hit = true
			}
			if w, ok := s.Attr("width"); ok && (w == "0" || w == "1") {
				hit = true
			}
		})
		return hit
	}},
	{"obfuscated inline script", 0.25, func(doc *goquery.Document) bool {
		hit := false
		doc.Find("script").Each(func(_ int, s *goquery.Selection) {
			body := s.Text()
			if strings.Contains(body, "eval(") || strings.Contains(body, "unescape(") ||
				strings.Contains(body, "atob(") || strings.Contains(body, "String.fromCharCode") {
				hit = true
			}
		})
		return hit
	}},
	{"meta refresh redirect", 0.2, func(doc *goquery.Document) bool {
		hit := false
		doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
			if v, _ := s.Attr("http-equiv"); strings.EqualFold(v, "refresh") {
				hit = true
			}
		})
		return hit
	}},
	{"right-click or devtools suppression", 0.15, func(doc *goquery.Document) bool {
		html, err := doc.Html()
		if err != nil {
			return false
		}
		return strings.Contains(html, "oncontextmenu") || strings.Contains(html, "contextmenu")
	}},
}

// detectStructureAnomalies parses the page content and scores its
// structural similarity to phishing pages. Non-HTML or empty content
// yields the neutral default. The net/html parser never fails on
// arbitrary input, so the only error path is an empty document.
func detectStructureAnomalies(content string) SubReport {
	if strings.TrimSpace(content) == "" {
		return SubReport{}
	}
	normalized := features.NormalizeText(content)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(normalized))
	if err != nil {
		return SubReport{}
	}

	var score float64
	var findings []string
	for _, sig := range structureSignals {
		if sig.match(doc) {
			score += sig.weight
			findings = append(findings, sig.finding)
		}
	}
	score = clamp01(score)
	return SubReport{IsAnomaly: score > Threshold, Score: score, Findings: findings}
}
