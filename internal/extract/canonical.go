package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var itemURLPattern = regexp.MustCompile(`(?i)https?://[a-z0-9.-]*aliexpress\.com/item/\d+\.html`)

// CanonicalProductURL hunts for a direct product-item URL in the
// discovered links and the raw HTML, preferring the www host.
func CanonicalProductURL(html string, links []string) string {
	var candidates []string
	for _, link := range links {
		if itemURLPattern.MatchString(link) {
			candidates = append(candidates, itemURLPattern.FindString(link))
		}
	}
	candidates = append(candidates, itemURLPattern.FindAllString(html, -1)...)
	if len(candidates) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}

	for _, c := range unique {
		if strings.Contains(c, "www.aliexpress.com") {
			return c
		}
	}
	return unique[0]
}

// CanonicalFromHTML reads <link rel=canonical> or og:url out of the
// page markup.
func CanonicalFromHTML(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if v, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return ""
}

// CanonicalFromMetadata checks the provider metadata for a canonical
// hint.
func CanonicalFromMetadata(metadata map[string]any) string {
	for _, key := range []string{"ogUrl", "canonical", "canonical_url"} {
		if v := metaString(metadata, key); v != "" {
			return v
		}
	}
	return ""
}
