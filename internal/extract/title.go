// Package extract holds the field extractors of the import pipeline.
// Every function here is pure over the textual surfaces of a scrape
// (markdown, raw HTML, discovered links, provider metadata): no network,
// no shared state, and a miss always yields the documented zero value
// instead of an error. The target markup is undocumented and shifts
// between requests, so everything is best-effort pattern matching.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxTitleLength = 120

var (
	vendorSuffixPattern = regexp.MustCompile(`(?i)\s*[-|–]\s*(AliExpress|Aliexpress).*$`)
	offPrefixPattern    = regexp.MustCompile(`(?i)^\d+(\.\d+)?%?\s*OFF\s*`)
	buyPrefixPattern    = regexp.MustCompile(`(?i)^Comprar\s+`)
	headingPattern      = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// Title finds the product name. Priority: og:title, twitter:title,
// <title>, first markdown heading, provider metadata title. Vendor
// suffixes and promotional prefixes are stripped in every case.
func Title(markdown, html string, metadata map[string]any) string {
	title := ""

	if html != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
				title = strings.TrimSpace(v)
			}
			if title == "" {
				if v, ok := doc.Find(`meta[name="twitter:title"]`).Attr("content"); ok {
					title = strings.TrimSpace(v)
				}
			}
			if title == "" {
				title = strings.TrimSpace(doc.Find("title").First().Text())
			}
		}
	}

	title = cleanTitle(title)

	if title == "" && markdown != "" {
		if m := headingPattern.FindStringSubmatch(markdown); m != nil {
			title = cleanTitle(m[1])
		}
	}

	if title == "" {
		title = cleanTitle(metaString(metadata, "title"))
	}

	if runes := []rune(title); len(runes) > maxTitleLength {
		title = strings.TrimSpace(string(runes[:maxTitleLength]))
	}

	return title
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = vendorSuffixPattern.ReplaceAllString(title, "")
	title = offPrefixPattern.ReplaceAllString(title, "")
	title = buyPrefixPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// metaString reads a string value out of provider metadata, which is an
// untyped JSON object.
func metaString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}
