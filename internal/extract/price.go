package extract

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Prices above this are treated as mis-parses (order counts, item ids).
const maxPlausiblePrice = 10000

var eurPatterns = []*regexp.Regexp{
	regexp.MustCompile(`€\s*(\d+(?:[.,]\d{1,2})?)`),
	regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)\s*€`),
	regexp.MustCompile(`(?i)EUR\s*(\d+(?:[.,]\d{1,2})?)`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d{1,2})?)\s*EUR`),
}

var usdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)US\s*\$\s*(\d+(?:[.,]\d{1,2})?)`),
	regexp.MustCompile(`\$\s*(\d+(?:[.,]\d{1,2})?)`),
}

// PriceInfo is the result of the price scan. Found distinguishes a real
// extraction from the zero default the caller formats when nothing
// matched.
type PriceInfo struct {
	Found         bool
	Price         string
	OriginalPrice string
	PriceRange    string
}

// Prices scans markdown plus the metadata description/title for
// currency-tagged numeric tokens. Vendor pages list per-variant price
// ranges; the minimum is the "from" price a buyer actually sees, so the
// minimum wins. A spread beyond 1.2x produces a range, beyond 1.5x an
// original (pre-discount) price.
func Prices(markdown string, metadata map[string]any) PriceInfo {
	content := markdown + " " + metaString(metadata, "description") + " " + metaString(metadata, "title")

	values := collectPrices(content, eurPatterns)
	if len(values) == 0 {
		values = collectPrices(content, usdPatterns)
	}
	if len(values) == 0 {
		return PriceInfo{}
	}

	sort.Float64s(values)
	lowest := values[0]
	highest := values[len(values)-1]

	info := PriceInfo{
		Found: true,
		Price: fmt.Sprintf("%.2f", lowest),
	}
	if len(values) > 1 && highest > lowest*1.2 {
		info.PriceRange = fmt.Sprintf("Desde €%.2f", lowest)
		if highest > lowest*1.5 {
			info.OriginalPrice = fmt.Sprintf("€%.2f", highest)
		}
	}

	return info
}

func collectPrices(content string, patterns []*regexp.Regexp) []float64 {
	var values []float64
	for _, pattern := range patterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
			if err != nil {
				continue
			}
			if v > 0 && v < maxPlausiblePrice {
				values = append(values, v)
			}
		}
	}
	return values
}

// CalculateDiscount renders the percentage saved between two
// currency-prefixed price strings, e.g. ("€50.00", "€100.00") -> "-50%".
// Anything outside the open interval (0,100) yields "".
func CalculateDiscount(currentPrice, originalPrice string) string {
	current := parsePriceString(currentPrice)
	original := parsePriceString(originalPrice)

	if original > current && current > 0 {
		discount := int(math.Round((original - current) / original * 100))
		if discount > 0 && discount < 100 {
			return fmt.Sprintf("-%d%%", discount)
		}
	}
	return ""
}

func parsePriceString(s string) float64 {
	s = strings.NewReplacer("€", "", "$", "", ",", ".").Replace(s)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
