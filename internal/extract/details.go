package extract

import (
	"regexp"
	"strings"
)

const maxDescriptionLength = 800

var (
	shippingPattern = regexp.MustCompile(`(?i)(?:env[ií]o|shipping)[^\n]*?(\d+(?:[.,]\d{1,2})?)\s*(€|EUR|\$|US)`)
	deliveryPattern = regexp.MustCompile(`(?i)(?:entrega|delivery)[^\n]*?(\d+\s*(?:-|a)?\s*\d*\s*d[ií]as?)`)
	skuJSONPattern  = regexp.MustCompile(`(?i)"sku"\s*:\s*"([^"]+)"`)
	skuTextPattern  = regexp.MustCompile(`(?i)SKU[:\s]+([A-Z0-9-]+)`)
)

// Description prefers the provider's metadata description; otherwise
// the first markdown paragraph of substance.
func Description(markdown string, metadata map[string]any) string {
	if desc := metaString(metadata, "description"); desc != "" {
		return truncate(desc, maxDescriptionLength)
	}
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 40 && !strings.HasPrefix(line, "#") {
			return truncate(line, maxDescriptionLength)
		}
	}
	return ""
}

type ShippingInfo struct {
	Cost         string
	DeliveryTime string
}

// Shipping scans for a shipping cost and a delivery window near the
// usual multilingual keywords.
func Shipping(markdown string) ShippingInfo {
	var info ShippingInfo

	if m := shippingPattern.FindStringSubmatch(markdown); m != nil {
		symbol := m[2]
		if symbol == "US" {
			symbol = "$"
		}
		info.Cost = symbol + m[1]
	}

	if m := deliveryPattern.FindStringSubmatch(markdown); m != nil {
		info.DeliveryTime = strings.TrimSpace(m[1])
	}

	return info
}

// SKU looks for a JSON sku fragment in the raw HTML, then a plain-text
// "SKU: XXX" label.
func SKU(html string) string {
	if m := skuJSONPattern.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	if m := skuTextPattern.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
