package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lurebay/product-importer/internal/models"
)

// The skuProperties array sits in an inline script blob, bounded on the
// right by the skuPrice key. This is the only extractor that parses
// real JSON once the fragment is located.
var skuPropertiesPattern = regexp.MustCompile(`(?is)"skuProperties"\s*:\s*(\[.*?\])\s*,\s*"skuPrice"`)

type skuProperty struct {
	SkuPropertyName   string     `json:"skuPropertyName"`
	Name              string     `json:"name"`
	Values            []skuValue `json:"values"`
	SkuPropertyValues []skuValue `json:"skuPropertyValues"`
}

type skuValue struct {
	PropertyValueDisplayName string `json:"propertyValueDisplayName"`
	Name                     string `json:"name"`
	Value                    string `json:"value"`
	SkuPropertyImagePath     string `json:"skuPropertyImagePath"`
	ImageURL                 string `json:"imageUrl"`
	SkuPropertyImage         string `json:"skuPropertyImage"`
}

// Variants locates the embedded skuProperties JSON and parses it into
// option groups. Malformed JSON yields an empty slice, never an error.
func Variants(html string) []models.Variant {
	m := skuPropertiesPattern.FindStringSubmatch(html)
	if m == nil {
		return []models.Variant{}
	}

	var props []skuProperty
	if err := json.Unmarshal([]byte(m[1]), &props); err != nil {
		return []models.Variant{}
	}

	variants := []models.Variant{}
	for _, prop := range props {
		group := strings.TrimSpace(prop.SkuPropertyName)
		if group == "" {
			group = strings.TrimSpace(prop.Name)
		}
		values := prop.Values
		if len(values) == 0 {
			values = prop.SkuPropertyValues
		}
		if group == "" || len(values) == 0 {
			continue
		}

		options := make([]models.VariantOption, 0, len(values))
		for _, v := range values {
			label := strings.TrimSpace(v.PropertyValueDisplayName)
			if label == "" {
				label = strings.TrimSpace(v.Name)
			}
			if label == "" {
				label = strings.TrimSpace(v.Value)
			}
			if label == "" {
				continue
			}
			imageURL := v.SkuPropertyImagePath
			if imageURL == "" {
				imageURL = v.ImageURL
			}
			if imageURL == "" {
				imageURL = v.SkuPropertyImage
			}
			options = append(options, models.VariantOption{Label: label, ImageURL: imageURL})
		}
		if len(options) > 0 {
			variants = append(variants, models.Variant{Group: group, Options: options})
		}
	}

	return variants
}
