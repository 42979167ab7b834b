package extract

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

const defaultRating = 4.5

var (
	ratingPattern  = regexp.MustCompile(`(?i)(\d(?:[.,]\d)?)\s*(?:/\s*5|stars?|estrellas?)`)
	reviewsPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d{3})*)\s*(?:reviews?|reseñas?|opiniones?|valoraciones?)`)
	ordersPattern  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d{3})*)\s*(?:ventas?|pedidos?|orders?)`)
)

// PlaceholderPolicy names the product decision of faking plausible
// review/order counts when the page exposes none. Disabled, missing
// counts stay zero. Rand may be injected for deterministic tests; nil
// falls back to the global source.
type PlaceholderPolicy struct {
	Enabled bool
	Rand    *rand.Rand
}

func (p PlaceholderPolicy) placeholderCount() int {
	if !p.Enabled {
		return 0
	}
	if p.Rand != nil {
		return p.Rand.Intn(500) + 100
	}
	return rand.Intn(500) + 100
}

type Stats struct {
	Rating      float64
	ReviewCount int
	OrdersCount int
}

// ExtractStats pulls rating, review count and order count out of the
// markdown rendering. Rating clamps to [1,5] and defaults to 4.5.
func ExtractStats(markdown string, policy PlaceholderPolicy) Stats {
	stats := Stats{Rating: defaultRating}

	if m := ratingPattern.FindStringSubmatch(markdown); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			switch {
			case v > 5:
				stats.Rating = 5
			case v < 1:
				stats.Rating = defaultRating
			default:
				stats.Rating = v
			}
		}
	}

	stats.ReviewCount = groupedCount(markdown, reviewsPattern, policy)
	stats.OrdersCount = groupedCount(markdown, ordersPattern, policy)

	return stats
}

func groupedCount(markdown string, pattern *regexp.Regexp, policy PlaceholderPolicy) int {
	if m := pattern.FindStringSubmatch(markdown); m != nil {
		digits := strings.NewReplacer(".", "", ",", "").Replace(m[1])
		if v, err := strconv.Atoi(digits); err == nil {
			return v
		}
	}
	return policy.placeholderCount()
}
