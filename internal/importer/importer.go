// Package importer sequences the import pipeline: canonicalize the
// input URL, fetch rendered pages through the scraping provider, and
// run the field extractors, retrying against alternate URL forms until
// a result carries both a title and at least one image.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lurebay/product-importer/internal/aliexpress"
	"github.com/lurebay/product-importer/internal/extract"
	"github.com/lurebay/product-importer/internal/firecrawl"
	"github.com/lurebay/product-importer/internal/metrics"
	"github.com/lurebay/product-importer/internal/models"
)

// Fetcher is the scraping provider seam; *firecrawl.Client satisfies
// it, tests inject fakes.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (*firecrawl.ScrapeResponse, error)
}

// Resolver is the URL canonicalizer seam.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) aliexpress.ResolvedURLSet
}

const (
	stageInitial   = "initial"
	stageCanonical = "canonical"
	stageResolved  = "resolved"
	stageMobile    = "mobile"
)

type Config struct {
	// MaxChain bounds provider calls per import; the fallback chain is
	// deterministic, not a retry loop.
	MaxChain    int
	Placeholder extract.PlaceholderPolicy
}

type Service struct {
	resolver    Resolver
	fetcher     Fetcher
	maxChain    int
	placeholder extract.PlaceholderPolicy
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewService(resolver Resolver, fetcher Fetcher, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	maxChain := cfg.MaxChain
	if maxChain < 1 {
		maxChain = 4
	}
	return &Service{
		resolver:    resolver,
		fetcher:     fetcher,
		maxChain:    maxChain,
		placeholder: cfg.Placeholder,
		metrics:     m,
		logger:      logger.With("component", "importer"),
	}
}

// Import runs the full pipeline for one pasted URL. It returns a
// possibly-partial product record; an error only means no stage
// produced any data at all.
func (s *Service) Import(ctx context.Context, rawURL string) (*models.ImportedProduct, error) {
	urls := s.resolver.Resolve(ctx, rawURL)
	s.logger.Info("resolved input url",
		"input", rawURL,
		"scrape_url", urls.ScrapeURL,
		"mobile_url", urls.MobileURL,
		"resolved_url", urls.ResolvedURL,
	)

	budget := s.maxChain

	fetch := func(stage, target string) *firecrawl.ScrapeResponse {
		if budget == 0 {
			s.logger.Warn("fetch budget exhausted", "stage", stage, "url", target)
			return nil
		}
		budget--

		start := time.Now()
		resp, err := s.fetcher.Scrape(ctx, target)
		if err != nil {
			s.metrics.ObserveScrape(stage, "transport_error", time.Since(start))
			s.logger.Warn("scrape transport failure", "stage", stage, "url", target, "error", err)
			return nil
		}
		if !resp.OK {
			s.metrics.ObserveScrape(stage, "provider_error", time.Since(start))
			s.logger.Warn("scrape provider failure", "stage", stage, "url", target, "error", resp.Error)
			return nil
		}
		s.metrics.ObserveScrape(stage, "ok", time.Since(start))
		return resp
	}

	var product *models.ImportedProduct

	first := fetch(stageInitial, urls.ScrapeURL)
	if first != nil {
		product = s.parse(first, urls.OriginalInputURL, urls.ScrapeURL)
	}

	// A partial first result often still carries a pointer to the real
	// product page (canonical link, og:url, an item link in the body).
	if !product.Complete() && first != nil {
		if canonical := discoverCanonical(first); canonical != "" && canonical != urls.ScrapeURL {
			s.logger.Info("retrying against canonical url", "url", canonical)
			if resp := fetch(stageCanonical, canonical); resp != nil {
				product = s.parse(resp, urls.OriginalInputURL, canonical)
			}
		}
	}

	if !product.Complete() && urls.ResolvedURL != "" && urls.ResolvedURL != urls.ScrapeURL {
		s.logger.Info("retrying against redirect-resolved url", "url", urls.ResolvedURL)
		if resp := fetch(stageResolved, urls.ResolvedURL); resp != nil {
			if canonical := discoverCanonical(resp); canonical != "" && canonical != urls.ResolvedURL {
				if second := fetch(stageCanonical, canonical); second != nil {
					product = s.parse(second, urls.OriginalInputURL, canonical)
				}
			} else {
				product = s.parse(resp, urls.OriginalInputURL, urls.ResolvedURL)
			}
		}
	}

	if !product.Complete() && urls.MobileURL != "" {
		s.logger.Info("retrying against mobile url", "url", urls.MobileURL)
		if resp := fetch(stageMobile, urls.MobileURL); resp != nil {
			product = s.parse(resp, urls.OriginalInputURL, urls.MobileURL)
		}
	}

	if product == nil {
		s.metrics.ImportOutcome("failed")
		return nil, fmt.Errorf("no fallback stage produced data for %s", rawURL)
	}

	if product.Complete() {
		s.metrics.ImportOutcome("complete")
	} else {
		s.metrics.ImportOutcome("partial")
	}

	return product, nil
}

// parse assembles the normalized record from one scrape response. All
// extractors are independent; a miss in one never blocks another.
func (s *Service) parse(resp *firecrawl.ScrapeResponse, affiliateURL, canonicalURL string) *models.ImportedProduct {
	title := extract.Title(resp.Markdown, resp.HTML, resp.Metadata)
	prices := extract.Prices(resp.Markdown, resp.Metadata)
	images := extract.Images(resp.HTML, resp.Markdown, resp.Links, resp.Metadata)
	stats := extract.ExtractStats(resp.Markdown, s.placeholder)
	shipping := extract.Shipping(resp.Markdown)

	slug := extract.Slug(title)
	if slug == "" {
		slug = fmt.Sprintf("producto-%d", time.Now().Unix())
	}

	// The zero price is a known weak fallback; PriceFound lets the
	// admin UI demand manual entry instead of trusting it.
	price := prices.Price
	if price == "" {
		price = "0.00"
	}
	formattedPrice := "€" + price

	discount := ""
	if prices.Found && prices.OriginalPrice != "" {
		discount = extract.CalculateDiscount(formattedPrice, prices.OriginalPrice)
	}

	return &models.ImportedProduct{
		Title:         title,
		Description:   extract.Description(resp.Markdown, resp.Metadata),
		Price:         formattedPrice,
		PriceFound:    prices.Found,
		OriginalPrice: prices.OriginalPrice,
		PriceRange:    prices.PriceRange,
		Discount:      discount,
		Images:        images,
		Rating:        stats.Rating,
		ReviewCount:   stats.ReviewCount,
		OrdersCount:   stats.OrdersCount,
		ShippingCost:  shipping.Cost,
		DeliveryTime:  shipping.DeliveryTime,
		SKU:           extract.SKU(resp.HTML),
		Variants:      extract.Variants(resp.HTML),
		Slug:          slug,
		AffiliateLink: affiliateURL,
		AliexpressURL: canonicalURL,
	}
}

func discoverCanonical(resp *firecrawl.ScrapeResponse) string {
	if u := extract.CanonicalProductURL(resp.HTML, resp.Links); u != "" {
		return u
	}
	if u := extract.CanonicalFromHTML(resp.HTML); u != "" {
		return u
	}
	return extract.CanonicalFromMetadata(resp.Metadata)
}
