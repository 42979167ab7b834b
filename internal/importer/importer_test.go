package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lurebay/product-importer/internal/aliexpress"
	"github.com/lurebay/product-importer/internal/firecrawl"
)

type fakeResolver struct {
	set aliexpress.ResolvedURLSet
}

func (f *fakeResolver) Resolve(ctx context.Context, rawURL string) aliexpress.ResolvedURLSet {
	return f.set
}

type fakeFetcher struct {
	responses map[string]*firecrawl.ScrapeResponse
	errs      map[string]error
	calls     []string
}

func (f *fakeFetcher) Scrape(ctx context.Context, url string) (*firecrawl.ScrapeResponse, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if resp, ok := f.responses[url]; ok {
		return resp, nil
	}
	return &firecrawl.ScrapeResponse{OK: false, Error: "not found"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completePage(title string) *firecrawl.ScrapeResponse {
	return &firecrawl.ScrapeResponse{
		OK:       true,
		Markdown: "# " + title + "\nDescripción del producto con suficiente detalle para importarlo.\nPrecio: €12,99",
		HTML:     `<img src="https://ae01.alicdn.com/kf/` + extractableSlug(title) + `-product-photo.jpg">`,
		Links:    []string{},
		Metadata: map[string]any{},
	}
}

func extractableSlug(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		if r == ' ' {
			out = append(out, '-')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

func newTestService(resolver Resolver, fetcher Fetcher, maxChain int) *Service {
	return NewService(resolver, fetcher, Config{MaxChain: maxChain}, nil, testLogger())
}

func TestImportFirstStageComplete(t *testing.T) {
	urls := aliexpress.ResolvedURLSet{
		OriginalInputURL: "https://s.click.aliexpress.com/e/_Dxyz",
		ScrapeURL:        "https://www.aliexpress.com/item/1005001234567890.html",
		MobileURL:        "https://m.aliexpress.com/item/1005001234567890.html",
	}
	fetcher := &fakeFetcher{responses: map[string]*firecrawl.ScrapeResponse{
		urls.ScrapeURL: completePage("Linterna Tactica"),
	}}

	svc := newTestService(&fakeResolver{set: urls}, fetcher, 4)
	product, err := svc.Import(context.Background(), urls.OriginalInputURL)
	require.NoError(t, err)

	assert.True(t, product.Complete())
	assert.Equal(t, "Linterna Tactica", product.Title)
	assert.Equal(t, "€12.99", product.Price)
	assert.True(t, product.PriceFound)
	assert.Equal(t, "linterna-tactica", product.Slug)
	assert.Equal(t, urls.OriginalInputURL, product.AffiliateLink)
	assert.Equal(t, urls.ScrapeURL, product.AliexpressURL)
	assert.Equal(t, []string{urls.ScrapeURL}, fetcher.calls, "no fallback needed")
}

func TestImportFollowsDiscoveredCanonical(t *testing.T) {
	urls := aliexpress.ResolvedURLSet{
		OriginalInputURL: "https://s.click.aliexpress.com/e/_Dxyz",
		ScrapeURL:        "https://s.click.aliexpress.com/e/_Dxyz",
	}
	canonical := "https://www.aliexpress.com/item/1005009876543210.html"

	// The gateway page is nearly empty but links to the real item page.
	fetcher := &fakeFetcher{responses: map[string]*firecrawl.ScrapeResponse{
		urls.ScrapeURL: {
			OK:    true,
			Links: []string{canonical},
		},
		canonical: completePage("Reloj Inteligente"),
	}}

	svc := newTestService(&fakeResolver{set: urls}, fetcher, 4)
	product, err := svc.Import(context.Background(), urls.OriginalInputURL)
	require.NoError(t, err)

	assert.True(t, product.Complete())
	assert.Equal(t, "Reloj Inteligente", product.Title)
	assert.Equal(t, canonical, product.AliexpressURL)
	assert.Equal(t, []string{urls.ScrapeURL, canonical}, fetcher.calls)
}

func TestImportFallsBackToResolvedThenMobile(t *testing.T) {
	urls := aliexpress.ResolvedURLSet{
		OriginalInputURL: "https://a.aliexpress.com/_mAbCd",
		ScrapeURL:        "https://a.aliexpress.com/_mAbCd",
		ResolvedURL:      "https://best.aliexpress.com/campaign",
		MobileURL:        "https://m.aliexpress.com/item/1005001111111111.html",
	}
	fetcher := &fakeFetcher{responses: map[string]*firecrawl.ScrapeResponse{
		urls.MobileURL: completePage("Funda Protectora"),
	}}

	svc := newTestService(&fakeResolver{set: urls}, fetcher, 4)
	product, err := svc.Import(context.Background(), urls.OriginalInputURL)
	require.NoError(t, err)

	assert.True(t, product.Complete())
	assert.Equal(t, "Funda Protectora", product.Title)
	assert.Equal(t, urls.MobileURL, product.AliexpressURL)
	assert.Equal(t, []string{urls.ScrapeURL, urls.ResolvedURL, urls.MobileURL}, fetcher.calls)
}

func TestImportBudgetCapsProviderCalls(t *testing.T) {
	urls := aliexpress.ResolvedURLSet{
		OriginalInputURL: "https://a.aliexpress.com/_mAbCd",
		ScrapeURL:        "https://a.aliexpress.com/_mAbCd",
		ResolvedURL:      "https://best.aliexpress.com/campaign",
		MobileURL:        "https://m.aliexpress.com/item/1005001111111111.html",
	}
	fetcher := &fakeFetcher{}

	svc := newTestService(&fakeResolver{set: urls}, fetcher, 2)
	_, err := svc.Import(context.Background(), urls.OriginalInputURL)
	assert.Error(t, err)
	assert.Len(t, fetcher.calls, 2, "mobile stage must not run once the budget is spent")
}

func TestImportAllStagesFail(t *testing.T) {
	urls := aliexpress.ResolvedURLSet{
		OriginalInputURL: "https://www.aliexpress.com/item/1005002222222222.html",
		ScrapeURL:        "https://www.aliexpress.com/item/1005002222222222.html",
		MobileURL:        "https://m.aliexpress.com/item/1005002222222222.html",
	}
	fetcher := &fakeFetcher{errs: map[string]error{
		urls.ScrapeURL: errors.New("connection reset"),
		urls.MobileURL: errors.New("connection reset"),
	}}

	svc := newTestService(&fakeResolver{set: urls}, fetcher, 4)
	product, err := svc.Import(context.Background(), urls.OriginalInputURL)
	assert.Error(t, err)
	assert.Nil(t, product)
}

func TestImportExtractsFromRenderedPage(t *testing.T) {
	urls := aliexpress.ResolvedURLSet{
		OriginalInputURL: "https://www.aliexpress.com/item/1005004444444444.html",
		ScrapeURL:        "https://www.aliexpress.com/item/1005004444444444.html",
	}
	fetcher := &fakeFetcher{responses: map[string]*firecrawl.ScrapeResponse{
		urls.ScrapeURL: {
			OK: true,
			HTML: `<html><head>
				<meta property="og:title" content="62% OFF Widget - AliExpress">
			</head><body>
				<img src="https://ae01.alicdn.com/kf/widget-photo-front_220x220.jpg">
				<img src="https://ae01.alicdn.com/kf/widget-photo-side_220x220.jpg">
				<img src="https://ae01.alicdn.com/kf/widget-photo-back_220x220.jpg">
				<img src="https://ae01.alicdn.com/kf/seller-avatar_40x40.jpg">
			</body></html>`,
			Markdown: "Precio: €12.50",
		},
	}}

	svc := newTestService(&fakeResolver{set: urls}, fetcher, 4)
	product, err := svc.Import(context.Background(), urls.OriginalInputURL)
	require.NoError(t, err)

	assert.Equal(t, "Widget", product.Title)
	assert.Equal(t, []string{
		"https://ae01.alicdn.com/kf/widget-photo-front.jpg",
		"https://ae01.alicdn.com/kf/widget-photo-side.jpg",
		"https://ae01.alicdn.com/kf/widget-photo-back.jpg",
	}, product.Images)
	assert.Equal(t, "€12.50", product.Price)
}

func TestImportReturnsPartialWithoutError(t *testing.T) {
	urls := aliexpress.ResolvedURLSet{
		OriginalInputURL: "https://www.aliexpress.com/item/1005003333333333.html",
		ScrapeURL:        "https://www.aliexpress.com/item/1005003333333333.html",
		MobileURL:        "https://m.aliexpress.com/item/1005003333333333.html",
	}
	// Title but no images anywhere: partial on every stage.
	fetcher := &fakeFetcher{responses: map[string]*firecrawl.ScrapeResponse{
		urls.ScrapeURL: {OK: true, Markdown: "# Producto Sin Fotos"},
		urls.MobileURL: {OK: true, Markdown: "# Producto Sin Fotos"},
	}}

	svc := newTestService(&fakeResolver{set: urls}, fetcher, 4)
	product, err := svc.Import(context.Background(), urls.OriginalInputURL)
	require.NoError(t, err)

	assert.False(t, product.Complete())
	assert.Equal(t, "Producto Sin Fotos", product.Title)
	assert.Empty(t, product.Images)
	assert.Equal(t, "€0.00", product.Price)
	assert.False(t, product.PriceFound)
}
