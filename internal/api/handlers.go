package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lurebay/product-importer/internal/events"
	"github.com/lurebay/product-importer/internal/models"
)

// Importer runs the import pipeline for one URL.
type Importer interface {
	Import(ctx context.Context, url string) (*models.ImportedProduct, error)
}

// Rehoster copies source images into owned storage.
type Rehoster interface {
	Rehost(ctx context.Context, urls []string) []string
}

// Catalog persists a finished import.
type Catalog interface {
	SaveImportedProduct(ctx context.Context, p *models.ImportedProduct) (string, error)
}

// EventPublisher announces a finished import.
type EventPublisher interface {
	PublishProductImported(ctx context.Context, payload events.ProductImportedPayload) error
}

type Handlers struct {
	importers map[string]Importer
	rehoster  Rehoster
	catalog   Catalog
	publisher EventPublisher
	logger    *slog.Logger
}

// NewHandlers wires the import endpoint. rehoster, catalog and
// publisher may each be nil; the corresponding step is skipped.
func NewHandlers(aliexpressImporter Importer, rehoster Rehoster, catalog Catalog, publisher EventPublisher, logger *slog.Logger) *Handlers {
	return &Handlers{
		importers: map[string]Importer{
			"aliexpress.": aliexpressImporter,
		},
		rehoster:  rehoster,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger.With("component", "api"),
	}
}

type ImportRequest struct {
	URL string `json:"url"`
}

// importerFor picks the provider importer matching the URL host, or
// nil when no provider is registered for it.
func (h *Handlers) importerFor(url string) Importer {
	normalized := strings.ToLower(url)
	for marker, imp := range h.importers {
		if strings.Contains(normalized, marker) {
			return imp
		}
	}
	return nil
}

// ImportProduct handles POST /api/v1/products/import. Business
// failures (nothing extractable) come back as success=false with HTTP
// 200; only malformed requests get 4xx.
func (h *Handlers) ImportProduct(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	importer := h.importerFor(req.URL)
	if importer == nil {
		h.respondError(w, http.StatusBadRequest, "unsupported provider")
		return
	}

	product, err := importer.Import(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("import failed", "url", req.URL, "error", err)
		h.respondJSON(w, http.StatusOK, models.ImportResult{
			Success: false,
			Error:   "could not fetch product data",
		})
		return
	}

	if !product.Complete() {
		h.respondJSON(w, http.StatusOK, models.ImportResult{
			Success: false,
			Error:   "could not extract product data",
		})
		return
	}

	if h.rehoster != nil && len(product.Images) > 0 {
		// Zero rehosted images falls back to the vendor-hosted URLs;
		// a product with images beats a product without.
		if rehosted := h.rehoster.Rehost(r.Context(), product.Images); len(rehosted) > 0 {
			product.Images = rehosted
		}
	}

	productID := ""
	if h.catalog != nil {
		id, err := h.catalog.SaveImportedProduct(r.Context(), product)
		if err != nil {
			// The admin still gets the record to edit and retry.
			h.logger.Error("failed to persist product", "slug", product.Slug, "error", err)
		} else {
			productID = id
		}
	}

	if h.publisher != nil && productID != "" {
		if err := h.publisher.PublishProductImported(r.Context(), events.ProductImportedPayload{
			ProductID:  productID,
			Title:      product.Title,
			Slug:       product.Slug,
			Price:      product.Price,
			ImageCount: len(product.Images),
			SourceURL:  product.AliexpressURL,
		}); err != nil {
			h.logger.Error("failed to publish import event", "product_id", productID, "error", err)
		}
	}

	h.respondJSON(w, http.StatusOK, models.ImportResult{
		Success: true,
		Data:    product,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ImportResult{Success: false, Error: message})
}

// BearerAuth enforces a static bearer token when one is configured.
// Real authentication and the can-create-products check live upstream;
// this is only a boundary guard for direct exposure.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				auth := r.Header.Get("Authorization")
				if auth != "Bearer "+token {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(models.ImportResult{Success: false, Error: "unauthorized"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
