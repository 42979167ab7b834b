// Package rehost copies extracted product images into owned object
// storage, decoupling the catalog from the vendor CDN's lifecycle.
package rehost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lurebay/product-importer/internal/metrics"
)

// Cap on a single downloaded image.
const maxImageBytes = 20 << 20

// ObjectStorage is the owned-storage seam. Upload returns the public
// URL of the stored object.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type Config struct {
	Concurrency     int
	DownloadTimeout time.Duration
	PathPrefix      string
}

// Rehoster downloads each source URL and re-uploads the bytes under a
// randomized filename. Per-image failures drop that image; one bad
// image never aborts the batch.
type Rehoster struct {
	storage     ObjectStorage
	client      *http.Client
	concurrency int
	prefix      string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(storage ObjectStorage, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Rehoster {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 5
	}
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = "products"
	}
	return &Rehoster{
		storage:     storage,
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		prefix:      prefix,
		metrics:     m,
		logger:      logger.With("component", "rehoster"),
	}
}

// Rehost processes the batch with bounded concurrency and returns the
// public URLs of the images that made it, preserving input order.
// An empty result means the caller should keep the source URLs.
func (r *Rehoster) Rehost(ctx context.Context, urls []string) []string {
	results := make([]string, len(urls))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.concurrency)

	for i, sourceURL := range urls {
		if sourceURL == "" {
			continue
		}
		wg.Add(1)
		go func(i int, sourceURL string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			publicURL, err := r.rehostOne(ctx, sourceURL)
			if err != nil {
				r.metrics.RehostResult("failed")
				r.logger.Warn("image rehost failed", "url", sourceURL, "error", err)
				return
			}
			r.metrics.RehostResult("ok")
			results[i] = publicURL
		}(i, sourceURL)
	}

	wg.Wait()

	rehosted := make([]string, 0, len(urls))
	for _, u := range results {
		if u != "" {
			rehosted = append(rehosted, u)
		}
	}
	return rehosted
}

func (r *Rehoster) rehostOne(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := fmt.Sprintf("%s/%d-%s.%s", r.prefix, time.Now().UnixMilli(), uuid.New().String(), extensionFor(contentType))

	publicURL, err := r.storage.Upload(ctx, key, io.LimitReader(resp.Body, maxImageBytes), contentType)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return publicURL, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}
