package aliexpress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// redirect bodies are tiny; this bound only guards against a short-link
// host streaming something unexpected.
const maxRedirectBody = 1 << 20

var (
	shortLinkPattern   = regexp.MustCompile(`(?i)s\.click\.aliexpress\.com|a\.aliexpress\.com|aliexpress\.ru/\w+`)
	productIDPattern   = regexp.MustCompile(`(?i)(?:item/|productId=|itemId=|/i/)(\d{8,})`)
	metaRefreshPattern = regexp.MustCompile(`(?i)url=["']?([^"'\s>]+)`)
)

// ResolvedURLSet holds every URL form derived from one pasted link.
// ScrapeURL is always non-empty and absolute; MobileURL is only set when
// a numeric product id was recovered.
type ResolvedURLSet struct {
	OriginalInputURL string
	FormattedURL     string
	ScrapeURL        string
	MobileURL        string
	ResolvedURL      string
}

// Resolver turns pasted affiliate/short links into canonical product
// URLs. It never fails: network errors during redirect resolution
// degrade to a best-effort guess built from the input itself.
type Resolver struct {
	client *http.Client
	logger *slog.Logger
}

func NewResolver(client *http.Client, logger *slog.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		client: client,
		logger: logger.With("component", "url_resolver"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, rawURL string) ResolvedURLSet {
	formatted := strings.TrimSpace(rawURL)
	if !strings.HasPrefix(formatted, "http://") && !strings.HasPrefix(formatted, "https://") {
		formatted = "https://" + formatted
	}
	original := formatted

	resolved := ""
	if IsShortLink(formatted) {
		final, err := r.followRedirects(ctx, formatted)
		if err == nil && final != "" && final != formatted {
			if ContainsProductID(final) {
				formatted = final
			} else {
				resolved = final
			}
		} else if err != nil {
			r.logger.Debug("HEAD resolution failed, retrying with GET", "url", formatted, "error", err)

			final, body, getErr := r.followRedirectsGET(ctx, formatted)
			if getErr != nil {
				r.logger.Warn("short link could not be resolved", "url", formatted, "error", getErr)
			} else {
				// Some short-link hosts redirect client-side. The body
				// may carry a meta refresh target or the product id
				// itself.
				if id := ProductID(body); id != "" {
					return buildSet(original, ItemURL(id), "")
				}

				candidate := final
				if m := metaRefreshPattern.FindStringSubmatch(body); m != nil {
					candidate = m[1]
				}
				if candidate != "" && candidate != formatted {
					if ContainsProductID(candidate) {
						formatted = candidate
					} else {
						resolved = candidate
					}
				}
			}
		}
	}

	formatted = stripQuery(formatted)

	return buildSet(original, formatted, resolved)
}

func buildSet(original, formatted, resolved string) ResolvedURLSet {
	set := ResolvedURLSet{
		OriginalInputURL: original,
		FormattedURL:     formatted,
		ScrapeURL:        formatted,
		ResolvedURL:      resolved,
	}
	if id := ProductID(formatted); id != "" {
		set.ScrapeURL = ItemURL(id)
		set.MobileURL = MobileItemURL(id)
	}
	return set
}

// followRedirects issues a HEAD request and reports the final URL after
// the client chased every redirect. Non-2xx terminal responses count as
// failure so the caller falls back to GET (some hosts reject HEAD).
func (r *Resolver) followRedirects(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("head %s: unexpected status %d", target, resp.StatusCode)
	}

	return resp.Request.URL.String(), nil
}

func (r *Resolver) followRedirectsGET(ctx context.Context, target string) (finalURL, body string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxRedirectBody))
	return resp.Request.URL.String(), string(data), nil
}

// stripQuery drops query string and fragment, keeping origin + path, so
// affiliate tracking parameters never leak into the canonical URL.
func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func IsShortLink(raw string) bool {
	return shortLinkPattern.MatchString(raw)
}

func ContainsProductID(raw string) bool {
	return productIDPattern.MatchString(raw)
}

// ProductID extracts the numeric product id (8+ digits in a recognized
// position) from any URL or body text, or returns "".
func ProductID(text string) string {
	if text == "" {
		return ""
	}
	if m := productIDPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func ItemURL(id string) string {
	return "https://www.aliexpress.com/item/" + id + ".html"
}

func MobileItemURL(id string) string {
	return "https://m.aliexpress.com/item/" + id + ".html"
}
