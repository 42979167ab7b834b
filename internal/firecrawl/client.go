package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lurebay/product-importer/internal/ratelimit"
)

const defaultBaseURL = "https://api.firecrawl.dev"

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ScrapeResponse is the provider's rendered view of one URL. Everything
// in it is untrusted text; extraction downstream is pure pattern
// matching, never a strict parse.
type ScrapeResponse struct {
	OK       bool
	Markdown string
	HTML     string
	Links    []string
	Metadata map[string]any
	Error    string
}

type Config struct {
	APIKey  string
	BaseURL string
	// WaitFor is how long the provider lets client-side rendering run
	// before capturing the page.
	WaitFor time.Duration
	// Timeout is the provider-side render budget for one scrape.
	Timeout time.Duration
}

// Client is a thin wrapper over the provider's scrape endpoint. It
// returns OK=false for provider-side failures and an error only for
// transport failures.
type Client struct {
	apiKey     string
	baseURL    string
	waitFor    time.Duration
	timeout    time.Duration
	httpClient *http.Client
	limiter    ratelimit.Limiter
	logger     *slog.Logger
}

func NewClient(cfg Config, limiter ratelimit.Limiter, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	waitFor := cfg.WaitFor
	if waitFor <= 0 {
		waitFor = 10 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if limiter == nil {
		limiter = ratelimit.None{}
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		waitFor: waitFor,
		timeout: timeout,
		httpClient: &http.Client{
			// Transport budget: provider render time plus slack.
			Timeout: timeout + 30*time.Second,
		},
		limiter: limiter,
		logger:  logger.With("component", "firecrawl"),
	}
}

type scrapeRequest struct {
	URL             string            `json:"url"`
	Formats         []string          `json:"formats"`
	OnlyMainContent bool              `json:"onlyMainContent"`
	WaitFor         int               `json:"waitFor"`
	Timeout         int               `json:"timeout"`
	Headers         map[string]string `json:"headers"`
	Actions         []pageAction      `json:"actions"`
}

type pageAction struct {
	Type         string `json:"type"`
	Milliseconds int    `json:"milliseconds,omitempty"`
	Selector     string `json:"selector,omitempty"`
	Direction    string `json:"direction,omitempty"`
	Amount       int    `json:"amount,omitempty"`
}

type scrapePayload struct {
	Markdown string         `json:"markdown"`
	RawHTML  string         `json:"rawHtml"`
	HTML     string         `json:"html"`
	Links    []string       `json:"links"`
	Metadata map[string]any `json:"metadata"`
}

type scrapeEnvelope struct {
	scrapePayload
	Data  *scrapePayload `json:"data"`
	Error string         `json:"error"`
}

// Scrape renders targetURL through the provider and returns whatever it
// managed to extract. The scroll/wait actions exist to trigger
// lazy-loaded image tags on the product gallery.
func (c *Client) Scrape(ctx context.Context, targetURL string) (*ScrapeResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := scrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown", "rawHtml", "links"},
		OnlyMainContent: false,
		WaitFor:         int(c.waitFor.Milliseconds()),
		Timeout:         int(c.timeout.Milliseconds()),
		Headers: map[string]string{
			"User-Agent":      browserUserAgent,
			"Accept-Language": "en-US,en;q=0.9,es;q=0.8",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		},
		Actions: []pageAction{
			{Type: "wait", Milliseconds: 5000},
			{Type: "click", Selector: "body"},
			{Type: "wait", Milliseconds: 1000},
			{Type: "scroll", Direction: "down", Amount: 2000},
			{Type: "wait", Milliseconds: 3000},
			{Type: "scroll", Direction: "up", Amount: 2000},
			{Type: "wait", Milliseconds: 2000},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build scrape request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read scrape response: %w", err)
	}

	var envelope scrapeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("failed to decode scrape response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errMsg := envelope.Error
		if errMsg == "" {
			errMsg = fmt.Sprintf("provider returned status %d", resp.StatusCode)
		}
		c.logger.Warn("provider error", "url", targetURL, "status", resp.StatusCode, "error", errMsg)
		return &ScrapeResponse{OK: false, Error: errMsg}, nil
	}

	payload := envelope.scrapePayload
	if envelope.Data != nil {
		payload = *envelope.Data
	}

	html := payload.RawHTML
	if html == "" {
		html = payload.HTML
	}
	links := payload.Links
	if links == nil {
		links = []string{}
	}
	metadata := payload.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	c.logger.Info("scraped page",
		"url", targetURL,
		"duration", time.Since(start),
		"markdown_len", len(payload.Markdown),
		"html_len", len(html),
		"links", len(links),
	)

	return &ScrapeResponse{
		OK:       true,
		Markdown: payload.Markdown,
		HTML:     html,
		Links:    links,
		Metadata: metadata,
	}, nil
}
