package resty_fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/grant-aggregator/internal/adapter/proxy"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/source"
)

const maxRedirects = 10

// RestyFetcher fetches static HTML pages with a plain GET.
type RestyFetcher struct {
	client *resty.Client
}

// NewRestyFetcher creates a page fetcher that follows redirects and sends a descriptive user agent.
// A non-empty rotator routes each request through the next proxy.
func NewRestyFetcher(timeout time.Duration, proxies *proxy.Rotator) repository.PageFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeaders(map[string]string{
			"User-Agent":      source.UserAgent,
			"Accept":          "text/html",
			"Accept-Language": "ja,en;q=0.9",
		})
	if proxies != nil && proxies.Len() > 0 {
		client.SetTransport(proxies.Transport())
	}
	return &RestyFetcher{client: client}
}

// Fetch returns the response body, or repository.ErrUnexpectedStatus for a non-2xx response.
func (f *RestyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	startTime := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		slog.Error("Failed to fetch page", "url", url, "error", err)
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: %d for %s", repository.ErrUnexpectedStatus, resp.StatusCode(), url)
	}

	slog.Info("Fetched page", "url", url, "status", resp.StatusCode(), "duration_ms", time.Since(startTime).Milliseconds())
	return resp.String(), nil
}
