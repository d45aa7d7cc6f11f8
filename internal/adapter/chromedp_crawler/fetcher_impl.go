package chromedp_crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/source"
)

// ChromedpFetcher renders pages in headless Chrome before returning their HTML.
type ChromedpFetcher struct {
	allocatorPool *sync.Pool
	timeout       time.Duration
}

// NewChromedpFetcher creates a page fetcher backed by chromedp.
func NewChromedpFetcher(maxConcurrency int, pageLoadTimeout time.Duration) (repository.PageFetcher, error) {
	pool := &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.Flag("lang", "ja,en;q=0.9"),
				chromedp.UserAgent(source.UserAgent),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	// Pre-warm the pool
	for i := 0; i < maxConcurrency; i++ {
		allocCtx := pool.Get().(context.Context)
		pool.Put(allocCtx)
	}

	return &ChromedpFetcher{
		allocatorPool: pool,
		timeout:       pageLoadTimeout,
	}, nil
}

// Fetch navigates to url and returns the rendered document. Non-2xx navigations
// are reported as repository.ErrUnexpectedStatus.
func (c *ChromedpFetcher) Fetch(ctx context.Context, url string) (string, error) {
	allocCtx := c.allocatorPool.Get().(context.Context)
	defer c.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(slog.Debug))
	defer cancel()

	taskCtx, cancel = context.WithTimeout(taskCtx, c.timeout)
	defer cancel()

	// The browser context is rooted in the allocator, so the caller's
	// cancellation has to be forwarded by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	startTime := time.Now()
	resp, err := chromedp.RunResponse(taskCtx, chromedp.Navigate(url))
	if err != nil {
		slog.Error("Failed to render page", "url", url, "error", err)
		return "", err
	}
	if resp != nil && (resp.Status < 200 || resp.Status > 299) {
		return "", fmt.Errorf("%w: %d for %s", repository.ErrUnexpectedStatus, resp.Status, url)
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		slog.Error("Failed to read rendered page", "url", url, "error", err)
		return "", err
	}

	slog.Info("Rendered page", "url", url, "bytes", len(html), "duration_ms", time.Since(startTime).Milliseconds())
	return html, nil
}
