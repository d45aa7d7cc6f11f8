package repository

import "context"

// PageFetcher retrieves the HTML of a page.
type PageFetcher interface {
	// Fetch returns the page body. Non-2xx responses are errors.
	Fetch(ctx context.Context, url string) (string, error)
}
