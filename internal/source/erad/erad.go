// Package erad scrapes the e-Rad public offering list. The page has no
// stable markup, so extraction tries several strategies in turn.
package erad

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/source"
)

var tracer = otel.Tracer("grant-aggregator/source/erad")

const (
	DefaultBaseURL   = "https://www.e-rad.go.jp"
	DefaultDebugPath = "/tmp/erad_debug.html"
	listPath         = "/offer_list.html"
)

type Config struct {
	BaseURL string
	// DebugPath receives the raw page whenever no strategy matches. Empty disables the dump.
	DebugPath string
}

type Source struct {
	fetcher    repository.PageFetcher
	base       *url.URL
	debugPath  string
	strategies []Strategy
}

// New builds the e-Rad source on top of an HTML fetcher.
func New(fetcher repository.PageFetcher, cfg Config) (*Source, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse e-Rad base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("e-Rad base url %q must be absolute", cfg.BaseURL)
	}
	return &Source{
		fetcher:    fetcher,
		base:       base,
		debugPath:  cfg.DebugPath,
		strategies: DefaultStrategies,
	}, nil
}

func (s *Source) Name() entity.Source { return entity.SourceERad }

// ListURL is the single page the source fetches.
func (s *Source) ListURL() string {
	return s.base.String() + listPath
}

// Fetch downloads the offering list. Any fetch failure fails the whole source.
func (s *Source) Fetch(ctx context.Context) (*source.RawPayload, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	html, err := s.fetcher.Fetch(ctx, s.ListURL())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch e-Rad offer list: %w", err)
	}
	span.SetAttributes(attribute.Int("html.bytes", len(html)))
	return &source.RawPayload{Documents: []string{html}}, nil
}

// Extract runs the strategy chain over each fetched document.
func (s *Source) Extract(ctx context.Context, raw *source.RawPayload, today time.Time) ([]*entity.Grant, error) {
	if raw == nil {
		return nil, nil
	}
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	env := Env{Base: s.base, Today: today}
	var grants []*entity.Grant
	for _, html := range raw.Documents {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse e-Rad html: %w", err)
		}

		name, found := runStrategies(doc, env, s.strategies)
		if len(found) == 0 {
			s.diagnose(doc, html)
			continue
		}
		span.SetAttributes(attribute.String("strategy", name))
		grants = append(grants, found...)
	}

	slog.Info("Parsed e-Rad records", "source", entity.SourceERad, "count", len(grants))
	return grants, nil
}

// diagnose logs what the page looked like when nothing could be extracted and dumps it for inspection.
func (s *Source) diagnose(doc *goquery.Document, html string) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "N/A"
	}
	tables := doc.Find("table")
	classes := make([]string, 0, 5)
	tables.Slice(0, min(5, tables.Length())).Each(func(_ int, t *goquery.Selection) {
		c, _ := t.Attr("class")
		classes = append(classes, c)
	})

	slog.Warn("e-Rad parse returned 0 results", "source", entity.SourceERad, "page_title", title)
	slog.Warn("e-Rad page structure", "source", entity.SourceERad, "tables", tables.Length(), "table_classes", classes)

	if s.debugPath == "" {
		return
	}
	if err := os.WriteFile(s.debugPath, []byte(html), 0o644); err != nil {
		slog.Warn("Failed to save e-Rad debug HTML", "source", entity.SourceERad, "path", s.debugPath, "error", err)
		return
	}
	slog.Warn("e-Rad debug HTML saved", "source", entity.SourceERad, "path", s.debugPath)
}
