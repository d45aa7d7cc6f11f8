// Package jgrants ingests the JGrants public subsidies JSON API.
package jgrants

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/user/grant-aggregator/internal/entity"
	"github.com/user/grant-aggregator/internal/source"
	"github.com/user/grant-aggregator/pkg/metrics"
)

var tracer = otel.Tracer("grant-aggregator/source/jgrants")

// DefaultKeywords are searched one after another; results are merged and deduplicated.
var DefaultKeywords = []string{"研究", "科学技術", "イノベーション", "スタートアップ", "事業"}

const (
	DefaultPageSize = 100
	subsidiesPath   = "/subsidies"
)

type Config struct {
	BaseURL   string // e.g. https://api.jgrants-portal.go.jp/exp/v1/public
	PortalURL string // detail pages live under {PortalURL}/subsidy/{id}
	Keywords  []string
	PageSize  int
	Timeout   time.Duration
	// PageDelay is waited between pages and between keywords.
	PageDelay time.Duration
	// Cooldown is waited after a 403 before the same page is retried.
	Cooldown time.Duration
}

// Source pages through the subsidies endpoint once per keyword.
type Source struct {
	cfg    Config
	client *resty.Client
}

// New creates a JGrants source, filling unset keywords and page size with defaults.
func New(cfg Config) *Source {
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultKeywords
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", source.UserAgent)
	client.SetHeader("Accept", "application/json")

	return &Source{cfg: cfg, client: client}
}

func (s *Source) Name() entity.Source { return entity.SourceJGrants }

type subsidiesResponse struct {
	Result []json.RawMessage `json:"result"`
}

// Fetch returns every subsidy matched by any keyword, first-seen order, without duplicates.
// Only context cancellation aborts the fetch; HTTP and transport failures end the
// current keyword and move on to the next.
func (s *Source) Fetch(ctx context.Context) (*source.RawPayload, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	var all []json.RawMessage
	for i, keyword := range s.cfg.Keywords {
		if i > 0 {
			if err := source.Sleep(ctx, s.cfg.PageDelay); err != nil {
				return nil, err
			}
		}
		items, err := s.fetchKeyword(ctx, keyword)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch aborted")
			return nil, err
		}
		all = append(all, items...)
	}

	unique := dedupe(all)
	span.SetAttributes(
		attribute.Int("items.total", len(all)),
		attribute.Int("items.unique", len(unique)),
	)
	slog.Info("Fetched JGrants subsidies", "source", entity.SourceJGrants, "unique", len(unique), "total", len(all))
	return &source.RawPayload{Items: unique}, nil
}

func (s *Source) fetchKeyword(ctx context.Context, keyword string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	offset := 0
	for {
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"keyword":    keyword,
				"sort":       "created_date",
				"order":      "DESC",
				"acceptance": "1",
				"limit":      strconv.Itoa(s.cfg.PageSize),
				"offset":     strconv.Itoa(offset),
			}).
			Get(subsidiesPath)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.SourceRequestsTotal.WithLabelValues(string(entity.SourceJGrants), "transport_error").Inc()
			slog.Error("JGrants request failed", "source", entity.SourceJGrants, "keyword", keyword, "offset", offset, "error", err)
			return items, nil
		}

		if resp.StatusCode() == http.StatusForbidden {
			metrics.SourceRequestsTotal.WithLabelValues(string(entity.SourceJGrants), "rate_limited").Inc()
			metrics.RateLimitCooldownsTotal.WithLabelValues(string(entity.SourceJGrants)).Inc()
			slog.Warn("JGrants returned 403, cooling down before retrying the same page",
				"source", entity.SourceJGrants, "keyword", keyword, "offset", offset, "cooldown", s.cfg.Cooldown)
			if err := source.Sleep(ctx, s.cfg.Cooldown); err != nil {
				return nil, err
			}
			continue
		}

		if !resp.IsSuccess() {
			metrics.SourceRequestsTotal.WithLabelValues(string(entity.SourceJGrants), "http_error").Inc()
			slog.Error("JGrants HTTP error", "source", entity.SourceJGrants, "keyword", keyword, "offset", offset, "status", resp.StatusCode())
			return items, nil
		}
		metrics.SourceRequestsTotal.WithLabelValues(string(entity.SourceJGrants), "ok").Inc()

		var page subsidiesResponse
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			slog.Error("JGrants response is not valid JSON", "source", entity.SourceJGrants, "keyword", keyword, "offset", offset, "error", err)
			return items, nil
		}
		if len(page.Result) == 0 {
			return items, nil
		}

		items = append(items, page.Result...)
		offset += len(page.Result)
		if len(page.Result) < s.cfg.PageSize {
			return items, nil
		}

		if err := source.Sleep(ctx, s.cfg.PageDelay); err != nil {
			return nil, err
		}
	}
}

// dedupe drops items without an id and every repeat of an id already seen.
func dedupe(items []json.RawMessage) []json.RawMessage {
	seen := make(map[string]struct{}, len(items))
	unique := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var head struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			continue
		}
		id := idString(head.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

// idString accepts ids encoded as JSON strings or numbers.
func idString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (s *Source) detailURL(id string) string {
	return fmt.Sprintf("%s/subsidy/%s", s.cfg.PortalURL, id)
}
