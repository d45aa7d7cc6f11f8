// Package bootstrap wires configuration into the connections and sources both binaries share.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/grant-aggregator/internal/adapter/chromedp_crawler"
	"github.com/user/grant-aggregator/internal/adapter/postgres"
	"github.com/user/grant-aggregator/internal/adapter/proxy"
	"github.com/user/grant-aggregator/internal/adapter/resty_fetcher"
	"github.com/user/grant-aggregator/internal/normalize"
	"github.com/user/grant-aggregator/internal/repository"
	"github.com/user/grant-aggregator/internal/source"
	"github.com/user/grant-aggregator/internal/source/erad"
	"github.com/user/grant-aggregator/internal/source/jgrants"
	"github.com/user/grant-aggregator/internal/usecase"
	"github.com/user/grant-aggregator/pkg/config"
)

// OpenPostgres connects, pings and applies the schema.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if err := postgres.Migrate(ctx, dbpool); err != nil {
		dbpool.Close()
		return nil, err
	}
	slog.Info("PostgreSQL connection pool established")
	return dbpool, nil
}

func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to connect to Redis: %w", err)
	}
	slog.Info("Redis connection established")
	return rdb, nil
}

// Store returns the Postgres-backed repositories a scraper run needs.
func Store(db *pgxpool.Pool) usecase.Store {
	return usecase.Store{
		Grants: postgres.NewGrantRepo(db),
		Runs:   postgres.NewRunLogRepo(db),
	}
}

// PageFetcher picks the HTML fetcher named by FETCH_MODE.
func PageFetcher(cfg *config.Config) (repository.PageFetcher, error) {
	if cfg.FetchMode == "browser" {
		return chromedp_crawler.NewChromedpFetcher(1, cfg.HTTPTimeout())
	}
	proxies, err := proxy.NewRotator(cfg.Proxies())
	if err != nil {
		return nil, err
	}
	return resty_fetcher.NewRestyFetcher(cfg.HTTPTimeout(), proxies), nil
}

// Sources builds every configured pipeline in AllSources order.
func Sources(cfg *config.Config) ([]source.Source, error) {
	fetcher, err := PageFetcher(cfg)
	if err != nil {
		return nil, err
	}
	eradSource, err := erad.New(fetcher, erad.Config{BaseURL: cfg.ERadBaseURL, DebugPath: cfg.ERadDebugPath})
	if err != nil {
		return nil, err
	}
	jgrantsSource := jgrants.New(jgrants.Config{
		BaseURL:   cfg.JGrantsAPIBaseURL,
		PortalURL: cfg.JGrantsPortalURL,
		Timeout:   cfg.HTTPTimeout(),
		PageDelay: cfg.PageDelay(),
		Cooldown:  cfg.RateLimitCooldown(),
	})
	return []source.Source{jgrantsSource, eradSource}, nil
}

// Today returns a clock yielding the current civil date in the configured zone.
func Today(cfg *config.Config) func() time.Time {
	loc := cfg.Location()
	return func() time.Time { return normalize.Today(time.Now(), loc) }
}
