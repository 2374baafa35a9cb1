package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pairScope/internal/config"
	"pairScope/internal/dex"
	"pairScope/internal/exchange"
	"pairScope/internal/metrics"
	"pairScope/internal/model"
	"pairScope/internal/pricing"
	"pairScope/internal/storage"
	"pairScope/internal/storage/postgres"
	"pairScope/internal/storage/redis"
)

// openStore connects the configured entity backend. The returned close
// func is never nil.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (storage.Store, func(), error) {
	switch cfg.Kind {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("entity store ready", zap.String("store", cfg.Kind))
		return store, store.Close, nil
	case config.StoreRedis:
		store, err := redis.NewStore(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("entity store ready", zap.String("store", cfg.Kind), zap.String("addr", cfg.RedisAddr))
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Info("entity store ready", zap.String("store", config.StoreMemory))
		return storage.NewMemoryStore(), func() {}, nil
	}
}

// newEngine wires pricing, token metadata and metrics around store.
func newEngine(cfg config.ExchangeConfig, store storage.Store, caller dex.ContractCaller, m *metrics.Metrics, logger *zap.Logger) *exchange.Engine {
	pricer := pricing.NewPricer(pricing.Config{
		TrackedFactory:   cfg.Factory,
		ReferenceFactory: cfg.ReferenceFactory,
		Whitelist:        cfg.Whitelist,
		Stablecoins:      cfg.Stablecoins,
		MinLiquidityUSD:  cfg.MinLiquidityUSD,
	}, store)

	return exchange.NewEngine(exchange.Config{
		Factory:          cfg.Factory,
		ReferenceFactory: cfg.ReferenceFactory,
		SwapStartBlock:   cfg.SwapStartBlock,
		DefaultDecimals:  cfg.DefaultDecimals,
	}, store, dex.NewTokenMetadata(caller, cfg.MetadataTTL, logger), pricer,
		exchange.WithMetrics(m),
		exchange.WithLogger(logger),
	)
}

// startMetrics registers the engine metrics and serves them when addr is set.
func startMetrics(ctx context.Context, addr string, logger *zap.Logger) (*metrics.Metrics, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}
	if addr == "" {
		return m, nil
	}
	go func() {
		if err := metrics.Serve(ctx, addr, registry, logger); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return m, nil
}

func dumpEntities(ctx context.Context, store storage.Store, path string) (int, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create dump: %w", err)
	}
	defer file.Close()
	return storage.DumpJSONL(ctx, store, model.AllKinds, file)
}
