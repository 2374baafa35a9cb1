package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairScope/internal/chain"
	"pairScope/internal/config"
	"pairScope/internal/dex"
	"pairScope/internal/exchange"
	"pairScope/internal/indexer"
	"pairScope/internal/storage"
)

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	factories, err := indexer.ParseAddresses([]string{cfg.Exchange.Factory, cfg.Exchange.ReferenceFactory})
	if err != nil {
		return err
	}
	topic0, err := defaultTopics()
	if err != nil {
		return err
	}
	swapTopic, err := dex.SwapTopic()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	backend, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m, err := startMetrics(ctx, cfg.MetricsAddr, logger)
	if err != nil {
		return err
	}

	store := storage.NewBuffered(backend)
	engine := newEngine(cfg.Exchange, store, chainClient, m, logger)
	decoder, err := dex.NewPairDecoder()
	if err != nil {
		return err
	}

	pairs, err := registeredPairs(ctx, engine)
	if err != nil {
		return err
	}

	runner, err := indexer.NewRunner(indexer.RunConfig{
		FromBlock:            cfg.FromBlock,
		ToBlock:              cfg.ToBlock,
		Factories:            factories,
		Pairs:                pairs,
		Topic0:               topic0,
		SenderTopics:         []common.Hash{swapTopic},
		BatchSize:            cfg.BatchSize,
		MaxAddressesPerQuery: cfg.MaxAddresses,
		MaxRetries:           cfg.MaxRetries,
		RetryBackoff:         cfg.RetryBackoff,
	}, chainClient,
		exchange.NewLogProcessor(decoder, engine, m, logger),
		indexer.NewStoreCheckpoint(store, cfg.CheckpointID),
		m, logger)
	if err != nil {
		return err
	}

	logger.Info("sync start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("pairs", len(pairs)),
		zap.String("store", cfg.Store.Kind),
		zap.String("factory", cfg.Exchange.Factory),
		zap.String("reference_factory", cfg.Exchange.ReferenceFactory),
	)

	if err := runner.Run(ctx); err != nil {
		store.Discard()
		return err
	}
	return nil
}

// registeredPairs resumes the watch set from pairs created in earlier runs.
func registeredPairs(ctx context.Context, engine *exchange.Engine) ([]common.Address, error) {
	addresses, err := engine.Registry().Addresses(ctx)
	if err != nil {
		return nil, err
	}
	return indexer.ParseAddresses(addresses)
}
