package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pairScope/internal/chain"
	"pairScope/internal/config"
	"pairScope/internal/dex"
	"pairScope/internal/indexer"
	"pairScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Constant-product pair event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch raw factory and pair logs into JSONL",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().StringSlice("factories", nil, "factory addresses watched for PairCreated (comma-separated)")
	runCmd.Flags().StringSlice("pairs", nil, "pair addresses watched from the start (comma-separated)")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 filter, defaults to factory and pair events (comma-separated)")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().Int("max-addresses", 500, "addresses per log query")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "./data/logs.jsonl", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Apply typed events to the entity store",
		RunE:  runProcess,
	}

	processCmd.Flags().String("rpc", "", "RPC URL used for token metadata")
	processCmd.Flags().String("in", "./data/typed_events.jsonl", "input typed events JSONL")
	processCmd.Flags().String("dump", "", "optional JSONL path receiving every entity after processing")
	addExchangeFlags(processCmd)

	root.AddCommand(processCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Index pair events from the chain straight into the entity store",
		RunE:  runSync,
	}

	syncCmd.Flags().String("rpc", "", "RPC URL")
	syncCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	syncCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	syncCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	syncCmd.Flags().Int("max-addresses", 500, "addresses per log query")
	syncCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	syncCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	syncCmd.Flags().String("checkpoint-id", "sync", "id of the checkpoint entity")
	addExchangeFlags(syncCmd)

	root.AddCommand(syncCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addExchangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("factory", config.DefaultFactory, "tracked factory address")
	cmd.Flags().String("reference-factory", config.DefaultReferenceFactory, "reference factory address, pairs recorded but not aggregated")
	cmd.Flags().StringSlice("whitelist", nil, "tokens trusted for USD pricing, in lookup order (comma-separated)")
	cmd.Flags().StringSlice("stablecoins", nil, "tokens priced at one USD (comma-separated)")
	cmd.Flags().String("min-liquidity-usd", "0", "minimum reserve USD of a pricing pair")
	cmd.Flags().Uint64("swap-start-block", 10977288, "swap records at or before this block are not stored")
	cmd.Flags().Int32("default-decimals", 0, "decimals for reference tokens whose decimals call fails")
	cmd.Flags().Duration("metadata-ttl", time.Hour, "token metadata cache TTL")
	cmd.Flags().String("store", config.StoreMemory, "entity store (memory, postgres, redis)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("redis-addr", "localhost:6379", "Redis address")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().String("redis-prefix", "pairscope", "Redis key prefix")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	factories, err := indexer.ParseAddresses(cfg.Factories)
	if err != nil {
		return err
	}
	pairs, err := indexer.ParseAddresses(cfg.Pairs)
	if err != nil {
		return err
	}
	if len(factories) == 0 && len(pairs) == 0 {
		return fmt.Errorf("factory or pair address list is required")
	}

	topic0, err := indexer.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}
	if len(topic0) == 0 {
		if topic0, err = defaultTopics(); err != nil {
			return err
		}
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

	var checkpoint indexer.Checkpointer
	if cfg.CheckpointEnabled {
		checkpoint = indexer.NewCheckpointStore(cfg.Checkpoint, true)
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
	}, chainClient, storage.NewJSONLSink(cfg.Out), checkpoint, nil, logger)
	if err != nil {
		return err
	}

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("factories", len(factories)),
		zap.Int("pairs", len(pairs)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

// defaultTopics covers PairCreated plus every pair event the engine handles.
func defaultTopics() ([]common.Hash, error) {
	created, err := dex.PairCreatedTopic()
	if err != nil {
		return nil, err
	}
	pairTopics, err := dex.PairTopics()
	if err != nil {
		return nil, err
	}
	return append([]common.Hash{created}, pairTopics...), nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
