package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairScope/internal/chain"
	"pairScope/internal/config"
	"pairScope/internal/model"
	"pairScope/internal/storage"
)

// processFlushEvery is the number of events buffered between store flushes.
const processFlushEvery = 1000

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProcess(cfgFile, cmd.Flags())
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
	if cfg.In == "" {
		return fmt.Errorf("input path is required")
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

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	logger.Info("process start",
		zap.String("in", cfg.In),
		zap.String("store", cfg.Store.Kind),
		zap.String("factory", cfg.Exchange.Factory),
		zap.String("reference_factory", cfg.Exchange.ReferenceFactory),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, invalid int
	var lastBlock uint64
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			invalid++
			logger.Warn("skip malformed line", zap.Error(err))
			continue
		}
		ev, err := record.Event()
		if err != nil {
			invalid++
			logger.Warn("skip undecodable event", zap.String("tx_hash", record.TxHash), zap.Error(err))
			continue
		}

		if err := engine.Handle(ctx, ev); err != nil {
			return err
		}
		total++
		lastBlock = ev.BlockNumber

		if total%processFlushEvery == 0 {
			if err := store.Flush(ctx); err != nil {
				return err
			}
			m.SetLastBlock(lastBlock)
			logger.Info("process progress", zap.Int("events", total), zap.Uint64("block_number", lastBlock))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	if err := store.Flush(ctx); err != nil {
		return err
	}
	m.SetLastBlock(lastBlock)

	if cfg.Dump != "" {
		n, err := dumpEntities(ctx, backend, cfg.Dump)
		if err != nil {
			return err
		}
		logger.Info("entities dumped", zap.Int("entities", n), zap.String("path", cfg.Dump))
	}

	logger.Info("process complete",
		zap.Int("events", total),
		zap.Int("invalid", invalid),
		zap.Uint64("last_block", lastBlock),
	)
	return nil
}
