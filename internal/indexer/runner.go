package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"pairScope/internal/dex"
	"pairScope/internal/metrics"
	"pairScope/internal/model"
	"pairScope/internal/storage"
)

// defaultMaxAddresses bounds the address list of one eth_getLogs call.
const defaultMaxAddresses = 500

// LogSource is the chain access the runner needs.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	TransactionSender(ctx context.Context, hash common.Hash) (common.Address, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock uint64
	ToBlock   uint64
	// Factories are watched for PairCreated; every pair they announce is
	// added to the watch set.
	Factories []common.Address
	// Pairs seeds the watch set, e.g. with pairs registered by an earlier run.
	Pairs []common.Address
	// Topic0 filters the logs of factories and pairs. Empty means all.
	Topic0 []common.Hash
	// SenderTopics marks logs that get the transaction sender attached.
	SenderTopics         []common.Hash
	BatchSize            uint64
	MaxAddressesPerQuery int
	MaxRetries           int
	RetryBackoff         time.Duration
}

// Runner streams factory and pair logs from the chain into a sink.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	sink       storage.LogSink
	checkpoint Checkpointer
	metrics    *metrics.Metrics
	logger     *zap.Logger

	seen         map[string]struct{}
	watched      map[common.Address]struct{}
	senderTopic  map[common.Hash]struct{}
	createdTopic common.Hash
}

// NewRunner builds a Runner with its dependencies. checkpoint and m may be nil.
func NewRunner(cfg RunConfig, source LogSource, sink storage.LogSink, checkpoint Checkpointer, m *metrics.Metrics, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAddressesPerQuery <= 0 {
		cfg.MaxAddressesPerQuery = defaultMaxAddresses
	}
	createdTopic, err := dex.PairCreatedTopic()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:          cfg,
		chain:        source,
		sink:         sink,
		checkpoint:   checkpoint,
		metrics:      m,
		logger:       logger,
		seen:         make(map[string]struct{}),
		watched:      make(map[common.Address]struct{}),
		senderTopic:  make(map[common.Hash]struct{}),
		createdTopic: createdTopic,
	}
	for _, pair := range cfg.Pairs {
		r.watched[pair] = struct{}{}
	}
	for _, topic := range cfg.SenderTopics {
		r.senderTopic[topic] = struct{}{}
	}
	return r, nil
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("log sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Factories) == 0 && len(r.watched) == 0 {
		return fmt.Errorf("at least one factory or pair address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		started := time.Now()
		n, err := r.runBatch(ctx, chainIDValue, blockRange)
		if err != nil {
			return err
		}
		r.metrics.ObserveBatch(time.Since(started))
		r.metrics.SetLastBlock(blockRange.To)

		r.logger.Info("batch complete",
			zap.Int("logs", n),
			zap.Int("pairs", len(r.watched)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	return nil
}

// Watched returns the current pair watch set.
func (r *Runner) Watched() []common.Address {
	out := make([]common.Address, 0, len(r.watched))
	for address := range r.watched {
		out = append(out, address)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

func (r *Runner) runBatch(ctx context.Context, chainID uint64, blockRange BlockRange) (int, error) {
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	if err := r.discoverPairs(ctx, blockRange); err != nil {
		return 0, err
	}

	addresses := append(append([]common.Address(nil), r.cfg.Factories...), r.Watched()...)
	logs, err := r.filterLogsChunked(ctx, blockRange, addresses, r.cfg.Topic0)
	if err != nil {
		return 0, fmt.Errorf("filter logs: %w", err)
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	ingestedAt := time.Now().UTC()
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if r.isDuplicate(log) {
			continue
		}

		ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
		if err != nil {
			return 0, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		var from *common.Address
		if r.needsSender(log) {
			sender, err := r.transactionSenderWithRetry(ctx, log.TxHash)
			if err != nil {
				return 0, fmt.Errorf("transaction sender %s: %w", log.TxHash.Hex(), err)
			}
			from = &sender
		}
		records = append(records, buildLogRecord(chainID, log, ts, from, ingestedAt))
	}

	if err := r.sink.PutLogBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("store logs: %w", err)
	}

	if r.checkpoint != nil {
		if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

// discoverPairs adds pairs created in blockRange to the watch set.
func (r *Runner) discoverPairs(ctx context.Context, blockRange BlockRange) error {
	if len(r.cfg.Factories) == 0 {
		return nil
	}
	logs, err := r.filterLogsChunked(ctx, blockRange, r.cfg.Factories, []common.Hash{r.createdTopic})
	if err != nil {
		return fmt.Errorf("filter pair created logs: %w", err)
	}
	for _, log := range logs {
		pair, err := dex.PairFromCreatedLog(log)
		if err != nil {
			r.logger.Warn("skip malformed PairCreated", zap.String("tx_hash", log.TxHash.Hex()), zap.Error(err))
			continue
		}
		if _, ok := r.watched[pair]; ok {
			continue
		}
		r.watched[pair] = struct{}{}
		r.logger.Debug("watch pair", zap.String("pair", pair.Hex()), zap.Uint64("block_number", log.BlockNumber))
	}
	return nil
}

func (r *Runner) filterLogsChunked(ctx context.Context, blockRange BlockRange, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	var out []types.Log
	for start := 0; start < len(addresses); start += r.cfg.MaxAddressesPerQuery {
		end := start + r.cfg.MaxAddressesPerQuery
		if end > len(addresses) {
			end = len(addresses)
		}
		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, addresses[start:end], topic0)
		if err != nil {
			return nil, err
		}
		out = append(out, logs...)
	}
	return out, nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, addresses, topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) transactionSenderWithRetry(ctx context.Context, hash common.Hash) (common.Address, error) {
	var from common.Address
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		from, err = r.chain.TransactionSender(ctx, hash)
		if err != nil {
			r.logger.Warn("transaction sender fetch failed", zap.Error(err), zap.String("tx_hash", hash.Hex()))
		}
		return err
	})
	return from, err
}

func (r *Runner) needsSender(log types.Log) bool {
	if len(log.Topics) == 0 {
		return false
	}
	_, ok := r.senderTopic[log.Topics[0]]
	return ok
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
