package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pairScope/internal/metrics"
	"pairScope/internal/model"
	"pairScope/internal/storage"
)

// errAborted marks failures that drop the current event but not the stream.
var errAborted = errors.New("event aborted")

var (
	ErrPairNotFound        = fmt.Errorf("%w: pair not found", errAborted)
	ErrTokenNotFound       = fmt.Errorf("%w: token not found", errAborted)
	ErrFactoryNotFound     = fmt.Errorf("%w: factory not found", errAborted)
	ErrTransactionNotFound = fmt.Errorf("%w: transaction not found", errAborted)
	ErrRecordNotFound      = fmt.Errorf("%w: record not found", errAborted)
	ErrDecimalsUnavailable = fmt.Errorf("%w: token decimals unavailable", errAborted)
	ErrInvalidPayload      = fmt.Errorf("%w: invalid event payload", errAborted)
)

// IsAborted reports whether err only invalidates the event that produced it.
func IsAborted(err error) bool {
	return errors.Is(err, errAborted)
}

// TokenMetadata reads ERC20 metadata. Each call may fail independently.
type TokenMetadata interface {
	Name(ctx context.Context, address string) (string, error)
	Symbol(ctx context.Context, address string) (string, error)
	Decimals(ctx context.Context, address string) (int32, error)
}

// Pricer values tokens and amounts in USD.
type Pricer interface {
	USDPerToken(ctx context.Context, token *model.Token, inScope bool) (decimal.Decimal, error)
	TrackedVolumeUSD(amount0 decimal.Decimal, token0 *model.Token, amount1 decimal.Decimal, token1 *model.Token) decimal.Decimal
	TrackedLiquidityUSD(reserve0 decimal.Decimal, token0 *model.Token, reserve1 decimal.Decimal, token1 *model.Token) decimal.Decimal
}

// Rollups updates time buckets and returns them for further mutation.
// A nil bucket with a nil error means there is nothing to update.
type Rollups interface {
	UpdateFactoryDay(ctx context.Context, ev *model.TypedEvent) (*model.FactoryDayData, error)
	UpdatePairDay(ctx context.Context, ev *model.TypedEvent) (*model.PairDayData, error)
	UpdatePairHour(ctx context.Context, ev *model.TypedEvent) (*model.PairHourData, error)
	UpdateTokenDay(ctx context.Context, token *model.Token, ev *model.TypedEvent) (*model.TokenDayData, error)
}

// DefaultSwapStartBlock is the block at or before which swap records are
// not persisted.
const DefaultSwapStartBlock uint64 = 10977288

// Config holds the engine settings.
type Config struct {
	// Factory is the tracked factory; its pairs count toward the aggregate.
	Factory string
	// ReferenceFactory pairs are recorded but excluded from the aggregate.
	ReferenceFactory string
	SwapStartBlock   uint64
	// DefaultDecimals is used for reference factory tokens whose decimals
	// call fails.
	DefaultDecimals int32
}

// Engine applies pair and factory events to the entity store. It is not
// safe for concurrent use; events must arrive in (block, log index) order.
type Engine struct {
	cfg      Config
	store    storage.Store
	meta     TokenMetadata
	pricer   Pricer
	rollups  Rollups
	registry *Registry
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

func WithRollups(r Rollups) Option          { return func(e *Engine) { e.rollups = r } }
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }
func WithLogger(l *zap.Logger) Option       { return func(e *Engine) { e.logger = l } }

func NewEngine(cfg Config, store storage.Store, meta TokenMetadata, pricer Pricer, opts ...Option) *Engine {
	cfg.Factory = model.NormalizeAddress(cfg.Factory)
	cfg.ReferenceFactory = model.NormalizeAddress(cfg.ReferenceFactory)

	e := &Engine{
		cfg:      cfg,
		store:    store,
		meta:     meta,
		pricer:   pricer,
		registry: NewRegistry(store),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rollups == nil {
		e.rollups = NewStoreRollups(store, cfg.Factory)
	}
	return e
}

// Registry returns the pair subscription registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Handle applies one event. Errors that only concern the event are logged
// and swallowed; a returned error means the store is unusable.
func (e *Engine) Handle(ctx context.Context, ev model.TypedEvent) error {
	ev.Address = model.NormalizeAddress(ev.Address)
	ev.TxHash = model.NormalizeAddress(ev.TxHash)

	var err error
	switch data := ev.Decoded.(type) {
	case model.PairCreatedEventData:
		switch ev.Address {
		case e.cfg.Factory:
			err = e.handlePairCreated(ctx, &ev, data, true)
		case e.cfg.ReferenceFactory:
			err = e.handlePairCreated(ctx, &ev, data, false)
		default:
			e.metrics.Skipped("unknown_factory")
			return nil
		}
	case model.TransferEventData, model.SyncEventData, model.MintEventData, model.BurnEventData, model.SwapEventData:
		ok, lookupErr := e.registry.Contains(ctx, ev.Address)
		if lookupErr != nil {
			return lookupErr
		}
		if !ok {
			e.metrics.Skipped("unregistered_source")
			return nil
		}
		err = e.dispatchPairEvent(ctx, &ev)
	default:
		e.metrics.Skipped("unsupported_payload")
		return nil
	}

	if err != nil {
		if IsAborted(err) {
			e.metrics.Failed(ev.EventName)
			e.logger.Error("event aborted",
				zap.String("event", ev.EventName),
				zap.String("address", ev.Address),
				zap.String("tx_hash", ev.TxHash),
				zap.Uint64("block_number", ev.BlockNumber),
				zap.Uint64("log_index", ev.LogIndex),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("%s in %s log %d: %w", ev.EventName, ev.TxHash, ev.LogIndex, err)
	}

	e.metrics.Handled(ev.EventName)
	e.logger.Debug("event applied",
		zap.String("event", ev.EventName),
		zap.String("address", ev.Address),
		zap.Uint64("block_number", ev.BlockNumber),
		zap.Uint64("log_index", ev.LogIndex),
	)
	return nil
}

func (e *Engine) dispatchPairEvent(ctx context.Context, ev *model.TypedEvent) error {
	switch data := ev.Decoded.(type) {
	case model.TransferEventData:
		return e.handleTransfer(ctx, ev, data)
	case model.SyncEventData:
		return e.handleSync(ctx, ev, data)
	case model.MintEventData:
		return e.handleMint(ctx, ev, data)
	case model.BurnEventData:
		return e.handleBurn(ctx, ev, data)
	case model.SwapEventData:
		return e.handleSwap(ctx, ev, data)
	}
	return nil
}
