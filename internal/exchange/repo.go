package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pairScope/internal/model"
	"pairScope/internal/storage"
	"pairScope/internal/units"
)

func (e *Engine) pair(ctx context.Context, id string) (*model.Pair, error) {
	pair, err := storage.Get[model.Pair](ctx, e.store, model.KindPair, id)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, id)
	}
	return pair, nil
}

func (e *Engine) token(ctx context.Context, id string) (*model.Token, error) {
	token, err := storage.Get[model.Token](ctx, e.store, model.KindToken, id)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	return token, nil
}

// pairTokens resolves both tokens of pair.
func (e *Engine) pairTokens(ctx context.Context, pair *model.Pair) (*model.Token, *model.Token, error) {
	token0, err := e.token(ctx, pair.Token0)
	if err != nil {
		return nil, nil, err
	}
	token1, err := e.token(ctx, pair.Token1)
	if err != nil {
		return nil, nil, err
	}
	return token0, token1, nil
}

func (e *Engine) factory(ctx context.Context) (*model.Factory, error) {
	factory, err := storage.Get[model.Factory](ctx, e.store, model.KindFactory, e.cfg.Factory)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, e.cfg.Factory)
	}
	return factory, nil
}

// scopedFactory returns the factory for in-scope pairs and nil otherwise.
func (e *Engine) scopedFactory(ctx context.Context, pair *model.Pair) (*model.Factory, error) {
	if !pair.InScope {
		return nil, nil
	}
	return e.factory(ctx)
}

// transaction loads the transaction of ev or starts an empty one.
func (e *Engine) transaction(ctx context.Context, ev *model.TypedEvent) (*model.Transaction, error) {
	tx, err := storage.Get[model.Transaction](ctx, e.store, model.KindTransaction, ev.TxHash)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		tx = &model.Transaction{ID: ev.TxHash, BlockNumber: ev.BlockNumber, Timestamp: ev.Timestamp}
	}
	return tx, nil
}

func (e *Engine) existingTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	tx, err := storage.Get[model.Transaction](ctx, e.store, model.KindTransaction, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return tx, nil
}

func (e *Engine) mint(ctx context.Context, id string) (*model.Mint, error) {
	mint, err := storage.Get[model.Mint](ctx, e.store, model.KindMint, id)
	if err != nil {
		return nil, err
	}
	if mint == nil {
		return nil, fmt.Errorf("%w: mint %s", ErrRecordNotFound, id)
	}
	return mint, nil
}

func (e *Engine) burn(ctx context.Context, id string) (*model.Burn, error) {
	burn, err := storage.Get[model.Burn](ctx, e.store, model.KindBurn, id)
	if err != nil {
		return nil, err
	}
	if burn == nil {
		return nil, fmt.Errorf("%w: burn %s", ErrRecordNotFound, id)
	}
	return burn, nil
}

func (e *Engine) save(ctx context.Context, entities ...model.Entity) error {
	for _, entity := range entities {
		if err := storage.Put(ctx, e.store, entity); err != nil {
			return err
		}
	}
	return nil
}

// amount parses a raw event integer and scales it by decimals.
func amount(raw string, decimals int32) (decimal.Decimal, error) {
	value, err := units.ParseDecimal(raw, decimals)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return value, nil
}
