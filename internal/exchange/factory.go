package exchange

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pairScope/internal/model"
	"pairScope/internal/storage"
)

const unknownText = "unknown"

// handlePairCreated creates the tokens and pair announced by a factory.
// tracked selects the factory whose pairs count toward the aggregate.
func (e *Engine) handlePairCreated(ctx context.Context, ev *model.TypedEvent, data model.PairCreatedEventData, tracked bool) error {
	var factory *model.Factory
	if tracked {
		var err error
		factory, err = storage.Get[model.Factory](ctx, e.store, model.KindFactory, e.cfg.Factory)
		if err != nil {
			return err
		}
		if factory == nil {
			factory = &model.Factory{ID: e.cfg.Factory}
			if err := e.save(ctx, factory); err != nil {
				return err
			}
		}
	}

	token0, err := e.ensureToken(ctx, model.NormalizeAddress(data.Token0), tracked)
	if err != nil {
		return err
	}
	token1, err := e.ensureToken(ctx, model.NormalizeAddress(data.Token1), tracked)
	if err != nil {
		return err
	}

	pair := &model.Pair{
		ID:                 model.NormalizeAddress(data.Pair),
		Factory:            ev.Address,
		Token0:             token0.ID,
		Token1:             token1.ID,
		Name:               token0.Symbol + "-" + token1.Symbol,
		CreatedAtTimestamp: ev.Timestamp,
		CreatedAtBlock:     ev.BlockNumber,
		InScope:            tracked,
	}
	if err := e.save(ctx, pair); err != nil {
		return err
	}
	if err := e.save(ctx,
		&model.PairLookup{ID: model.PairLookupID(ev.Address, token0.ID, token1.ID), Pair: pair.ID},
		&model.PairLookup{ID: model.PairLookupID(ev.Address, token1.ID, token0.ID), Pair: pair.ID},
	); err != nil {
		return err
	}

	if factory != nil {
		factory.TotalPairs++
		if err := e.save(ctx, factory); err != nil {
			return err
		}
	}

	if err := e.registry.Register(ctx, pair.ID, ev.Address, ev.BlockNumber); err != nil {
		return err
	}

	e.logger.Info("pair created",
		zap.String("pair", pair.ID),
		zap.String("name", pair.Name),
		zap.Bool("in_scope", tracked),
		zap.Uint64("block_number", ev.BlockNumber),
	)
	return nil
}

// ensureToken loads a token or creates it from on-chain metadata.
func (e *Engine) ensureToken(ctx context.Context, address string, tracked bool) (*model.Token, error) {
	token, err := storage.Get[model.Token](ctx, e.store, model.KindToken, address)
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}

	decimals, err := e.meta.Decimals(ctx, address)
	if err != nil {
		if tracked {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecimalsUnavailable, address, err)
		}
		e.logger.Warn("token decimals unavailable, using default",
			zap.String("token", address),
			zap.Int32("decimals", e.cfg.DefaultDecimals),
			zap.Error(err),
		)
		decimals = e.cfg.DefaultDecimals
	}

	token = &model.Token{
		ID:       address,
		Symbol:   e.text(ctx, e.meta.Symbol, address),
		Name:     e.text(ctx, e.meta.Name, address),
		Decimals: decimals,
	}
	if err := e.save(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (e *Engine) text(ctx context.Context, fetch func(context.Context, string) (string, error), address string) string {
	value, err := fetch(ctx, address)
	if err != nil {
		return unknownText
	}
	return value
}
