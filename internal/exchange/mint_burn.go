package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pairScope/internal/model"
)

// handleMint completes the most recent mint of the transaction.
func (e *Engine) handleMint(ctx context.Context, ev *model.TypedEvent, data model.MintEventData) error {
	tx, err := e.existingTransaction(ctx, ev.TxHash)
	if err != nil {
		return err
	}
	lastID, ok := tx.LastMint()
	if !ok {
		return fmt.Errorf("%w: no mint in %s", ErrRecordNotFound, tx.ID)
	}
	mint, err := e.mint(ctx, lastID)
	if err != nil {
		return err
	}

	am, err := e.applyLiquidityEvent(ctx, ev, data.Amount0, data.Amount1)
	if err != nil {
		return err
	}

	mint.Sender = model.NormalizeAddress(data.Sender)
	mint.Amount0 = am.amount0
	mint.Amount1 = am.amount1
	mint.LogIndex = ev.LogIndex
	mint.AmountUSD = am.amountUSD
	mint.State = model.MintComplete
	if am.pair.InScope {
		if err := e.save(ctx, mint); err != nil {
			return err
		}
	}

	_, err = e.updateBuckets(ctx, ev, am.pair, am.token0, am.token1)
	return err
}

// handleBurn completes the most recent burn of the transaction.
func (e *Engine) handleBurn(ctx context.Context, ev *model.TypedEvent, data model.BurnEventData) error {
	tx, err := e.existingTransaction(ctx, ev.TxHash)
	if err != nil {
		return err
	}
	lastID, ok := tx.LastBurn()
	if !ok {
		return fmt.Errorf("%w: no burn in %s", ErrRecordNotFound, tx.ID)
	}
	burn, err := e.burn(ctx, lastID)
	if err != nil {
		return err
	}

	am, err := e.applyLiquidityEvent(ctx, ev, data.Amount0, data.Amount1)
	if err != nil {
		return err
	}

	burn.Amount0 = am.amount0
	burn.Amount1 = am.amount1
	burn.LogIndex = ev.LogIndex
	burn.AmountUSD = am.amountUSD
	if am.pair.InScope {
		if err := e.save(ctx, burn); err != nil {
			return err
		}
	}

	_, err = e.updateBuckets(ctx, ev, am.pair, am.token0, am.token1)
	return err
}

type liquidityAmounts struct {
	pair      *model.Pair
	token0    *model.Token
	token1    *model.Token
	amount0   decimal.Decimal
	amount1   decimal.Decimal
	amountUSD decimal.Decimal
}

// applyLiquidityEvent bumps the counters shared by Mint and Burn and saves
// pair, tokens and, for in-scope pairs, the factory.
func (e *Engine) applyLiquidityEvent(ctx context.Context, ev *model.TypedEvent, raw0, raw1 string) (liquidityAmounts, error) {
	pair, err := e.pair(ctx, ev.Address)
	if err != nil {
		return liquidityAmounts{}, err
	}
	token0, token1, err := e.pairTokens(ctx, pair)
	if err != nil {
		return liquidityAmounts{}, err
	}
	factory, err := e.scopedFactory(ctx, pair)
	if err != nil {
		return liquidityAmounts{}, err
	}

	amount0, err := amount(raw0, token0.Decimals)
	if err != nil {
		return liquidityAmounts{}, err
	}
	amount1, err := amount(raw1, token1.Decimals)
	if err != nil {
		return liquidityAmounts{}, err
	}

	token0.TotalTransactions++
	token1.TotalTransactions++
	amountUSD := token1.DerivedUSD.Mul(amount1).Add(token0.DerivedUSD.Mul(amount0))

	pair.TotalTransactions++
	if factory != nil {
		factory.TotalTransactions++
		if err := e.save(ctx, factory); err != nil {
			return liquidityAmounts{}, err
		}
	}
	if err := e.save(ctx, token0, token1, pair); err != nil {
		return liquidityAmounts{}, err
	}

	return liquidityAmounts{
		pair:      pair,
		token0:    token0,
		token1:    token1,
		amount0:   amount0,
		amount1:   amount1,
		amountUSD: amountUSD,
	}, nil
}
