package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pairScope/internal/model"
	"pairScope/internal/storage"
	"pairScope/internal/units"
)

// minimumLiquidity is locked by the pair on its first mint.
var minimumLiquidity = big.NewInt(1000)

// handleTransfer turns liquidity token transfers into pending mints and
// burns. The pair's own Mint and Burn events complete them later.
func (e *Engine) handleTransfer(ctx context.Context, ev *model.TypedEvent, data model.TransferEventData) error {
	from := model.NormalizeAddress(data.From)
	to := model.NormalizeAddress(data.To)
	raw, err := units.ParseAmount(data.Value)
	if err != nil {
		return fmt.Errorf("%w: transfer value: %v", ErrInvalidPayload, err)
	}

	if from == model.ZeroAddress && to == model.ZeroAddress && raw.Cmp(minimumLiquidity) == 0 {
		e.logger.Debug("skip minimum liquidity transfer", zap.String("pair", ev.Address), zap.String("tx_hash", ev.TxHash))
		return nil
	}

	pair, err := e.pair(ctx, ev.Address)
	if err != nil {
		return err
	}
	value := units.ToDecimal(raw, units.LiquidityDecimals)

	tx, err := e.transaction(ctx, ev)
	if err != nil {
		return err
	}

	if from == model.ZeroAddress {
		pair.TotalSupply = pair.TotalSupply.Add(value)
		if err := e.openMint(ctx, ev, pair, tx, to, value); err != nil {
			return err
		}
	}

	if to == pair.ID {
		if err := e.openBurn(ctx, ev, pair, tx, from, value); err != nil {
			return err
		}
	}

	if to == model.ZeroAddress && from == pair.ID {
		pair.TotalSupply = pair.TotalSupply.Sub(value)
		if err := e.closeBurn(ctx, ev, pair, tx, value); err != nil {
			return err
		}
	}

	if err := e.save(ctx, pair); err != nil {
		return err
	}
	if pair.InScope {
		return e.save(ctx, tx)
	}
	return nil
}

// openMint starts a pending mint unless the last one is still pending.
func (e *Engine) openMint(ctx context.Context, ev *model.TypedEvent, pair *model.Pair, tx *model.Transaction, to string, value decimal.Decimal) error {
	if lastID, ok := tx.LastMint(); ok {
		last, err := e.mint(ctx, lastID)
		if err != nil {
			return err
		}
		if !last.Complete() {
			return nil
		}
	}

	mint := &model.Mint{
		ID:          model.RecordID(tx.ID, tx.MintCount()),
		Transaction: tx.ID,
		Timestamp:   ev.Timestamp,
		Pair:        pair.ID,
		To:          to,
		Liquidity:   value,
		State:       model.MintPending,
	}
	tx.AppendMint(mint.ID)
	if pair.InScope {
		return e.save(ctx, mint)
	}
	return nil
}

// openBurn records liquidity sent to the pair ahead of its burn call.
func (e *Engine) openBurn(ctx context.Context, ev *model.TypedEvent, pair *model.Pair, tx *model.Transaction, from string, value decimal.Decimal) error {
	burn := &model.Burn{
		ID:            model.RecordID(tx.ID, tx.BurnCount()),
		Transaction:   tx.ID,
		Timestamp:     ev.Timestamp,
		Pair:          pair.ID,
		Liquidity:     value,
		Sender:        from,
		To:            pair.ID,
		NeedsComplete: true,
	}
	tx.AppendBurn(burn.ID)
	if pair.InScope {
		return e.save(ctx, burn)
	}
	return nil
}

// closeBurn resolves the burn completed by a transfer from the pair to the
// zero address, folding in a pending fee mint.
func (e *Engine) closeBurn(ctx context.Context, ev *model.TypedEvent, pair *model.Pair, tx *model.Transaction, value decimal.Decimal) error {
	var burn *model.Burn
	reused := false
	if lastID, ok := tx.LastBurn(); ok {
		last, err := e.burn(ctx, lastID)
		if err != nil {
			return err
		}
		if last.NeedsComplete {
			burn = last
			reused = true
		}
	}
	if burn == nil {
		burn = &model.Burn{
			ID:          model.RecordID(tx.ID, tx.BurnCount()),
			Transaction: tx.ID,
			Timestamp:   ev.Timestamp,
			Pair:        pair.ID,
			Liquidity:   value,
		}
	}

	if err := e.retractPendingMint(ctx, pair, tx, burn); err != nil {
		return err
	}
	burn.NeedsComplete = false

	if reused {
		tx.ReplaceLastBurn(burn.ID)
	} else {
		tx.AppendBurn(burn.ID)
	}
	if pair.InScope {
		return e.save(ctx, burn)
	}
	return nil
}

// retractPendingMint moves a pending fee mint onto burn. The Mint entity is
// removed, popped from tx and tx is stored again in one step.
func (e *Engine) retractPendingMint(ctx context.Context, pair *model.Pair, tx *model.Transaction, burn *model.Burn) error {
	lastID, ok := tx.LastMint()
	if !ok {
		return nil
	}
	mint, err := e.mint(ctx, lastID)
	if err != nil {
		return err
	}
	if mint.Complete() {
		return nil
	}

	fee := mint.Liquidity
	burn.FeeTo = mint.To
	burn.FeeLiquidity = &fee

	if err := storage.Delete(ctx, e.store, model.KindMint, mint.ID); err != nil {
		return err
	}
	tx.PopMint()
	if pair.InScope {
		return e.save(ctx, tx)
	}
	return nil
}
