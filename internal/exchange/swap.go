package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"pairScope/internal/model"
)

var two = decimal.NewFromInt(2)

// handleSwap accumulates trade volume on tokens, pair, factory and buckets
// and records the swap.
func (e *Engine) handleSwap(ctx context.Context, ev *model.TypedEvent, data model.SwapEventData) error {
	pair, err := e.pair(ctx, ev.Address)
	if err != nil {
		return err
	}
	token0, token1, err := e.pairTokens(ctx, pair)
	if err != nil {
		return err
	}
	factory, err := e.scopedFactory(ctx, pair)
	if err != nil {
		return err
	}

	amount0In, err := amount(data.Amount0In, token0.Decimals)
	if err != nil {
		return err
	}
	amount1In, err := amount(data.Amount1In, token1.Decimals)
	if err != nil {
		return err
	}
	amount0Out, err := amount(data.Amount0Out, token0.Decimals)
	if err != nil {
		return err
	}
	amount1Out, err := amount(data.Amount1Out, token1.Decimals)
	if err != nil {
		return err
	}
	amount0Total := amount0Out.Add(amount0In)
	amount1Total := amount1Out.Add(amount1In)

	// Each side prices the whole swap on its own; the two estimates are averaged.
	derivedAmountUSD := token1.DerivedUSD.Mul(amount1Total).
		Add(token0.DerivedUSD.Mul(amount0Total)).
		Div(two)
	trackedAmountUSD := e.pricer.TrackedVolumeUSD(amount0Total, token0, amount1Total, token1)

	token0.TradeVolume = token0.TradeVolume.Add(amount0Total)
	token0.TradeVolumeUSD = token0.TradeVolumeUSD.Add(trackedAmountUSD)
	token0.UntrackedVolumeUSD = token0.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token0.TotalTransactions++

	token1.TradeVolume = token1.TradeVolume.Add(amount1Total)
	token1.TradeVolumeUSD = token1.TradeVolumeUSD.Add(trackedAmountUSD)
	token1.UntrackedVolumeUSD = token1.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token1.TotalTransactions++

	pair.VolumeUSD = pair.VolumeUSD.Add(trackedAmountUSD)
	pair.VolumeToken0 = pair.VolumeToken0.Add(amount0Total)
	pair.VolumeToken1 = pair.VolumeToken1.Add(amount1Total)
	pair.UntrackedVolumeUSD = pair.UntrackedVolumeUSD.Add(derivedAmountUSD)
	pair.TotalTransactions++

	if factory != nil {
		factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedAmountUSD)
		factory.UntrackedVolumeUSD = factory.UntrackedVolumeUSD.Add(derivedAmountUSD)
		factory.TotalTransactions++
		if err := e.save(ctx, factory); err != nil {
			return err
		}
	}
	if err := e.save(ctx, pair, token0, token1); err != nil {
		return err
	}

	tx, err := e.transaction(ctx, ev)
	if err != nil {
		return err
	}
	swap := &model.Swap{
		ID:          model.RecordID(tx.ID, tx.SwapCount()),
		Transaction: tx.ID,
		Timestamp:   ev.Timestamp,
		Pair:        pair.ID,
		Sender:      model.NormalizeAddress(data.Sender),
		From:        ev.TxFrom,
		Amount0In:   amount0In,
		Amount1In:   amount1In,
		Amount0Out:  amount0Out,
		Amount1Out:  amount1Out,
		To:          model.NormalizeAddress(data.To),
		LogIndex:    ev.LogIndex,
		AmountUSD:   derivedAmountUSD,
	}
	if !trackedAmountUSD.IsZero() {
		swap.AmountUSD = trackedAmountUSD
	}
	if ev.BlockNumber > e.cfg.SwapStartBlock {
		if err := e.save(ctx, swap); err != nil {
			return err
		}
	}
	tx.AppendSwap(swap.ID)
	if pair.InScope {
		if err := e.save(ctx, tx); err != nil {
			return err
		}
	}

	b, err := e.updateBuckets(ctx, ev, pair, token0, token1)
	if err != nil {
		return err
	}

	if b.pairDay != nil {
		b.pairDay.DailyVolumeToken0 = b.pairDay.DailyVolumeToken0.Add(amount0Total)
		b.pairDay.DailyVolumeToken1 = b.pairDay.DailyVolumeToken1.Add(amount1Total)
		b.pairDay.DailyVolumeUSD = b.pairDay.DailyVolumeUSD.Add(trackedAmountUSD)
		if err := e.save(ctx, b.pairDay); err != nil {
			return err
		}
	}
	if b.pairHour != nil {
		b.pairHour.HourlyVolumeToken0 = b.pairHour.HourlyVolumeToken0.Add(amount0Total)
		b.pairHour.HourlyVolumeToken1 = b.pairHour.HourlyVolumeToken1.Add(amount1Total)
		b.pairHour.HourlyVolumeUSD = b.pairHour.HourlyVolumeUSD.Add(trackedAmountUSD)
		if err := e.save(ctx, b.pairHour); err != nil {
			return err
		}
	}
	if b.token0Day != nil {
		b.token0Day.DailyVolumeToken = b.token0Day.DailyVolumeToken.Add(amount0Total)
		b.token0Day.DailyVolumeUSD = b.token0Day.DailyVolumeUSD.Add(amount0Total.Mul(token0.DerivedUSD))
		if err := e.save(ctx, b.token0Day); err != nil {
			return err
		}
	}
	if b.token1Day != nil {
		b.token1Day.DailyVolumeToken = b.token1Day.DailyVolumeToken.Add(amount1Total)
		b.token1Day.DailyVolumeUSD = b.token1Day.DailyVolumeUSD.Add(amount1Total.Mul(token1.DerivedUSD))
		if err := e.save(ctx, b.token1Day); err != nil {
			return err
		}
	}
	if b.factoryDay != nil {
		b.factoryDay.DailyVolumeUSD = b.factoryDay.DailyVolumeUSD.Add(trackedAmountUSD)
		b.factoryDay.DailyVolumeUntracked = b.factoryDay.DailyVolumeUntracked.Add(derivedAmountUSD)
		if err := e.save(ctx, b.factoryDay); err != nil {
			return err
		}
	}
	return nil
}
