package exchange

import (
	"context"
	"fmt"
	"strconv"

	"pairScope/internal/model"
	"pairScope/internal/storage"
)

const (
	secondsPerDay  = 86400
	secondsPerHour = 3600
)

type buckets struct {
	factoryDay *model.FactoryDayData
	pairDay    *model.PairDayData
	pairHour   *model.PairHourData
	token0Day  *model.TokenDayData
	token1Day  *model.TokenDayData
}

// updateBuckets runs every rollup touched by a Mint, Burn or Swap.
func (e *Engine) updateBuckets(ctx context.Context, ev *model.TypedEvent, pair *model.Pair, token0, token1 *model.Token) (buckets, error) {
	var (
		b   buckets
		err error
	)
	if pair.InScope {
		if b.factoryDay, err = e.rollups.UpdateFactoryDay(ctx, ev); err != nil {
			return buckets{}, err
		}
	}
	if b.pairDay, err = e.rollups.UpdatePairDay(ctx, ev); err != nil {
		return buckets{}, err
	}
	if b.pairHour, err = e.rollups.UpdatePairHour(ctx, ev); err != nil {
		return buckets{}, err
	}
	if b.token0Day, err = e.rollups.UpdateTokenDay(ctx, token0, ev); err != nil {
		return buckets{}, err
	}
	if b.token1Day, err = e.rollups.UpdateTokenDay(ctx, token1, ev); err != nil {
		return buckets{}, err
	}
	return b, nil
}

// StoreRollups keeps day and hour buckets in the entity store. Each update
// snapshots the current totals and counts one transaction.
type StoreRollups struct {
	store   storage.Store
	factory string
}

func NewStoreRollups(store storage.Store, factory string) *StoreRollups {
	return &StoreRollups{store: store, factory: model.NormalizeAddress(factory)}
}

func (r *StoreRollups) UpdateFactoryDay(ctx context.Context, ev *model.TypedEvent) (*model.FactoryDayData, error) {
	factory, err := storage.Get[model.Factory](ctx, r.store, model.KindFactory, r.factory)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, r.factory)
	}

	dayID := model.DayID(ev.Timestamp)
	id := strconv.FormatUint(dayID, 10)
	day, err := storage.Get[model.FactoryDayData](ctx, r.store, model.KindFactoryDayData, id)
	if err != nil {
		return nil, err
	}
	if day == nil {
		day = &model.FactoryDayData{ID: id, Date: dayID * secondsPerDay}
	}
	day.TotalLiquidityUSD = factory.TotalLiquidityUSD
	day.TotalVolumeUSD = factory.TotalVolumeUSD
	day.TotalTransactions = factory.TotalTransactions

	if err := storage.Put(ctx, r.store, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (r *StoreRollups) UpdatePairDay(ctx context.Context, ev *model.TypedEvent) (*model.PairDayData, error) {
	pair, err := r.pair(ctx, ev.Address)
	if err != nil {
		return nil, err
	}

	dayID := model.DayID(ev.Timestamp)
	id := model.BucketID(pair.ID, dayID)
	day, err := storage.Get[model.PairDayData](ctx, r.store, model.KindPairDayData, id)
	if err != nil {
		return nil, err
	}
	if day == nil {
		day = &model.PairDayData{
			ID:          id,
			Date:        dayID * secondsPerDay,
			PairAddress: pair.ID,
			Token0:      pair.Token0,
			Token1:      pair.Token1,
		}
	}
	day.TotalSupply = pair.TotalSupply
	day.Reserve0 = pair.Reserve0
	day.Reserve1 = pair.Reserve1
	day.ReserveUSD = pair.ReserveUSD
	day.DailyTxns++

	if err := storage.Put(ctx, r.store, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (r *StoreRollups) UpdatePairHour(ctx context.Context, ev *model.TypedEvent) (*model.PairHourData, error) {
	pair, err := r.pair(ctx, ev.Address)
	if err != nil {
		return nil, err
	}

	hourID := model.HourID(ev.Timestamp)
	id := model.BucketID(pair.ID, hourID)
	hour, err := storage.Get[model.PairHourData](ctx, r.store, model.KindPairHourData, id)
	if err != nil {
		return nil, err
	}
	if hour == nil {
		hour = &model.PairHourData{ID: id, HourStartUnix: hourID * secondsPerHour, Pair: pair.ID}
	}
	hour.TotalSupply = pair.TotalSupply
	hour.Reserve0 = pair.Reserve0
	hour.Reserve1 = pair.Reserve1
	hour.ReserveUSD = pair.ReserveUSD
	hour.HourlyTxns++

	if err := storage.Put(ctx, r.store, hour); err != nil {
		return nil, err
	}
	return hour, nil
}

func (r *StoreRollups) UpdateTokenDay(ctx context.Context, token *model.Token, ev *model.TypedEvent) (*model.TokenDayData, error) {
	dayID := model.DayID(ev.Timestamp)
	id := model.BucketID(token.ID, dayID)
	day, err := storage.Get[model.TokenDayData](ctx, r.store, model.KindTokenDayData, id)
	if err != nil {
		return nil, err
	}
	if day == nil {
		day = &model.TokenDayData{ID: id, Date: dayID * secondsPerDay, Token: token.ID}
	}
	day.PriceUSD = token.DerivedUSD
	day.TotalLiquidityToken = token.TotalLiquidity
	day.TotalLiquidityUSD = token.TotalLiquidity.Mul(token.DerivedUSD)
	day.DailyTxns++

	if err := storage.Put(ctx, r.store, day); err != nil {
		return nil, err
	}
	return day, nil
}

func (r *StoreRollups) pair(ctx context.Context, id string) (*model.Pair, error) {
	pair, err := storage.Get[model.Pair](ctx, r.store, model.KindPair, id)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, id)
	}
	return pair, nil
}
