package exchange

import (
	"context"

	"pairScope/internal/model"
	"pairScope/internal/units"
)

// handleSync replaces the pair reserves and rolls the change through token
// liquidity, prices and the factory total. Token and factory totals are
// adjusted by the difference, never re-summed.
func (e *Engine) handleSync(ctx context.Context, ev *model.TypedEvent, data model.SyncEventData) error {
	pair, err := e.pair(ctx, ev.Address)
	if err != nil {
		return err
	}
	token0, token1, err := e.pairTokens(ctx, pair)
	if err != nil {
		return err
	}
	factory, err := e.factory(ctx)
	if err != nil {
		return err
	}

	reserve0, err := amount(data.Reserve0, token0.Decimals)
	if err != nil {
		return err
	}
	reserve1, err := amount(data.Reserve1, token1.Decimals)
	if err != nil {
		return err
	}

	if pair.InScope {
		factory.TotalLiquidityUSD = factory.TotalLiquidityUSD.Sub(pair.TrackedReserveUSD)
	}
	token0.TotalLiquidity = token0.TotalLiquidity.Sub(pair.Reserve0)
	token1.TotalLiquidity = token1.TotalLiquidity.Sub(pair.Reserve1)

	pair.Reserve0 = reserve0
	pair.Reserve1 = reserve1
	pair.Token0Price = units.SafeDiv(pair.Reserve0, pair.Reserve1)
	pair.Token1Price = units.SafeDiv(pair.Reserve1, pair.Reserve0)
	// Prices below may route through this pair, so it is stored first.
	if err := e.save(ctx, pair); err != nil {
		return err
	}

	price0, err := e.pricer.USDPerToken(ctx, token0, pair.InScope)
	if err != nil {
		return err
	}
	token0.DerivedUSD = price0
	if err := e.save(ctx, token0); err != nil {
		return err
	}
	price1, err := e.pricer.USDPerToken(ctx, token1, pair.InScope)
	if err != nil {
		return err
	}
	token1.DerivedUSD = price1

	pair.TrackedReserveUSD = e.pricer.TrackedLiquidityUSD(pair.Reserve0, token0, pair.Reserve1, token1)
	pair.ReserveUSD = pair.Reserve0.Mul(token0.DerivedUSD).Add(pair.Reserve1.Mul(token1.DerivedUSD))

	if pair.InScope {
		factory.TotalLiquidityUSD = factory.TotalLiquidityUSD.Add(pair.TrackedReserveUSD)
		if err := e.save(ctx, factory); err != nil {
			return err
		}
	}

	token0.TotalLiquidity = token0.TotalLiquidity.Add(pair.Reserve0)
	token1.TotalLiquidity = token1.TotalLiquidity.Add(pair.Reserve1)

	return e.save(ctx, pair, token0, token1)
}
