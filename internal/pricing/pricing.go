package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"pairScope/internal/model"
	"pairScope/internal/storage"
)

// Config lists the reference tokens used for USD derivation.
type Config struct {
	TrackedFactory   string
	ReferenceFactory string
	// Whitelist is walked in order; the first qualifying pair wins.
	Whitelist       []string
	Stablecoins     []string
	MinLiquidityUSD decimal.Decimal
}

// Pricer derives USD prices through whitelisted pairs held in the store.
type Pricer struct {
	cfg       Config
	store     storage.Store
	whitelist map[string]struct{}
	stable    map[string]struct{}
}

func NewPricer(cfg Config, store storage.Store) *Pricer {
	cfg.TrackedFactory = model.NormalizeAddress(cfg.TrackedFactory)
	cfg.ReferenceFactory = model.NormalizeAddress(cfg.ReferenceFactory)
	cfg.Whitelist = normalizeAll(cfg.Whitelist)
	cfg.Stablecoins = normalizeAll(cfg.Stablecoins)

	return &Pricer{
		cfg:       cfg,
		store:     store,
		whitelist: toSet(cfg.Whitelist),
		stable:    toSet(cfg.Stablecoins),
	}
}

// Whitelisted reports whether token is a trusted reference token.
func (p *Pricer) Whitelisted(token string) bool {
	_, ok := p.whitelist[token]
	return ok
}

// USDPerToken returns the USD price of one unit of token, or zero when no
// whitelisted pair with enough liquidity exists on the chosen factory.
func (p *Pricer) USDPerToken(ctx context.Context, token *model.Token, inScope bool) (decimal.Decimal, error) {
	if _, ok := p.stable[token.ID]; ok {
		return decimal.NewFromInt(1), nil
	}

	factory := p.cfg.ReferenceFactory
	if inScope {
		factory = p.cfg.TrackedFactory
	}

	for _, ref := range p.cfg.Whitelist {
		if ref == token.ID {
			continue
		}
		lookup, err := storage.Get[model.PairLookup](ctx, p.store, model.KindPairLookup, model.PairLookupID(factory, token.ID, ref))
		if err != nil {
			return decimal.Zero, err
		}
		if lookup == nil {
			continue
		}
		pair, err := storage.Get[model.Pair](ctx, p.store, model.KindPair, lookup.Pair)
		if err != nil {
			return decimal.Zero, err
		}
		if pair == nil || !pair.ReserveUSD.GreaterThan(p.cfg.MinLiquidityUSD) {
			continue
		}

		switch token.ID {
		case pair.Token0:
			other, err := storage.Get[model.Token](ctx, p.store, model.KindToken, pair.Token1)
			if err != nil {
				return decimal.Zero, err
			}
			if other != nil {
				return pair.Token1Price.Mul(other.DerivedUSD), nil
			}
		case pair.Token1:
			other, err := storage.Get[model.Token](ctx, p.store, model.KindToken, pair.Token0)
			if err != nil {
				return decimal.Zero, err
			}
			if other != nil {
				return pair.Token0Price.Mul(other.DerivedUSD), nil
			}
		}
	}
	return decimal.Zero, nil
}

// TrackedVolumeUSD values a swap through whitelisted sides only.
func (p *Pricer) TrackedVolumeUSD(amount0 decimal.Decimal, token0 *model.Token, amount1 decimal.Decimal, token1 *model.Token) decimal.Decimal {
	price0 := token0.DerivedUSD
	price1 := token1.DerivedUSD
	w0 := p.Whitelisted(token0.ID)
	w1 := p.Whitelisted(token1.ID)

	switch {
	case w0 && w1:
		return amount0.Mul(price0).Add(amount1.Mul(price1)).Div(decimal.NewFromInt(2))
	case w0:
		return amount0.Mul(price0)
	case w1:
		return amount1.Mul(price1)
	default:
		return decimal.Zero
	}
}

// TrackedLiquidityUSD values reserves through whitelisted sides only.
func (p *Pricer) TrackedLiquidityUSD(reserve0 decimal.Decimal, token0 *model.Token, reserve1 decimal.Decimal, token1 *model.Token) decimal.Decimal {
	price0 := token0.DerivedUSD
	price1 := token1.DerivedUSD
	w0 := p.Whitelisted(token0.ID)
	w1 := p.Whitelisted(token1.ID)

	two := decimal.NewFromInt(2)
	switch {
	case w0 && w1:
		return reserve0.Mul(price0).Add(reserve1.Mul(price1))
	case w0:
		return reserve0.Mul(price0).Mul(two)
	case w1:
		return reserve1.Mul(price1).Mul(two)
	default:
		return decimal.Zero
	}
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = model.NormalizeAddress(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
