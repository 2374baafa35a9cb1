package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"pairScope/internal/model"
	"pairScope/internal/storage"
)

const (
	factory = "0xfactory"
	weth    = "0xweth"
	usdc    = "0xusdc"
	shib    = "0xshib"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestPricer(store storage.Store) *Pricer {
	return NewPricer(Config{
		TrackedFactory:   factory,
		ReferenceFactory: "0xother",
		Whitelist:        []string{weth, usdc},
		Stablecoins:      []string{usdc},
		MinLiquidityUSD:  dec("1000"),
	}, store)
}

func TestUSDPerTokenStablecoin(t *testing.T) {
	p := newTestPricer(storage.NewMemoryStore())
	got, err := p.USDPerToken(context.Background(), &model.Token{ID: usdc}, true)
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1, got %s", got)
	}
}

func TestUSDPerTokenThroughWhitelistedPair(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_ = storage.Put(ctx, store, &model.Token{ID: weth, DerivedUSD: dec("2000")})
	_ = storage.Put(ctx, store, &model.Pair{
		ID:          "0xpair",
		Token0:      shib,
		Token1:      weth,
		ReserveUSD:  dec("50000"),
		Token0Price: dec("100000"),
		Token1Price: dec("0.00001"),
	})
	_ = storage.Put(ctx, store, &model.PairLookup{ID: model.PairLookupID(factory, shib, weth), Pair: "0xpair"})

	p := newTestPricer(store)
	got, err := p.USDPerToken(ctx, &model.Token{ID: shib}, true)
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if !got.Equal(dec("0.02")) {
		t.Fatalf("expected 0.02, got %s", got)
	}

	got, err = p.USDPerToken(ctx, &model.Token{ID: shib}, false)
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("reference factory has no pair, expected zero, got %s", got)
	}
}

func TestUSDPerTokenBelowMinimumLiquidity(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_ = storage.Put(ctx, store, &model.Token{ID: weth, DerivedUSD: dec("2000")})
	_ = storage.Put(ctx, store, &model.Pair{ID: "0xpair", Token0: shib, Token1: weth, ReserveUSD: dec("10"), Token1Price: dec("1")})
	_ = storage.Put(ctx, store, &model.PairLookup{ID: model.PairLookupID(factory, shib, weth), Pair: "0xpair"})

	got, err := newTestPricer(store).USDPerToken(ctx, &model.Token{ID: shib}, true)
	if err != nil {
		t.Fatalf("price failed: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero price for thin pair, got %s", got)
	}
}

func TestTrackedVolumeUSD(t *testing.T) {
	p := newTestPricer(storage.NewMemoryStore())
	wethToken := &model.Token{ID: weth, DerivedUSD: dec("2000")}
	usdcToken := &model.Token{ID: usdc, DerivedUSD: dec("1")}
	shibToken := &model.Token{ID: shib, DerivedUSD: dec("0.5")}

	if got := p.TrackedVolumeUSD(dec("1"), wethToken, dec("2000"), usdcToken); !got.Equal(dec("2000")) {
		t.Fatalf("both whitelisted: expected 2000, got %s", got)
	}
	if got := p.TrackedVolumeUSD(dec("10"), shibToken, dec("1"), wethToken); !got.Equal(dec("2000")) {
		t.Fatalf("one whitelisted: expected 2000, got %s", got)
	}
	if got := p.TrackedVolumeUSD(dec("10"), shibToken, dec("10"), shibToken); !got.IsZero() {
		t.Fatalf("none whitelisted: expected zero, got %s", got)
	}
}

func TestTrackedLiquidityUSD(t *testing.T) {
	p := newTestPricer(storage.NewMemoryStore())
	wethToken := &model.Token{ID: weth, DerivedUSD: dec("2000")}
	shibToken := &model.Token{ID: shib, DerivedUSD: dec("0.5")}

	if got := p.TrackedLiquidityUSD(dec("100"), shibToken, dec("1"), wethToken); !got.Equal(dec("4000")) {
		t.Fatalf("expected doubled whitelisted side 4000, got %s", got)
	}
	if got := p.TrackedLiquidityUSD(dec("100"), shibToken, dec("100"), shibToken); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}
