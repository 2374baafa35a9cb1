package exchange

import (
	"testing"

	"pairScope/internal/model"
)

func TestPairCreatedOnTrackedFactory(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	pair := h.pair(pairAddr)
	if !pair.InScope || pair.Factory != trackedFactory {
		t.Fatalf("unexpected scope: %+v", pair)
	}
	if pair.Name != "WETH-USDC" || pair.Token0 != wethAddr || pair.Token1 != usdcAddr {
		t.Fatalf("unexpected pair wiring: %+v", pair)
	}
	if pair.CreatedAtBlock != testBlock || pair.CreatedAtTimestamp != testTimestamp {
		t.Fatalf("unexpected creation info: %+v", pair)
	}
	if h.token(usdcAddr).Decimals != 6 {
		t.Fatalf("expected usdc decimals 6")
	}
	if got := h.factory().TotalPairs; got != 1 {
		t.Fatalf("expected 1 pair, got %d", got)
	}

	ok, err := h.engine.Registry().Contains(h.ctx, pairAddr)
	if err != nil || !ok {
		t.Fatalf("pair not registered: %v", err)
	}
	lookup := mustGet[model.PairLookup](h, model.KindPairLookup, model.PairLookupID(trackedFactory, usdcAddr, wethAddr))
	if lookup.Pair != pairAddr {
		t.Fatalf("unexpected lookup: %+v", lookup)
	}
}

func TestPairCreatedOnReferenceFactory(t *testing.T) {
	h := newHarness(t)
	h.createPair(referenceFactory, refPairAddr, daiAddr, "0x00000000000000000000000000000000000000e9")

	if exists(h, model.KindFactory, trackedFactory) {
		t.Fatalf("reference factory must not create the factory aggregate")
	}
	pair := h.pair(refPairAddr)
	if pair.InScope {
		t.Fatalf("reference pair must be out of scope")
	}

	unknown := h.token("0x00000000000000000000000000000000000000e9")
	if unknown.Decimals != 0 {
		t.Fatalf("expected default decimals 0, got %d", unknown.Decimals)
	}
	if unknown.Symbol != unknownText || unknown.Name != unknownText {
		t.Fatalf("expected unknown metadata, got %+v", unknown)
	}
	if pair.Name != "unknown-unknown" {
		t.Fatalf("unexpected pair name %q", pair.Name)
	}
}

func TestPairCreatedTrackedDecimalsFailure(t *testing.T) {
	h := newHarness(t)
	broken := "0x00000000000000000000000000000000000000e9"
	h.createPair(trackedFactory, pairAddr, wethAddr, broken)

	if exists(h, model.KindPair, pairAddr) {
		t.Fatalf("pair must not be created when decimals fail")
	}
	if !exists(h, model.KindToken, wethAddr) {
		t.Fatalf("token created before the failure stays stored")
	}
	if exists(h, model.KindToken, broken) {
		t.Fatalf("token without decimals must not be stored")
	}
	if got := h.factory().TotalPairs; got != 0 {
		t.Fatalf("expected no pair counted, got %d", got)
	}
	ok, _ := h.engine.Registry().Contains(h.ctx, pairAddr)
	if ok {
		t.Fatalf("failed pair must not be registered")
	}
}

func TestRegistryReloadsFromStore(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	reg := NewRegistry(h.store)
	addresses, err := reg.Addresses(h.ctx)
	if err != nil {
		t.Fatalf("addresses: %v", err)
	}
	if len(addresses) != 1 || addresses[0] != pairAddr {
		t.Fatalf("unexpected addresses: %v", addresses)
	}
}
