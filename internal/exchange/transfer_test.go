package exchange

import (
	"bytes"
	"reflect"
	"testing"

	"pairScope/internal/model"
)

const (
	oneLP  = "1000000000000000000"
	halfLP = "500000000000000000"
	feeLP  = "1000000000000000"
)

func TestMinimumLiquidityTransferIsSkipped(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	before := h.snapshot()
	tx := h.nextTx()
	h.apply(pairAddr, tx, 1, model.TransferEventData{From: model.ZeroAddress, To: model.ZeroAddress, Value: "1000"})

	if !bytes.Equal(before, h.snapshot()) {
		t.Fatalf("minimum liquidity transfer mutated the store")
	}
	if exists(h, model.KindTransaction, tx) {
		t.Fatalf("transaction must not be created")
	}
}

func TestMintCorrelation(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	tx := h.nextTx()
	h.apply(pairAddr, tx, 1, model.TransferEventData{From: model.ZeroAddress, To: userAddr, Value: oneLP})

	mint := mustGet[model.Mint](h, model.KindMint, tx+"-0")
	if mint.State != model.MintPending || mint.Sender != "" {
		t.Fatalf("expected pending mint, got %+v", mint)
	}
	expectDecimal(t, "total supply", h.pair(pairAddr).TotalSupply, "1")

	h.apply(pairAddr, tx, 3, model.MintEventData{Sender: routerAddr, Amount0: "2000000000000000000", Amount1: "4000000000"})

	mint = mustGet[model.Mint](h, model.KindMint, tx+"-0")
	if mint.State != model.MintComplete || mint.Sender != routerAddr || mint.To != userAddr {
		t.Fatalf("unexpected mint: %+v", mint)
	}
	expectDecimal(t, "liquidity", mint.Liquidity, "1")
	expectDecimal(t, "amount0", mint.Amount0, "2")
	expectDecimal(t, "amount1", mint.Amount1, "4000")
	if mint.LogIndex != 3 {
		t.Fatalf("expected log index 3, got %d", mint.LogIndex)
	}

	pair := h.pair(pairAddr)
	if pair.TotalTransactions != 1 || h.factory().TotalTransactions != 1 {
		t.Fatalf("expected one transaction counted on pair and factory")
	}
	if h.token(wethAddr).TotalTransactions != 1 {
		t.Fatalf("expected token transaction counted")
	}
}

func TestSecondMintInTransactionOpensNewRecord(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	tx := h.nextTx()
	h.apply(pairAddr, tx, 1, model.TransferEventData{From: model.ZeroAddress, To: userAddr, Value: oneLP})
	h.apply(pairAddr, tx, 2, model.MintEventData{Sender: routerAddr, Amount0: "1", Amount1: "1"})
	h.apply(pairAddr, tx, 3, model.TransferEventData{From: model.ZeroAddress, To: userAddr, Value: halfLP})

	got := h.transaction(tx).Mints()
	want := []string{tx + "-0", tx + "-1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected mints %v, got %v", want, got)
	}
}

func TestTwoStepBurnReusesRecordAndFoldsFeeMint(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	tx := h.nextTx()
	h.apply(pairAddr, tx, 1, model.TransferEventData{From: userAddr, To: pairAddr, Value: oneLP})

	burn := mustGet[model.Burn](h, model.KindBurn, tx+"-0")
	if !burn.NeedsComplete || burn.Sender != userAddr || burn.To != pairAddr {
		t.Fatalf("unexpected pre-burn record: %+v", burn)
	}

	h.apply(pairAddr, tx, 2, model.TransferEventData{From: model.ZeroAddress, To: feeToAddr, Value: feeLP})
	if !exists(h, model.KindMint, tx+"-0") {
		t.Fatalf("fee mint should be pending before the burn transfer")
	}

	h.apply(pairAddr, tx, 3, model.TransferEventData{From: pairAddr, To: model.ZeroAddress, Value: oneLP})

	record := h.transaction(tx)
	if record.MintCount() != 0 {
		t.Fatalf("fee mint must be popped, got %v", record.Mints())
	}
	if !reflect.DeepEqual(record.Burns(), []string{tx + "-0"}) {
		t.Fatalf("burn must be reused, got %v", record.Burns())
	}
	if exists(h, model.KindMint, tx+"-0") {
		t.Fatalf("fee mint entity must be removed")
	}

	burn = mustGet[model.Burn](h, model.KindBurn, tx+"-0")
	if burn.NeedsComplete {
		t.Fatalf("burn must be complete after the zero transfer")
	}
	if burn.FeeTo != feeToAddr || burn.FeeLiquidity == nil {
		t.Fatalf("fee fields missing: %+v", burn)
	}
	expectDecimal(t, "fee liquidity", *burn.FeeLiquidity, "0.001")
	expectDecimal(t, "total supply", h.pair(pairAddr).TotalSupply, "-0.999")

	h.apply(pairAddr, tx, 4, model.BurnEventData{Sender: routerAddr, Amount0: "1000000000000000000", Amount1: "2000000000", To: userAddr})

	burn = mustGet[model.Burn](h, model.KindBurn, tx+"-0")
	expectDecimal(t, "amount0", burn.Amount0, "1")
	expectDecimal(t, "amount1", burn.Amount1, "2000")
	if burn.Sender != userAddr || burn.LogIndex != 4 {
		t.Fatalf("burn finalizer must keep correlator sender: %+v", burn)
	}
}

func TestDirectBurnCreatesCompleteRecord(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	tx := h.nextTx()
	h.apply(pairAddr, tx, 1, model.TransferEventData{From: pairAddr, To: model.ZeroAddress, Value: halfLP})

	burn := mustGet[model.Burn](h, model.KindBurn, tx+"-0")
	if burn.NeedsComplete || burn.FeeTo != "" || burn.FeeLiquidity != nil {
		t.Fatalf("unexpected direct burn: %+v", burn)
	}
	expectDecimal(t, "liquidity", burn.Liquidity, "0.5")
}

func TestOutOfScopeTransferKeepsOnlyPairSupply(t *testing.T) {
	h := newHarness(t)
	h.createPair(referenceFactory, refPairAddr, wethAddr, usdcAddr)

	tx := h.nextTx()
	h.apply(refPairAddr, tx, 1, model.TransferEventData{From: model.ZeroAddress, To: userAddr, Value: oneLP})

	expectDecimal(t, "total supply", h.pair(refPairAddr).TotalSupply, "1")
	if exists(h, model.KindTransaction, tx) || exists(h, model.KindMint, tx+"-0") {
		t.Fatalf("out-of-scope transaction and mint must not be stored")
	}
}
