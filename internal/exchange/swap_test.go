package exchange

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"pairScope/internal/model"
	"pairScope/internal/storage"
)

func TestSwapAccumulatesTrackedVolume(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)
	syncWethUSDC(h)
	syncWethUSDC(h)

	tx := h.nextTx()
	h.apply(pairAddr, tx, 5, model.SwapEventData{
		Sender:     routerAddr,
		Amount0In:  "1000000000000000000",
		Amount1In:  "0",
		Amount0Out: "0",
		Amount1Out: "2000000000",
		To:         userAddr,
	})

	swap := mustGet[model.Swap](h, model.KindSwap, tx+"-0")
	expectDecimal(t, "swap usd", swap.AmountUSD, "2000")
	if swap.From != userAddr || swap.Sender != routerAddr || swap.LogIndex != 5 {
		t.Fatalf("unexpected swap: %+v", swap)
	}
	if !reflect.DeepEqual(h.transaction(tx).Swaps(), []string{tx + "-0"}) {
		t.Fatalf("swap not linked to transaction")
	}

	pair := h.pair(pairAddr)
	expectDecimal(t, "pair volume usd", pair.VolumeUSD, "2000")
	expectDecimal(t, "pair untracked", pair.UntrackedVolumeUSD, "2000")
	expectDecimal(t, "pair volume0", pair.VolumeToken0, "1")
	expectDecimal(t, "pair volume1", pair.VolumeToken1, "2000")

	factory := h.factory()
	expectDecimal(t, "factory volume", factory.TotalVolumeUSD, "2000")
	if factory.TotalTransactions != 1 {
		t.Fatalf("expected 1 factory transaction, got %d", factory.TotalTransactions)
	}

	weth := h.token(wethAddr)
	expectDecimal(t, "weth volume", weth.TradeVolume, "1")
	expectDecimal(t, "weth volume usd", weth.TradeVolumeUSD, "2000")

	dayID := model.DayID(testTimestamp)
	pairDay := mustGet[model.PairDayData](h, model.KindPairDayData, model.BucketID(pairAddr, dayID))
	expectDecimal(t, "pair day volume", pairDay.DailyVolumeUSD, "2000")
	expectDecimal(t, "pair day reserve usd", pairDay.ReserveUSD, "8000")
	if pairDay.DailyTxns != 1 {
		t.Fatalf("expected 1 daily txn, got %d", pairDay.DailyTxns)
	}
	pairHour := mustGet[model.PairHourData](h, model.KindPairHourData, model.BucketID(pairAddr, model.HourID(testTimestamp)))
	expectDecimal(t, "pair hour volume0", pairHour.HourlyVolumeToken0, "1")
	tokenDay := mustGet[model.TokenDayData](h, model.KindTokenDayData, model.BucketID(wethAddr, dayID))
	expectDecimal(t, "token day volume usd", tokenDay.DailyVolumeUSD, "2000")
	expectDecimal(t, "token day price", tokenDay.PriceUSD, "2000")
	factoryDay := mustGet[model.FactoryDayData](h, model.KindFactoryDayData, strconv.FormatUint(dayID, 10))
	expectDecimal(t, "factory day volume", factoryDay.DailyVolumeUSD, "2000")
	expectDecimal(t, "factory day liquidity", factoryDay.TotalLiquidityUSD, "8000")
}

func TestSwapFallsBackToDerivedUSD(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, otherPairAddr, daiAddr, wethAddr)
	setDerived(h, daiAddr, "2")
	setDerived(h, wethAddr, "3")

	tx := h.nextTx()
	h.apply(otherPairAddr, tx, 0, model.SwapEventData{
		Sender:     routerAddr,
		Amount0In:  "1000000000000000000",
		Amount1In:  "0",
		Amount0Out: "0",
		Amount1Out: "2000000000000000000",
		To:         userAddr,
	})

	swap := mustGet[model.Swap](h, model.KindSwap, tx+"-0")
	expectDecimal(t, "swap usd", swap.AmountUSD, "4")
	pair := h.pair(otherPairAddr)
	expectDecimal(t, "tracked volume", pair.VolumeUSD, "0")
	expectDecimal(t, "untracked volume", pair.UntrackedVolumeUSD, "4")
}

func TestSwapAtLegacyCutoffSkipsRecord(t *testing.T) {
	h := newHarness(t)
	h.createPair(trackedFactory, pairAddr, wethAddr, usdcAddr)

	tx := h.nextTx()
	h.applyAt(DefaultSwapStartBlock, pairAddr, tx, 0, model.SwapEventData{
		Sender:     routerAddr,
		Amount0In:  "1",
		Amount1In:  "0",
		Amount0Out: "0",
		Amount1Out: "1",
		To:         userAddr,
	})

	if exists(h, model.KindSwap, tx+"-0") {
		t.Fatalf("swap at the cutoff block must not be stored")
	}
	if got := h.transaction(tx).SwapCount(); got != 1 {
		t.Fatalf("swap id must still be linked, got %d", got)
	}
	if h.pair(pairAddr).TotalTransactions != 1 || h.factory().TotalTransactions != 1 {
		t.Fatalf("counters must still be updated")
	}
}

func setDerived(h *harness, address, price string) {
	h.t.Helper()
	token := h.token(address)
	token.DerivedUSD = decimal.RequireFromString(price)
	if err := storage.Put(h.ctx, h.store, token); err != nil {
		h.t.Fatalf("put token: %v", err)
	}
}
