package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Entity kinds as used for store keys.
const (
	KindToken          = "token"
	KindPair           = "pair"
	KindFactory        = "factory"
	KindTransaction    = "transaction"
	KindMint           = "mint"
	KindBurn           = "burn"
	KindSwap           = "swap"
	KindPairLookup     = "pair_lookup"
	KindDataSource     = "data_source"
	KindPairDayData    = "pair_day_data"
	KindPairHourData   = "pair_hour_data"
	KindTokenDayData   = "token_day_data"
	KindFactoryDayData = "factory_day_data"
	KindIndexerState   = "indexer_state"
)

// AllKinds lists every entity kind in dump order.
var AllKinds = []string{
	KindFactory, KindToken, KindPair, KindPairLookup, KindDataSource,
	KindTransaction, KindMint, KindBurn, KindSwap,
	KindFactoryDayData, KindPairDayData, KindPairHourData, KindTokenDayData,
	KindIndexerState,
}

// ZeroAddress is the lower-case zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Entity is anything persisted in the entity store.
type Entity interface {
	EntityKind() string
	EntityID() string
}

// NormalizeAddress lower-cases a hex address so that ids are stable.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// RecordID builds the txHash-index id shared by mints, burns and swaps.
func RecordID(txHash string, index int) string {
	return fmt.Sprintf("%s-%d", txHash, index)
}

// Token is an ERC20 seen on either side of a pair.
type Token struct {
	ID                 string          `json:"id"`
	Symbol             string          `json:"symbol"`
	Name               string          `json:"name"`
	Decimals           int32           `json:"decimals"`
	TradeVolume        decimal.Decimal `json:"trade_volume"`
	TradeVolumeUSD     decimal.Decimal `json:"trade_volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `json:"untracked_volume_usd"`
	TotalTransactions  uint64          `json:"total_transactions"`
	TotalLiquidity     decimal.Decimal `json:"total_liquidity"`
	DerivedUSD         decimal.Decimal `json:"derived_usd"`
}

func (t *Token) EntityKind() string { return KindToken }
func (t *Token) EntityID() string   { return t.ID }

// Pair is the accounting record of one liquidity pool.
type Pair struct {
	ID                 string          `json:"id"`
	Factory            string          `json:"factory"`
	Token0             string          `json:"token0"`
	Token1             string          `json:"token1"`
	Name               string          `json:"name"`
	Reserve0           decimal.Decimal `json:"reserve0"`
	Reserve1           decimal.Decimal `json:"reserve1"`
	TotalSupply        decimal.Decimal `json:"total_supply"`
	ReserveUSD         decimal.Decimal `json:"reserve_usd"`
	TrackedReserveUSD  decimal.Decimal `json:"tracked_reserve_usd"`
	Token0Price        decimal.Decimal `json:"token0_price"`
	Token1Price        decimal.Decimal `json:"token1_price"`
	VolumeToken0       decimal.Decimal `json:"volume_token0"`
	VolumeToken1       decimal.Decimal `json:"volume_token1"`
	VolumeUSD          decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `json:"untracked_volume_usd"`
	TotalTransactions  uint64          `json:"total_transactions"`
	CreatedAtTimestamp uint64          `json:"created_at_timestamp"`
	CreatedAtBlock     uint64          `json:"created_at_block"`
	InScope            bool            `json:"in_scope"`
}

func (p *Pair) EntityKind() string { return KindPair }
func (p *Pair) EntityID() string   { return p.ID }

// Factory is the aggregate of every in-scope pair. Its id is the tracked
// factory address.
type Factory struct {
	ID                 string          `json:"id"`
	TotalPairs         uint64          `json:"total_pairs"`
	TotalTransactions  uint64          `json:"total_transactions"`
	TotalVolumeUSD     decimal.Decimal `json:"total_volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `json:"untracked_volume_usd"`
	TotalLiquidityUSD  decimal.Decimal `json:"total_liquidity_usd"`
}

func (f *Factory) EntityKind() string { return KindFactory }
func (f *Factory) EntityID() string   { return f.ID }

// Transaction groups the logical records produced by one chain transaction.
// The id lists are only reachable through copies and explicit mutators.
type Transaction struct {
	ID          string
	BlockNumber uint64
	Timestamp   uint64
	mints       []string
	burns       []string
	swaps       []string
}

func (t *Transaction) EntityKind() string { return KindTransaction }
func (t *Transaction) EntityID() string   { return t.ID }

func (t *Transaction) Mints() []string { return append([]string(nil), t.mints...) }
func (t *Transaction) Burns() []string { return append([]string(nil), t.burns...) }
func (t *Transaction) Swaps() []string { return append([]string(nil), t.swaps...) }

func (t *Transaction) MintCount() int { return len(t.mints) }
func (t *Transaction) BurnCount() int { return len(t.burns) }
func (t *Transaction) SwapCount() int { return len(t.swaps) }

// LastMint returns the most recent mint id.
func (t *Transaction) LastMint() (string, bool) { return last(t.mints) }

// LastBurn returns the most recent burn id.
func (t *Transaction) LastBurn() (string, bool) { return last(t.burns) }

func (t *Transaction) AppendMint(id string) { t.mints = append(t.mints, id) }
func (t *Transaction) AppendBurn(id string) { t.burns = append(t.burns, id) }
func (t *Transaction) AppendSwap(id string) { t.swaps = append(t.swaps, id) }

// ReplaceLastBurn swaps the id at the tail of the burn list.
func (t *Transaction) ReplaceLastBurn(id string) {
	if len(t.burns) == 0 {
		t.burns = append(t.burns, id)
		return
	}
	t.burns[len(t.burns)-1] = id
}

// PopMint removes and returns the tail of the mint list.
func (t *Transaction) PopMint() (string, bool) {
	id, ok := last(t.mints)
	if ok {
		t.mints = t.mints[:len(t.mints)-1]
	}
	return id, ok
}

func last(ids []string) (string, bool) {
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

type transactionJSON struct {
	ID          string   `json:"id"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	Mints       []string `json:"mints"`
	Burns       []string `json:"burns"`
	Swaps       []string `json:"swaps"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:          t.ID,
		BlockNumber: t.BlockNumber,
		Timestamp:   t.Timestamp,
		Mints:       nonNil(t.mints),
		Burns:       nonNil(t.burns),
		Swaps:       nonNil(t.swaps),
	})
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transaction{
		ID:          raw.ID,
		BlockNumber: raw.BlockNumber,
		Timestamp:   raw.Timestamp,
		mints:       raw.Mints,
		burns:       raw.Burns,
		swaps:       raw.Swaps,
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// MintState tracks whether the pair's Mint event has finalized a record.
type MintState string

const (
	MintPending  MintState = "pending"
	MintComplete MintState = "complete"
)

// Mint is a logical liquidity add.
type Mint struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pair        string          `json:"pair"`
	To          string          `json:"to"`
	Liquidity   decimal.Decimal `json:"liquidity"`
	Sender      string          `json:"sender,omitempty"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	LogIndex    uint64          `json:"log_index"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	State       MintState       `json:"state"`
}

func (m *Mint) EntityKind() string { return KindMint }
func (m *Mint) EntityID() string   { return m.ID }

// Complete reports whether the record has been finalized.
func (m *Mint) Complete() bool { return m.State == MintComplete }

// Burn is a logical liquidity removal.
type Burn struct {
	ID            string           `json:"id"`
	Transaction   string           `json:"transaction"`
	Timestamp     uint64           `json:"timestamp"`
	Pair          string           `json:"pair"`
	Liquidity     decimal.Decimal  `json:"liquidity"`
	Sender        string           `json:"sender,omitempty"`
	To            string           `json:"to,omitempty"`
	Amount0       decimal.Decimal  `json:"amount0"`
	Amount1       decimal.Decimal  `json:"amount1"`
	LogIndex      uint64           `json:"log_index"`
	AmountUSD     decimal.Decimal  `json:"amount_usd"`
	NeedsComplete bool             `json:"needs_complete"`
	FeeTo         string           `json:"fee_to,omitempty"`
	FeeLiquidity  *decimal.Decimal `json:"fee_liquidity,omitempty"`
}

func (b *Burn) EntityKind() string { return KindBurn }
func (b *Burn) EntityID() string   { return b.ID }

// Swap is one trade against a pair.
type Swap struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pair        string          `json:"pair"`
	Sender      string          `json:"sender"`
	From        string          `json:"from"`
	Amount0In   decimal.Decimal `json:"amount0_in"`
	Amount1In   decimal.Decimal `json:"amount1_in"`
	Amount0Out  decimal.Decimal `json:"amount0_out"`
	Amount1Out  decimal.Decimal `json:"amount1_out"`
	To          string          `json:"to"`
	LogIndex    uint64          `json:"log_index"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
}

func (s *Swap) EntityKind() string { return KindSwap }
func (s *Swap) EntityID() string   { return s.ID }

// PairLookup indexes a pair by its creating factory and one ordered token pair.
type PairLookup struct {
	ID   string `json:"id"`
	Pair string `json:"pair"`
}

func (l *PairLookup) EntityKind() string { return KindPairLookup }
func (l *PairLookup) EntityID() string   { return l.ID }

// PairLookupID builds the lookup id for factory and tokens (a, b).
func PairLookupID(factory, tokenA, tokenB string) string {
	return factory + "-" + tokenA + "-" + tokenB
}

// DataSource is a pair contract whose events are routed to the engine.
type DataSource struct {
	ID           string `json:"id"`
	Factory      string `json:"factory"`
	CreatedBlock uint64 `json:"created_block"`
}

func (d *DataSource) EntityKind() string { return KindDataSource }
func (d *DataSource) EntityID() string   { return d.ID }

// IndexerState is the sync checkpoint kept next to the entities it covers.
type IndexerState struct {
	ID                 string `json:"id"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

func (s *IndexerState) EntityKind() string { return KindIndexerState }
func (s *IndexerState) EntityID() string   { return s.ID }
