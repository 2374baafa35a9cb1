package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	secondsPerDay  = 86400
	secondsPerHour = 3600
)

// DayID returns the day index of a unix timestamp.
func DayID(timestamp uint64) uint64 { return timestamp / secondsPerDay }

// HourID returns the hour index of a unix timestamp.
func HourID(timestamp uint64) uint64 { return timestamp / secondsPerHour }

// BucketID joins an entity id with a bucket index.
func BucketID(id string, index uint64) string {
	return id + "-" + strconv.FormatUint(index, 10)
}

// FactoryDayData is the daily snapshot of the factory aggregate.
type FactoryDayData struct {
	ID                   string          `json:"id"`
	Date                 uint64          `json:"date"`
	DailyVolumeUSD       decimal.Decimal `json:"daily_volume_usd"`
	DailyVolumeUntracked decimal.Decimal `json:"daily_volume_untracked"`
	TotalVolumeUSD       decimal.Decimal `json:"total_volume_usd"`
	TotalLiquidityUSD    decimal.Decimal `json:"total_liquidity_usd"`
	TotalTransactions    uint64          `json:"total_transactions"`
}

func (d *FactoryDayData) EntityKind() string { return KindFactoryDayData }
func (d *FactoryDayData) EntityID() string   { return d.ID }

// PairDayData is the daily snapshot of one pair.
type PairDayData struct {
	ID                string          `json:"id"`
	Date              uint64          `json:"date"`
	PairAddress       string          `json:"pair_address"`
	Token0            string          `json:"token0"`
	Token1            string          `json:"token1"`
	Reserve0          decimal.Decimal `json:"reserve0"`
	Reserve1          decimal.Decimal `json:"reserve1"`
	TotalSupply       decimal.Decimal `json:"total_supply"`
	ReserveUSD        decimal.Decimal `json:"reserve_usd"`
	DailyVolumeToken0 decimal.Decimal `json:"daily_volume_token0"`
	DailyVolumeToken1 decimal.Decimal `json:"daily_volume_token1"`
	DailyVolumeUSD    decimal.Decimal `json:"daily_volume_usd"`
	DailyTxns         uint64          `json:"daily_txns"`
}

func (d *PairDayData) EntityKind() string { return KindPairDayData }
func (d *PairDayData) EntityID() string   { return d.ID }

// PairHourData is the hourly snapshot of one pair.
type PairHourData struct {
	ID                 string          `json:"id"`
	HourStartUnix      uint64          `json:"hour_start_unix"`
	Pair               string          `json:"pair"`
	Reserve0           decimal.Decimal `json:"reserve0"`
	Reserve1           decimal.Decimal `json:"reserve1"`
	TotalSupply        decimal.Decimal `json:"total_supply"`
	ReserveUSD         decimal.Decimal `json:"reserve_usd"`
	HourlyVolumeToken0 decimal.Decimal `json:"hourly_volume_token0"`
	HourlyVolumeToken1 decimal.Decimal `json:"hourly_volume_token1"`
	HourlyVolumeUSD    decimal.Decimal `json:"hourly_volume_usd"`
	HourlyTxns         uint64          `json:"hourly_txns"`
}

func (d *PairHourData) EntityKind() string { return KindPairHourData }
func (d *PairHourData) EntityID() string   { return d.ID }

// TokenDayData is the daily snapshot of one token.
type TokenDayData struct {
	ID                  string          `json:"id"`
	Date                uint64          `json:"date"`
	Token               string          `json:"token"`
	DailyVolumeToken    decimal.Decimal `json:"daily_volume_token"`
	DailyVolumeUSD      decimal.Decimal `json:"daily_volume_usd"`
	DailyTxns           uint64          `json:"daily_txns"`
	TotalLiquidityToken decimal.Decimal `json:"total_liquidity_token"`
	TotalLiquidityUSD   decimal.Decimal `json:"total_liquidity_usd"`
	PriceUSD            decimal.Decimal `json:"price_usd"`
}

func (d *TokenDayData) EntityKind() string { return KindTokenDayData }
func (d *TokenDayData) EntityID() string   { return d.ID }
