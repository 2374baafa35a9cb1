package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Factory defaults for mainnet: the tracked factory and the reference
// factory whose pairs are recorded but not aggregated.
const (
	DefaultFactory          = "0x5E7CfE3DB397d3DF3F516d79a072F4C2ae5f39bb"
	DefaultReferenceFactory = "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"
)

var (
	defaultWhitelist = []string{
		"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // WETH
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
		"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
		"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
	}
	defaultStablecoins = []string{
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"0xdac17f958d2ee523a2206206994597c13d831ec7",
		"0x6b175474e89094c44da98b954eedeac495271d0f",
	}
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// ExchangeConfig holds the engine and pricing settings shared by process
// and sync.
type ExchangeConfig struct {
	Factory          string
	ReferenceFactory string
	Whitelist        []string
	Stablecoins      []string
	MinLiquidityUSD  decimal.Decimal
	SwapStartBlock   uint64
	DefaultDecimals  int32
	MetadataTTL      time.Duration
}

// StoreConfig selects and configures the entity store.
type StoreConfig struct {
	Kind          string
	PGDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// ProcessConfig holds configuration for the process command.
type ProcessConfig struct {
	RPCURL      string
	In          string
	Dump        string
	MetricsAddr string
	LogLevel    string
	Exchange    ExchangeConfig
	Store       StoreConfig
}

// SyncConfig holds configuration for the sync command.
type SyncConfig struct {
	RPCURL       string
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	MaxAddresses int
	MaxRetries   int
	RetryBackoff time.Duration
	CheckpointID string
	MetricsAddr  string
	LogLevel     string
	Exchange     ExchangeConfig
	Store        StoreConfig
}

// LoadProcess merges config file, environment variables, and flags into ProcessConfig.
func LoadProcess(cfgFile string, flags *pflag.FlagSet) (ProcessConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setExchangeDefaults(v)
		v.SetDefault("in", "./data/typed_events.jsonl")
	})
	if err != nil {
		return ProcessConfig{}, err
	}

	exchange, err := exchangeConfig(v)
	if err != nil {
		return ProcessConfig{}, err
	}
	store, err := storeConfig(v)
	if err != nil {
		return ProcessConfig{}, err
	}

	return ProcessConfig{
		RPCURL:      v.GetString("rpc"),
		In:          v.GetString("in"),
		Dump:        v.GetString("dump"),
		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
		Exchange:    exchange,
		Store:       store,
	}, nil
}

// LoadSync merges config file, environment variables, and flags into SyncConfig.
func LoadSync(cfgFile string, flags *pflag.FlagSet) (SyncConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setRunDefaults(v)
		setExchangeDefaults(v)
		v.SetDefault("checkpoint-id", "sync")
	})
	if err != nil {
		return SyncConfig{}, err
	}

	exchange, err := exchangeConfig(v)
	if err != nil {
		return SyncConfig{}, err
	}
	store, err := storeConfig(v)
	if err != nil {
		return SyncConfig{}, err
	}

	return SyncConfig{
		RPCURL:       v.GetString("rpc"),
		FromBlock:    v.GetUint64("from"),
		ToBlock:      v.GetUint64("to"),
		BatchSize:    v.GetUint64("batch-size"),
		MaxAddresses: v.GetInt("max-addresses"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		CheckpointID: v.GetString("checkpoint-id"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
		Exchange:     exchange,
		Store:        store,
	}, nil
}

func setExchangeDefaults(v *viper.Viper) {
	v.SetDefault("factory", DefaultFactory)
	v.SetDefault("reference-factory", DefaultReferenceFactory)
	v.SetDefault("whitelist", defaultWhitelist)
	v.SetDefault("stablecoins", defaultStablecoins)
	v.SetDefault("min-liquidity-usd", "0")
	v.SetDefault("swap-start-block", uint64(10977288))
	v.SetDefault("default-decimals", 0)
	v.SetDefault("metadata-ttl", time.Hour)
	v.SetDefault("store", StoreMemory)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-prefix", "pairscope")
}

func exchangeConfig(v *viper.Viper) (ExchangeConfig, error) {
	minLiquidity, err := decimal.NewFromString(v.GetString("min-liquidity-usd"))
	if err != nil {
		return ExchangeConfig{}, fmt.Errorf("parse min-liquidity-usd: %w", err)
	}
	factory := v.GetString("factory")
	if factory == "" {
		return ExchangeConfig{}, fmt.Errorf("factory is required")
	}

	return ExchangeConfig{
		Factory:          factory,
		ReferenceFactory: v.GetString("reference-factory"),
		Whitelist:        getStringSlice(v, "whitelist"),
		Stablecoins:      getStringSlice(v, "stablecoins"),
		MinLiquidityUSD:  minLiquidity,
		SwapStartBlock:   v.GetUint64("swap-start-block"),
		DefaultDecimals:  v.GetInt32("default-decimals"),
		MetadataTTL:      v.GetDuration("metadata-ttl"),
	}, nil
}

func storeConfig(v *viper.Viper) (StoreConfig, error) {
	cfg := StoreConfig{
		Kind:          v.GetString("store"),
		PGDSN:         v.GetString("pg-dsn"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		RedisPrefix:   v.GetString("redis-prefix"),
	}
	switch cfg.Kind {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if cfg.PGDSN == "" {
			return StoreConfig{}, fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return StoreConfig{}, fmt.Errorf("unknown store %q", cfg.Kind)
	}
	return cfg, nil
}
