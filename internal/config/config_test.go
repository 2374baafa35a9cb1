package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadProcessDefaults(t *testing.T) {
	cfg, err := LoadProcess("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Exchange.Factory != DefaultFactory || cfg.Exchange.ReferenceFactory != DefaultReferenceFactory {
		t.Fatalf("unexpected factories: %+v", cfg.Exchange)
	}
	if len(cfg.Exchange.Whitelist) != 4 || len(cfg.Exchange.Stablecoins) != 3 {
		t.Fatalf("unexpected token lists: %+v", cfg.Exchange)
	}
	if cfg.Exchange.SwapStartBlock != 10977288 {
		t.Fatalf("unexpected swap start block %d", cfg.Exchange.SwapStartBlock)
	}
	if cfg.Store.Kind != StoreMemory || !cfg.Exchange.MinLiquidityUSD.IsZero() {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadSyncFromEnvAndFlags(t *testing.T) {
	t.Setenv("INDEXER_WHITELIST", "0xaa, 0xbb")
	t.Setenv("INDEXER_MIN_LIQUIDITY_USD", "1000.5")
	t.Setenv("INDEXER_STORE", StorePostgres)
	t.Setenv("INDEXER_PG_DSN", "postgres://localhost/pairscope")

	flags := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	flags.Uint64("from", 0, "")
	flags.Int("batch-size", 0, "")
	if err := flags.Parse([]string{"--from=42"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadSync("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FromBlock != 42 {
		t.Fatalf("expected from 42, got %d", cfg.FromBlock)
	}
	if cfg.BatchSize != 2000 {
		t.Fatalf("unset flag must keep the default, got %d", cfg.BatchSize)
	}
	if !reflect.DeepEqual(cfg.Exchange.Whitelist, []string{"0xaa", "0xbb"}) {
		t.Fatalf("unexpected whitelist: %v", cfg.Exchange.Whitelist)
	}
	if cfg.Exchange.MinLiquidityUSD.String() != "1000.5" {
		t.Fatalf("unexpected min liquidity %s", cfg.Exchange.MinLiquidityUSD)
	}
	if cfg.Store.Kind != StorePostgres || cfg.CheckpointID != "sync" {
		t.Fatalf("unexpected sync config: %+v", cfg)
	}
}

func TestLoadSyncRejectsBadStore(t *testing.T) {
	t.Setenv("INDEXER_STORE", StorePostgres)
	if _, err := LoadSync("", nil); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}

	t.Setenv("INDEXER_STORE", "sqlite")
	if _, err := LoadSync("", nil); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestLoadRunFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("rpc: http://localhost:8545\npairs:\n  - \"0x01\"\n  - \"0x02\"\nto: 100\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://localhost:8545" || cfg.ToBlock != 100 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Pairs, []string{"0x01", "0x02"}) {
		t.Fatalf("unexpected pairs: %v", cfg.Pairs)
	}
	if !reflect.DeepEqual(cfg.Factories, []string{DefaultFactory, DefaultReferenceFactory}) {
		t.Fatalf("expected factories to default to both factories, got %v", cfg.Factories)
	}
}
