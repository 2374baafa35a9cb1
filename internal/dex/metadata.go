package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ContractCaller is the eth_call subset of the chain client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
}

// TokenMetadata reads ERC20 name, symbol and decimals and caches the
// successful answers.
type TokenMetadata struct {
	caller ContractCaller
	cache  *cache.Cache
	logger *zap.Logger
}

// NewTokenMetadata builds a metadata reader. ttl <= 0 keeps entries forever.
func NewTokenMetadata(caller ContractCaller, ttl time.Duration, logger *zap.Logger) *TokenMetadata {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &TokenMetadata{
		caller: caller,
		cache:  cache.New(ttl, 10*time.Minute),
		logger: logger,
	}
}

// Decimals returns the token's decimals.
func (m *TokenMetadata) Decimals(ctx context.Context, address string) (int32, error) {
	key := "decimals:" + address
	if v, ok := m.cache.Get(key); ok {
		return v.(int32), nil
	}

	parsed, err := erc20StringABI.get()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := m.call(ctx, address, parsed, "decimals")
	if err != nil {
		return 0, err
	}
	n, err := asBigInt(values[0])
	if err != nil {
		return 0, err
	}
	decimals := int32(n.Int64())
	m.cache.Set(key, decimals, cache.DefaultExpiration)
	return decimals, nil
}

// Symbol returns the token's symbol.
func (m *TokenMetadata) Symbol(ctx context.Context, address string) (string, error) {
	return m.text(ctx, address, "symbol")
}

// Name returns the token's name.
func (m *TokenMetadata) Name(ctx context.Context, address string) (string, error) {
	return m.text(ctx, address, "name")
}

// text calls a string-returning method, falling back to the bytes32 form.
func (m *TokenMetadata) text(ctx context.Context, address, method string) (string, error) {
	key := method + ":" + address
	if v, ok := m.cache.Get(key); ok {
		return v.(string), nil
	}

	stringABI, err := erc20StringABI.get()
	if err != nil {
		return "", fmt.Errorf("parse erc20 abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32ABI.get()
	if err != nil {
		return "", fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	var out string
	if values, err := m.call(ctx, address, stringABI, method); err == nil {
		s, ok := values[0].(string)
		if !ok {
			return "", fmt.Errorf("%s: unexpected type %T", method, values[0])
		}
		out = s
	} else if values, err32 := m.call(ctx, address, bytes32ABI, method); err32 == nil {
		s, ok := bytes32ToString(values[0])
		if !ok {
			return "", fmt.Errorf("%s: unexpected type %T", method, values[0])
		}
		out = s
	} else {
		m.logger.Debug("token call failed", zap.String("token", address), zap.String("method", method), zap.Error(err))
		return "", err
	}

	m.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

func (m *TokenMetadata) call(ctx context.Context, address string, parsed abi.ABI, method string) ([]interface{}, error) {
	if m.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid token address: %s", address)
	}
	to := common.HexToAddress(address)

	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
