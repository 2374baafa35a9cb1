package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PairCreatedTopic returns the factory PairCreated topic0.
func PairCreatedTopic() (common.Hash, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["PairCreated"].ID, nil
}

// PairTopics returns the topic0 of every pair event the engine consumes.
func PairTopics() ([]common.Hash, error) {
	parsed, err := PairABI()
	if err != nil {
		return nil, err
	}
	names := []string{"Transfer", "Sync", "Mint", "Burn", "Swap"}
	out := make([]common.Hash, 0, len(names))
	for _, name := range names {
		out = append(out, parsed.Events[name].ID)
	}
	return out, nil
}

// SwapTopic returns the pair Swap topic0.
func SwapTopic() (common.Hash, error) {
	parsed, err := PairABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["Swap"].ID, nil
}

// PairFromCreatedLog extracts the new pair address from a PairCreated log.
func PairFromCreatedLog(log types.Log) (common.Address, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return common.Address{}, err
	}
	event := parsed.Events["PairCreated"]
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return common.Address{}, fmt.Errorf("not a PairCreated log")
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack PairCreated: %w", err)
	}
	if len(values) != 2 {
		return common.Address{}, fmt.Errorf("unexpected PairCreated values: %d", len(values))
	}
	return asAddress(values[0])
}
