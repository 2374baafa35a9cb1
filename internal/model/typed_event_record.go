package model

import (
	"encoding/json"
	"fmt"
)

// TypedEventRecord is the JSON line form of a TypedEvent, with the payload left raw.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	TxFrom      string          `json:"tx_from,omitempty"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// Event decodes the raw payload into the struct matching EventName.
func (r TypedEventRecord) Event() (TypedEvent, error) {
	ev := TypedEvent{
		ChainID:     r.ChainID,
		BlockNumber: r.BlockNumber,
		BlockHash:   r.BlockHash,
		TxHash:      r.TxHash,
		TxFrom:      r.TxFrom,
		LogIndex:    r.LogIndex,
		Address:     r.Address,
		EventName:   r.EventName,
		Timestamp:   r.Timestamp,
		Raw:         r.Raw,
	}

	var err error
	switch r.EventName {
	case EventPairCreated:
		var data PairCreatedEventData
		err = json.Unmarshal(r.Decoded, &data)
		ev.Decoded = data
	case EventTransfer:
		var data TransferEventData
		err = json.Unmarshal(r.Decoded, &data)
		ev.Decoded = data
	case EventSync:
		var data SyncEventData
		err = json.Unmarshal(r.Decoded, &data)
		ev.Decoded = data
	case EventMint:
		var data MintEventData
		err = json.Unmarshal(r.Decoded, &data)
		ev.Decoded = data
	case EventBurn:
		var data BurnEventData
		err = json.Unmarshal(r.Decoded, &data)
		ev.Decoded = data
	case EventSwap:
		var data SwapEventData
		err = json.Unmarshal(r.Decoded, &data)
		ev.Decoded = data
	default:
		return TypedEvent{}, fmt.Errorf("unknown event name: %q", r.EventName)
	}
	if err != nil {
		return TypedEvent{}, fmt.Errorf("decode %s payload: %w", r.EventName, err)
	}
	return ev, nil
}
