package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"pairScope/internal/model"
)

// PairDecoder decodes constant-product pair events and factory PairCreated.
type PairDecoder struct {
	pairABI     abi.ABI
	factoryABI  abi.ABI
	topicToName map[string]string
}

// NewPairDecoder builds a decoder for pair and factory logs.
func NewPairDecoder() (*PairDecoder, error) {
	pair, err := PairABI()
	if err != nil {
		return nil, fmt.Errorf("parse pair abi: %w", err)
	}
	factory, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	topicToName := map[string]string{
		topicKey(factory.Events[model.EventPairCreated].ID): model.EventPairCreated,
	}
	for _, name := range []string{model.EventTransfer, model.EventSync, model.EventMint, model.EventBurn, model.EventSwap} {
		topicToName[topicKey(pair.Events[name].ID)] = name
	}

	return &PairDecoder{
		pairABI:     pair,
		factoryABI:  factory,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *PairDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *PairDecoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid contract address: %s", log.Address)
	}

	var (
		decoded interface{}
		err     error
	)
	switch name {
	case model.EventPairCreated:
		decoded, err = d.decodePairCreated(log)
	case model.EventTransfer:
		decoded, err = d.decodeTransfer(log)
	case model.EventSync:
		decoded, err = d.decodeSync(log)
	case model.EventMint:
		decoded, err = d.decodeMint(log)
	case model.EventBurn:
		decoded, err = d.decodeBurn(log)
	case model.EventSwap:
		decoded, err = d.decodeSwap(log)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      strings.ToLower(log.TxHash),
		TxFrom:      model.NormalizeAddress(log.TxFrom),
		LogIndex:    log.LogIndex,
		Address:     model.NormalizeAddress(log.Address),
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}, nil
}

func (d *PairDecoder) decodePairCreated(log model.LogRecord) (model.PairCreatedEventData, error) {
	event := d.factoryABI.Events[model.EventPairCreated]
	var indexed struct {
		Token0 common.Address
		Token1 common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.PairCreatedEventData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.PairCreatedEventData{}, err
	}
	pair, err := asAddress(values[0])
	if err != nil {
		return model.PairCreatedEventData{}, err
	}
	index, err := asBigInt(values[1])
	if err != nil {
		return model.PairCreatedEventData{}, err
	}

	return model.PairCreatedEventData{
		Token0:    hexAddress(indexed.Token0),
		Token1:    hexAddress(indexed.Token1),
		Pair:      hexAddress(pair),
		PairIndex: index.String(),
	}, nil
}

func (d *PairDecoder) decodeTransfer(log model.LogRecord) (model.TransferEventData, error) {
	event := d.pairABI.Events[model.EventTransfer]
	var indexed struct {
		From common.Address
		To   common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.TransferEventData{}, err
	}

	amounts, err := unpackAmounts(event, log.Data, 1)
	if err != nil {
		return model.TransferEventData{}, err
	}

	return model.TransferEventData{
		From:  hexAddress(indexed.From),
		To:    hexAddress(indexed.To),
		Value: amounts[0],
	}, nil
}

func (d *PairDecoder) decodeSync(log model.LogRecord) (model.SyncEventData, error) {
	event := d.pairABI.Events[model.EventSync]
	if len(log.Topics) != 1 {
		return model.SyncEventData{}, fmt.Errorf("expected 1 topic, got %d", len(log.Topics))
	}
	amounts, err := unpackAmounts(event, log.Data, 2)
	if err != nil {
		return model.SyncEventData{}, err
	}
	return model.SyncEventData{Reserve0: amounts[0], Reserve1: amounts[1]}, nil
}

func (d *PairDecoder) decodeMint(log model.LogRecord) (model.MintEventData, error) {
	event := d.pairABI.Events[model.EventMint]
	var indexed struct {
		Sender common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.MintEventData{}, err
	}
	amounts, err := unpackAmounts(event, log.Data, 2)
	if err != nil {
		return model.MintEventData{}, err
	}
	return model.MintEventData{
		Sender:  hexAddress(indexed.Sender),
		Amount0: amounts[0],
		Amount1: amounts[1],
	}, nil
}

func (d *PairDecoder) decodeBurn(log model.LogRecord) (model.BurnEventData, error) {
	event := d.pairABI.Events[model.EventBurn]
	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.BurnEventData{}, err
	}
	amounts, err := unpackAmounts(event, log.Data, 2)
	if err != nil {
		return model.BurnEventData{}, err
	}
	return model.BurnEventData{
		Sender:  hexAddress(indexed.Sender),
		Amount0: amounts[0],
		Amount1: amounts[1],
		To:      hexAddress(indexed.To),
	}, nil
}

func (d *PairDecoder) decodeSwap(log model.LogRecord) (model.SwapEventData, error) {
	event := d.pairABI.Events[model.EventSwap]
	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return model.SwapEventData{}, err
	}
	amounts, err := unpackAmounts(event, log.Data, 4)
	if err != nil {
		return model.SwapEventData{}, err
	}
	return model.SwapEventData{
		Sender:     hexAddress(indexed.Sender),
		Amount0In:  amounts[0],
		Amount1In:  amounts[1],
		Amount0Out: amounts[2],
		Amount1Out: amounts[3],
		To:         hexAddress(indexed.To),
	}, nil
}

func parseIndexed(event abi.Event, topics []string, out interface{}) error {
	indexed := indexedArguments(event.Inputs)
	if len(topics) != len(indexed)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(topics))
	}
	hashes, err := parseTopicHashes(topics[1:])
	if err != nil {
		return err
	}
	if err := abi.ParseTopics(out, indexed, hashes); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string, want int) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

// unpackAmounts unpacks want integer values as base-10 strings.
func unpackAmounts(event abi.Event, dataHex string, want int) ([]string, error) {
	values, err := unpackNonIndexed(event, dataHex, want)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, value := range values {
		n, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		out[i] = n.String()
	}
	return out, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func hexAddress(address common.Address) string {
	return strings.ToLower(address.Hex())
}

func topicKey(topic common.Hash) string {
	return strings.ToLower(topic.Hex())
}
