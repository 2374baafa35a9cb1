package dex

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"pairScope/internal/model"
)

const (
	testPair   = "0x1111111111111111111111111111111111111111"
	testUser   = "0x2222222222222222222222222222222222222222"
	testToken0 = "0x3333333333333333333333333333333333333333"
	testToken1 = "0x4444444444444444444444444444444444444444"
)

func TestDecodeTransfer(t *testing.T) {
	decoder := newTestDecoder(t)
	pairABI, _ := PairABI()
	event := pairABI.Events["Transfer"]

	data := packNonIndexed(t, event, big.NewInt(1000))
	log := buildLogRecord(event.ID, data,
		topicFromAddress(common.Address{}),
		topicFromAddress(common.HexToAddress(testUser)),
	)

	if !decoder.CanDecode(log.Topics[0]) {
		t.Fatalf("expected decoder to accept Transfer topic")
	}
	typed, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if typed.EventName != model.EventTransfer {
		t.Fatalf("unexpected event name: %s", typed.EventName)
	}
	payload, ok := typed.Decoded.(model.TransferEventData)
	if !ok {
		t.Fatalf("unexpected payload type: %T", typed.Decoded)
	}
	if payload.From != model.ZeroAddress || payload.To != testUser || payload.Value != "1000" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if typed.Address != testPair {
		t.Fatalf("expected lower-case pair address, got %s", typed.Address)
	}
}

func TestDecodeSwap(t *testing.T) {
	decoder := newTestDecoder(t)
	pairABI, _ := PairABI()
	event := pairABI.Events["Swap"]

	data := packNonIndexed(t, event, big.NewInt(5), big.NewInt(0), big.NewInt(0), big.NewInt(9))
	log := buildLogRecord(event.ID, data,
		topicFromAddress(common.HexToAddress(testUser)),
		topicFromAddress(common.HexToAddress(testToken0)),
	)

	typed, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	payload := typed.Decoded.(model.SwapEventData)
	if payload.Sender != testUser || payload.To != testToken0 {
		t.Fatalf("unexpected addresses: %+v", payload)
	}
	if payload.Amount0In != "5" || payload.Amount1In != "0" || payload.Amount0Out != "0" || payload.Amount1Out != "9" {
		t.Fatalf("unexpected amounts: %+v", payload)
	}
}

func TestDecodeSyncAndBurn(t *testing.T) {
	decoder := newTestDecoder(t)
	pairABI, _ := PairABI()

	sync := pairABI.Events["Sync"]
	typed, err := decoder.Decode(buildLogRecord(sync.ID, packNonIndexed(t, sync, big.NewInt(7), big.NewInt(8))))
	if err != nil {
		t.Fatalf("decode sync failed: %v", err)
	}
	reserves := typed.Decoded.(model.SyncEventData)
	if reserves.Reserve0 != "7" || reserves.Reserve1 != "8" {
		t.Fatalf("unexpected reserves: %+v", reserves)
	}

	burn := pairABI.Events["Burn"]
	typed, err = decoder.Decode(buildLogRecord(burn.ID, packNonIndexed(t, burn, big.NewInt(1), big.NewInt(2)),
		topicFromAddress(common.HexToAddress(testUser)),
		topicFromAddress(common.HexToAddress(testToken1)),
	))
	if err != nil {
		t.Fatalf("decode burn failed: %v", err)
	}
	payload := typed.Decoded.(model.BurnEventData)
	if payload.Sender != testUser || payload.To != testToken1 || payload.Amount0 != "1" || payload.Amount1 != "2" {
		t.Fatalf("unexpected burn payload: %+v", payload)
	}
}

func TestDecodePairCreated(t *testing.T) {
	decoder := newTestDecoder(t)
	factoryABI, _ := FactoryABI()
	event := factoryABI.Events["PairCreated"]

	data := packNonIndexed(t, event, common.HexToAddress(testPair), big.NewInt(3))
	log := buildLogRecord(event.ID, data,
		topicFromAddress(common.HexToAddress(testToken0)),
		topicFromAddress(common.HexToAddress(testToken1)),
	)

	typed, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	payload := typed.Decoded.(model.PairCreatedEventData)
	if payload.Token0 != testToken0 || payload.Token1 != testToken1 || payload.Pair != testPair || payload.PairIndex != "3" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	raw, _ := hexutil.Decode(data)
	pair, err := PairFromCreatedLog(types.Log{Topics: []common.Hash{event.ID}, Data: raw})
	if err != nil {
		t.Fatalf("pair from log failed: %v", err)
	}
	if pair != common.HexToAddress(testPair) {
		t.Fatalf("unexpected pair address: %s", pair.Hex())
	}
}

func TestDecodeRejectsWrongTopicCount(t *testing.T) {
	decoder := newTestDecoder(t)
	pairABI, _ := PairABI()
	event := pairABI.Events["Transfer"]

	log := buildLogRecord(event.ID, packNonIndexed(t, event, big.NewInt(1)), topicFromAddress(common.Address{}))
	if _, err := decoder.Decode(log); err == nil {
		t.Fatalf("expected error for missing topic")
	}
	if decoder.CanDecode("0xdeadbeef") {
		t.Fatalf("unknown topic must not decode")
	}
}

func TestPairTopicsMatchKnownSignatures(t *testing.T) {
	topics, err := PairTopics()
	if err != nil {
		t.Fatalf("pair topics failed: %v", err)
	}
	want := map[string]bool{
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef": true,
		"0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1": true,
		"0x4c209b5fc8ad50758f13e2e1088ba56a560dff690a1c6fef26394f4c03821c4f": true,
		"0xdccd412f0b1252819cb1fd330b93224ca42612892bb3f4f789976e6d81936496": true,
		"0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822": true,
	}
	for _, topic := range topics {
		if !want[strings.ToLower(topic.Hex())] {
			t.Fatalf("unexpected topic %s", topic.Hex())
		}
	}
	created, _ := PairCreatedTopic()
	if created.Hex() != "0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9" {
		t.Fatalf("unexpected PairCreated topic: %s", created.Hex())
	}
}

func newTestDecoder(t *testing.T) *PairDecoder {
	t.Helper()
	decoder, err := NewPairDecoder()
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	return decoder
}

func packNonIndexed(t *testing.T, event abi.Event, values ...interface{}) string {
	t.Helper()
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", event.Name, err)
	}
	return hexutil.Encode(data)
}

func buildLogRecord(topic0 common.Hash, data string, indexed ...common.Hash) model.LogRecord {
	topics := []string{topic0.Hex()}
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}
	return model.LogRecord{
		ChainID:     1,
		BlockNumber: 100,
		TxHash:      "0xABCDEF",
		LogIndex:    1,
		Address:     common.HexToAddress(testPair).Hex(),
		Topics:      topics,
		Data:        data,
		Timestamp:   1700000000,
	}
}

func topicFromAddress(address common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(address.Bytes(), 32))
}
