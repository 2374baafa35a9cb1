package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestLogRecordJSONRoundTrip(t *testing.T) {
	original := LogRecord{
		ChainID:     1,
		BlockNumber: 12000000,
		BlockHash:   "0xabc123",
		TxHash:      "0xdef456",
		TxIndex:     7,
		LogIndex:    12,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      []string{"0xaaa", "0xbbb"},
		Data:        "0xdeadbeef",
		TxFrom:      "0x2222222222222222222222222222222222222222",
		Timestamp:   1700000000,
		IngestedAt:  "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded LogRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
	if decoded.Topic0() != "0xaaa" {
		t.Fatalf("unexpected topic0: %s", decoded.Topic0())
	}
}

func TestLogRecordBefore(t *testing.T) {
	a := LogRecord{BlockNumber: 10, LogIndex: 5}
	b := LogRecord{BlockNumber: 10, LogIndex: 6}
	c := LogRecord{BlockNumber: 11, LogIndex: 0}

	if !a.Before(b) || b.Before(a) {
		t.Fatalf("log index ordering broken")
	}
	if !b.Before(c) || c.Before(b) {
		t.Fatalf("block ordering broken")
	}
	if a.Before(a) {
		t.Fatalf("record must not precede itself")
	}
}
