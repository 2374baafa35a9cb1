package model

import (
	"encoding/json"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:     "0x1111111111111111111111111111111111111111",
		Amount0In:  "12345678901234567890",
		Amount1In:  "0",
		Amount0Out: "0",
		Amount1Out: "5000000000000000000",
		To:         "0x2222222222222222222222222222222222222222",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount0_in", "amount1_in", "amount0_out", "amount1_out"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestTypedEventRecordEvent(t *testing.T) {
	line := `{"block_number":10,"tx_hash":"0xaa","log_index":3,"address":"0xpair","event_name":"Transfer","timestamp":99,"decoded":{"from":"0x0000000000000000000000000000000000000000","to":"0xuser","value":"5"}}`

	var rec TypedEventRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	ev, err := rec.Event()
	if err != nil {
		t.Fatalf("event failed: %v", err)
	}
	data, ok := ev.Decoded.(TransferEventData)
	if !ok {
		t.Fatalf("expected TransferEventData, got %T", ev.Decoded)
	}
	if data.To != "0xuser" || data.Value != "5" {
		t.Fatalf("unexpected payload: %+v", data)
	}
	if ev.Timestamp != 99 || ev.LogIndex != 3 {
		t.Fatalf("unexpected position: %+v", ev)
	}
}

func TestTypedEventRecordUnknownEvent(t *testing.T) {
	rec := TypedEventRecord{EventName: "Collect", Decoded: json.RawMessage(`{}`)}
	if _, err := rec.Event(); err == nil {
		t.Fatalf("expected error for unknown event")
	}
}
