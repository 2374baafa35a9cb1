package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"pairScope/internal/model"
)

func TestGetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := Get[model.DataSource](ctx, store, model.KindDataSource, "0xpair")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected absent entity, got %+v", got)
	}

	if err := Put(ctx, store, &model.DataSource{ID: "0xpair", Factory: "0xfactory", CreatedBlock: 7}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err = Get[model.DataSource](ctx, store, model.KindDataSource, "0xpair")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Factory != "0xfactory" || got.CreatedBlock != 7 {
		t.Fatalf("unexpected entity: %+v", got)
	}

	if err := Delete(ctx, store, model.KindDataSource, "0xpair"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got, _ := Get[model.DataSource](ctx, store, model.KindDataSource, "0xpair"); got != nil {
		t.Fatalf("expected entity removed")
	}
}

func TestBufferedHoldsWritesUntilFlush(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	_ = backend.Save(ctx, "k", "old", []byte(`1`))
	_ = backend.Save(ctx, "k", "gone", []byte(`2`))

	buf := NewBuffered(backend)
	_ = buf.Save(ctx, "k", "new", []byte(`3`))
	_ = buf.Remove(ctx, "k", "gone")

	if _, ok, _ := backend.Load(ctx, "k", "new"); ok {
		t.Fatalf("backend saw write before flush")
	}
	if _, ok, _ := buf.Load(ctx, "k", "gone"); ok {
		t.Fatalf("buffered delete not visible")
	}
	ids, err := buf.List(ctx, "k")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"new", "old"}) {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if err := buf.Flush(ctx, Change{Kind: "state", ID: "sync", Data: []byte(`9`)}); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if buf.Pending() != 0 {
		t.Fatalf("expected empty buffer after flush")
	}
	if data, ok, _ := backend.Load(ctx, "k", "new"); !ok || string(data) != "3" {
		t.Fatalf("flushed write missing")
	}
	if _, ok, _ := backend.Load(ctx, "k", "gone"); ok {
		t.Fatalf("flushed delete missing")
	}
	if _, ok, _ := backend.Load(ctx, "state", "sync"); !ok {
		t.Fatalf("extra change not applied")
	}
}

type failingStore struct {
	*MemoryStore
}

func (f failingStore) Apply(context.Context, []Change) error {
	return errors.New("boom")
}

func TestBufferedKeepsChangesOnFailedFlush(t *testing.T) {
	ctx := context.Background()
	buf := NewBuffered(failingStore{NewMemoryStore()})
	_ = buf.Save(ctx, "k", "a", []byte(`1`))

	if err := buf.Flush(ctx); err == nil {
		t.Fatalf("expected flush error")
	}
	if buf.Pending() != 1 {
		t.Fatalf("expected staged change kept, got %d", buf.Pending())
	}
}

func TestDumpJSONL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = Put(ctx, store, &model.Factory{ID: "0xf", TotalPairs: 2})

	var out bytes.Buffer
	n, err := DumpJSONL(ctx, store, store.Kinds(), &out)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entity, got %d", n)
	}

	var line struct {
		Kind string          `json:"kind"`
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &line); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if line.Kind != model.KindFactory || line.ID != "0xf" {
		t.Fatalf("unexpected line: %+v", line)
	}
}
