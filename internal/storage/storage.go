package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"pairScope/internal/model"
)

// LogSink defines a consumer of raw log batches.
type LogSink interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// Store is a key-value entity store addressed by (kind, id).
type Store interface {
	Load(ctx context.Context, kind, id string) ([]byte, bool, error)
	Save(ctx context.Context, kind, id string, data []byte) error
	Remove(ctx context.Context, kind, id string) error
	List(ctx context.Context, kind string) ([]string, error)
}

// Change is one pending write; Data is nil when Deleted is set.
type Change struct {
	Kind    string
	ID      string
	Data    []byte
	Deleted bool
}

// Applier is implemented by backends that can apply a change set atomically.
type Applier interface {
	Apply(ctx context.Context, changes []Change) error
}

// Get loads and decodes an entity. It returns nil without error when absent.
func Get[T any](ctx context.Context, s Store, kind, id string) (*T, error) {
	data, ok, err := s.Load(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	if !ok {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return out, nil
}

// Put encodes and saves an entity under its own kind and id.
func Put(ctx context.Context, s Store, e model.Entity) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	if err := s.Save(ctx, e.EntityKind(), e.EntityID(), data); err != nil {
		return fmt.Errorf("save %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return nil
}

// Delete removes an entity.
func Delete(ctx context.Context, s Store, kind, id string) error {
	if err := s.Remove(ctx, kind, id); err != nil {
		return fmt.Errorf("remove %s %s: %w", kind, id, err)
	}
	return nil
}

// EncodeChange builds a save Change for e.
func EncodeChange(e model.Entity) (Change, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Change{}, fmt.Errorf("encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return Change{Kind: e.EntityKind(), ID: e.EntityID(), Data: data}, nil
}
