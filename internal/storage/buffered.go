package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Buffered holds writes in memory on top of a backend until Flush.
type Buffered struct {
	backend Store

	mu      sync.Mutex
	pending map[string]map[string]Change
}

func NewBuffered(backend Store) *Buffered {
	return &Buffered{backend: backend, pending: make(map[string]map[string]Change)}
}

func (b *Buffered) Load(ctx context.Context, kind, id string) ([]byte, bool, error) {
	b.mu.Lock()
	c, ok := b.pending[kind][id]
	b.mu.Unlock()
	if ok {
		if c.Deleted {
			return nil, false, nil
		}
		return append([]byte(nil), c.Data...), true, nil
	}
	return b.backend.Load(ctx, kind, id)
}

func (b *Buffered) Save(_ context.Context, kind, id string, data []byte) error {
	b.stage(Change{Kind: kind, ID: id, Data: append([]byte(nil), data...)})
	return nil
}

func (b *Buffered) Remove(_ context.Context, kind, id string) error {
	b.stage(Change{Kind: kind, ID: id, Deleted: true})
	return nil
}

// List merges backend ids with pending saves and deletes.
func (b *Buffered) List(ctx context.Context, kind string) ([]string, error) {
	ids, err := b.backend.List(ctx, kind)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for id, c := range b.pending[kind] {
		if c.Deleted {
			delete(set, id)
		} else {
			set[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Pending returns the number of staged changes.
func (b *Buffered) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ids := range b.pending {
		n += len(ids)
	}
	return n
}

// Flush writes staged changes plus extra to the backend, atomically when the
// backend supports it. Staged changes are kept if the write fails.
func (b *Buffered) Flush(ctx context.Context, extra ...Change) error {
	b.mu.Lock()
	changes := make([]Change, 0, len(extra))
	for _, ids := range b.pending {
		for _, c := range ids {
			changes = append(changes, c)
		}
	}
	b.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Kind != changes[j].Kind {
			return changes[i].Kind < changes[j].Kind
		}
		return changes[i].ID < changes[j].ID
	})
	changes = append(changes, extra...)
	if len(changes) == 0 {
		return nil
	}

	if applier, ok := b.backend.(Applier); ok {
		if err := applier.Apply(ctx, changes); err != nil {
			return fmt.Errorf("apply %d changes: %w", len(changes), err)
		}
	} else {
		for _, c := range changes {
			var err error
			if c.Deleted {
				err = b.backend.Remove(ctx, c.Kind, c.ID)
			} else {
				err = b.backend.Save(ctx, c.Kind, c.ID, c.Data)
			}
			if err != nil {
				return fmt.Errorf("flush %s %s: %w", c.Kind, c.ID, err)
			}
		}
	}

	b.mu.Lock()
	b.pending = make(map[string]map[string]Change)
	b.mu.Unlock()
	return nil
}

// Discard drops every staged change.
func (b *Buffered) Discard() {
	b.mu.Lock()
	b.pending = make(map[string]map[string]Change)
	b.mu.Unlock()
}

func (b *Buffered) stage(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids, ok := b.pending[c.Kind]
	if !ok {
		ids = make(map[string]Change)
		b.pending[c.Kind] = ids
	}
	ids[c.ID] = c
}
