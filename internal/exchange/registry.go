package exchange

import (
	"context"
	"fmt"
	"sort"

	"pairScope/internal/model"
	"pairScope/internal/storage"
)

// Registry is the set of pair contracts whose events reach the engine.
// Entries are persisted as DataSource entities and loaded on first use.
type Registry struct {
	store   storage.Store
	loaded  bool
	sources map[string]struct{}
}

func NewRegistry(store storage.Store) *Registry {
	return &Registry{store: store, sources: make(map[string]struct{})}
}

// Register starts routing events from pair.
func (r *Registry) Register(ctx context.Context, pair, factory string, block uint64) error {
	if err := r.load(ctx); err != nil {
		return err
	}
	pair = model.NormalizeAddress(pair)
	source := &model.DataSource{ID: pair, Factory: model.NormalizeAddress(factory), CreatedBlock: block}
	if err := storage.Put(ctx, r.store, source); err != nil {
		return err
	}
	r.sources[pair] = struct{}{}
	return nil
}

// Contains reports whether events from address are routed.
func (r *Registry) Contains(ctx context.Context, address string) (bool, error) {
	if err := r.load(ctx); err != nil {
		return false, err
	}
	_, ok := r.sources[model.NormalizeAddress(address)]
	return ok, nil
}

// Addresses returns every registered pair in lexical order.
func (r *Registry) Addresses(ctx context.Context) ([]string, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(r.sources))
	for address := range r.sources {
		out = append(out, address)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Registry) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	ids, err := r.store.List(ctx, model.KindDataSource)
	if err != nil {
		return fmt.Errorf("list data sources: %w", err)
	}
	for _, id := range ids {
		r.sources[id] = struct{}{}
	}
	r.loaded = true
	return nil
}
