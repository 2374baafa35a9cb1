package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"pairScope/internal/storage"
)

// Store keeps each entity as a JSON string under prefix:kind:id and tracks
// the ids of a kind in the set prefix:kind.
type Store struct {
	client *redis.Client
	prefix string
}

var _ storage.Store = (*Store)(nil)
var _ storage.Applier = (*Store)(nil)

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client, prefix: opts.Prefix}, nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, kind, id string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.entityKey(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) Save(ctx context.Context, kind, id string, data []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueSave(ctx, pipe, kind, id, data)
		return nil
	})
	return err
}

func (s *Store) Remove(ctx context.Context, kind, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueRemove(ctx, pipe, kind, id)
		return nil
	})
	return err
}

func (s *Store) List(ctx context.Context, kind string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(kind)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Apply sends all changes in one MULTI/EXEC block.
func (s *Store) Apply(ctx context.Context, changes []storage.Change) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range changes {
			if c.Deleted {
				s.queueRemove(ctx, pipe, c.Kind, c.ID)
				continue
			}
			s.queueSave(ctx, pipe, c.Kind, c.ID, c.Data)
		}
		return nil
	})
	return err
}

func (s *Store) queueSave(ctx context.Context, pipe redis.Pipeliner, kind, id string, data []byte) {
	pipe.Set(ctx, s.entityKey(kind, id), data, 0)
	pipe.SAdd(ctx, s.indexKey(kind), id)
}

func (s *Store) queueRemove(ctx context.Context, pipe redis.Pipeliner, kind, id string) {
	pipe.Del(ctx, s.entityKey(kind, id))
	pipe.SRem(ctx, s.indexKey(kind), id)
}

func (s *Store) entityKey(kind, id string) string {
	return s.indexKey(kind) + ":" + id
}

func (s *Store) indexKey(kind string) string {
	if s.prefix == "" {
		return kind
	}
	return s.prefix + ":" + kind
}
