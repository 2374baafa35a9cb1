package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pairScope/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
)`

const upsertEntity = `
	INSERT INTO entities (kind, id, data, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (kind, id)
	DO UPDATE SET data = EXCLUDED.data, updated_at = now()
`

const deleteEntity = `DELETE FROM entities WHERE kind = $1 AND id = $2`

// Store persists entities as JSONB rows keyed by (kind, id).
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)
var _ storage.Applier = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the entities table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create entities table: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, kind, id string) ([]byte, bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM entities WHERE kind = $1 AND id = $2`, kind, id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) Save(ctx context.Context, kind, id string, data []byte) error {
	_, err := s.pool.Exec(ctx, upsertEntity, kind, id, data)
	return err
}

func (s *Store) Remove(ctx context.Context, kind, id string) error {
	_, err := s.pool.Exec(ctx, deleteEntity, kind, id)
	return err
}

func (s *Store) List(ctx context.Context, kind string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM entities WHERE kind = $1 ORDER BY id`, kind)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Apply writes changes as one batch inside a single transaction.
func (s *Store) Apply(ctx context.Context, changes []storage.Change) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range changes {
		if c.Deleted {
			batch.Queue(deleteEntity, c.Kind, c.ID)
			continue
		}
		batch.Queue(upsertEntity, c.Kind, c.ID, c.Data)
	}

	br := tx.SendBatch(ctx, batch)
	for _, c := range changes {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("write %s %s: %w", c.Kind, c.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
