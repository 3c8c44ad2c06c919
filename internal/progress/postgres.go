package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores the completion set as a single keyed row so the
// persisted shape stays the same JSON array the other backends use.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a PostgreSQL-backed progress store and
// ensures its table exists.
func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool) (*PostgresBackend, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	_, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS study_progress (
			key        text PRIMARY KEY,
			topic_ids  jsonb NOT NULL DEFAULT '[]'::jsonb,
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)`,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure progress table: %w", err)
	}

	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Load(ctx context.Context) ([]string, error) {
	var data []byte
	err := b.pool.QueryRow(ctx,
		`SELECT topic_ids FROM study_progress WHERE key = $1`,
		StorageKey,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query progress row: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode progress row: %w", err)
	}
	return ids, nil
}

func (b *PostgresBackend) Save(ctx context.Context, topicIDs []string) error {
	if topicIDs == nil {
		topicIDs = []string{}
	}
	data, err := json.Marshal(topicIDs)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	_, err = b.pool.Exec(ctx,
		`INSERT INTO study_progress (key, topic_ids, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (key) DO UPDATE
		 SET topic_ids = EXCLUDED.topic_ids, updated_at = NOW()`,
		StorageKey,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert progress row: %w", err)
	}
	return nil
}
