package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ProcessedTracker records handled webhook event ids so platform retries
// never double-provision.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, platform, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, platform, eventID string) (bool, error)
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresProcessedStore persists processed event ids.
type PostgresProcessedStore struct {
	db DB
}

// NewPostgresProcessedStore initializes the store.
func NewPostgresProcessedStore(db DB) *PostgresProcessedStore {
	if db == nil {
		panic("provisioning: pgx pool required")
	}
	return &PostgresProcessedStore{db: db}
}

// AlreadyProcessed reports whether the event id was handled before.
func (s *PostgresProcessedStore) AlreadyProcessed(ctx context.Context, platform, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx,
		`SELECT 1 FROM eventos_processados WHERE plataforma = $1 AND evento_id = $2`,
		platform, eventID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("provisioning: processed lookup failed: %w", err)
	}
	return true, nil
}

// MarkProcessed records the event id; returns false if another invocation
// recorded it first.
func (s *PostgresProcessedStore) MarkProcessed(ctx context.Context, platform, eventID string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO eventos_processados (plataforma, evento_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		platform, eventID,
	)
	if err != nil {
		return false, fmt.Errorf("provisioning: mark processed failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
