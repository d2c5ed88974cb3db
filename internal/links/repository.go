package links

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it
// in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for form links.
type Repository interface {
	Create(ctx context.Context, ownerID uuid.UUID, ttl time.Duration) (*FormLink, error)
	GetByCode(ctx context.Context, code string) (*FormLink, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]FormLink, error)
	Consume(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
}

// PostgresRepository stores form links in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("links: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new active link expiring after ttl.
func (r *PostgresRepository) Create(ctx context.Context, ownerID uuid.UUID, ttl time.Duration) (*FormLink, error) {
	link := &FormLink{
		ID:        uuid.New(),
		Code:      NewCode(),
		OwnerID:   ownerID,
		Active:    true,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	query := `
		INSERT INTO links_formulario (id, codigo, owner_id, ativo, expira_em)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING criado_em
	`
	if err := r.db.QueryRow(ctx, query,
		link.ID,
		link.Code,
		link.OwnerID,
		link.Active,
		link.ExpiresAt,
	).Scan(&link.CreatedAt); err != nil {
		return nil, fmt.Errorf("links: insert failed: %w", err)
	}
	return link, nil
}

// GetByCode fetches a link by its opaque code.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*FormLink, error) {
	query := `
		SELECT id, codigo, owner_id, ativo, expira_em, usado_em, criado_em
		FROM links_formulario
		WHERE codigo = $1
	`
	row := r.db.QueryRow(ctx, query, code)
	var link FormLink
	if err := row.Scan(
		&link.ID,
		&link.Code,
		&link.OwnerID,
		&link.Active,
		&link.ExpiresAt,
		&link.UsedAt,
		&link.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("links: select failed: %w", err)
	}
	return &link, nil
}

// ListByOwner returns the clinician's links, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]FormLink, error) {
	query := `
		SELECT id, codigo, owner_id, ativo, expira_em, usado_em, criado_em
		FROM links_formulario
		WHERE owner_id = $1
		ORDER BY criado_em DESC
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("links: list failed: %w", err)
	}
	defer rows.Close()

	var out []FormLink
	for rows.Next() {
		var link FormLink
		if err := rows.Scan(
			&link.ID,
			&link.Code,
			&link.OwnerID,
			&link.Active,
			&link.ExpiresAt,
			&link.UsedAt,
			&link.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("links: scan failed: %w", err)
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

// Consume marks the link used with a compare-and-set on its current state.
// Returns false when the link was already consumed or deactivated, which is
// how concurrent duplicate submissions lose the race.
func (r *PostgresRepository) Consume(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	query := `
		UPDATE links_formulario
		SET ativo = FALSE, usado_em = $2
		WHERE id = $1 AND ativo = TRUE AND usado_em IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id, usedAt)
	if err != nil {
		return false, fmt.Errorf("links: consume failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
