package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for clinician profiles.
type Repository interface {
	UpsertByEmail(ctx context.Context, profile *Profile) error
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpdateStatusBySubscriberCode(ctx context.Context, code, status string) (bool, error)
	UpdateStatusByTransaction(ctx context.Context, transactionID, status string) (bool, error)
}

// PostgresRepository stores profiles in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("accounts: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// UpsertByEmail creates the profile or refreshes its subscription fields.
// Email is the identity key because the payment platform knows buyers only
// by email.
func (r *PostgresRepository) UpsertByEmail(ctx context.Context, profile *Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	query := `
		INSERT INTO perfis (id, email, nome_completo, tipo_plano, status_assinatura, data_expiracao_acesso, codigo_assinante, transacao)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO UPDATE SET
			nome_completo = EXCLUDED.nome_completo,
			tipo_plano = EXCLUDED.tipo_plano,
			status_assinatura = EXCLUDED.status_assinatura,
			data_expiracao_acesso = EXCLUDED.data_expiracao_acesso,
			codigo_assinante = EXCLUDED.codigo_assinante,
			transacao = EXCLUDED.transacao,
			atualizado_em = NOW()
		RETURNING id, criado_em, atualizado_em
	`
	if err := r.db.QueryRow(ctx, query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.PlanType,
		profile.SubscriptionStatus,
		profile.AccessExpiresAt,
		profile.SubscriberCode,
		profile.TransactionID,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
		return fmt.Errorf("accounts: upsert failed: %w", err)
	}
	return nil
}

// GetByEmail fetches a profile by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return r.get(ctx, `WHERE email = $1`, email)
}

// GetByID fetches a profile by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*Profile, error) {
	query := `
		SELECT id, email, nome_completo, tipo_plano, status_assinatura, data_expiracao_acesso, codigo_assinante, transacao, criado_em, atualizado_em
		FROM perfis ` + where
	row := r.db.QueryRow(ctx, query, arg)
	var p Profile
	if err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.PlanType,
		&p.SubscriptionStatus,
		&p.AccessExpiresAt,
		&p.SubscriberCode,
		&p.TransactionID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("accounts: select failed: %w", err)
	}
	return &p, nil
}

// UpdateStatusBySubscriberCode sets a terminal subscription status for the
// profile matching the platform's subscriber code.
func (r *PostgresRepository) UpdateStatusBySubscriberCode(ctx context.Context, code, status string) (bool, error) {
	return r.updateStatus(ctx, `codigo_assinante = $1`, code, status)
}

// UpdateStatusByTransaction is the fallback lookup when the event carries no
// subscriber code.
func (r *PostgresRepository) UpdateStatusByTransaction(ctx context.Context, transactionID, status string) (bool, error) {
	return r.updateStatus(ctx, `transacao = $1`, transactionID, status)
}

func (r *PostgresRepository) updateStatus(ctx context.Context, where, arg, status string) (bool, error) {
	query := `UPDATE perfis SET status_assinatura = $2, atualizado_em = NOW() WHERE ` + where
	tag, err := r.db.Exec(ctx, query, arg, status)
	if err != nil {
		return false, fmt.Errorf("accounts: status update failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
