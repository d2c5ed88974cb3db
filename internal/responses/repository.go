package responses

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

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

// Repository provides persistence for finalized responses.
type Repository interface {
	Insert(ctx context.Context, resp *Response) error
	List(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]Response, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Response, error)
	SetReviewed(ctx context.Context, ownerID, id uuid.UUID, reviewed bool) (bool, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

// PostgresRepository stores responses in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("responses: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Insert records a finalized response.
func (r *PostgresRepository) Insert(ctx context.Context, resp *Response) error {
	if resp.ID == uuid.Nil {
		resp.ID = uuid.New()
	}
	query := `
		INSERT INTO respostas_pacientes
			(id, link_id, owner_id, nome_paciente, queixa_principal, medicacoes_em_uso, alergias_conhecidas)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING enviado_em
	`
	if err := r.db.QueryRow(ctx, query,
		resp.ID,
		resp.LinkID,
		resp.OwnerID,
		resp.PatientName,
		resp.ChiefComplaint,
		resp.Medications,
		resp.Allergies,
	).Scan(&resp.SubmittedAt); err != nil {
		return fmt.Errorf("responses: insert failed: %w", err)
	}
	return nil
}

// List returns the clinician's responses, newest first, narrowed by filter.
func (r *PostgresRepository) List(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]Response, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, link_id, owner_id, nome_paciente, queixa_principal, medicacoes_em_uso, alergias_conhecidas, enviado_em, revisado
		FROM respostas_pacientes
		WHERE owner_id = $1`)
	args := []any{ownerID}

	if name := strings.TrimSpace(filter.Name); name != "" {
		args = append(args, "%"+name+"%")
		sb.WriteString(" AND nome_paciente ILIKE $" + strconv.Itoa(len(args)))
	}
	switch filter.Status {
	case StatusReviewed:
		sb.WriteString(" AND revisado = TRUE")
	case StatusUnreviewed:
		sb.WriteString(" AND revisado = FALSE")
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		sb.WriteString(" AND enviado_em >= $" + strconv.Itoa(len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		sb.WriteString(" AND enviado_em <= $" + strconv.Itoa(len(args)))
	}
	sb.WriteString(" ORDER BY enviado_em DESC")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("responses: list failed: %w", err)
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		var resp Response
		if err := rows.Scan(
			&resp.ID,
			&resp.LinkID,
			&resp.OwnerID,
			&resp.PatientName,
			&resp.ChiefComplaint,
			&resp.Medications,
			&resp.Allergies,
			&resp.SubmittedAt,
			&resp.Reviewed,
		); err != nil {
			return nil, fmt.Errorf("responses: scan failed: %w", err)
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// GetByID fetches a response scoped to its owner.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Response, error) {
	query := `
		SELECT id, link_id, owner_id, nome_paciente, queixa_principal, medicacoes_em_uso, alergias_conhecidas, enviado_em, revisado
		FROM respostas_pacientes
		WHERE id = $1 AND owner_id = $2
	`
	row := r.db.QueryRow(ctx, query, id, ownerID)
	var resp Response
	if err := row.Scan(
		&resp.ID,
		&resp.LinkID,
		&resp.OwnerID,
		&resp.PatientName,
		&resp.ChiefComplaint,
		&resp.Medications,
		&resp.Allergies,
		&resp.SubmittedAt,
		&resp.Reviewed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("responses: select failed: %w", err)
	}
	return &resp, nil
}

// SetReviewed toggles the reviewed flag, scoped to the owner.
func (r *PostgresRepository) SetReviewed(ctx context.Context, ownerID, id uuid.UUID, reviewed bool) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE respostas_pacientes SET revisado = $3 WHERE id = $1 AND owner_id = $2`,
		id, ownerID, reviewed,
	)
	if err != nil {
		return false, fmt.Errorf("responses: reviewed update failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete hard-deletes a response. There is no soft-delete or tombstone.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM respostas_pacientes WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("responses: delete failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
