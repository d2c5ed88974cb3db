package uploads

import (
	"context"
	"fmt"
	"time"

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

// Repository provides persistence for pending and reconciled file metadata.
type Repository interface {
	Insert(ctx context.Context, file *PendingFile) error
	AssignResponse(ctx context.Context, attemptID string, responseID uuid.UUID) (int64, error)
	ListByResponse(ctx context.Context, responseID uuid.UUID) ([]PendingFile, error)
	ListOrphansBefore(ctx context.Context, cutoff time.Time, limit int) ([]PendingFile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresRepository stores file metadata rows in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("uploads: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Insert records a pending file with no owning response.
func (r *PostgresRepository) Insert(ctx context.Context, file *PendingFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	query := `
		INSERT INTO arquivos_pacientes
			(id, submission_attempt_id, nome_arquivo_original, path_storage, tipo_mime, tamanho_arquivo_bytes, tipo_documento)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING criado_em
	`
	if err := r.db.QueryRow(ctx, query,
		file.ID,
		file.SubmissionAttemptID,
		file.OriginalName,
		file.StoragePath,
		file.MimeType,
		file.SizeBytes,
		file.DocType,
	).Scan(&file.CreatedAt); err != nil {
		return fmt.Errorf("uploads: insert failed: %w", err)
	}
	return nil
}

// AssignResponse links every still-pending row of the attempt to the response.
// The response_id IS NULL guard makes the transition one-way.
func (r *PostgresRepository) AssignResponse(ctx context.Context, attemptID string, responseID uuid.UUID) (int64, error) {
	query := `
		UPDATE arquivos_pacientes
		SET resposta_paciente_id = $2
		WHERE submission_attempt_id = $1 AND resposta_paciente_id IS NULL
	`
	tag, err := r.db.Exec(ctx, query, attemptID, responseID)
	if err != nil {
		return 0, fmt.Errorf("uploads: assign response failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByResponse returns the files reconciled to a finalized response.
func (r *PostgresRepository) ListByResponse(ctx context.Context, responseID uuid.UUID) ([]PendingFile, error) {
	query := `
		SELECT id, submission_attempt_id, nome_arquivo_original, path_storage, tipo_mime, tamanho_arquivo_bytes, tipo_documento, criado_em, resposta_paciente_id
		FROM arquivos_pacientes
		WHERE resposta_paciente_id = $1
		ORDER BY criado_em ASC
	`
	rows, err := r.db.Query(ctx, query, responseID)
	if err != nil {
		return nil, fmt.Errorf("uploads: list by response failed: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// ListOrphansBefore returns unreconciled rows older than cutoff, for the sweeper.
func (r *PostgresRepository) ListOrphansBefore(ctx context.Context, cutoff time.Time, limit int) ([]PendingFile, error) {
	query := `
		SELECT id, submission_attempt_id, nome_arquivo_original, path_storage, tipo_mime, tamanho_arquivo_bytes, tipo_documento, criado_em, resposta_paciente_id
		FROM arquivos_pacientes
		WHERE resposta_paciente_id IS NULL AND criado_em < $1
		ORDER BY criado_em ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("uploads: list orphans failed: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// Delete removes a metadata row.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM arquivos_pacientes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("uploads: delete failed: %w", err)
	}
	return nil
}

func scanFiles(rows pgx.Rows) ([]PendingFile, error) {
	var out []PendingFile
	for rows.Next() {
		var f PendingFile
		if err := rows.Scan(
			&f.ID,
			&f.SubmissionAttemptID,
			&f.OriginalName,
			&f.StoragePath,
			&f.MimeType,
			&f.SizeBytes,
			&f.DocType,
			&f.CreatedAt,
			&f.ResponseID,
		); err != nil {
			return nil, fmt.Errorf("uploads: scan failed: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
