package responses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func TestListAppliesFilters(t *testing.T) {
	mock, repo := newMockRepo(t)
	owner := uuid.New()
	from := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT id, link_id, owner_id").
		WithArgs(owner, "%Maria%", from).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "link_id", "owner_id", "nome_paciente", "queixa_principal",
			"medicacoes_em_uso", "alergias_conhecidas", "enviado_em", "revisado",
		}).AddRow(uuid.New(), uuid.New(), owner, "Maria Souza", "dor lombar", "", "", time.Now().UTC(), false))

	list, err := repo.List(context.Background(), owner, Filter{
		Name:   "Maria",
		Status: StatusUnreviewed,
		From:   &from,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].PatientName != "Maria Souza" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	owner := uuid.New()
	id := uuid.New()

	mock.ExpectQuery("SELECT id, link_id, owner_id").
		WithArgs(id, owner).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "link_id", "owner_id", "nome_paciente", "queixa_principal",
			"medicacoes_em_uso", "alergias_conhecidas", "enviado_em", "revisado",
		}))

	if _, err := repo.GetByID(context.Background(), owner, id); err != ErrResponseNotFound {
		t.Fatalf("err = %v, want ErrResponseNotFound", err)
	}
}

func TestSetReviewedScopedToOwner(t *testing.T) {
	mock, repo := newMockRepo(t)
	owner := uuid.New()
	id := uuid.New()

	mock.ExpectExec("UPDATE respostas_pacientes").
		WithArgs(id, owner, true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	found, err := repo.SetReviewed(context.Background(), owner, id, true)
	if err != nil {
		t.Fatalf("set reviewed: %v", err)
	}
	if found {
		t.Fatal("update outside the owner's scope must report not found")
	}
}

func TestDeleteReportsMatch(t *testing.T) {
	mock, repo := newMockRepo(t)
	owner := uuid.New()
	id := uuid.New()

	mock.ExpectExec("DELETE FROM respostas_pacientes").
		WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	found, err := repo.Delete(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !found {
		t.Fatal("delete should report the removed row")
	}
}
