package uploads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memFileStore struct {
	files     map[uuid.UUID]*PendingFile
	listCalls int
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: map[uuid.UUID]*PendingFile{}}
}

func (m *memFileStore) add(createdAt time.Time, responseID *uuid.UUID) *PendingFile {
	f := &PendingFile{
		ID:          uuid.New(),
		StoragePath: "pending/attempt/foto/" + uuid.NewString() + ".jpg",
		CreatedAt:   createdAt,
		ResponseID:  responseID,
	}
	m.files[f.ID] = f
	return f
}

func (m *memFileStore) Insert(ctx context.Context, file *PendingFile) error { return nil }

func (m *memFileStore) AssignResponse(ctx context.Context, attemptID string, responseID uuid.UUID) (int64, error) {
	return 0, nil
}

func (m *memFileStore) ListByResponse(ctx context.Context, responseID uuid.UUID) ([]PendingFile, error) {
	return nil, nil
}

func (m *memFileStore) ListOrphansBefore(ctx context.Context, cutoff time.Time, limit int) ([]PendingFile, error) {
	m.listCalls++
	var out []PendingFile
	for _, f := range m.files {
		if f.ResponseID == nil && f.CreatedAt.Before(cutoff) {
			out = append(out, *f)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memFileStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.files, id)
	return nil
}

type memObjectStore struct {
	failKeys map[string]bool
	deleted  []string
}

func (m *memObjectStore) DeleteObject(ctx context.Context, key string) error {
	if m.failKeys[key] {
		return errors.New("access denied")
	}
	m.deleted = append(m.deleted, key)
	return nil
}

func TestSweepSkipsYoungAndReconciledFiles(t *testing.T) {
	store := newMemFileStore()
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	orphan := store.add(cutoff.Add(-time.Hour), nil)
	young := store.add(cutoff.Add(time.Hour), nil)
	responseID := uuid.New()
	reconciled := store.add(cutoff.Add(-time.Hour), &responseID)

	objects := &memObjectStore{}
	swept, failed, err := NewSweeper(store, objects, 10, nil).Sweep(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 || failed != 0 {
		t.Fatalf("swept = %d failed = %d, want 1/0", swept, failed)
	}
	if _, ok := store.files[orphan.ID]; ok {
		t.Error("old orphan row not deleted")
	}
	if _, ok := store.files[young.ID]; !ok {
		t.Error("file younger than the cutoff must survive")
	}
	if _, ok := store.files[reconciled.ID]; !ok {
		t.Error("file assigned to a response must survive")
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != orphan.StoragePath {
		t.Fatalf("deleted objects = %v, want only %s", objects.deleted, orphan.StoragePath)
	}
}

func TestSweepKeepsRowWhenObjectDeleteFails(t *testing.T) {
	store := newMemFileStore()
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	orphan := store.add(cutoff.Add(-time.Hour), nil)

	objects := &memObjectStore{failKeys: map[string]bool{orphan.StoragePath: true}}
	swept, failed, err := NewSweeper(store, objects, 10, nil).Sweep(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 0 || failed != 1 {
		t.Fatalf("swept = %d failed = %d, want 0/1", swept, failed)
	}
	if _, ok := store.files[orphan.ID]; !ok {
		t.Fatal("row must survive a failed object delete so a later run can retry")
	}
}

func TestSweepDrainsInBatches(t *testing.T) {
	store := newMemFileStore()
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	for i := 0; i < 5; i++ {
		store.add(cutoff.Add(-time.Hour), nil)
	}

	objects := &memObjectStore{}
	swept, failed, err := NewSweeper(store, objects, 2, nil).Sweep(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 5 || failed != 0 {
		t.Fatalf("swept = %d failed = %d, want 5/0", swept, failed)
	}
	if len(store.files) != 0 {
		t.Fatalf("%d orphan rows left behind", len(store.files))
	}
	// 2 + 2 + 1: the short final batch ends the loop.
	if store.listCalls != 3 {
		t.Fatalf("listCalls = %d, want 3", store.listCalls)
	}
}

func TestSweepStopsAfterFailedBatch(t *testing.T) {
	store := newMemFileStore()
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	failKeys := map[string]bool{}
	for i := 0; i < 3; i++ {
		failKeys[store.add(cutoff.Add(-time.Hour), nil).StoragePath] = true
	}

	objects := &memObjectStore{failKeys: failKeys}
	_, failed, err := NewSweeper(store, objects, 1, nil).Sweep(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if store.listCalls != 1 {
		t.Fatalf("listCalls = %d, want 1 (a failed batch would relist the same rows)", store.listCalls)
	}
}

func TestSweepSurfacesListingError(t *testing.T) {
	sweeper := NewSweeper(failingLister{newMemFileStore()}, &memObjectStore{}, 10, nil)
	if _, _, err := sweeper.Sweep(context.Background(), time.Now()); err == nil {
		t.Fatal("listing error must surface")
	}
}

type failingLister struct{ *memFileStore }

func (failingLister) ListOrphansBefore(ctx context.Context, cutoff time.Time, limit int) ([]PendingFile, error) {
	return nil, errors.New("connection refused")
}
