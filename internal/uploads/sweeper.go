package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/preconsulta/intake-platform/pkg/logging"
)

// ObjectDeleter removes stored objects by key. Satisfied by *Storage.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

const defaultSweepBatchSize = 200

// Sweeper garbage-collects pending files that were never reconciled to a
// response. Abandoned form attempts and crashes between the raw upload and
// metadata registration leave unreferenced rows and objects behind; the
// sweeper removes both once they are older than the caller's cutoff. Rows
// already assigned to a response are never listed and never touched.
type Sweeper struct {
	files     Repository
	storage   ObjectDeleter
	batchSize int
	logger    *logging.Logger
}

// NewSweeper creates a sweeper over the given repository and object storage.
func NewSweeper(files Repository, storage ObjectDeleter, batchSize int, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &Sweeper{
		files:     files,
		storage:   storage,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Sweep deletes unreconciled files created before cutoff, in batches, and
// returns the number removed plus the number of failures left for a later run.
func (s *Sweeper) Sweep(ctx context.Context, cutoff time.Time) (swept, failed int, err error) {
	for {
		orphans, err := s.files.ListOrphansBefore(ctx, cutoff, s.batchSize)
		if err != nil {
			return swept, failed, fmt.Errorf("uploads: orphan listing failed: %w", err)
		}
		if len(orphans) == 0 {
			return swept, failed, nil
		}
		for _, f := range orphans {
			// Object first: a leftover row without an object is retried
			// harmlessly, a leftover object without a row is invisible.
			if err := s.storage.DeleteObject(ctx, f.StoragePath); err != nil {
				s.logger.Warn("object delete failed", "error", err, "path", f.StoragePath)
				failed++
				continue
			}
			if err := s.files.Delete(ctx, f.ID); err != nil {
				s.logger.Warn("row delete failed", "error", err, "file_id", f.ID)
				failed++
				continue
			}
			swept++
		}
		// A batch with failures would list the same rows again; stop and
		// let the next run retry.
		if failed > 0 || len(orphans) < s.batchSize {
			return swept, failed, nil
		}
	}
}
