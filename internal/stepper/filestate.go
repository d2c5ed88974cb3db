package stepper

import (
	"fmt"

	"github.com/google/uuid"
)

// FileState is the lifecycle of one tracked upload.
type FileState string

const (
	FilePending            FileState = "pending"
	FileGettingURL         FileState = "getting_url"
	FileUploading          FileState = "uploading"
	FileProcessingMetadata FileState = "processing_metadata"
	FileCompleted          FileState = "completed"
	FileError              FileState = "error"
)

// terminal reports whether no further transition is possible.
func (s FileState) terminal() bool {
	return s == FileCompleted || s == FileError
}

// TrackedFile is one patient-selected file moving through the upload
// pipeline. Progress is meaningful only while uploading.
type TrackedFile struct {
	ID          string
	Name        string
	DocType     string
	MimeType    string
	SizeBytes   int64
	State       FileState
	Progress    int
	StoragePath string
	Message     string
}

// FileTracker holds the per-file state machines of one submission attempt,
// in selection order. It is not safe for concurrent use; the form drives it
// from a single goroutine and uploads report back through it.
type FileTracker struct {
	order []string
	files map[string]*TrackedFile
}

// NewFileTracker creates an empty tracker.
func NewFileTracker() *FileTracker {
	return &FileTracker{files: make(map[string]*TrackedFile)}
}

// Add registers a newly selected file in the pending state and returns its
// tracking id.
func (t *FileTracker) Add(name, docType, mimeType string, sizeBytes int64) string {
	id := uuid.NewString()
	t.files[id] = &TrackedFile{
		ID:        id,
		Name:      name,
		DocType:   docType,
		MimeType:  mimeType,
		SizeBytes: sizeBytes,
		State:     FilePending,
	}
	t.order = append(t.order, id)
	return id
}

// Files returns the tracked files in selection order.
func (t *FileTracker) Files() []TrackedFile {
	out := make([]TrackedFile, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.files[id])
	}
	return out
}

// Get returns a snapshot of one tracked file.
func (t *FileTracker) Get(id string) (TrackedFile, bool) {
	f, ok := t.files[id]
	if !ok {
		return TrackedFile{}, false
	}
	return *f, true
}

// AllSettled reports whether every tracked file reached a terminal state.
// Submit stays disabled while this is false.
func (t *FileTracker) AllSettled() bool {
	for _, f := range t.files {
		if !f.State.terminal() {
			return false
		}
	}
	return true
}

func (t *FileTracker) transition(id string, from, to FileState) error {
	f, ok := t.files[id]
	if !ok {
		return fmt.Errorf("stepper: unknown file %q", id)
	}
	if f.State != from {
		return fmt.Errorf("stepper: file %q is %s, cannot move to %s", id, f.State, to)
	}
	f.State = to
	return nil
}

// StartURLRequest moves a pending file into URL issuance.
func (t *FileTracker) StartURLRequest(id string) error {
	return t.transition(id, FilePending, FileGettingURL)
}

// StartUpload records the issued URL's storage key and begins the raw upload.
func (t *FileTracker) StartUpload(id, storagePath string) error {
	if err := t.transition(id, FileGettingURL, FileUploading); err != nil {
		return err
	}
	f := t.files[id]
	f.StoragePath = storagePath
	f.Progress = 0
	return nil
}

// SetProgress updates the upload percentage, clamped to 0..100.
func (t *FileTracker) SetProgress(id string, pct int) error {
	f, ok := t.files[id]
	if !ok {
		return fmt.Errorf("stepper: unknown file %q", id)
	}
	if f.State != FileUploading {
		return fmt.Errorf("stepper: file %q is %s, progress only applies while uploading", id, f.State)
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	f.Progress = pct
	return nil
}

// StartRegistration moves an uploaded file into metadata registration.
func (t *FileTracker) StartRegistration(id string) error {
	if err := t.transition(id, FileUploading, FileProcessingMetadata); err != nil {
		return err
	}
	t.files[id].Progress = 100
	return nil
}

// Complete marks the file fully staged.
func (t *FileTracker) Complete(id string) error {
	return t.transition(id, FileProcessingMetadata, FileCompleted)
}

// Fail moves a file to the error state from any non-terminal state, carrying
// a message the form can display.
func (t *FileTracker) Fail(id, message string) error {
	f, ok := t.files[id]
	if !ok {
		return fmt.Errorf("stepper: unknown file %q", id)
	}
	if f.State.terminal() {
		return fmt.Errorf("stepper: file %q already settled as %s", id, f.State)
	}
	f.State = FileError
	f.Message = message
	return nil
}
