package uploads

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document types accepted by the intake form.
const (
	DocTypeFoto  = "foto"
	DocTypeExame = "exame"
)

// ValidDocType reports whether s is one of the two enumerated document types.
func ValidDocType(s string) bool {
	return s == DocTypeFoto || s == DocTypeExame
}

// PendingFile is an uploaded file's metadata row before it is linked to a
// finalized response. ResponseID transitions from nil to the response id
// exactly once, during reconciliation, and never reverts.
type PendingFile struct {
	ID                  uuid.UUID  `json:"id"`
	SubmissionAttemptID string     `json:"submission_attempt_id"`
	OriginalName        string     `json:"nome_arquivo_original"`
	StoragePath         string     `json:"path_storage"`
	MimeType            string     `json:"tipo_mime"`
	SizeBytes           int64      `json:"tamanho_arquivo_bytes"`
	DocType             string     `json:"tipo_documento"`
	CreatedAt           time.Time  `json:"criado_em"`
	ResponseID          *uuid.UUID `json:"resposta_paciente_id,omitempty"`
}

// BuildStorageKey derives a collision-resistant object key for a pending
// upload. The submission attempt id is the sole namespacing key so anonymous
// patients can upload before any account identity exists.
func BuildStorageKey(attemptID, docType, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\ ") {
		ext = ""
	}
	return fmt.Sprintf("pending/%s/%s/%s%s", attemptID, docType, uuid.NewString(), ext)
}
