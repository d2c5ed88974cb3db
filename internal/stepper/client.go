package stepper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LinkDetails is the usable-link payload returned by verification.
type LinkDetails struct {
	LinkID  string `json:"link_id"`
	OwnerID string `json:"owner_id"`
}

// LinkRejectedError carries the server's reason code so the form can render
// the matching message.
type LinkRejectedError struct {
	Reason string
}

func (e *LinkRejectedError) Error() string {
	return "stepper: link rejected: " + e.Reason
}

// Client drives the intake backend for the patient form: link verification,
// the two-phase upload staging and finalization. It satisfies Finalizer.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a form client. httpc may be nil.
func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpc: httpc}
}

type verifyLinkResponse struct {
	Status      string       `json:"status"`
	Reason      string       `json:"reason"`
	LinkDetails *LinkDetails `json:"linkDetails"`
}

// VerifyLink checks the link code before the form is shown. A rejected link
// returns *LinkRejectedError.
func (c *Client) VerifyLink(ctx context.Context, code string) (*LinkDetails, error) {
	var resp verifyLinkResponse
	if err := c.postJSON(ctx, "/form/verify-link", map[string]string{"linkId": code}, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "valid" || resp.LinkDetails == nil {
		return nil, &LinkRejectedError{Reason: resp.Reason}
	}
	return resp.LinkDetails, nil
}

type uploadURLResponse struct {
	SignedURL string `json:"signedUrl"`
	Path      string `json:"path"`
}

// UploadFile runs one tracked file through the whole staging pipeline,
// reporting each transition to the tracker. The returned error is also
// recorded as the file's error state, so callers may ignore it when the
// tracker drives the UI.
func (c *Client) UploadFile(ctx context.Context, tracker *FileTracker, fileID, attemptID string, content io.Reader) error {
	file, ok := tracker.Get(fileID)
	if !ok {
		return fmt.Errorf("stepper: unknown file %q", fileID)
	}
	if err := tracker.StartURLRequest(fileID); err != nil {
		return err
	}

	fail := func(err error, msg string) error {
		_ = tracker.Fail(fileID, msg)
		return err
	}

	var issued uploadURLResponse
	err := c.postJSON(ctx, "/form/upload-url", map[string]string{
		"fileName":            file.Name,
		"submissionAttemptId": attemptID,
		"tipoDocumento":       file.DocType,
		"tipoMime":            file.MimeType,
	}, &issued)
	if err != nil {
		return fail(err, "não foi possível preparar o envio do arquivo")
	}

	if err := tracker.StartUpload(fileID, issued.Path); err != nil {
		return err
	}
	if err := c.putObject(ctx, issued.SignedURL, file.MimeType, content, file.SizeBytes, func(pct int) {
		_ = tracker.SetProgress(fileID, pct)
	}); err != nil {
		return fail(err, "falha no envio do arquivo")
	}

	if err := tracker.StartRegistration(fileID); err != nil {
		return err
	}
	err = c.postJSON(ctx, "/form/register-file", map[string]any{
		"submission_attempt_id": attemptID,
		"nome_arquivo_original": file.Name,
		"path_storage":          issued.Path,
		"tipo_mime":             file.MimeType,
		"tipo_documento":        file.DocType,
		"tamanho_arquivo_bytes": file.SizeBytes,
	}, nil)
	if err != nil {
		return fail(err, "não foi possível registrar o arquivo")
	}

	return tracker.Complete(fileID)
}

type submitResponse struct {
	Message    string `json:"message"`
	RespostaID string `json:"respostaId"`
}

// Submit finalizes the attempt. Implements Finalizer.
func (c *Client) Submit(ctx context.Context, linkCode, attemptID string, data FormData) (string, error) {
	var resp submitResponse
	err := c.postJSON(ctx, "/form/submit", map[string]string{
		"linkId":              linkCode,
		"submissionAttemptId": attemptID,
		"nomePaciente":        data.PatientName,
		"queixaPrincipal":     data.ChiefComplaint,
		"medicacoesEmUso":     data.Medications,
		"alergiasConhecidas":  data.Allergies,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.RespostaID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("stepper: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("stepper: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("stepper: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("stepper: %s: %s", path, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("stepper: decode %s response: %w", path, err)
	}
	return nil
}

// progressReader reports cumulative read percentage against a known total.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(pct int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)
	if p.total > 0 && p.report != nil {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		p.report(pct)
	}
	return n, err
}

func (c *Client) putObject(ctx context.Context, url, mimeType string, content io.Reader, size int64, report func(pct int)) error {
	body := &progressReader{r: content, total: size, report: report}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("stepper: build upload request: %w", err)
	}
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("stepper: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("stepper: upload rejected: " + resp.Status)
	}
	return nil
}
