package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func postSubmit(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/form/submit", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

func TestSubmitCreated(t *testing.T) {
	fx := newFinalizerFixture()
	link := fx.activeLink(t)
	h := NewHandler(fx.finalizer, nil)

	rec := postSubmit(t, h, submitRequest{
		LinkID:              link.Code,
		SubmissionAttemptID: "attempt-1",
		PatientName:         "Ana Paula",
		ChiefComplaint:      "tontura",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(resp.RespostaID); err != nil {
		t.Fatalf("respostaId = %q, want a uuid", resp.RespostaID)
	}
}

func TestSubmitRejectionStatuses(t *testing.T) {
	fx := newFinalizerFixture()
	expired, err := fx.links.Create(context.Background(), uuid.New(), -time.Hour)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	used := fx.activeLink(t)
	now := time.Now().UTC()
	fx.links.byCode[used.Code].UsedAt = &now
	inactive := fx.activeLink(t)
	fx.links.byCode[inactive.Code].Active = false
	h := NewHandler(fx.finalizer, nil)

	cases := []struct {
		name string
		code string
		want int
	}{
		{"not found", "nope", http.StatusNotFound},
		{"expired", expired.Code, http.StatusForbidden},
		{"already used", used.Code, http.StatusForbidden},
		{"inactive", inactive.Code, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postSubmit(t, h, submitRequest{
				LinkID:              tc.code,
				SubmissionAttemptID: "attempt-1",
				PatientName:         "Ana Paula",
				ChiefComplaint:      "tontura",
			})
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
	if len(fx.responses.byID) != 0 {
		t.Fatalf("rejected submissions created %d response rows", len(fx.responses.byID))
	}
}

func TestSubmitValidation(t *testing.T) {
	fx := newFinalizerFixture()
	link := fx.activeLink(t)
	h := NewHandler(fx.finalizer, nil)

	cases := []struct {
		name string
		req  submitRequest
	}{
		{"missing link", submitRequest{SubmissionAttemptID: "a", PatientName: "x", ChiefComplaint: "y"}},
		{"missing attempt", submitRequest{LinkID: link.Code, PatientName: "x", ChiefComplaint: "y"}},
		{"missing name", submitRequest{LinkID: link.Code, SubmissionAttemptID: "a", ChiefComplaint: "y"}},
		{"missing complaint", submitRequest{LinkID: link.Code, SubmissionAttemptID: "a", PatientName: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postSubmit(t, h, tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	fx := newFinalizerFixture()
	h := NewHandler(fx.finalizer, nil)

	req := httptest.NewRequest(http.MethodPost, "/form/submit", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
