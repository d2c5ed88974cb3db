package links

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/form/verify-link", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func newTestHandler(repo Repository) *Handler {
	return NewHandler(repo, NewValidator(repo, nil), "https://app.preconsulta.com", 72*time.Hour, nil, nil)
}

func TestVerifyLinkValid(t *testing.T) {
	repo := newFakeLinkRepo()
	link := activeLink(repo, time.Hour)
	h := newTestHandler(repo)

	rec := postJSON(t, h.VerifyLink, verifyLinkRequest{LinkID: link.Code})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp verifyLinkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "valid" {
		t.Fatalf("status = %q, want valid", resp.Status)
	}
	if resp.LinkDetails == nil || resp.LinkDetails.OwnerID != link.OwnerID.String() {
		t.Fatalf("missing or wrong link details: %+v", resp.LinkDetails)
	}
}

func TestVerifyLinkInvalidReasons(t *testing.T) {
	repo := newFakeLinkRepo()
	expired := activeLink(repo, -time.Hour)
	h := newTestHandler(repo)

	cases := []struct {
		name       string
		code       string
		wantReason string
		wantStatus int
	}{
		{"expired", expired.Code, "expired", http.StatusOK},
		{"not found", "nope", "not_found", http.StatusOK},
		{"missing code", "", "missing_code", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.VerifyLink, verifyLinkRequest{LinkID: tc.code})
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var resp verifyLinkResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != "invalid" || resp.Reason != tc.wantReason {
				t.Fatalf("got %q/%q, want invalid/%q", resp.Status, resp.Reason, tc.wantReason)
			}
		})
	}
}

func TestVerifyLinkMalformedBody(t *testing.T) {
	h := newTestHandler(newFakeLinkRepo())
	req := httptest.NewRequest(http.MethodPost, "/form/verify-link", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.VerifyLink(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
