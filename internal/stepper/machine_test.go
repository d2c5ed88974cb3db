package stepper

import (
	"context"
	"errors"
	"testing"
)

type stubFinalizer struct {
	respostaID string
	err        error
	calls      int
}

func (s *stubFinalizer) Submit(_ context.Context, _, _ string, _ FormData) (string, error) {
	s.calls++
	return s.respostaID, s.err
}

func atReview(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine()
	m.SetPatientName("Carlos Andrade")
	m.SetChiefComplaint("dor no joelho")
	for m.Step() != StepReview {
		if err := m.Next(); err != nil {
			t.Fatalf("advance from %s: %v", m.Step(), err)
		}
	}
	return m
}

func TestNextRequiresPatientName(t *testing.T) {
	m := NewMachine()
	if err := m.Next(); err == nil {
		t.Fatal("advance without a patient name should fail")
	}
	m.SetPatientName("Carlos Andrade")
	if err := m.Next(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if m.Step() != StepComplaint {
		t.Fatalf("step = %s, want complaint", m.Step())
	}
}

func TestNextRequiresChiefComplaint(t *testing.T) {
	m := NewMachine()
	m.SetPatientName("Carlos Andrade")
	if err := m.Next(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := m.Next(); err == nil {
		t.Fatal("advance without a chief complaint should fail")
	}
}

func TestOptionalStepsAdvanceEmpty(t *testing.T) {
	m := atReview(t)
	if m.Data().Medications != "" || m.Data().Allergies != "" {
		t.Fatal("optional answers should stay empty")
	}
}

func TestPrevBounds(t *testing.T) {
	m := NewMachine()
	if err := m.Prev(); err == nil {
		t.Fatal("prev at the first step should fail")
	}
	m.SetPatientName("Carlos Andrade")
	if err := m.Next(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := m.Prev(); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if m.Step() != StepIdentity {
		t.Fatalf("step = %s, want identity", m.Step())
	}
}

func TestEditOnlyFromReview(t *testing.T) {
	m := NewMachine()
	if err := m.Edit(StepComplaint); err == nil {
		t.Fatal("edit outside review should fail")
	}

	m = atReview(t)
	if err := m.Edit(StepMedications); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if m.Step() != StepMedications {
		t.Fatalf("step = %s, want medications", m.Step())
	}
}

func TestEditCannotTargetReviewOrLater(t *testing.T) {
	m := atReview(t)
	if err := m.Edit(StepReview); err == nil {
		t.Fatal("edit to review should fail")
	}
	if err := m.Edit(StepSubmitted); err == nil {
		t.Fatal("edit to submitted should fail")
	}
}

func TestCanSubmitGatedOnFileStates(t *testing.T) {
	m := atReview(t)
	if !m.CanSubmit() {
		t.Fatal("review with no files should allow submit")
	}

	id := m.Files().Add("foto.jpg", "foto", "image/jpeg", 100)
	if m.CanSubmit() {
		t.Fatal("pending file must disable submit")
	}
	if err := m.Files().StartURLRequest(id); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if m.CanSubmit() {
		t.Fatal("in-flight file must disable submit")
	}
	if err := m.Files().Fail(id, "rede caiu"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if !m.CanSubmit() {
		t.Fatal("errored file is settled and must not block submit")
	}
}

func TestSubmitTransitions(t *testing.T) {
	m := atReview(t)
	fin := &stubFinalizer{respostaID: "abc-123"}

	got, err := m.Submit(context.Background(), fin, "code-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got != "abc-123" || m.Step() != StepSubmitted {
		t.Fatalf("got id=%q step=%s, want abc-123/submitted", got, m.Step())
	}
	if _, err := m.Submit(context.Background(), fin, "code-1"); err == nil {
		t.Fatal("second submit should fail")
	}
	if fin.calls != 1 {
		t.Fatalf("finalizer called %d times, want 1", fin.calls)
	}
}

func TestSubmitFailureStaysOnReview(t *testing.T) {
	m := atReview(t)
	fin := &stubFinalizer{err: errors.New("link já utilizado")}

	if _, err := m.Submit(context.Background(), fin, "code-1"); err == nil {
		t.Fatal("submit should surface the finalizer error")
	}
	if m.Step() != StepReview {
		t.Fatalf("step = %s, want review", m.Step())
	}
}

func TestSubmitBlockedWhileUploading(t *testing.T) {
	m := atReview(t)
	m.Files().Add("exame.pdf", "exame", "application/pdf", 100)

	_, err := m.Submit(context.Background(), &stubFinalizer{}, "code-1")
	if !errors.Is(err, ErrUploadsPending) {
		t.Fatalf("err = %v, want ErrUploadsPending", err)
	}
}
