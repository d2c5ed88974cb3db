package stepper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Step identifies one screen of the patient form, in order.
type Step int

const (
	StepIdentity Step = iota
	StepComplaint
	StepMedications
	StepAllergies
	StepPhotos
	StepExams
	StepReview
	StepSubmitted
)

var stepNames = map[Step]string{
	StepIdentity:    "identity",
	StepComplaint:   "complaint",
	StepMedications: "medications",
	StepAllergies:   "allergies",
	StepPhotos:      "photos",
	StepExams:       "exams",
	StepReview:      "review",
	StepSubmitted:   "submitted",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ErrUploadsPending blocks finalization while any tracked file is still
// moving through the upload pipeline.
var ErrUploadsPending = errors.New("stepper: uploads still in flight")

// FormData holds the patient's answers as they accumulate across steps.
type FormData struct {
	PatientName    string
	ChiefComplaint string
	Medications    string
	Allergies      string
}

// Machine walks the patient through the ordered form steps. It enforces the
// per-step required fields on advance and gates submission on the file
// tracker having settled.
type Machine struct {
	step      Step
	data      FormData
	attemptID string
	files     *FileTracker
}

// NewMachine creates a machine at the identity step with a fresh submission
// attempt id. The attempt id is immutable for the machine's lifetime; it is
// the key under which pending uploads are later reconciled.
func NewMachine() *Machine {
	return &Machine{
		step:      StepIdentity,
		attemptID: uuid.NewString(),
		files:     NewFileTracker(),
	}
}

// Step returns the current step.
func (m *Machine) Step() Step { return m.step }

// AttemptID returns the submission attempt id.
func (m *Machine) AttemptID() string { return m.attemptID }

// Files returns the attempt's file tracker.
func (m *Machine) Files() *FileTracker { return m.files }

// Data returns a snapshot of the collected answers.
func (m *Machine) Data() FormData { return m.data }

// SetPatientName records the step-one answer.
func (m *Machine) SetPatientName(v string) { m.data.PatientName = strings.TrimSpace(v) }

// SetChiefComplaint records the step-two answer.
func (m *Machine) SetChiefComplaint(v string) { m.data.ChiefComplaint = strings.TrimSpace(v) }

// SetMedications records the medications answer.
func (m *Machine) SetMedications(v string) { m.data.Medications = strings.TrimSpace(v) }

// SetAllergies records the allergies answer.
func (m *Machine) SetAllergies(v string) { m.data.Allergies = strings.TrimSpace(v) }

// requiredFieldError reports the current step's unmet invariant, if any.
// Only the identity and complaint steps require fields; uploads are optional.
func (m *Machine) requiredFieldError() error {
	switch m.step {
	case StepIdentity:
		if m.data.PatientName == "" {
			return errors.New("stepper: nome do paciente é obrigatório")
		}
	case StepComplaint:
		if m.data.ChiefComplaint == "" {
			return errors.New("stepper: queixa principal é obrigatória")
		}
	}
	return nil
}

// Next advances to the following step if the current step's required field
// holds.
func (m *Machine) Next() error {
	if m.step >= StepReview {
		return fmt.Errorf("stepper: cannot advance from %s", m.step)
	}
	if err := m.requiredFieldError(); err != nil {
		return err
	}
	m.step++
	return nil
}

// Prev steps back. Always permitted while not submitted.
func (m *Machine) Prev() error {
	if m.step == StepSubmitted {
		return errors.New("stepper: form already submitted")
	}
	if m.step == StepIdentity {
		return errors.New("stepper: already at the first step")
	}
	m.step--
	return nil
}

// Edit jumps from the review step directly to an earlier step.
func (m *Machine) Edit(target Step) error {
	if m.step != StepReview {
		return fmt.Errorf("stepper: edit only allowed from review, currently %s", m.step)
	}
	if target < StepIdentity || target >= StepReview {
		return fmt.Errorf("stepper: cannot edit %s", target)
	}
	m.step = target
	return nil
}

// CanSubmit reports whether the submit action is enabled: the machine is on
// the review step and no tracked file is in a non-terminal, non-error state.
func (m *Machine) CanSubmit() bool {
	return m.step == StepReview && m.files.AllSettled()
}

// Finalizer sends the collected answers for server-side finalization.
type Finalizer interface {
	Submit(ctx context.Context, linkCode, attemptID string, data FormData) (respostaID string, err error)
}

// Submit finalizes the attempt through the given finalizer. On failure the
// machine stays on the review step so the error can be shown; on success it
// transitions to submitted and returns the new response id.
func (m *Machine) Submit(ctx context.Context, f Finalizer, linkCode string) (string, error) {
	if m.step != StepReview {
		return "", fmt.Errorf("stepper: submit only allowed from review, currently %s", m.step)
	}
	if !m.files.AllSettled() {
		return "", ErrUploadsPending
	}
	respostaID, err := f.Submit(ctx, linkCode, m.attemptID, m.data)
	if err != nil {
		return "", err
	}
	m.step = StepSubmitted
	return respostaID, nil
}
