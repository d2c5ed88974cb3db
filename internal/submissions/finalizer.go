package submissions

import (
	"context"
	"fmt"
	"time"

	"github.com/preconsulta/intake-platform/internal/links"
	"github.com/preconsulta/intake-platform/internal/observability/metrics"
	"github.com/preconsulta/intake-platform/internal/responses"
	"github.com/preconsulta/intake-platform/internal/uploads"
	"github.com/preconsulta/intake-platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/preconsulta/intake-platform/internal/submissions"

// Submission carries the patient's answers into finalization.
type Submission struct {
	LinkCode            string
	SubmissionAttemptID string
	PatientName         string
	ChiefComplaint      string
	Medications         string
	Allergies           string
}

// Finalizer turns an in-progress intake attempt into a durable response.
//
// The pipeline is ordered so that every reachable partial state is safe:
// validate the link server-side, insert the response row, reconcile the
// attempt's pending files, then consume the link with a compare-and-set.
// Reconciliation and consumption failures are logged, never surfaced, since
// the response row is already the source of truth by then.
type Finalizer struct {
	validator *links.Validator
	links     links.Repository
	responses responses.Repository
	files     uploads.Repository
	notifier  responses.Publisher
	metrics   *metrics.IntakeMetrics
	now       func() time.Time
	logger    *logging.Logger
}

// NewFinalizer wires the finalization pipeline.
func NewFinalizer(
	validator *links.Validator,
	linkRepo links.Repository,
	responseRepo responses.Repository,
	fileRepo uploads.Repository,
	notifier responses.Publisher,
	m *metrics.IntakeMetrics,
	logger *logging.Logger,
) *Finalizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Finalizer{
		validator: validator,
		links:     linkRepo,
		responses: responseRepo,
		files:     fileRepo,
		notifier:  notifier,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Finalize validates the link and persists the response. The returned reason
// is ReasonValid on success; any other reason means the submission was
// rejected and no response row exists.
func (f *Finalizer) Finalize(ctx context.Context, sub Submission) (*responses.Response, links.Reason, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "submissions.Finalize")
	defer span.End()
	span.SetAttributes(attribute.String("submission.attempt_id", sub.SubmissionAttemptID))
	start := f.now()

	// Client-side validation is advisory only; the link is re-checked here.
	link, reason, err := f.validator.Validate(ctx, sub.LinkCode)
	if reason != links.ReasonValid {
		f.metrics.ObserveFinalization(string(reason))
		return nil, reason, err
	}

	resp := &responses.Response{
		LinkID:         link.ID,
		OwnerID:        link.OwnerID,
		PatientName:    sub.PatientName,
		ChiefComplaint: sub.ChiefComplaint,
		Medications:    sub.Medications,
		Allergies:      sub.Allergies,
	}
	if err := f.responses.Insert(ctx, resp); err != nil {
		f.metrics.ObserveFinalization("error")
		return nil, links.ReasonInternal, fmt.Errorf("submissions: persist response: %w", err)
	}

	// Pending rows carrying this attempt id flip to the response exactly
	// once. A failure here leaves them for the orphan sweeper.
	reconciled, err := f.files.AssignResponse(ctx, sub.SubmissionAttemptID, resp.ID)
	if err != nil {
		f.logger.Error("file reconciliation failed", "error", err, "attempt_id", sub.SubmissionAttemptID, "resposta_id", resp.ID)
	} else {
		f.metrics.ObserveFilesReconciled(reconciled)
	}

	consumed, err := f.links.Consume(ctx, link.ID, f.now())
	if err != nil {
		f.logger.Error("link consumption failed", "error", err, "link_id", link.ID)
	} else if !consumed {
		f.logger.Warn("link already consumed by a concurrent submission", "link_id", link.ID)
	}

	if f.notifier != nil {
		note := responses.Notification{
			ResponseID:  resp.ID,
			OwnerID:     resp.OwnerID,
			PatientName: resp.PatientName,
			SubmittedAt: resp.SubmittedAt,
		}
		if err := f.notifier.Publish(ctx, note); err != nil {
			f.logger.Warn("dashboard notification failed", "error", err, "resposta_id", resp.ID)
		}
	}

	f.metrics.ObserveFinalization("success")
	f.metrics.ObserveFinalizeLatency(f.now().Sub(start).Seconds())
	f.logger.Info("submission finalized",
		"resposta_id", resp.ID,
		"link_id", link.ID,
		"owner_id", link.OwnerID,
		"files_reconciled", reconciled,
	)
	return resp, links.ReasonValid, nil
}
