package links

import (
	"context"
	"errors"
	"time"

	"github.com/preconsulta/intake-platform/pkg/logging"
)

// Validator performs the read-only usability check on a form link. It never
// mutates state; consumption happens only during finalization.
type Validator struct {
	links  Repository
	now    func() time.Time
	logger *logging.Logger
}

// NewValidator creates a link validator.
func NewValidator(links Repository, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Validator{links: links, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

// Validate classifies the link code. On ReasonValid the link is returned; for
// every other reason the link is nil except ReasonInactive/ReasonAlreadyUsed/
// ReasonExpired, where the stored link is returned for logging. A non-nil
// error accompanies only ReasonInternal: persistence failures are never
// silently treated as valid.
func (v *Validator) Validate(ctx context.Context, code string) (*FormLink, Reason, error) {
	if code == "" {
		return nil, ReasonMissingCode, nil
	}

	link, err := v.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return nil, ReasonNotFound, nil
		}
		v.logger.Error("link lookup failed", "error", err)
		return nil, ReasonInternal, err
	}

	if !link.Active {
		return link, ReasonInactive, nil
	}
	if link.UsedAt != nil {
		return link, ReasonAlreadyUsed, nil
	}
	if v.now().After(link.ExpiresAt) {
		return link, ReasonExpired, nil
	}
	return link, ReasonValid, nil
}
