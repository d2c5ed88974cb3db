package links

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeLinkRepo struct {
	links    map[string]*FormLink
	getErr   error
	consumed map[uuid.UUID]bool
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: map[string]*FormLink{}, consumed: map[uuid.UUID]bool{}}
}

func (f *fakeLinkRepo) Create(ctx context.Context, ownerID uuid.UUID, ttl time.Duration) (*FormLink, error) {
	link := &FormLink{
		ID:        uuid.New(),
		Code:      NewCode(),
		OwnerID:   ownerID,
		Active:    true,
		ExpiresAt: time.Now().UTC().Add(ttl),
		CreatedAt: time.Now().UTC(),
	}
	f.links[link.Code] = link
	return link, nil
}

func (f *fakeLinkRepo) GetByCode(ctx context.Context, code string) (*FormLink, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	link, ok := f.links[code]
	if !ok {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

func (f *fakeLinkRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]FormLink, error) {
	var out []FormLink
	for _, l := range f.links {
		if l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) Consume(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	for _, l := range f.links {
		if l.ID == id {
			if !l.Active || l.UsedAt != nil {
				return false, nil
			}
			l.Active = false
			used := usedAt
			l.UsedAt = &used
			f.consumed[id] = true
			return true, nil
		}
	}
	return false, nil
}

func activeLink(repo *fakeLinkRepo, expiresIn time.Duration) *FormLink {
	link := &FormLink{
		ID:        uuid.New(),
		Code:      NewCode(),
		OwnerID:   uuid.New(),
		Active:    true,
		ExpiresAt: time.Now().UTC().Add(expiresIn),
	}
	repo.links[link.Code] = link
	return link
}

func TestValidateValid(t *testing.T) {
	repo := newFakeLinkRepo()
	link := activeLink(repo, time.Hour)
	v := NewValidator(repo, nil)

	got, reason, err := v.Validate(context.Background(), link.Code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != ReasonValid {
		t.Fatalf("reason = %q, want valid", reason)
	}
	if got.ID != link.ID {
		t.Errorf("returned wrong link")
	}
}

func TestValidateRejections(t *testing.T) {
	now := time.Now().UTC()
	used := now.Add(-time.Minute)

	cases := []struct {
		name   string
		mutate func(*FormLink)
		code   func(*FormLink) string
		want   Reason
	}{
		{"missing code", nil, func(*FormLink) string { return "" }, ReasonMissingCode},
		{"not found", nil, func(*FormLink) string { return "unknown-code" }, ReasonNotFound},
		{"inactive", func(l *FormLink) { l.Active = false }, nil, ReasonInactive},
		{"already used", func(l *FormLink) { l.UsedAt = &used }, nil, ReasonAlreadyUsed},
		{"expired", func(l *FormLink) { l.ExpiresAt = now.Add(-time.Hour) }, nil, ReasonExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeLinkRepo()
			link := activeLink(repo, time.Hour)
			if tc.mutate != nil {
				tc.mutate(link)
			}
			code := link.Code
			if tc.code != nil {
				code = tc.code(link)
			}

			_, reason, err := v(repo).Validate(context.Background(), code)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if reason != tc.want {
				t.Fatalf("reason = %q, want %q", reason, tc.want)
			}
		})
	}
}

func TestValidateInternalErrorNeverValid(t *testing.T) {
	repo := newFakeLinkRepo()
	repo.getErr = errors.New("connection refused")

	link, reason, err := v(repo).Validate(context.Background(), "some-code")
	if err == nil {
		t.Fatal("expected error")
	}
	if reason != ReasonInternal {
		t.Fatalf("reason = %q, want internal_error", reason)
	}
	if link != nil {
		t.Fatal("link must be nil on internal error")
	}
}

func TestUsable(t *testing.T) {
	now := time.Now().UTC()
	used := now
	link := FormLink{Active: true, ExpiresAt: now.Add(time.Hour)}

	if !link.Usable(now) {
		t.Error("fresh link should be usable")
	}
	link.UsedAt = &used
	if link.Usable(now) {
		t.Error("used link should not be usable")
	}
}

func v(repo Repository) *Validator {
	return NewValidator(repo, nil)
}
