package joined

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the clock used for joinedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Join records the caller's participation. createdBy and joinedAt are always
// set by the server.
func (s *Service) Join(ctx context.Context, caller string, fields document.Fields) (RecordID, error) {
	caller = document.NormalizeEmail(caller)
	if caller == "" {
		return RecordID{}, ErrForbidden
	}

	payload := fields.Without(document.KeyID)
	payload[document.KeyCreatedBy] = caller
	payload[document.KeyJoinedAt] = s.now().UTC()

	id, err := s.repo.Insert(ctx, payload)
	if err != nil {
		return RecordID{}, fmt.Errorf("join event: %w", err)
	}
	return id, nil
}

// List returns the records joined by email, newest event date first. An
// empty email means the caller.
func (s *Service) List(ctx context.Context, caller, email string) ([]Record, error) {
	caller = document.NormalizeEmail(caller)
	email = document.NormalizeEmail(email)
	if caller == "" {
		return nil, ErrForbidden
	}
	if email == "" {
		email = caller
	}
	if email != caller {
		return nil, ErrForbidden
	}
	return s.repo.FindByParticipant(ctx, email)
}

// Leave deletes one of the caller's joined records. Deleting an id that is
// absent, or joined by someone else, is ErrNotFound.
func (s *Service) Leave(ctx context.Context, caller, rawID string) error {
	caller = document.NormalizeEmail(caller)
	if caller == "" {
		return ErrForbidden
	}
	id, err := ParseRecordID(rawID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, caller)
	if err != nil {
		return fmt.Errorf("leave event %s: %w", id, err)
	}
	if deleted != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) NormalizeIDs(ctx context.Context) (int64, error) {
	return s.repo.NormalizeIDs(ctx)
}
