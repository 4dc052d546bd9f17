package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
)

// AllTypes is the filter sentinel that disables type filtering.
const AllTypes = "All"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores fields verbatim. A submitted createdBy must name the caller
// and is kept as written; a missing or null one is set to the caller.
func (s *Service) Create(ctx context.Context, caller string, fields document.Fields) (string, error) {
	caller = document.NormalizeEmail(caller)
	if caller == "" {
		return "", ErrForbidden
	}

	if namesOther(fields, caller) {
		return "", fmt.Errorf("create event: %w", ErrForbidden)
	}

	payload := fields.Without(document.KeyID)
	if payload[document.KeyCreatedBy] == nil {
		payload[document.KeyCreatedBy] = caller
	}
	return s.repo.Insert(ctx, payload)
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.Find(ctx, Filters{})
}

// Search matches title case-insensitively. An empty query lists everything.
func (s *Service) Search(ctx context.Context, query string) ([]Event, error) {
	return s.repo.Find(ctx, Filters{TitleContains: strings.TrimSpace(query)})
}

// ByType filters on eventType; "" and AllTypes return every event.
func (s *Service) ByType(ctx context.Context, eventType string) ([]Event, error) {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" || eventType == AllTypes {
		return s.repo.Find(ctx, Filters{})
	}
	return s.repo.Find(ctx, Filters{EventType: eventType})
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByCreator returns the events created by email, newest date first. An
// empty email means the caller; any other creator is forbidden.
func (s *Service) ListByCreator(ctx context.Context, caller, email string) ([]Event, error) {
	owner, err := resolveOwner(caller, email)
	if err != nil {
		return nil, err
	}
	return s.repo.Find(ctx, Filters{CreatedBy: owner, SortByDateDesc: true})
}

// Update applies a partial update. Both the caller and any createdBy in the
// payload must match the stored creator; createdBy itself never changes.
func (s *Service) Update(ctx context.Context, caller, id string, fields document.Fields) (UpdateResult, error) {
	existing, err := s.stored(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}
	if !document.SameEmail(existing.CreatedBy, caller) {
		return UpdateResult{}, fmt.Errorf("update event %s: %w", id, ErrForbidden)
	}
	if namesOther(fields, existing.CreatedBy) {
		return UpdateResult{}, fmt.Errorf("update event %s: %w", id, ErrForbidden)
	}

	changes := fields.Without(document.KeyID, document.KeyCreatedBy)
	if len(changes) == 0 {
		return UpdateResult{}, ErrEmptyUpdate
	}
	return s.repo.Update(ctx, id, changes)
}

// Delete removes an event owned by the caller.
func (s *Service) Delete(ctx context.Context, caller, id string) (int64, error) {
	existing, err := s.stored(ctx, id)
	if err != nil {
		return 0, err
	}
	if !document.SameEmail(existing.CreatedBy, caller) {
		return 0, fmt.Errorf("delete event %s: %w", id, ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}

// DeleteManaged is Delete for the manage view, where the client also names
// the creator it believes it is acting as.
func (s *Service) DeleteManaged(ctx context.Context, caller, claimed, id string) (int64, error) {
	if _, err := resolveOwner(caller, claimed); err != nil {
		return 0, err
	}
	return s.Delete(ctx, caller, id)
}

// stored loads the event an ownership route acts on. An id that is not a
// valid event id cannot exist, so it is reported as ErrNotFound.
func (s *Service) stored(ctx context.Context, id string) (*Event, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrInvalidID) {
		return nil, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return existing, err
}

func resolveOwner(caller, email string) (string, error) {
	caller = document.NormalizeEmail(caller)
	if caller == "" {
		return "", ErrForbidden
	}
	email = document.NormalizeEmail(email)
	if email == "" {
		return caller, nil
	}
	if email != caller {
		return "", ErrForbidden
	}
	return email, nil
}

// namesOther reports whether fields carries a non-null createdBy that is
// not owner.
func namesOther(fields document.Fields, owner string) bool {
	switch claimed := fields[document.KeyCreatedBy].(type) {
	case nil:
		return false
	case string:
		return !document.SameEmail(claimed, owner)
	default:
		return true
	}
}
