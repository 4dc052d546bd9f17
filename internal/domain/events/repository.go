package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrForbidden   = errors.New("caller does not own this event")
	ErrInvalidID   = errors.New("invalid event id")
	ErrEmptyUpdate = errors.New("no updatable fields")
)

// Event is a stored event document. Fields never contains _id or createdBy.
type Event struct {
	ID        string
	CreatedBy string
	Fields    document.Fields
}

func (e Event) MarshalJSON() ([]byte, error) {
	reserved := map[string]any{document.KeyID: e.ID}
	if e.CreatedBy != "" {
		reserved[document.KeyCreatedBy] = e.CreatedBy
	}
	return json.Marshal(e.Fields.Merge(reserved))
}

// Filters narrows Find. The zero value matches every event.
type Filters struct {
	TitleContains  string
	EventType      string
	CreatedBy      string
	SortByDateDesc bool
}

type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type Repository interface {
	Insert(ctx context.Context, fields document.Fields) (string, error)
	Find(ctx context.Context, filters Filters) ([]Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, id string, fields document.Fields) (UpdateResult, error)
	Delete(ctx context.Context, id string) (int64, error)
}
