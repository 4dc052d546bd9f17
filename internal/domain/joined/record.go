package joined

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
)

var (
	ErrNotFound  = errors.New("joined event not found")
	ErrForbidden = errors.New("caller may not access these joined events")
	ErrInvalidID = errors.New("invalid joined event id")
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IDKind tags which representation a joined record's _id is stored under.
type IDKind int

const (
	// KindObjectID is the current form: a store-generated ObjectID.
	KindObjectID IDKind = iota + 1
	// KindLegacy is a plain string _id written by older clients.
	KindLegacy
)

func (k IDKind) String() string {
	switch k {
	case KindObjectID:
		return "objectid"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// RecordID identifies a joined record in exactly one representation.
type RecordID struct {
	Kind  IDKind
	Value string
}

// ParseRecordID classifies a client-supplied id. 24 hex characters are an
// ObjectID; anything else non-empty is a legacy string id. The value is kept
// as written so a legacy record stored under uppercase hex stays reachable.
func ParseRecordID(raw string) (RecordID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RecordID{}, ErrInvalidID
	}
	if objectIDPattern.MatchString(raw) {
		return RecordID{Kind: KindObjectID, Value: raw}, nil
	}
	return RecordID{Kind: KindLegacy, Value: raw}, nil
}

// StringForms lists the string _id values an ObjectID lookup also matches:
// the id as written and its lowercase hex, once each.
func (id RecordID) StringForms() []string {
	lower := strings.ToLower(id.Value)
	if lower == id.Value {
		return []string{id.Value}
	}
	return []string{id.Value, lower}
}

// IsObjectIDHex reports whether value can be stored as an ObjectID.
func IsObjectIDHex(value string) bool {
	return objectIDPattern.MatchString(value)
}

func (id RecordID) String() string {
	return id.Value
}

// Record is one user's participation in an event.
type Record struct {
	ID        RecordID
	CreatedBy string
	JoinedAt  time.Time
	Fields    document.Fields
}

func (r Record) MarshalJSON() ([]byte, error) {
	reserved := map[string]any{
		document.KeyID:        r.ID.Value,
		document.KeyCreatedBy: r.CreatedBy,
	}
	if !r.JoinedAt.IsZero() {
		reserved[document.KeyJoinedAt] = r.JoinedAt.UTC()
	}
	return json.Marshal(r.Fields.Merge(reserved))
}

type Repository interface {
	Insert(ctx context.Context, fields document.Fields) (RecordID, error)
	FindByParticipant(ctx context.Context, email string) ([]Record, error)
	// Delete removes at most one record with the given id joined by
	// participant and reports how many were removed.
	Delete(ctx context.Context, id RecordID, participant string) (int64, error)
	// NormalizeIDs rewrites legacy string ids that are valid ObjectID hex
	// into ObjectIDs and reports how many records were converted.
	NormalizeIDs(ctx context.Context) (int64, error)
}
