// Package memory implements the event and joined-event repositories in
// process memory. It backs handler and service tests and mirrors the
// matching rules of the Mongo repositories.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store bundles both repositories behind storage.Store.
type Store struct {
	events *EventRepository
	joined *JoinedRepository
}

func NewStore() *Store {
	return &Store{events: NewEventRepository(), joined: NewJoinedRepository()}
}

func (s *Store) Events() events.Repository { return s.events }

func (s *Store) Joined() joined.Repository { return s.joined }

// EventRepository returns the concrete events repository for seeding.
func (s *Store) EventRepository() *EventRepository { return s.events }

// JoinedRepository returns the concrete joined repository for seeding.
func (s *Store) JoinedRepository() *JoinedRepository { return s.joined }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

// eventKey returns the canonical map key for an event id, or false when id
// is not ObjectID hex.
func eventKey(id string) (string, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}

type EventRepository struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]document.Fields
}

func NewEventRepository() *EventRepository {
	return &EventRepository{docs: make(map[string]document.Fields)}
}

func (r *EventRepository) Insert(_ context.Context, fields document.Fields) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := bson.NewObjectID().Hex()
	r.docs[id] = fields.Without(document.KeyID)
	r.order = append(r.order, id)
	return id, nil
}

func (r *EventRepository) Find(_ context.Context, filters events.Filters) ([]events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]events.Event, 0, len(r.order))
	for _, id := range r.order {
		doc := r.docs[id]
		if filters.TitleContains != "" &&
			!strings.Contains(strings.ToLower(doc.String(document.KeyTitle)), strings.ToLower(filters.TitleContains)) {
			continue
		}
		if filters.EventType != "" && doc.String(document.KeyEventType) != filters.EventType {
			continue
		}
		if filters.CreatedBy != "" && !document.SameEmail(doc.String(document.KeyCreatedBy), filters.CreatedBy) {
			continue
		}
		out = append(out, toEvent(id, doc))
	}
	if filters.SortByDateDesc {
		sortByDateDesc(out, func(e events.Event) (any, bool) {
			v, ok := e.Fields[document.KeyDate]
			return v, ok
		})
	}
	return out, nil
}

func (r *EventRepository) GetByID(_ context.Context, id string) (*events.Event, error) {
	key, ok := eventKey(id)
	if !ok {
		return nil, events.ErrInvalidID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[key]
	if !ok {
		return nil, events.ErrNotFound
	}
	event := toEvent(key, doc)
	return &event, nil
}

func (r *EventRepository) Update(_ context.Context, id string, fields document.Fields) (events.UpdateResult, error) {
	key, ok := eventKey(id)
	if !ok {
		return events.UpdateResult{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[key]
	if !ok {
		return events.UpdateResult{}, nil
	}
	modified := int64(0)
	for k, v := range fields {
		if existing, ok := doc[k]; !ok || fmt.Sprint(existing) != fmt.Sprint(v) {
			modified = 1
		}
		doc[k] = v
	}
	return events.UpdateResult{MatchedCount: 1, ModifiedCount: modified}, nil
}

func (r *EventRepository) Delete(_ context.Context, id string) (int64, error) {
	key, ok := eventKey(id)
	if !ok {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[key]; !ok {
		return 0, nil
	}
	delete(r.docs, key)
	r.order = removeID(r.order, key)
	return 1, nil
}

func toEvent(id string, doc document.Fields) events.Event {
	return events.Event{
		ID:        id,
		CreatedBy: doc.String(document.KeyCreatedBy),
		Fields:    doc.Without(document.KeyCreatedBy),
	}
}

type joinedDoc struct {
	id     joined.RecordID
	fields document.Fields
}

type JoinedRepository struct {
	mu   sync.RWMutex
	docs []joinedDoc
}

func NewJoinedRepository() *JoinedRepository {
	return &JoinedRepository{}
}

func (r *JoinedRepository) Insert(_ context.Context, fields document.Fields) (joined.RecordID, error) {
	id := joined.RecordID{Kind: joined.KindObjectID, Value: bson.NewObjectID().Hex()}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, joinedDoc{id: id, fields: fields.Without(document.KeyID)})
	return id, nil
}

// InsertLegacy stores a record under a plain string id, the way older
// clients wrote them.
func (r *JoinedRepository) InsertLegacy(id string, fields document.Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, joinedDoc{
		id:     joined.RecordID{Kind: joined.KindLegacy, Value: id},
		fields: fields.Without(document.KeyID),
	})
}

func (r *JoinedRepository) FindByParticipant(_ context.Context, email string) ([]joined.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]joined.Record, 0)
	for _, doc := range r.docs {
		if doc.fields.String(document.KeyCreatedBy) != email {
			continue
		}
		joinedAt, _ := doc.fields[document.KeyJoinedAt].(time.Time)
		out = append(out, joined.Record{
			ID:        doc.id,
			CreatedBy: email,
			JoinedAt:  joinedAt,
			Fields:    doc.fields.Without(document.KeyCreatedBy, document.KeyJoinedAt),
		})
	}
	sortByDateDesc(out, func(rec joined.Record) (any, bool) {
		v, ok := rec.Fields[document.KeyDate]
		return v, ok
	})
	return out, nil
}

func (r *JoinedRepository) Delete(_ context.Context, id joined.RecordID, participant string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, doc := range r.docs {
		if matchesID(doc.id, id) && doc.fields.String(document.KeyCreatedBy) == participant {
			r.docs = append(r.docs[:i], r.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// matchesID accepts an ObjectID lookup in any hex casing, including against
// a record still stored under its hex string as written or lowercased.
func matchesID(stored, want joined.RecordID) bool {
	if want.Kind != joined.KindObjectID {
		return stored == want
	}
	switch stored.Kind {
	case joined.KindObjectID:
		return strings.EqualFold(stored.Value, want.Value)
	case joined.KindLegacy:
		return slices.Contains(want.StringForms(), stored.Value)
	default:
		return false
	}
}

// NormalizeIDs converts legacy hex ids. A legacy record whose ObjectID is
// already taken is dropped only when the holder has the same participant.
func (r *JoinedRepository) NormalizeIDs(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var converted int64
	kept := make([]joinedDoc, 0, len(r.docs))
	for _, doc := range r.docs {
		if doc.id.Kind != joined.KindLegacy || !joined.IsObjectIDHex(doc.id.Value) {
			kept = append(kept, doc)
			continue
		}
		oid := joined.RecordID{Kind: joined.KindObjectID, Value: strings.ToLower(doc.id.Value)}
		holder, taken := findID(kept, oid)
		if !taken {
			holder, taken = findID(r.docs, oid)
		}
		switch {
		case !taken:
			doc.id = oid
			kept = append(kept, doc)
			converted++
		case holder.fields.String(document.KeyCreatedBy) == doc.fields.String(document.KeyCreatedBy):
			converted++
		default:
			kept = append(kept, doc)
		}
	}
	r.docs = kept
	return converted, nil
}

func findID(docs []joinedDoc, id joined.RecordID) (joinedDoc, bool) {
	for _, doc := range docs {
		if doc.id == id {
			return doc, true
		}
	}
	return joinedDoc{}, false
}

// InsertWithObjectID stores a record under a fixed ObjectID hex.
func (r *JoinedRepository) InsertWithObjectID(hex string, fields document.Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, joinedDoc{
		id:     joined.RecordID{Kind: joined.KindObjectID, Value: strings.ToLower(hex)},
		fields: fields.Without(document.KeyID),
	})
}

// sortByDateDesc orders items by their date value, newest first. Items
// without a date sort last, as they do in Mongo.
func sortByDateDesc[T any](items []T, date func(T) (any, bool)) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aok := date(items[i])
		b, bok := date(items[j])
		if aok != bok {
			return aok
		}
		return sortKey(a) > sortKey(b)
	})
}

func sortKey(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
