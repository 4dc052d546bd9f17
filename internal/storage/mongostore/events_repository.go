package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type EventRepository struct {
	coll *mongo.Collection
}

func NewEventRepository(coll *mongo.Collection) *EventRepository {
	return &EventRepository{coll: coll}
}

func (r *EventRepository) Insert(ctx context.Context, fields document.Fields) (_ string, err error) {
	ctx, done := observe(ctx, r.coll.Name(), "insert_event")
	defer func() { done(err) }()

	result, err := r.coll.InsertOne(ctx, bson.M(fields.Without(document.KeyID)))
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert event: unexpected id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *EventRepository) Find(ctx context.Context, filters events.Filters) (_ []events.Event, err error) {
	ctx, done := observe(ctx, r.coll.Name(), "find_events")
	defer func() { done(err) }()

	cursor, err := r.coll.Find(ctx, eventFilter(filters), eventFindOptions(filters))
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	out := make([]events.Event, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toEvent(doc))
	}
	return out, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (_ *events.Event, err error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, events.ErrInvalidID
	}

	ctx, done := observe(ctx, r.coll.Name(), "get_event")
	defer func() { done(err) }()

	var doc bson.M
	if err = r.coll.FindOne(ctx, bson.D{{Key: document.KeyID, Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	event := toEvent(doc)
	return &event, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, fields document.Fields) (_ events.UpdateResult, err error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		// No stored event has a malformed id.
		return events.UpdateResult{}, nil
	}

	ctx, done := observe(ctx, r.coll.Name(), "update_event")
	defer func() { done(err) }()

	update := bson.D{{Key: "$set", Value: bson.M(fields.Without(document.KeyID))}}
	result, err := r.coll.UpdateOne(ctx, bson.D{{Key: document.KeyID, Value: oid}}, update)
	if err != nil {
		return events.UpdateResult{}, fmt.Errorf("update event %s: %w", id, err)
	}
	return events.UpdateResult{
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
	}, nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) (_ int64, err error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}

	ctx, done := observe(ctx, r.coll.Name(), "delete_event")
	defer func() { done(err) }()

	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: document.KeyID, Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("delete event %s: %w", id, err)
	}
	return result.DeletedCount, nil
}

// eventFilter builds the query document for Find. Search text is matched
// literally and case-insensitively against title. Creators submit createdBy
// in any casing, so it is compared whole and case-insensitively.
func eventFilter(f events.Filters) bson.D {
	filter := bson.D{}
	if f.TitleContains != "" {
		filter = append(filter, bson.E{
			Key:   document.KeyTitle,
			Value: bson.Regex{Pattern: regexp.QuoteMeta(f.TitleContains), Options: "i"},
		})
	}
	if f.EventType != "" {
		filter = append(filter, bson.E{Key: document.KeyEventType, Value: f.EventType})
	}
	if f.CreatedBy != "" {
		filter = append(filter, bson.E{
			Key:   document.KeyCreatedBy,
			Value: bson.Regex{Pattern: "^" + regexp.QuoteMeta(f.CreatedBy) + "$", Options: "i"},
		})
	}
	return filter
}

func eventFindOptions(f events.Filters) *options.FindOptionsBuilder {
	opts := options.Find()
	if f.SortByDateDesc {
		opts.SetSort(dateDesc())
	}
	return opts
}

func dateDesc() bson.D {
	return bson.D{{Key: document.KeyDate, Value: -1}}
}

func toEvent(doc bson.M) events.Event {
	return events.Event{
		ID:        idString(doc[document.KeyID]),
		CreatedBy: stringField(doc, document.KeyCreatedBy),
		Fields:    normalizeDocument(doc, document.KeyID, document.KeyCreatedBy),
	}
}
