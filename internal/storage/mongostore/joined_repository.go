package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type JoinedRepository struct {
	coll *mongo.Collection
}

func NewJoinedRepository(coll *mongo.Collection) *JoinedRepository {
	return &JoinedRepository{coll: coll}
}

func (r *JoinedRepository) Insert(ctx context.Context, fields document.Fields) (_ joined.RecordID, err error) {
	ctx, done := observe(ctx, r.coll.Name(), "insert_joined")
	defer func() { done(err) }()

	result, err := r.coll.InsertOne(ctx, bson.M(fields.Without(document.KeyID)))
	if err != nil {
		return joined.RecordID{}, fmt.Errorf("insert joined event: %w", err)
	}
	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return joined.RecordID{}, fmt.Errorf("insert joined event: unexpected id type %T", result.InsertedID)
	}
	return joined.RecordID{Kind: joined.KindObjectID, Value: oid.Hex()}, nil
}

func (r *JoinedRepository) FindByParticipant(ctx context.Context, email string) (_ []joined.Record, err error) {
	ctx, done := observe(ctx, r.coll.Name(), "find_joined")
	defer func() { done(err) }()

	filter := bson.D{{Key: document.KeyCreatedBy, Value: email}}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(dateDesc()))
	if err != nil {
		return nil, fmt.Errorf("find joined events: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode joined events: %w", err)
	}

	out := make([]joined.Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toRecord(doc))
	}
	return out, nil
}

func (r *JoinedRepository) Delete(ctx context.Context, id joined.RecordID, participant string) (_ int64, err error) {
	filter, err := joinedIDFilter(id)
	if err != nil {
		return 0, err
	}
	filter = append(filter, bson.E{Key: document.KeyCreatedBy, Value: participant})

	ctx, done := observe(ctx, r.coll.Name(), "delete_joined")
	defer func() { done(err) }()

	result, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete joined event %s: %w", id, err)
	}
	return result.DeletedCount, nil
}

// NormalizeIDs rewrites every record whose _id is a string of ObjectID hex
// into the same record keyed by the ObjectID. The copy is inserted before
// the original is removed, so an interrupted run can be repeated.
func (r *JoinedRepository) NormalizeIDs(ctx context.Context) (_ int64, err error) {
	ctx, done := observe(ctx, r.coll.Name(), "normalize_joined_ids")
	defer func() { done(err) }()

	filter := bson.D{{Key: document.KeyID, Value: bson.D{{Key: "$type", Value: "string"}}}}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("find legacy joined ids: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, fmt.Errorf("decode legacy joined ids: %w", err)
	}

	var converted int64
	for _, doc := range docs {
		legacy, _ := doc[document.KeyID].(string)
		if !joined.IsObjectIDHex(legacy) {
			continue
		}
		oid, err := bson.ObjectIDFromHex(legacy)
		if err != nil {
			continue
		}

		doc[document.KeyID] = oid
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			if !mongo.IsDuplicateKeyError(err) {
				return converted, fmt.Errorf("copy joined event %s: %w", legacy, err)
			}
			copied, err := r.isCopy(ctx, oid, stringField(doc, document.KeyCreatedBy))
			if err != nil {
				return converted, err
			}
			if !copied {
				// Another participant's record holds this ObjectID; keep the legacy one.
				continue
			}
		}
		if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: document.KeyID, Value: legacy}}); err != nil {
			return converted, fmt.Errorf("remove legacy joined event %s: %w", legacy, err)
		}
		converted++
	}
	return converted, nil
}

// isCopy reports whether the record stored under oid belongs to createdBy,
// which is what an earlier interrupted NormalizeIDs run leaves behind.
func (r *JoinedRepository) isCopy(ctx context.Context, oid bson.ObjectID, createdBy string) (bool, error) {
	var existing bson.M
	err := r.coll.FindOne(ctx, bson.D{{Key: document.KeyID, Value: oid}}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load joined event %s: %w", oid.Hex(), err)
	}
	return stringField(existing, document.KeyCreatedBy) == createdBy, nil
}

// joinedIDFilter matches a record id in its stored representation. An
// ObjectID lookup also matches a record still stored under the hex string,
// as written or lowercased.
func joinedIDFilter(id joined.RecordID) (bson.D, error) {
	switch id.Kind {
	case joined.KindObjectID:
		oid, err := bson.ObjectIDFromHex(id.Value)
		if err != nil {
			return nil, joined.ErrInvalidID
		}
		in := bson.A{oid}
		for _, form := range id.StringForms() {
			in = append(in, form)
		}
		return bson.D{{Key: document.KeyID, Value: bson.D{{Key: "$in", Value: in}}}}, nil
	case joined.KindLegacy:
		if id.Value == "" {
			return nil, joined.ErrInvalidID
		}
		return bson.D{{Key: document.KeyID, Value: id.Value}}, nil
	default:
		return nil, joined.ErrInvalidID
	}
}

func toRecord(doc bson.M) joined.Record {
	id := joined.RecordID{Kind: joined.KindLegacy, Value: idString(doc[document.KeyID])}
	if _, ok := doc[document.KeyID].(bson.ObjectID); ok {
		id.Kind = joined.KindObjectID
	}
	return joined.Record{
		ID:        id,
		CreatedBy: stringField(doc, document.KeyCreatedBy),
		JoinedAt:  timeField(doc, document.KeyJoinedAt),
		Fields:    normalizeDocument(doc, document.KeyID, document.KeyCreatedBy, document.KeyJoinedAt),
	}
}
