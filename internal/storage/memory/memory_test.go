package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
	"github.com/Togather-Foundation/social-events/internal/storage"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var _ storage.Store = (*Store)(nil)

func TestEventRepositoryInsertAssignsObjectID(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()

	id, err := repo.Insert(ctx, document.Fields{"_id": "client", "title": "Picnic", "createdBy": "a@x.com"})
	require.NoError(t, err)
	_, err = bson.ObjectIDFromHex(id)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", got.CreatedBy)
	require.NotContains(t, got.Fields, "_id")
	require.NotContains(t, got.Fields, "createdBy")
}

func TestEventRepositoryInsertCopiesFields(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()
	fields := document.Fields{"title": "Picnic"}

	id, err := repo.Insert(ctx, fields)
	require.NoError(t, err)
	fields["title"] = "mutated"

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Picnic", got.Fields["title"])
}

func TestEventRepositoryIDErrors(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "nope")
	require.ErrorIs(t, err, events.ErrInvalidID)

	_, err = repo.GetByID(ctx, "64b7f9c2a1e4d3b2c1a09f8e")
	require.ErrorIs(t, err, events.ErrNotFound)

	result, err := repo.Update(ctx, "64b7f9c2a1e4d3b2c1a09f8e", document.Fields{"title": "x"})
	require.NoError(t, err)
	require.Zero(t, result.MatchedCount)

	deleted, err := repo.Delete(ctx, "64b7f9c2a1e4d3b2c1a09f8e")
	require.NoError(t, err)
	require.Zero(t, deleted)

	result, err = repo.Update(ctx, "nope", document.Fields{"title": "x"})
	require.NoError(t, err)
	require.Zero(t, result.MatchedCount, "a malformed id matches nothing")

	deleted, err = repo.Delete(ctx, "nope")
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestEventRepositoryIDCasing(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()
	id, err := repo.Insert(ctx, document.Fields{"title": "Picnic", "createdBy": "A@X.com"})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, strings.ToUpper(id))
	require.NoError(t, err)
	require.Equal(t, id, got.ID)

	mine, err := repo.Find(ctx, events.Filters{CreatedBy: "a@x.com"})
	require.NoError(t, err)
	require.Len(t, mine, 1, "creator matches regardless of case")
}

func TestEventRepositoryUpdateCounts(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()
	id, err := repo.Insert(ctx, document.Fields{"title": "Picnic"})
	require.NoError(t, err)

	same, err := repo.Update(ctx, id, document.Fields{"title": "Picnic"})
	require.NoError(t, err)
	require.Equal(t, events.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, same)

	changed, err := repo.Update(ctx, id, document.Fields{"title": "Feast"})
	require.NoError(t, err)
	require.Equal(t, events.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, changed)
}

func TestEventRepositoryFind(t *testing.T) {
	repo := NewEventRepository()
	ctx := context.Background()
	seed := []document.Fields{
		{"title": "Beach Cleanup", "eventType": "Volunteer", "createdBy": "a@x.com", "date": "2025-01-01"},
		{"title": "a.b title", "eventType": "Music", "createdBy": "a@x.com", "date": "2025-06-01"},
		{"title": "axb title", "eventType": "Music", "createdBy": "b@x.com"},
	}
	for _, fields := range seed {
		_, err := repo.Insert(ctx, fields)
		require.NoError(t, err)
	}

	all, err := repo.Find(ctx, events.Filters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Beach Cleanup", all[0].Fields["title"], "insertion order without sort")

	literal, err := repo.Find(ctx, events.Filters{TitleContains: "a.b"})
	require.NoError(t, err)
	require.Len(t, literal, 1, "search text is literal")

	music, err := repo.Find(ctx, events.Filters{EventType: "music"})
	require.NoError(t, err)
	require.Empty(t, music, "event type matches exactly")

	mine, err := repo.Find(ctx, events.Filters{CreatedBy: "a@x.com", SortByDateDesc: true})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "2025-06-01", mine[0].Fields["date"])
}

func TestJoinedRepositoryObjectIDMatchesLegacyHex(t *testing.T) {
	repo := NewJoinedRepository()
	ctx := context.Background()
	repo.InsertLegacy("64b7f9c2a1e4d3b2c1a09f8e", document.Fields{"createdBy": "a@x.com"})

	id, err := joined.ParseRecordID("64b7f9c2a1e4d3b2c1a09f8e")
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, id, "b@x.com")
	require.NoError(t, err)
	require.Zero(t, deleted)

	deleted, err = repo.Delete(ctx, id, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestJoinedRepositoryFindByParticipant(t *testing.T) {
	repo := NewJoinedRepository()
	ctx := context.Background()
	joinedAt := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Insert(ctx, document.Fields{"createdBy": "a@x.com", "joinedAt": joinedAt, "title": "Picnic"})
	require.NoError(t, err)
	repo.InsertLegacy("legacy-1", document.Fields{"createdBy": "a@x.com", "title": "Old"})
	_, err = repo.Insert(ctx, document.Fields{"createdBy": "b@x.com"})
	require.NoError(t, err)

	records, err := repo.FindByParticipant(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, joined.KindObjectID, records[0].ID.Kind)
	require.Equal(t, joinedAt, records[0].JoinedAt)
	require.NotContains(t, records[0].Fields, "joinedAt")
	require.Equal(t, joined.RecordID{Kind: joined.KindLegacy, Value: "legacy-1"}, records[1].ID)
}

func TestJoinedRepositoryUppercaseLegacyHex(t *testing.T) {
	repo := NewJoinedRepository()
	ctx := context.Background()
	repo.InsertLegacy("64B7F9C2A1E4D3B2C1A09F8E", document.Fields{"createdBy": "a@x.com"})

	id, err := joined.ParseRecordID("64B7F9C2A1E4D3B2C1A09F8E")
	require.NoError(t, err)
	deleted, err := repo.Delete(ctx, id, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestJoinedRepositoryNormalizeCollisions(t *testing.T) {
	repo := NewJoinedRepository()
	ctx := context.Background()
	repo.InsertWithObjectID("64b7f9c2a1e4d3b2c1a09f8e", document.Fields{"createdBy": "b@x.com", "title": "Bob's"})
	repo.InsertLegacy("64b7f9c2a1e4d3b2c1a09f8e", document.Fields{"createdBy": "a@x.com", "title": "Alice's"})
	repo.InsertWithObjectID("64b7f9c2a1e4d3b2c1a09f8f", document.Fields{"createdBy": "a@x.com", "title": "Copied"})
	repo.InsertLegacy("64b7f9c2a1e4d3b2c1a09f8f", document.Fields{"createdBy": "a@x.com", "title": "Copied"})

	converted, err := repo.NormalizeIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), converted)

	records, err := repo.FindByParticipant(ctx, "a@x.com")
	require.NoError(t, err)
	ids := map[joined.RecordID]string{}
	for _, rec := range records {
		ids[rec.ID] = rec.Fields.String("title")
	}
	require.Equal(t, map[joined.RecordID]string{
		{Kind: joined.KindLegacy, Value: "64b7f9c2a1e4d3b2c1a09f8e"}:   "Alice's",
		{Kind: joined.KindObjectID, Value: "64b7f9c2a1e4d3b2c1a09f8f"}: "Copied",
	}, ids)

	bobs, err := repo.FindByParticipant(ctx, "b@x.com")
	require.NoError(t, err)
	require.Len(t, bobs, 1)

	again, err := repo.NormalizeIDs(ctx)
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestStore(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Ping(context.Background()))
	require.Same(t, store.EventRepository(), store.Events())
	require.Same(t, store.JoinedRepository(), store.Joined())
	require.NoError(t, store.Close(context.Background()))
}
