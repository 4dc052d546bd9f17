package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Togather-Foundation/social-events/internal/domain/document"
	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"github.com/Togather-Foundation/social-events/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

const (
	alice = "a@x.com"
	bob   = "b@x.com"
)

func newService(t *testing.T) (*events.Service, *memory.EventRepository) {
	t.Helper()
	repo := memory.NewEventRepository()
	return events.NewService(repo), repo
}

func mustCreate(t *testing.T, svc *events.Service, caller string, fields document.Fields) string {
	t.Helper()
	id, err := svc.Create(context.Background(), caller, fields)
	require.NoError(t, err)
	return id
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id := mustCreate(t, svc, alice, document.Fields{
		"title":     "Beach Cleanup",
		"eventType": "Volunteer",
		"createdBy": alice,
		"location":  map[string]any{"city": "Halifax"},
	})

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, alice, got.CreatedBy)
	require.Equal(t, "Beach Cleanup", got.Fields["title"])
	require.Equal(t, "Volunteer", got.Fields["eventType"])
	require.Equal(t, map[string]any{"city": "Halifax"}, got.Fields["location"])
}

func TestCreateAssertsCaller(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id := mustCreate(t, svc, "A@X.com", document.Fields{"title": "Picnic"})
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, alice, got.CreatedBy)

	_, err = svc.Create(ctx, alice, document.Fields{"title": "Spoof", "createdBy": bob})
	require.ErrorIs(t, err, events.ErrForbidden)

	_, err = svc.Create(ctx, "", document.Fields{"title": "Anonymous"})
	require.ErrorIs(t, err, events.ErrForbidden)
}

func TestCreateKeepsSubmittedCreator(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id := mustCreate(t, svc, alice, document.Fields{"title": "Picnic", "createdBy": "A@X.com"})
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "A@X.com", got.CreatedBy)

	mine, err := svc.ListByCreator(ctx, alice, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = svc.Delete(ctx, alice, id)
	require.NoError(t, err)
}

func TestCreateNullCreator(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	id := mustCreate(t, svc, alice, document.Fields{"title": "Picnic", "createdBy": nil})
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, alice, got.CreatedBy)

	_, err = svc.Create(ctx, alice, document.Fields{"title": "Picnic", "createdBy": 42})
	require.ErrorIs(t, err, events.ErrForbidden)
}

func TestCreateIgnoresClientID(t *testing.T) {
	svc, _ := newService(t)

	id := mustCreate(t, svc, alice, document.Fields{"_id": "chosen-by-client", "title": "Picnic"})
	require.NotEqual(t, "chosen-by-client", id)
}

func TestUpdateOwnership(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, alice, document.Fields{"title": "Beach Cleanup", "eventType": "Volunteer"})

	t.Run("body names another creator", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, id, document.Fields{"createdBy": bob, "title": "Hacked"})
		require.ErrorIs(t, err, events.ErrForbidden)
	})

	t.Run("caller is not the creator", func(t *testing.T) {
		_, err := svc.Update(ctx, bob, id, document.Fields{"createdBy": bob, "title": "Hacked"})
		require.ErrorIs(t, err, events.ErrForbidden)
	})

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Beach Cleanup", got.Fields["title"], "forbidden updates leave the record unchanged")

	t.Run("owner updates and createdBy is stripped", func(t *testing.T) {
		result, err := svc.Update(ctx, alice, id, document.Fields{"createdBy": alice, "title": "Harbour Cleanup"})
		require.NoError(t, err)
		require.Equal(t, int64(1), result.MatchedCount)
		require.Equal(t, int64(1), result.ModifiedCount)

		got, err := svc.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "Harbour Cleanup", got.Fields["title"])
		require.Equal(t, "Volunteer", got.Fields["eventType"], "partial update keeps other fields")
		require.Equal(t, alice, got.CreatedBy)
	})

	t.Run("nothing left to update", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, id, document.Fields{"createdBy": alice, "_id": id})
		require.ErrorIs(t, err, events.ErrEmptyUpdate)
	})
}

func TestUpdateMissingEvent(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Update(context.Background(), alice, "64b7f9c2a1e4d3b2c1a09f8e", document.Fields{"title": "x"})
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, alice, document.Fields{"title": "Beach Cleanup"})

	_, err := svc.Delete(ctx, bob, id)
	require.ErrorIs(t, err, events.ErrForbidden)

	deleted, err := svc.Delete(ctx, alice, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = svc.Get(ctx, id)
	require.ErrorIs(t, err, events.ErrNotFound)

	_, err = svc.Delete(ctx, alice, id)
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestMalformedIDs(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-an-id")
	require.ErrorIs(t, err, events.ErrInvalidID)

	_, err = svc.Delete(ctx, alice, "not-an-id")
	require.ErrorIs(t, err, events.ErrNotFound)
	require.NotErrorIs(t, err, events.ErrInvalidID)

	_, err = svc.DeleteManaged(ctx, alice, "", "nonexistent")
	require.ErrorIs(t, err, events.ErrNotFound)

	_, err = svc.Update(ctx, alice, "not-an-id", document.Fields{"title": "x"})
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestDeleteManaged(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, alice, document.Fields{"title": "Beach Cleanup"})

	_, err := svc.DeleteManaged(ctx, bob, alice, id)
	require.ErrorIs(t, err, events.ErrForbidden, "query email cannot stand in for the session")

	_, err = svc.DeleteManaged(ctx, alice, bob, id)
	require.ErrorIs(t, err, events.ErrForbidden)

	deleted, err := svc.DeleteManaged(ctx, alice, "", id)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestSearchAndFilter(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	mustCreate(t, svc, alice, document.Fields{"title": "Beach Cleanup", "eventType": "Volunteer"})
	mustCreate(t, svc, alice, document.Fields{"title": "Jazz on the BEACH", "eventType": "Music"})
	mustCreate(t, svc, bob, document.Fields{"title": "Chess Night", "eventType": "Games"})

	found, err := svc.Search(ctx, "beach")
	require.NoError(t, err)
	require.Len(t, found, 2)

	found, err = svc.Search(ctx, "  ")
	require.NoError(t, err)
	require.Len(t, found, 3)

	music, err := svc.ByType(ctx, "Music")
	require.NoError(t, err)
	require.Len(t, music, 1)
	require.Equal(t, "Jazz on the BEACH", music[0].Fields["title"])

	all, err := svc.List(ctx)
	require.NoError(t, err)
	for _, sentinel := range []string{events.AllTypes, ""} {
		filtered, err := svc.ByType(ctx, sentinel)
		require.NoError(t, err)
		require.Equal(t, all, filtered)
	}
}

func TestListByCreator(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	mustCreate(t, svc, alice, document.Fields{"title": "Old", "date": "2024-01-10"})
	mustCreate(t, svc, alice, document.Fields{"title": "New", "date": "2025-06-01"})
	mustCreate(t, svc, bob, document.Fields{"title": "Bob's", "date": "2025-07-01"})

	mine, err := svc.ListByCreator(ctx, alice, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "New", mine[0].Fields["title"])
	require.Equal(t, "Old", mine[1].Fields["title"])

	defaulted, err := svc.ListByCreator(ctx, alice, "")
	require.NoError(t, err)
	require.Equal(t, mine, defaulted)

	_, err = svc.ListByCreator(ctx, alice, bob)
	require.True(t, errors.Is(err, events.ErrForbidden))
}
