package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const mockNS = "whosin." + EventsColName

// noMatch is a findAndModify reply whose filter matched nothing.
func noMatch() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})
}

func updated(attendees ...Attendee) bson.D {
	list := bson.A{}
	for _, a := range attendees {
		list = append(list, bson.D{{Key: "userId", Value: a.UserID}, {Key: "name", Value: a.Name}, {Key: "status", Value: string(a.Status)}})
	}
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
		{Key: "_id", Value: "e1"},
		{Key: "attendees", Value: list},
	}})
}

func eventFound(createdAt time.Time) bson.D {
	return mtest.CreateCursorResponse(0, mockNS, mtest.FirstBatch, bson.D{
		{Key: "_id", Value: "e1"},
		{Key: "name", Value: "Game night"},
		{Key: "createdAt", Value: createdAt},
		{Key: "attendees", Value: bson.A{}},
	})
}

func updateHas(mt *mtest.T, operator string) bool {
	started := mt.GetStartedEvent()
	require.NotNil(mt, started)
	require.Equal(mt, "findAndModify", started.CommandName)
	_, err := started.Command.LookupErr("update", operator)
	return err == nil
}

func TestMongoUpsertAttendee(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Now().UTC().Truncate(time.Millisecond)
	openAfter := now.Add(-time.Hour)
	alice := Attendee{UserID: "alice", Name: "Alice", Status: StatusIn}

	mt.Run("new voter is pushed after the replace misses", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "whosin")
		mt.AddMockResponses(noMatch(), updated(alice))

		list, err := repo.UpsertAttendee(mt.Context(), "e1", alice, openAfter)
		require.NoError(mt, err)
		assert.Equal(mt, []Attendee{alice}, list)

		assert.True(mt, updateHas(mt, "$set"))
		assert.True(mt, updateHas(mt, "$push"))
	})

	mt.Run("known voter is replaced in place", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "whosin")
		changed := Attendee{UserID: "alice", Name: "Al", Status: StatusMaybe}
		mt.AddMockResponses(updated(changed))

		list, err := repo.UpsertAttendee(mt.Context(), "e1", changed, openAfter)
		require.NoError(mt, err)
		assert.Equal(mt, []Attendee{changed}, list)
		assert.Len(mt, mt.GetAllStartedEvents(), 1)
	})

	mt.Run("expired event is not written", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "whosin")
		mt.AddMockResponses(noMatch(), noMatch(), eventFound(now.Add(-2*time.Hour)))

		_, err := repo.UpsertAttendee(mt.Context(), "e1", alice, openAfter)
		assert.ErrorIs(mt, err, ErrLinkExpired)
	})

	mt.Run("missing event", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "whosin")
		mt.AddMockResponses(noMatch(), noMatch(), mtest.CreateCursorResponse(0, mockNS, mtest.FirstBatch))

		_, err := repo.UpsertAttendee(mt.Context(), "e1", alice, openAfter)
		assert.ErrorIs(mt, err, ErrEventNotFound)
	})

	mt.Run("same voter pushed concurrently is replaced on the next pass", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "whosin")
		mt.AddMockResponses(noMatch(), noMatch(), eventFound(now.Add(-time.Minute)), updated(alice))

		list, err := repo.UpsertAttendee(mt.Context(), "e1", alice, openAfter)
		require.NoError(mt, err)
		assert.Equal(mt, []Attendee{alice}, list)
		assert.Len(mt, mt.GetAllStartedEvents(), 4)
	})
}
