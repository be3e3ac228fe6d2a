package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxUpsertAttempts bounds the retry loop in UpsertAttendee. A retry only
// happens when a concurrent request inserted the same voter between the two
// conditional updates.
const maxUpsertAttempts = 5

func (mdb *MongodbRepo) CreateEvent(ctx context.Context, event *Event) error {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if event.Attendees == nil {
		// $push needs an array, not null
		event.Attendees = []Attendee{}
	}
	if _, err := col.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEventExists
		}
		return fmt.Errorf("failed to insert event into database: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetEventByID(ctx context.Context, id string) (*Event, error) {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	var event Event
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("error finding event: %w", err)
	}
	return &event, nil
}

func (mdb *MongodbRepo) ListPublicEvents(ctx context.Context, offset, limit int) ([]*Event, int, error) {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}
	filter := bson.M{"private": false}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting events: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*Event, 0, limit)
	for cursor.Next(ctx) {
		var event Event
		if err := cursor.Decode(&event); err != nil {
			return nil, 0, fmt.Errorf("error decoding event: %w", err)
		}
		events = append(events, &event)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error: %w", err)
	}

	return events, int(total), nil
}

// UpsertAttendee relies on single-document atomicity instead of a
// transaction: a positional $set when the voter is already listed, otherwise
// a $push guarded by "no entry for this voter". Both filters carry the
// window cutoff, so an expired event is never written.
func (mdb *MongodbRepo) UpsertAttendee(ctx context.Context, eventID string, attendee Attendee, openAfter time.Time) ([]Attendee, error) {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"attendees": 1})

	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		var updated Event

		replace := bson.M{
			"_id":              eventID,
			"createdAt":        bson.M{"$gt": openAfter},
			"attendees.userId": attendee.UserID,
		}
		update := bson.M{"$set": bson.M{
			"attendees.$.name":   attendee.Name,
			"attendees.$.status": attendee.Status,
		}}
		err := col.FindOneAndUpdate(ctx, replace, update, opts).Decode(&updated)
		if err == nil {
			return updated.Attendees, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("error updating attendee: %w", err)
		}

		insert := bson.M{
			"_id":              eventID,
			"createdAt":        bson.M{"$gt": openAfter},
			"attendees.userId": bson.M{"$ne": attendee.UserID},
		}
		err = col.FindOneAndUpdate(ctx, insert, bson.M{"$push": bson.M{"attendees": attendee}}, opts).Decode(&updated)
		if err == nil {
			return updated.Attendees, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("error appending attendee: %w", err)
		}

		// Neither filter matched: the event is gone, closed, or the same
		// voter was pushed concurrently and the next pass will $set it.
		event, err := mdb.GetEventByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if !event.CreatedAt.After(openAfter) {
			return nil, ErrLinkExpired
		}
	}
	return nil, fmt.Errorf("error upserting attendee: gave up after %d attempts", maxUpsertAttempts)
}

// EnsureIndexes creates the index backing the public listing.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "private", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("error creating events index: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) RegisterVoter(ctx context.Context, voterID string, now time.Time) (*Voter, error) {
	col, err := mdb.GetCollection(VotersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	update := bson.M{
		"$set":         bson.M{"lastActive": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var voter Voter
	if err := col.FindOneAndUpdate(ctx, bson.M{"_id": voterID}, update, opts).Decode(&voter); err != nil {
		return nil, fmt.Errorf("error upserting voter: %w", err)
	}
	return &voter, nil
}

func (mdb *MongodbRepo) TouchVoter(ctx context.Context, voterID string, now time.Time) error {
	col, err := mdb.GetCollection(VotersColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": voterID}, bson.M{"$set": bson.M{"lastActive": now}})
	return err
}
