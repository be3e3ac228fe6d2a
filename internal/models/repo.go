package models

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = validator.New()

// EventRepo persists events and reconciles their attendee lists.
type EventRepo interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEventByID(ctx context.Context, id string) (*Event, error)
	ListPublicEvents(ctx context.Context, offset, limit int) ([]*Event, int, error)
	// UpsertAttendee atomically inserts or replaces the entry keyed by
	// attendee.UserID. The write only happens while the event's createdAt
	// is strictly after openAfter; otherwise ErrLinkExpired is returned.
	UpsertAttendee(ctx context.Context, eventID string, attendee Attendee, openAfter time.Time) ([]Attendee, error)
}

// VoterRepo is the ledger of anonymous voter identifiers.
type VoterRepo interface {
	RegisterVoter(ctx context.Context, voterID string, now time.Time) (*Voter, error)
	TouchVoter(ctx context.Context, voterID string, now time.Time) error
}

type SupabaseRepo struct {
	supabaseClient *supabase.Client
}

func SupabaseNewRepo(supabaseClient *supabase.Client) *SupabaseRepo {
	return &SupabaseRepo{
		supabaseClient: supabaseClient,
	}
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}

func (mdb *MongodbRepo) GetCollection(colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}
