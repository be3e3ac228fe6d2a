package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreRepo stores events and voters as Firestore documents, the layout
// the web client was originally written against.
type FirestoreRepo struct {
	client *firestore.Client
}

func FirestoreNewRepo(client *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{client: client}
}

func (fr *FirestoreRepo) CreateEvent(ctx context.Context, event *Event) error {
	if event.Attendees == nil {
		event.Attendees = []Attendee{}
	}
	_, err := fr.client.Collection(EventsColName).Doc(event.ID).Create(ctx, event)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrEventExists
		}
		return fmt.Errorf("failed to create event document: %w", err)
	}
	return nil
}

func (fr *FirestoreRepo) GetEventByID(ctx context.Context, id string) (*Event, error) {
	snap, err := fr.client.Collection(EventsColName).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event document: %w", err)
	}
	return decodeEvent(snap)
}

func (fr *FirestoreRepo) ListPublicEvents(ctx context.Context, offset, limit int) ([]*Event, int, error) {
	query := fr.client.Collection(EventsColName).
		Where("private", "==", false).
		OrderBy("createdAt", firestore.Desc)

	agg, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}
	total := 0
	if v, ok := agg["total"].(*firestorepb.Value); ok {
		total = int(v.GetIntegerValue())
	}

	snaps, err := query.Offset(offset).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]*Event, 0, len(snaps))
	for _, snap := range snaps {
		event, err := decodeEvent(snap)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	return events, total, nil
}

// UpsertAttendee runs the read-modify-write in a transaction. Firestore
// aborts and retries conflicting transactions, so two voters writing the
// same event are serialized rather than overwriting each other.
func (fr *FirestoreRepo) UpsertAttendee(ctx context.Context, eventID string, attendee Attendee, openAfter time.Time) ([]Attendee, error) {
	ref := fr.client.Collection(EventsColName).Doc(eventID)
	var result []Attendee

	err := fr.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrEventNotFound
			}
			return err
		}
		event, err := decodeEvent(snap)
		if err != nil {
			return err
		}
		if !event.CreatedAt.After(openAfter) {
			return ErrLinkExpired
		}
		result = MergeAttendee(event.Attendees, attendee)
		return tx.Update(ref, []firestore.Update{{Path: "attendees", Value: result}})
	})
	if err != nil {
		if errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrLinkExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to upsert attendee: %w", err)
	}
	return result, nil
}

func (fr *FirestoreRepo) RegisterVoter(ctx context.Context, voterID string, now time.Time) (*Voter, error) {
	ref := fr.client.Collection(VotersColName).Doc(voterID)
	var voter Voter

	err := fr.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			voter = Voter{ID: voterID, CreatedAt: now, LastActive: now}
			return tx.Create(ref, voter)
		case err != nil:
			return err
		}
		var doc voterDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		existing, err := doc.toVoter(voterID)
		if err != nil {
			return err
		}
		voter = *existing
		voter.LastActive = now
		return tx.Update(ref, []firestore.Update{{Path: "lastActive", Value: now}})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register voter: %w", err)
	}
	return &voter, nil
}

func (fr *FirestoreRepo) TouchVoter(ctx context.Context, voterID string, now time.Time) error {
	_, err := fr.client.Collection(VotersColName).Doc(voterID).Update(ctx, []firestore.Update{
		{Path: "lastActive", Value: now},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to touch voter: %w", err)
	}
	return nil
}

func decodeEvent(snap *firestore.DocumentSnapshot) (*Event, error) {
	var doc eventDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", snap.Ref.ID, err)
	}
	event, err := doc.toEvent(snap.Ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", snap.Ref.ID, err)
	}
	return event, nil
}

// eventDoc is the read shape of an event document. Documents written by the
// web client may carry createdAt as an ISO-8601 string instead of a
// timestamp, so it is decoded untyped.
type eventDoc struct {
	Name         string       `firestore:"name"`
	Date         string       `firestore:"date"`
	Time         string       `firestore:"time"`
	Place        string       `firestore:"place"`
	LocationType LocationType `firestore:"locationType"`
	Emoji        string       `firestore:"emoji"`
	Description  string       `firestore:"description"`
	Private      bool         `firestore:"private"`
	CreatorID    string       `firestore:"creatorId"`
	CreatedAt    any          `firestore:"createdAt"`
	Attendees    []Attendee   `firestore:"attendees"`
}

func (d eventDoc) toEvent(id string) (*Event, error) {
	createdAt, err := docTime(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("createdAt: %w", err)
	}
	attendees := d.Attendees
	if attendees == nil {
		attendees = []Attendee{}
	}
	return &Event{
		ID:           id,
		Name:         d.Name,
		Date:         d.Date,
		Time:         d.Time,
		Place:        d.Place,
		LocationType: d.LocationType,
		Emoji:        d.Emoji,
		Description:  d.Description,
		Private:      d.Private,
		CreatorID:    d.CreatorID,
		CreatedAt:    createdAt,
		Attendees:    attendees,
	}, nil
}

// voterDoc mirrors attendees/{id}; the web client stores both instants as
// ISO strings.
type voterDoc struct {
	CreatedAt  any `firestore:"createdAt"`
	LastActive any `firestore:"lastActive"`
}

func (d voterDoc) toVoter(id string) (*Voter, error) {
	createdAt, err := docTime(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("createdAt: %w", err)
	}
	lastActive, err := docTime(d.LastActive)
	if err != nil {
		return nil, fmt.Errorf("lastActive: %w", err)
	}
	return &Voter{ID: id, CreatedAt: createdAt, LastActive: lastActive}, nil
}

// docTime accepts a Firestore timestamp or an RFC 3339 string. A missing
// field decodes to the zero time.
func docTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time string %q: %w", t, err)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time value of type %T", v)
}
