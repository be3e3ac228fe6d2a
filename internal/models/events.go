package models

import (
	"strings"
	"time"

	"github.com/joshua-takyi/whosin/internal/signature"
)

type LocationType string

const (
	LocationRealLife LocationType = "real-life"
	LocationOnline   LocationType = "online"
)

type RSVPStatus string

const (
	StatusIn    RSVPStatus = "in"
	StatusMaybe RSVPStatus = "maybe"
	StatusOut   RSVPStatus = "out"
)

// DefaultDisplayName is shown for voters who leave the name field blank.
const DefaultDisplayName = "Anonymous user"

const (
	EventsColName = "events"
	VotersColName = "attendees"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case StatusIn, StatusMaybe, StatusOut:
		return true
	}
	return false
}

type Attendee struct {
	UserID string     `bson:"userId" json:"userId" firestore:"userId"`
	Name   string     `bson:"name" json:"name" firestore:"name"`
	Status RSVPStatus `bson:"status" json:"status" firestore:"status"`
}

type Event struct {
	ID           string       `bson:"_id" json:"id" firestore:"-"`
	Name         string       `bson:"name" json:"name" firestore:"name"`
	Date         string       `bson:"date" json:"date" firestore:"date"`                         // e.g., "2025-03-31"
	Time         string       `bson:"time" json:"time" firestore:"time"`                         // e.g., "20:00"
	Place        string       `bson:"place" json:"place" firestore:"place"`                      // e.g., "Discord"
	LocationType LocationType `bson:"locationType" json:"locationType" firestore:"locationType"` // "real-life" or "online"
	Emoji        string       `bson:"emoji" json:"emoji" firestore:"emoji"`
	Description  string       `bson:"description" json:"description" firestore:"description"`
	Private      bool         `bson:"private" json:"private" firestore:"private"`
	CreatorID    string       `bson:"creatorId" json:"creatorId" firestore:"creatorId"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	Attendees    []Attendee   `bson:"attendees" json:"attendees" firestore:"attendees"`
}

// EventView is the read model served to voters: the event plus its link window.
type EventView struct {
	Event            *Event `json:"event"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	Expired          bool   `json:"expired"`
}

// VotePayload is the eventData of a signed RSVP submission. Field order is
// part of the signed message.
type VotePayload struct {
	EventID     string     `json:"eventId" validate:"required,max=64"`
	DisplayName string     `json:"displayName" validate:"max=80"`
	Status      RSVPStatus `json:"status" validate:"required,oneof=in maybe out"`
}

func (p VotePayload) WriteCanonical(o *signature.Object) {
	o.String("eventId", p.EventID).
		String("displayName", p.DisplayName).
		String("status", string(p.Status))
}

// Attendee builds the stored entry for voterID, applying the display name default.
func (p VotePayload) Attendee(voterID string) Attendee {
	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = DefaultDisplayName
	}
	return Attendee{UserID: voterID, Name: name, Status: p.Status}
}

// EventPayload is the eventData of a signed event creation request.
type EventPayload struct {
	Name         string       `json:"name" validate:"required,max=120"`
	Date         string       `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string       `json:"time" validate:"required,datetime=15:04"`
	Place        string       `json:"place" validate:"required,max=200"`
	LocationType LocationType `json:"locationType" validate:"required,oneof=real-life online"`
	Emoji        string       `json:"emoji" validate:"max=32"`
	Description  string       `json:"description" validate:"max=2000"`
	Private      bool         `json:"private"`
}

func (p EventPayload) WriteCanonical(o *signature.Object) {
	o.String("name", p.Name).
		String("date", p.Date).
		String("time", p.Time).
		String("place", p.Place).
		String("locationType", string(p.LocationType)).
		String("emoji", p.Emoji).
		String("description", p.Description).
		Bool("private", p.Private)
}

func (p *EventPayload) Sanitize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Place = strings.TrimSpace(p.Place)
	p.Description = strings.TrimSpace(p.Description)
	p.Emoji = strings.TrimSpace(p.Emoji)
}

// Envelope is the signed request body shared by vote and creation endpoints.
type Envelope[T signature.Payload] struct {
	EventData T      `json:"eventData"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"userId" validate:"required,max=128,printascii"`
}

type VoteEnvelope = Envelope[VotePayload]

type EventEnvelope = Envelope[EventPayload]

// MergeAttendee returns a copy of list with a upserted by voter identifier:
// an existing entry keeps its position, a new one is appended.
func MergeAttendee(list []Attendee, a Attendee) []Attendee {
	out := make([]Attendee, 0, len(list)+1)
	replaced := false
	for _, existing := range list {
		if existing.UserID == a.UserID {
			if !replaced {
				out = append(out, a)
				replaced = true
			}
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, a)
	}
	return out
}
