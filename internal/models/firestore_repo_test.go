package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocTime(t *testing.T) {
	ts := time.Date(2025, 3, 31, 18, 4, 5, 123_000_000, time.UTC)

	cases := []struct {
		name string
		in   any
		want time.Time
	}{
		{"timestamp", ts, ts},
		{"iso string from the web client", "2025-03-31T18:04:05.123Z", ts},
		{"offset string", "2025-03-31T20:04:05.123+02:00", ts},
		{"whole seconds", "2025-03-31T18:04:05Z", ts.Truncate(time.Second)},
		{"missing", nil, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := docTime(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
		})
	}

	_, err := docTime("yesterday")
	assert.Error(t, err)
	_, err = docTime(int64(1_700_000_000_000))
	assert.Error(t, err)
}

func TestVoterDocAcceptsLegacyStrings(t *testing.T) {
	doc := voterDoc{
		CreatedAt:  "2025-03-31T18:00:00.000Z",
		LastActive: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	v, err := doc.toVoter("3b241101-e2bb-4255-8caf-4136c566a962")
	require.NoError(t, err)
	assert.Equal(t, "3b241101-e2bb-4255-8caf-4136c566a962", v.ID)
	assert.True(t, v.CreatedAt.Equal(time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC)))
	assert.True(t, v.LastActive.Equal(time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)))

	_, err = voterDoc{CreatedAt: "not a date"}.toVoter("x")
	assert.Error(t, err)
}

func TestEventDocAcceptsLegacyCreatedAt(t *testing.T) {
	doc := eventDoc{
		Name:         "Game night",
		Date:         "2025-03-31",
		Time:         "20:00",
		Place:        "Discord",
		LocationType: LocationOnline,
		CreatorID:    "creator",
		CreatedAt:    "2025-03-31T18:04:05.123Z",
	}
	event, err := doc.toEvent("e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", event.ID)
	assert.Equal(t, int64(1743444245123), event.CreatedAt.UnixMilli())
	assert.NotNil(t, event.Attendees)
	assert.Empty(t, event.Attendees)

	doc.CreatedAt = time.UnixMilli(1743444245123)
	event, err = doc.toEvent("e1")
	require.NoError(t, err)
	assert.Equal(t, int64(1743444245123), event.CreatedAt.UnixMilli())
}
