package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// VotersTable is expected to have a created_at column defaulting to now(),
// so upserts that only send last_active leave the creation instant intact.
const VotersTable = "voters"

type voterRow struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

func (su *SupabaseRepo) RegisterVoter(ctx context.Context, voterID string, now time.Time) (*Voter, error) {
	row := map[string]interface{}{
		"id":          voterID,
		"last_active": now.UTC(),
	}
	data, _, err := su.supabaseClient.
		From(VotersTable).
		Insert(row, true, "id", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert voter: %w", err)
	}

	var rows []voterRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal voter: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed to upsert voter: empty response")
	}
	return &Voter{ID: rows[0].ID, CreatedAt: rows[0].CreatedAt, LastActive: rows[0].LastActive}, nil
}

func (su *SupabaseRepo) TouchVoter(ctx context.Context, voterID string, now time.Time) error {
	_, _, err := su.supabaseClient.
		From(VotersTable).
		Update(map[string]interface{}{"last_active": now.UTC()}, "minimal", "").
		Eq("id", voterID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to touch voter: %w", err)
	}
	return nil
}
