package models

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteRepo is the single-file backend used for local development and tests.
// The pool is capped at one connection, so transactions on the same database
// never interleave.
type SQLiteRepo struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteRepo{sqlDB: sqlDB}, nil
}

func (s *SQLiteRepo) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteRepo) CreateEvent(ctx context.Context, event *Event) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO events (
		   id, name, date, time, place, location_type, emoji, description, private, creator_id, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Name,
		event.Date,
		event.Time,
		event.Place,
		string(event.LocationType),
		event.Emoji,
		event.Description,
		event.Private,
		event.CreatorID,
		toMillis(event.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEventExists
		}
		return fmt.Errorf("create event: %w", err)
	}
	if event.Attendees == nil {
		event.Attendees = []Attendee{}
	}
	return nil
}

func (s *SQLiteRepo) GetEventByID(ctx context.Context, id string) (*Event, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, date, time, place, location_type, emoji, description, private, creator_id, created_at
		 FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	attendees, err := listAttendees(ctx, s.sqlDB, id)
	if err != nil {
		return nil, err
	}
	event.Attendees = attendees
	return event, nil
}

func (s *SQLiteRepo) ListPublicEvents(ctx context.Context, offset, limit int) ([]*Event, int, error) {
	var total int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE private = 0`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, date, time, place, location_type, emoji, description, private, creator_id, created_at
		 FROM events WHERE private = 0
		 ORDER BY created_at DESC, id
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	events := make([]*Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("iterate events: %w", err)
	}
	rows.Close()

	// the pool has a single connection, so attendee queries run after rows is closed
	for _, event := range events {
		if event.Attendees, err = listAttendees(ctx, s.sqlDB, event.ID); err != nil {
			return nil, 0, err
		}
	}
	return events, total, nil
}

func (s *SQLiteRepo) UpsertAttendee(ctx context.Context, eventID string, attendee Attendee, openAfter time.Time) ([]Attendee, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	var createdAt int64
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM events WHERE id = ?`, eventID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	if createdAt <= toMillis(openAfter) {
		return nil, ErrLinkExpired
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO attendees (event_id, user_id, name, status, position)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM attendees WHERE event_id = ?))
		 ON CONFLICT (event_id, user_id) DO UPDATE SET name = excluded.name, status = excluded.status`,
		eventID, attendee.UserID, attendee.Name, string(attendee.Status), eventID)
	if err != nil {
		return nil, fmt.Errorf("upsert attendee: %w", err)
	}

	attendees, err := listAttendees(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return attendees, nil
}

func (s *SQLiteRepo) RegisterVoter(ctx context.Context, voterID string, now time.Time) (*Voter, error) {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO voters (id, created_at, last_active) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET last_active = excluded.last_active`,
		voterID, toMillis(now), toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("register voter: %w", err)
	}
	var createdAt, lastActive int64
	err = s.sqlDB.QueryRowContext(ctx, `SELECT created_at, last_active FROM voters WHERE id = ?`, voterID).
		Scan(&createdAt, &lastActive)
	if err != nil {
		return nil, fmt.Errorf("load voter: %w", err)
	}
	return &Voter{ID: voterID, CreatedAt: fromMillis(createdAt), LastActive: fromMillis(lastActive)}, nil
}

func (s *SQLiteRepo) TouchVoter(ctx context.Context, voterID string, now time.Time) error {
	if _, err := s.sqlDB.ExecContext(ctx, `UPDATE voters SET last_active = ? WHERE id = ?`, toMillis(now), voterID); err != nil {
		return fmt.Errorf("touch voter: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		event        Event
		locationType string
		createdAt    int64
	)
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Date,
		&event.Time,
		&event.Place,
		&locationType,
		&event.Emoji,
		&event.Description,
		&event.Private,
		&event.CreatorID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	event.LocationType = LocationType(locationType)
	event.CreatedAt = fromMillis(createdAt)
	return &event, nil
}

func listAttendees(ctx context.Context, q queryer, eventID string) ([]Attendee, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, name, status FROM attendees WHERE event_id = ? ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	attendees := []Attendee{}
	for rows.Next() {
		var a Attendee
		var st string
		if err := rows.Scan(&a.UserID, &a.Name, &st); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		a.Status = RSVPStatus(st)
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}
	return attendees, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}
