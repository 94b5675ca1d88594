package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/repository"
)

// Compile-time check that *DB implements repository.EventRepository.
var _ repository.EventRepository = (*DB)(nil)

// eventColumns is the SELECT list shared by GetByID and List. The
// attendees_count subquery gives every row its attendee cardinality
// without a GROUP BY over the join.
const eventColumns = `
	e.id, e.title, e.description, e.date_time, e.organiser_id,
	u.email, e.created_at, e.updated_at,
	(SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS attendees_count`

// Create inserts a new event. The ID (xid: 20 chars, URL-safe, sortable by
// creation time) and timestamps are generated here and written back onto
// the caller's struct.
func (db *DB) Create(ctx context.Context, event *model.Event) error {
	event.ID = xid.New().String()

	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.DateTime = event.DateTime.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (id, title, description, date_time, organiser_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Title,
		event.Description,
		event.DateTime,
		event.OrganiserID,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating event: %w", err)
	}

	return nil
}

// GetByID retrieves a single event including its organiser's email, its
// attendee count, and the full attendee list.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 JOIN users u ON u.id = e.organiser_id
		 WHERE e.id = ?`,
		id,
	).Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.DateTime,
		&e.OrganiserID,
		&e.OrganiserEmail,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.AttendeesCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}

	attendees, err := db.listAttendees(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Attendees = attendees

	return &e, nil
}

// listAttendees loads the attendee list for one event, ordered by email
// for a deterministic detail view.
func (db *DB) listAttendees(ctx context.Context, eventID string) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT us.id, us.email, us.is_staff, us.is_active, us.joined_at
		 FROM event_attendees a
		 JOIN users us ON us.id = a.user_id
		 WHERE a.event_id = ?
		 ORDER BY us.email`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing attendees for event %s: %w", eventID, err)
	}
	defer rows.Close()

	attendees := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.IsStaff, &u.IsActive, &u.JoinedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning attendee row: %w", err)
		}
		attendees = append(attendees, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating attendees: %w", err)
	}

	return attendees, nil
}

// List returns the selection described by opts, ordered by ascending
// date_time with the id as tiebreaker (xids sort by creation time, so
// same-instant events keep a stable, deterministic order and pagination
// never shuffles rows between pages).
//
// FilterOrganised and FilterAttended apply no date boundary — they
// include past and future events. FilterPast/FilterCurrent compare
// against opts.Now, inclusively on both sides of the boundary.
func (db *DB) List(ctx context.Context, opts repository.EventListOptions) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + `
		 FROM events e
		 JOIN users u ON u.id = e.organiser_id`

	var args []any
	switch opts.Filter {
	case repository.FilterOrganised:
		query += ` WHERE e.organiser_id = ?`
		args = append(args, opts.Viewer)
	case repository.FilterAttended:
		query += ` WHERE EXISTS (
			SELECT 1 FROM event_attendees a
			WHERE a.event_id = e.id AND a.user_id = ?)`
		args = append(args, opts.Viewer)
	case repository.FilterPast:
		query += ` WHERE e.date_time <= ?`
		args = append(args, opts.Now.UTC())
	default: // FilterCurrent
		query += ` WHERE e.date_time >= ?`
		args = append(args, opts.Now.UTC())
	}
	query += ` ORDER BY e.date_time, e.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.DateTime, &e.OrganiserID,
			&e.OrganiserEmail, &e.CreatedAt, &e.UpdatedAt, &e.AttendeesCount,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}

	return events, nil
}

// Update rewrites the mutable fields of an event: title, description and
// date_time. The organiser is fixed at creation and never updated here.
// RowsAffected == 0 means the WHERE clause matched nothing → NotFound.
func (db *DB) Update(ctx context.Context, event *model.Event) error {
	event.UpdatedAt = time.Now().UTC()
	event.DateTime = event.DateTime.UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE events
		 SET title = ?, description = ?, date_time = ?, updated_at = ?
		 WHERE id = ?`,
		event.Title,
		event.Description,
		event.DateTime,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating event %s: %w", event.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("event", event.ID)
	}

	return nil
}

// AddAttendee records that userID attends eventID. INSERT OR IGNORE gives
// set semantics — attending twice is a no-op, not a constraint error.
func (db *DB) AddAttendee(ctx context.Context, eventID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO event_attendees (event_id, user_id) VALUES (?, ?)`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding attendee %s to event %s: %w", userID, eventID, err)
	}
	return nil
}

// RemoveAttendee removes userID from eventID's attendee set. Removing a
// non-attendee is a no-op.
func (db *DB) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing attendee %s from event %s: %w", userID, eventID, err)
	}
	return nil
}
