// Package repository defines the storage interfaces the service layer
// programs against. The concrete SQLite implementation lives in the
// sqlite subpackage; tests substitute in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/chrisBrookes93/events-management/internal/model"
)

// EventFilter selects which events a list query returns. It is a closed
// set — external filter tokens ("o", "a", "p") are mapped onto it by
// service.ParseFilter, and anything unrecognized becomes FilterCurrent.
// Keeping the enum here (not a string) means the repository can't be
// asked for a selection that doesn't exist.
type EventFilter int

const (
	// FilterCurrent selects events whose date_time is now or later.
	// This is the default list view.
	FilterCurrent EventFilter = iota
	// FilterOrganised selects events organised by the viewer,
	// regardless of date.
	FilterOrganised
	// FilterAttended selects events the viewer is attending,
	// regardless of date.
	FilterAttended
	// FilterPast selects events whose date_time is now or earlier.
	FilterPast
)

// EventListOptions parameterizes a list query.
//
// Now is passed in rather than read inside the repository so that one
// request evaluates "now" exactly once — the past/current predicates and
// the is_in_past annotation computed later in the same call can never
// disagree about which side of the boundary an event is on.
type EventListOptions struct {
	Viewer string      // viewer user ID; required for FilterOrganised/FilterAttended
	Filter EventFilter // selection predicate
	Now    time.Time   // evaluation time for FilterCurrent/FilterPast
}

// EventRepository is the storage contract for events and the attendance
// relation.
//
// ORDERING CONTRACT:
// List returns the full selection ordered by ascending date_time, with
// the event ID as tiebreaker, so pagination over the result is stable
// across pages. Every row carries OrganiserEmail and AttendeesCount.
// GetByID additionally loads the attendee list.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, opts EventListOptions) ([]model.Event, error)
	Update(ctx context.Context, event *model.Event) error

	// AddAttendee and RemoveAttendee are set operations: adding an
	// existing attendee or removing an absent one is a no-op, not an
	// error.
	AddAttendee(ctx context.Context, eventID, userID string) error
	RemoveAttendee(ctx context.Context, eventID, userID string) error
}

// UserRepository is the storage contract for accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}
