package model

import "time"

// Event represents a scheduled event with a single owning organiser and a
// set of attendees.
//
// INVARIANTS:
//   - Exactly one organiser, set at creation and never reassigned.
//   - Description is always present (defaults to the empty string).
//   - DateTime is always set; it is stored in UTC.
//   - The attendees set holds distinct users; the organiser gets no
//     special-casing (they may attend their own event, or not).
//
// AttendeesCount and the relations below are filled at query time by the
// repository — they are derived state, not columns on the events table.
// Viewer-relative flags (is the viewer organising/attending, is the event
// over) are NOT here: they depend on who is asking, so they live on
// service.AnnotatedEvent and are computed per request.
type Event struct {
	ID          string    `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	DateTime    time.Time `json:"dateTime"    db:"date_time"`
	OrganiserID string    `json:"organiserId" db:"organiser_id"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`

	// Query-time derived state.
	OrganiserEmail string `json:"-"`
	AttendeesCount int    `json:"-"`
	Attendees      []User `json:"-"` // populated on detail reads only
}

// IsAttendedBy reports whether the given user is in the attendees set.
// Only meaningful on events fetched with their attendee list.
func (e *Event) IsAttendedBy(userID string) bool {
	for i := range e.Attendees {
		if e.Attendees[i].ID == userID {
			return true
		}
	}
	return false
}
