package handler

import (
	"time"

	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/service"
)

// Projection functions turning domain records into response shapes.
//
// Each surface gets its own explicit output struct built by its own
// function — no layering or field inheritance between them. The list row
// is what every list endpoint returns; the detail row adds the attendee
// list and the viewer-relative flags, which only exist on annotated
// events.

// userRow is the attendee shape embedded in event detail responses.
type userRow struct {
	Email        string `json:"email"`
	FriendlyName string `json:"friendly_name"`
}

// eventListRow is one element of a list response.
type eventListRow struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	DateTime              time.Time `json:"date_time"`
	AttendeesCount        int       `json:"attendees_count"`
	OrganiserFriendlyName string    `json:"organiser_friendly_name"`
	Organiser             string    `json:"organiser"`
	URL                   string    `json:"url"`
}

// eventDetailRow is the single-event response, annotated for the viewer.
type eventDetailRow struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	DateTime              time.Time `json:"date_time"`
	OrganiserFriendlyName string    `json:"organiser_friendly_name"`
	Organiser             string    `json:"organiser"`
	Attendees             []userRow `json:"attendees"`
	IsOrganiser           bool      `json:"is_organiser"`
	IsInPast              bool      `json:"is_in_past"`
	IsAttending           bool      `json:"is_attending"`
}

func toUserRow(u model.User) userRow {
	return userRow{
		Email:        u.Email,
		FriendlyName: u.FriendlyName(),
	}
}

func toListRow(e model.Event) eventListRow {
	return eventListRow{
		ID:                    e.ID,
		Title:                 e.Title,
		Description:           e.Description,
		DateTime:              e.DateTime,
		AttendeesCount:        e.AttendeesCount,
		OrganiserFriendlyName: model.FriendlyName(e.OrganiserEmail),
		Organiser:             e.OrganiserEmail,
		URL:                   "/api/event/" + e.ID + "/",
	}
}

func toDetailRow(a *service.AnnotatedEvent) eventDetailRow {
	attendees := make([]userRow, 0, len(a.Attendees))
	for _, u := range a.Attendees {
		attendees = append(attendees, toUserRow(u))
	}

	return eventDetailRow{
		ID:                    a.ID,
		Title:                 a.Title,
		Description:           a.Description,
		DateTime:              a.DateTime,
		OrganiserFriendlyName: model.FriendlyName(a.OrganiserEmail),
		Organiser:             a.OrganiserEmail,
		Attendees:             attendees,
		IsOrganiser:           a.IsOrganiser,
		IsInPast:              a.IsInPast,
		IsAttending:           a.IsAttending,
	}
}
