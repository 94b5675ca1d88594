// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// EventService is the query/derivation core: it owns filter dispatch, the
// per-viewer annotations, write authorization and the attendance rules.
// It takes repository interfaces (not *sqlite.DB) so tests can inject
// in-memory mocks and the whole engine runs without a database.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/repository"
)

// MaxTitleLength bounds event titles.
const MaxTitleLength = 250

// ParseFilter maps an external filter token onto the closed filter enum.
//
//	"o" → organised by the viewer (no date boundary)
//	"a" → attended by the viewer (no date boundary)
//	"p" → in the past (date_time <= now)
//	anything else, including "" → current (date_time >= now)
//
// An unrecognized token is NOT an error — it silently falls back to the
// default view, so a mistyped query string still renders a page.
func ParseFilter(token string) repository.EventFilter {
	switch token {
	case "o":
		return repository.FilterOrganised
	case "a":
		return repository.FilterAttended
	case "p":
		return repository.FilterPast
	default:
		return repository.FilterCurrent
	}
}

// AnnotatedEvent is an event decorated with viewer-relative state. The
// flags depend on who is asking and when, so they are computed per call
// and never persisted.
type AnnotatedEvent struct {
	*model.Event
	IsOrganiser bool
	IsAttending bool
	IsInPast    bool
}

// annotate is the post-fetch decoration pass: given a fetched event, the
// viewer and a single evaluation instant, it computes the derived flags.
// Pure function — tested without any storage behind it.
//
// IsInPast uses a strict "before now" comparison; an event happening at
// exactly this instant is not yet in the past.
func annotate(e *model.Event, viewerID string, now time.Time) *AnnotatedEvent {
	return &AnnotatedEvent{
		Event:       e,
		IsOrganiser: e.OrganiserID == viewerID,
		IsAttending: e.IsAttendedBy(viewerID),
		IsInPast:    e.DateTime.Before(now),
	}
}

// canWrite is the single write-authorization rule: only the organiser may
// mutate an event. Reads are allowed to any authenticated viewer.
func canWrite(viewerID string, e *model.Event) bool {
	return e.OrganiserID == viewerID
}

// EventService implements the event query engine and mutations.
type EventService struct {
	repo   repository.EventRepository
	logger *slog.Logger

	// now is stubbed in tests to pin the past/current boundary.
	now func() time.Time
}

// NewEventService creates an EventService.
func NewEventService(repo repository.EventRepository, logger *slog.Logger) *EventService {
	return &EventService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the events selected by filterToken for the given viewer,
// ordered by ascending date_time (id tiebreaker), each row annotated with
// its attendee count and organiser email.
//
// "now" is read once here and drives the whole call, so the past/current
// predicate can't flap against later annotations within one response.
func (s *EventService) List(ctx context.Context, viewerID, filterToken string) ([]model.Event, error) {
	if viewerID == "" {
		return nil, apperror.ValidationFailed("viewer", "a viewer is required to list events")
	}

	events, err := s.repo.List(ctx, repository.EventListOptions{
		Viewer: viewerID,
		Filter: ParseFilter(filterToken),
		Now:    s.now(),
	})
	if err != nil {
		s.logger.Error("failed to list events",
			slog.String("viewer", viewerID),
			slog.String("filter", filterToken),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing events: %w", err)
	}

	return events, nil
}

// Get returns a single fully annotated event for the given viewer.
// Returns apperror.ErrNotFound if the id does not resolve.
func (s *EventService) Get(ctx context.Context, id, viewerID string) (*AnnotatedEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "event ID is required")
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return annotate(event, viewerID, s.now()), nil
}

// Create validates and saves a new event. The caller becomes the
// organiser — there is no way to create an event on someone else's
// behalf, which is also why create needs no further authorization.
func (s *EventService) Create(ctx context.Context, organiserID, title, description string, dateTime time.Time) (*model.Event, error) {
	if organiserID == "" {
		return nil, apperror.ValidationFailed("organiser", "an organiser is required")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if dateTime.IsZero() {
		return nil, apperror.ValidationFailed("dateTime", "date/time is required")
	}

	event := &model.Event{
		Title:       title,
		Description: strings.TrimSpace(description),
		DateTime:    dateTime,
		OrganiserID: organiserID,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Error("failed to create event",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating event: %w", err)
	}

	s.logger.Info("event created",
		slog.String("id", event.ID),
		slog.String("organiser", organiserID),
		slog.String("title", event.Title),
	)

	return event, nil
}

// UpdateEventInput carries the mutable fields of an event. Nil means
// "keep the current value" — this serves both PUT (all fields set) and
// PATCH (only the changed ones).
type UpdateEventInput struct {
	Title       *string
	Description *string
	DateTime    *time.Time
}

// Update applies in to an existing event on behalf of viewerID.
//
// RESOLUTION ORDER: an id that doesn't resolve is NotFound; an id that
// resolves but a viewer who is not the organiser is Forbidden. The same
// order applies on every surface.
func (s *EventService) Update(ctx context.Context, id, viewerID string, in UpdateEventInput) (*model.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "event ID is required")
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canWrite(viewerID, event) {
		return nil, apperror.Forbidden("only the organiser can edit an event")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title is required")
		}
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		event.Title = title
	}
	if in.Description != nil {
		event.Description = strings.TrimSpace(*in.Description)
	}
	if in.DateTime != nil {
		if in.DateTime.IsZero() {
			return nil, apperror.ValidationFailed("dateTime", "date/time is required")
		}
		event.DateTime = *in.DateTime
	}

	if err := s.repo.Update(ctx, event); err != nil {
		s.logger.Error("failed to update event",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating event: %w", err)
	}

	s.logger.Info("event updated", slog.String("id", event.ID))

	return event, nil
}

// Attend marks viewerID as attending the event.
//
// ATTENDANCE STATE MACHINE: NotAttending → Attending. Adding to a set is
// naturally idempotent, so attending twice is a no-op — but the past-event
// precondition is checked on every call, regardless of current state.
func (s *EventService) Attend(ctx context.Context, id, viewerID string) error {
	event, err := s.fetchForAttendance(ctx, id, viewerID, "attend")
	if err != nil {
		return err
	}

	if err := s.repo.AddAttendee(ctx, event.ID, viewerID); err != nil {
		return fmt.Errorf("attending event: %w", err)
	}

	s.logger.Info("user attending event",
		slog.String("event", event.ID),
		slog.String("user", viewerID),
	)
	return nil
}

// Unattend removes viewerID from the event's attendee set. Also a no-op
// when the viewer wasn't attending, under the same past-event rule.
func (s *EventService) Unattend(ctx context.Context, id, viewerID string) error {
	event, err := s.fetchForAttendance(ctx, id, viewerID, "unattend")
	if err != nil {
		return err
	}

	if err := s.repo.RemoveAttendee(ctx, event.ID, viewerID); err != nil {
		return fmt.Errorf("unattending event: %w", err)
	}

	s.logger.Info("user no longer attending event",
		slog.String("event", event.ID),
		slog.String("user", viewerID),
	)
	return nil
}

// fetchForAttendance resolves the event and enforces the shared
// precondition: no attendance transition once the event is in the past.
func (s *EventService) fetchForAttendance(ctx context.Context, id, viewerID, verb string) (*model.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "event ID is required")
	}
	if viewerID == "" {
		return nil, apperror.ValidationFailed("viewer", "a viewer is required")
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if annotate(event, viewerID, s.now()).IsInPast {
		return nil, apperror.Forbidden(fmt.Sprintf("cannot %s an event in the past", verb))
	}

	return event, nil
}
