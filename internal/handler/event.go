package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/auth"
	"github.com/chrisBrookes93/events-management/internal/service"
)

// EventHandler serves the JSON API surface for events.
//
// ROUTES (all behind auth.RequireAuth):
//
//	GET    /api/                       → API root index
//	GET    /api/event/                 → paginated list (?filter=&page=)
//	POST   /api/event/                 → create (caller becomes organiser)
//	GET    /api/event/{id}/            → annotated detail
//	PUT    /api/event/{id}/            → update (organiser only)
//	PATCH  /api/event/{id}/            → partial update (organiser only)
//	POST   /api/event/{id}/attend/     → attendance transition
//	POST   /api/event/{id}/unattend/   → attendance transition
type EventHandler struct {
	events   *service.EventService
	logger   *slog.Logger
	pageSize int
}

// NewEventHandler creates an EventHandler. pageSize is the API page size
// (30 by default, configurable).
func NewEventHandler(events *service.EventService, pageSize int, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events:   events,
		logger:   logger,
		pageSize: pageSize,
	}
}

// HandleAPIRoot returns a top-level index of the API's collections.
func (h *EventHandler) HandleAPIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"events": "/api/event/",
	})
}

// HandleList returns the viewer's event list for the requested filter,
// wrapped in the pagination envelope.
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	events, err := h.events.List(r.Context(), viewerID, r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, err)
		return
	}

	page := paginateEvents(events, parsePageParam(r), h.pageSize)
	writeJSON(w, http.StatusOK, buildEnvelope(r, page))
}

// HandleGet returns one event annotated for the viewer.
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	annotated, err := h.events.Get(r.Context(), chi.URLParam(r, "id"), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDetailRow(annotated))
}

// createEventRequest is the JSON body for create; date_time is RFC 3339.
type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"date_time"`
}

// HandleCreate creates an event with the caller as organiser.
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	event, err := h.events.Create(r.Context(), viewerID, req.Title, req.Description, req.DateTime)
	if err != nil {
		writeError(w, err)
		return
	}

	// Re-read through the engine so the response carries the annotations.
	annotated, err := h.events.Get(r.Context(), event.ID, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDetailRow(annotated))
}

// updateEventRequest is the JSON body for update. Pointer fields
// distinguish "absent" from "set to zero", so the same shape serves PUT
// and PATCH.
type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DateTime    *time.Time `json:"date_time"`
}

// HandleUpdate applies an update on behalf of the caller. The service
// answers NotFound for an unknown id and Forbidden for a non-organiser.
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	event, err := h.events.Update(r.Context(), chi.URLParam(r, "id"), viewerID, service.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		DateTime:    req.DateTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	annotated, err := h.events.Get(r.Context(), event.ID, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDetailRow(annotated))
}

// HandleAttend marks the caller as attending. 202 mirrors the transition
// being an acknowledgement rather than a resource representation.
func (h *EventHandler) HandleAttend(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	if err := h.events.Attend(r.Context(), chi.URLParam(r, "id"), viewerID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"detail": "Successfully attended"})
}

// HandleUnattend removes the caller from the attendee set.
func (h *EventHandler) HandleUnattend(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	if err := h.events.Unattend(r.Context(), chi.URLParam(r, "id"), viewerID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"detail": "Successfully unattended"})
}
