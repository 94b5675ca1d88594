package handler

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/auth"
	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/service"
)

// Accepted formats for the date/time form field. The first is what an
// HTML datetime-local input submits.
var formDateTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// parseFormDateTime tries each accepted layout in turn. Times are
// interpreted as UTC; the pages render UTC as well.
func parseFormDateTime(raw string) (time.Time, error) {
	for _, layout := range formDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperror.ValidationFailed("date_time", "date/time could not be parsed")
}

// parseTemplates compiles each named page against base.html so pages can
// fill the base's content block. Parsing happens once at startup; a typo
// in a template is a boot failure, not a 500 at request time.
func parseTemplates(templateDir string, pages ...string) (map[string]*template.Template, error) {
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, page+".html"),
		)
		if err != nil {
			return nil, err
		}
		parsed[page] = tmpl
	}
	return parsed, nil
}

// statusForError maps the domain taxonomy to an HTTP status — the same
// mapping writeError uses for JSON, reused by the page surface.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage extracts the human-readable message, falling back to a
// generic one for unexpected faults so internals never leak into a page.
func errorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An internal error occurred"
}

// PageHandler serves the HTML surface for events: the welcome page, the
// filtered list, the detail page, and the create/edit forms. It calls the
// same EventService as the API handlers — the two surfaces differ only in
// presentation.
type PageHandler struct {
	templates map[string]*template.Template
	events    *service.EventService
	logger    *slog.Logger
	pageSize  int
}

// NewPageHandler parses the page templates and creates the handler.
func NewPageHandler(templateDir string, events *service.EventService, pageSize int, logger *slog.Logger) (*PageHandler, error) {
	templates, err := parseTemplates(templateDir,
		"welcome", "list_events", "view_event", "create_event", "edit_event", "error")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates: templates,
		events:    events,
		logger:    logger,
		pageSize:  pageSize,
	}, nil
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// renderDomainError is the page-surface counterpart of writeError: the
// same status mapping, rendered as an error page instead of JSON.
func (h *PageHandler) renderDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	h.render(w, status, "error", map[string]any{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": errorMessage(err),
	})
}

// HandleIndex renders the welcome page, or sends signed-in visitors
// straight to their event list.
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/events/", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "welcome", map[string]any{"Title": "Events Management"})
}

// eventRowView is a list row prepared for the template.
type eventRowView struct {
	ID                    string
	Title                 string
	Description           string
	DateTime              time.Time
	AttendeesCount        int
	OrganiserFriendlyName string
}

func toRowView(e model.Event) eventRowView {
	return eventRowView{
		ID:                    e.ID,
		Title:                 e.Title,
		Description:           e.Description,
		DateTime:              e.DateTime,
		AttendeesCount:        e.AttendeesCount,
		OrganiserFriendlyName: model.FriendlyName(e.OrganiserEmail),
	}
}

// HandleEventList renders the filtered, paginated list page.
// Filter and page query parameters are forgiving: unknown filters show
// the default view, junk page numbers clamp.
func (h *PageHandler) HandleEventList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	filter := r.URL.Query().Get("filter")

	events, err := h.events.List(r.Context(), viewerID, filter)
	if err != nil {
		h.renderDomainError(w, err)
		return
	}

	page := paginateEvents(events, parsePageParam(r), h.pageSize)
	rows := make([]eventRowView, 0, len(page.Items))
	for _, e := range page.Items {
		rows = append(rows, toRowView(e))
	}

	h.render(w, http.StatusOK, "list_events", map[string]any{
		"Title":  "Events",
		"Events": rows,
		"Filter": filter,
		"Page":   page,
	})
}

// HandleEventDetail renders one event with its viewer-relative flags; the
// template uses them to decide which buttons (edit, attend, unattend) to
// show. The server still re-checks on POST — the buttons are convenience,
// not enforcement.
func (h *PageHandler) HandleEventDetail(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	annotated, err := h.events.Get(r.Context(), chi.URLParam(r, "id"), viewerID)
	if err != nil {
		h.renderDomainError(w, err)
		return
	}

	h.render(w, http.StatusOK, "view_event", map[string]any{
		"Title": annotated.Title,
		"Event": toDetailRow(annotated),
	})
}

// HandleCreateForm renders the empty create form.
func (h *PageHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "create_event", map[string]any{"Title": "Create Event"})
}

// HandleCreate processes the create form. A validation failure re-renders
// the form with the message and the submitted values, so nothing typed is
// lost.
func (h *PageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	title := r.PostFormValue("title")
	description := r.PostFormValue("description")

	dateTime, err := parseFormDateTime(r.PostFormValue("date_time"))
	if err == nil {
		var event *model.Event
		event, err = h.events.Create(r.Context(), viewerID, title, description, dateTime)
		if err == nil {
			http.Redirect(w, r, "/events/"+event.ID, http.StatusSeeOther)
			return
		}
	}

	if errors.Is(err, apperror.ErrValidation) {
		h.render(w, http.StatusBadRequest, "create_event", map[string]any{
			"Title":       "Create Event",
			"FormTitle":   title,
			"Description": description,
			"DateTime":    r.PostFormValue("date_time"),
			"Error":       errorMessage(err),
		})
		return
	}
	h.renderDomainError(w, err)
}

// HandleEditForm renders the edit form pre-filled with the event's
// current values. Non-organisers get the Forbidden page here already —
// there is nothing they could legally submit.
func (h *PageHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	annotated, err := h.events.Get(r.Context(), chi.URLParam(r, "id"), viewerID)
	if err != nil {
		h.renderDomainError(w, err)
		return
	}
	if !annotated.IsOrganiser {
		h.renderDomainError(w, apperror.Forbidden("only the organiser can edit an event"))
		return
	}

	h.render(w, http.StatusOK, "edit_event", map[string]any{
		"Title":       "Edit Event",
		"ID":          annotated.ID,
		"FormTitle":   annotated.Title,
		"Description": annotated.Description,
		"DateTime":    annotated.DateTime.Format("2006-01-02T15:04"),
	})
}

// HandleEdit processes the edit form.
func (h *PageHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	title := r.PostFormValue("title")
	description := r.PostFormValue("description")

	dateTime, err := parseFormDateTime(r.PostFormValue("date_time"))
	if err == nil {
		_, err = h.events.Update(r.Context(), id, viewerID, service.UpdateEventInput{
			Title:       &title,
			Description: &description,
			DateTime:    &dateTime,
		})
		if err == nil {
			http.Redirect(w, r, "/events/"+id, http.StatusSeeOther)
			return
		}
	}

	if errors.Is(err, apperror.ErrValidation) {
		h.render(w, http.StatusBadRequest, "edit_event", map[string]any{
			"Title":       "Edit Event",
			"ID":          id,
			"FormTitle":   title,
			"Description": description,
			"DateTime":    r.PostFormValue("date_time"),
			"Error":       errorMessage(err),
		})
		return
	}
	h.renderDomainError(w, err)
}

// HandleAttend and HandleUnattend process the attendance buttons and
// bounce back to the detail page.
func (h *PageHandler) HandleAttend(w http.ResponseWriter, r *http.Request) {
	h.attendance(w, r, h.events.Attend)
}

func (h *PageHandler) HandleUnattend(w http.ResponseWriter, r *http.Request) {
	h.attendance(w, r, h.events.Unattend)
}

func (h *PageHandler) attendance(w http.ResponseWriter, r *http.Request, transition func(context.Context, string, string) error) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := transition(r.Context(), id, viewerID); err != nil {
		h.renderDomainError(w, err)
		return
	}

	http.Redirect(w, r, "/events/"+id, http.StatusSeeOther)
}
