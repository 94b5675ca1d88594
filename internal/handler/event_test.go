package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/auth"
	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/repository"
	"github.com/chrisBrookes93/events-management/internal/service"
)

// stubEventRepo is an in-memory EventRepository honouring the ordering
// and annotation contract, so the full handler → service → repository
// path runs without SQLite.
type stubEventRepo struct {
	seq       int
	events    map[string]*model.Event
	attendees map[string]map[string]model.User
	emails    map[string]string // user ID → email
}

func newStubEventRepo() *stubEventRepo {
	return &stubEventRepo{
		events:    make(map[string]*model.Event),
		attendees: make(map[string]map[string]model.User),
		emails: map[string]string{
			"u1": "alice@events.com",
			"u2": "bob@events.com",
		},
	}
}

func (r *stubEventRepo) Create(_ context.Context, event *model.Event) error {
	r.seq++
	event.ID = fmt.Sprintf("evt%03d", r.seq)
	stored := *event
	r.events[stored.ID] = &stored
	r.attendees[stored.ID] = make(map[string]model.User)
	return nil
}

func (r *stubEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	stored, ok := r.events[id]
	if !ok {
		return nil, notFound(id)
	}
	e := *stored
	e.OrganiserEmail = r.emails[e.OrganiserID]
	e.AttendeesCount = len(r.attendees[id])
	for _, u := range r.attendees[id] {
		e.Attendees = append(e.Attendees, u)
	}
	sort.Slice(e.Attendees, func(i, j int) bool { return e.Attendees[i].Email < e.Attendees[j].Email })
	return &e, nil
}

func (r *stubEventRepo) List(ctx context.Context, opts repository.EventListOptions) ([]model.Event, error) {
	var out []model.Event
	for id, stored := range r.events {
		keep := false
		switch opts.Filter {
		case repository.FilterOrganised:
			keep = stored.OrganiserID == opts.Viewer
		case repository.FilterAttended:
			_, keep = r.attendees[id][opts.Viewer]
		case repository.FilterPast:
			keep = !stored.DateTime.After(opts.Now)
		default:
			keep = !stored.DateTime.Before(opts.Now)
		}
		if !keep {
			continue
		}
		e := *stored
		e.OrganiserEmail = r.emails[e.OrganiserID]
		e.AttendeesCount = len(r.attendees[id])
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].DateTime.Before(out[j].DateTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *stubEventRepo) Update(_ context.Context, event *model.Event) error {
	stored, ok := r.events[event.ID]
	if !ok {
		return notFound(event.ID)
	}
	stored.Title = event.Title
	stored.Description = event.Description
	stored.DateTime = event.DateTime
	stored.UpdatedAt = event.UpdatedAt
	return nil
}

func (r *stubEventRepo) AddAttendee(_ context.Context, eventID, userID string) error {
	if _, ok := r.events[eventID]; !ok {
		return notFound(eventID)
	}
	r.attendees[eventID][userID] = model.User{ID: userID, Email: r.emails[userID]}
	return nil
}

func (r *stubEventRepo) RemoveAttendee(_ context.Context, eventID, userID string) error {
	delete(r.attendees[eventID], userID)
	return nil
}

func notFound(id string) error {
	return apperror.NotFound("event", id)
}

// testRouter mounts the handler on the same routes the server does, with
// a middleware that injects the viewer identity in place of the session
// cookie check.
func testRouter(h *EventHandler, viewerID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if viewerID != "" {
				req = req.WithContext(auth.WithUserID(req.Context(), viewerID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/event/", h.HandleList)
	r.Post("/api/event/", h.HandleCreate)
	r.Get("/api/event/{id}/", h.HandleGet)
	r.Put("/api/event/{id}/", h.HandleUpdate)
	r.Post("/api/event/{id}/attend/", h.HandleAttend)
	r.Post("/api/event/{id}/unattend/", h.HandleUnattend)
	return r
}

type handlerFixture struct {
	repo    *stubEventRepo
	handler *EventHandler
	now     time.Time
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newStubEventRepo()
	svc := service.NewEventService(repo, logger)
	return &handlerFixture{
		repo:    repo,
		handler: NewEventHandler(svc, 30, logger),
		now:     time.Now().UTC(),
	}
}

// seed creates an event directly through the repository, bypassing the
// service's validation, so tests can plant past events.
func (f *handlerFixture) seed(t *testing.T, organiserID, title string, dateTime time.Time) string {
	t.Helper()
	e := &model.Event{Title: title, OrganiserID: organiserID, DateTime: dateTime}
	require.NoError(t, f.repo.Create(context.Background(), e))
	return e.ID
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRequireAuthRejectsAnonymousAPIRequest(t *testing.T) {
	tokens, err := auth.NewTokenService("test-secret-0123456789")
	require.NoError(t, err)

	f := newHandlerFixture(t)
	r := chi.NewRouter()
	r.Use(auth.RequireAuth(tokens))
	r.Get("/api/event/", f.handler.HandleList)

	rr := doJSON(t, r, http.MethodGet, "/api/event/", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// with a valid session cookie the same request succeeds
	token, err := tokens.Generate("u1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/event/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleListEnvelope(t *testing.T) {
	f := newHandlerFixture(t)
	for i := 0; i < 3; i++ {
		f.seed(t, "u1", fmt.Sprintf("Meetup %d", i), f.now.Add(time.Duration(i+1)*time.Hour))
	}
	router := testRouter(f.handler, "u2")

	rr := doJSON(t, router, http.MethodGet, "/api/event/", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Links struct {
			Next     *string `json:"next"`
			Previous *string `json:"previous"`
		} `json:"links"`
		Count     int `json:"count"`
		Current   int `json:"current"`
		PageCount int `json:"page_count"`
		Results   []struct {
			Title     string `json:"title"`
			Organiser string `json:"organiser"`
			URL       string `json:"url"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))

	assert.Equal(t, 3, env.Count)
	assert.Equal(t, 1, env.Current)
	assert.Equal(t, 1, env.PageCount)
	assert.Nil(t, env.Links.Next)
	assert.Nil(t, env.Links.Previous)
	require.Len(t, env.Results, 3)
	assert.Equal(t, "Meetup 0", env.Results[0].Title)
	assert.Equal(t, "alice@events.com", env.Results[0].Organiser)
	assert.Equal(t, "/api/event/evt001/", env.Results[0].URL)
}

func TestHandleListUnknownFilterFallsBack(t *testing.T) {
	f := newHandlerFixture(t)
	f.seed(t, "u1", "Future", f.now.Add(time.Hour))
	f.seed(t, "u1", "Past", f.now.Add(-time.Hour))
	router := testRouter(f.handler, "u1")

	rr := doJSON(t, router, http.MethodGet, "/api/event/?filter=bogus", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Results []struct {
			Title string `json:"title"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Len(t, env.Results, 1)
	assert.Equal(t, "Future", env.Results[0].Title)
}

func TestHandleCreate(t *testing.T) {
	f := newHandlerFixture(t)
	router := testRouter(f.handler, "u1")

	dateTime := f.now.Add(48 * time.Hour).Format(time.RFC3339)
	rr := doJSON(t, router, http.MethodPost, "/api/event/",
		fmt.Sprintf(`{"title":"Launch party","description":"Drinks","date_time":%q}`, dateTime))
	require.Equal(t, http.StatusCreated, rr.Code)

	var row struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		IsOrganiser bool   `json:"is_organiser"`
		IsAttending bool   `json:"is_attending"`
		IsInPast    bool   `json:"is_in_past"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &row))
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, "Launch party", row.Title)
	assert.True(t, row.IsOrganiser)
	assert.False(t, row.IsAttending)
	assert.False(t, row.IsInPast)
}

func TestHandleCreateValidation(t *testing.T) {
	f := newHandlerFixture(t)
	router := testRouter(f.handler, "u1")

	t.Run("malformed body", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/event/", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("blank title", func(t *testing.T) {
		dateTime := f.now.Add(time.Hour).Format(time.RFC3339)
		rr := doJSON(t, router, http.MethodPost, "/api/event/",
			fmt.Sprintf(`{"title":"   ","date_time":%q}`, dateTime))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing date_time", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/event/", `{"title":"No date"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleGet(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.seed(t, "u1", "Conference", f.now.Add(time.Hour))
	require.NoError(t, f.repo.AddAttendee(context.Background(), id, "u2"))

	t.Run("attendee view", func(t *testing.T) {
		rr := doJSON(t, testRouter(f.handler, "u2"), http.MethodGet, "/api/event/"+id+"/", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var row struct {
			IsOrganiser bool `json:"is_organiser"`
			IsAttending bool `json:"is_attending"`
			Attendees   []struct {
				FriendlyName string `json:"friendly_name"`
			} `json:"attendees"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &row))
		assert.False(t, row.IsOrganiser)
		assert.True(t, row.IsAttending)
		require.Len(t, row.Attendees, 1)
		assert.Equal(t, "bob", row.Attendees[0].FriendlyName)
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := doJSON(t, testRouter(f.handler, "u2"), http.MethodGet, "/api/event/nope/", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleUpdate(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.seed(t, "u1", "Original", f.now.Add(time.Hour))

	t.Run("organiser updates", func(t *testing.T) {
		rr := doJSON(t, testRouter(f.handler, "u1"), http.MethodPut, "/api/event/"+id+"/",
			`{"title":"Renamed"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var row struct {
			Title string `json:"title"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &row))
		assert.Equal(t, "Renamed", row.Title)
	})

	t.Run("non-organiser forbidden", func(t *testing.T) {
		rr := doJSON(t, testRouter(f.handler, "u2"), http.MethodPut, "/api/event/"+id+"/",
			`{"title":"Hijacked"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown id not found", func(t *testing.T) {
		rr := doJSON(t, testRouter(f.handler, "u2"), http.MethodPut, "/api/event/nope/",
			`{"title":"Anything"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleAttendance(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.seed(t, "u1", "Workshop", f.now.Add(time.Hour))
	pastID := f.seed(t, "u1", "Retro", f.now.Add(-time.Hour))
	router := testRouter(f.handler, "u2")

	t.Run("attend", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/event/"+id+"/attend/", "")
		require.Equal(t, http.StatusAccepted, rr.Code)
		assert.JSONEq(t, `{"detail":"Successfully attended"}`, rr.Body.String())
	})

	t.Run("unattend", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/event/"+id+"/unattend/", "")
		require.Equal(t, http.StatusAccepted, rr.Code)
		assert.JSONEq(t, `{"detail":"Successfully unattended"}`, rr.Body.String())
	})

	t.Run("past event forbidden", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/event/"+pastID+"/attend/", "")
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
