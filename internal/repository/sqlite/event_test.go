package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisBrookes93/events-management/internal/apperror"
	"github.com/chrisBrookes93/events-management/internal/model"
	"github.com/chrisBrookes93/events-management/internal/repository"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func createTestEvent(t *testing.T, db *DB, organiserID, title string, dateTime time.Time) *model.Event {
	t.Helper()
	event := &model.Event{
		Title:       title,
		Description: "test event",
		DateTime:    dateTime,
		OrganiserID: organiserID,
	}
	if err := db.Create(context.Background(), event); err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return event
}

func eventTitles(events []model.Event) []string {
	titles := make([]string, 0, len(events))
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	return titles
}

func TestEventCreateAndGetByID(t *testing.T) {
	db := newTestDB(t)
	organiser := createTestUser(t, db, "alice@events.com")

	created := createTestEvent(t, db, organiser.ID, "Conference", testNow.Add(24*time.Hour))

	if created.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Conference" {
		t.Errorf("GetByID() title = %q, want %q", got.Title, "Conference")
	}
	if got.OrganiserEmail != "alice@events.com" {
		t.Errorf("GetByID() organiser email = %q, want %q", got.OrganiserEmail, "alice@events.com")
	}
	if got.AttendeesCount != 0 {
		t.Errorf("GetByID() attendees count = %d, want 0", got.AttendeesCount)
	}
	if len(got.Attendees) != 0 {
		t.Errorf("GetByID() attendees = %v, want empty", got.Attendees)
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// seedListFixture creates two users and five events straddling testNow.
func seedListFixture(t *testing.T, db *DB) (alice, bob *model.User) {
	t.Helper()
	alice = createTestUser(t, db, "alice@events.com")
	bob = createTestUser(t, db, "bob@events.com")

	createTestEvent(t, db, alice.ID, "Old Alice", testNow.Add(-48*time.Hour))
	createTestEvent(t, db, bob.ID, "Old Bob", testNow.Add(-24*time.Hour))
	createTestEvent(t, db, alice.ID, "Soon Alice", testNow.Add(24*time.Hour))
	createTestEvent(t, db, bob.ID, "Soon Bob", testNow.Add(48*time.Hour))
	createTestEvent(t, db, alice.ID, "Later Alice", testNow.Add(72*time.Hour))
	return alice, bob
}

func TestEventListCurrent(t *testing.T) {
	db := newTestDB(t)
	_, bob := seedListFixture(t, db)

	events, err := db.List(context.Background(), repository.EventListOptions{
		Viewer: bob.ID,
		Filter: repository.FilterCurrent,
		Now:    testNow,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"Soon Alice", "Soon Bob", "Later Alice"}
	got := eventTitles(events)
	if len(got) != len(want) {
		t.Fatalf("List() titles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() titles = %v, want %v", got, want)
		}
	}
}

func TestEventListPast(t *testing.T) {
	db := newTestDB(t)
	_, bob := seedListFixture(t, db)

	events, err := db.List(context.Background(), repository.EventListOptions{
		Viewer: bob.ID,
		Filter: repository.FilterPast,
		Now:    testNow,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"Old Alice", "Old Bob"}
	got := eventTitles(events)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("List() titles = %v, want %v", got, want)
	}
}

func TestEventListBoundaryIsInclusiveBothWays(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@events.com")
	createTestEvent(t, db, alice.ID, "At Now", testNow)

	for _, filter := range []repository.EventFilter{repository.FilterCurrent, repository.FilterPast} {
		events, err := db.List(context.Background(), repository.EventListOptions{
			Viewer: alice.ID,
			Filter: filter,
			Now:    testNow,
		})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(events) != 1 {
			t.Errorf("List(filter=%d) at boundary returned %d events, want 1", filter, len(events))
		}
	}
}

func TestEventListOrganised(t *testing.T) {
	db := newTestDB(t)
	alice, _ := seedListFixture(t, db)

	events, err := db.List(context.Background(), repository.EventListOptions{
		Viewer: alice.ID,
		Filter: repository.FilterOrganised,
		Now:    testNow,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	// no date boundary: includes the past event
	want := []string{"Old Alice", "Soon Alice", "Later Alice"}
	got := eventTitles(events)
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("List() titles = %v, want %v", got, want)
	}
}

func TestEventListAttended(t *testing.T) {
	db := newTestDB(t)
	alice, bob := seedListFixture(t, db)

	events, err := db.List(context.Background(), repository.EventListOptions{
		Viewer: alice.ID,
		Filter: repository.FilterOrganised,
		Now:    testNow,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	pastEvent, futureEvent := events[0], events[1]

	for _, id := range []string{pastEvent.ID, futureEvent.ID} {
		if err := db.AddAttendee(context.Background(), id, bob.ID); err != nil {
			t.Fatalf("AddAttendee() error = %v", err)
		}
	}

	attended, err := db.List(context.Background(), repository.EventListOptions{
		Viewer: bob.ID,
		Filter: repository.FilterAttended,
		Now:    testNow,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	// no date boundary here either
	got := eventTitles(attended)
	if len(got) != 2 || got[0] != "Old Alice" || got[1] != "Soon Alice" {
		t.Fatalf("List() titles = %v, want [Old Alice, Soon Alice]", got)
	}
	for _, e := range attended {
		if e.AttendeesCount != 1 {
			t.Errorf("List() event %q attendees count = %d, want 1", e.Title, e.AttendeesCount)
		}
	}
}

func TestEventUpdate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@events.com")
	event := createTestEvent(t, db, alice.ID, "Before", testNow.Add(24*time.Hour))

	event.Title = "After"
	event.DateTime = testNow.Add(96 * time.Hour)
	if err := db.Update(context.Background(), event); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "After" {
		t.Errorf("Update() title = %q, want %q", got.Title, "After")
	}
	if !got.DateTime.Equal(testNow.Add(96 * time.Hour)) {
		t.Errorf("Update() date_time = %v, want %v", got.DateTime, testNow.Add(96*time.Hour))
	}
}

func TestEventUpdateNotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.Event{ID: "missing", Title: "X"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestAttendeeSetSemantics(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@events.com")
	bob := createTestUser(t, db, "bob@events.com")
	event := createTestEvent(t, db, alice.ID, "Workshop", testNow.Add(24*time.Hour))

	// adding the same attendee three times counts once
	for i := 0; i < 3; i++ {
		if err := db.AddAttendee(context.Background(), event.ID, bob.ID); err != nil {
			t.Fatalf("AddAttendee() error = %v", err)
		}
	}

	got, err := db.GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AttendeesCount != 1 {
		t.Errorf("AttendeesCount = %d, want 1", got.AttendeesCount)
	}
	if len(got.Attendees) != 1 || got.Attendees[0].Email != "bob@events.com" {
		t.Errorf("Attendees = %v, want [bob@events.com]", got.Attendees)
	}
	if !got.IsAttendedBy(bob.ID) {
		t.Error("IsAttendedBy(bob) = false, want true")
	}

	// removal, then removing again is a no-op
	for i := 0; i < 2; i++ {
		if err := db.RemoveAttendee(context.Background(), event.ID, bob.ID); err != nil {
			t.Fatalf("RemoveAttendee() error = %v", err)
		}
	}

	got, err = db.GetByID(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AttendeesCount != 0 {
		t.Errorf("AttendeesCount after removal = %d, want 0", got.AttendeesCount)
	}
}
