package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/chrisBrookes93/events-management/internal/model"
)

// The presentation adapter: slices an already-ordered, already-annotated
// result set into pages. It performs no filtering of its own, and bad
// page input is never an error:
//
//   - a non-numeric "page" value falls back to page 1
//   - a numeric value outside [1, pageCount] is clamped to the last
//     valid page
//
// Both surfaces share this; they differ only in page size (10 for pages,
// 30 for the API).

// eventPage is one page of an event list plus the numbers the surfaces
// need to render navigation.
type eventPage struct {
	Items     []model.Event
	Number    int // current page, 1-based
	PageCount int // total number of pages, always >= 1
	Count     int // total items across all pages
}

func (p eventPage) HasNext() bool       { return p.Number < p.PageCount }
func (p eventPage) HasPrevious() bool   { return p.Number > 1 }
func (p eventPage) NextNumber() int     { return p.Number + 1 }
func (p eventPage) PreviousNumber() int { return p.Number - 1 }

// parsePageParam reads the "page" query parameter. Anything that isn't an
// integer — missing, empty, garbage — becomes page 1. Range clamping
// happens in paginateEvents, which knows the page count.
func parsePageParam(r *http.Request) int {
	raw := r.URL.Query().Get("page")
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return page
}

// paginateEvents slices events into the requested page.
// pageCount is at least 1 even for an empty result set, so "page 1 of 1"
// always renders.
func paginateEvents(events []model.Event, requested, size int) eventPage {
	if size < 1 {
		size = 1
	}

	count := len(events)
	pageCount := (count + size - 1) / size
	if pageCount < 1 {
		pageCount = 1
	}

	number := requested
	if number < 1 || number > pageCount {
		number = pageCount
	}

	start := (number - 1) * size
	end := start + size
	if start > count {
		start = count
	}
	if end > count {
		end = count
	}

	return eventPage{
		Items:     events[start:end],
		Number:    number,
		PageCount: pageCount,
		Count:     count,
	}
}

// pageLinks is the links object of the API pagination envelope. Absent
// neighbours serialize as JSON null, matching what front-end pagination
// code checks for.
type pageLinks struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// listEnvelope is the API list response: navigation links, totals and the
// projected rows.
type listEnvelope struct {
	Links     pageLinks      `json:"links"`
	Count     int            `json:"count"`
	Current   int            `json:"current"`
	PageCount int            `json:"page_count"`
	Results   []eventListRow `json:"results"`
}

// buildEnvelope projects a page into the API envelope. Neighbour links are
// rebuilt from the request URL so the filter token (and any other query
// parameter) survives into them.
func buildEnvelope(r *http.Request, page eventPage) listEnvelope {
	results := make([]eventListRow, 0, len(page.Items))
	for _, e := range page.Items {
		results = append(results, toListRow(e))
	}

	links := pageLinks{}
	if page.HasNext() {
		links.Next = pageURL(r.URL, page.Number+1)
	}
	if page.HasPrevious() {
		links.Previous = pageURL(r.URL, page.Number-1)
	}

	return listEnvelope{
		Links:     links,
		Count:     page.Count,
		Current:   page.Number,
		PageCount: page.PageCount,
		Results:   results,
	}
}

func pageURL(u *url.URL, page int) *string {
	link := *u
	q := link.Query()
	q.Set("page", strconv.Itoa(page))
	link.RawQuery = q.Encode()
	s := link.String()
	return &s
}
