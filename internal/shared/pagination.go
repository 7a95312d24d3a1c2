package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPageLimit = 50
	// MaxPageLimit caps every listing.
	MaxPageLimit     = 500
)

// Page bounds a listing.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewPage clamps limit and offset to sane values.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// PageFromQuery reads ?limit= and ?offset=.
func PageFromQuery(q url.Values) Page {
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return NewPage(limit, offset)
}

// Slice applies the page to an in-memory listing.
func Slice[T any](items []T, page Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if page.Limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}
