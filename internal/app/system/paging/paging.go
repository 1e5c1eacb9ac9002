// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size used when the client does not send one.
const DefaultLimit = 20

// MaxLimit caps client-supplied page sizes.
const MaxLimit = 100

// Page is a 1-based offset page.
type Page struct {
	Page  int
	Limit int
}

// Skip returns the number of documents to skip for this page.
func (p Page) Skip() int { return (p.Page - 1) * p.Limit }

// Skip64 and Limit64 are convenience casts for Mongo find options.
func (p Page) Skip64() int64  { return int64(p.Skip()) }
func (p Page) Limit64() int64 { return int64(p.Limit) }

// Parse reads the "page" and "limit" query parameters. Missing or invalid
// values fall back to page 1 and DefaultLimit; limit is capped at MaxLimit.
func Parse(r *http.Request) Page {
	return Page{
		Page:  positiveInt(query.Get(r, "page"), 1),
		Limit: min(positiveInt(query.Get(r, "limit"), DefaultLimit), MaxLimit),
	}
}

func positiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// HasMore reports whether documents remain past the page just returned.
func HasMore(total int64, p Page, returned int) bool {
	return total > int64(p.Skip()+returned)
}

// Result is the envelope returned by paged list endpoints.
type Result[T any] struct {
	Items   []T   `json:"-"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

// NewResult builds a Result, never returning a nil slice.
func NewResult[T any](items []T, p Page, total int64) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:   items,
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		HasMore: HasMore(total, p, len(items)),
	}
}
