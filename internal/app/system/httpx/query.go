package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
)

// QueryFloat parses the named query parameter. It returns nil when the
// parameter is absent or blank.
func QueryFloat(r *http.Request, name string) (*float64, error) {
	s := strings.TrimSpace(query.Get(r, name))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, apperr.Validation("invalid " + name)
	}
	return &f, nil
}

// IsMultipart reports whether the request carries a multipart form.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
