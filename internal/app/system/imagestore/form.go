package imagestore

import (
	"context"
	"errors"
	"net/http"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
)

// maxFormMemory is how much of a multipart body is buffered in memory
// before spilling to temp files.
const maxFormMemory = 8 << 20

var errBadForm = apperr.Validation("invalid multipart form")

// ParseForm parses a multipart request, capping the body a little above
// MaxImageBytes.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return ErrTooLarge
		}
		return apperr.Wrap(errBadForm, err)
	}
	return nil
}

// PutForm stores the file uploaded under field and returns its URL. It
// returns "" when the form has no such file. ParseForm must run first.
func PutForm(ctx context.Context, s Store, r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", nil
	}
	fh := r.MultipartForm.File[field][0]
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Put(ctx, fh.Header.Get("Content-Type"), f)
}
