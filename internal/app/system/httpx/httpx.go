// Package httpx holds the JSON response helpers shared by the API handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxJSONBody caps request bodies decoded by DecodeJSON.
const MaxJSONBody = 1 << 20

// ErrBadJSON is returned by DecodeJSON when the body cannot be parsed.
var ErrBadJSON = apperr.Validation("invalid JSON body")

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Error maps err onto a status code and writes {"message": ...}.
// Unclassified errors are logged and reported as 500.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	Message(w, kind.Status(), apperr.MessageOf(err))
}

// DecodeJSON decodes the request body into dst. An empty body leaves dst
// untouched.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(ErrBadJSON, err)
	}
	return nil
}

// ObjectIDParam parses a chi URL parameter as an ObjectID.
func ObjectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	return ParseObjectID(chi.URLParam(r, name), name)
}

// ParseObjectID parses hex as an ObjectID, reporting a validation error
// that names the field.
func ParseObjectID(hex, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid " + field)
	}
	return id, nil
}
