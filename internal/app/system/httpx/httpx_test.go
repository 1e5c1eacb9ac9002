package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"go.uber.org/zap"
)

func TestError_MapsKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", apperr.Validation("title is required"), http.StatusBadRequest, "title is required"},
		{"forbidden", apperr.Forbidden("not authorized"), http.StatusUnauthorized, "not authorized"},
		{"not found", apperr.NotFound("listing not found"), http.StatusNotFound, "listing not found"},
		{"conflict", apperr.Conflict("email already registered"), http.StatusConflict, "email already registered"},
		{"internal", errors.New("socket closed"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			httpx.Error(rec, req, zap.NewNop(), tt.err)

			if rec.Code != tt.code {
				t.Errorf("status: got %d, want %d", rec.Code, tt.code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["message"] != tt.message {
				t.Errorf("message: got %q, want %q", body["message"], tt.message)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha"}`))
	if err := httpx.DecodeJSON(req, &dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if dst.Name != "Asha" {
		t.Errorf("Name = %q", dst.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := httpx.DecodeJSON(req, &dst)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("malformed body: got %v, want validation error", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := httpx.DecodeJSON(req, &dst); err != nil {
		t.Errorf("empty body should decode to nothing, got %v", err)
	}
}

func TestParseObjectID(t *testing.T) {
	if _, err := httpx.ParseObjectID("nope", "listing id"); apperr.MessageOf(err) != "invalid listing id" {
		t.Errorf("got %v", err)
	}
	if _, err := httpx.ParseObjectID("64b7f0c2a1b2c3d4e5f60718", "id"); err != nil {
		t.Errorf("valid hex rejected: %v", err)
	}
}

func TestQueryFloat(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?lat=12.97&lng=&radius=abc", nil)

	lat, err := httpx.QueryFloat(r, "lat")
	if err != nil || lat == nil || *lat != 12.97 {
		t.Fatalf("lat = %v, %v", lat, err)
	}
	if lng, err := httpx.QueryFloat(r, "lng"); err != nil || lng != nil {
		t.Fatalf("blank lng = %v, %v", lng, err)
	}
	if _, err := httpx.QueryFloat(r, "radius"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("radius err = %v", err)
	}
}
