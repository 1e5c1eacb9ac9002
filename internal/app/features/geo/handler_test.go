package geo_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/features/geo"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/geocode"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"github.com/jaga42-ui/hopelink-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, upstream http.HandlerFunc) http.Handler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	gc := geocode.New(geocode.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	return geo.Routes(geo.NewHandler(gc, zap.NewNop()))
}

func nominatim(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/reverse":
		_, _ = w.Write([]byte(`{"display_name":"MG Road, Bengaluru","lat":"12.9756","lon":"77.6066",
			"address":{"town":"Bengaluru","state":"Karnataka","country":"India","postcode":"560001"}}`))
	case "/search":
		_, _ = w.Write([]byte(`[{"display_name":"Indiranagar","lat":"12.9784","lon":"77.6408","address":{"city":"Bengaluru"}}]`))
	default:
		http.NotFound(w, r)
	}
}

var caller = models.User{ID: primitive.NewObjectID(), Name: "Asha", ActiveRole: models.RoleDonor}

func get(t *testing.T, router http.Handler, target string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.AsUser(testutil.NewRequest(http.MethodGet, target), caller))
	return rec
}

func TestServeReverse(t *testing.T) {
	router := newRouter(t, nominatim)

	rec := get(t, router, "/reverse?lat=12.9756&lng=77.6066")
	rec.AssertStatus(t, http.StatusOK)
	var p geocode.Place
	rec.Decode(t, &p)
	if p.City != "Bengaluru" || p.Postcode != "560001" || p.Lng != 77.6066 {
		t.Fatalf("place = %+v", p)
	}

	get(t, router, "/reverse?lat=12.9").AssertStatus(t, http.StatusBadRequest)
	get(t, router, "/reverse?lat=abc&lng=1").AssertStatus(t, http.StatusBadRequest)
	get(t, router, "/reverse?lat=95&lng=1").AssertStatus(t, http.StatusBadRequest)
}

func TestServeSearch(t *testing.T) {
	router := newRouter(t, nominatim)

	rec := get(t, router, "/search?q=indiranagar")
	rec.AssertStatus(t, http.StatusOK)
	var ps []geocode.Place
	rec.Decode(t, &ps)
	if len(ps) != 1 || ps[0].DisplayName != "Indiranagar" {
		t.Fatalf("places = %+v", ps)
	}

	get(t, router, "/search?q=%20").AssertStatus(t, http.StatusBadRequest)
}

func TestUpstreamFailure(t *testing.T) {
	router := newRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rec := get(t, router, "/search?q=anywhere")
	rec.AssertStatus(t, http.StatusBadGateway)
	if msg := rec.MessageOf(t); msg != "geocoding service unavailable" {
		t.Errorf("message = %q", msg)
	}
}

func TestRequiresSignIn(t *testing.T) {
	router := newRouter(t, nominatim)
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/search?q=x"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
