package profile_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/features/profile"
	userstore "github.com/jaga42-ui/hopelink-sub000/internal/app/store/users"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/imagestore"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/indexes"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/realtime"
	"github.com/jaga42-ui/hopelink-sub000/internal/domain/models"
	"github.com/jaga42-ui/hopelink-sub000/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h     *profile.Handler
	users *userstore.Store
	fx    *testutil.Fixtures
	rt    *testutil.Recorder
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	images, err := imagestore.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	users := userstore.New(db)
	n, rt := testutil.NewNotifier(t, users)
	return env{
		h:     profile.NewHandler(users, images, n, zap.NewNop()),
		users: users,
		fx:    testutil.NewFixtures(t, db),
		rt:    rt,
	}
}

func TestHandleUpdate_JSON(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Anu", "anu@x.org")

	req := testutil.NewJSONRequest(t, http.MethodPut, "/api/profile", map[string]any{
		"name":        "  Anu   Menon ",
		"phone":       "<b>98450</b>",
		"blood_group": "ab-",
	})
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, testutil.AsUser(req, u))
	rec.AssertStatus(t, http.StatusOK)

	var got models.User
	rec.Decode(t, &got)
	if got.Name != "Anu Menon" || got.Phone != "98450" || got.BloodGroup != "AB-" {
		t.Fatalf("user = %+v", got)
	}

	rec = testutil.NewRecorder()
	e.h.HandleUpdate(rec, testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPut, "/api/profile",
		map[string]any{"blood_group": "Z"}), u))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate_MultipartAvatar(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Anu", "anu@x.org")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("address", "12 Lake Rd")
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="avatar"; filename="me.jpg"`},
		"Content-Type":        {"image/jpeg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("jpeg"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPut, "/api/profile", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, testutil.AsUser(req, u))
	rec.AssertStatus(t, http.StatusOK)

	var got models.User
	rec.Decode(t, &got)
	if got.Address != "12 Lake Rd" || !strings.HasPrefix(got.AvatarURL, "/files/") || got.Name != "Anu" {
		t.Fatalf("user = %+v", got)
	}
}

func TestHandleToggleRole_PublishesRoleChanged(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Dev", "dev@x.org")

	rec := testutil.NewRecorder()
	e.h.HandleToggleRole(rec, testutil.AsUser(testutil.NewRequest(http.MethodPut, "/api/profile/role"), u))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"active_role":"receiver"`)

	events := e.rt.OfType(realtime.EventRoleChanged)
	if len(events) != 1 || events[0].User != u.ID {
		t.Fatalf("role events = %+v", events)
	}
}

func TestHandleLocationAndPushToken(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Dev", "dev@x.org")

	rec := testutil.NewRecorder()
	e.h.HandleLocation(rec, testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPut, "/location",
		map[string]any{"lng": 72.87, "lat": 19.07}), u))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	e.h.HandleLocation(rec, testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPut, "/location",
		map[string]any{"lng": 72.87}), u))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	e.h.HandleLocation(rec, testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPut, "/location",
		map[string]any{"lng": 200, "lat": 19.07}), u))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	e.h.HandlePushToken(rec, testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPut, "/push-token",
		map[string]any{"token": "ExponentPushToken[abc]"}), u))
	rec.AssertStatus(t, http.StatusOK)

	stored, err := e.users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Location == nil || stored.Location.Lat() != 19.07 || stored.PushToken != "ExponentPushToken[abc]" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestServePublic(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Dev", "dev@x.org", testutil.WithPoints(260))
	viewer := e.fx.CreateUser(ctx, "Viewer", "viewer@x.org")

	req := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/"+u.ID.Hex()), "id", u.ID.Hex())
	rec := testutil.NewRecorder()
	e.h.ServePublic(rec, testutil.AsUser(req, viewer))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"rank":"Guardian"`)
	if strings.Contains(rec.Body.String(), "dev@x.org") {
		t.Fatalf("public profile leaked email: %s", rec.Body.String())
	}

	req = testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/nope"), "id", "nope")
	rec = testutil.NewRecorder()
	e.h.ServePublic(rec, testutil.AsUser(req, viewer))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeNearbyDonors(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Bengaluru centre, with donors at roughly 1 km, 5 km and 40 km.
	me := e.fx.CreateUser(ctx, "Me", "me@x.org", testutil.At(77.5946, 12.9716), testutil.AsReceiver())
	near := e.fx.CreateUser(ctx, "Near", "near@x.org", testutil.At(77.6036, 12.9716), testutil.WithBloodGroup("O+"))
	mid := e.fx.CreateUser(ctx, "Mid", "mid@x.org", testutil.At(77.6406, 12.9716), testutil.WithBloodGroup("A+"))
	e.fx.CreateUser(ctx, "Far", "far@x.org", testutil.At(77.9646, 12.9716))

	get := func(target string) []struct {
		ID string `json:"id"`
	} {
		rec := testutil.NewRecorder()
		e.h.ServeNearbyDonors(rec, testutil.AsUser(testutil.NewRequest(http.MethodGet, target), me))
		rec.AssertStatus(t, http.StatusOK)
		var out []struct {
			ID string `json:"id"`
		}
		rec.Decode(t, &out)
		return out
	}

	all := get("/nearby-donors?radius=10")
	if len(all) != 2 || all[0].ID != near.ID.Hex() || all[1].ID != mid.ID.Hex() {
		t.Fatalf("nearby = %+v", all)
	}
	filtered := get("/nearby-donors?lng=77.5946&lat=12.9716&radius=10&blood_group=a%2B")
	if len(filtered) != 1 || filtered[0].ID != mid.ID.Hex() {
		t.Fatalf("filtered = %+v", filtered)
	}

	rec := testutil.NewRecorder()
	e.h.ServeNearbyDonors(rec, testutil.AsUser(testutil.NewRequest(http.MethodGet, "/nearby-donors?blood_group=X"), me))
	rec.AssertStatus(t, http.StatusBadRequest)
}
