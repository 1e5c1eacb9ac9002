// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/store/audit"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/httpx"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/paging"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// filterFrom reads category, event_type, user_id, start_date and end_date.
// Dates are whole UTC days; end_date is inclusive.
func filterFrom(r *http.Request, p paging.Page) (audit.QueryFilter, error) {
	f := audit.QueryFilter{Limit: p.Limit64(), Offset: p.Skip64()}

	switch c := query.Get(r, "category"); c {
	case "", audit.CategoryAuth, audit.CategoryAdmin:
		f.Category = c
	default:
		return f, apperr.Validation("invalid category")
	}
	if t := query.Get(r, "event_type"); t != "" {
		if !knownEventType(f.Category, t) {
			return f, apperr.Validation("invalid event_type")
		}
		f.EventType = t
	}
	if v := query.Get(r, "user_id"); v != "" {
		id, err := httpx.ParseObjectID(v, "user_id")
		if err != nil {
			return f, err
		}
		f.UserID = &id
	}
	if v := query.Get(r, "start_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, apperr.Validation("start_date must be YYYY-MM-DD")
		}
		f.Since = &t
	}
	if v := query.Get(r, "end_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, apperr.Validation("end_date must be YYYY-MM-DD")
		}
		end := t.Add(24 * time.Hour)
		f.Until = &end
	}
	return f, nil
}

// ServeList handles GET /api/admin/audit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)
	filter, err := filterFrom(r, p)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}
	total, err := h.Events.Count(ctx, filter)
	if err != nil {
		httpx.Error(w, r, h.Log, err)
		return
	}

	res := paging.NewResult(h.items(ctx, events), p, total)
	httpx.JSON(w, http.StatusOK, listResponse{Events: res.Items, Result: res})
}

// ServeCategories handles GET /api/admin/audit/categories.
func (h *Handler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, allCategories())
}

// items resolves actor and target names in one lookup. Unknown users fall
// back to their hex id.
func (h *Handler) items(ctx context.Context, events []audit.Event) []listItem {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}

	names := map[primitive.ObjectID]string{}
	if len(ids) > 0 {
		people, err := h.Users.PublicByIDs(ctx, ids)
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for id, u := range people {
			names[id] = u.Name
		}
	}
	nameOf := func(id primitive.ObjectID) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id.Hex()
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:        e.ID.Hex(),
			Timestamp: e.Timestamp,
			Category:  e.Category,
			EventType: e.EventType,
			IP:        e.IP,
			Success:   e.Success,
			Reason:    e.FailureReason,
			Details:   e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = nameOf(*e.ActorID)
		}
		if e.UserID != nil {
			item.TargetID = e.UserID.Hex()
			item.TargetName = nameOf(*e.UserID)
		}
		items = append(items, item)
	}
	return items
}
