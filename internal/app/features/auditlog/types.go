// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/store/audit"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/paging"
)

// listItem is one audit event with actor and target names resolved.
type listItem struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Category   string            `json:"category"`
	EventType  string            `json:"event_type"`
	ActorID    string            `json:"actor_id,omitempty"`
	ActorName  string            `json:"actor_name,omitempty"`
	TargetID   string            `json:"target_id,omitempty"`
	TargetName string            `json:"target_name,omitempty"`
	IP         string            `json:"ip"`
	Success    bool              `json:"success"`
	Reason     string            `json:"failure_reason,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// listResponse is {events, page, limit, total, hasMore}.
type listResponse struct {
	Events []listItem `json:"events"`
	paging.Result[listItem]
}

// categoryOption is one entry of the filter menu.
type categoryOption struct {
	Value      string   `json:"value"`
	Label      string   `json:"label"`
	EventTypes []string `json:"event_types"`
}

var authEvents = []string{
	audit.EventRegistered,
	audit.EventLoginSuccess,
	audit.EventLoginFailed,
	audit.EventLoginRateLimited,
	audit.EventGoogleLogin,
	audit.EventPasswordResetSent,
	audit.EventPasswordResetDone,
}

var adminEvents = []string{
	audit.EventAdminGranted,
	audit.EventAdminRevoked,
	audit.EventActiveRoleChanged,
	audit.EventUserDeleted,
	audit.EventListingRemoved,
	audit.EventBroadcastSent,
	audit.EventBootstrapAdmin,
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication", EventTypes: authEvents},
		{Value: audit.CategoryAdmin, Label: "Administration", EventTypes: adminEvents},
	}
}

// knownEventType reports whether t belongs to category, or to any category
// when category is empty.
func knownEventType(category, t string) bool {
	for _, c := range allCategories() {
		if category != "" && c.Value != category {
			continue
		}
		for _, e := range c.EventTypes {
			if e == t {
				return true
			}
		}
	}
	return false
}
