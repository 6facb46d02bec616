// Package hook provides types for GitLab system hook events.
package hook

// Project system hook event names.
const (
	EventProjectCreate   = "project_create"
	EventProjectDestroy  = "project_destroy"
	EventProjectRename   = "project_rename"
	EventProjectTransfer = "project_transfer"
	EventProjectUpdate   = "project_update"
)

// SystemEvent is the subset of a GitLab system hook payload shared by the
// project events.
type SystemEvent struct {
	EventName            string `json:"event_name"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
	Name                 string `json:"name"`
	Path                 string `json:"path"`
	PathWithNamespace    string `json:"path_with_namespace"`
	ProjectID            int    `json:"project_id"`
	OwnerName            string `json:"owner_name"`
	OwnerEmail           string `json:"owner_email"`
	ProjectVisibility    string `json:"project_visibility"`
	OldPathWithNamespace string `json:"old_path_with_namespace,omitempty"`
}

// TriggersReconcile reports whether the event describes a project whose
// Jenkins setup may now be out of date. project_update is excluded: saving a
// project emits it, which would loop.
func (e SystemEvent) TriggersReconcile() bool {
	switch e.EventName {
	case EventProjectCreate, EventProjectRename, EventProjectTransfer:
		return e.ProjectID > 0
	default:
		return false
	}
}
