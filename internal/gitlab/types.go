package gitlab

// AccessLevel is a GitLab role level as used by protected branches.
type AccessLevel int

const (
	NoAccess         AccessLevel = 0
	DeveloperAccess  AccessLevel = 30
	MaintainerAccess AccessLevel = 40
)

// MergeMethod values accepted by the projects API.
const (
	MergeMethodMerge       = "merge"
	MergeMethodRebaseMerge = "rebase_merge"
	MergeMethodFastForward = "ff"
)

// BadgeKindProject marks badges owned by the project itself; group badges are
// inherited and can't be changed through the project API.
const BadgeKindProject = "project"

// License is the license GitLab detected in the repository.
type License struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	HTMLURL  string `json:"html_url"`
}

// Statistics is only populated when the project is fetched with statistics=true.
type Statistics struct {
	CommitCount    int64 `json:"commit_count"`
	StorageSize    int64 `json:"storage_size"`
	RepositorySize int64 `json:"repository_size"`
	LFSObjectsSize int64 `json:"lfs_objects_size"`
}

// CustomAttribute is an admin-only key/value pair attached to a project.
type CustomAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Project is the subset of the GitLab project resource the sync reads and writes.
type Project struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Path              string `json:"path"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	HTTPURLToRepo     string `json:"http_url_to_repo"`
	DefaultBranch     string `json:"default_branch"`
	Description       string `json:"description"`
	Archived          bool   `json:"archived"`

	License          *License          `json:"license"`
	Statistics       *Statistics       `json:"statistics,omitempty"`
	CustomAttributes []CustomAttribute `json:"custom_attributes,omitempty"`
	Topics           []string          `json:"topics"`

	ContainerRegistryEnabled bool   `json:"container_registry_enabled"`
	IssuesEnabled            bool   `json:"issues_enabled"`
	JobsEnabled              bool   `json:"jobs_enabled"`
	WikiEnabled              bool   `json:"wiki_enabled"`
	SnippetsEnabled          bool   `json:"snippets_enabled"`
	LFSEnabled               bool   `json:"lfs_enabled"`
	MergeRequestsEnabled     bool   `json:"merge_requests_enabled"`
	SharedRunnersEnabled     bool   `json:"shared_runners_enabled"`
	MergeMethod              string `json:"merge_method"`
}

// LicenseKey returns the detected license key or "" when none was found.
func (p *Project) LicenseKey() string {
	if p.License == nil {
		return ""
	}
	return p.License.Key
}

// editProjectRequest is the body of PUT /projects/:id.
type editProjectRequest struct {
	DefaultBranch            string   `json:"default_branch,omitempty"`
	Topics                   []string `json:"topics"`
	ContainerRegistryEnabled bool     `json:"container_registry_enabled"`
	IssuesEnabled            bool     `json:"issues_enabled"`
	JobsEnabled              bool     `json:"jobs_enabled"`
	WikiEnabled              bool     `json:"wiki_enabled"`
	SnippetsEnabled          bool     `json:"snippets_enabled"`
	LFSEnabled               bool     `json:"lfs_enabled"`
	MergeRequestsEnabled     bool     `json:"merge_requests_enabled"`
	SharedRunnersEnabled     bool     `json:"shared_runners_enabled"`
	MergeMethod              string   `json:"merge_method,omitempty"`
}

func newEditProjectRequest(p *Project) editProjectRequest {
	topics := p.Topics
	if topics == nil {
		topics = []string{}
	}
	return editProjectRequest{
		DefaultBranch:            p.DefaultBranch,
		Topics:                   topics,
		ContainerRegistryEnabled: p.ContainerRegistryEnabled,
		IssuesEnabled:            p.IssuesEnabled,
		JobsEnabled:              p.JobsEnabled,
		WikiEnabled:              p.WikiEnabled,
		SnippetsEnabled:          p.SnippetsEnabled,
		LFSEnabled:               p.LFSEnabled,
		MergeRequestsEnabled:     p.MergeRequestsEnabled,
		SharedRunnersEnabled:     p.SharedRunnersEnabled,
		MergeMethod:              p.MergeMethod,
	}
}

// User is returned by GET /user and used to verify the admin token.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// AccessLevelDescription is one entry of a protected branch's access lists.
type AccessLevelDescription struct {
	AccessLevel            AccessLevel `json:"access_level"`
	AccessLevelDescription string      `json:"access_level_description"`
}

// ProtectedBranch is a branch protection rule.
type ProtectedBranch struct {
	ID                int                      `json:"id"`
	Name              string                   `json:"name"`
	PushAccessLevels  []AccessLevelDescription `json:"push_access_levels"`
	MergeAccessLevels []AccessLevelDescription `json:"merge_access_levels"`
}

// ProtectBranchOptions is the body of POST /projects/:id/protected_branches.
type ProtectBranchOptions struct {
	Name             string      `json:"name"`
	PushAccessLevel  AccessLevel `json:"push_access_level"`
	MergeAccessLevel AccessLevel `json:"merge_access_level"`
}

// Badge is a project or group badge.
type Badge struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LinkURL  string `json:"link_url"`
	ImageURL string `json:"image_url"`
	Kind     string `json:"kind"`
}

// BadgeOptions is the body used to create or edit a badge.
type BadgeOptions struct {
	LinkURL  string `json:"link_url"`
	ImageURL string `json:"image_url"`
}

// Hook is a project webhook.
type Hook struct {
	ID                       int    `json:"id"`
	URL                      string `json:"url"`
	PushEvents               bool   `json:"push_events"`
	PushEventsBranchFilter   string `json:"push_events_branch_filter"`
	TagPushEvents            bool   `json:"tag_push_events"`
	IssuesEvents             bool   `json:"issues_events"`
	ConfidentialIssuesEvents bool   `json:"confidential_issues_events"`
	MergeRequestsEvents      bool   `json:"merge_requests_events"`
	NoteEvents               bool   `json:"note_events"`
	JobEvents                bool   `json:"job_events"`
	PipelineEvents           bool   `json:"pipeline_events"`
	WikiPageEvents           bool   `json:"wiki_page_events"`
	EnableSSLVerification    bool   `json:"enable_ssl_verification"`
}

// HookOptions is the body used to create or edit a webhook. The same field
// set is sent for both so the two paths can't drift apart.
type HookOptions struct {
	URL                      string `json:"url"`
	PushEvents               bool   `json:"push_events"`
	PushEventsBranchFilter   string `json:"push_events_branch_filter"`
	TagPushEvents            bool   `json:"tag_push_events"`
	IssuesEvents             bool   `json:"issues_events"`
	ConfidentialIssuesEvents bool   `json:"confidential_issues_events"`
	MergeRequestsEvents      bool   `json:"merge_requests_events"`
	NoteEvents               bool   `json:"note_events"`
	JobEvents                bool   `json:"job_events"`
	PipelineEvents           bool   `json:"pipeline_events"`
	WikiPageEvents           bool   `json:"wiki_page_events"`
	EnableSSLVerification    bool   `json:"enable_ssl_verification"`
}
