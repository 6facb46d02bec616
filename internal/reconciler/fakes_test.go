package reconciler

import (
	"context"
	"fmt"

	"github.com/gitlab-jenkins-sync/internal/gitlab"
	"github.com/gitlab-jenkins-sync/internal/jenkins"
)

type fakeProject struct {
	project   gitlab.Project
	languages map[string]float64
	files     map[string]bool
	branches  []gitlab.ProtectedBranch
	badges    []gitlab.Badge
	hooks     []gitlab.Hook
	saves     int
}

type fakeRegistry struct {
	projects map[int]*fakeProject
	order    []int
	nextID   int

	failGet   map[int]error
	fileErr   error
	listCalls int
	getCalls  []int
	fileRefs  map[string]bool
}

func newFakeRegistry(projects ...*fakeProject) *fakeRegistry {
	r := &fakeRegistry{projects: map[int]*fakeProject{}, nextID: 100, failGet: map[int]error{}, fileRefs: map[string]bool{}}
	for _, p := range projects {
		r.projects[p.project.ID] = p
		r.order = append(r.order, p.project.ID)
	}
	return r
}

func (r *fakeRegistry) id() int {
	r.nextID++
	return r.nextID
}

func (r *fakeRegistry) get(id int) (*fakeProject, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, &gitlab.APIError{StatusCode: 404, Path: fmt.Sprintf("/projects/%d", id)}
	}
	return p, nil
}

func (r *fakeRegistry) ListProjects(context.Context) ([]gitlab.Project, error) {
	r.listCalls++
	out := make([]gitlab.Project, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, gitlab.Project{ID: id})
	}
	return out, nil
}

func (r *fakeRegistry) GetProject(_ context.Context, id int) (*gitlab.Project, error) {
	r.getCalls = append(r.getCalls, id)
	if err := r.failGet[id]; err != nil {
		return nil, err
	}
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	cp := p.project
	cp.Topics = append([]string(nil), p.project.Topics...)
	return &cp, nil
}

func (r *fakeRegistry) SaveProject(_ context.Context, project *gitlab.Project) error {
	p, err := r.get(project.ID)
	if err != nil {
		return err
	}
	p.project = *project
	p.saves++
	return nil
}

func (r *fakeRegistry) Languages(_ context.Context, id int) (map[string]float64, error) {
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return p.languages, nil
}

func (r *fakeRegistry) FileExists(_ context.Context, id int, path, ref string) (bool, error) {
	r.fileRefs[ref] = true
	if r.fileErr != nil {
		return false, r.fileErr
	}
	p, err := r.get(id)
	if err != nil {
		return false, err
	}
	return p.files[path], nil
}

func (r *fakeRegistry) ListProtectedBranches(_ context.Context, id int) ([]gitlab.ProtectedBranch, error) {
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return append([]gitlab.ProtectedBranch(nil), p.branches...), nil
}

func (r *fakeRegistry) ProtectBranch(_ context.Context, id int, opts gitlab.ProtectBranchOptions) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	for _, b := range p.branches {
		if b.Name == opts.Name {
			return fmt.Errorf("branch %s already protected", opts.Name)
		}
	}
	p.branches = append(p.branches, gitlab.ProtectedBranch{
		ID:                r.id(),
		Name:              opts.Name,
		MergeAccessLevels: []gitlab.AccessLevelDescription{{AccessLevel: opts.MergeAccessLevel}},
		PushAccessLevels:  []gitlab.AccessLevelDescription{{AccessLevel: opts.PushAccessLevel}},
	})
	return nil
}

func (r *fakeRegistry) UnprotectBranch(_ context.Context, id int, name string) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	for i, b := range p.branches {
		if b.Name == name {
			p.branches = append(p.branches[:i], p.branches[i+1:]...)
			return nil
		}
	}
	return &gitlab.APIError{StatusCode: 404}
}

func (r *fakeRegistry) ListBadges(_ context.Context, id int) ([]gitlab.Badge, error) {
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return append([]gitlab.Badge(nil), p.badges...), nil
}

func (r *fakeRegistry) CreateBadge(_ context.Context, id int, opts gitlab.BadgeOptions) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	p.badges = append(p.badges, gitlab.Badge{ID: r.id(), LinkURL: opts.LinkURL, ImageURL: opts.ImageURL, Kind: gitlab.BadgeKindProject})
	return nil
}

func (r *fakeRegistry) UpdateBadge(_ context.Context, id, badgeID int, opts gitlab.BadgeOptions) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	for i := range p.badges {
		if p.badges[i].ID == badgeID {
			p.badges[i].LinkURL = opts.LinkURL
			p.badges[i].ImageURL = opts.ImageURL
			return nil
		}
	}
	return &gitlab.APIError{StatusCode: 404}
}

func (r *fakeRegistry) DeleteBadge(_ context.Context, id, badgeID int) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	for i, b := range p.badges {
		if b.ID == badgeID {
			if b.Kind == "group" {
				return &gitlab.APIError{StatusCode: 403}
			}
			p.badges = append(p.badges[:i], p.badges[i+1:]...)
			return nil
		}
	}
	return &gitlab.APIError{StatusCode: 404}
}

func (r *fakeRegistry) ListHooks(_ context.Context, id int) ([]gitlab.Hook, error) {
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return append([]gitlab.Hook(nil), p.hooks...), nil
}

func hookFrom(id int, opts gitlab.HookOptions) gitlab.Hook {
	return gitlab.Hook{
		ID:                       id,
		URL:                      opts.URL,
		PushEvents:               opts.PushEvents,
		PushEventsBranchFilter:   opts.PushEventsBranchFilter,
		TagPushEvents:            opts.TagPushEvents,
		IssuesEvents:             opts.IssuesEvents,
		ConfidentialIssuesEvents: opts.ConfidentialIssuesEvents,
		MergeRequestsEvents:      opts.MergeRequestsEvents,
		NoteEvents:               opts.NoteEvents,
		JobEvents:                opts.JobEvents,
		PipelineEvents:           opts.PipelineEvents,
		WikiPageEvents:           opts.WikiPageEvents,
		EnableSSLVerification:    opts.EnableSSLVerification,
	}
}

func (r *fakeRegistry) CreateHook(_ context.Context, id int, opts gitlab.HookOptions) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	p.hooks = append(p.hooks, hookFrom(r.id(), opts))
	return nil
}

func (r *fakeRegistry) UpdateHook(_ context.Context, id, hookID int, opts gitlab.HookOptions) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	for i := range p.hooks {
		if p.hooks[i].ID == hookID {
			p.hooks[i] = hookFrom(hookID, opts)
			return nil
		}
	}
	return &gitlab.APIError{StatusCode: 404}
}

func (r *fakeRegistry) DeleteHook(_ context.Context, id, hookID int) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	for i, h := range p.hooks {
		if h.ID == hookID {
			p.hooks = append(p.hooks[:i], p.hooks[i+1:]...)
			return nil
		}
	}
	return &gitlab.APIError{StatusCode: 404}
}

type fakeCI struct {
	plugins      map[string]string
	jobs         map[string][]byte
	created      []string
	reconfigured []string
}

func newFakeCI() *fakeCI {
	return &fakeCI{
		plugins: map[string]string{
			jenkins.PluginGit:         "5.2.1",
			jenkins.PluginWorkflowCPS: "3889.v937e0b_3412d3",
			jenkins.PluginWorkflowJob: "1400.v7fd111b_ec82f",
		},
		jobs: map[string][]byte{},
	}
}

func (c *fakeCI) PluginVersion(_ context.Context, shortName string) (string, error) {
	v, ok := c.plugins[shortName]
	if !ok {
		return "", fmt.Errorf("%w: %s", jenkins.ErrPluginNotInstalled, shortName)
	}
	return v, nil
}

func (c *fakeCI) JobExists(_ context.Context, name string) (bool, error) {
	_, ok := c.jobs[name]
	return ok, nil
}

func (c *fakeCI) CreateJob(_ context.Context, name string, configXML []byte) error {
	if _, ok := c.jobs[name]; ok {
		return fmt.Errorf("job %s already exists", name)
	}
	c.jobs[name] = configXML
	c.created = append(c.created, name)
	return nil
}

func (c *fakeCI) ReconfigureJob(_ context.Context, name string, configXML []byte) error {
	if _, ok := c.jobs[name]; !ok {
		return fmt.Errorf("job %s does not exist", name)
	}
	c.jobs[name] = configXML
	c.reconfigured = append(c.reconfigured, name)
	return nil
}
