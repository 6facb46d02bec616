// Package reconciler aligns GitLab projects with their Jenkins pipelines.
package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/gitlab-jenkins-sync/internal/gitlab"
	"github.com/gitlab-jenkins-sync/internal/jenkins"
	"github.com/gitlab-jenkins-sync/internal/tags"
	"github.com/gitlab-jenkins-sync/internal/token"
)

// ProtectedBranch is the only branch left protected on every project.
const ProtectedBranch = "master"

// Registry defines the subset of GitLab functionality the reconciler depends on.
type Registry interface {
	tags.Source

	ListProjects(ctx context.Context) ([]gitlab.Project, error)
	GetProject(ctx context.Context, id int) (*gitlab.Project, error)
	SaveProject(ctx context.Context, p *gitlab.Project) error

	ListProtectedBranches(ctx context.Context, id int) ([]gitlab.ProtectedBranch, error)
	ProtectBranch(ctx context.Context, id int, opts gitlab.ProtectBranchOptions) error
	UnprotectBranch(ctx context.Context, id int, name string) error

	ListBadges(ctx context.Context, id int) ([]gitlab.Badge, error)
	CreateBadge(ctx context.Context, id int, opts gitlab.BadgeOptions) error
	UpdateBadge(ctx context.Context, id, badgeID int, opts gitlab.BadgeOptions) error
	DeleteBadge(ctx context.Context, id, badgeID int) error

	ListHooks(ctx context.Context, id int) ([]gitlab.Hook, error)
	CreateHook(ctx context.Context, id int, opts gitlab.HookOptions) error
	UpdateHook(ctx context.Context, id, hookID int, opts gitlab.HookOptions) error
	DeleteHook(ctx context.Context, id, hookID int) error
}

// CI defines the subset of Jenkins functionality the reconciler depends on.
type CI interface {
	jenkins.PluginVersioner

	JobExists(ctx context.Context, name string) (bool, error)
	CreateJob(ctx context.Context, name string, configXML []byte) error
	ReconfigureJob(ctx context.Context, name string, configXML []byte) error
}

// Options carries the URLs and seed that end up in links and tokens.
type Options struct {
	RegistryURL string
	JenkinsURL  string
	Seed        string
	// Output receives the progress lines. Defaults to stdout.
	Output io.Writer
}

// Reconciler processes projects strictly one at a time.
type Reconciler struct {
	registry Registry
	ci       CI
	builder  *jenkins.JobConfigBuilder
	opts     Options
	out      *pterm.BasicTextPrinter
	logger   *slog.Logger
}

// New creates a reconciler.
func New(registry Registry, ci CI, opts Options, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	opts.RegistryURL = strings.TrimRight(opts.RegistryURL, "/")
	opts.JenkinsURL = strings.TrimRight(opts.JenkinsURL, "/")
	return &Reconciler{
		registry: registry,
		ci:       ci,
		builder:  jenkins.NewJobConfigBuilder(ci),
		opts:     opts,
		out:      pterm.DefaultBasicText.WithWriter(opts.Output),
		logger:   logger,
	}
}

// Run reconciles every project in id order and stops at the first error.
func (r *Reconciler) Run(ctx context.Context) error {
	projects, err := r.registry.ListProjects(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("projects listed", slog.Int("count", len(projects)))

	for i, p := range projects {
		if i > 0 {
			r.out.Println(strings.Repeat("-", 80))
		}
		if err := r.Reconcile(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile brings one project, and its Jenkins job when it has a
// Jenkinsfile, to the desired state. The project is saved once at the end.
func (r *Reconciler) Reconcile(ctx context.Context, projectID int) error {
	project, err := r.registry.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	logger := r.logger.With(
		slog.Int("project_id", project.ID),
		slog.String("project", project.PathWithNamespace),
	)
	r.out.Printfln("[%4d] %s", project.ID, project.WebURL)

	r.step("+", "updating settings")
	NormalizeSettings(project)

	r.step("+", "protecting %s branch", ProtectedBranch)
	if err := r.resetProtectedBranches(ctx, project); err != nil {
		return fmt.Errorf("project %d: %w", project.ID, err)
	}

	r.step("+", "setting project tags")
	projectTags, facts, err := tags.ForProject(ctx, r.registry, project)
	if err != nil {
		return fmt.Errorf("project %d: derive tags: %w", project.ID, err)
	}
	project.Topics = projectTags
	logger.Debug("tags derived", slog.Any("tags", projectTags))

	if project.Archived {
		if err := r.clearIntegrations(ctx, project); err != nil {
			return fmt.Errorf("project %d: %w", project.ID, err)
		}
		return r.save(ctx, project, logger)
	}

	if facts.HasFile(tags.FileJenkinsfile) {
		if err := r.integrate(ctx, project, projectTags); err != nil {
			return fmt.Errorf("project %d: %w", project.ID, err)
		}
	} else {
		logger.Debug("no Jenkinsfile, skipping jenkins integration")
	}

	return r.save(ctx, project, logger)
}

// NormalizeSettings applies the fixed project settings.
func NormalizeSettings(p *gitlab.Project) {
	p.ContainerRegistryEnabled = false
	p.DefaultBranch = ProtectedBranch
	p.IssuesEnabled = false
	p.JobsEnabled = false
	p.LFSEnabled = true
	p.MergeMethod = gitlab.MergeMethodFastForward
	p.MergeRequestsEnabled = true
	p.SharedRunnersEnabled = false
	p.SnippetsEnabled = false
	p.WikiEnabled = false
}

func (r *Reconciler) step(sign, format string, args ...any) {
	r.out.Printfln(" %s %s", sign, fmt.Sprintf(format, args...))
}

func (r *Reconciler) save(ctx context.Context, p *gitlab.Project, logger *slog.Logger) error {
	if err := r.registry.SaveProject(ctx, p); err != nil {
		return err
	}
	logger.Debug("project saved")
	return nil
}

func (r *Reconciler) resetProtectedBranches(ctx context.Context, p *gitlab.Project) error {
	branches, err := r.registry.ListProtectedBranches(ctx, p.ID)
	if err != nil {
		return err
	}
	return ensureSingleton(ctx, branches, singleton[gitlab.ProtectedBranch]{
		match: never[gitlab.ProtectedBranch],
		create: func(ctx context.Context) error {
			return r.registry.ProtectBranch(ctx, p.ID, gitlab.ProtectBranchOptions{
				Name:             ProtectedBranch,
				MergeAccessLevel: gitlab.DeveloperAccess,
				PushAccessLevel:  gitlab.MaintainerAccess,
			})
		},
		remove: func(ctx context.Context, b gitlab.ProtectedBranch) error {
			return r.registry.UnprotectBranch(ctx, p.ID, b.Name)
		},
	})
}

func (r *Reconciler) clearIntegrations(ctx context.Context, p *gitlab.Project) error {
	r.step("-", "clearing project badges")
	badges, err := r.projectBadges(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := removeAll(ctx, badges, func(ctx context.Context, b gitlab.Badge) error {
		return r.registry.DeleteBadge(ctx, p.ID, b.ID)
	}); err != nil {
		return err
	}

	r.step("-", "clearing project hooks")
	hooks, err := r.registry.ListHooks(ctx, p.ID)
	if err != nil {
		return err
	}
	return removeAll(ctx, hooks, func(ctx context.Context, h gitlab.Hook) error {
		return r.registry.DeleteHook(ctx, p.ID, h.ID)
	})
}

func (r *Reconciler) integrate(ctx context.Context, p *gitlab.Project, projectTags []string) error {
	jobToken := token.Derive(r.opts.Seed, p.PathWithNamespace)

	r.step("+", "setting project badges")
	if err := r.ensureBadge(ctx, p); err != nil {
		return err
	}

	r.step("+", "setting webhook to jenkins")
	if err := r.ensureHook(ctx, p, jobToken); err != nil {
		return err
	}

	r.step("*", "configuring jenkins pipeline")
	return r.ensureJob(ctx, p, jobToken, projectTags)
}

// projectBadges drops inherited group badges, which the project API can't edit.
func (r *Reconciler) projectBadges(ctx context.Context, projectID int) ([]gitlab.Badge, error) {
	all, err := r.registry.ListBadges(ctx, projectID)
	if err != nil {
		return nil, err
	}
	badges := make([]gitlab.Badge, 0, len(all))
	for _, b := range all {
		if b.Kind == "" || b.Kind == gitlab.BadgeKindProject {
			badges = append(badges, b)
		}
	}
	return badges, nil
}

func (r *Reconciler) ensureBadge(ctx context.Context, p *gitlab.Project) error {
	badges, err := r.projectBadges(ctx, p.ID)
	if err != nil {
		return err
	}
	opts := gitlab.BadgeOptions{
		LinkURL:  BadgeLinkURL(r.opts.JenkinsURL, p),
		ImageURL: BadgeImageURL(r.opts.JenkinsURL, p),
	}
	return ensureSingleton(ctx, badges, singleton[gitlab.Badge]{
		create: func(ctx context.Context) error {
			return r.registry.CreateBadge(ctx, p.ID, opts)
		},
		update: func(ctx context.Context, b gitlab.Badge) error {
			return r.registry.UpdateBadge(ctx, p.ID, b.ID, opts)
		},
		remove: func(ctx context.Context, b gitlab.Badge) error {
			return r.registry.DeleteBadge(ctx, p.ID, b.ID)
		},
	})
}

// hookOptions returns the fixed webhook configuration: push and merge
// request events only.
func hookOptions(url string) gitlab.HookOptions {
	return gitlab.HookOptions{
		URL:                   url,
		PushEvents:            true,
		MergeRequestsEvents:   true,
		EnableSSLVerification: true,
	}
}

func (r *Reconciler) ensureHook(ctx context.Context, p *gitlab.Project, jobToken string) error {
	hooks, err := r.registry.ListHooks(ctx, p.ID)
	if err != nil {
		return err
	}
	opts := hookOptions(HookURL(r.opts.JenkinsURL, p, jobToken))
	return ensureSingleton(ctx, hooks, singleton[gitlab.Hook]{
		create: func(ctx context.Context) error {
			return r.registry.CreateHook(ctx, p.ID, opts)
		},
		update: func(ctx context.Context, h gitlab.Hook) error {
			return r.registry.UpdateHook(ctx, p.ID, h.ID, opts)
		},
		remove: func(ctx context.Context, h gitlab.Hook) error {
			return r.registry.DeleteHook(ctx, p.ID, h.ID)
		},
	})
}

// ensureJob reconfigures the project's job when Jenkins has one and creates it
// otherwise. Jenkins job names are unique, so there is nothing to prune.
func (r *Reconciler) ensureJob(ctx context.Context, p *gitlab.Project, jobToken string, projectTags []string) error {
	configXML, err := r.builder.Build(ctx, jenkins.JobSpec{
		CloneURL:    p.HTTPURLToRepo,
		Branch:      p.DefaultBranch,
		AuthToken:   jobToken,
		Description: p.Description,
		WebURL:      p.WebURL,
		RegistryURL: r.opts.RegistryURL,
		Tags:        projectTags,
	})
	if err != nil {
		return err
	}

	name := JobName(p)
	exists, err := r.ci.JobExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return r.ci.ReconfigureJob(ctx, name, configXML)
	}
	return r.ci.CreateJob(ctx, name, configXML)
}
