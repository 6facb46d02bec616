package reconciler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gitlab-jenkins-sync/internal/gitlab"
)

// JobName is the Jenkins job that belongs to a project.
func JobName(p *gitlab.Project) string {
	return p.Name
}

// BadgeLinkURL points at the job page.
func BadgeLinkURL(jenkinsURL string, p *gitlab.Project) string {
	return fmt.Sprintf("%s/job/%s/", strings.TrimRight(jenkinsURL, "/"), url.PathEscape(JobName(p)))
}

// BadgeImageURL points at the embeddable build status icon of the job.
func BadgeImageURL(jenkinsURL string, p *gitlab.Project) string {
	return fmt.Sprintf("%s/buildStatus/icon?job=%s", strings.TrimRight(jenkinsURL, "/"), url.QueryEscape(JobName(p)))
}

// HookURL is the remote build trigger of the job, authenticated with token.
func HookURL(jenkinsURL string, p *gitlab.Project, token string) string {
	return fmt.Sprintf("%s/job/%s/build?token=%s",
		strings.TrimRight(jenkinsURL, "/"), url.PathEscape(JobName(p)), url.QueryEscape(token))
}
