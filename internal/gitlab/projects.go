package gitlab

import (
	"context"
	"fmt"
	"net/http"
)

// ListProjects returns every project visible to the token, all pages, ordered
// by id ascending.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	projects, err := listAll[Project](ctx, c, "/projects", nil, map[string]string{
		"order_by": "id",
		"sort":     "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetProject fetches one project with license, statistics and custom
// attributes. The listing endpoint omits these.
func (c *Client) GetProject(ctx context.Context, id int) (*Project, error) {
	var project Project
	req := c.request(ctx).
		SetPathParam("id", projectID(id)).
		SetQueryParams(map[string]string{
			"license":                "true",
			"statistics":             "true",
			"with_custom_attributes": "true",
		}).
		SetResult(&project)
	if _, err := c.execute(req, http.MethodGet, "/projects/{id}"); err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &project, nil
}

// Languages returns the language breakdown of the repository in percent.
func (c *Client) Languages(ctx context.Context, id int) (map[string]float64, error) {
	languages := map[string]float64{}
	req := c.request(ctx).
		SetPathParam("id", projectID(id)).
		SetResult(&languages)
	if _, err := c.execute(req, http.MethodGet, "/projects/{id}/languages"); err != nil {
		return nil, fmt.Errorf("get languages of project %d: %w", id, err)
	}
	return languages, nil
}

// FileExists probes a repository file at ref. A 404 is reported as absent;
// every other failure is returned so outages are not mistaken for absence.
func (c *Client) FileExists(ctx context.Context, id int, path, ref string) (bool, error) {
	req := c.request(ctx).
		SetPathParams(map[string]string{
			"id":   projectID(id),
			"file": path,
		}).
		SetQueryParam("ref", ref)
	_, err := c.execute(req, http.MethodHead, "/projects/{id}/repository/files/{file}")
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("probe %s@%s in project %d: %w", path, ref, id, err)
}

// SaveProject persists the settings and topics held in p.
func (c *Client) SaveProject(ctx context.Context, p *Project) error {
	req := c.request(ctx).
		SetPathParam("id", projectID(p.ID)).
		SetBody(newEditProjectRequest(p))
	if _, err := c.execute(req, http.MethodPut, "/projects/{id}"); err != nil {
		return fmt.Errorf("save project %d: %w", p.ID, err)
	}
	return nil
}
