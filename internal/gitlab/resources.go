package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// ListProtectedBranches returns all branch protection rules of a project.
func (c *Client) ListProtectedBranches(ctx context.Context, id int) ([]ProtectedBranch, error) {
	items, err := listAll[ProtectedBranch](ctx, c, "/projects/{id}/protected_branches", map[string]string{"id": projectID(id)}, nil)
	if err != nil {
		return nil, fmt.Errorf("list protected branches of project %d: %w", id, err)
	}
	return items, nil
}

// ProtectBranch creates a branch protection rule.
func (c *Client) ProtectBranch(ctx context.Context, id int, opts ProtectBranchOptions) error {
	req := c.request(ctx).
		SetPathParam("id", projectID(id)).
		SetBody(opts)
	if _, err := c.execute(req, http.MethodPost, "/projects/{id}/protected_branches"); err != nil {
		return fmt.Errorf("protect branch %s of project %d: %w", opts.Name, id, err)
	}
	return nil
}

// UnprotectBranch removes the protection rule for name.
func (c *Client) UnprotectBranch(ctx context.Context, id int, name string) error {
	req := c.request(ctx).
		SetPathParams(map[string]string{
			"id":     projectID(id),
			"branch": name,
		})
	if _, err := c.execute(req, http.MethodDelete, "/projects/{id}/protected_branches/{branch}"); err != nil {
		return fmt.Errorf("unprotect branch %s of project %d: %w", name, id, err)
	}
	return nil
}

// ListBadges returns project badges together with inherited group badges.
func (c *Client) ListBadges(ctx context.Context, id int) ([]Badge, error) {
	items, err := listAll[Badge](ctx, c, "/projects/{id}/badges", map[string]string{"id": projectID(id)}, nil)
	if err != nil {
		return nil, fmt.Errorf("list badges of project %d: %w", id, err)
	}
	return items, nil
}

// CreateBadge adds a badge to the project.
func (c *Client) CreateBadge(ctx context.Context, id int, opts BadgeOptions) error {
	req := c.request(ctx).
		SetPathParam("id", projectID(id)).
		SetBody(opts)
	if _, err := c.execute(req, http.MethodPost, "/projects/{id}/badges"); err != nil {
		return fmt.Errorf("create badge in project %d: %w", id, err)
	}
	return nil
}

// UpdateBadge edits an existing badge in place.
func (c *Client) UpdateBadge(ctx context.Context, id, badgeID int, opts BadgeOptions) error {
	req := c.request(ctx).
		SetPathParams(map[string]string{
			"id":    projectID(id),
			"badge": strconv.Itoa(badgeID),
		}).
		SetBody(opts)
	if _, err := c.execute(req, http.MethodPut, "/projects/{id}/badges/{badge}"); err != nil {
		return fmt.Errorf("update badge %d in project %d: %w", badgeID, id, err)
	}
	return nil
}

// DeleteBadge removes a project badge.
func (c *Client) DeleteBadge(ctx context.Context, id, badgeID int) error {
	req := c.request(ctx).
		SetPathParams(map[string]string{
			"id":    projectID(id),
			"badge": strconv.Itoa(badgeID),
		})
	if _, err := c.execute(req, http.MethodDelete, "/projects/{id}/badges/{badge}"); err != nil {
		return fmt.Errorf("delete badge %d in project %d: %w", badgeID, id, err)
	}
	return nil
}

// ListHooks returns the project's webhooks.
func (c *Client) ListHooks(ctx context.Context, id int) ([]Hook, error) {
	items, err := listAll[Hook](ctx, c, "/projects/{id}/hooks", map[string]string{"id": projectID(id)}, nil)
	if err != nil {
		return nil, fmt.Errorf("list hooks of project %d: %w", id, err)
	}
	return items, nil
}

// CreateHook adds a webhook to the project.
func (c *Client) CreateHook(ctx context.Context, id int, opts HookOptions) error {
	req := c.request(ctx).
		SetPathParam("id", projectID(id)).
		SetBody(opts)
	if _, err := c.execute(req, http.MethodPost, "/projects/{id}/hooks"); err != nil {
		return fmt.Errorf("create hook in project %d: %w", id, err)
	}
	return nil
}

// UpdateHook edits an existing webhook in place.
func (c *Client) UpdateHook(ctx context.Context, id, hookID int, opts HookOptions) error {
	req := c.request(ctx).
		SetPathParams(map[string]string{
			"id":   projectID(id),
			"hook": strconv.Itoa(hookID),
		}).
		SetBody(opts)
	if _, err := c.execute(req, http.MethodPut, "/projects/{id}/hooks/{hook}"); err != nil {
		return fmt.Errorf("update hook %d in project %d: %w", hookID, id, err)
	}
	return nil
}

// DeleteHook removes a webhook.
func (c *Client) DeleteHook(ctx context.Context, id, hookID int) error {
	req := c.request(ctx).
		SetPathParams(map[string]string{
			"id":   projectID(id),
			"hook": strconv.Itoa(hookID),
		})
	if _, err := c.execute(req, http.MethodDelete, "/projects/{id}/hooks/{hook}"); err != nil {
		return fmt.Errorf("delete hook %d in project %d: %w", hookID, id, err)
	}
	return nil
}
