package jenkins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gitlab-jenkins-sync/internal/restylog"
)

// ErrPluginNotInstalled is returned when a plugin the job config depends on
// is missing from the Jenkins instance.
var ErrPluginNotInstalled = errors.New("jenkins plugin not installed")

// APIError is returned for any non-2xx Jenkins response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jenkins API error: %s %s: status %d, body: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func isNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func isForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client talks to the Jenkins REST API.
type Client struct {
	rest   *resty.Client
	logger *slog.Logger

	crumbMu sync.Mutex
	// crumbLoaded is set after a successful fetch; crumb stays nil when
	// CSRF protection is disabled.
	crumbLoaded bool
	crumb       *crumb
}

// Plugin is one entry of the plugin manager listing.
type Plugin struct {
	ShortName string `json:"shortName"`
	Version   string `json:"version"`
	Active    bool   `json:"active"`
}

type pluginsResponse struct {
	Plugins []Plugin `json:"plugins"`
}

type crumb struct {
	Crumb             string `json:"crumb"`
	CrumbRequestField string `json:"crumbRequestField"`
}

// NewClient creates a Jenkins client using HTTP basic auth.
func NewClient(baseURL, username, password string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	// The crumb is bound to the session that requested it.
	hc := *httpClient
	if hc.Jar == nil {
		jar, _ := cookiejar.New(nil)
		hc.Jar = jar
	}
	baseURL = strings.TrimRight(baseURL, "/")
	rest := resty.NewWithClient(&hc).
		SetBaseURL(baseURL).
		SetLogger(restylog.New(logger)).
		SetDisableWarn(true)
	if username != "" || password != "" {
		rest.SetBasicAuth(username, password)
		if !strings.HasPrefix(strings.ToLower(baseURL), "https://") {
			logger.Warn("jenkins credentials are sent over plain http", slog.String("url", baseURL))
		}
	}
	return &Client{
		rest:   rest,
		logger: logger,
	}
}

func (c *Client) execute(req *resty.Request, method, path string) (*resty.Response, error) {
	c.logger.Debug("jenkins request", slog.String("method", method), slog.String("path", path))
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("jenkins request %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return resp, &APIError{
			Method:     method,
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}
	return resp, nil
}

// CheckAccessibility verifies that Jenkins answers and accepts the credentials.
func (c *Client) CheckAccessibility(ctx context.Context) error {
	req := c.rest.R().SetContext(ctx).SetQueryParam("tree", "mode")
	if _, err := c.execute(req, http.MethodGet, "/api/json"); err != nil {
		return fmt.Errorf("check jenkins: %w", err)
	}
	return nil
}

// Plugins lists installed plugins.
func (c *Client) Plugins(ctx context.Context) ([]Plugin, error) {
	var plugins pluginsResponse
	req := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"depth": "1",
			"tree":  "plugins[shortName,version,active]",
		}).
		SetResult(&plugins)
	if _, err := c.execute(req, http.MethodGet, "/pluginManager/api/json"); err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	return plugins.Plugins, nil
}

// PluginVersion returns the installed version of the plugin with the given
// short name, or ErrPluginNotInstalled.
func (c *Client) PluginVersion(ctx context.Context, shortName string) (string, error) {
	plugins, err := c.Plugins(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range plugins {
		if p.ShortName == shortName && p.Version != "" {
			return p.Version, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPluginNotInstalled, shortName)
}

// JobExists reports whether a top-level job with this name exists.
func (c *Client) JobExists(ctx context.Context, name string) (bool, error) {
	req := c.rest.R().
		SetContext(ctx).
		SetPathParam("job", name).
		SetQueryParam("tree", "name")
	_, err := c.execute(req, http.MethodGet, "/job/{job}/api/json")
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("check job %s: %w", name, err)
}

// CreateJob creates a job from a config.xml document.
func (c *Client) CreateJob(ctx context.Context, name string, configXML []byte) error {
	err := c.postXML(ctx, "/createItem", configXML, func(req *resty.Request) {
		req.SetQueryParam("name", name)
	})
	if err != nil {
		return fmt.Errorf("create job %s: %w", name, err)
	}
	return nil
}

// ReconfigureJob replaces the whole config.xml of an existing job.
func (c *Client) ReconfigureJob(ctx context.Context, name string, configXML []byte) error {
	err := c.postXML(ctx, "/job/{job}/config.xml", configXML, func(req *resty.Request) {
		req.SetPathParam("job", name)
	})
	if err != nil {
		return fmt.Errorf("reconfigure job %s: %w", name, err)
	}
	return nil
}

// postXML sends body with the session crumb. A 403 usually means the
// crumb's session expired, so the crumb is fetched again and the request
// retried once.
func (c *Client) postXML(ctx context.Context, path string, body []byte, setup func(*resty.Request)) error {
	for attempt := 0; ; attempt++ {
		cr, err := c.loadCrumb(ctx)
		if err != nil {
			return err
		}
		req := c.rest.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/xml; charset=utf-8").
			SetBody(body)
		setup(req)
		if cr != nil {
			req.SetHeader(cr.CrumbRequestField, cr.Crumb)
		}
		_, err = c.execute(req, http.MethodPost, path)
		if attempt == 0 && isForbidden(err) {
			c.logger.Debug("jenkins rejected crumb, refreshing", slog.String("path", path))
			c.resetCrumb()
			continue
		}
		return err
	}
}

// loadCrumb returns the cached crumb or fetches it. Jenkins answers 404
// when CSRF protection is disabled, in which case no crumb header is sent.
// Failed fetches are not cached.
func (c *Client) loadCrumb(ctx context.Context) (*crumb, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	if c.crumbLoaded {
		return c.crumb, nil
	}

	var cr crumb
	req := c.rest.R().SetContext(ctx).SetResult(&cr)
	_, err := c.execute(req, http.MethodGet, "/crumbIssuer/api/json")
	switch {
	case err == nil && cr.CrumbRequestField != "":
		c.crumb = &cr
	case err == nil, isNotFound(err):
		c.crumb = nil
	default:
		return nil, fmt.Errorf("fetch crumb: %w", err)
	}
	c.crumbLoaded = true
	return c.crumb, nil
}

func (c *Client) resetCrumb() {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	c.crumbLoaded = false
	c.crumb = nil
}
