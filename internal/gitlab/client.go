package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gitlab-jenkins-sync/internal/restylog"
)

const (
	headerPrivateToken = "PRIVATE-TOKEN"
	headerNextPage     = "X-Next-Page"
	defaultPerPage     = 100
)

// Client talks to the GitLab REST API v4.
type Client struct {
	rest   *resty.Client
	logger *slog.Logger
}

// APIError is returned for any non-2xx GitLab response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gitlab API error: %s %s: status %d, body: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a GitLab 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// NewClient creates a client for the instance at baseURL authenticated with an
// admin personal access token.
func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	rest := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL+"/api/v4").
		SetHeader(headerPrivateToken, token).
		SetHeader("Accept", "application/json").
		SetLogger(restylog.New(logger))
	return &Client{
		rest:   rest,
		logger: logger,
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.rest.R().SetContext(ctx)
}

func (c *Client) execute(req *resty.Request, method, path string) (*resty.Response, error) {
	c.logger.Debug("gitlab request", slog.String("method", method), slog.String("path", path))
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("gitlab request %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return resp, &APIError{
			Method:     method,
			Path:       resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}
	return resp, nil
}

// CurrentUser returns the owner of the token. It doubles as an auth check.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if _, err := c.execute(c.request(ctx).SetResult(&user), http.MethodGet, "/user"); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return &user, nil
}

// listAll follows X-Next-Page until the last page and returns every item.
func listAll[T any](ctx context.Context, c *Client, path string, pathParams, query map[string]string) ([]T, error) {
	var all []T
	page := 1
	for page > 0 {
		var batch []T
		req := c.request(ctx).
			SetPathParams(pathParams).
			SetQueryParams(query).
			SetQueryParams(map[string]string{
				"per_page": strconv.Itoa(defaultPerPage),
				"page":     strconv.Itoa(page),
			}).
			SetResult(&batch)
		resp, err := c.execute(req, http.MethodGet, path)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, batch...)
		page = nextPage(resp)
	}
	return all, nil
}

// nextPage parses X-Next-Page; 0 means the last page was reached.
func nextPage(resp *resty.Response) int {
	next, err := strconv.Atoi(strings.TrimSpace(resp.Header().Get(headerNextPage)))
	if err != nil {
		return 0
	}
	return next
}

func projectID(id int) string {
	return strconv.Itoa(id)
}
