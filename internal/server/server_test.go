package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitlab-jenkins-sync/internal/config"
	"github.com/gitlab-jenkins-sync/internal/processor"
)

type stubQueue struct {
	tasks []processor.Task
	err   error
}

func (s *stubQueue) Enqueue(task processor.Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *stubQueue) ids() []int {
	var ids []int
	for _, task := range s.tasks {
		ids = append(ids, task.ProjectID)
	}
	return ids
}

func newTestServer(queue TaskQueue) *Server {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Server.HookSecret = "secret"
	return New(cfg, queue, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func systemHook(t *testing.T, token, event string, payload map[string]any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/hooks/system", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gitlab-Token", token)
	req.Header.Set("X-Gitlab-Event", event)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&stubQueue{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSystemHook_RejectsInvalidToken(t *testing.T) {
	queue := &stubQueue{}
	s := newTestServer(queue)

	for _, token := range []string{"", "wrong"} {
		rec := serve(s, systemHook(t, token, "System Hook", map[string]any{
			"event_name": "project_create",
			"project_id": 1,
		}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Empty(t, queue.tasks)
}

func TestSystemHook_QueuesCreatedProject(t *testing.T) {
	queue := &stubQueue{}
	s := newTestServer(queue)

	rec := serve(s, systemHook(t, "secret", "System Hook", map[string]any{
		"event_name":          "project_create",
		"project_id":          74,
		"path_with_namespace": "jsmith/storecloud",
	}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, 74, queue.tasks[0].ProjectID)
	assert.Equal(t, "project_create", queue.tasks[0].EventName)
	assert.False(t, queue.tasks[0].ReceivedAt.IsZero())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "queued", body["status"])
}

func TestSystemHook_CancelledRequestStillReconciles(t *testing.T) {
	rec := &recordingReconciler{}
	proc := processor.New(rec, 4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := newTestServer(proc)

	ctx, cancel := context.WithCancel(context.Background())
	req := systemHook(t, "secret", "System Hook", map[string]any{
		"event_name": "project_transfer",
		"project_id": 12,
	}).WithContext(ctx)
	cancel()

	resp := serve(s, req)
	assert.Equal(t, http.StatusAccepted, resp.Code)

	proc.Shutdown(context.Background())
	assert.Equal(t, []int{12}, rec.ids)
	require.Len(t, rec.ctxErrs, 1)
	assert.NoError(t, rec.ctxErrs[0])
}

func TestSystemHook_IgnoresProjectUpdate(t *testing.T) {
	queue := &stubQueue{}
	s := newTestServer(queue)

	rec := serve(s, systemHook(t, "secret", "System Hook", map[string]any{
		"event_name": "project_update",
		"project_id": 74,
	}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, queue.tasks)
}

func TestSystemHook_IgnoresOtherEventKinds(t *testing.T) {
	queue := &stubQueue{}
	s := newTestServer(queue)

	rec := serve(s, systemHook(t, "secret", "Push Hook", map[string]any{"project_id": 74}))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, queue.tasks)
}

func TestSystemHook_InvalidPayload(t *testing.T) {
	s := newTestServer(&stubQueue{})
	req := httptest.NewRequest(http.MethodPost, "/hooks/system", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gitlab-Token", "secret")
	req.Header.Set("X-Gitlab-Event", "System Hook")

	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSystemHook_QueueFull(t *testing.T) {
	queue := &stubQueue{err: processor.ErrQueueFull}
	s := newTestServer(queue)

	rec := serve(s, systemHook(t, "secret", "System Hook", map[string]any{
		"event_name": "project_rename",
		"project_id": 5,
	}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, queue.ids())
}

func TestSystemHook_EnqueueError(t *testing.T) {
	queue := &stubQueue{err: errors.New("processor stopped")}
	s := newTestServer(queue)

	rec := serve(s, systemHook(t, "secret", "System Hook", map[string]any{
		"event_name": "project_create",
		"project_id": 5,
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type recordingReconciler struct {
	mu      sync.Mutex
	ids     []int
	ctxErrs []error
}

func (r *recordingReconciler) Reconcile(ctx context.Context, projectID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, projectID)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}
