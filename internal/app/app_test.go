package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tasktracker/internal/app"
	"tasktracker/internal/notify"
	"tasktracker/internal/testutil"
)

type mail struct{ To, Subject, Body string }

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) take() []mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sent
	m.sent = nil
	return out
}

var now = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type env struct {
	app    *app.App
	api    *gin.Engine
	admin  *gin.Engine
	mailer *recordingMailer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := &recordingMailer{}
	a, err := app.Build(testutil.Config(), zaptest.NewLogger(t), testutil.NewDB(t), nil, m, testutil.Clock(now))
	require.NoError(t, err)
	return &env{app: a, api: a.APIEngine(), admin: a.AdminEngine(), mailer: m}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out envelope
	if w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (e *env) signup(t *testing.T, username, email string) string {
	t.Helper()
	code, _ := call(t, e.api, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username, "password": "pw1234", "email": email,
	})
	require.Equal(t, http.StatusCreated, code)
	code, res := call(t, e.api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": "pw1234",
	})
	require.Equal(t, http.StatusOK, code)
	return decode[struct {
		Token string `json:"token"`
	}](t, res.Data).Token
}

type taskView struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Priority string  `json:"priority"`
	DueDate  *string `json:"dueDate"`
}

func (e *env) createTask(t *testing.T, token string, body map[string]string) taskView {
	t.Helper()
	code, res := call(t, e.api, http.MethodPost, "/api/v1/tasks", token, body)
	require.Equal(t, http.StatusCreated, code, res.Msg)
	return decode[taskView](t, res.Data)
}

func TestReminderFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signup(t, "alice", "alice@example.com")

	welcome := e.mailer.take()
	require.Len(t, welcome, 1)
	assert.Equal(t, "alice@example.com", welcome[0].To)
	assert.Contains(t, welcome[0].Subject, "Welcome")

	e.createTask(t, alice, map[string]string{"title": "Pay rent", "dueDate": "2026-10-19", "priority": "HIGH"})

	require.NoError(t, e.app.Scheduler.Trigger(ctx, notify.JobDueSoon, now))
	sent := e.mailer.take()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "Pay rent")
	assert.Contains(t, sent[0].Body, "HIGH")

	e.createTask(t, alice, map[string]string{"title": "Old bill", "dueDate": "2026-10-13", "status": "PENDING"})
	require.NoError(t, e.app.Scheduler.Trigger(ctx, notify.JobOverdue, now))
	sent = e.mailer.take()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "Old bill")
	assert.Contains(t, sent[0].Body, "5 days overdue")

	require.NoError(t, e.app.Scheduler.Trigger(ctx, notify.JobWeekly, now))
	sent = e.mailer.take()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "Total Tasks: 2")
	assert.Contains(t, sent[0].Body, "Completion Rate: 0%")
}

func TestTaskAPIEnforcesOwnership(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice", "")
	bob := e.signup(t, "bob", "")

	tk := e.createTask(t, alice, map[string]string{"title": "Secret", "description": "mine"})
	assert.Equal(t, "MEDIUM", tk.Priority)
	assert.Equal(t, "PENDING", tk.Status)
	assert.Nil(t, tk.DueDate)

	code, res := call(t, e.api, http.MethodGet, "/api/v1/tasks/"+tk.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "task not found", res.Msg)

	code, missing := call(t, e.api, http.MethodGet, "/api/v1/tasks/does-not-exist", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, res.Msg, missing.Msg, "a foreign task and a missing task look the same")

	code, _ = call(t, e.api, http.MethodPut, "/api/v1/tasks/"+tk.ID, bob, map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = call(t, e.api, http.MethodDelete, "/api/v1/tasks/"+tk.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = call(t, e.api, http.MethodGet, "/api/v1/tasks", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]taskView](t, res.Data))

	code, res = call(t, e.api, http.MethodPut, "/api/v1/tasks/"+tk.ID, alice, map[string]string{"status": "DONE"})
	require.Equal(t, http.StatusOK, code)
	updated := decode[taskView](t, res.Data)
	assert.Equal(t, "Secret", updated.Title)
	assert.Equal(t, "DONE", updated.Status)

	code, _ = call(t, e.api, http.MethodDelete, "/api/v1/tasks/"+tk.ID, alice, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, e.api, http.MethodDelete, "/api/v1/tasks/"+tk.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTaskAPIValidationAndFilters(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice", "")

	code, res := call(t, e.api, http.MethodPost, "/api/v1/tasks", alice, map[string]string{"title": " "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Msg, "title")

	code, res = call(t, e.api, http.MethodPost, "/api/v1/tasks", alice, map[string]string{"title": "x", "dueDate": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Msg, "YYYY-MM-DD")

	code, res = call(t, e.api, http.MethodPost, "/api/v1/tasks", alice, map[string]string{"title": "x", "categoryId": "nope"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "category not found", res.Msg)

	e.createTask(t, alice, map[string]string{"title": "a", "dueDate": "2026-10-18"})
	e.createTask(t, alice, map[string]string{"title": "b", "dueDate": "2026-10-19", "status": "DONE"})
	e.createTask(t, alice, map[string]string{"title": "c", "dueDate": "2026-10-25"})

	code, res = call(t, e.api, http.MethodGet, "/api/v1/tasks?from=2026-10-18&to=2026-10-19", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]taskView](t, res.Data), 2)

	code, res = call(t, e.api, http.MethodGet, "/api/v1/tasks?from=2026-10-18&to=2026-10-19&status=pending", alice, nil)
	require.Equal(t, http.StatusOK, code)
	inRange := decode[[]taskView](t, res.Data)
	require.Len(t, inRange, 1)
	assert.Equal(t, "a", inRange[0].Title)

	code, res = call(t, e.api, http.MethodGet, "/api/v1/tasks?status=DONE", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]taskView](t, res.Data), 1)

	code, _ = call(t, e.api, http.MethodGet, "/api/v1/tasks?from=2026-10-19&to=2026-10-18", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e.api, http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCategoriesAndProfile(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice", "")

	code, res := call(t, e.api, http.MethodPost, "/api/v1/categories", alice, map[string]string{"name": "Work"})
	require.Equal(t, http.StatusCreated, code)
	cat := decode[struct {
		ID string `json:"id"`
	}](t, res.Data)

	tk := e.createTask(t, alice, map[string]string{"title": "report", "categoryId": cat.ID})

	code, res = call(t, e.api, http.MethodGet, "/api/v1/categories", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, res.Data), 1)

	code, _ = call(t, e.api, http.MethodDelete, "/api/v1/categories/"+cat.ID, alice, nil)
	require.Equal(t, http.StatusOK, code)

	code, res = call(t, e.api, http.MethodGet, "/api/v1/tasks/"+tk.ID, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, decode[map[string]any](t, res.Data)["categoryId"], "deleting a category keeps its tasks")

	code, res = call(t, e.api, http.MethodPut, "/api/v1/me", alice, map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice@example.com", decode[map[string]any](t, res.Data)["email"])

	code, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "password": "pw1234",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e.api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestNotificationEndpoints(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice", "alice@example.com")
	e.mailer.take()

	code, res := call(t, e.api, http.MethodPost, "/api/v1/notifications/test", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "sent", decode[map[string]any](t, res.Data)["outcome"])
	require.Len(t, e.mailer.take(), 1)

	code, res = call(t, e.api, http.MethodGet, "/api/v1/notifications/status", alice, nil)
	require.Equal(t, http.StatusOK, code)
	status := decode[struct {
		MailEnabled bool `json:"mailEnabled"`
		Jobs        []struct {
			Name string `json:"name"`
		} `json:"jobs"`
	}](t, res.Data)
	assert.True(t, status.MailEnabled)
	assert.Len(t, status.Jobs, 3)
}

func TestAdminAPI(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "alice", "alice@example.com")
	e.createTask(t, alice, map[string]string{"title": "Old bill", "dueDate": "2026-10-13"})
	e.mailer.take()

	code, res := call(t, e.admin, http.MethodGet, "/admin/v1/users", alice, nil)
	require.Equal(t, http.StatusOK, code)
	users := decode[struct {
		Total int64 `json:"total"`
	}](t, res.Data)
	assert.EqualValues(t, 1, users.Total)

	code, res = call(t, e.admin, http.MethodPost, "/admin/v1/notifications/overdue", alice, nil)
	require.Equal(t, http.StatusOK, code)
	rep := decode[notify.Report](t, res.Data)
	assert.Equal(t, notify.JobOverdue, rep.Job)
	assert.Equal(t, 1, rep.Users)
	assert.Equal(t, 1, rep.Sent)
	require.Len(t, e.mailer.take(), 1)

	code, _ = call(t, e.admin, http.MethodPost, "/admin/v1/notifications/due-soon", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	e.admin.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "notifications_total")
}

func TestAPIEngineExportsScheduledPassMetrics(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "bob", "")

	require.NoError(t, e.app.Scheduler.Trigger(context.Background(), notify.JobWeekly, now))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	e.api.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `notifications_total{job="weekly-summary",result="skipped"}`)
	assert.Contains(t, w.Body.String(), "notification_pass_duration_seconds")
}

func TestAPIEngineMetricsCanBeDisabled(t *testing.T) {
	cfg := testutil.Config()
	cfg.App.HTTP.Metrics = false
	a, err := app.Build(cfg, zaptest.NewLogger(t), testutil.NewDB(t), nil, nil, testutil.Clock(now))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.APIEngine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
