package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tasktracker/internal/domain"
)

// memUsers / memTasks 测试用的内存存储
type memUsers struct {
	domain.UserRepository
	users []domain.User
}

func (m *memUsers) FindAll(context.Context) ([]domain.User, error) { return m.users, nil }

type memTasks struct {
	domain.TaskRepository
	byOwner map[string][]domain.Task
	panicOn string
}

func (m *memTasks) FindByOwner(_ context.Context, ownerID string) ([]domain.Task, error) {
	if ownerID == m.panicOn {
		panic("corrupt row")
	}
	return m.byOwner[ownerID], nil
}

func (m *memTasks) FindByOwnerAndDueDateBetween(ctx context.Context, ownerID string, start, end domain.Date) ([]domain.Task, error) {
	all, err := m.FindByOwner(ctx, ownerID)
	var out []domain.Task
	for _, t := range all {
		if t.DueDate != nil && t.DueDate.Between(start, end) {
			out = append(out, t)
		}
	}
	return out, err
}

var passNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func newTestNotifier(t *testing.T, users []domain.User, tasks *memTasks, m Mailer) *Notifier {
	return New(&memUsers{users: users}, tasks, NewDispatcher(m, zaptest.NewLogger(t)), Options{
		Renderer: testRenderer,
		Location: time.UTC,
		Now:      func() time.Time { return passNow },
	}, zaptest.NewLogger(t))
}

func TestPassContinuesPastFailingUsers(t *testing.T) {
	today := domain.DateOf(passNow)
	tomorrow := today.AddDays(1)
	users := []domain.User{
		userWithEmail("panics", "p@example.com"),
		userWithEmail("broken", "broken@example.com"),
		userWithEmail("alice", "alice@example.com"),
		userWithEmail("idle", "idle@example.com"),
	}
	tasks := &memTasks{
		panicOn: "panics",
		byOwner: map[string][]domain.Task{
			"broken": {{Title: "X", Status: domain.StatusPending, Priority: domain.PriorityLow, DueDate: &tomorrow}},
			"alice":  {{Title: "Pay rent", Status: domain.StatusPending, Priority: domain.PriorityHigh, DueDate: &tomorrow}},
		},
	}
	m := &fakeMailer{failFor: map[string]bool{"broken@example.com": true}}
	n := newTestNotifier(t, users, tasks, m)

	rep := n.RunDueSoon(context.Background(), passNow)
	assert.Equal(t, JobDueSoon, rep.Job)
	assert.Equal(t, 4, rep.Users)
	assert.Equal(t, 1, rep.Errors)
	assert.Equal(t, 1, rep.SendFailed)
	assert.Equal(t, 1, rep.Sent)
	assert.Equal(t, 1, rep.Skipped)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "alice@example.com", m.sent[0].To)
	assert.Contains(t, m.sent[0].Body, "Pay rent")
	assert.Contains(t, m.sent[0].Body, "HIGH")
}

func TestWeeklySkipsUsersWithoutTasks(t *testing.T) {
	users := []domain.User{userWithEmail("alice", "alice@example.com"), userWithEmail("empty", "e@example.com")}
	tasks := &memTasks{byOwner: map[string][]domain.Task{
		"alice": {
			{Title: "a", Status: domain.StatusDone},
			{Title: "b", Status: domain.StatusPending},
			{Title: "c", Status: domain.StatusPending},
		},
	}}
	m := &fakeMailer{}
	n := newTestNotifier(t, users, tasks, m)

	rep := n.SendWeeklyNow(context.Background())
	assert.Equal(t, 1, rep.Sent)
	assert.Equal(t, 1, rep.Skipped)
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].Body, "Completion Rate: 33%")
}

func TestOverdueRerunResends(t *testing.T) {
	old := domain.DateOf(passNow).AddDays(-5)
	users := []domain.User{userWithEmail("alice", "alice@example.com")}
	tasks := &memTasks{byOwner: map[string][]domain.Task{
		"alice": {{Title: "Old bill", Status: domain.StatusPending, Priority: domain.PriorityMedium, DueDate: &old}},
	}}
	m := &fakeMailer{}
	n := newTestNotifier(t, users, tasks, m)

	for i := 0; i < 2; i++ {
		rep, err := n.Run(context.Background(), JobOverdue, passNow)
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Notified())
	}
	require.Len(t, m.sent, 2)
	assert.True(t, strings.Contains(m.sent[1].Body, "5 days overdue"))

	_, err := n.Run(context.Background(), "monthly", passNow)
	assert.Error(t, err)
}

func TestParallelWorkers(t *testing.T) {
	tomorrow := domain.DateOf(passNow).AddDays(1)
	var users []domain.User
	byOwner := map[string][]domain.Task{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		users = append(users, userWithEmail(name, ""))
		byOwner[name] = []domain.Task{{Title: "t-" + name, Status: domain.StatusPending, DueDate: &tomorrow}}
	}
	n := New(&memUsers{users: users}, &memTasks{byOwner: byOwner}, NewDispatcher(nil, zaptest.NewLogger(t)), Options{
		Renderer: testRenderer, Location: time.UTC, Workers: 3,
	}, zaptest.NewLogger(t))

	rep := n.RunDueSoon(context.Background(), passNow)
	assert.Equal(t, 5, rep.Logged)
	assert.Equal(t, 0, rep.Errors)
}
