package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/domain"
)

var testRenderer = Renderer{App: "TaskTracker", BaseURL: "http://localhost:8080"}

func TestRenderDueSoon(t *testing.T) {
	due := domain.NewDate(2026, 10, 19)
	msg, err := testRenderer.DueSoon([]domain.Task{
		{Title: "Pay rent", Priority: domain.PriorityHigh, DueDate: &due},
	})
	require.NoError(t, err)
	assert.Equal(t, "Task reminders", msg.Subject)
	assert.Contains(t, msg.Body, "- Pay rent (2026-10-19) [HIGH]")
}

func TestRenderOverduePluralizes(t *testing.T) {
	due := domain.NewDate(2026, 10, 13)
	one, err := testRenderer.Overdue([]OverdueTask{
		{Task: domain.Task{Title: "Old bill", Priority: domain.PriorityLow, DueDate: &due}, DaysOverdue: 5},
	})
	require.NoError(t, err)
	assert.Contains(t, one.Body, "You have 1 overdue task:")
	assert.Contains(t, one.Body, "Due: 2026-10-13 (5 days overdue)")
	assert.Contains(t, one.Body, "Please complete this task")

	two, err := testRenderer.Overdue([]OverdueTask{
		{Task: domain.Task{Title: "A", DueDate: &due}, DaysOverdue: 1},
		{Task: domain.Task{Title: "B", DueDate: &due}, DaysOverdue: 2},
	})
	require.NoError(t, err)
	assert.Contains(t, two.Body, "You have 2 overdue tasks:")
	assert.Contains(t, two.Body, "(1 day overdue)")
	assert.Contains(t, two.Body, "these tasks")
}

func TestRenderWeeklyTiers(t *testing.T) {
	u := domain.User{Username: "alice"}
	cases := []struct {
		rate int
		want string
	}{
		{80, "Excellent work!"},
		{79, "Good progress!"},
		{60, "Good progress!"},
		{59, "Let's focus"},
		{0, "Let's focus"},
	}
	for _, tc := range cases {
		msg, err := testRenderer.Weekly(u, Summary{Total: 10, Done: 5, Pending: 5, CompletionRate: tc.rate})
		require.NoError(t, err)
		assert.Contains(t, msg.Body, tc.want, "rate %d", tc.rate)
	}

	msg, err := testRenderer.Weekly(u, Summary{Total: 3, Done: 1, Pending: 2, CompletionRate: 33})
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Hello alice!")
	assert.Contains(t, msg.Body, "Total Tasks: 3")
	assert.Contains(t, msg.Body, "Completed: 1")
	assert.Contains(t, msg.Body, "Pending: 2")
	assert.Contains(t, msg.Body, "Completion Rate: 33%")
}

func TestRenderWelcomeAndTest(t *testing.T) {
	u := domain.User{Username: "bob"}
	w, err := testRenderer.Welcome(u)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to TaskTracker!", w.Subject)
	assert.Contains(t, w.Body, "Hello bob!")

	tm, err := testRenderer.Test(u)
	require.NoError(t, err)
	assert.Contains(t, tm.Subject, "Test Notification")
}
