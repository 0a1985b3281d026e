package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"tasktracker/internal/domain"
)

// Message 一条渲染好的通知
type Message struct {
	Subject string
	Body    string
}

var funcs = template.FuncMap{
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}

var (
	dueSoonTmpl = template.Must(template.New("due_soon").Funcs(funcs).Parse(
		`Tasks due soon:
{{range .Tasks}}- {{.Title}} ({{.Due}}) [{{.Priority}}]
{{end}}`))

	overdueTmpl = template.Must(template.New("overdue").Funcs(funcs).Parse(
		`OVERDUE TASKS ALERT!

You have {{.Count}} overdue {{plural .Count "task" "tasks"}}:

{{range .Tasks}}* {{.Title}}
   Due: {{.Due}} ({{.Days}} {{plural .Days "day" "days"}} overdue)
   Priority: {{.Priority}}

{{end}}Please complete {{plural .Count "this task" "these tasks"}} as soon as possible!

Login to {{.App}}: {{.BaseURL}}
`))

	weeklyTmpl = template.Must(template.New("weekly").Funcs(funcs).Parse(
		`WEEKLY TASK SUMMARY

Hello {{.Username}}!

Here's your weekly task summary:

Total Tasks: {{.Total}}
Completed: {{.Done}}
Pending: {{.Pending}}
Completion Rate: {{.Rate}}%

{{.Encouragement}}

Stay productive!
Login to {{.App}}: {{.BaseURL}}
`))

	welcomeTmpl = template.Must(template.New("welcome").Funcs(funcs).Parse(
		`Hello {{.Username}}!

Welcome to {{.App}}, your personal task management hub.

{{.App}} will help you:
- organize your tasks
- set priorities and due dates
- group work into categories
- get reminders for tasks due soon or overdue
- track your progress with a weekly summary

Getting started:
1. Log in: {{.BaseURL}}
2. Create your first task
3. Set up categories
4. Add an email address to your profile to receive reminders

Happy task tracking!
- The {{.App}} Team
`))

	testTmpl = template.Must(template.New("test").Funcs(funcs).Parse(
		`Hello {{.Username}}!

This is a test notification from {{.App}}.

You will receive notifications for:
- Tasks due today or tomorrow
- Overdue tasks
- Weekly task summaries

Happy task tracking!
- The {{.App}} Team
`))
)

// Renderer 填充固定模板
type Renderer struct {
	App     string
	BaseURL string
}

type taskLine struct {
	Title    string
	Due      string
	Priority domain.Priority
	Days     int
}

func line(t domain.Task) taskLine {
	l := taskLine{Title: t.Title, Priority: t.Priority}
	if t.DueDate != nil {
		l.Due = t.DueDate.String()
	}
	return l
}

func (r Renderer) DueSoon(tasks []domain.Task) (Message, error) {
	lines := make([]taskLine, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, line(t))
	}
	body, err := execute(dueSoonTmpl, map[string]any{"Tasks": lines})
	return Message{Subject: "Task reminders", Body: body}, err
}

func (r Renderer) Overdue(items []OverdueTask) (Message, error) {
	lines := make([]taskLine, 0, len(items))
	for _, it := range items {
		l := line(it.Task)
		l.Days = it.DaysOverdue
		lines = append(lines, l)
	}
	body, err := execute(overdueTmpl, map[string]any{
		"Count": len(items), "Tasks": lines, "App": r.App, "BaseURL": r.BaseURL,
	})
	return Message{Subject: r.App + " - Overdue Tasks Alert", Body: body}, err
}

func (r Renderer) Weekly(u domain.User, s Summary) (Message, error) {
	body, err := execute(weeklyTmpl, map[string]any{
		"Username":      u.Username,
		"Total":         s.Total,
		"Done":          s.Done,
		"Pending":       s.Pending,
		"Rate":          s.CompletionRate,
		"Encouragement": Encouragement(s.CompletionRate),
		"App":           r.App,
		"BaseURL":       r.BaseURL,
	})
	return Message{Subject: r.App + " - Weekly Summary", Body: body}, err
}

func (r Renderer) Welcome(u domain.User) (Message, error) {
	body, err := execute(welcomeTmpl, map[string]any{"Username": u.Username, "App": r.App, "BaseURL": r.BaseURL})
	return Message{Subject: "Welcome to " + r.App + "!", Body: body}, err
}

func (r Renderer) Test(u domain.User) (Message, error) {
	body, err := execute(testTmpl, map[string]any{"Username": u.Username, "App": r.App})
	return Message{Subject: r.App + " - Test Notification", Body: body}, err
}

// Encouragement 周报鼓励语分档：>=80、>=60、其余
func Encouragement(rate int) string {
	switch {
	case rate >= 80:
		return "Excellent work! You're very productive!"
	case rate >= 60:
		return "Good progress! Keep it up!"
	default:
		return "Let's focus on completing more tasks this week!"
	}
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
