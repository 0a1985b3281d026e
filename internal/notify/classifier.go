// Package notify 把用户的任务列表变成提醒消息，经可选的邮件通道投递，没有通道时写日志
package notify

import (
	"time"

	"tasktracker/internal/domain"
)

// DueSoonWindowDays 今天之后多少天内到期算“即将到期”
const DueSoonWindowDays = 1

type OverdueTask struct {
	Task        domain.Task
	DaysOverdue int
}

type Summary struct {
	Total   int
	Done    int
	Pending int
	// CompletionRate = floor(Done*100/Total)，没有任务时为 0
	CompletionRate int
}

type Buckets struct {
	DueSoon []domain.Task
	Overdue []OverdueTask
	Summary Summary
}

// Today now 在 loc 时区下的日期
func Today(now time.Time, loc *time.Location) domain.Date {
	if loc == nil {
		loc = time.Local
	}
	return domain.DateOf(now.In(loc))
}

func Classify(today domain.Date, tasks []domain.Task) Buckets {
	return Buckets{
		DueSoon: DueSoon(today, tasks),
		Overdue: Overdue(today, tasks),
		Summary: Summarize(tasks),
	}
}

// DueSoon 未完成且到期日在 [today, today+DueSoonWindowDays] 内
func DueSoon(today domain.Date, tasks []domain.Task) []domain.Task {
	last := today.AddDays(DueSoonWindowDays)
	var out []domain.Task
	for _, t := range tasks {
		if t.IsDone() || t.DueDate == nil {
			continue
		}
		if t.DueDate.Between(today, last) {
			out = append(out, t)
		}
	}
	return out
}

// Overdue 未完成且到期日早于今天
func Overdue(today domain.Date, tasks []domain.Task) []OverdueTask {
	var out []OverdueTask
	for _, t := range tasks {
		if t.IsDone() || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(today) {
			out = append(out, OverdueTask{Task: t, DaysOverdue: t.DueDate.DaysUntil(today)})
		}
	}
	return out
}

func Summarize(tasks []domain.Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.IsDone() {
			s.Done++
		}
	}
	s.Pending = s.Total - s.Done
	if s.Total > 0 {
		s.CompletionRate = s.Done * 100 / s.Total
	}
	return s
}
