package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tasktracker/internal/domain"
)

const (
	JobDueSoon = "due-soon"
	JobOverdue = "overdue"
	JobWeekly  = "weekly-summary"
)

// Report 一次任务遍历全部用户的汇总
type Report struct {
	Job        string        `json:"job"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Users      int           `json:"users"`
	Skipped    int           `json:"skipped"`
	Sent       int           `json:"sent"`
	Logged     int           `json:"logged"`
	SendFailed int           `json:"sendFailed"`
	Unknown    int           `json:"unknown"`
	Errors     int           `json:"errors"`
	Err        string        `json:"error,omitempty"`
}

// Notified 渲染并投递了消息的用户数
func (r Report) Notified() int { return r.Sent + r.Logged + r.SendFailed + r.Unknown }

type Options struct {
	Renderer Renderer
	Location *time.Location
	// Workers 同时处理的用户数上限，1 = 串行
	Workers int
	Now     func() time.Time
}

// Notifier 执行即将到期 / 逾期 / 周报三类任务。
// 两轮之间不记状态：仍满足条件的任务下一轮会再次提醒
type Notifier struct {
	users    domain.UserRepository
	tasks    domain.TaskRepository
	dispatch *Dispatcher
	render   Renderer
	loc      *time.Location
	workers  int
	now      func() time.Time
	log      *zap.Logger
}

func New(users domain.UserRepository, tasks domain.TaskRepository, d *Dispatcher, opts Options, log *zap.Logger) *Notifier {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Notifier{
		users:    users,
		tasks:    tasks,
		dispatch: d,
		render:   opts.Renderer,
		loc:      opts.Location,
		workers:  opts.Workers,
		now:      opts.Now,
		log:      log.Named("notifier"),
	}
}

func (n *Notifier) MailEnabled() bool { return n.dispatch.MailEnabled() }

// Now 通知器使用的时钟
func (n *Notifier) Now() time.Time { return n.now() }

// builder 为单个用户渲染消息；返回 nil 表示跳过
type builder func(ctx context.Context, u domain.User, today domain.Date) (*Message, error)

func (n *Notifier) RunDueSoon(ctx context.Context, now time.Time) Report {
	return n.pass(ctx, JobDueSoon, now, func(ctx context.Context, u domain.User, today domain.Date) (*Message, error) {
		tasks, err := n.tasks.FindByOwnerAndDueDateBetween(ctx, u.ID, today, today.AddDays(DueSoonWindowDays))
		if err != nil {
			return nil, err
		}
		due := DueSoon(today, tasks)
		if len(due) == 0 {
			return nil, nil
		}
		msg, err := n.render.DueSoon(due)
		return &msg, err
	})
}

func (n *Notifier) RunOverdue(ctx context.Context, now time.Time) Report {
	return n.pass(ctx, JobOverdue, now, func(ctx context.Context, u domain.User, today domain.Date) (*Message, error) {
		tasks, err := n.tasks.FindByOwner(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		overdue := Overdue(today, tasks)
		if len(overdue) == 0 {
			return nil, nil
		}
		msg, err := n.render.Overdue(overdue)
		return &msg, err
	})
}

func (n *Notifier) RunWeekly(ctx context.Context, now time.Time) Report {
	return n.pass(ctx, JobWeekly, now, func(ctx context.Context, u domain.User, _ domain.Date) (*Message, error) {
		tasks, err := n.tasks.FindByOwner(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		s := Summarize(tasks)
		if s.Total == 0 {
			return nil, nil
		}
		msg, err := n.render.Weekly(u, s)
		return &msg, err
	})
}

// Run 按名字分派任务
func (n *Notifier) Run(ctx context.Context, job string, now time.Time) (Report, error) {
	switch job {
	case JobDueSoon:
		return n.RunDueSoon(ctx, now), nil
	case JobOverdue:
		return n.RunOverdue(ctx, now), nil
	case JobWeekly:
		return n.RunWeekly(ctx, now), nil
	}
	return Report{}, fmt.Errorf("unknown notification job %q", job)
}

func (n *Notifier) SendDueSoonNow(ctx context.Context) Report { return n.RunDueSoon(ctx, n.now()) }
func (n *Notifier) SendOverdueNow(ctx context.Context) Report { return n.RunOverdue(ctx, n.now()) }
func (n *Notifier) SendWeeklyNow(ctx context.Context) Report  { return n.RunWeekly(ctx, n.now()) }

func (n *Notifier) SendTest(ctx context.Context, u domain.User) Outcome {
	msg, err := n.render.Test(u)
	if err != nil {
		n.log.Error("render test notification", zap.Error(err))
		return OutcomeFailed
	}
	return n.dispatch.Deliver(ctx, u, msg)
}

// SendWelcome 尽力而为，失败只记日志
func (n *Notifier) SendWelcome(ctx context.Context, u domain.User) {
	msg, err := n.render.Welcome(u)
	if err != nil {
		n.log.Error("render welcome notification", zap.Error(err))
		return
	}
	n.dispatch.Deliver(ctx, u, msg)
}

func (n *Notifier) pass(ctx context.Context, job string, now time.Time, build builder) Report {
	rep := Report{Job: job, StartedAt: now}
	start := time.Now()
	defer func() {
		passDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	}()

	users, err := n.users.FindAll(ctx)
	if err != nil {
		n.log.Error("list users", zap.String("job", job), zap.Error(err))
		rep.Err = err.Error()
		rep.Duration = time.Since(start)
		return rep
	}
	rep.Users = len(users)
	today := Today(now, n.loc)

	var mu sync.Mutex
	record := func(result string) {
		mu.Lock()
		defer mu.Unlock()
		switch result {
		case "skipped":
			rep.Skipped++
		case "error":
			rep.Errors++
		case string(OutcomeSent):
			rep.Sent++
		case string(OutcomeLogged):
			rep.Logged++
		case string(OutcomeFailed):
			rep.SendFailed++
		case string(OutcomeUnknown):
			rep.Unknown++
		}
		notificationsTotal.WithLabelValues(job, result).Inc()
	}

	var g errgroup.Group
	g.SetLimit(n.workers)
	for _, u := range users {
		if ctx.Err() != nil {
			n.log.Warn("pass cancelled", zap.String("job", job), zap.Error(ctx.Err()))
			break
		}
		g.Go(func() error {
			record(n.processUser(ctx, job, u, today, build))
			return nil
		})
	}
	_ = g.Wait()

	rep.Duration = time.Since(start)
	n.log.Info("notification pass done",
		zap.String("job", job),
		zap.String("today", today.String()),
		zap.Int("users", rep.Users),
		zap.Int("notified", rep.Notified()),
		zap.Int("skipped", rep.Skipped),
		zap.Int("errors", rep.Errors),
		zap.Duration("took", rep.Duration),
	)
	return rep
}

// processUser 单用户隔离：出错或 panic 只记日志，继续下一个用户
func (n *Notifier) processUser(ctx context.Context, job string, u domain.User, today domain.Date, build builder) (result string) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("notification panic", zap.String("job", job), zap.String("username", u.Username), zap.Any("panic", r))
			result = "error"
		}
	}()
	msg, err := build(ctx, u, today)
	if err != nil {
		n.log.Error("notification build failed", zap.String("job", job), zap.String("username", u.Username), zap.Error(err))
		return "error"
	}
	if msg == nil {
		return "skipped"
	}
	return string(n.dispatch.Deliver(ctx, u, *msg))
}
