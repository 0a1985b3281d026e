// Package scheduler 按 cron 表达式（首位为秒）运行具名任务，也可指定时间手动触发
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tasktracker/internal/core/logger"
)

// JobFunc 任务体；now 为触发时间，由调用方注入
type JobFunc func(ctx context.Context, now time.Time)

var ErrUnknownJob = errors.New("unknown job")

type job struct {
	name string
	spec string // 为空 = 仅手动触发
	run  JobFunc
	id   cron.EntryID
}

type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
	log  *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(loc *time.Location, l *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	l = l.Named("scheduler")
	std, err := logger.ToStdLogger(l, zapcore.InfoLevel)
	cl := cron.DiscardLogger
	if err == nil {
		cl = cron.PrintfLogger(std)
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
		cron.WithLogger(cl),
		// 同一任务不重叠执行，不同任务可以并行
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: c, loc: loc, log: l, jobs: map[string]*job{}, ctx: ctx, cancel: cancel}
}

// Register 注册任务；spec 为空则只能手动触发
func (s *Scheduler) Register(name, spec string, run JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	j := &job{name: name, spec: spec, run: run}
	if spec != "" {
		id, err := s.cron.AddFunc(spec, func() { s.fire(j, time.Now().In(s.loc)) })
		if err != nil {
			return fmt.Errorf("job %q: bad spec %q: %w", name, spec, err)
		}
		j.id = id
	}
	s.jobs[name] = j
	s.log.Info("job registered", zap.String("job", name), zap.String("spec", orManual(spec)))
	return nil
}

// Trigger 在调用方 goroutine 里立即执行
func (s *Scheduler) Trigger(ctx context.Context, name string, now time.Time) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	j.run(ctx, now)
	return nil
}

// Next 下次执行时间；手动任务或 Start 之前为零值
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok || j.spec == "" {
		return time.Time{}
	}
	return s.cron.Entry(j.id).Next
}

type JobInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next,omitempty"`
}

func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		info := JobInfo{Name: j.name, Spec: orManual(j.spec)}
		if j.spec != "" {
			info.Next = s.cron.Entry(j.id).Next
		}
		out = append(out, info)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	// Stop 会取消旧的 ctx，每次启动都换新的
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)), zap.String("tz", s.loc.String()))
}

// Stop 停止新的触发，取消正在运行任务的 ctx，并等待其结束直到 ctx 超时
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler stop timeout exceeded")
		return ctx.Err()
	}
}

func (s *Scheduler) fire(j *job, now time.Time) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.log.Debug("job firing", zap.String("job", j.name), zap.Time("at", now))
	j.run(ctx, now)
}

func orManual(spec string) string {
	if spec == "" {
		return "manual"
	}
	return spec
}
