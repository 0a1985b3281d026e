// Package app 组装配置、存储、服务、通知器和调度器，产出两个 HTTP 引擎
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tasktracker/internal/core/auth"
	"tasktracker/internal/core/cache"
	"tasktracker/internal/core/config"
	"tasktracker/internal/core/database"
	"tasktracker/internal/core/logger"
	"tasktracker/internal/core/mail"
	"tasktracker/internal/notify"
	"tasktracker/internal/repo"
	"tasktracker/internal/scheduler"
	"tasktracker/internal/service"
	"tasktracker/internal/transport/http/handler"
	"tasktracker/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache // nil: redis 未配置

	JWT *auth.JWTer

	Users      *repo.UserRepo
	Tasks      *repo.TaskRepo
	Categories *repo.CategoryRepo

	Guard       *service.AccessGuard
	TaskSvc     *service.TaskService
	CategorySvc *service.CategoryService
	UserSvc     *service.UserService

	Notifier  *notify.Notifier
	Scheduler *scheduler.Scheduler

	registry *router.Registry
}

// NewLogger 按配置构建 logger；配了文件则写 lumberjack
func NewLogger(c config.Log) (*zap.Logger, func()) {
	if !c.File.Enable {
		return logger.New(c.Level, c.JSON)
	}
	return logger.NewWithRotate(c.Level, c.JSON, logger.FileRotate{
		Filename:   c.File.Filename,
		MaxSizeMB:  c.File.MaxSizeMB,
		MaxBackups: c.File.MaxBackups,
		MaxAgeDays: c.File.MaxAgeDays,
		Compress:   c.File.Compress,
	})
}

// New 打开数据库（按需迁移）、可选的 redis 和 SMTP，再组装全部依赖
func New(cfg *config.Config, l *zap.Logger) (*App, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db, repo.Models()...); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.Ping(ctx); err != nil {
			// 不可用时缓存照样回源，只记录
			l.Warn("redis unreachable, category cache will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	// 注意：nil *SMTPMailer 不能直接赋给接口
	var mailer notify.Mailer
	if m := mail.NewSMTP(cfg.Mail); m != nil {
		mailer = m
		l.Info("mail channel enabled", zap.String("host", cfg.Mail.Host))
	} else {
		l.Info("mail channel disabled, notifications go to the log")
	}

	return Build(cfg, l, db, c, mailer, nil)
}

// Build 用已有的 db / cache / mailer 组装；now 为 nil 时用 time.Now
func Build(cfg *config.Config, l *zap.Logger, db *gorm.DB, c *cache.Cache, mailer notify.Mailer, now func() time.Time) (*App, error) {
	a := &App{Cfg: cfg, Log: l, DB: db, Cache: c}
	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	a.Users = repo.NewUserRepo(db)
	a.Tasks = repo.NewTaskRepo(db)
	a.Categories = repo.NewCategoryRepo(db)

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	a.Notifier = notify.New(a.Users, a.Tasks, notify.NewDispatcher(mailer, l), notify.Options{
		Renderer: notify.Renderer{App: cfg.App.Name, BaseURL: cfg.App.BaseURL},
		Location: loc,
		Workers:  cfg.Scheduler.Workers,
		Now:      now,
	}, l)

	a.Guard = service.NewAccessGuard(a.Users, a.Tasks)
	a.TaskSvc = service.NewTaskService(a.Guard, a.Tasks, a.Categories, l)
	a.CategorySvc = service.NewCategoryService(a.Categories, c, time.Duration(cfg.Redis.TTLSec)*time.Second)
	a.UserSvc = service.NewUserService(a.Users, a.JWT, a.Notifier, l)

	a.Scheduler = scheduler.New(loc, l)
	jobs := []struct{ name, spec string }{
		{notify.JobDueSoon, cfg.Scheduler.DueSoonSpec},
		{notify.JobOverdue, cfg.Scheduler.OverdueSpec},
		{notify.JobWeekly, cfg.Scheduler.WeeklySpec},
	}
	for _, j := range jobs {
		if err := a.Scheduler.Register(j.name, j.spec, a.runJob(j.name)); err != nil {
			return nil, err
		}
	}

	a.registry = &router.Registry{}
	a.registry.Register(
		handler.NewAuthHandler(a.UserSvc),
		handler.NewTaskHandler(a.TaskSvc),
		handler.NewCategoryHandler(a.CategorySvc),
		handler.NewNotificationHandler(a.UserSvc, a.Notifier, a.Scheduler),
		handler.NewAdminHandler(a.UserSvc, a.Notifier),
	)
	return a, nil
}

// runJob 报告已在 notifier 里记日志和指标，这里丢弃
func (a *App) runJob(name string) scheduler.JobFunc {
	return func(ctx context.Context, now time.Time) {
		if _, err := a.Notifier.Run(ctx, name, now); err != nil {
			a.Log.Error("scheduled job", zap.String("job", name), zap.Error(err))
		}
	}
}

func (a *App) APIEngine() *gin.Engine {
	return router.NewAPIEngine(a.Log, a.JWT, a.Cfg.App.HTTP.Metrics, a.registry)
}

func (a *App) AdminEngine() *gin.Engine {
	return router.NewAdminEngine(a.Log, a.JWT, a.Cfg.App.Admin.RequireRole, a.registry)
}

// Close 停调度器、关 redis 和数据库连接
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
