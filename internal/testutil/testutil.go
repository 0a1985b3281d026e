// Package testutil 测试共用：已迁移的内存 sqlite 和少量造数函数
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tasktracker/internal/core/config"
	"tasktracker/internal/core/database"
	"tasktracker/internal/domain"
	"tasktracker/internal/repo"
	"tasktracker/pkg/utils"
)

var dbSeq atomic.Int64

// NewDB 每次调用新开一个 shared-cache 内存库并完成迁移
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:tasktracker_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
		// 保持连接，内存库才不会被释放
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, repo.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Config 测试组装 app 用的最小配置
func Config() *config.Config {
	return &config.Config{
		App: config.App{Name: "TaskTracker", BaseURL: "http://localhost:8080", HTTP: config.HTTP{Metrics: true}},
		JWT: config.JWT{Secret: "test-secret", Issuer: "tasktracker", AccessTokenTTLMin: 60},
		DB:  config.DB{Driver: "sqlite"},
		Scheduler: config.Scheduler{
			Timezone: "UTC",
			Workers:  1,
		},
	}
}

// Clock 固定时钟
func Clock(t time.Time) func() time.Time { return func() time.Time { return t } }

// Day 构造日期
func Day(y int, m time.Month, d int) domain.Date { return domain.NewDate(y, m, d) }

// CreateUser 密码为 "secret"，email 可为空
func CreateUser(t testing.TB, db *gorm.DB, username, email string) *domain.User {
	t.Helper()
	hash, err := utils.HashPassword("secret")
	require.NoError(t, err)
	u := &domain.User{ID: utils.NewID(), Username: username, PasswordHash: hash, Role: domain.RoleUser}
	if email != "" {
		u.Email = &email
	}
	require.NoError(t, repo.NewUserRepo(db).Create(context.Background(), u))
	return u
}

// CreateTask due 可为 nil
func CreateTask(t testing.TB, db *gorm.DB, owner *domain.User, title string, status domain.Status, priority domain.Priority, due *domain.Date) *domain.Task {
	t.Helper()
	tk := &domain.Task{
		ID:       utils.NewID(),
		Title:    title,
		Status:   status,
		Priority: priority,
		DueDate:  due,
		OwnerID:  owner.ID,
	}
	require.NoError(t, repo.NewTaskRepo(db).Create(context.Background(), tk))
	return tk
}

// CreateCategory 新建分类
func CreateCategory(t testing.TB, db *gorm.DB, name string) *domain.Category {
	t.Helper()
	c := &domain.Category{ID: utils.NewID(), Name: name}
	require.NoError(t, repo.NewCategoryRepo(db).Save(context.Background(), c))
	return c
}

// DatePtr 可选到期日
func DatePtr(d domain.Date) *domain.Date { return &d }
