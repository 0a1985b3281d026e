package service

import (
	"context"
	"fmt"

	"tasktracker/internal/domain"
)

// AccessGuard 判断当前用户能否查看/修改任务。
// 单条任务操作都经过 RequireOwnership；列表查询在存储层按 owner 过滤
type AccessGuard struct {
	users domain.UserRepository
	tasks domain.TaskRepository
}

func NewAccessGuard(users domain.UserRepository, tasks domain.TaskRepository) *AccessGuard {
	return &AccessGuard{users: users, tasks: tasks}
}

// Principal 把已认证的用户名解析成用户
func (g *AccessGuard) Principal(ctx context.Context, username string) (*domain.User, error) {
	u, err := g.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// RequireOwnership 任务属于 username 时返回任务；
// 属于别人时返回 ErrForbidden（同时也是 ErrTaskNotFound）
func (g *AccessGuard) RequireOwnership(ctx context.Context, username, taskID string) (*domain.Task, error) {
	u, err := g.Principal(ctx, username)
	if err != nil {
		return nil, err
	}
	return g.requireOwnedBy(ctx, u, taskID)
}

func (g *AccessGuard) CanAccess(ctx context.Context, username, taskID string) bool {
	_, err := g.RequireOwnership(ctx, username, taskID)
	return err == nil
}

func (g *AccessGuard) requireOwnedBy(ctx context.Context, u *domain.User, taskID string) (*domain.Task, error) {
	t, err := g.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("find task %q: %w", taskID, err)
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	if t.OwnerID != u.ID {
		return nil, ErrForbidden
	}
	return t, nil
}
