package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tasktracker/internal/domain"
	"tasktracker/pkg/utils"
)

// TaskInput 调用方提交的任务字段，空串表示未提供；
// Description 用指针：更新时空描述也是有效值
type TaskInput struct {
	Title       string
	Description *string
	Priority    string
	Status      string
	DueDate     string // YYYY-MM-DD
	CategoryID  string
}

type TaskService struct {
	guard      *AccessGuard
	tasks      domain.TaskRepository
	categories domain.CategoryRepository
	log        *zap.Logger
}

func NewTaskService(guard *AccessGuard, tasks domain.TaskRepository, categories domain.CategoryRepository, log *zap.Logger) *TaskService {
	return &TaskService{guard: guard, tasks: tasks, categories: categories, log: log.Named("task_service")}
}

func (s *TaskService) Create(ctx context.Context, username string, in TaskInput) (*domain.Task, error) {
	owner, err := s.guard.Principal(ctx, username)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationf("task title is required")
	}

	t := &domain.Task{
		ID:       utils.NewID(),
		Title:    title,
		OwnerID:  owner.ID,
		Priority: domain.PriorityMedium,
		Status:   domain.StatusPending,
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if err := s.apply(ctx, t, in); err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.Debug("task created", zap.String("task_id", t.ID), zap.String("owner", username))
	return t, nil
}

// Update 只覆盖提供了的字段：标题等文本字段为空则忽略，description 非 nil 总是覆盖
func (s *TaskService) Update(ctx context.Context, username, taskID string, in TaskInput) (*domain.Task, error) {
	t, err := s.guard.RequireOwnership(ctx, username, taskID)
	if err != nil {
		return nil, err
	}
	next := *t
	if title := strings.TrimSpace(in.Title); title != "" {
		next.Title = title
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if err := s.apply(ctx, &next, in); err != nil {
		return nil, err
	}
	if err := s.tasks.Update(ctx, &next); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &next, nil
}

func (s *TaskService) Delete(ctx context.Context, username, taskID string) error {
	if _, err := s.guard.RequireOwnership(ctx, username, taskID); err != nil {
		return err
	}
	if err := s.tasks.DeleteByID(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.log.Debug("task deleted", zap.String("task_id", taskID), zap.String("owner", username))
	return nil
}

func (s *TaskService) Get(ctx context.Context, username, taskID string) (*domain.Task, error) {
	return s.guard.RequireOwnership(ctx, username, taskID)
}

func (s *TaskService) ListByOwner(ctx context.Context, username string) ([]domain.Task, error) {
	owner, err := s.guard.Principal(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tasks.FindByOwner(ctx, owner.ID)
}

func (s *TaskService) ListByOwnerAndStatus(ctx context.Context, username, status string) ([]domain.Task, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, validationf("%v", err)
	}
	owner, err := s.guard.Principal(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tasks.FindByOwnerAndStatus(ctx, owner.ID, st)
}

// ListByOwnerAndDueDateRange 两端都包含
func (s *TaskService) ListByOwnerAndDueDateRange(ctx context.Context, username string, start, end domain.Date) ([]domain.Task, error) {
	if start.IsZero() || end.IsZero() {
		return nil, validationf("both range dates are required")
	}
	if end.Before(start) {
		return nil, validationf("range end %s is before start %s", end, start)
	}
	owner, err := s.guard.Principal(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.tasks.FindByOwnerAndDueDateBetween(ctx, owner.ID, start, end)
}

// apply 校验可选的枚举/日期/分类字段并写入 t；任一字段非法则什么都不写
func (s *TaskService) apply(ctx context.Context, t *domain.Task, in TaskInput) error {
	next := *t
	if strings.TrimSpace(in.Priority) != "" {
		p, err := domain.ParsePriority(in.Priority)
		if err != nil {
			return validationf("%v", err)
		}
		next.Priority = p
	}
	if strings.TrimSpace(in.Status) != "" {
		st, err := domain.ParseStatus(in.Status)
		if err != nil {
			return validationf("%v", err)
		}
		next.Status = st
	}
	if strings.TrimSpace(in.DueDate) != "" {
		d, err := domain.ParseDate(in.DueDate)
		if err != nil {
			return validationf("invalid date format, use YYYY-MM-DD")
		}
		next.DueDate = &d
	}
	if id := strings.TrimSpace(in.CategoryID); id != "" {
		ok, err := s.categories.ExistsByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find category %q: %w", id, err)
		}
		if !ok {
			return ErrCategoryNotFound
		}
		next.CategoryID = &id
	}
	*t = next
	return nil
}
