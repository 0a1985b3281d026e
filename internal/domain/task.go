package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusInProgress, StatusDone:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

type Task struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"size:2000" json:"description"`
	Status      Status    `gorm:"size:16;not null;index" json:"status"`
	Priority    Priority  `gorm:"size:8;not null" json:"priority"`
	DueDate     *Date     `gorm:"type:date;index" json:"dueDate"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
	OwnerID     string    `gorm:"size:36;not null;index" json:"ownerId"`
	CategoryID  *string   `gorm:"size:36;index" json:"categoryId"`
}

func (Task) TableName() string { return "tasks" }

func (t Task) IsDone() bool { return t.Status == StatusDone }

// TaskRepository 查不到时返回 (nil, nil)；Update 不写 owner_id 和 created_at
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	DeleteByID(ctx context.Context, id string) error
	FindByOwner(ctx context.Context, ownerID string) ([]Task, error)
	FindByOwnerAndStatus(ctx context.Context, ownerID string, status Status) ([]Task, error)
	// FindByOwnerAndDueDateBetween 两端都包含
	FindByOwnerAndDueDateBetween(ctx context.Context, ownerID string, start, end Date) ([]Task, error)
}
