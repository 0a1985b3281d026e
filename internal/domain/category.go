package domain

import (
	"context"
	"time"
)

type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Category) TableName() string { return "categories" }

type CategoryRepository interface {
	Save(ctx context.Context, c *Category) error
	FindByID(ctx context.Context, id string) (*Category, error)
	FindAll(ctx context.Context) ([]Category, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	// Delete 删除分类，并把引用它的任务的分类置空
	Delete(ctx context.Context, id string) error
}
