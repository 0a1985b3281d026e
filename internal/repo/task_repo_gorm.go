package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tasktracker/internal/domain"
)

// 创建后允许修改的列
var taskMutableColumns = []string{"title", "description", "status", "priority", "due_date", "category_id", "updated_at"}

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

var _ domain.TaskRepository = (*TaskRepo)(nil)

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	res := r.db.WithContext(ctx).Model(t).Select(taskMutableColumns).Updates(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepo) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) DeleteByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepo) FindByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return r.find(r.db.WithContext(ctx).Where("owner_id = ?", ownerID))
}

func (r *TaskRepo) FindByOwnerAndStatus(ctx context.Context, ownerID string, status domain.Status) ([]domain.Task, error) {
	return r.find(r.db.WithContext(ctx).Where("owner_id = ? AND status = ?", ownerID, status))
}

func (r *TaskRepo) FindByOwnerAndDueDateBetween(ctx context.Context, ownerID string, start, end domain.Date) ([]domain.Task, error) {
	return r.find(r.db.WithContext(ctx).
		Where("owner_id = ? AND due_date IS NOT NULL AND due_date BETWEEN ? AND ?", ownerID, start, end))
}

func (r *TaskRepo) find(q *gorm.DB) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := q.Order("created_at asc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
