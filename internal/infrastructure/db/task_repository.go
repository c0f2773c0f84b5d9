package db

import (
	"context"
	"errors"

	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/domain"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{
		db:  db,
		log: log,
	}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.TaskRecord) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("task_repo_create_failed", "id", task.ID, "action", task.Action, "error", err)
		return err
	}
	r.log.Debugw("task_repo_create_ok", "id", task.ID, "action", task.Action)
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.TaskRecord, error) {
	var task domain.TaskRecord
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrTaskNotFound
		}
		r.log.Errorw("task_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetAll(ctx context.Context, limit int) ([]domain.TaskRecord, error) {
	var tasks []domain.TaskRecord
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Debugw("task_repo_list_ok", "count", len(tasks))
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.TaskRecord) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		r.log.Errorw("task_repo_update_failed", "id", task.ID, "error", err)
		return err
	}
	r.log.Debugw("task_repo_update_ok", "id", task.ID, "status", task.Status)
	return nil
}
