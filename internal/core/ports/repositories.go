package ports

import (
	"context"
	"time"

	"github.com/tracecmd/backend/internal/domain"
)

type TaskRepository interface {
	Create(ctx context.Context, task *domain.TaskRecord) error
	GetByID(ctx context.Context, id string) (*domain.TaskRecord, error)
	GetAll(ctx context.Context, limit int) ([]domain.TaskRecord, error)
	Update(ctx context.Context, task *domain.TaskRecord) error
}

type TimelineRepository interface {
	Create(ctx context.Context, event *domain.TimelineEvent) error
	GetByResource(ctx context.Context, resourceType string, resourceID string) ([]domain.TimelineEvent, error)
	GetAll(ctx context.Context, limit int) ([]domain.TimelineEvent, error)
	CleanupOld(ctx context.Context, olderThan time.Duration) error
}
