package ports

import (
	"context"

	"github.com/tracecmd/backend/internal/domain"
)

// CommandService validates descriptors and supervises their execution
type CommandService interface {
	Validate(ctx context.Context, cmd *domain.CommandDescriptor) *domain.ErrorCode
	Submit(ctx context.Context, cmd *domain.CommandDescriptor, listeners ...Listener) (*domain.TaskRecord, *domain.ErrorCode, error)
	GetTask(ctx context.Context, id string) (*domain.TaskRecord, error)
	ListTasks(ctx context.Context, limit int) ([]domain.TaskRecord, error)
	CancelTask(ctx context.Context, id string) error
	WaitTask(ctx context.Context, id string) (*domain.TaskRecord, error)
}
