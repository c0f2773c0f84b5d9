package ports

import (
	"context"

	"github.com/tracecmd/backend/internal/domain"
)

// Logger is the structured logging surface the core depends on.
// *logger.Logger satisfies it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// FileManager checks and removes output artifacts
type FileManager interface {
	FileExist(path string) (bool, error)
	DeleteFile(path string) error
}

// Listener receives the notification published when a task starts
type Listener interface {
	Notify(n domain.Notification)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(n domain.Notification)

func (f ListenerFunc) Notify(n domain.Notification) { f(n) }

// ProgressIndicator is shown while a task runs and dismissed on completion
type ProgressIndicator interface {
	Show(title string)
	Dismiss()
}

// Display shows the terminal message or classified error of a finished task
type Display interface {
	ShowMessage(msg string)
	ShowError(code *domain.ErrorCode, msg string)
}

// PostCompletionHook re-synchronizes dependent state after the work ran.
// Errors are logged by the runner and never fail the task.
type PostCompletionHook interface {
	Refresh(ctx context.Context) error
}

// TraceExecutor performs the collection or analysis described by an accepted command
type TraceExecutor interface {
	Execute(ctx context.Context, cmd *domain.CommandDescriptor) error
}
