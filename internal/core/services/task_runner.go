package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/domain"
)

// Work is the unit executed by a task. It should return promptly once ctx is cancelled.
type Work func(ctx context.Context) error

// HostDiagnostics reports host memory pressure for task diagnostics
type HostDiagnostics interface {
	MemoryUsedPercent() (float64, error)
}

// SubmitOptions configures one task. Every collaborator is optional.
type SubmitOptions struct {
	ID            string
	Listeners     []ports.Listener
	Notification  *domain.Notification
	Progress      ports.ProgressIndicator
	ProgressTitle string
	Display       ports.Display
	Hook          ports.PostCompletionHook
	// Message is shown through Display once the task finishes, whatever the outcome.
	Message string
	// OnComplete runs last during completion, before Wait returns.
	OnComplete func(h *TaskHandle, res TaskResult)
}

// TaskResult is the resolved outcome of a finished task
type TaskResult struct {
	Status  domain.TaskStatus
	Code    *domain.ErrorCode
	Err     error
	Elapsed time.Duration
}

// TaskHandle is one in-flight background execution. The listener references
// are written only by Submit, before the worker starts, and by completion on
// the worker goroutine.
type TaskHandle struct {
	id        string
	startedAt time.Time

	listeners []ports.Listener
	progress  ports.ProgressIndicator
	display   ports.Display
	hook      ports.PostCompletionHook
	message   string
	onDone    func(h *TaskHandle, res TaskResult)

	ctx    context.Context
	cancel context.CancelFunc

	status atomic.Value
	once   sync.Once
	done   chan struct{}
	result TaskResult
}

func (h *TaskHandle) ID() string { return h.id }

func (h *TaskHandle) StartedAt() time.Time { return h.startedAt }

// Status is safe to call from any goroutine
func (h *TaskHandle) Status() domain.TaskStatus {
	return h.status.Load().(domain.TaskStatus)
}

// Done is closed once completion has finished
func (h *TaskHandle) Done() <-chan struct{} { return h.done }

// Cancel interrupts the work. It has no effect once the task has finished.
func (h *TaskHandle) Cancel() {
	h.cancel()
}

// Wait blocks until the task finishes or ctx is done
func (h *TaskHandle) Wait(ctx context.Context) (TaskResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return TaskResult{}, ctx.Err()
	}
}

// Result returns the outcome; only meaningful after Done is closed
func (h *TaskHandle) Result() TaskResult {
	select {
	case <-h.done:
		return h.result
	default:
		return TaskResult{Status: h.Status()}
	}
}

// Listeners returns the listeners still referenced by the handle. It is
// empty after completion and must only be read after Done is closed or
// from the submitting goroutine before Submit returns.
func (h *TaskHandle) Listeners() []ports.Listener {
	return h.listeners
}

// TaskRunner executes work off the caller's goroutine, one goroutine per
// task, with no queueing or concurrency limit of its own.
type TaskRunner struct {
	logger      ports.Logger
	appName     string
	diagnostics HostDiagnostics
}

type TaskRunnerConfig struct {
	Logger      ports.Logger
	AppName     string
	Diagnostics HostDiagnostics
}

func NewTaskRunner(cfg TaskRunnerConfig) *TaskRunner {
	appName := cfg.AppName
	if appName == "" {
		appName = "tracecmd"
	}
	return &TaskRunner{
		logger:      cfg.Logger,
		appName:     appName,
		diagnostics: cfg.Diagnostics,
	}
}

// Submit starts work in the background. The progress indicator is shown and
// the notification is delivered to every listener, in registration order,
// before Submit returns and before the work begins.
func (r *TaskRunner) Submit(ctx context.Context, work Work, opts SubmitOptions) (*TaskHandle, error) {
	if work == nil {
		return nil, ErrTaskNoWork
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}

	taskCtx, cancel := context.WithCancel(ctx)
	h := &TaskHandle{
		id:        id,
		listeners: opts.Listeners,
		progress:  opts.Progress,
		display:   opts.Display,
		hook:      opts.Hook,
		message:   opts.Message,
		onDone:    opts.OnComplete,
		ctx:       taskCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	h.status.Store(domain.TaskStatusCreated)

	h.startedAt = time.Now()
	h.status.Store(domain.TaskStatusRunning)

	if h.progress != nil {
		r.guard(h, "task_progress_failed", func() { h.progress.Show(opts.ProgressTitle) })
	}

	if opts.Notification != nil {
		r.notifyListeners(h, *opts.Notification)
	}

	r.logger.Infow("task_started", "task_id", h.id, "listeners", len(h.listeners))

	go r.run(h, work)

	return h, nil
}

func (r *TaskRunner) notifyListeners(h *TaskHandle, n domain.Notification) {
	for i, l := range h.listeners {
		if l == nil {
			continue
		}
		r.guard(h, "task_listener_failed", func() { l.Notify(n) }, "listener", i, "kind", n.Kind)
	}
}

// guard runs a collaborator call, logging a panic under event instead of
// letting it escape the worker goroutine.
func (r *TaskRunner) guard(h *TaskHandle, event string, fn func(), kv ...interface{}) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorw(event, append([]interface{}{"task_id", h.id, "panic", p}, kv...)...)
		}
	}()
	fn()
}

func (r *TaskRunner) run(h *TaskHandle, work Work) {
	err := r.execute(h, work)
	if err == nil {
		r.refresh(h)
	}
	r.complete(h, err)
}

func (r *TaskRunner) execute(h *TaskHandle, work Work) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return work(h.ctx)
}

func (r *TaskRunner) refresh(h *TaskHandle) {
	if h.hook == nil {
		r.logger.Debugw("task_refresh_skipped", "task_id", h.id)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorw("task_refresh_failed", "task_id", h.id, "panic", p)
		}
	}()
	if err := h.hook.Refresh(h.ctx); err != nil {
		r.logger.Warnw("task_refresh_failed", "task_id", h.id, "error", err)
	}
}

// complete releases the task's references and resolves its result. The
// sequence is: clear listeners, dismiss progress, show the terminal message,
// resolve success or classified failure.
func (r *TaskRunner) complete(h *TaskHandle, workErr error) {
	h.once.Do(func() {
		defer close(h.done)
		defer h.cancel()

		h.listeners = nil

		if h.progress != nil {
			r.guard(h, "task_progress_failed", h.progress.Dismiss)
		}

		if h.message != "" && h.display != nil {
			r.guard(h, "task_display_failed", func() { h.display.ShowMessage(h.message) })
		}

		res := r.resolve(h, workErr)
		h.result = res
		h.status.Store(res.Status)

		if h.onDone != nil {
			r.guard(h, "task_on_complete_failed", func() { h.onDone(h, res) })
		}
	})
}

func (r *TaskRunner) resolve(h *TaskHandle, workErr error) TaskResult {
	elapsed := time.Since(h.startedAt)

	if workErr == nil {
		kv := []interface{}{"task_id", h.id, "delta_time_ms", elapsed.Milliseconds()}
		if r.diagnostics != nil {
			if used, err := r.diagnostics.MemoryUsedPercent(); err == nil {
				kv = append(kv, "mem_used_percent", used)
			}
		}
		r.logger.Debugw("task_completed", kv...)
		return TaskResult{Status: domain.TaskStatusCompleted, Elapsed: elapsed}
	}

	interrupted := errors.Is(workErr, context.Canceled) || errors.Is(h.ctx.Err(), context.Canceled)
	code := ClassifyFailure(workErr)
	status := domain.TaskStatusFailed
	if interrupted {
		code = domain.ErrInterrupted
		status = domain.TaskStatusCancelled
		r.logger.Errorw("task_interrupted", "task_id", h.id, "error", workErr)
	} else {
		r.logger.Errorw("task_processing_failed", "task_id", h.id, "code", code.Code, "category", code.Name, "error", workErr)
	}

	if h.display != nil {
		msg := code.Format(r.appName)
		if interrupted {
			msg = workErr.Error()
		}
		r.guard(h, "task_display_failed", func() { h.display.ShowError(code, msg) })
	}

	return TaskResult{
		Status:  status,
		Code:    code,
		Err:     &TaskError{TaskID: h.id, Code: code, Cause: workErr},
		Elapsed: elapsed,
	}
}
