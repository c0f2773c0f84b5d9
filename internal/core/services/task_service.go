package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/domain"
)

const persistTimeout = 10 * time.Second

// TaskService validates commands, runs accepted ones through the TaskRunner
// and keeps their records and timeline up to date.
type TaskService struct {
	validator *Validator
	runner    *TaskRunner
	executor  ports.TraceExecutor
	files     ports.FileManager
	tasks     ports.TaskRepository
	timeline  ports.TimelineRepository
	hub       *EventHub
	logger    ports.Logger

	progress          ports.ProgressIndicator
	display           ports.Display
	hook              ports.PostCompletionHook
	progressTitle     string
	completionMessage string

	handles map[string]*TaskHandle
	mu      sync.RWMutex
}

type TaskServiceConfig struct {
	Validator *Validator
	Runner    *TaskRunner
	Executor  ports.TraceExecutor
	Files     ports.FileManager
	Tasks     ports.TaskRepository
	Timeline  ports.TimelineRepository
	Hub       *EventHub
	Logger    ports.Logger

	// Progress and Display override the hub-backed defaults. Hook overrides
	// the output check built from Files.
	Progress          ports.ProgressIndicator
	Display           ports.Display
	Hook              ports.PostCompletionHook
	ProgressTitle     string
	CompletionMessage string
}

func NewTaskService(cfg TaskServiceConfig) *TaskService {
	title := cfg.ProgressTitle
	if title == "" {
		title = "Loading trace results"
	}
	return &TaskService{
		validator:         cfg.Validator,
		runner:            cfg.Runner,
		executor:          cfg.Executor,
		files:             cfg.Files,
		tasks:             cfg.Tasks,
		timeline:          cfg.Timeline,
		hub:               cfg.Hub,
		logger:            cfg.Logger,
		progress:          cfg.Progress,
		display:           cfg.Display,
		hook:              cfg.Hook,
		progressTitle:     title,
		completionMessage: cfg.CompletionMessage,
		handles:           make(map[string]*TaskHandle),
	}
}

var _ ports.CommandService = (*TaskService)(nil)

// ==================== Validation ====================

// Validate reports whether cmd would be accepted. It never deletes an
// existing output; that only happens on Submit.
func (s *TaskService) Validate(ctx context.Context, cmd *domain.CommandDescriptor) *domain.ErrorCode {
	return s.rejected(cmd, s.validator.Check(cmd))
}

func (s *TaskService) rejected(cmd *domain.CommandDescriptor, code *domain.ErrorCode) *domain.ErrorCode {
	if code != nil {
		s.logger.Warnw("command_rejected", "action", cmd.Action(), "code", code.Code, "category", code.Name)
	}
	return code
}

// ==================== Task Management ====================

// Submit validates cmd and, when accepted, starts it in the background. A
// rejected command returns its category and starts nothing.
func (s *TaskService) Submit(ctx context.Context, cmd *domain.CommandDescriptor, listeners ...ports.Listener) (*domain.TaskRecord, *domain.ErrorCode, error) {
	if code := s.rejected(cmd, s.validator.Validate(cmd)); code != nil {
		s.recordEvent(ctx, domain.EventTypeTaskRejected, domain.EventStatusFailed, "", code.Message, domain.JSONB{
			"code":   code.Code,
			"name":   code.Name,
			"action": string(cmd.Action()),
		})
		return nil, code, nil
	}
	if cmd.Action() == domain.ActionNone {
		return nil, nil, ErrTaskNoAction
	}

	id := uuid.New().String()
	rec := domain.NewTaskRecord(id, cmd)
	if err := s.tasks.Create(ctx, rec); err != nil {
		s.logger.Errorw("task_create_failed", "task_id", id, "error", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrTaskPersistFailed, err)
	}

	started := time.Now()
	rec.Status = domain.TaskStatusRunning
	rec.StartedAt = &started
	rec.UpdatedAt = started
	if err := s.tasks.Update(ctx, rec); err != nil {
		s.logger.Warnw("task_update_failed", "task_id", id, "error", err)
	}
	s.recordEvent(ctx, domain.EventTypeTaskSubmitted, domain.EventStatusPending, id, "task submitted", domain.JSONB{
		"action": string(rec.Action),
		"output": rec.Output,
	})

	if s.hub != nil {
		listeners = append(listeners[:len(listeners):len(listeners)], s.hub)
	}
	notification := notificationFor(id, cmd)

	work := func(ctx context.Context) error {
		return s.executor.Execute(ctx, cmd)
	}

	// Tasks outlive the request that submitted them.
	runCtx := context.WithoutCancel(ctx)

	// Held until the handle is registered so completion cannot unregister
	// it first.
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.runner.Submit(runCtx, work, SubmitOptions{
		ID:            id,
		Listeners:     listeners,
		Notification:  &notification,
		Progress:      s.progressFor(id),
		ProgressTitle: s.progressTitle,
		Display:       s.displayFor(id),
		Hook:          s.hookFor(cmd),
		Message:       s.completionMessage,
		OnComplete:    s.onComplete,
	})
	if err != nil {
		return nil, nil, err
	}
	s.handles[id] = h

	s.logger.Infow("task_submitted", "task_id", id, "action", rec.Action, "collector", rec.Collector)
	return rec, nil, nil
}

func (s *TaskService) onComplete(h *TaskHandle, res TaskResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	// The record is final before the handle disappears, so WaitTask never
	// observes a running record for a finished task.
	defer func() {
		s.mu.Lock()
		delete(s.handles, h.ID())
		s.mu.Unlock()

		if s.hub != nil {
			s.hub.Publish(TaskEvent{TaskID: h.ID(), Type: TaskEventStatus, Status: res.Status, Code: res.Code})
		}
	}()

	rec, err := s.tasks.GetByID(ctx, h.ID())
	if err != nil {
		s.logger.Errorw("task_complete_lookup_failed", "task_id", h.ID(), "error", err)
		return
	}

	finished := time.Now()
	rec.Status = res.Status
	rec.ElapsedMs = res.Elapsed.Milliseconds()
	rec.FinishedAt = &finished
	rec.UpdatedAt = finished

	eventType := domain.EventTypeTaskCompleted
	eventStatus := domain.EventStatusSuccess
	message := "task completed"
	if res.Code != nil {
		rec.ErrorCode = res.Code.Code
		rec.ErrorName = res.Code.Name
		rec.Error = res.Err.Error()
		eventStatus = domain.EventStatusFailed
		message = res.Code.Message
		eventType = domain.EventTypeTaskFailed
		if res.Status == domain.TaskStatusCancelled {
			eventType = domain.EventTypeTaskCancelled
		}
	}

	if err := s.tasks.Update(ctx, rec); err != nil {
		s.logger.Errorw("task_complete_update_failed", "task_id", rec.ID, "error", err)
	}

	s.recordEvent(ctx, eventType, eventStatus, rec.ID, message, domain.JSONB{
		"status":     string(res.Status),
		"elapsed_ms": rec.ElapsedMs,
		"error_code": rec.ErrorCode,
	})
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	rec, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrTaskNotFound
	}
	return rec, nil
}

func (s *TaskService) ListTasks(ctx context.Context, limit int) ([]domain.TaskRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.tasks.GetAll(ctx, limit)
}

// CancelTask interrupts a running task
func (s *TaskService) CancelTask(ctx context.Context, id string) error {
	s.mu.RLock()
	h, ok := s.handles[id]
	s.mu.RUnlock()

	if !ok {
		if _, err := s.GetTask(ctx, id); err != nil {
			return err
		}
		return ErrTaskNotRunning
	}

	s.logger.Infow("task_cancel_requested", "task_id", id)
	h.Cancel()
	return nil
}

// WaitTask blocks until the task finishes and returns its final record
func (s *TaskService) WaitTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	s.mu.RLock()
	h, ok := s.handles[id]
	s.mu.RUnlock()

	if ok {
		if _, err := h.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return s.GetTask(ctx, id)
}

// Running returns the number of tasks still executing
func (s *TaskService) Running() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// Shutdown cancels every running task and waits for them until ctx is done
func (s *TaskService) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	handles := make([]*TaskHandle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.RUnlock()

	var errs []error
	for _, h := range handles {
		h.Cancel()
		if _, err := h.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", h.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// ==================== Helpers ====================

func (s *TaskService) progressFor(id string) ports.ProgressIndicator {
	if s.progress != nil {
		return s.progress
	}
	if s.hub != nil {
		return &hubProgress{hub: s.hub, taskID: id}
	}
	return nil
}

func (s *TaskService) displayFor(id string) ports.Display {
	if s.display != nil {
		return s.display
	}
	if s.hub != nil {
		return &hubDisplay{hub: s.hub, taskID: id}
	}
	return nil
}

func (s *TaskService) hookFor(cmd *domain.CommandDescriptor) ports.PostCompletionHook {
	if s.hook != nil {
		return s.hook
	}
	if s.files == nil || !cmd.HasOutput() {
		return nil
	}
	return &outputHook{files: s.files, path: cmd.Output, logger: s.logger}
}

func (s *TaskService) recordEvent(ctx context.Context, eventType string, status domain.EventStatus, taskID, message string, meta domain.JSONB) {
	if s.timeline == nil {
		return
	}
	event := &domain.TimelineEvent{
		Type:         eventType,
		Status:       status,
		Message:      message,
		Meta:         meta,
		ResourceID:   taskID,
		ResourceType: domain.ResourceTypeTask,
	}
	if err := s.timeline.Create(ctx, event); err != nil {
		s.logger.Warnw("timeline_event_failed", "type", eventType, "task_id", taskID, "error", err)
	}
}

// notificationFor publishes collector starts as actions and analyses as a
// change of the loaded trace path.
func notificationFor(id string, cmd *domain.CommandDescriptor) domain.Notification {
	if cmd.Action() == domain.ActionStartCollector {
		return domain.ActionPerformed(id, 0, "start_collector:"+cmd.StartCollector)
	}
	return domain.PropertyChange(id, "trace_path", nil, cmd.Analyze)
}
