package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type runnerFixture struct {
	runner   *TaskRunner
	logs     *observer.ObservedLogs
	j        *journal
	progress *fakeProgress
	display  *fakeDisplay
	hook     *fakeHook
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	j := &journal{}
	return &runnerFixture{
		runner: NewTaskRunner(TaskRunnerConfig{
			Logger:      zap.New(core).Sugar(),
			AppName:     "tracecmd",
			Diagnostics: fakeDiagnostics{used: 42.5},
		}),
		logs:     logs,
		j:        j,
		progress: &fakeProgress{j: j},
		display:  &fakeDisplay{j: j},
		hook:     &fakeHook{j: j},
	}
}

func (f *runnerFixture) options(listeners ...ports.Listener) SubmitOptions {
	n := domain.PropertyChange("task-1", "trace_path", nil, "/traces/a")
	return SubmitOptions{
		ID:            "task-1",
		Listeners:     listeners,
		Notification:  &n,
		Progress:      f.progress,
		ProgressTitle: "Loading trace results",
		Display:       f.display,
		Hook:          f.hook,
		Message:       "done",
	}
}

func waitResult(t *testing.T, h *TaskHandle) TaskResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestTaskRunner_Success(t *testing.T) {
	f := newRunnerFixture(t)
	a := &recordingListener{name: "a", j: f.j}
	b := &recordingListener{name: "b", j: f.j}

	release := make(chan struct{})
	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error {
		<-release
		f.j.add("work")
		return nil
	}, f.options(a, b))
	require.NoError(t, err)

	// Notifications are delivered before Submit returns.
	assert.Equal(t, []string{"progress:show", "notify:a", "notify:b"}, f.j.list())
	assert.Equal(t, domain.TaskStatusRunning, h.Status())
	assert.Equal(t, "task-1", h.ID())
	require.Len(t, a.notifications(), 1)
	assert.Equal(t, domain.NotificationPropertyChange, a.notifications()[0].Kind)
	assert.Equal(t, "/traces/a", a.notifications()[0].NewValue)

	close(release)
	res := waitResult(t, h)

	assert.Equal(t, domain.TaskStatusCompleted, res.Status)
	assert.Nil(t, res.Code)
	assert.NoError(t, res.Err)
	assert.Equal(t, domain.TaskStatusCompleted, h.Status())
	assert.Empty(t, h.Listeners())
	assert.Equal(t, []string{
		"progress:show", "notify:a", "notify:b",
		"work", "hook:refresh", "progress:dismiss", "display:message",
	}, f.j.list())
	assert.Empty(t, f.display.shownErrors())
	assert.Equal(t, "Loading trace results", f.progress.title)

	entries := f.logs.FilterMessage("task_completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "delta_time_ms")
	assert.Equal(t, 42.5, fields["mem_used_percent"])
}

func TestTaskRunner_FailureIsClassified(t *testing.T) {
	f := newRunnerFixture(t)
	cause := errors.New("ffmpeg: codec not found")
	a := &recordingListener{name: "a", j: f.j}

	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error {
		return cause
	}, f.options(a))
	require.NoError(t, err)
	res := waitResult(t, h)

	assert.Empty(t, h.Listeners())
	shownCount, dismissed := f.progress.counts()
	assert.Equal(t, 1, shownCount)
	assert.Equal(t, 1, dismissed)

	assert.Equal(t, domain.TaskStatusFailed, res.Status)
	assert.Same(t, domain.ErrVideoTranscoding, res.Code)
	assert.ErrorIs(t, res.Err, cause)

	var taskErr *TaskError
	require.ErrorAs(t, res.Err, &taskErr)
	assert.Equal(t, "task-1", taskErr.TaskID)

	shown := f.display.shownErrors()
	require.Len(t, shown, 1)
	assert.Same(t, domain.ErrVideoTranscoding, shown[0].code)
	assert.Equal(t, domain.ErrVideoTranscoding.Format("tracecmd"), shown[0].msg)

	assert.Zero(t, f.hook.count(), "refresh runs only after success")
	assert.Equal(t, []string{"progress:show", "notify:a", "progress:dismiss", "display:message", "display:error"}, f.j.list())
	assert.Equal(t, 1, f.logs.FilterMessage("task_processing_failed").Len())
}

func TestTaskRunner_CancelIsInterrupted(t *testing.T) {
	f := newRunnerFixture(t)
	started := make(chan struct{})

	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, f.options(&recordingListener{name: "a", j: f.j}))
	require.NoError(t, err)

	<-started
	h.Cancel()
	res := waitResult(t, h)
	assert.Empty(t, h.Listeners())

	assert.Equal(t, domain.TaskStatusCancelled, res.Status)
	assert.Same(t, domain.ErrInterrupted, res.Code)
	assert.ErrorIs(t, res.Err, context.Canceled)

	shown := f.display.shownErrors()
	require.Len(t, shown, 1)
	assert.Same(t, domain.ErrInterrupted, shown[0].code)
	assert.Equal(t, context.Canceled.Error(), shown[0].msg)

	_, dismissed := f.progress.counts()
	assert.Equal(t, 1, dismissed)
	assert.Equal(t, 1, f.logs.FilterMessage("task_interrupted").Len())
}

func TestTaskRunner_ParentContextCancelled(t *testing.T) {
	f := newRunnerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	h, err := f.runner.Submit(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return errors.New("collector stopped")
	}, f.options())
	require.NoError(t, err)

	cancel()
	res := waitResult(t, h)
	assert.Equal(t, domain.TaskStatusCancelled, res.Status)
	assert.Same(t, domain.ErrInterrupted, res.Code)
}

func TestTaskRunner_ListenerPanicIsIsolated(t *testing.T) {
	f := newRunnerFixture(t)
	after := &recordingListener{name: "after", j: f.j}

	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error {
		return nil
	}, f.options(panickingListener{}, nil, after))
	require.NoError(t, err)

	assert.Len(t, after.notifications(), 1)
	res := waitResult(t, h)
	assert.Equal(t, domain.TaskStatusCompleted, res.Status)
	assert.Equal(t, 1, f.logs.FilterMessage("task_listener_failed").Len())
}

func TestTaskRunner_HookFailureDoesNotFailTask(t *testing.T) {
	for _, tc := range []struct {
		name string
		hook *fakeHook
	}{
		{"error", &fakeHook{err: errBoom}},
		{"panic", &fakeHook{panic: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newRunnerFixture(t)
			tc.hook.j = f.j
			opts := f.options()
			opts.Hook = tc.hook

			h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error { return nil }, opts)
			require.NoError(t, err)
			res := waitResult(t, h)

			assert.Equal(t, domain.TaskStatusCompleted, res.Status)
			assert.Equal(t, 1, tc.hook.count())
			assert.Equal(t, 1, f.logs.FilterMessage("task_refresh_failed").Len())
			assert.Empty(t, f.display.shownErrors())
		})
	}
}

func TestTaskRunner_WorkPanicIsFailure(t *testing.T) {
	f := newRunnerFixture(t)

	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error {
		panic("analyzer bug")
	}, f.options(&recordingListener{name: "a", j: f.j}))
	require.NoError(t, err)
	res := waitResult(t, h)

	assert.Equal(t, domain.TaskStatusFailed, res.Status)
	assert.Same(t, domain.ErrAnalysisFailed, res.Code)
	assert.Contains(t, res.Err.Error(), "analyzer bug")
	assert.Empty(t, h.Listeners())
	_, dismissed := f.progress.counts()
	assert.Equal(t, 1, dismissed)
}

func TestTaskRunner_CollaboratorPanicsStillComplete(t *testing.T) {
	f := newRunnerFixture(t)
	f.progress.panicOnDismiss = true
	f.display.panics = true
	completed := 0
	opts := f.options()
	opts.OnComplete = func(h *TaskHandle, res TaskResult) { completed++ }

	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error {
		return errBoom
	}, opts)
	require.NoError(t, err)
	res := waitResult(t, h)

	assert.Equal(t, domain.TaskStatusFailed, res.Status)
	assert.Same(t, domain.ErrAnalysisFailed, res.Code)
	assert.Equal(t, 1, completed)
	assert.Equal(t, []string{"progress:show", "progress:dismiss", "display:message", "display:error"}, f.j.list())
	assert.Equal(t, 1, f.logs.FilterMessage("task_progress_failed").Len())
	assert.Equal(t, 2, f.logs.FilterMessage("task_display_failed").Len())
}

func TestTaskRunner_NoCollaborators(t *testing.T) {
	r := NewTaskRunner(TaskRunnerConfig{Logger: nopLogger()})

	h, err := r.Submit(context.Background(), func(ctx context.Context) error { return errBoom }, SubmitOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID())

	res := waitResult(t, h)
	assert.Equal(t, domain.TaskStatusFailed, res.Status)
	assert.Same(t, domain.ErrAnalysisFailed, res.Code)
	assert.Equal(t, res, h.Result())
}

func TestTaskRunner_NilWork(t *testing.T) {
	r := NewTaskRunner(TaskRunnerConfig{Logger: nopLogger()})
	_, err := r.Submit(context.Background(), nil, SubmitOptions{})
	assert.ErrorIs(t, err, ErrTaskNoWork)
}

func TestTaskRunner_OnCompleteRunsOnceBeforeDone(t *testing.T) {
	f := newRunnerFixture(t)
	calls := 0
	var sawDone bool

	opts := f.options()
	opts.OnComplete = func(h *TaskHandle, res TaskResult) {
		calls++
		select {
		case <-h.Done():
			sawDone = true
		default:
		}
		assert.Equal(t, domain.TaskStatusCompleted, res.Status)
		assert.Equal(t, domain.TaskStatusCompleted, h.Status())
	}

	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error { return nil }, opts)
	require.NoError(t, err)
	waitResult(t, h)

	// A late cancel is a no-op on a finished task.
	h.Cancel()
	assert.Equal(t, domain.TaskStatusCompleted, h.Status())
	assert.Equal(t, 1, calls)
	assert.False(t, sawDone)
}

func TestTaskHandle_WaitHonoursContext(t *testing.T) {
	f := newRunnerFixture(t)
	h, err := f.runner.Submit(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, f.options())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.TaskStatusRunning, h.Result().Status)

	h.Cancel()
	waitResult(t, h)
}
