package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracecmd/backend/internal/config"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/domain"
	"github.com/tracecmd/backend/internal/infrastructure/db"
	"github.com/tracecmd/backend/internal/infrastructure/files"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"github.com/tracecmd/backend/internal/transport/http/dto"
	"go.uber.org/zap/zaptest"
)

type okFiles struct{}

func (okFiles) FileExist(path string) (bool, error) { return true, nil }
func (okFiles) DeleteFile(path string) error        { return nil }

type blockingExecutor struct{}

func (blockingExecutor) Execute(ctx context.Context, cmd *domain.CommandDescriptor) error {
	if cmd.DeviceID == "block" {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func newTestApp(t *testing.T, apiKey string) (*fiber.App, *services.TaskService) {
	t.Helper()
	log := logger.Wrap(zaptest.NewLogger(t))
	cfg := &config.Config{
		App:  config.AppConfig{Name: "tracecmd"},
		Auth: config.AuthConfig{AdminAPIKey: apiKey},
	}
	timeline := db.NewMemoryTimelineRepository()
	hub := services.NewEventHub(8)
	svc := services.NewTaskService(services.TaskServiceConfig{
		Validator: services.NewValidator(services.ValidatorConfig{Files: okFiles{}, Logger: log}),
		Runner:    services.NewTaskRunner(services.TaskRunnerConfig{Logger: log}),
		Executor:  blockingExecutor{},
		Files:     okFiles{},
		Tasks:     db.NewMemoryTaskRepository(),
		Timeline:  timeline,
		Hub:       hub,
		Logger:    log,
	})
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	app := fiber.New()
	SetupRoutes(app, RouterConfig{
		Logger:       log,
		Config:       cfg,
		Commands:     svc,
		TimelineRepo: timeline,
		Hub:          hub,
	})
	return app, svc
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestRoutes_ReferenceData(t *testing.T) {
	app, _ := newTestApp(t, "")

	status, body := do(t, app, http.MethodGet, "/api/v1/errors", "")
	require.Equal(t, http.StatusOK, status)
	var codes []dto.ErrorCodeResponse
	require.NoError(t, json.Unmarshal(body, &codes))
	assert.Len(t, codes, len(domain.ErrorCodes()))
	assert.Equal(t, "tracecmd failed to analyze the trace", codes[15].Message)

	status, body = do(t, app, http.MethodGet, "/api/v1/collectors", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["rooted_android","vpn_android","ios"]`, string(body))
}

func TestRoutes_Validate(t *testing.T) {
	app, _ := newTestApp(t, "")

	status, body := do(t, app, http.MethodPost, "/api/v1/commands/validate", `{"startcollector":"ios","output":"/t"}`)
	require.Equal(t, http.StatusOK, status)
	var ok dto.ValidationResponse
	require.NoError(t, json.Unmarshal(body, &ok))
	assert.True(t, ok.Accepted)
	assert.Equal(t, domain.ActionStartCollector, ok.Action)

	status, body = do(t, app, http.MethodPost, "/api/v1/commands/validate", `{"startcollector":"ios","output":"/t","uplink":10}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	var rejected dto.ValidationResponse
	require.NoError(t, json.Unmarshal(body, &rejected))
	assert.False(t, rejected.Accepted)
	require.NotNil(t, rejected.Error)
	assert.Equal(t, domain.ErrAttenuatorNotApplicable.Code, rejected.Error.Code)

	status, _ = do(t, app, http.MethodPost, "/api/v1/commands/validate", `{"startcollector":"ios","orientation":"upside"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/v1/commands/validate", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutes_SubmitAndWait(t *testing.T) {
	app, _ := newTestApp(t, "")

	status, body := do(t, app, http.MethodPost, "/api/v1/commands", `{"startcollector":"rooted_android","output":"/traces/s1","overwrite":"yes"}`)
	require.Equal(t, http.StatusAccepted, status)
	var task dto.TaskResponse
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, domain.TaskStatusRunning, task.Status)
	require.NotEmpty(t, task.ID)

	status, body = do(t, app, http.MethodGet, "/api/v1/tasks/"+task.ID+"?wait=5s", "")
	require.Equal(t, http.StatusOK, status)
	var final dto.TaskResponse
	require.NoError(t, json.Unmarshal(body, &final))
	assert.Equal(t, domain.TaskStatusCompleted, final.Status)
	assert.NotEmpty(t, final.FinishedAt)

	status, body = do(t, app, http.MethodGet, "/api/v1/tasks", "")
	require.Equal(t, http.StatusOK, status)
	var all []dto.TaskResponse
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 1)

	status, _ = do(t, app, http.MethodDelete, "/api/v1/tasks/"+task.ID, "")
	assert.Equal(t, http.StatusConflict, status)

	status, body = do(t, app, http.MethodGet, "/api/v1/timeline", "")
	require.Equal(t, http.StatusOK, status)
	var events []domain.TimelineEvent
	require.NoError(t, json.Unmarshal(body, &events))
	assert.Len(t, events, 2)
}

func TestRoutes_SubmitRejectedAndInvalid(t *testing.T) {
	app, _ := newTestApp(t, "")

	status, body := do(t, app, http.MethodPost, "/api/v1/commands", `{"analyze":"/traces/s1","output":"/r.json","format":"json"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Code)
	assert.Equal(t, domain.ErrUnsupportedFormat.Code, resp.Code.Code)

	status, _ = do(t, app, http.MethodPost, "/api/v1/commands", `{"output":"/t"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutes_CancelRunningTask(t *testing.T) {
	app, svc := newTestApp(t, "")

	status, body := do(t, app, http.MethodPost, "/api/v1/commands", `{"startcollector":"ios","output":"/t","deviceid":"block"}`)
	require.Equal(t, http.StatusAccepted, status)
	var task dto.TaskResponse
	require.NoError(t, json.Unmarshal(body, &task))

	status, _ = do(t, app, http.MethodDelete, "/api/v1/tasks/"+task.ID, "")
	require.Equal(t, http.StatusAccepted, status)

	rec, err := svc.WaitTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, rec.Status)

	status, body = do(t, app, http.MethodGet, "/api/v1/tasks/"+task.ID, "")
	require.Equal(t, http.StatusOK, status)
	var final dto.TaskResponse
	require.NoError(t, json.Unmarshal(body, &final))
	require.NotNil(t, final.Error)
	assert.Equal(t, "Interrupted", final.Error.Name)
}

func TestRoutes_NotFound(t *testing.T) {
	app, _ := newTestApp(t, "")

	status, _ := do(t, app, http.MethodGet, "/api/v1/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodDelete, "/api/v1/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/tasks/missing?wait=bogus", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutes_AdminAuth(t *testing.T) {
	app, _ := newTestApp(t, "secret")

	status, _ := do(t, app, http.MethodGet, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/tasks", "", "X-Admin-Token", "secret")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/tasks", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/tasks?token=secret", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/errors", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestRoutes_EventsRequireUpgrade(t *testing.T) {
	app, _ := newTestApp(t, "secret")

	status, _ := do(t, app, http.MethodGet, "/ws/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, app, http.MethodGet, "/ws/tasks?token=secret", "")
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestRoutes_ValidateKeepsExistingOutput(t *testing.T) {
	log := logger.Wrap(zaptest.NewLogger(t))
	fm := files.NewLocalFileManager()
	svc := services.NewTaskService(services.TaskServiceConfig{
		Validator: services.NewValidator(services.ValidatorConfig{Files: fm, Logger: log, LenientFormat: true}),
		Runner:    services.NewTaskRunner(services.TaskRunnerConfig{Logger: log}),
		Executor:  blockingExecutor{},
		Files:     fm,
		Tasks:     db.NewMemoryTaskRepository(),
		Timeline:  db.NewMemoryTimelineRepository(),
		Logger:    log,
	})
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	app := fiber.New()
	SetupRoutes(app, RouterConfig{
		Logger:       log,
		Config:       &config.Config{App: config.AppConfig{Name: "tracecmd"}},
		Commands:     svc,
		TimelineRepo: db.NewMemoryTimelineRepository(),
	})

	report := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(report, []byte("{}"), 0o600))

	body, err := json.Marshal(dto.CommandRequest{Analyze: "/traces/s1", Output: report, Overwrite: "yes", Format: "json"})
	require.NoError(t, err)

	status, resp := do(t, app, http.MethodPost, "/api/v1/commands/validate", string(body))
	require.Equal(t, http.StatusOK, status)
	var result dto.ValidationResponse
	require.NoError(t, json.Unmarshal(resp, &result))
	assert.True(t, result.Accepted)
	assert.Equal(t, domain.ActionAnalyze, result.Action)

	_, err = os.Stat(report)
	assert.NoError(t, err, "validation must not delete the existing report")

	status, _ = do(t, app, http.MethodPost, "/api/v1/commands/validate", `{"analyze":"/traces/s1","output":"`+report+`","format":"json"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}
