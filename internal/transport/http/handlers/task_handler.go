package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"github.com/tracecmd/backend/internal/transport/http/dto"
)

const maxWaitTimeout = 5 * time.Minute

type TaskHandler struct {
	service ports.CommandService
	logger  *logger.Logger
	appName string
}

func NewTaskHandler(service ports.CommandService, logger *logger.Logger, appName string) *TaskHandler {
	return &TaskHandler{service: service, logger: logger, appName: appName}
}

func (h *TaskHandler) notFoundOr500(c *fiber.Ctx, id string, err error) error {
	if errors.Is(err, services.ErrTaskNotFound) {
		h.logger.Warnw("task_not_found", "task_id", id)
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "task not found"})
	}
	h.logger.Errorw("task_lookup_failed", "task_id", id, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
}

func (h *TaskHandler) GetTasks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	tasks, err := h.service.ListTasks(c.UserContext(), limit)
	if err != nil {
		h.logger.Errorw("tasks_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	out := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, dto.TaskToResponse(&tasks[i], h.appName))
	}
	return c.JSON(out)
}

// GetTask returns a task; with ?wait=<duration> it blocks until the task finishes
func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	id := c.Params("id")

	if waitStr := c.Query("wait"); waitStr != "" {
		wait, err := time.ParseDuration(waitStr)
		if err != nil || wait <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid wait duration"})
		}
		if wait > maxWaitTimeout {
			wait = maxWaitTimeout
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), wait)
		defer cancel()
		rec, err := h.service.WaitTask(ctx, id)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return h.notFoundOr500(c, id, err)
		}
		if rec != nil {
			return c.JSON(dto.TaskToResponse(rec, h.appName))
		}
	}

	rec, err := h.service.GetTask(c.UserContext(), id)
	if err != nil {
		return h.notFoundOr500(c, id, err)
	}
	return c.JSON(dto.TaskToResponse(rec, h.appName))
}

func (h *TaskHandler) CancelTask(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.CancelTask(c.UserContext(), id); err != nil {
		if errors.Is(err, services.ErrTaskNotRunning) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "task is not running"})
		}
		return h.notFoundOr500(c, id, err)
	}
	h.logger.Infow("task_cancel_success", "task_id", id)
	return c.Status(fiber.StatusAccepted).JSON(dto.SuccessResponse{Message: "cancellation requested"})
}
