package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/domain"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
	"github.com/tracecmd/backend/internal/transport/http/dto"
)

type CommandHandler struct {
	service ports.CommandService
	logger  *logger.Logger
	appName string
}

func NewCommandHandler(service ports.CommandService, logger *logger.Logger, appName string) *CommandHandler {
	return &CommandHandler{service: service, logger: logger, appName: appName}
}

func (h *CommandHandler) parse(c *fiber.Ctx) (*domain.CommandDescriptor, error) {
	var req dto.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("command_body_parse_failed", "error", err)
		return nil, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("command_request_invalid", "details", errs)
		return nil, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	return req.ToDescriptor(), nil
}

// Validate checks a command without running it
func (h *CommandHandler) Validate(c *fiber.Ctx) error {
	cmd, err := h.parse(c)
	if cmd == nil {
		return err
	}

	code := h.service.Validate(c.UserContext(), cmd)
	resp := dto.ValidationResponse{
		Accepted: code == nil,
		Action:   cmd.Action(),
		Error:    dto.ErrorCodeToResponse(code, h.appName),
	}
	if code != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
	return c.JSON(resp)
}

// Submit validates a command and starts it as a background task
func (h *CommandHandler) Submit(c *fiber.Ctx) error {
	cmd, err := h.parse(c)
	if cmd == nil {
		return err
	}

	h.logger.Infow("command_submit_request", "action", cmd.Action(), "collector", cmd.StartCollector, "output", cmd.Output)
	rec, code, err := h.service.Submit(c.UserContext(), cmd)
	if code != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: "command rejected",
			Code:  dto.ErrorCodeToResponse(code, h.appName),
		})
	}
	if err != nil {
		if errors.Is(err, services.ErrTaskNoAction) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "either startcollector or analyze is required",
			})
		}
		h.logger.Errorw("command_submit_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.logger.Infow("command_submit_success", "task_id", rec.ID)
	return c.Status(fiber.StatusAccepted).JSON(dto.TaskToResponse(rec, h.appName))
}

// GetErrorCodes lists the error taxonomy
func (h *CommandHandler) GetErrorCodes(c *fiber.Ctx) error {
	codes := domain.ErrorCodes()
	out := make([]*dto.ErrorCodeResponse, 0, len(codes))
	for _, code := range codes {
		out = append(out, dto.ErrorCodeToResponse(code, h.appName))
	}
	return c.JSON(out)
}

// GetCollectors lists the supported collector kinds
func (h *CommandHandler) GetCollectors(c *fiber.Ctx) error {
	return c.JSON(domain.SupportedCollectors)
}
