package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/transport/http/dto"
)

type TimelineHandler struct {
	repo ports.TimelineRepository
}

func NewTimelineHandler(repo ports.TimelineRepository) *TimelineHandler {
	return &TimelineHandler{repo: repo}
}

func (h *TimelineHandler) GetEvents(c *fiber.Ctx) error {
	rtype := c.Query("resource_type")
	rid := c.Query("resource_id")
	if rtype != "" && rid != "" {
		events, err := h.repo.GetByResource(c.UserContext(), rtype, rid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(events)
	}
	events, err := h.repo.GetAll(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(events)
}
