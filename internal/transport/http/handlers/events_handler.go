package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/tracecmd/backend/internal/core/services"
	"github.com/tracecmd/backend/internal/infrastructure/logger"
)

// EventsHandler streams task events to websocket clients
type EventsHandler struct {
	hub    *services.EventHub
	logger *logger.Logger
}

func NewEventsHandler(hub *services.EventHub, logger *logger.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// Handle streams every event, or only those of ?task_id= when given
func (h *EventsHandler) Handle(c *websocket.Conn) {
	taskID := c.Query("task_id")
	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	h.logger.Infow("events_stream_open", "task_id", taskID)

	// Read from websocket only to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Infow("events_stream_closed", "task_id", taskID)
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if taskID != "" && evt.TaskID != taskID {
				continue
			}
			if err := c.WriteJSON(evt); err != nil {
				h.logger.Warnw("events_stream_write_failed", "task_id", taskID, "error", err)
				return
			}
		}
	}
}
