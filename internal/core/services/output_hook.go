package services

import (
	"context"
	"fmt"

	"github.com/tracecmd/backend/internal/core/ports"
)

// outputHook reloads the task's output location once the work succeeded and
// reports a missing result.
type outputHook struct {
	files  ports.FileManager
	path   string
	logger ports.Logger
}

func (h *outputHook) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := h.files.FileExist(h.path)
	if err != nil {
		return fmt.Errorf("check output %s: %w", h.path, err)
	}
	if !exists {
		return fmt.Errorf("output %s was not produced", h.path)
	}
	h.logger.Infow("task_output_ready", "output", h.path)
	return nil
}
