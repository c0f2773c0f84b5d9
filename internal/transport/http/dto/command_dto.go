package dto

import (
	"strings"
	"time"

	"github.com/tracecmd/backend/internal/domain"
)

// CommandRequest mirrors the command line flags of tracecmd
type CommandRequest struct {
	StartCollector string `json:"startcollector"`
	Analyze        string `json:"analyze"`
	Output         string `json:"output"`
	Overwrite      string `json:"overwrite"`
	Format         string `json:"format"`
	Video          string `json:"video"`
	Secure         bool   `json:"secure"`
	CertInstall    bool   `json:"certinstall"`
	Uplink         int    `json:"uplink"`
	Downlink       int    `json:"downlink"`
	Orientation    string `json:"orientation"`
	DeviceID       string `json:"deviceid"`
}

// Validate checks the request shape only; command rules are applied by the validator
func (r *CommandRequest) Validate() []string {
	var errors []string

	if r.Orientation != "" && r.Orientation != domain.OrientationPortrait && r.Orientation != domain.OrientationLandscape {
		errors = append(errors, "orientation must be one of: portrait, landscape")
	}

	return errors
}

func (r *CommandRequest) ToDescriptor() *domain.CommandDescriptor {
	return &domain.CommandDescriptor{
		StartCollector: strings.TrimSpace(r.StartCollector),
		Analyze:        strings.TrimSpace(r.Analyze),
		Output:         strings.TrimSpace(r.Output),
		Overwrite:      r.Overwrite == "yes",
		Format:         r.Format,
		Video:          r.Video,
		Secure:         r.Secure,
		CertInstall:    r.CertInstall,
		Uplink:         r.Uplink,
		Downlink:       r.Downlink,
		Orientation:    r.Orientation,
		DeviceID:       r.DeviceID,
	}
}

type ErrorCodeResponse struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func ErrorCodeToResponse(code *domain.ErrorCode, appName string) *ErrorCodeResponse {
	if code == nil {
		return nil
	}
	return &ErrorCodeResponse{
		Code:    code.Code,
		Name:    code.Name,
		Kind:    string(code.Kind),
		Message: code.Format(appName),
	}
}

type ValidationResponse struct {
	Accepted bool               `json:"accepted"`
	Action   domain.ActionType  `json:"action"`
	Error    *ErrorCodeResponse `json:"error,omitempty"`
}

type TaskResponse struct {
	ID         string             `json:"id"`
	Action     domain.ActionType  `json:"action"`
	Collector  string             `json:"collector,omitempty"`
	Source     string             `json:"source,omitempty"`
	Output     string             `json:"output,omitempty"`
	Status     domain.TaskStatus  `json:"status"`
	Error      *ErrorCodeResponse `json:"error,omitempty"`
	Detail     string             `json:"detail,omitempty"`
	ElapsedMs  int64              `json:"elapsed_ms"`
	CreatedAt  string             `json:"created_at"`
	FinishedAt string             `json:"finished_at,omitempty"`
}

func TaskToResponse(rec *domain.TaskRecord, appName string) TaskResponse {
	resp := TaskResponse{
		ID:        rec.ID,
		Action:    rec.Action,
		Collector: rec.Collector,
		Source:    rec.Source,
		Output:    rec.Output,
		Status:    rec.Status,
		Detail:    rec.Error,
		ElapsedMs: rec.ElapsedMs,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.FinishedAt != nil {
		resp.FinishedAt = rec.FinishedAt.Format(time.RFC3339)
	}
	if rec.ErrorCode != 0 {
		if code, ok := domain.ErrorCodeByCode(rec.ErrorCode); ok {
			resp.Error = ErrorCodeToResponse(code, appName)
		}
	}
	return resp
}

type ErrorResponse struct {
	Error   string             `json:"error"`
	Details []string           `json:"details,omitempty"`
	Code    *ErrorCodeResponse `json:"code,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
