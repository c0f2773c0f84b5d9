package domain

import "time"

// TaskStatus is the lifecycle state of a background task.
// Created -> Running -> {Completed, Failed, Cancelled}; terminal states are final.
type TaskStatus string

const (
	TaskStatusCreated   TaskStatus = "created"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// TaskRecord is the persisted summary of one submitted command
type TaskRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Action     ActionType `gorm:"size:32;not null;index" json:"action"`
	Collector  string     `gorm:"size:32" json:"collector,omitempty"`
	Source     string     `gorm:"type:text" json:"source,omitempty"`
	Output     string     `gorm:"type:text" json:"output,omitempty"`
	Status     TaskStatus `gorm:"size:20;not null;default:'created';index" json:"status"`
	ErrorCode  int        `gorm:"default:0" json:"error_code,omitempty"`
	ErrorName  string     `gorm:"size:64" json:"error_name,omitempty"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	ElapsedMs  int64      `json:"elapsed_ms"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Descriptor JSONB      `gorm:"type:jsonb" json:"descriptor"`
}

// NewTaskRecord builds a record in the Created state for the given descriptor
func NewTaskRecord(id string, cmd *CommandDescriptor) *TaskRecord {
	now := time.Now()
	rec := &TaskRecord{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Action:    cmd.Action(),
		Collector: cmd.StartCollector,
		Source:    cmd.Analyze,
		Output:    cmd.Output,
		Status:    TaskStatusCreated,
		Descriptor: JSONB{
			"start_collector": cmd.StartCollector,
			"analyze":         cmd.Analyze,
			"output":          cmd.Output,
			"overwrite":       cmd.Overwrite,
			"format":          cmd.Format,
			"video":           cmd.Video,
			"secure":          cmd.Secure,
			"cert_install":    cmd.CertInstall,
			"uplink":          cmd.Uplink,
			"downlink":        cmd.Downlink,
			"orientation":     cmd.GetOrientation(),
			"device_id":       cmd.DeviceID,
		},
	}
	return rec
}
