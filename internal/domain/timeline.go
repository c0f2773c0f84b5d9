package domain

// Task timeline event types
const (
	EventTypeTaskSubmitted = "TASK_SUBMITTED"
	EventTypeTaskRejected  = "TASK_REJECTED"
	EventTypeTaskCompleted = "TASK_COMPLETED"
	EventTypeTaskFailed    = "TASK_FAILED"
	EventTypeTaskCancelled = "TASK_CANCELLED"
)

const ResourceTypeTask = "task"
