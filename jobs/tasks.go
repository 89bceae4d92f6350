package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLogRetention prunes log entries past the retention window.
	TaskLogRetention = "logs:retention"
	// TaskSessionSweep deletes expired session rows.
	TaskSessionSweep = "sessions:sweep"
)

// LogRetentionPayload configures a retention run.
type LogRetentionPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewLogRetentionTask constructs a retention task.
func NewLogRetentionTask(payload LogRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLogRetention, data), nil
}

// NewSessionSweepTask constructs a session sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}
