package audit

import "time"

// LogEntry is one row of the application log stream. user_id is the
// acting account; 0 marks entries written by internal processes.
type LogEntry struct {
	ID       int64          `json:"id"`
	UserID   int64          `json:"user_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Detail   map[string]any `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}

// Actions recorded by the application.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)
