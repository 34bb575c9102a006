package model

import "time"

const (
	TaskPending  = "pending"
	TaskRunning  = "running"
	TaskDone     = "done"
	TaskFailed   = "failed"
	TaskCanceled = "canceled"
)

// SimulationTaskStatus reports the state of an asynchronous simulation.
type SimulationTaskStatus struct {
	TaskID    string              `json:"task_id"`
	Status    string              `json:"status"`
	Ticker    string              `json:"ticker,omitempty"`
	Done      int                 `json:"done"`
	Total     int                 `json:"total"`
	Result    *SimulationResponse `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Finished reports whether the task reached a terminal state.
func (s SimulationTaskStatus) Finished() bool {
	switch s.Status {
	case TaskDone, TaskFailed, TaskCanceled:
		return true
	}
	return false
}
