package scenario

import "time"

// OperationStatus is the lifecycle state of a tracked evaluation job.
// Queued and Running are the only non-terminal states.
type OperationStatus string

const (
	OperationQueued    OperationStatus = "queued"
	OperationRunning   OperationStatus = "running"
	OperationSucceeded OperationStatus = "succeeded"
	OperationFailed    OperationStatus = "failed"
)

// IsTerminal reports whether the status allows no further transitions.
func (s OperationStatus) IsTerminal() bool {
	return s == OperationSucceeded || s == OperationFailed
}

// OperationInfo tracks one asynchronous evaluation job. It is mutated only
// by the orchestrator running the job and becomes immutable once the status
// reaches a terminal state.
type OperationInfo struct {
	ID          string            `json:"id"`
	ScenarioID  string            `json:"scenario_id"`
	Status      OperationStatus   `json:"status"`
	Progress    int               `json:"progress"`
	CurrentStep string            `json:"current_step,omitempty"`
	TotalPaths  int               `json:"total_paths"`
	DonePaths   int               `json:"done_paths"`
	IssuesFound int               `json:"issues_found"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	Result      *EvaluationResult `json:"result,omitempty"`
}
