package model

import "time"

// RunStateNoRuns marks the placeholder latest run of a workflow that has
// never run.
const RunStateNoRuns = "no_runs"

// RunSummary is one workflow run as shown in run history.
type RunSummary struct {
	RunID       string     `json:"run_id"`
	WorkflowID  string     `json:"workflow_id"`
	State       string     `json:"state"`
	RunType     string     `json:"run_type,omitempty"`
	LogicalDate *time.Time `json:"logical_date,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// NoRuns returns the placeholder summary for a workflow without runs.
func NoRuns(workflowID string) RunSummary {
	return RunSummary{WorkflowID: workflowID, State: RunStateNoRuns}
}

// SortTime is the timestamp used to order runs: logical date, then start.
func (r RunSummary) SortTime() time.Time {
	if r.LogicalDate != nil {
		return *r.LogicalDate
	}
	if r.StartDate != nil {
		return *r.StartDate
	}
	return time.Time{}
}
