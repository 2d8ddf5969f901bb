package model

import "time"

// TaskStateNotRun is the state of a defined task with no execution attempt.
const TaskStateNotRun = "not_run"

// TaskDefinition is a task declared in a workflow and its upstream tasks.
type TaskDefinition struct {
	TaskID          string   `json:"task_id"`
	UpstreamTaskIDs []string `json:"upstream_task_ids,omitempty"`
}

// TaskInstance is one execution attempt of a task.
type TaskInstance struct {
	TaskID      string     `json:"task_id"`
	TryNumber   int        `json:"try_number"`
	State       string     `json:"state"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	LogicalDate *time.Time `json:"logical_date,omitempty"`
}

// LatestTime returns the most recent of the end, start and logical dates.
func (t TaskInstance) LatestTime() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, ts := range []*time.Time{t.EndDate, t.StartDate, t.LogicalDate} {
		if ts != nil && (!found || ts.After(latest)) {
			latest = *ts
			found = true
		}
	}
	return latest, found
}

// TaskDisplayRow is a task with its current attempt, derived on every fetch.
type TaskDisplayRow struct {
	TaskID      string     `json:"task_id"`
	State       string     `json:"state"`
	TryNumber   int        `json:"try_number"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	LogicalDate *time.Time `json:"logical_date,omitempty"`
	Attempts    int        `json:"attempts"`
}
