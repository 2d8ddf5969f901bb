package runhistory

import (
	"fmt"
	"sort"
	"time"

	"github.com/edvin/dataconnect/internal/model"
)

// SummariesFromRows converts dagRun rows into run summaries sorted most
// recent first. Rows of other workflows and rows without a run id are skipped.
func SummariesFromRows(workflowID string, rows []map[string]any) []model.RunSummary {
	runs := make([]model.RunSummary, 0, len(rows))
	for _, row := range rows {
		if dag := str(row["dag_id"]); dag != "" && dag != workflowID {
			continue
		}
		id := str(row["dag_run_id"])
		if id == "" {
			id = str(row["run_id"])
		}
		if id == "" {
			continue
		}

		logical := timestamp(row["logical_date"])
		if logical == nil {
			logical = timestamp(row["execution_date"])
		}
		runs = append(runs, model.RunSummary{
			RunID:       id,
			WorkflowID:  workflowID,
			State:       str(row["state"]),
			RunType:     str(row["run_type"]),
			LogicalDate: logical,
			StartDate:   timestamp(row["start_date"]),
			EndDate:     timestamp(row["end_date"]),
		})
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].SortTime().After(runs[j].SortTime())
	})
	return runs
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// timestamp parses an RFC 3339 value. Anything else yields nil.
func timestamp(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	case string:
		if t == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}
