package taskorder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/edvin/dataconnect/internal/model"
)

// DefinitionsFromRows converts task rows into definitions. Airflow reports
// downstream_task_ids, which are inverted into upstream ids. Explicit
// upstream_task_ids are used as given.
func DefinitionsFromRows(rows []map[string]any) []model.TaskDefinition {
	defs := make([]model.TaskDefinition, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		id := str(row["task_id"])
		if id == "" {
			continue
		}
		if _, ok := index[id]; ok {
			continue
		}
		index[id] = len(defs)
		defs = append(defs, model.TaskDefinition{TaskID: id, UpstreamTaskIDs: strs(row["upstream_task_ids"])})
	}

	for _, row := range rows {
		from := str(row["task_id"])
		for _, to := range strs(row["downstream_task_ids"]) {
			i, ok := index[to]
			if !ok || from == "" {
				continue
			}
			defs[i].UpstreamTaskIDs = appendUnique(defs[i].UpstreamTaskIDs, from)
		}
	}
	return defs
}

// InstancesFromRows converts taskInstance rows. Rows without a task id are
// skipped.
func InstancesFromRows(rows []map[string]any) []model.TaskInstance {
	out := make([]model.TaskInstance, 0, len(rows))
	for _, row := range rows {
		id := str(row["task_id"])
		if id == "" {
			continue
		}
		logical := timestamp(row["logical_date"])
		if logical == nil {
			logical = timestamp(row["execution_date"])
		}
		out = append(out, model.TaskInstance{
			TaskID:      id,
			TryNumber:   number(row["try_number"]),
			State:       str(row["state"]),
			StartDate:   timestamp(row["start_date"]),
			EndDate:     timestamp(row["end_date"]),
			LogicalDate: logical,
		})
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
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

func strs(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func number(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func timestamp(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
