// Package taskorder orders the tasks of a workflow run for display.
package taskorder

import (
	"sort"
	"time"

	"github.com/edvin/dataconnect/internal/model"
)

type attempt struct {
	current model.TaskInstance
	count   int
	at      time.Time
	hasTime bool
}

// Order returns one row per task definition in dependency order, or one row
// per distinct instance task id when no definitions are known.
//
// Ready tasks are emitted by the time of their current attempt, earliest
// first, with never-run tasks last and task id as the final tie-break. A
// dependency cycle falls back to plain task id order.
func Order(definitions []model.TaskDefinition, instances []model.TaskInstance) []model.TaskDisplayRow {
	attempts, seen := currentAttempts(instances)

	if len(definitions) == 0 {
		rows := make([]model.TaskDisplayRow, 0, len(seen))
		for _, id := range seen {
			rows = append(rows, displayRow(id, attempts[id]))
		}
		return rows
	}

	ids := make([]string, 0, len(definitions))
	defined := make(map[string]bool, len(definitions))
	for _, d := range definitions {
		if defined[d.TaskID] {
			continue
		}
		defined[d.TaskID] = true
		ids = append(ids, d.TaskID)
	}

	inDegree := make(map[string]int, len(ids))
	downstream := make(map[string][]string, len(ids))
	for _, d := range definitions {
		for _, up := range dedupe(d.UpstreamTaskIDs) {
			if !defined[up] {
				continue
			}
			downstream[up] = append(downstream[up], d.TaskID)
			inDegree[d.TaskID]++
		}
	}

	timeOf := func(id string) (time.Time, bool) {
		if a := attempts[id]; a != nil && a.hasTime {
			return a.at, true
		}
		return time.Time{}, false
	}
	less := func(a, b string) bool {
		ta, okA := timeOf(a)
		tb, okB := timeOf(b)
		switch {
		case okA && okB && !ta.Equal(tb):
			return ta.Before(tb)
		case okA != okB:
			return okA
		default:
			return a < b
		}
	}

	var ready []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(ids))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, down := range downstream[next] {
			inDegree[down]--
			if inDegree[down] == 0 {
				ready = append(ready, down)
			}
		}
	}

	if len(order) < len(ids) {
		order = append(order[:0], ids...)
		sort.Strings(order)
	}

	rows := make([]model.TaskDisplayRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, displayRow(id, attempts[id]))
	}
	return rows
}

// currentAttempts picks the attempt with the highest try number per task,
// breaking ties by the most recent timestamp. It also returns task ids in
// first-seen order.
func currentAttempts(instances []model.TaskInstance) (map[string]*attempt, []string) {
	byTask := make(map[string]*attempt)
	var seen []string
	for _, inst := range instances {
		ts, hasTime := inst.LatestTime()
		a, ok := byTask[inst.TaskID]
		if !ok {
			byTask[inst.TaskID] = &attempt{current: inst, count: 1, at: ts, hasTime: hasTime}
			seen = append(seen, inst.TaskID)
			continue
		}
		a.count++
		if newer(inst, ts, hasTime, a) {
			a.current, a.at, a.hasTime = inst, ts, hasTime
		}
	}
	return byTask, seen
}

func newer(inst model.TaskInstance, ts time.Time, hasTime bool, a *attempt) bool {
	if inst.TryNumber != a.current.TryNumber {
		return inst.TryNumber > a.current.TryNumber
	}
	if hasTime && a.hasTime {
		return ts.After(a.at)
	}
	return hasTime && !a.hasTime
}

func displayRow(taskID string, a *attempt) model.TaskDisplayRow {
	if a == nil {
		return model.TaskDisplayRow{TaskID: taskID, State: model.TaskStateNotRun}
	}
	return model.TaskDisplayRow{
		TaskID:      taskID,
		State:       a.current.State,
		TryNumber:   a.current.TryNumber,
		StartDate:   a.current.StartDate,
		EndDate:     a.current.EndDate,
		LogicalDate: a.current.LogicalDate,
		Attempts:    a.count,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
