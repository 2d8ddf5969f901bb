package intctl

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"

	"github.com/edvin/dataconnect/internal/model"
	"github.com/edvin/dataconnect/internal/runhistory"
	"github.com/edvin/dataconnect/internal/taskorder"
)

// Tasks prints the tasks of one workflow run in dependency order with the
// state of their current attempt.
func Tasks(ctx context.Context, apiURL, apiKey, integrationID, workflowID, runID string, out io.Writer) error {
	c, err := newClient(apiURL, apiKey)
	if err != nil {
		return err
	}
	rows, err := FetchTaskRows(ctx, c, integrationID, workflowID, runID)
	if err != nil {
		return err
	}
	printTasks(out, rows)
	return nil
}

// FetchTaskRows loads the task definitions and task instances of a run and
// orders them for display.
func FetchTaskRows(ctx context.Context, exec runhistory.Executor, integrationID, workflowID, runID string) ([]model.TaskDisplayRow, error) {
	filter := &model.DataSourceFilter{NamedResourceIDs: []string{workflowID}}
	dag := url.PathEscape(workflowID)

	defs, err := query(ctx, exec, integrationID, "dags/"+dag+"/tasks", filter)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks of %s: %w", workflowID, err)
	}
	instances, err := query(ctx, exec, integrationID, "dags/"+dag+"/dagRuns/"+url.PathEscape(runID)+"/taskInstances", filter)
	if err != nil {
		return nil, fmt.Errorf("fetch task instances of %s/%s: %w", workflowID, runID, err)
	}

	return taskorder.Order(taskorder.DefinitionsFromRows(defs), taskorder.InstancesFromRows(instances)), nil
}

func query(ctx context.Context, exec runhistory.Executor, integrationID, q string, filter *model.DataSourceFilter) ([]map[string]any, error) {
	res, err := exec.ExecuteQuery(ctx, integrationID, q, filter)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%s", res.ErrorMessage)
	}
	return res.Rows, nil
}

func printTasks(out io.Writer, rows []model.TaskDisplayRow) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATE\tTRY\tATTEMPTS\tSTARTED\tENDED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", r.TaskID, r.State, r.TryNumber, r.Attempts, formatTime(r.StartDate), formatTime(r.EndDate))
	}
	tw.Flush()
}
