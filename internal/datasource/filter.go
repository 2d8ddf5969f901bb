// Package datasource applies a card's data-source filter around a connector
// call: before it by rewriting the query, after it by dropping rows.
package datasource

import (
	"fmt"

	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/model"
)

// rule describes how rows of a platform kind are matched against the
// allow-list. A strict rule drops rows that carry none of the fields.
type rule struct {
	fields []string
	strict bool
}

var rules = map[model.PlatformKind]rule{
	model.KindWorkflowOrchestrator: {fields: []string{"dag_id"}, strict: true},
	model.KindLakehouse:            {fields: []string{"cluster_id", "job_id"}},
	model.KindCloudPipeline:        {fields: []string{"pipeline_name"}},
}

// Rewrite embeds the filter in query when the connector supports it.
// Otherwise query is returned unchanged.
func Rewrite(c connector.Connector, query string, filter *model.DataSourceFilter) string {
	if filter.IsEmpty() {
		return query
	}
	rw, ok := c.(connector.QueryRewriter)
	if !ok {
		return query
	}
	return rw.RewriteQuery(query, *filter)
}

// Apply filters the rows of a successful result and recomputes RowCount. The
// input is never modified, so applying the same filter twice gives the same
// result. A Limit of 0 means no limit, as it does for the connectors.
func Apply(kind model.PlatformKind, result model.QueryResult, filter *model.DataSourceFilter) model.QueryResult {
	if filter.IsEmpty() || !result.Success || result.Rows == nil {
		return result
	}

	out := result
	rows := make([]map[string]any, 0, len(result.Rows))
	r, filtered := rules[kind]
	for _, row := range result.Rows {
		if filtered && len(filter.NamedResourceIDs) > 0 && !r.keep(row, filter) {
			continue
		}
		rows = append(rows, row)
	}
	if filter.Limit != nil && *filter.Limit > 0 && len(rows) > *filter.Limit {
		rows = rows[:*filter.Limit]
	}
	out.Rows = rows
	out.RowCount = len(rows)
	return out
}

func (r rule) keep(row map[string]any, filter *model.DataSourceFilter) bool {
	present := false
	for _, field := range r.fields {
		v, ok := row[field]
		if !ok || v == nil {
			continue
		}
		present = true
		if filter.Allows(fmt.Sprint(v)) {
			return true
		}
	}
	return !present && !r.strict
}
