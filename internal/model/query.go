package model

// ConnectionResult is the outcome of a connection test.
type ConnectionResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// QueryResult is the normalized result of a query against any platform.
// Remote failures are reported with Success=false, never as Go errors.
type QueryResult struct {
	Success         bool             `json:"success"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	Rows            []map[string]any `json:"rows,omitempty"`
	RowCount        int              `json:"row_count"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
}

// FailedQuery builds a failure result.
func FailedQuery(msg string, elapsedMs float64) QueryResult {
	return QueryResult{Success: false, ErrorMessage: msg, ExecutionTimeMs: elapsedMs}
}

// DataSourceFilter restricts which named resources and how many rows a card
// query may return.
type DataSourceFilter struct {
	NamedResourceIDs []string `json:"named_resource_ids,omitempty" validate:"omitempty,dive,required"`
	Limit            *int     `json:"limit,omitempty" validate:"omitempty,min=0"`
}

// IsEmpty reports whether the filter restricts nothing.
func (f *DataSourceFilter) IsEmpty() bool {
	return f == nil || (len(f.NamedResourceIDs) == 0 && f.Limit == nil)
}

// Allows reports whether id is in the allow-list. An empty allow-list allows
// everything.
func (f *DataSourceFilter) Allows(id string) bool {
	if f == nil || len(f.NamedResourceIDs) == 0 {
		return true
	}
	for _, allowed := range f.NamedResourceIDs {
		if allowed == id {
			return true
		}
	}
	return false
}
