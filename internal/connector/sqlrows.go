package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/edvin/dataconnect/internal/model"
)

// scanRowsToMaps scans rows into maps keyed by column name. A positive
// maxRows stops scanning early.
func scanRowsToMaps(rows *sql.Rows, maxRows int) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		if maxRows > 0 && len(results) >= maxRows {
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

// queryNames runs a SHOW-style statement and returns the named column, or the
// first column when the name is absent.
func queryNames(ctx context.Context, db *sql.DB, stmt, column string, limit int) ([]string, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	maps, err := scanRowsToMaps(rows, limit)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(maps))
	for _, m := range maps {
		v, ok := m[column]
		if !ok && len(cols) > 0 {
			v = m[cols[0]]
		}
		if v == nil {
			continue
		}
		names = append(names, fmt.Sprint(v))
	}
	return names, nil
}

// runSQL executes a statement and shapes the outcome as a QueryResult.
func runSQL(ctx context.Context, db *sql.DB, query string, cfg Config) model.QueryResult {
	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return model.FailedQuery(fmt.Sprintf("execute query: %v", err), elapsedMs(start))
	}
	defer rows.Close()

	out, err := scanRowsToMaps(rows, cfg.FilterLimit())
	if err != nil {
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}
	return model.QueryResult{
		Success:         true,
		Rows:            out,
		RowCount:        len(out),
		ExecutionTimeMs: elapsedMs(start),
	}
}
