package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/model"
)

const (
	airflowDefaultMaxDags = 500
	airflowPageLimit      = 100
)

// Airflow talks to the Apache Airflow stable REST API. Databases are DAGs
// and tables are the tasks of a DAG.
type Airflow struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewAirflow(httpClient *http.Client, logger zerolog.Logger) *Airflow {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Airflow{httpClient: httpClient, logger: logger}
}

func (a *Airflow) Kind() model.PlatformKind { return model.KindWorkflowOrchestrator }

func (a *Airflow) validate(cfg Config) error {
	if err := cfg.Require("base_url"); err != nil {
		return err
	}
	u, err := url.Parse(cfg.Get("base_url"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an absolute URL", ErrInvalidConfiguration)
	}
	switch airflowAuthMode(cfg) {
	case "basic":
		return cfg.Require("username", "password")
	case "token":
		return cfg.Require("token")
	default:
		return fmt.Errorf("%w: unsupported auth_mode %q", ErrInvalidConfiguration, cfg.Get("auth_mode"))
	}
}

func airflowAuthMode(cfg Config) string {
	if m := cfg.Get("auth_mode"); m != "" {
		return m
	}
	return "basic"
}

func (a *Airflow) TestConnection(ctx context.Context, cfg Config) model.ConnectionResult {
	if err := a.validate(cfg); err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
	}
	if _, err := a.get(ctx, cfg, "dags?limit=1"); err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
	}
	return model.ConnectionResult{Success: true}
}

// ListDatabases returns DAG ids, honoring search_pattern and max_dags/max_results.
func (a *Airflow) ListDatabases(ctx context.Context, cfg Config) ([]string, error) {
	if err := a.validate(cfg); err != nil {
		return nil, err
	}
	max := cfg.FirstInt(airflowDefaultMaxDags, KeyMaxDags, KeyMaxResults)
	search := cfg.Get(KeySearchPattern)

	var dagIDs []string
	for offset := 0; len(dagIDs) < max; {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(min(airflowPageLimit, max-len(dagIDs))))
		q.Set("offset", strconv.Itoa(offset))
		q.Set("order_by", "dag_id")
		if search != "" {
			q.Set("dag_id_pattern", search)
		}

		body, err := a.get(ctx, cfg, "dags?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("list dags: %w", err)
		}
		page := collectionRows(body)
		for _, row := range page {
			if id, ok := row["dag_id"].(string); ok {
				dagIDs = append(dagIDs, id)
			}
		}
		offset += len(page)
		if len(page) == 0 || offset >= totalEntries(body) {
			break
		}
	}
	return capList(dagIDs, max), nil
}

// ListTables returns the task ids of a DAG.
func (a *Airflow) ListTables(ctx context.Context, database string, cfg Config) ([]string, error) {
	if err := a.validate(cfg); err != nil {
		return nil, err
	}
	body, err := a.get(ctx, cfg, "dags/"+url.PathEscape(database)+"/tasks")
	if err != nil {
		return nil, fmt.Errorf("list tasks of %s: %w", database, err)
	}

	var taskIDs []string
	for _, row := range collectionRows(body) {
		if id, ok := row["task_id"].(string); ok {
			if search := cfg.Get(KeySearchPattern); search != "" && !containsFold(id, search) {
				continue
			}
			taskIDs = append(taskIDs, id)
		}
	}
	return capList(taskIDs, cfg.Int(KeyMaxResults, 0)), nil
}

// ExecuteQuery treats query as a resource path relative to /api/v1, e.g.
// "dags/etl/dagRuns?order_by=-execution_date&limit=5".
func (a *Airflow) ExecuteQuery(ctx context.Context, query string, cfg Config) model.QueryResult {
	start := time.Now()
	if err := a.validate(cfg); err != nil {
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}

	path := normalizeAirflowPath(query)
	if path == "" {
		return model.FailedQuery("empty resource path", elapsedMs(start))
	}

	body, err := a.get(ctx, cfg, path)
	if err != nil {
		a.logger.Warn().Err(err).Str("path", path).Msg("airflow query failed")
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}

	rows := collectionRows(body)
	if rows == nil {
		rows = []map[string]any{body}
	}
	if dagID := dagFromPath(path); dagID != "" {
		for _, row := range rows {
			if _, ok := row["dag_id"]; !ok {
				row["dag_id"] = dagID
			}
		}
	}

	return model.QueryResult{
		Success:         true,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: elapsedMs(start),
	}
}

// RewriteQuery embeds the filter in the resource path. A single allow-listed
// DAG replaces the "~" wildcard, or becomes dag_id_pattern on the DAG listing.
// A limit never raises one already present in the query.
func (a *Airflow) RewriteQuery(query string, filter model.DataSourceFilter) string {
	path, rawQuery, _ := strings.Cut(normalizeAirflowPath(query), "?")
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return query
	}

	segments := strings.Split(path, "/")
	if len(filter.NamedResourceIDs) == 1 && len(segments) > 0 && segments[0] == "dags" {
		id := filter.NamedResourceIDs[0]
		switch {
		case len(segments) == 1:
			values.Set("dag_id_pattern", id)
		case segments[1] == "~":
			segments[1] = url.PathEscape(id)
		}
	}

	if filter.Limit != nil && *filter.Limit > 0 {
		limit := *filter.Limit
		if existing, err := strconv.Atoi(values.Get("limit")); err == nil && existing > 0 && existing < limit {
			limit = existing
		}
		values.Set("limit", strconv.Itoa(limit))
	}

	out := strings.Join(segments, "/")
	if len(values) > 0 {
		out += "?" + values.Encode()
	}
	return out
}

func (a *Airflow) get(ctx context.Context, cfg Config, path string) (map[string]any, error) {
	endpoint := strings.TrimRight(cfg.Get("base_url"), "/") + "/api/v1/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if airflowAuthMode(cfg) == "token" {
		req.Header.Set("Authorization", "Bearer "+cfg.Get("token"))
	} else {
		req.SetBasicAuth(cfg.Get("username"), cfg.Get("password"))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airflow request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("airflow %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode airflow response: %w", err)
	}
	return body, nil
}

func normalizeAirflowPath(query string) string {
	p := strings.TrimSpace(query)
	p = strings.TrimLeft(p, "/")
	p = strings.TrimPrefix(p, "api/v1/")
	return p
}

// dagFromPath returns the DAG named by a "dags/{id}/..." path.
func dagFromPath(path string) string {
	p, _, _ := strings.Cut(path, "?")
	segments := strings.Split(p, "/")
	if len(segments) < 2 || segments[0] != "dags" || segments[1] == "~" || segments[1] == "" {
		return ""
	}
	id, err := url.PathUnescape(segments[1])
	if err != nil {
		return segments[1]
	}
	return id
}

// airflowCollections are the array fields Airflow's REST API uses for list
// responses.
var airflowCollections = []string{
	"dags", "dag_runs", "task_instances", "tasks", "import_errors",
	"event_logs", "pools", "variables", "connections", "xcom_entries",
	"datasets", "dag_warnings",
}

// collectionRows returns the items of a list response. A known collection
// field wins; otherwise a body carrying total_entries is treated as a list
// and its first array-of-objects field is used. Anything else is a single
// resource and yields nil.
func collectionRows(body map[string]any) []map[string]any {
	for _, k := range airflowCollections {
		if items, ok := body[k].([]any); ok {
			return objectItems(items)
		}
	}
	if _, ok := body["total_entries"]; !ok {
		return nil
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		items, ok := body[k].([]any)
		if !ok {
			continue
		}
		if rows := objectItems(items); len(rows) > 0 || len(items) == 0 {
			return rows
		}
	}
	return nil
}

func objectItems(items []any) []map[string]any {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			rows = append(rows, obj)
		}
	}
	return rows
}

func totalEntries(body map[string]any) int {
	switch v := body["total_entries"].(type) {
	case json.Number:
		n, err := v.Int64()
		if err == nil {
			return int(n)
		}
	case float64:
		return int(v)
	}
	return 0
}
