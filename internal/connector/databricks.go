package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	dbsql "github.com/databricks/databricks-sql-go"
	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/model"
)

const databricksDefaultMaxResults = 500

// databricksREST maps query paths to the REST endpoint and the field that
// holds the collection.
var databricksREST = map[string]struct {
	endpoint string
	field    string
}{
	"jobs":      {"/api/2.1/jobs/list", "jobs"},
	"jobs/runs": {"/api/2.1/jobs/runs/list", "runs"},
	"clusters":  {"/api/2.0/clusters/list", "clusters"},
}

// SQLOpener opens a database handle for a connector config.
type SQLOpener func(cfg Config) (*sql.DB, error)

// Databricks runs SQL through a SQL warehouse and reads jobs and clusters
// from the workspace REST API.
type Databricks struct {
	httpClient *http.Client
	logger     zerolog.Logger
	open       SQLOpener
}

func NewDatabricks(httpClient *http.Client, logger zerolog.Logger) *Databricks {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Databricks{httpClient: httpClient, logger: logger, open: openDatabricks}
}

// WithOpener replaces the SQL opener. Used by tests.
func (d *Databricks) WithOpener(open SQLOpener) *Databricks {
	d.open = open
	return d
}

func (d *Databricks) Kind() model.PlatformKind { return model.KindLakehouse }

func (d *Databricks) validate(cfg Config, needSQL bool) error {
	if err := cfg.Require("host", "token"); err != nil {
		return err
	}
	if needSQL {
		return cfg.Require("http_path")
	}
	return nil
}

func openDatabricks(cfg Config) (*sql.DB, error) {
	opts := []dbsql.ConnOption{
		dbsql.WithServerHostname(databricksHostname(cfg.Get("host"))),
		dbsql.WithPort(cfg.Int("port", 443)),
		dbsql.WithHTTPPath(cfg.Get("http_path")),
		dbsql.WithAccessToken(cfg.Get("token")),
	}
	if catalog, schema := cfg.Get("catalog"), cfg.Get("schema"); catalog != "" || schema != "" {
		opts = append(opts, dbsql.WithInitialNamespace(catalog, schema))
	}
	conn, err := dbsql.NewConnector(opts...)
	if err != nil {
		return nil, fmt.Errorf("create databricks connector: %w", err)
	}
	return sql.OpenDB(conn), nil
}

func databricksHostname(host string) string {
	h := strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return strings.TrimRight(h, "/")
}

func databricksBaseURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	return "https://" + strings.TrimRight(host, "/")
}

// TestConnection pings the SQL warehouse when http_path is set, otherwise it
// lists clusters.
func (d *Databricks) TestConnection(ctx context.Context, cfg Config) model.ConnectionResult {
	if err := d.validate(cfg, false); err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
	}

	if cfg.Get("http_path") == "" {
		if _, err := d.get(ctx, cfg, databricksREST["clusters"].endpoint, nil); err != nil {
			return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
		}
		return model.ConnectionResult{Success: true}
	}

	db, err := d.open(cfg)
	if err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: fmt.Sprintf("ping databricks: %v", err)}
	}
	return model.ConnectionResult{Success: true}
}

// ListDatabases returns schema names.
func (d *Databricks) ListDatabases(ctx context.Context, cfg Config) ([]string, error) {
	if err := d.validate(cfg, true); err != nil {
		return nil, err
	}
	db, err := d.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	stmt := "SHOW SCHEMAS"
	if catalog := cfg.Get("catalog"); catalog != "" {
		stmt += " IN " + quoteIdent(catalog, '`')
	}
	if search := cfg.Get(KeySearchPattern); search != "" {
		stmt += " LIKE '*" + escapeLiteral(search) + "*'"
	}

	names, err := queryNames(ctx, db, stmt, "databaseName", cfg.Int(KeyMaxResults, databricksDefaultMaxResults))
	if err != nil {
		return nil, fmt.Errorf("list databricks schemas: %w", err)
	}
	return names, nil
}

// ListTables returns the tables of a schema.
func (d *Databricks) ListTables(ctx context.Context, database string, cfg Config) ([]string, error) {
	if err := d.validate(cfg, true); err != nil {
		return nil, err
	}
	db, err := d.open(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	stmt := "SHOW TABLES IN " + quoteIdent(database, '`')
	if search := cfg.Get(KeySearchPattern); search != "" {
		stmt += " LIKE '*" + escapeLiteral(search) + "*'"
	}
	names, err := queryNames(ctx, db, stmt, "tableName", cfg.Int(KeyMaxResults, databricksDefaultMaxResults))
	if err != nil {
		return nil, fmt.Errorf("list databricks tables in %s: %w", database, err)
	}
	return names, nil
}

// ExecuteQuery sends jobs, jobs/runs and clusters paths to the REST API and
// anything else to the SQL warehouse.
func (d *Databricks) ExecuteQuery(ctx context.Context, query string, cfg Config) model.QueryResult {
	start := time.Now()
	path, rawQuery, _ := strings.Cut(strings.Trim(strings.TrimSpace(query), "/"), "?")
	if rest, ok := databricksREST[strings.ToLower(path)]; ok {
		if err := d.validate(cfg, false); err != nil {
			return model.FailedQuery(err.Error(), elapsedMs(start))
		}
		return d.executeREST(ctx, cfg, rest.endpoint, rest.field, rawQuery, start)
	}

	if err := d.validate(cfg, true); err != nil {
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}
	db, err := d.open(cfg)
	if err != nil {
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}
	defer db.Close()
	return runSQL(ctx, db, query, cfg)
}

func (d *Databricks) executeREST(ctx context.Context, cfg Config, endpoint, field, rawQuery string, start time.Time) model.QueryResult {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return model.FailedQuery(fmt.Sprintf("parse query parameters: %v", err), elapsedMs(start))
	}
	ids := cfg.FilterResourceIDs()
	if field == "runs" && len(ids) == 1 {
		if _, err := strconv.ParseInt(ids[0], 10, 64); err == nil {
			params.Set("job_id", ids[0])
		}
	}
	if limit := cfg.FilterLimit(); limit > 0 && field != "clusters" {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := d.get(ctx, cfg, endpoint, params)
	if err != nil {
		d.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("databricks request failed")
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}

	rows := make([]map[string]any, 0)
	if items, ok := body[field].([]any); ok {
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				rows = append(rows, obj)
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

func (d *Databricks) get(ctx context.Context, cfg Config, endpoint string, params url.Values) (map[string]any, error) {
	u := databricksBaseURL(cfg.Get("host")) + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Get("token"))
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("databricks request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("databricks %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode databricks response: %w", err)
	}
	return body, nil
}

func quoteIdent(name string, quote rune) string {
	q := string(quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
