package intctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/dataconnect/internal/api/request"
	"github.com/edvin/dataconnect/internal/client"
	"github.com/edvin/dataconnect/internal/model"
	"github.com/edvin/dataconnect/internal/runhistory"
)

// ---------- Fake API ----------

type fakeAPI struct {
	mu       sync.Mutex
	existing string
	created  []request.CreateIntegration
	tested   []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/integrations":
		w.Write([]byte(`{"items":[` + f.existing + `]}`))
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/integrations":
		var req request.CreateIntegration
		json.NewDecoder(r.Body).Decode(&req)
		f.created = append(f.created, req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id": "new-" + req.Name, "name": req.Name, "platform_kind": req.Kind, "ownership": req.Ownership,
		})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/test"):
		f.tested = append(f.tested, r.URL.Path)
		w.Write([]byte(`{"success":false,"error_message":"status 401"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "def.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ---------- Seed ----------

func TestSeed_CreatesAndSkipsExisting(t *testing.T) {
	api := &fakeAPI{existing: `{"id":"int-1","name":"Prod Airflow","platform_kind":"workflow_orchestrator","ownership":{"type":"company","company_id":"5"}}`}
	srv := httptest.NewServer(api)
	defer srv.Close()

	path := writeFile(t, `
api_url: `+srv.URL+`
api_key: dck_seed
integrations:
  - name: Prod Airflow
    platform_kind: workflow_orchestrator
    company: "5"
    config:
      base_url: https://airflow.example.test
  - name: Shared Warehouse
    platform_kind: warehouse
    client: c1
    allowlisted_companies: ["5", "9"]
    test: true
    config:
      account: acme
`)

	var out bytes.Buffer
	require.NoError(t, Seed(context.Background(), path, &out))

	require.Len(t, api.created, 1)
	created := api.created[0]
	assert.Equal(t, "Shared Warehouse", created.Name)
	assert.Equal(t, "warehouse", created.Kind)
	assert.Equal(t, model.OwnerTypeClient, created.Ownership.Type)
	assert.Equal(t, []string{"5", "9"}, created.Ownership.AllowlistedCompanyIDs)
	assert.Equal(t, map[string]string{"account": "acme"}, created.Config)
	require.NotNil(t, created.IsActive)
	assert.True(t, *created.IsActive)

	assert.Equal(t, []string{"/api/v1/integrations/new-Shared Warehouse/test"}, api.tested)
	assert.Contains(t, out.String(), `Integration "Prod Airflow": exists (int-1, skipping)`)
	assert.Contains(t, out.String(), "Connection test: FAILED: status 401")
}

func TestSeed_MissingAPIKey(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	path := writeFile(t, "api_url: http://localhost:1\nintegrations: []\n")

	err := Seed(context.Background(), path, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), APIKeyEnv)
}

func TestSeed_InvalidYAML(t *testing.T) {
	err := Seed(context.Background(), writeFile(t, "integrations: [unclosed"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestIntegrationDef_Ownership(t *testing.T) {
	tests := []struct {
		name    string
		def     IntegrationDef
		wantErr string
	}{
		{"company", IntegrationDef{Company: "5"}, ""},
		{"group", IntegrationDef{Group: "g1"}, ""},
		{"client with allowlist", IntegrationDef{Client: "c1", Allowlist: []string{"5"}}, ""},
		{"no owner", IntegrationDef{}, "exactly one"},
		{"two owners", IntegrationDef{Company: "5", Group: "g1"}, "exactly one"},
		{"allowlist without client", IntegrationDef{Company: "5", Allowlist: []string{"9"}}, "requires a client"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := tt.def.ownership()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, err = rec.Ownership()
			assert.NoError(t, err)
		})
	}
}

// ---------- Runs ----------

// runsExecutor serves a fixed dagRuns batch per workflow.
type runsExecutor struct {
	batches map[string][]map[string]any
}

func (e runsExecutor) ExecuteQuery(_ context.Context, _ string, query string, filter *model.DataSourceFilter) (*model.QueryResult, error) {
	id := filter.NamedResourceIDs[0]
	rows, ok := e.batches[id]
	if !ok {
		return nil, errors.New("unknown workflow " + id)
	}
	return &model.QueryResult{Success: true, Rows: rows, RowCount: len(rows)}, nil
}

func TestWatch_PrintsLatestAndHistory(t *testing.T) {
	exec := runsExecutor{batches: map[string][]map[string]any{
		"etl": {
			{"dag_run_id": "r2", "state": "running", "logical_date": "2024-06-02T00:00:00Z"},
			{"dag_run_id": "r1", "state": "success", "logical_date": "2024-06-01T00:00:00Z"},
		},
		"idle": {},
	}}
	cache := runhistory.New(exec, runhistory.Options{})

	var out bytes.Buffer
	require.NoError(t, watch(context.Background(), cache, "int-1", []string{"etl", "idle"}, 0, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"WORKFLOW", "STATE", "RUN", "LOGICAL", "DATE", "HISTORY"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"etl", "running", "r2", "2024-06-02T00:00:00Z", "success"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"idle", model.RunStateNoRuns, "-", "-", "-"}, strings.Fields(lines[2]))
}

func TestWatch_ReturnsErrorWhenNotPolling(t *testing.T) {
	cache := runhistory.New(runsExecutor{batches: map[string][]map[string]any{}}, runhistory.Options{})

	var out bytes.Buffer
	err := watch(context.Background(), cache, "int-1", []string{"missing"}, 0, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "missing")
}

func TestRuns_RequiresWorkflows(t *testing.T) {
	err := Runs(context.Background(), writeFile(t, "integration_id: int-1\n"), 0, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflows are required")
}

// ---------- Tasks ----------

type taskExecutor struct {
	queries []string
}

func (e *taskExecutor) ExecuteQuery(_ context.Context, _ string, query string, _ *model.DataSourceFilter) (*model.QueryResult, error) {
	e.queries = append(e.queries, query)
	if strings.HasSuffix(query, "/tasks") {
		return &model.QueryResult{Success: true, Rows: []map[string]any{
			{"task_id": "load"},
			{"task_id": "extract", "downstream_task_ids": []any{"load"}},
		}}, nil
	}
	return &model.QueryResult{Success: true, Rows: []map[string]any{
		{"task_id": "extract", "try_number": float64(1), "state": "success", "start_date": "2024-06-01T08:00:00Z"},
		{"task_id": "load", "try_number": float64(1), "state": "failed", "start_date": "2024-06-01T08:05:00Z"},
		{"task_id": "load", "try_number": float64(2), "state": "running", "start_date": "2024-06-01T08:10:00Z"},
	}}, nil
}

func TestFetchTaskRows(t *testing.T) {
	exec := &taskExecutor{}

	rows, err := FetchTaskRows(context.Background(), exec, "int-1", "etl", "manual__2024-06-01")
	require.NoError(t, err)

	assert.Equal(t, []string{"dags/etl/tasks", "dags/etl/dagRuns/manual__2024-06-01/taskInstances"}, exec.queries)
	require.Len(t, rows, 2)
	assert.Equal(t, "extract", rows[0].TaskID)
	assert.Equal(t, "load", rows[1].TaskID)
	assert.Equal(t, "running", rows[1].State)
	assert.Equal(t, 2, rows[1].TryNumber)
	assert.Equal(t, 2, rows[1].Attempts)

	var out bytes.Buffer
	printTasks(&out, rows)
	assert.Contains(t, out.String(), "TASK")
	assert.Contains(t, out.String(), "running")
}

func TestFetchTaskRows_RemoteFailure(t *testing.T) {
	exec := failingExecutor{msg: "airflow dags/etl/tasks: status 404"}

	_, err := FetchTaskRows(context.Background(), exec, "int-1", "etl", "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

type failingExecutor struct{ msg string }

func (e failingExecutor) ExecuteQuery(context.Context, string, string, *model.DataSourceFilter) (*model.QueryResult, error) {
	return &model.QueryResult{Success: false, ErrorMessage: e.msg}, nil
}

var _ runhistory.Executor = (*client.Client)(nil)
