package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingOpener(err error) SQLOpener {
	return func(Config) (*sql.DB, error) { return nil, err }
}

func TestDatabricks_Validate(t *testing.T) {
	d := NewDatabricks(nil, zerolog.Nop())

	err := d.validate(Config{"host": "h"}, false)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "token")

	require.NoError(t, d.validate(Config{"host": "h", "token": "t"}, false))

	err = d.validate(Config{"host": "h", "token": "t"}, true)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "http_path")
}

func TestDatabricks_Hostnames(t *testing.T) {
	assert.Equal(t, "adb-1.azuredatabricks.net", databricksHostname("https://adb-1.azuredatabricks.net/"))
	assert.Equal(t, "https://adb-1.azuredatabricks.net", databricksBaseURL("adb-1.azuredatabricks.net"))
	assert.Equal(t, "http://127.0.0.1:9000", databricksBaseURL("http://127.0.0.1:9000/"))
}

func TestDatabricks_ExecuteQuery_JobRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.1/jobs/runs/list", r.URL.Path)
		assert.Equal(t, "Bearer dapi-token", r.Header.Get("Authorization"))
		assert.Equal(t, "42", r.URL.Query().Get("job_id"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "true", r.URL.Query().Get("active_only"))
		w.Write([]byte(`{"runs":[{"run_id":1,"job_id":42},{"run_id":2,"job_id":42}]}`))
	}))
	defer srv.Close()

	cfg := Config{"host": srv.URL, "token": "dapi-token", KeyFilterResourceIDs: "42", KeyFilterLimit: "2"}
	res := NewDatabricks(srv.Client(), zerolog.Nop()).ExecuteQuery(context.Background(), "jobs/runs?active_only=true", cfg)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, json.Number("42"), res.Rows[0]["job_id"])
}

func TestDatabricks_ExecuteQuery_Clusters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/clusters/list", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("limit"))
		w.Write([]byte(`{"clusters":[{"cluster_id":"0101-abc","state":"RUNNING"}]}`))
	}))
	defer srv.Close()

	cfg := Config{"host": srv.URL, "token": "t", KeyFilterLimit: "5"}
	res := NewDatabricks(srv.Client(), zerolog.Nop()).ExecuteQuery(context.Background(), "/clusters", cfg)
	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "0101-abc", res.Rows[0]["cluster_id"])
}

func TestDatabricks_ExecuteQuery_RESTFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error_code":"PERMISSION_DENIED"}`))
	}))
	defer srv.Close()

	res := NewDatabricks(srv.Client(), zerolog.Nop()).ExecuteQuery(context.Background(), "jobs", Config{"host": srv.URL, "token": "t"})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "PERMISSION_DENIED")
}

func TestDatabricks_ExecuteQuery_SQLNeedsHTTPPath(t *testing.T) {
	res := NewDatabricks(nil, zerolog.Nop()).ExecuteQuery(context.Background(), "SELECT 1", Config{"host": "h", "token": "t"})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "http_path")
}

func TestDatabricks_ExecuteQuery_OpenFailure(t *testing.T) {
	d := NewDatabricks(nil, zerolog.Nop()).WithOpener(failingOpener(errors.New("warehouse stopped")))
	res := d.ExecuteQuery(context.Background(), "SELECT 1", Config{"host": "h", "token": "t", "http_path": "/sql/1.0/warehouses/x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "warehouse stopped")
}

func TestDatabricks_ListDatabases_OpenFailure(t *testing.T) {
	d := NewDatabricks(nil, zerolog.Nop()).WithOpener(failingOpener(errors.New("boom")))
	_, err := d.ListDatabases(context.Background(), Config{"host": "h", "token": "t", "http_path": "/p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDatabricks_TestConnection_WithoutHTTPPathUsesREST(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/clusters/list", r.URL.Path)
		w.Write([]byte(`{"clusters":[]}`))
	}))
	defer srv.Close()

	res := NewDatabricks(srv.Client(), zerolog.Nop()).TestConnection(context.Background(), Config{"host": srv.URL, "token": "t"})
	assert.True(t, res.Success, res.ErrorMessage)
}

func TestQuoteIdentAndLiteral(t *testing.T) {
	assert.Equal(t, "`sales``db`", quoteIdent("sales`db", '`'))
	assert.Equal(t, `"A""B"`, quoteIdent(`A"B`, '"'))
	assert.Equal(t, "o''brien", escapeLiteral("o'brien"))
}
