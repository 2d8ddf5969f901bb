package core

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/model"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- Integration scan helper ----------

// integrationScan fills the scanIntegration destinations from in.
func integrationScan(in model.Integration, cfg string) func(dest ...any) error {
	return func(dest ...any) error {
		rec := model.RecordOf(in.Ownership)
		*(dest[0].(*string)) = in.ID
		*(dest[1].(*string)) = in.Name
		*(dest[2].(*string)) = string(in.Kind)
		*(dest[3].(*string)) = rec.Type
		*(dest[4].(**string)) = rec.CompanyID
		*(dest[5].(**string)) = rec.ClientID
		*(dest[6].(**string)) = rec.GroupID
		*(dest[7].(*[]string)) = rec.AllowlistedCompanyIDs
		*(dest[8].(*[]byte)) = []byte(cfg)
		*(dest[9].(*bool)) = in.IsActive
		*(dest[10].(*bool)) = in.IsDeleted
		*(dest[11].(**time.Time)) = in.LastCheckedAt
		*(dest[12].(**bool)) = in.LastCheckOK
		*(dest[13].(**string)) = in.LastCheckError
		*(dest[14].(*time.Time)) = in.CreatedAt
		*(dest[15].(*time.Time)) = in.UpdatedAt
		return nil
	}
}

// ---------- Integration lookup ----------

// staticLookup serves integrations from a map.
type staticLookup map[string]*model.Integration

func (l staticLookup) GetByID(_ context.Context, id string) (*model.Integration, error) {
	in, ok := l[id]
	if !ok || in.IsDeleted {
		return nil, ErrNotFound
	}
	return in, nil
}

// ---------- Fake connector ----------

// fakeConnector records calls and returns canned results.
type fakeConnector struct {
	mu        sync.Mutex
	kind      model.PlatformKind
	result    model.QueryResult
	databases []string
	tables    []string
	listErr   error
	panicMsg  string

	queries       []string
	configs       []connector.Config
	databaseCalls int
	tableCalls    int
}

func (f *fakeConnector) Kind() model.PlatformKind { return f.kind }

func (f *fakeConnector) TestConnection(_ context.Context, cfg connector.Config) model.ConnectionResult {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if cfg.Get("host") == "" {
		return model.ConnectionResult{Success: false, ErrorMessage: "host is required"}
	}
	return model.ConnectionResult{Success: true}
}

func (f *fakeConnector) ListDatabases(_ context.Context, cfg connector.Config) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.databaseCalls++
	f.configs = append(f.configs, cfg)
	return f.databases, f.listErr
}

func (f *fakeConnector) ListTables(_ context.Context, _ string, cfg connector.Config) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tableCalls++
	f.configs = append(f.configs, cfg)
	return f.tables, f.listErr
}

func (f *fakeConnector) ExecuteQuery(_ context.Context, query string, cfg connector.Config) model.QueryResult {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result
}

// rewritingConnector adds query rewriting to fakeConnector.
type rewritingConnector struct {
	*fakeConnector
}

func (r rewritingConnector) RewriteQuery(query string, filter model.DataSourceFilter) string {
	if len(filter.NamedResourceIDs) == 1 {
		return query + "?dag_id=" + filter.NamedResourceIDs[0]
	}
	return query
}

// registryWith returns a registry serving conn for its kind.
func registryWith(conn connector.Connector) *connector.Registry {
	r := connector.NewRegistry()
	r.Register(conn.Kind(), func() connector.Connector { return conn })
	return r
}

// ---------- Fake clock ----------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
