package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/model"
)

// ---------- Integration store ----------

type mockIntegrations struct {
	mock.Mock
}

func (m *mockIntegrations) Create(ctx context.Context, in *model.Integration) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockIntegrations) GetByID(ctx context.Context, id string) (*model.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Integration), args.Error(1)
}

func (m *mockIntegrations) UpdateConfig(ctx context.Context, id string, cfg map[string]string) error {
	return m.Called(ctx, id, cfg).Error(0)
}

func (m *mockIntegrations) SetActive(ctx context.Context, id string, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *mockIntegrations) SoftDelete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockIntegrations) ListAvailable(ctx context.Context, companyID string) ([]model.Integration, error) {
	args := m.Called(ctx, companyID)
	list, _ := args.Get(0).([]model.Integration)
	return list, args.Error(1)
}

func (m *mockIntegrations) ListAll(ctx context.Context) ([]model.Integration, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Integration)
	return list, args.Error(1)
}

// ---------- Query runner ----------

type mockQueries struct {
	mock.Mock
}

func (m *mockQueries) Execute(ctx context.Context, p access.Principal, id, query string, filter *model.DataSourceFilter) (*model.QueryResult, error) {
	args := m.Called(ctx, p, id, query, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueryResult), args.Error(1)
}

func (m *mockQueries) TestConnection(ctx context.Context, p access.Principal, id string) (*model.ConnectionResult, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConnectionResult), args.Error(1)
}

// ---------- Schema lister ----------

type mockSchema struct {
	mock.Mock
}

func (m *mockSchema) ListDatabases(ctx context.Context, p access.Principal, id, search string, limit int) ([]string, error) {
	args := m.Called(ctx, p, id, search, limit)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockSchema) ListTables(ctx context.Context, p access.Principal, id, database, search string, limit int) ([]string, error) {
	args := m.Called(ctx, p, id, database, search, limit)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

// ---------- API key store ----------

type mockAPIKeys struct {
	mock.Mock
}

func (m *mockAPIKeys) Create(ctx context.Context, name string, p access.Principal) (*model.APIKey, string, error) {
	args := m.Called(ctx, name, p)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*model.APIKey), args.String(1), args.Error(2)
}

func (m *mockAPIKeys) GetByID(ctx context.Context, id string) (*model.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *mockAPIKeys) List(ctx context.Context) ([]model.APIKey, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]model.APIKey)
	return keys, args.Error(1)
}

func (m *mockAPIKeys) Revoke(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
