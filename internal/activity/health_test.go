package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/core"
	"github.com/edvin/dataconnect/internal/model"
)

// ---------- Mocks ----------

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListActive(ctx context.Context) ([]model.Integration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Integration), args.Error(1)
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*model.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Integration), args.Error(1)
}

func (m *mockStore) RecordHealth(ctx context.Context, id string, ok bool, message string, checkedAt time.Time) error {
	return m.Called(ctx, id, ok, message, checkedAt).Error(0)
}

// pingConnector fails the connection test when the config has no host.
type pingConnector struct {
	connector.Connector
	kind model.PlatformKind
}

func (c pingConnector) Kind() model.PlatformKind { return c.kind }

func (c pingConnector) TestConnection(_ context.Context, cfg connector.Config) model.ConnectionResult {
	if cfg.Get("host") == "" {
		return model.ConnectionResult{Success: false, ErrorMessage: "host is required"}
	}
	return model.ConnectionResult{Success: true}
}

var checkedAt = time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC)

func newHealth(store IntegrationStore) *Health {
	r := connector.NewRegistry()
	r.Register(model.KindWarehouse, func() connector.Connector { return pingConnector{kind: model.KindWarehouse} })
	h := NewHealth(store, r, zerolog.Nop())
	h.now = func() time.Time { return checkedAt }
	return h
}

func warehouse(id string, cfg map[string]string) *model.Integration {
	return &model.Integration{
		ID:        id,
		Kind:      model.KindWarehouse,
		Ownership: model.CompanyOwned{CompanyID: "5"},
		Config:    cfg,
		IsActive:  true,
	}
}

// ---------- ListActiveIntegrations ----------

func TestHealth_ListActiveIntegrations(t *testing.T) {
	store := &mockStore{}
	ctx := context.Background()
	store.On("ListActive", ctx).Return([]model.Integration{
		*warehouse("int-1", nil),
		{ID: "int-2", Kind: model.KindCloudPipeline, IsActive: true},
	}, nil)

	refs, err := newHealth(store).ListActiveIntegrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []IntegrationRef{{ID: "int-1", Kind: model.KindWarehouse}}, refs)
}

func TestHealth_ListActiveIntegrations_Error(t *testing.T) {
	store := &mockStore{}
	ctx := context.Background()
	store.On("ListActive", ctx).Return(nil, errors.New("list active integrations: db down"))

	_, err := newHealth(store).ListActiveIntegrations(ctx)
	require.Error(t, err)
}

// ---------- TestIntegrationConnection ----------

func TestHealth_TestIntegrationConnection(t *testing.T) {
	store := &mockStore{}
	ctx := context.Background()
	store.On("GetByID", ctx, "ok").Return(warehouse("ok", map[string]string{"host": "acme"}), nil)
	store.On("GetByID", ctx, "bad").Return(warehouse("bad", map[string]string{}), nil)
	h := newHealth(store)

	res, err := h.TestIntegrationConnection(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, HealthCheckResult{IntegrationID: "ok", Kind: model.KindWarehouse, Success: true, CheckedAt: checkedAt}, *res)

	res, err = h.TestIntegrationConnection(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "host is required", res.ErrorMessage)
}

func TestHealth_TestIntegrationConnection_Skipped(t *testing.T) {
	store := &mockStore{}
	ctx := context.Background()
	disabled := warehouse("off", nil)
	disabled.IsActive = false
	store.On("GetByID", ctx, "gone").Return(nil, core.ErrNotFound)
	store.On("GetByID", ctx, "off").Return(disabled, nil)
	h := newHealth(store)

	for _, id := range []string{"gone", "off"} {
		res, err := h.TestIntegrationConnection(ctx, id)
		require.NoError(t, err)
		assert.True(t, res.Skipped, id)
	}
}

func TestHealth_TestIntegrationConnection_LoadError(t *testing.T) {
	store := &mockStore{}
	ctx := context.Background()
	store.On("GetByID", ctx, "int-1").Return(nil, errors.New("connection reset"))

	_, err := newHealth(store).TestIntegrationConnection(ctx, "int-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load integration int-1")
}

// ---------- RecordIntegrationHealth ----------

func TestHealth_RecordIntegrationHealth(t *testing.T) {
	store := &mockStore{}
	ctx := context.Background()
	store.On("RecordHealth", ctx, "int-1", false, "status 401", checkedAt).Return(nil)

	err := newHealth(store).RecordIntegrationHealth(ctx, HealthCheckResult{
		IntegrationID: "int-1", Success: false, ErrorMessage: "status 401", CheckedAt: checkedAt,
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestHealth_RecordIntegrationHealth_SkippedAndDeleted(t *testing.T) {
	store := &mockStore{}
	ctx := context.Background()
	store.On("RecordHealth", ctx, "gone", true, "", checkedAt).Return(core.ErrNotFound)
	h := newHealth(store)

	require.NoError(t, h.RecordIntegrationHealth(ctx, HealthCheckResult{IntegrationID: "x", Skipped: true}))
	require.NoError(t, h.RecordIntegrationHealth(ctx, HealthCheckResult{IntegrationID: "gone", Success: true, CheckedAt: checkedAt}))
	store.AssertNumberOfCalls(t, "RecordHealth", 1)
}
