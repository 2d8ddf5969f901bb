package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/core"
	"github.com/edvin/dataconnect/internal/metrics"
	"github.com/edvin/dataconnect/internal/model"
)

// IntegrationStore is the part of the integration service used by the
// health activities. *core.IntegrationService satisfies it.
type IntegrationStore interface {
	ListActive(ctx context.Context) ([]model.Integration, error)
	GetByID(ctx context.Context, id string) (*model.Integration, error)
	RecordHealth(ctx context.Context, id string, ok bool, message string, checkedAt time.Time) error
}

// IntegrationRef identifies an integration in workflow history. Config is
// left out so credentials never reach Temporal.
type IntegrationRef struct {
	ID   string
	Kind model.PlatformKind
}

// HealthCheckResult is the outcome of one scheduled connection test.
// Skipped is set when the integration was deleted or disabled after it was
// listed.
type HealthCheckResult struct {
	IntegrationID string
	Kind          model.PlatformKind
	Success       bool
	ErrorMessage  string
	Skipped       bool
	CheckedAt     time.Time
}

// Health contains the connection health monitor activities.
type Health struct {
	store    IntegrationStore
	registry *connector.Registry
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHealth(store IntegrationStore, registry *connector.Registry, logger zerolog.Logger) *Health {
	return &Health{store: store, registry: registry, logger: logger, now: time.Now}
}

// ListActiveIntegrations returns every active integration whose kind has a
// registered connector.
func (a *Health) ListActiveIntegrations(ctx context.Context) ([]IntegrationRef, error) {
	list, err := a.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]IntegrationRef, 0, len(list))
	for _, in := range list {
		if !a.registry.Has(in.Kind) {
			a.logger.Warn().Str("integration_id", in.ID).Str("kind", string(in.Kind)).
				Msg("no connector registered, skipping health check")
			continue
		}
		refs = append(refs, IntegrationRef{ID: in.ID, Kind: in.Kind})
	}
	return refs, nil
}

// TestIntegrationConnection loads an integration and tests its connection.
// A failed test is a result, not an error.
func (a *Health) TestIntegrationConnection(ctx context.Context, integrationID string) (*HealthCheckResult, error) {
	in, err := a.store.GetByID(ctx, integrationID)
	if errors.Is(err, core.ErrNotFound) {
		return &HealthCheckResult{IntegrationID: integrationID, Skipped: true, CheckedAt: a.now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load integration %s: %w", integrationID, err)
	}
	if !in.IsActive {
		return &HealthCheckResult{IntegrationID: in.ID, Kind: in.Kind, Skipped: true, CheckedAt: a.now()}, nil
	}

	res := core.TestIntegration(ctx, a.registry, in, a.logger)

	outcome := metrics.OutcomeSuccess
	if !res.Success {
		outcome = metrics.OutcomeFailure
		a.logger.Warn().Str("integration_id", in.ID).Str("kind", string(in.Kind)).
			Str("error", res.ErrorMessage).Msg("integration health check failed")
	}
	metrics.IntegrationHealthChecks.WithLabelValues(string(in.Kind), outcome).Inc()

	return &HealthCheckResult{
		IntegrationID: in.ID,
		Kind:          in.Kind,
		Success:       res.Success,
		ErrorMessage:  res.ErrorMessage,
		CheckedAt:     a.now(),
	}, nil
}

// RecordIntegrationHealth stores a health check result on the integration.
// Skipped results and integrations deleted in the meantime are ignored.
func (a *Health) RecordIntegrationHealth(ctx context.Context, result HealthCheckResult) error {
	if result.Skipped {
		return nil
	}
	err := a.store.RecordHealth(ctx, result.IntegrationID, result.Success, result.ErrorMessage, result.CheckedAt)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	return err
}
