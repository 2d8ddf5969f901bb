package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/datasource"
	"github.com/edvin/dataconnect/internal/metrics"
	"github.com/edvin/dataconnect/internal/model"
)

// IntegrationLookup loads live integrations by id.
type IntegrationLookup interface {
	GetByID(ctx context.Context, id string) (*model.Integration, error)
}

// QueryService runs card queries against integrations on behalf of a caller.
type QueryService struct {
	integrations IntegrationLookup
	registry     *connector.Registry
	resolver     *access.Resolver
	logger       zerolog.Logger
}

// NewQueryService creates a new QueryService.
func NewQueryService(integrations IntegrationLookup, registry *connector.Registry, resolver *access.Resolver, logger zerolog.Logger) *QueryService {
	return &QueryService{
		integrations: integrations,
		registry:     registry,
		resolver:     resolver,
		logger:       logger.With().Str("component", "query-service").Logger(),
	}
}

// authorize loads an integration and checks the caller may use it.
func authorize(ctx context.Context, integrations IntegrationLookup, resolver *access.Resolver, p access.Principal, id string) (*model.Integration, error) {
	in, err := integrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !resolver.Allowed(ctx, p, in) {
		return nil, fmt.Errorf("integration %s: %w", id, ErrUnauthorized)
	}
	return in, nil
}

// Execute runs query against an integration. The filter, when present, is
// embedded in the query where the connector supports it, merged into the
// connector config, and applied to the returned rows. Remote failures are
// reported in the result; only ErrNotFound and ErrUnauthorized are errors.
func (s *QueryService) Execute(ctx context.Context, p access.Principal, integrationID, query string, filter *model.DataSourceFilter) (*model.QueryResult, error) {
	in, err := authorize(ctx, s.integrations, s.resolver, p, integrationID)
	if err != nil {
		return nil, err
	}

	conn := s.registry.Create(in.Kind)
	q := datasource.Rewrite(conn, query, filter)
	cfg := connector.Config(in.Config).WithFilter(filter)

	start := time.Now()
	result := s.call(in, "execute_query", func() model.QueryResult {
		return conn.ExecuteQuery(ctx, q, cfg)
	})
	result = datasource.Apply(in.Kind, result, filter)

	event := s.logger.Info()
	if !result.Success {
		event = s.logger.Warn().Str("error", result.ErrorMessage)
	}
	event.
		Str("integration_id", in.ID).
		Str("kind", in.Kind.String()).
		Bool("filtered", !filter.IsEmpty()).
		Int("row_count", result.RowCount).
		Dur("duration", time.Since(start)).
		Msg("query executed")

	return &result, nil
}

// TestConnection checks connectivity of an integration the caller may use.
func (s *QueryService) TestConnection(ctx context.Context, p access.Principal, integrationID string) (*model.ConnectionResult, error) {
	in, err := authorize(ctx, s.integrations, s.resolver, p, integrationID)
	if err != nil {
		return nil, err
	}
	res := TestIntegration(ctx, s.registry, in, s.logger)
	return &res, nil
}

// TestIntegration runs TestConnection on the connector for in, recovering
// from connector panics.
func TestIntegration(ctx context.Context, registry *connector.Registry, in *model.Integration, logger zerolog.Logger) (res model.ConnectionResult) {
	conn := registry.Create(in.Kind)
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("integration_id", in.ID).Msg("connector panicked")
			res = model.ConnectionResult{Success: false, ErrorMessage: fmt.Sprintf("connector failure: %v", r)}
			outcome = metrics.OutcomePanic
		} else if !res.Success {
			outcome = metrics.OutcomeFailure
		}
		metrics.ConnectorRequests.WithLabelValues(in.Kind.String(), "test_connection", outcome).Inc()
		metrics.ConnectorDuration.WithLabelValues(in.Kind.String(), "test_connection").Observe(time.Since(start).Seconds())
	}()
	return conn.TestConnection(ctx, connector.Config(in.Config))
}

// call runs a connector operation, converting a panic into a failed result
// and recording metrics.
func (s *QueryService) call(in *model.Integration, operation string, fn func() model.QueryResult) (res model.QueryResult) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("integration_id", in.ID).Str("kind", in.Kind.String()).Msg("connector panicked")
			res = model.FailedQuery(fmt.Sprintf("connector failure: %v", r), float64(time.Since(start).Microseconds())/1000)
			outcome = metrics.OutcomePanic
		} else if !res.Success {
			outcome = metrics.OutcomeFailure
		}
		metrics.ConnectorRequests.WithLabelValues(in.Kind.String(), operation, outcome).Inc()
		metrics.ConnectorDuration.WithLabelValues(in.Kind.String(), operation).Observe(time.Since(start).Seconds())
	}()
	return fn()
}

// Executor binds a QueryService to one principal so it can drive a
// run-history cache in process.
type Executor struct {
	Service   *QueryService
	Principal access.Principal
}

func (e Executor) ExecuteQuery(ctx context.Context, integrationID, query string, filter *model.DataSourceFilter) (*model.QueryResult, error) {
	return e.Service.Execute(ctx, e.Principal, integrationID, query, filter)
}
