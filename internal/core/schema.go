package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/metrics"
	"github.com/edvin/dataconnect/internal/schemacache"
)

const (
	searchCap  = 50
	listingCap = 500
)

// SchemaService lists databases and tables of integrations through a
// shared cache.
type SchemaService struct {
	integrations IntegrationLookup
	registry     *connector.Registry
	resolver     *access.Resolver
	cache        schemacache.Store
	logger       zerolog.Logger
}

// NewSchemaService creates a new SchemaService.
func NewSchemaService(integrations IntegrationLookup, registry *connector.Registry, resolver *access.Resolver, cache schemacache.Store, logger zerolog.Logger) *SchemaService {
	return &SchemaService{
		integrations: integrations,
		registry:     registry,
		resolver:     resolver,
		cache:        cache,
		logger:       logger.With().Str("component", "schema-service").Logger(),
	}
}

// ListDatabases returns database names of an integration, optionally
// narrowed by a substring search. A limit of 0 selects the default cap.
func (s *SchemaService) ListDatabases(ctx context.Context, p access.Principal, integrationID, search string, limit int) ([]string, error) {
	key := schemacache.DatabasesKey(integrationID, search, limit)
	return s.list(ctx, p, key, "databases", func(conn connector.Connector, cfg connector.Config) ([]string, error) {
		return conn.ListDatabases(ctx, cfg)
	})
}

// ListTables returns table names within database.
func (s *SchemaService) ListTables(ctx context.Context, p access.Principal, integrationID, database, search string, limit int) ([]string, error) {
	key := schemacache.TablesKey(integrationID, database, search, limit)
	return s.list(ctx, p, key, "tables", func(conn connector.Connector, cfg connector.Config) ([]string, error) {
		return conn.ListTables(ctx, database, cfg)
	})
}

func (s *SchemaService) list(ctx context.Context, p access.Principal, key schemacache.Key, listing string,
	fetch func(connector.Connector, connector.Config) ([]string, error)) ([]string, error) {
	in, err := authorize(ctx, s.integrations, s.resolver, p, key.IntegrationID)
	if err != nil {
		return nil, err
	}

	if names, ok := s.cache.Get(ctx, key); ok {
		metrics.SchemaCacheLookups.WithLabelValues(listing, "hit").Inc()
		return names, nil
	}
	metrics.SchemaCacheLookups.WithLabelValues(listing, "miss").Inc()

	conn := s.registry.Create(in.Kind)
	cfg := connector.Config(in.Config).With(overlay(key.Search, key.Limit))

	names, err := s.fetch(in.Kind.String(), listing, func() ([]string, error) { return fetch(conn, cfg) })
	if err != nil {
		s.logger.Warn().Err(err).
			Str("integration_id", in.ID).
			Str("kind", in.Kind.String()).
			Str("listing", listing).
			Msg("schema discovery failed")
		return nil, fmt.Errorf("list %s of integration %s: %w", listing, in.ID, err)
	}
	if names == nil {
		names = []string{}
	}
	s.cache.Set(ctx, key, names)
	return names, nil
}

func (s *SchemaService) fetch(kind, listing string, fn func() ([]string, error)) (names []string, err error) {
	operation := "list_" + listing
	defer func() {
		outcome := metrics.OutcomeSuccess
		if r := recover(); r != nil {
			names, err = nil, fmt.Errorf("connector failure: %v", r)
			outcome = metrics.OutcomePanic
		} else if err != nil {
			outcome = metrics.OutcomeFailure
		}
		metrics.ConnectorRequests.WithLabelValues(kind, operation, outcome).Inc()
	}()
	return fn()
}

// overlay builds the per-call config keys for a listing. With a search term
// the cap defaults to 50, without one to 500.
func overlay(search string, limit int) map[string]string {
	capped := listingCap
	if search != "" {
		capped = searchCap
	}
	if limit > 0 {
		capped = limit
	}
	o := map[string]string{
		connector.KeyMaxResults: strconv.Itoa(capped),
		connector.KeyMaxDags:    strconv.Itoa(capped),
	}
	if search != "" {
		o[connector.KeySearchPattern] = search
	}
	return o
}
