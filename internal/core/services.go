package core

import (
	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/access"
	"github.com/edvin/dataconnect/internal/connector"
	"github.com/edvin/dataconnect/internal/schemacache"
)

type Services struct {
	Integration *IntegrationService
	Query       *QueryService
	Schema      *SchemaService
	APIKey      *APIKeyService
	Registry    *connector.Registry
	Resolver    *access.Resolver
}

func NewServices(db DB, registry *connector.Registry, cache schemacache.Store, logger zerolog.Logger) *Services {
	integrations := NewIntegrationService(db)
	resolver := access.NewResolver(access.StaticGroups{})
	return &Services{
		Integration: integrations,
		Query:       NewQueryService(integrations, registry, resolver, logger),
		Schema:      NewSchemaService(integrations, registry, resolver, cache, logger),
		APIKey:      NewAPIKeyService(db),
		Registry:    registry,
		Resolver:    resolver,
	}
}
