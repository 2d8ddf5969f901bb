package connector

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/model"
)

// Factory builds a connector instance.
type Factory func() Connector

// Registry maps a platform kind to its connector factory.
type Registry struct {
	factories map[model.PlatformKind]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[model.PlatformKind]Factory)}
}

// NewDefaultRegistry registers a connector for every known platform kind.
func NewDefaultRegistry(logger zerolog.Logger) *Registry {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	r := NewRegistry()
	r.Register(model.KindWorkflowOrchestrator, func() Connector {
		return NewAirflow(httpClient, logger.With().Str("connector", "airflow").Logger())
	})
	r.Register(model.KindLakehouse, func() Connector {
		return NewDatabricks(httpClient, logger.With().Str("connector", "databricks").Logger())
	})
	r.Register(model.KindWarehouse, func() Connector {
		return NewSnowflake(logger.With().Str("connector", "snowflake").Logger())
	})
	r.Register(model.KindCloudPipeline, func() Connector {
		return NewGlue(logger.With().Str("connector", "glue").Logger())
	})
	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind model.PlatformKind, f Factory) {
	r.factories[kind] = f
}

// Create returns a connector for kind. An unregistered kind is a deployment
// bug and panics.
func (r *Registry) Create(kind model.PlatformKind) Connector {
	f, ok := r.factories[kind]
	if !ok {
		panic(fmt.Sprintf("connector: no connector registered for platform kind %q", kind))
	}
	return f()
}

// Has reports whether a connector is registered for kind.
func (r *Registry) Has(kind model.PlatformKind) bool {
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []model.PlatformKind {
	kinds := make([]model.PlatformKind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
