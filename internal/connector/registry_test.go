package connector

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/dataconnect/internal/model"
)

func TestDefaultRegistry_CoversAllKinds(t *testing.T) {
	r := NewDefaultRegistry(zerolog.Nop())

	assert.ElementsMatch(t, model.AllPlatformKinds, r.Kinds())
	for _, kind := range model.AllPlatformKinds {
		c := r.Create(kind)
		require.NotNil(t, c)
		assert.Equal(t, kind, c.Kind())
	}
}

func TestRegistry_CreateUnknownPanics(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Has(model.KindWarehouse))
	assert.Panics(t, func() { r.Create(model.KindWarehouse) })
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(model.KindWarehouse, func() Connector { return NewSnowflake(zerolog.Nop()) })
	r.Register(model.KindWarehouse, func() Connector { return NewGlue(zerolog.Nop()) })
	assert.Equal(t, model.KindCloudPipeline, r.Create(model.KindWarehouse).Kind())
}

func TestConfig_Helpers(t *testing.T) {
	c := Config{"max_dags": "20", "max_results": "bogus", "host": "  h  "}

	assert.Equal(t, "h", c.Get("host"))
	assert.Equal(t, 20, c.Int("max_dags", 5))
	assert.Equal(t, 5, c.Int("max_results", 5))
	assert.Equal(t, 20, c.FirstInt(1, "max_results", "max_dags"))
	assert.Equal(t, 1, c.FirstInt(1, "missing"))
	assert.Equal(t, []string{"host", "max_dags", "max_results"}, c.Keys())

	err := c.Require("host", "token", "region")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "token, region")
}

func TestConfig_WithFilterDoesNotMutate(t *testing.T) {
	base := Config{"base_url": "http://af"}
	merged := base.WithFilter(&model.DataSourceFilter{NamedResourceIDs: []string{"x", "y"}, Limit: intPtr(3)})

	assert.Equal(t, []string{"x", "y"}, merged.FilterResourceIDs())
	assert.Equal(t, 3, merged.FilterLimit())
	assert.Equal(t, "http://af", merged.Get("base_url"))
	assert.NotContains(t, base, KeyFilterResourceIDs)
	assert.Equal(t, 0, base.FilterLimit())

	assert.Equal(t, base, base.WithFilter(nil))
}
