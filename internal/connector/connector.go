package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/edvin/dataconnect/internal/model"
)

// ErrInvalidConfiguration is returned when a connector cannot use its config map.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Overlay and filter keys understood by connectors.
const (
	KeySearchPattern     = "search_pattern"
	KeyMaxResults        = "max_results"
	KeyMaxDags           = "max_dags"
	KeyFilterResourceIDs = "filter_resource_ids"
	KeyFilterLimit       = "filter_limit"
)

// Connector is the uniform contract every platform kind implements.
// TestConnection and ExecuteQuery report remote failures in their result and
// never return errors.
type Connector interface {
	Kind() model.PlatformKind
	TestConnection(ctx context.Context, cfg Config) model.ConnectionResult
	ListDatabases(ctx context.Context, cfg Config) ([]string, error)
	ListTables(ctx context.Context, database string, cfg Config) ([]string, error)
	ExecuteQuery(ctx context.Context, query string, cfg Config) model.QueryResult
}

// QueryRewriter is implemented by connectors whose query strings can embed a
// data-source filter.
type QueryRewriter interface {
	RewriteQuery(query string, filter model.DataSourceFilter) string
}

// Config is the opaque per-integration configuration map.
type Config map[string]string

// Get returns the trimmed value for key.
func (c Config) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Int returns key parsed as a positive int, or fallback.
func (c Config) Int(key string, fallback int) int {
	v := c.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// FirstInt returns the first of keys that parses as a positive int.
func (c Config) FirstInt(fallback int, keys ...string) int {
	for _, k := range keys {
		if n := c.Int(k, 0); n > 0 {
			return n
		}
	}
	return fallback
}

// Require fails with ErrInvalidConfiguration listing every missing key.
func (c Config) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if c.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// With returns a copy of c with overlay applied on top.
func (c Config) With(overlay map[string]string) Config {
	out := make(Config, len(c)+len(overlay))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// WithFilter merges a data-source filter into a copy of c.
func (c Config) WithFilter(f *model.DataSourceFilter) Config {
	if f.IsEmpty() {
		return c
	}
	overlay := map[string]string{}
	if len(f.NamedResourceIDs) > 0 {
		overlay[KeyFilterResourceIDs] = strings.Join(f.NamedResourceIDs, ",")
	}
	if f.Limit != nil {
		overlay[KeyFilterLimit] = strconv.Itoa(*f.Limit)
	}
	return c.With(overlay)
}

// FilterResourceIDs returns the allow-list merged by WithFilter.
func (c Config) FilterResourceIDs() []string {
	raw := c.Get(KeyFilterResourceIDs)
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// FilterLimit returns the merged row limit, or 0 when unlimited.
func (c Config) FilterLimit() int {
	return c.Int(KeyFilterLimit, 0)
}

// Keys returns the config keys in sorted order. Used for logging without values.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func capList(items []string, n int) []string {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
