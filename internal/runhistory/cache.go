// Package runhistory keeps the latest run and a short continuous history per
// workflow across repeated polls.
package runhistory

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/dataconnect/internal/model"
)

const (
	// MaxHistory is the number of previous runs kept per workflow.
	MaxHistory      = 5
	DefaultPageSize = 10
)

// Executor runs a query against an integration.
type Executor interface {
	ExecuteQuery(ctx context.Context, integrationID, query string, filter *model.DataSourceFilter) (*model.QueryResult, error)
}

// Pointer is the cached state of one workflow. History is most recent first
// and never contains Latest.
type Pointer struct {
	Latest  model.RunSummary
	History []model.RunSummary
}

type State int

const (
	Unknown State = iota
	HasLatest
	HasLatestAndHistory
)

func (s State) String() string {
	switch s {
	case HasLatest:
		return "has_latest"
	case HasLatestAndHistory:
		return "has_latest_and_history"
	default:
		return "unknown"
	}
}

type Options struct {
	// PageSize is the number of runs fetched per workflow.
	PageSize int
}

// Cache holds run pointers for any number of workflows. It is safe for
// concurrent use. Each pointer update is a single map assignment, so a fetch
// for one workflow never affects another.
type Cache struct {
	executor Executor
	pageSize int

	mu       sync.RWMutex
	pointers map[string]Pointer
}

func New(executor Executor, opts Options) *Cache {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Cache{
		executor: executor,
		pageSize: opts.PageSize,
		pointers: make(map[string]Pointer),
	}
}

// Pointer returns a copy of the state for workflowID.
func (c *Cache) Pointer(workflowID string) (Pointer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pointers[workflowID]
	if !ok {
		return Pointer{}, false
	}
	return Pointer{Latest: p.Latest, History: append([]model.RunSummary(nil), p.History...)}, true
}

func (c *Cache) State(workflowID string) State {
	p, ok := c.Pointer(workflowID)
	switch {
	case !ok:
		return Unknown
	case len(p.History) == 0:
		return HasLatest
	default:
		return HasLatestAndHistory
	}
}

// Clear drops every pointer.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointers = make(map[string]Pointer)
}

// Reconcile merges a time-descending batch of runs into the pointer for
// workflowID and returns the new pointer.
//
// On the first fetch, after a "no_runs" placeholder, or when the latest run
// id is unchanged, history is the rest of the batch. When it changed, the
// previous latest is carried to the front of the cached history so it stays
// visible between polls.
func (c *Cache) Reconcile(workflowID string, batch []model.RunSummary) Pointer {
	newLatest := model.NoRuns(workflowID)
	if len(batch) > 0 {
		newLatest = batch[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, hadPrev := c.pointers[workflowID]

	var history []model.RunSummary
	if !hadPrev || prev.Latest.State == model.RunStateNoRuns || prev.Latest.RunID == newLatest.RunID {
		if len(batch) > 1 {
			history = without(batch[1:], newLatest.RunID)
		}
	} else {
		carried := without(prev.History, prev.Latest.RunID, newLatest.RunID)
		history = append([]model.RunSummary{prev.Latest}, carried...)
	}
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}

	next := Pointer{Latest: newLatest, History: history}
	c.pointers[workflowID] = next
	return Pointer{Latest: next.Latest, History: append([]model.RunSummary(nil), history...)}
}

// Refresh fetches recent runs of one workflow and reconciles them.
func (c *Cache) Refresh(ctx context.Context, integrationID, workflowID string) (Pointer, error) {
	limit := c.pageSize
	query := fmt.Sprintf("dags/%s/dagRuns?order_by=-execution_date&limit=%d", url.PathEscape(workflowID), limit)
	filter := &model.DataSourceFilter{NamedResourceIDs: []string{workflowID}, Limit: &limit}

	res, err := c.executor.ExecuteQuery(ctx, integrationID, query, filter)
	if err != nil {
		return Pointer{}, fmt.Errorf("fetch runs for %s: %w", workflowID, err)
	}
	if !res.Success {
		return Pointer{}, fmt.Errorf("fetch runs for %s: %s", workflowID, res.ErrorMessage)
	}

	return c.Reconcile(workflowID, SummariesFromRows(workflowID, res.Rows)), nil
}

// RefreshAll refreshes every workflow concurrently and waits for all of them.
// A failing fetch does not stop the others; the first error is returned.
func (c *Cache) RefreshAll(ctx context.Context, integrationID string, workflowIDs []string) error {
	var g errgroup.Group
	for _, id := range workflowIDs {
		g.Go(func() error {
			_, err := c.Refresh(ctx, integrationID, id)
			return err
		})
	}
	return g.Wait()
}

func without(runs []model.RunSummary, ids ...string) []model.RunSummary {
	out := make([]model.RunSummary, 0, len(runs))
	for _, r := range runs {
		skip := false
		for _, id := range ids {
			if r.RunID == id {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, r)
		}
	}
	return out
}
