package intctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/edvin/dataconnect/internal/model"
	"github.com/edvin/dataconnect/internal/runhistory"
)

// Runs refreshes the latest run and recent history of every watched
// workflow and prints them. With a positive interval it keeps polling until
// ctx is cancelled, so the history carries runs across polls.
func Runs(ctx context.Context, configPath string, interval time.Duration, out io.Writer) error {
	var cfg WatchConfig
	if err := loadYAML(configPath, &cfg); err != nil {
		return err
	}
	if cfg.IntegrationID == "" || len(cfg.Workflows) == 0 {
		return errors.New("integration_id and workflows are required")
	}
	c, err := newClient(cfg.APIURL, cfg.APIKey)
	if err != nil {
		return err
	}

	cache := runhistory.New(c, runhistory.Options{PageSize: cfg.PageSize})
	return watch(ctx, cache, cfg.IntegrationID, cfg.Workflows, interval, out)
}

func watch(ctx context.Context, cache *runhistory.Cache, integrationID string, workflows []string, interval time.Duration, out io.Writer) error {
	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for {
		err := cache.RefreshAll(ctx, integrationID, workflows)
		printRuns(out, cache, workflows)
		if ticker == nil {
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "refresh: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printRuns(out io.Writer, cache *runhistory.Cache, workflows []string) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKFLOW\tSTATE\tRUN\tLOGICAL DATE\tHISTORY")
	for _, id := range workflows {
		p, ok := cache.Pointer(id)
		if !ok {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\n", id)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, p.Latest.State, dash(p.Latest.RunID), formatTime(p.Latest.LogicalDate), history(p.History))
	}
	tw.Flush()
}

func history(runs []model.RunSummary) string {
	if len(runs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(runs))
	for _, r := range runs {
		parts = append(parts, r.State)
	}
	return strings.Join(parts, ",")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
