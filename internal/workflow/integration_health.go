package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/dataconnect/internal/activity"
)

// CheckIntegrationHealthWorkflow runs on a cron and tests the connection of
// every active integration. Tests run in parallel. Each outcome is recorded
// on its integration, and one integration failing never stops the others.
func CheckIntegrationHealthWorkflow(ctx workflow.Context) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	// Connector calls may take up to their own HTTP timeout, and a failed
	// test is already a result.
	testCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	})

	var refs []activity.IntegrationRef
	if err := workflow.ExecuteActivity(ctx, "ListActiveIntegrations").Get(ctx, &refs); err != nil {
		return fmt.Errorf("list active integrations: %w", err)
	}

	futures := make([]workflow.Future, len(refs))
	for i, ref := range refs {
		futures[i] = workflow.ExecuteActivity(testCtx, "TestIntegrationConnection", ref.ID)
	}

	logger := workflow.GetLogger(ctx)
	failed := 0
	for i, f := range futures {
		var res activity.HealthCheckResult
		if err := f.Get(ctx, &res); err != nil {
			logger.Warn("integration health check errored", "integrationID", refs[i].ID, "error", err)
			continue
		}
		if res.Skipped {
			continue
		}
		if !res.Success {
			failed++
		}
		if err := workflow.ExecuteActivity(ctx, "RecordIntegrationHealth", res).Get(ctx, nil); err != nil {
			logger.Error("failed to record integration health", "integrationID", res.IntegrationID, "error", err)
		}
	}

	logger.Info("integration health check complete", "checked", len(refs), "failed", failed)
	return nil
}
