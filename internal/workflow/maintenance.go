package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// CleanupAuditLogsWorkflow prunes audit_logs rows older than retentionDays.
// It runs daily from the audit-log-retention-cron schedule.
func CleanupAuditLogsWorkflow(ctx workflow.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("retention must be at least one day, got %d", retentionDays), "InvalidRetention", nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	})

	var deleted int64
	if err := workflow.ExecuteActivity(ctx, "DeleteOldAuditLogs", retentionDays).Get(ctx, &deleted); err != nil {
		return 0, err
	}

	workflow.GetLogger(ctx).Info("pruned audit logs", "deleted", deleted, "retentionDays", retentionDays)
	return deleted, nil
}
