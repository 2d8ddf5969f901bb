package connector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/rs/zerolog"

	"github.com/edvin/dataconnect/internal/model"
)

const (
	glueDefaultMaxResults = 500
	glueDefaultRunLimit   = 25
	gluePageSize          = 200
)

// GlueAPI is the subset of the Glue client used by the connector.
type GlueAPI interface {
	GetJobs(ctx context.Context, params *glue.GetJobsInput, optFns ...func(*glue.Options)) (*glue.GetJobsOutput, error)
	GetJobRuns(ctx context.Context, params *glue.GetJobRunsInput, optFns ...func(*glue.Options)) (*glue.GetJobRunsOutput, error)
}

// GlueClientFactory builds a Glue client for a connector config.
type GlueClientFactory func(ctx context.Context, cfg Config) (GlueAPI, error)

// Glue exposes AWS Glue jobs. Databases are job names and tables are the
// recent run ids of a job.
type Glue struct {
	logger    zerolog.Logger
	newClient GlueClientFactory
}

func NewGlue(logger zerolog.Logger) *Glue {
	return &Glue{logger: logger, newClient: newGlueClient}
}

// WithClientFactory replaces the Glue client factory. Used by tests.
func (g *Glue) WithClientFactory(f GlueClientFactory) *Glue {
	g.newClient = f
	return g
}

func (g *Glue) Kind() model.PlatformKind { return model.KindCloudPipeline }

func (g *Glue) validate(cfg Config) error {
	if err := cfg.Require("region"); err != nil {
		return err
	}
	switch glueAuthMode(cfg) {
	case "keys":
		return cfg.Require("access_key_id", "secret_access_key")
	case "default":
		return nil
	default:
		return fmt.Errorf("%w: unsupported auth_mode %q", ErrInvalidConfiguration, cfg.Get("auth_mode"))
	}
}

func glueAuthMode(cfg Config) string {
	if m := cfg.Get("auth_mode"); m != "" {
		return m
	}
	return "keys"
}

func newGlueClient(ctx context.Context, cfg Config) (GlueAPI, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Get("region"))}
	if glueAuthMode(cfg) == "keys" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Get("access_key_id"), cfg.Get("secret_access_key"), cfg.Get("session_token"),
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return glue.NewFromConfig(awsCfg, func(o *glue.Options) {
		if endpoint := cfg.Get("endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (g *Glue) client(ctx context.Context, cfg Config) (GlueAPI, error) {
	if err := g.validate(cfg); err != nil {
		return nil, err
	}
	return g.newClient(ctx, cfg)
}

func (g *Glue) TestConnection(ctx context.Context, cfg Config) model.ConnectionResult {
	c, err := g.client(ctx, cfg)
	if err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: err.Error()}
	}
	if _, err := c.GetJobs(ctx, &glue.GetJobsInput{MaxResults: aws.Int32(1)}); err != nil {
		return model.ConnectionResult{Success: false, ErrorMessage: fmt.Sprintf("glue get jobs: %v", err)}
	}
	return model.ConnectionResult{Success: true}
}

// ListDatabases returns job names containing search_pattern.
func (g *Glue) ListDatabases(ctx context.Context, cfg Config) ([]string, error) {
	c, err := g.client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	max := cfg.Int(KeyMaxResults, glueDefaultMaxResults)
	search := cfg.Get(KeySearchPattern)

	jobs, err := g.jobs(ctx, c, func(name string) bool {
		return search == "" || containsFold(name, search)
	}, max)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, aws.ToString(j.Name))
	}
	return names, nil
}

// ListTables returns the recent run ids of a job.
func (g *Glue) ListTables(ctx context.Context, database string, cfg Config) ([]string, error) {
	c, err := g.client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runs, err := g.runs(ctx, c, database, cfg.Int(KeyMaxResults, glueDefaultRunLimit))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, aws.ToString(r.Id))
	}
	return ids, nil
}

// ExecuteQuery understands "jobs" and "jobs/{name}/runs".
func (g *Glue) ExecuteQuery(ctx context.Context, query string, cfg Config) model.QueryResult {
	start := time.Now()
	c, err := g.client(ctx, cfg)
	if err != nil {
		return model.FailedQuery(err.Error(), elapsedMs(start))
	}

	path, _, _ := strings.Cut(strings.Trim(strings.TrimSpace(query), "/"), "?")
	segments := strings.Split(path, "/")
	limit := cfg.FilterLimit()

	var rows []map[string]any
	switch {
	case len(segments) == 1 && segments[0] == "jobs":
		allowed := cfg.FilterResourceIDs()
		jobs, err := g.jobs(ctx, c, func(name string) bool {
			return len(allowed) == 0 || containsString(allowed, name)
		}, limit)
		if err != nil {
			return g.fail(err, start)
		}
		for _, j := range jobs {
			rows = append(rows, glueJobRow(j))
		}
	case len(segments) == 3 && segments[0] == "jobs" && segments[2] == "runs":
		name, err := url.PathUnescape(segments[1])
		if err != nil {
			return model.FailedQuery(fmt.Sprintf("invalid job name: %v", err), elapsedMs(start))
		}
		if limit == 0 {
			limit = glueDefaultRunLimit
		}
		runs, err := g.runs(ctx, c, name, limit)
		if err != nil {
			return g.fail(err, start)
		}
		for _, r := range runs {
			rows = append(rows, glueRunRow(name, r))
		}
	default:
		return model.FailedQuery(fmt.Sprintf("unsupported glue query %q", query), elapsedMs(start))
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	return model.QueryResult{
		Success:         true,
		Rows:            rows,
		RowCount:        len(rows),
		ExecutionTimeMs: elapsedMs(start),
	}
}

func (g *Glue) fail(err error, start time.Time) model.QueryResult {
	g.logger.Warn().Err(err).Msg("glue query failed")
	return model.FailedQuery(err.Error(), elapsedMs(start))
}

// jobs pages through GetJobs keeping the jobs keep accepts, up to max (0 for all).
func (g *Glue) jobs(ctx context.Context, c GlueAPI, keep func(string) bool, max int) ([]gluetypes.Job, error) {
	var out []gluetypes.Job
	var token *string
	for {
		resp, err := c.GetJobs(ctx, &glue.GetJobsInput{MaxResults: aws.Int32(gluePageSize), NextToken: token})
		if err != nil {
			return nil, fmt.Errorf("glue get jobs: %w", err)
		}
		for _, j := range resp.Jobs {
			if keep(aws.ToString(j.Name)) {
				out = append(out, j)
				if max > 0 && len(out) >= max {
					return out, nil
				}
			}
		}
		if aws.ToString(resp.NextToken) == "" {
			return out, nil
		}
		token = resp.NextToken
	}
}

func (g *Glue) runs(ctx context.Context, c GlueAPI, jobName string, max int) ([]gluetypes.JobRun, error) {
	resp, err := c.GetJobRuns(ctx, &glue.GetJobRunsInput{
		JobName:    aws.String(jobName),
		MaxResults: aws.Int32(int32(min(max, gluePageSize))),
	})
	if err != nil {
		return nil, fmt.Errorf("glue get job runs for %s: %w", jobName, err)
	}
	return capRuns(resp.JobRuns, max), nil
}

func capRuns(runs []gluetypes.JobRun, n int) []gluetypes.JobRun {
	if n > 0 && len(runs) > n {
		return runs[:n]
	}
	return runs
}

func glueJobRow(j gluetypes.Job) map[string]any {
	row := map[string]any{
		"pipeline_name": aws.ToString(j.Name),
		"description":   aws.ToString(j.Description),
		"role":          aws.ToString(j.Role),
		"glue_version":  aws.ToString(j.GlueVersion),
		"worker_type":   string(j.WorkerType),
		"max_retries":   j.MaxRetries,
	}
	if j.CreatedOn != nil {
		row["created_on"] = j.CreatedOn.UTC()
	}
	if j.LastModifiedOn != nil {
		row["last_modified_on"] = j.LastModifiedOn.UTC()
	}
	return row
}

func glueRunRow(jobName string, r gluetypes.JobRun) map[string]any {
	row := map[string]any{
		"pipeline_name":  jobName,
		"run_id":         aws.ToString(r.Id),
		"state":          string(r.JobRunState),
		"attempt":        r.Attempt,
		"execution_time": r.ExecutionTime,
		"error_message":  aws.ToString(r.ErrorMessage),
		"trigger_name":   aws.ToString(r.TriggerName),
	}
	if r.StartedOn != nil {
		row["started_on"] = r.StartedOn.UTC()
	}
	if r.CompletedOn != nil {
		row["completed_on"] = r.CompletedOn.UTC()
	}
	return row
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
