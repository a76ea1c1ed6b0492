// Package jobs reads job definitions and run history from the Databricks
// Jobs API. Every response is projected through its mask before it leaves the
// package.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/revodata/databricks-mcp-server/internal/aggregate"
	"github.com/revodata/databricks-mcp-server/internal/base"
	"github.com/revodata/databricks-mcp-server/internal/jsontree"
	"github.com/revodata/databricks-mcp-server/internal/mask"
	"github.com/revodata/databricks-mcp-server/tracing"
)

const (
	// DefaultMaxRunsPerJob bounds the amount argument of GetJobRuns
	DefaultMaxRunsPerJob = 25

	// runsPageSize is the largest page jobs/runs/list accepts
	runsPageSize = 25
)

// Client reads jobs through a shared fetcher
type Client struct {
	api           base.Fetcher
	masks         *mask.Set
	logger        *slog.Logger
	maxRunsPerJob int
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMaxRunsPerJob caps the runs returned per job
func WithMaxRunsPerJob(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRunsPerJob = n
		}
	}
}

// NewClient creates a jobs client
func NewClient(api base.Fetcher, masks *mask.Set, opts ...ClientOption) *Client {
	c := &Client{
		api:           api,
		masks:         masks,
		logger:        slog.Default(),
		maxRunsPerJob: DefaultMaxRunsPerJob,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxRunsPerJob returns the configured upper bound for GetJobRuns
func (c *Client) MaxRunsPerJob() int {
	return c.maxRunsPerJob
}

// ListJobs returns every job in the workspace, all pages, masked as summaries
func (c *Client) ListJobs(ctx context.Context) (jsontree.Node, error) {
	ctx, span := tracing.StartSpan(ctx, "jobs.list")
	defer span.End()

	jobs, err := c.api.FetchAll(ctx, "jobs/list", "jobs", 0)
	if err != nil {
		tracing.RecordError(span, err)
		return jsontree.Node{}, fmt.Errorf("list jobs: %w", err)
	}
	return mask.Apply(jsontree.ArrayNode(jobs...), c.masks.JobSummary), nil
}

// GetJobDetails fetches the definition of each job concurrently. The result
// is an array in the order of ids.
func (c *Client) GetJobDetails(ctx context.Context, ids []int64) (jsontree.Node, error) {
	ctx, span := tracing.StartSpan(ctx, "jobs.get")
	defer span.End()
	tracing.AddFanoutAttributes(span, "jobs", len(ids))

	details, err := aggregate.Map(ctx, ids, c.getJob)
	if err != nil {
		tracing.RecordError(span, err)
		return jsontree.Node{}, fmt.Errorf("get job details: %w", err)
	}
	return jsontree.ArrayNode(details...), nil
}

func (c *Client) getJob(ctx context.Context, id int64) (jsontree.Node, error) {
	endpoint := base.AppendQuery("jobs/get", url.Values{"job_id": {strconv.FormatInt(id, 10)}})
	job, err := c.api.Fetch(ctx, endpoint, nil)
	if err != nil {
		return jsontree.Node{}, err
	}
	return mask.Apply(job, c.masks.JobDetail), nil
}

// GetJobRuns fetches the amount most recent runs of each job concurrently.
// The result is an array with one array of runs per job, in the order of ids.
func (c *Client) GetJobRuns(ctx context.Context, ids []int64, amount int) (jsontree.Node, error) {
	if amount < 1 {
		amount = 1
	}
	if amount > c.maxRunsPerJob {
		amount = c.maxRunsPerJob
	}

	ctx, span := tracing.StartSpan(ctx, "jobs.runs")
	defer span.End()
	tracing.AddFanoutAttributes(span, "job_runs", len(ids))

	runs, err := aggregate.Map(ctx, ids, func(ctx context.Context, id int64) (jsontree.Node, error) {
		return c.getRuns(ctx, id, amount)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return jsontree.Node{}, fmt.Errorf("get job runs: %w", err)
	}
	return jsontree.ArrayNode(runs...), nil
}

func (c *Client) getRuns(ctx context.Context, id int64, amount int) (jsontree.Node, error) {
	endpoint := base.AppendQuery("jobs/runs/list", url.Values{
		"job_id": {strconv.FormatInt(id, 10)},
		"limit":  {strconv.Itoa(min(amount, runsPageSize))},
	})
	runs, err := c.api.FetchAll(ctx, endpoint, "runs", amount)
	if err != nil {
		return jsontree.Node{}, err
	}
	return mask.Apply(jsontree.ArrayNode(runs...), c.masks.JobRun), nil
}
