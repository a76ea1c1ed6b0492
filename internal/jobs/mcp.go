package jobs

import (
	"context"
	"fmt"
	"strconv"

	apierrors "github.com/revodata/databricks-mcp-server/internal/errors"
	"github.com/revodata/databricks-mcp-server/internal/jsontree"
)

// MCP Tool wrapper methods
// These methods adapt the client methods to Args/Result types for MCP integration.

// ListJobsMCP is the MCP wrapper for ListJobs
func (c *Client) ListJobsMCP(ctx context.Context, _ ListJobsArgs) (jsontree.Node, error) {
	return c.ListJobs(ctx)
}

// GetJobDetailsMCP is the MCP wrapper for GetJobDetails
func (c *Client) GetJobDetailsMCP(ctx context.Context, args GetJobDetailsArgs) (jsontree.Node, error) {
	return c.GetJobDetails(ctx, args.JobIDs)
}

// GetJobRunsMCP is the MCP wrapper for GetJobRuns. amount defaults to 1.
func (c *Client) GetJobRunsMCP(ctx context.Context, args GetJobRunsArgs) (jsontree.Node, error) {
	amount := 1
	if args.Amount != nil {
		amount = *args.Amount
	}
	if amount < 1 || amount > c.maxRunsPerJob {
		return jsontree.Node{}, apierrors.NewValidationError("amount", strconv.Itoa(amount),
			fmt.Sprintf("must be between 1 and %d", c.maxRunsPerJob))
	}
	return c.GetJobRuns(ctx, args.JobIDs, amount)
}
