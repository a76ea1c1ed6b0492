package unitycatalog

import (
	"context"

	"github.com/revodata/databricks-mcp-server/internal/jsontree"
)

// MCP Tool wrapper methods
// These methods adapt the client methods to Args/Result types for MCP integration.

// ListCatalogsMCP is the MCP wrapper for ListCatalogs
func (c *Client) ListCatalogsMCP(ctx context.Context, _ ListCatalogsArgs) (jsontree.Node, error) {
	return c.ListCatalogs(ctx)
}

// ListSchemasMCP is the MCP wrapper for ListSchemas
func (c *Client) ListSchemasMCP(ctx context.Context, args ListSchemasArgs) (jsontree.Node, error) {
	return c.ListSchemas(ctx, args.CatalogNames)
}

// ListTablesMCP is the MCP wrapper for ListTables
func (c *Client) ListTablesMCP(ctx context.Context, args ListTablesArgs) (jsontree.Node, error) {
	return c.ListTables(ctx, args.Schemas)
}

// ListAllTablesMCP is the MCP wrapper for ListAllTables
func (c *Client) ListAllTablesMCP(ctx context.Context, _ ListAllTablesArgs) (Hierarchy, error) {
	return c.ListAllTables(ctx)
}

// GetTableDetailsMCP is the MCP wrapper for GetTableDetails
func (c *Client) GetTableDetailsMCP(ctx context.Context, args GetTableDetailsArgs) (jsontree.Node, error) {
	return c.GetTableDetails(ctx, args.FullTableNames)
}
