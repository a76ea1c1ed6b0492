package namespace

import "context"

// MCP Tool wrapper methods

// FindTablesMCP is the MCP wrapper for FindTables
func (c *Cache) FindTablesMCP(ctx context.Context, args FindTablesArgs) ([]Match, error) {
	limit := DefaultLimit
	if args.Limit != nil {
		limit = *args.Limit
	}
	return c.FindTables(ctx, args.SearchTerm, limit, args.ForceRefresh), nil
}

// StatusMCP is the MCP wrapper for Status
func (c *Cache) StatusMCP(_ context.Context, _ StatusArgs) (Status, error) {
	return c.Status(), nil
}
