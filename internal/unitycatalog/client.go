// Package unitycatalog reads the Unity Catalog namespace (catalogs, schemas
// and tables) and table metadata from a Databricks workspace.
package unitycatalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/revodata/databricks-mcp-server/internal/aggregate"
	"github.com/revodata/databricks-mcp-server/internal/base"
	"github.com/revodata/databricks-mcp-server/internal/jsontree"
	"github.com/revodata/databricks-mcp-server/internal/mask"
	"github.com/revodata/databricks-mcp-server/tracing"
)

const (
	// SystemCreator marks catalogs Databricks manages itself
	SystemCreator = "System user"

	// InformationSchema is present in every catalog and never listed
	InformationSchema = "information_schema"
)

// Client reads Unity Catalog through a shared fetcher
type Client struct {
	api    base.Fetcher
	masks  *mask.Set
	logger *slog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Unity Catalog client
func NewClient(api base.Fetcher, masks *mask.Set, opts ...ClientOption) *Client {
	c := &Client{
		api:    api,
		masks:  masks,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// schemaRef identifies one schema during the walk
type schemaRef struct {
	Catalog string
	Schema  string
}

func (r schemaRef) String() string { return r.Catalog + Separator + r.Schema }

// catalogs returns the raw non-system catalogs
func (c *Client) catalogs(ctx context.Context) ([]jsontree.Node, error) {
	items, err := c.api.FetchAll(ctx, "unity-catalog/catalogs", "catalogs", 0)
	if err != nil {
		return nil, err
	}
	out := make([]jsontree.Node, 0, len(items))
	for _, item := range items {
		if item.StringField("created_by") == SystemCreator {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// schemas returns the raw schemas of one catalog without information_schema
func (c *Client) schemas(ctx context.Context, catalog string) ([]jsontree.Node, error) {
	endpoint := base.AppendQuery("unity-catalog/schemas", url.Values{"catalog_name": {catalog}})
	items, err := c.api.FetchAll(ctx, endpoint, "schemas", 0)
	if err != nil {
		return nil, err
	}
	out := make([]jsontree.Node, 0, len(items))
	for _, item := range items {
		if item.StringField("name") == InformationSchema {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// tables returns the raw tables of one schema. Column and property payloads
// are omitted when only names are needed.
func (c *Client) tables(ctx context.Context, ref schemaRef, namesOnly bool) ([]jsontree.Node, error) {
	params := url.Values{
		"catalog_name": {ref.Catalog},
		"schema_name":  {ref.Schema},
	}
	if namesOnly {
		params.Set("omit_columns", "true")
		params.Set("omit_properties", "true")
	}
	return c.api.FetchAll(ctx, base.AppendQuery("unity-catalog/tables", params), "tables", 0)
}

// ListCatalogs returns the non-system catalogs, masked
func (c *Client) ListCatalogs(ctx context.Context) (jsontree.Node, error) {
	ctx, span := tracing.StartSpan(ctx, "unitycatalog.catalogs")
	defer span.End()

	items, err := c.catalogs(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return jsontree.Node{}, fmt.Errorf("list catalogs: %w", err)
	}
	return mask.Apply(jsontree.ArrayNode(items...), c.masks.Catalog), nil
}

// ListSchemas returns the schemas of each catalog, keyed by catalog name in
// input order
func (c *Client) ListSchemas(ctx context.Context, catalogs []string) (jsontree.Node, error) {
	ctx, span := tracing.StartSpan(ctx, "unitycatalog.schemas")
	defer span.End()
	tracing.AddFanoutAttributes(span, "schemas", len(catalogs))

	perCatalog, err := aggregate.Map(ctx, catalogs, func(ctx context.Context, catalog string) (jsontree.Node, error) {
		items, err := c.schemas(ctx, catalog)
		if err != nil {
			return jsontree.Node{}, err
		}
		return mask.Apply(jsontree.ArrayNode(items...), c.masks.Schema), nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return jsontree.Node{}, fmt.Errorf("list schemas: %w", err)
	}

	fields := make([]jsontree.Field, len(catalogs))
	for i, catalog := range catalogs {
		fields[i] = jsontree.Field{Key: catalog, Value: perCatalog[i]}
	}
	return jsontree.ObjectNode(fields...), nil
}

// ListTables returns the tables of each "catalog.schema", keyed by that name
// in input order
func (c *Client) ListTables(ctx context.Context, schemas []string) (jsontree.Node, error) {
	refs := make([]schemaRef, len(schemas))
	for i, name := range schemas {
		parts, err := SplitName(name, 2)
		if err != nil {
			return jsontree.Node{}, err
		}
		refs[i] = schemaRef{Catalog: parts[0], Schema: parts[1]}
	}

	ctx, span := tracing.StartSpan(ctx, "unitycatalog.tables")
	defer span.End()
	tracing.AddFanoutAttributes(span, "tables", len(refs))

	perSchema, err := aggregate.Map(ctx, refs, func(ctx context.Context, ref schemaRef) (jsontree.Node, error) {
		items, err := c.tables(ctx, ref, false)
		if err != nil {
			return jsontree.Node{}, err
		}
		return mask.Apply(jsontree.ArrayNode(items...), c.masks.Table), nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return jsontree.Node{}, fmt.Errorf("list tables: %w", err)
	}

	fields := make([]jsontree.Field, len(schemas))
	for i, name := range schemas {
		fields[i] = jsontree.Field{Key: name, Value: perSchema[i]}
	}
	return jsontree.ObjectNode(fields...), nil
}

// ListTableNames walks catalogs, then the schemas of every catalog, then the
// tables of every schema, each level fanned out concurrently. It returns
// fully-qualified catalog.schema.table names in walk order.
func (c *Client) ListTableNames(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "unitycatalog.walk")
	defer span.End()

	names, err := c.walk(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("walk namespace: %w", err)
	}
	tracing.AddFanoutAttributes(span, "namespace", len(names))
	return names, nil
}

func (c *Client) walk(ctx context.Context) ([]string, error) {
	catalogItems, err := c.catalogs(ctx)
	if err != nil {
		return nil, err
	}
	catalogs := make([]string, 0, len(catalogItems))
	for _, item := range catalogItems {
		catalogs = append(catalogs, mask.Apply(item, c.masks.Catalog).StringField("name"))
	}

	refs, err := aggregate.FlatMap(ctx, catalogs, func(ctx context.Context, catalog string) ([]schemaRef, error) {
		items, err := c.schemas(ctx, catalog)
		if err != nil {
			return nil, err
		}
		out := make([]schemaRef, 0, len(items))
		for _, item := range items {
			out = append(out, schemaRef{Catalog: catalog, Schema: mask.Apply(item, c.masks.Schema).StringField("name")})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	return aggregate.FlatMap(ctx, refs, func(ctx context.Context, ref schemaRef) ([]string, error) {
		items, err := c.tables(ctx, ref, true)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			table := mask.Apply(item, c.masks.Table)
			name, err := JoinName(ref.Catalog, ref.Schema, table.StringField("name"))
			if err != nil {
				return nil, err
			}
			out = append(out, name)
		}
		return out, nil
	})
}

// ListAllTables returns the whole namespace as {catalog: {schema: [table]}}
func (c *Client) ListAllTables(ctx context.Context) (Hierarchy, error) {
	names, err := c.ListTableNames(ctx)
	if err != nil {
		return nil, err
	}
	return BuildHierarchy(names)
}

// GetTableDetails fetches metadata for each catalog.schema.table concurrently,
// in input order
func (c *Client) GetTableDetails(ctx context.Context, names []string) (jsontree.Node, error) {
	for _, name := range names {
		if _, err := SplitName(name, 3); err != nil {
			return jsontree.Node{}, err
		}
	}

	ctx, span := tracing.StartSpan(ctx, "unitycatalog.table_details")
	defer span.End()
	tracing.AddFanoutAttributes(span, "table_details", len(names))

	details, err := aggregate.Map(ctx, names, func(ctx context.Context, name string) (jsontree.Node, error) {
		table, err := c.api.Fetch(ctx, "unity-catalog/tables/"+url.PathEscape(name), nil)
		if err != nil {
			return jsontree.Node{}, err
		}
		return mask.Apply(table, c.masks.TableDetail), nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return jsontree.Node{}, fmt.Errorf("get table details: %w", err)
	}
	return jsontree.ArrayNode(details...), nil
}
