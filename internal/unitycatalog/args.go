package unitycatalog

// ListCatalogsArgs takes no parameters
type ListCatalogsArgs struct{}

// ListSchemasArgs contains the catalogs whose schemas to list
type ListSchemasArgs struct {
	CatalogNames []string `json:"catalog_names" jsonschema:"Catalog names (1-50)" validate:"required,min=1,max=50,unique,dive,required"`
}

// ListTablesArgs contains the schemas whose tables to list
type ListTablesArgs struct {
	Schemas []string `json:"schemas" jsonschema:"Schemas as catalog.schema (1-50)" validate:"required,min=1,max=50,unique,dive,required"`
}

// ListAllTablesArgs takes no parameters
type ListAllTablesArgs struct{}

// GetTableDetailsArgs contains fully-qualified table names
type GetTableDetailsArgs struct {
	FullTableNames []string `json:"full_table_names" jsonschema:"Tables as catalog.schema.table (1-50)" validate:"required,min=1,max=50,dive,required"`
}
