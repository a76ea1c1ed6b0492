package namespace

// FindTablesArgs contains parameters for a fuzzy table search
type FindTablesArgs struct {
	SearchTerm   string `json:"search_term" jsonschema:"Text to match against catalog.schema.table names" validate:"required,max=256"`
	Limit        *int   `json:"limit,omitempty" jsonschema:"Maximum matches to return (default 10, max 100)" validate:"omitempty,min=1,max=100"`
	ForceRefresh bool   `json:"force_refresh,omitempty" jsonschema:"Walk the namespace even if the cached listing is fresh"`
}

// StatusArgs takes no parameters
type StatusArgs struct{}
