package tools

// AllTools contains all tool specifications for the Databricks MCP server.
// Tools are organized by service for easier maintenance.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// JOBS TOOLS
	// ==========================================================================
	{
		Name:     "databricks_list_jobs",
		Method:   "ListJobs",
		Title:    "List Jobs",
		Category: "list",
		Service:  ServiceJobs,
		Description: `List every job defined in the Databricks workspace.

USE WHEN: User asks "which jobs exist", "show me all jobs", "find the job that loads X".

NOT FOR: Full job settings (use databricks_get_job_details) or run history (use databricks_get_job_runs).

RETURNS: Job ID, name, description and creation time for every job, across all pages.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "databricks_get_job_details",
		Method:   "GetJobDetails",
		Title:    "Get Job Details",
		Category: "read",
		Service:  ServiceJobs,
		Description: `Get the definition of one or more jobs: tasks, clusters, schedule, parameters.

USE WHEN: User asks "what does job 123 run", "which notebook does this job use", "how is job X scheduled".

NOT FOR: Listing jobs (use databricks_list_jobs) or checking if a job succeeded (use databricks_get_job_runs).

PARAMETERS:
- job_ids: Job IDs (required, 1-50)

RETURNS: One job definition per ID, in the order given. Fails as a whole if any ID cannot be fetched.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "databricks_get_job_runs",
		Method:   "GetJobRuns",
		Title:    "Get Job Runs",
		Category: "read",
		Service:  ServiceJobs,
		Description: `Get the most recent runs of one or more jobs.

USE WHEN: User asks "did job 123 succeed", "when did X last run", "why did the nightly job fail".

NOT FOR: Job configuration (use databricks_get_job_details).

PARAMETERS:
- job_ids: Job IDs (required, 1-50)
- amount: Runs per job, newest first (default 1, max 25)

RETURNS: For each job ID in order, a list of runs with state, result, timing and task outcomes.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// UNITY CATALOG TOOLS
	// ==========================================================================
	{
		Name:     "databricks_list_catalogs",
		Method:   "ListCatalogs",
		Title:    "List Catalogs",
		Category: "list",
		Service:  ServiceUnityCatalog,
		Description: `List the Unity Catalog catalogs of the workspace, excluding system catalogs.

USE WHEN: User asks "which catalogs are there", "what data domains exist".

NOT FOR: Searching for a table by name (use databricks_find_tables).

RETURNS: Catalog name, type, owner, comment and creator.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "databricks_list_schemas",
		Method:   "ListSchemas",
		Title:    "List Schemas",
		Category: "list",
		Service:  ServiceUnityCatalog,
		Description: `List the schemas of one or more catalogs.

USE WHEN: User asks "what schemas are in catalog X", "show the layers of the sales catalog".

NOT FOR: Listing catalogs (use databricks_list_catalogs).

PARAMETERS:
- catalog_names: Catalog names (required, 1-50, no duplicates)

RETURNS: Object keyed by catalog name, each holding its schemas (information_schema omitted).`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "databricks_list_tables",
		Method:   "ListTables",
		Title:    "List Tables",
		Category: "list",
		Service:  ServiceUnityCatalog,
		Description: `List the tables of one or more schemas.

USE WHEN: User asks "which tables are in main.sales", "show tables of schema X".

NOT FOR: Finding a table when the schema is unknown (use databricks_find_tables).

PARAMETERS:
- schemas: Schemas as catalog.schema (required, 1-50, no duplicates)

RETURNS: Object keyed by catalog.schema, each holding its tables with full name, type and comment.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "databricks_list_all_tables",
		Method:   "ListAllTables",
		Title:    "List All Tables",
		Category: "list",
		Service:  ServiceUnityCatalog,
		Description: `Walk every catalog and schema and return the full table hierarchy.

USE WHEN: User asks "give me an overview of all data", "map the whole lakehouse".

NOT FOR: Looking up one table by approximate name (use databricks_find_tables, which is cached).

RETURNS: {catalog: {schema: [table, ...]}}. Issues one request per catalog and per schema.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "databricks_get_table_details",
		Method:   "GetTableDetails",
		Title:    "Get Table Details",
		Category: "read",
		Service:  ServiceUnityCatalog,
		Description: `Get columns, type and ownership of one or more tables.

USE WHEN: User asks "what columns does main.sales.orders have", "who owns table X".

NOT FOR: Finding the exact table name (use databricks_find_tables first).

PARAMETERS:
- full_table_names: Tables as catalog.schema.table (required, 1-50)

RETURNS: One table description per name, in the order given. Fails as a whole if any table is missing.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// NAMESPACE TOOLS
	// ==========================================================================
	{
		Name:     "databricks_find_tables",
		Method:   "FindTables",
		Title:    "Find Tables",
		Category: "search",
		Service:  ServiceNamespace,
		Description: `Fuzzy-search fully-qualified table names across the whole workspace.

USE WHEN: User mentions a table by approximate name, "find the orders table", "is there a customer dimension".

NOT FOR: Browsing a known schema (use databricks_list_tables).

PARAMETERS:
- search_term: Text to match (required)
- limit: Max matches (default 10, max 100)
- force_refresh: Re-walk the namespace instead of using the cached listing (default false)

RETURNS: Matches as {table, score} sorted by score (0-100). Empty when the namespace cannot be listed.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "databricks_namespace_status",
		Method:   "NamespaceStatus",
		Title:    "Namespace Cache Status",
		Category: "status",
		Service:  ServiceNamespace,
		Description: `Report the state of the cached table listing used by databricks_find_tables.

USE WHEN: User asks "how old is the table index", "why is a new table not found".

RETURNS: Table count, fetched_at, age, TTL, freshness and a content digest.`,
		ReadOnly:   true,
		Idempotent: true,
	},
}
