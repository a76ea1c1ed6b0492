package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/revodata/databricks-mcp-server/internal/errors"
	"github.com/revodata/databricks-mcp-server/internal/jobs"
	"github.com/revodata/databricks-mcp-server/internal/jsontree"
	"github.com/revodata/databricks-mcp-server/internal/namespace"
	"github.com/revodata/databricks-mcp-server/internal/unitycatalog"
	"github.com/revodata/databricks-mcp-server/metrics"
	"github.com/revodata/databricks-mcp-server/tracing"
)

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	jobsClient *jobs.Client
	ucClient   *unitycatalog.Client
	namespace  *namespace.Cache
	logger     *slog.Logger
	validate   *validator.Validate
	timeout    time.Duration
	registered int
}

// RegistryOption configures the HandlerRegistry
type RegistryOption func(*HandlerRegistry)

// WithAggregationTimeout bounds every tool call. Zero disables the deadline.
func WithAggregationTimeout(d time.Duration) RegistryOption {
	return func(h *HandlerRegistry) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(jobsClient *jobs.Client, ucClient *unitycatalog.Client, cache *namespace.Cache, logger *slog.Logger, opts ...RegistryOption) *HandlerRegistry {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	h := &HandlerRegistry{
		jobsClient: jobsClient,
		ucClient:   ucClient,
		namespace:  cache,
		logger:     logger,
		validate:   v,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	for _, spec := range AllTools {
		h.registerByName(server, spec)
	}
	h.logger.Info("Registered all tools", "count", h.registered)
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) {
	tool := h.buildTool(spec)

	switch spec.Method {
	// Jobs tools
	case "ListJobs":
		register(h, server, tool, spec, h.jobsClient.ListJobsMCP)
	case "GetJobDetails":
		register(h, server, tool, spec, h.jobsClient.GetJobDetailsMCP)
	case "GetJobRuns":
		register(h, server, tool, spec, h.jobsClient.GetJobRunsMCP)

	// Unity Catalog tools
	case "ListCatalogs":
		register(h, server, tool, spec, h.ucClient.ListCatalogsMCP)
	case "ListSchemas":
		register(h, server, tool, spec, h.ucClient.ListSchemasMCP)
	case "ListTables":
		register(h, server, tool, spec, h.ucClient.ListTablesMCP)
	case "ListAllTables":
		register(h, server, tool, spec, h.ucClient.ListAllTablesMCP)
	case "GetTableDetails":
		register(h, server, tool, spec, h.ucClient.GetTableDetailsMCP)

	// Namespace tools
	case "FindTables":
		register(h, server, tool, spec, h.namespace.FindTablesMCP)
	case "NamespaceStatus":
		register(h, server, tool, spec, h.namespace.StatusMCP)

	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
		return
	}
	h.registered++
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register adds a tool to the MCP server. The typed output is left nil so
// the envelope text block is the whole result.
func register[Args, Result any](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, _ *mcp.CallToolRequest, args Args) (*mcp.CallToolResult, any, error) {
		env := invoke(h, ctx, spec, args, method)
		return env.CallToolResult(), nil, nil
	})
}

// invoke runs one tool call with validation, an optional deadline, panic
// recovery, metrics, tracing and logging. It never returns an error: every
// failure becomes a failure envelope.
func invoke[Args, Result any](
	h *HandlerRegistry,
	ctx context.Context,
	spec ToolSpec,
	args Args,
	method func(context.Context, Args) (Result, error),
) (env Envelope) {
	callID := uuid.NewString()
	start := time.Now()

	ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
	defer span.End()

	tracing.AddToolAttributes(span, spec.Name, spec.Service, callID)
	span.SetAttributes(attribute.String("mcp.tool.category", spec.Category))

	// Track in-flight requests
	metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
	defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

	defer h.recoverPanic(spec.Name, callID, start, &env)

	result, err := callTool(h, ctx, args, method)
	if err == nil {
		env, err = Succeed(result)
	}
	duration := time.Since(start).Seconds()
	span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRequest(spec.Name, duration, false)
		h.logger.Warn("Tool failed",
			"tool", spec.Name,
			"call_id", callID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return Fail(fmt.Sprintf("%s failed: %v", spec.Name, err))
	}

	span.SetStatus(codes.Ok, "")
	metrics.RecordRequest(spec.Name, duration, true)
	metrics.ContentSize.WithLabelValues(spec.Name).Observe(float64(len(env.Content)))
	h.logExecution(spec, callID, time.Since(start), args, result)
	return env
}

// callTool validates args and runs method under the configured deadline.
func callTool[Args, Result any](
	h *HandlerRegistry,
	ctx context.Context,
	args Args,
	method func(context.Context, Args) (Result, error),
) (Result, error) {
	if err := h.validateArgs(args); err != nil {
		var zero Result
		return zero, err
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return method(ctx, args)
}

// validateArgs checks struct tag bounds and reports the first violation as
// a ValidationError keyed by the JSON argument name.
func (h *HandlerRegistry) validateArgs(args any) error {
	err := h.validate.Struct(args)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidationError("", "", err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		field = rest
	}
	value := ""
	if v := fe.Value(); v != nil {
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Slice && rv.Kind() != reflect.Ptr {
			value = fmt.Sprint(v)
		}
	}
	return apperrors.NewValidationError(field, value, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// recoverPanic turns a panic in a tool handler into a failure envelope.
func (h *HandlerRegistry) recoverPanic(toolName, callID string, start time.Time, env *Envelope) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(toolName).Inc()
		metrics.RecordRequest(toolName, time.Since(start).Seconds(), false)
		h.logger.Error("Panic recovered",
			"tool", toolName,
			"call_id", callID,
			"panic", rec,
			"stack", string(debug.Stack()))
		*env = Fail(fmt.Sprintf("%s failed: internal error: %v", toolName, rec))
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, callID string, elapsed time.Duration, args, result any) {
	attrs := []any{
		"tool", spec.Name,
		"service", spec.Service,
		"call_id", callID,
		"duration_ms", elapsed.Milliseconds(),
	}

	// Add extractable fields from args using type assertions
	switch a := args.(type) {
	// Jobs args
	case jobs.GetJobDetailsArgs:
		attrs = append(attrs, "job_ids", len(a.JobIDs))
	case jobs.GetJobRunsArgs:
		attrs = append(attrs, "job_ids", len(a.JobIDs))
		if a.Amount != nil {
			attrs = append(attrs, "amount", *a.Amount)
		}
	// Unity Catalog args
	case unitycatalog.ListSchemasArgs:
		attrs = append(attrs, "catalogs", len(a.CatalogNames))
	case unitycatalog.ListTablesArgs:
		attrs = append(attrs, "schemas", len(a.Schemas))
	case unitycatalog.GetTableDetailsArgs:
		attrs = append(attrs, "tables", len(a.FullTableNames))
	// Namespace args
	case namespace.FindTablesArgs:
		attrs = append(attrs, "search_term", a.SearchTerm, "force_refresh", a.ForceRefresh)
	}

	// Add extractable fields from result
	switch r := result.(type) {
	case jsontree.Node:
		attrs = append(attrs, "results_count", r.Len())
	case unitycatalog.Hierarchy:
		attrs = append(attrs, "catalogs", len(r))
	case []namespace.Match:
		attrs = append(attrs, "matches", len(r))
	case namespace.Status:
		attrs = append(attrs, "tables", r.Tables, "fresh", r.Fresh)
	}

	h.logger.Info("Tool executed", attrs...)
}
