package tools

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/encoding/json"

	"github.com/revodata/databricks-mcp-server/internal/base"
	"github.com/revodata/databricks-mcp-server/internal/jobs"
	"github.com/revodata/databricks-mcp-server/internal/mask"
	"github.com/revodata/databricks-mcp-server/internal/namespace"
	"github.com/revodata/databricks-mcp-server/internal/unitycatalog"
	"github.com/revodata/databricks-mcp-server/metrics"
)

// workspace answers the handful of endpoints the tools need
type workspace struct {
	calls  atomic.Int32
	broken bool
}

func (ws *workspace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws.calls.Add(1)
	if ws.broken {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	switch strings.TrimPrefix(r.URL.Path, "/api/2.1/") {
	case "jobs/list":
		_, _ = w.Write([]byte(`{"jobs":[{"job_id":1,"settings":{"name":"ingest","max_concurrent_runs":1}}]}`))
	case "jobs/get":
		if q.Get("job_id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST"}`))
			return
		}
		_, _ = w.Write([]byte(`{"job_id":` + q.Get("job_id") + `,"settings":{"name":"job"}}`))
	case "jobs/runs/list":
		_, _ = w.Write([]byte(`{"runs":[{"run_id":7,"state":{"result_state":"SUCCESS"}}]}`))
	case "unity-catalog/catalogs":
		_, _ = w.Write([]byte(`{"catalogs":[{"name":"main","created_by":"a@x"},{"name":"system","created_by":"System user"}]}`))
	case "unity-catalog/schemas":
		_, _ = w.Write([]byte(`{"schemas":[{"name":"sales"},{"name":"information_schema"}]}`))
	case "unity-catalog/tables":
		_, _ = w.Write([]byte(`{"tables":[{"name":"orders"},{"name":"customers"}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, ws *workspace, opts ...RegistryOption) *HandlerRegistry {
	t.Helper()
	server := httptest.NewServer(ws)
	t.Cleanup(server.Close)

	logger := quietLogger()
	api := base.NewClient(
		base.WithCredentials(server.URL, "dapi-test"),
		base.WithLogger(logger),
	)
	t.Cleanup(api.Close)

	masks := mask.MustDefault()
	uc := unitycatalog.NewClient(api, masks, unitycatalog.WithLogger(logger))
	return NewHandlerRegistry(
		jobs.NewClient(api, masks, jobs.WithLogger(logger)),
		uc,
		namespace.NewCache(uc, namespace.WithLogger(logger)),
		logger,
		opts...,
	)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.Counter.GetValue()
}

func specFor(t *testing.T, method string) ToolSpec {
	t.Helper()
	for _, spec := range AllTools {
		if spec.Method == method {
			return spec
		}
	}
	t.Fatalf("no tool with method %s", method)
	return ToolSpec{}
}

func TestNewHandlerRegistry(t *testing.T) {
	registry := newTestRegistry(t, &workspace{}, WithAggregationTimeout(time.Minute))

	if registry.jobsClient == nil || registry.ucClient == nil || registry.namespace == nil {
		t.Fatal("Registry should hold every client")
	}
	if registry.timeout != time.Minute {
		t.Errorf("timeout = %v, want 1m", registry.timeout)
	}

	if r := newTestRegistry(t, &workspace{}, WithAggregationTimeout(0)); r.timeout != 0 {
		t.Errorf("zero timeout should disable the deadline, got %v", r.timeout)
	}
}

func TestBuildTool(t *testing.T) {
	registry := newTestRegistry(t, &workspace{})

	tests := []struct {
		name      string
		spec      ToolSpec
		wantRO    bool
		wantIdem  bool
		wantDestr bool
		wantOpen  bool
	}{
		{
			name: "read-only tool",
			spec: ToolSpec{
				Name:        "databricks_list_jobs",
				Title:       "List Jobs",
				Description: "List every job",
				Method:      "ListJobs",
				Service:     ServiceJobs,
				ReadOnly:    true,
				Idempotent:  true,
			},
			wantRO:   true,
			wantIdem: true,
		},
		{
			name: "open world tool",
			spec: ToolSpec{
				Name:        "databricks_list_catalogs",
				Description: "List catalogs",
				OpenWorld:   true,
			},
			wantOpen: true,
		},
		{
			name: "destructive tool",
			spec: ToolSpec{
				Name:        "databricks_delete",
				Description: "Delete",
				Destructive: true,
			},
			wantDestr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := registry.buildTool(tt.spec)

			if tool.Name != tt.spec.Name {
				t.Errorf("Name = %q, want %q", tool.Name, tt.spec.Name)
			}
			if tool.Description != tt.spec.Description {
				t.Errorf("Description = %q, want %q", tool.Description, tt.spec.Description)
			}
			if tool.Annotations == nil {
				t.Fatal("Expected annotations")
			}
			if tool.Annotations.ReadOnlyHint != tt.wantRO {
				t.Errorf("ReadOnlyHint = %v, want %v", tool.Annotations.ReadOnlyHint, tt.wantRO)
			}
			if tool.Annotations.IdempotentHint != tt.wantIdem {
				t.Errorf("IdempotentHint = %v, want %v", tool.Annotations.IdempotentHint, tt.wantIdem)
			}
			if tt.wantDestr != (tool.Annotations.DestructiveHint != nil && *tool.Annotations.DestructiveHint) {
				t.Errorf("DestructiveHint = %v, want %v", tool.Annotations.DestructiveHint, tt.wantDestr)
			}
			if tt.wantOpen != (tool.Annotations.OpenWorldHint != nil && *tool.Annotations.OpenWorldHint) {
				t.Errorf("OpenWorldHint = %v, want %v", tool.Annotations.OpenWorldHint, tt.wantOpen)
			}
		})
	}
}

func TestInvoke_Success(t *testing.T) {
	registry := newTestRegistry(t, &workspace{})

	env := invoke(registry, context.Background(), specFor(t, "ListJobs"), jobs.ListJobsArgs{}, registry.jobsClient.ListJobsMCP)

	if !env.Success || env.Error != "" {
		t.Fatalf("envelope = %+v, want success", env)
	}
	want := `[{"job_id":1,"settings":{"name":"ingest"}}]`
	if string(env.Content) != want {
		t.Errorf("content = %s, want %s", env.Content, want)
	}
}

func TestInvoke_ValidationFailure(t *testing.T) {
	tests := []struct {
		name      string
		run       func(h *HandlerRegistry) Envelope
		wantField string
	}{
		{
			name: "no job ids",
			run: func(h *HandlerRegistry) Envelope {
				return invoke(h, context.Background(), specFor(t, "GetJobDetails"), jobs.GetJobDetailsArgs{}, h.jobsClient.GetJobDetailsMCP)
			},
			wantField: "job_ids",
		},
		{
			name: "negative job id",
			run: func(h *HandlerRegistry) Envelope {
				return invoke(h, context.Background(), specFor(t, "GetJobDetails"), jobs.GetJobDetailsArgs{JobIDs: []int64{1, -2}}, h.jobsClient.GetJobDetailsMCP)
			},
			wantField: "job_ids[1]",
		},
		{
			name: "zero amount",
			run: func(h *HandlerRegistry) Envelope {
				zero := 0
				return invoke(h, context.Background(), specFor(t, "GetJobRuns"), jobs.GetJobRunsArgs{JobIDs: []int64{1}, Amount: &zero}, h.jobsClient.GetJobRunsMCP)
			},
			wantField: "amount",
		},
		{
			name: "amount over ceiling",
			run: func(h *HandlerRegistry) Envelope {
				many := 26
				return invoke(h, context.Background(), specFor(t, "GetJobRuns"), jobs.GetJobRunsArgs{JobIDs: []int64{1}, Amount: &many}, h.jobsClient.GetJobRunsMCP)
			},
			wantField: "amount",
		},
		{
			name: "duplicate catalogs",
			run: func(h *HandlerRegistry) Envelope {
				return invoke(h, context.Background(), specFor(t, "ListSchemas"), unitycatalog.ListSchemasArgs{CatalogNames: []string{"main", "main"}}, h.ucClient.ListSchemasMCP)
			},
			wantField: "catalog_names",
		},
		{
			name: "empty search term",
			run: func(h *HandlerRegistry) Envelope {
				return invoke(h, context.Background(), specFor(t, "FindTables"), namespace.FindTablesArgs{}, h.namespace.FindTablesMCP)
			},
			wantField: "search_term",
		},
		{
			name: "limit over ceiling",
			run: func(h *HandlerRegistry) Envelope {
				limit := 101
				return invoke(h, context.Background(), specFor(t, "FindTables"), namespace.FindTablesArgs{SearchTerm: "orders", Limit: &limit}, h.namespace.FindTablesMCP)
			},
			wantField: "limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := &workspace{}
			env := tt.run(newTestRegistry(t, ws))

			if env.Success {
				t.Fatalf("envelope = %+v, want failure", env)
			}
			if env.Content != nil {
				t.Errorf("failure envelope carries content: %s", env.Content)
			}
			if !strings.Contains(env.Error, "validation failed for "+tt.wantField) {
				t.Errorf("error = %q, want mention of %s", env.Error, tt.wantField)
			}
			if n := ws.calls.Load(); n != 0 {
				t.Errorf("made %d requests, want none", n)
			}
		})
	}
}

func TestInvoke_AggregationFailure(t *testing.T) {
	registry := newTestRegistry(t, &workspace{})

	env := invoke(registry, context.Background(), specFor(t, "GetJobDetails"),
		jobs.GetJobDetailsArgs{JobIDs: []int64{1, 404, 3}}, registry.jobsClient.GetJobDetailsMCP)

	if env.Success {
		t.Fatalf("envelope = %+v, want failure", env)
	}
	if env.Content != nil {
		t.Errorf("partial results leaked: %s", env.Content)
	}
	if !strings.Contains(env.Error, "404") {
		t.Errorf("error = %q, want the 404 cause", env.Error)
	}
}

func TestInvoke_Panic(t *testing.T) {
	registry := newTestRegistry(t, &workspace{})
	spec := ToolSpec{Name: "panicking_tool"}
	before := counterValue(t, metrics.PanicsRecovered.WithLabelValues(spec.Name))

	env := invoke(registry, context.Background(), spec, jobs.ListJobsArgs{},
		func(context.Context, jobs.ListJobsArgs) (any, error) {
			panic("boom")
		})

	if env.Success || !strings.Contains(env.Error, "boom") {
		t.Errorf("envelope = %+v, want failure mentioning the panic", env)
	}
	if got := counterValue(t, metrics.PanicsRecovered.WithLabelValues(spec.Name)); got != before+1 {
		t.Errorf("panics recovered = %v, want %v", got, before+1)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	registry := newTestRegistry(t, &workspace{}, WithAggregationTimeout(20*time.Millisecond))

	env := invoke(registry, context.Background(), ToolSpec{Name: "slow_tool"}, jobs.ListJobsArgs{},
		func(ctx context.Context, _ jobs.ListJobsArgs) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	if env.Success || !strings.Contains(env.Error, context.DeadlineExceeded.Error()) {
		t.Errorf("envelope = %+v, want deadline failure", env)
	}
}

func TestInvoke_FindTablesDegradesToEmpty(t *testing.T) {
	registry := newTestRegistry(t, &workspace{broken: true})

	env := invoke(registry, context.Background(), specFor(t, "FindTables"),
		namespace.FindTablesArgs{SearchTerm: "orders"}, registry.namespace.FindTablesMCP)

	if !env.Success {
		t.Fatalf("envelope = %+v, want success with no matches", env)
	}
	if string(env.Content) != "[]" {
		t.Errorf("content = %s, want []", env.Content)
	}
}

func TestInvoke_FindTables(t *testing.T) {
	registry := newTestRegistry(t, &workspace{})
	limit := 1

	env := invoke(registry, context.Background(), specFor(t, "FindTables"),
		namespace.FindTablesArgs{SearchTerm: "orders", Limit: &limit}, registry.namespace.FindTablesMCP)

	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	var matches []namespace.Match
	if err := json.Unmarshal(env.Content, &matches); err != nil {
		t.Fatalf("content is not a match list: %v", err)
	}
	if len(matches) != 1 || matches[0].Table != "main.sales.orders" {
		t.Errorf("matches = %+v, want main.sales.orders first", matches)
	}
}

func TestSucceed_Deterministic(t *testing.T) {
	h := unitycatalog.Hierarchy{
		"zeta":  {"s": {"t2", "t1"}},
		"alpha": {"b": {"x"}, "a": {}},
	}

	first, err := Succeed(h)
	if err != nil {
		t.Fatalf("Succeed failed: %v", err)
	}
	second, _ := Succeed(h)

	want := `{"alpha":{"a":[],"b":["x"]},"zeta":{"s":["t2","t1"]}}`
	if string(first.Content) != want {
		t.Errorf("content = %s, want %s", first.Content, want)
	}
	if string(first.Content) != string(second.Content) {
		t.Error("encoding is not deterministic")
	}
}

func TestEnvelope_CallToolResult(t *testing.T) {
	ok, _ := Succeed([]int{1, 2})
	res := ok.CallToolResult()
	if res.IsError {
		t.Error("success envelope should not be an error result")
	}
	if text := res.Content[0].(*mcp.TextContent).Text; text != `{"success":true,"content":[1,2]}` {
		t.Errorf("text = %s", text)
	}

	res = Fail("databricks_list_jobs failed: boom").CallToolResult()
	if !res.IsError {
		t.Error("failure envelope should be an error result")
	}
	if text := res.Content[0].(*mcp.TextContent).Text; text != `{"success":false,"error":"databricks_list_jobs failed: boom"}` {
		t.Errorf("text = %s", text)
	}
}

func TestRegisterAll_OverMCP(t *testing.T) {
	registry := newTestRegistry(t, &workspace{})
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "test"}, nil)
	registry.RegisterAll(server)

	if registry.registered != len(AllTools) {
		t.Fatalf("registered %d tools, want %d", registry.registered, len(AllTools))
	}

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	listed, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(listed.Tools) != len(AllTools) {
		t.Errorf("listed %d tools, want %d", len(listed.Tools), len(AllTools))
	}

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "databricks_list_catalogs", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &env); err != nil {
		t.Fatalf("result is not an envelope: %v", err)
	}
	if !env.Success || string(env.Content) != `[{"name":"main","created_by":"a@x"}]` {
		t.Errorf("envelope = %+v (content %s)", env, env.Content)
	}
}

func TestLogExecution(t *testing.T) {
	registry := newTestRegistry(t, &workspace{})
	spec := ToolSpec{Name: "test_tool", Service: ServiceJobs}
	amount := 3

	// Must not panic for any combination
	registry.logExecution(spec, "id", time.Millisecond, jobs.GetJobRunsArgs{JobIDs: []int64{1}, Amount: &amount}, nil)
	registry.logExecution(spec, "id", time.Millisecond, unitycatalog.ListAllTablesArgs{}, unitycatalog.Hierarchy{})
	registry.logExecution(spec, "id", time.Millisecond, namespace.FindTablesArgs{SearchTerm: "x"}, []namespace.Match{})
	registry.logExecution(spec, "id", time.Millisecond, namespace.StatusArgs{}, namespace.Status{})
}

func TestAllToolsNotEmpty(t *testing.T) {
	if len(AllTools) != 10 {
		t.Errorf("AllTools has %d tools, want 10", len(AllTools))
	}

	seen := make(map[string]bool)
	for i, spec := range AllTools {
		if spec.Name == "" {
			t.Errorf("Tool %d has empty Name", i)
		}
		if !strings.HasPrefix(spec.Name, "databricks_") {
			t.Errorf("Tool %s lacks the databricks_ prefix", spec.Name)
		}
		if seen[spec.Name] {
			t.Errorf("Tool %s is defined twice", spec.Name)
		}
		seen[spec.Name] = true
		if spec.Method == "" {
			t.Errorf("Tool %s has empty Method", spec.Name)
		}
		if spec.Description == "" {
			t.Errorf("Tool %s has empty Description", spec.Name)
		}
		if spec.Service == "" {
			t.Errorf("Tool %s has empty Service", spec.Name)
		}
		if !spec.ReadOnly || spec.Destructive {
			t.Errorf("Tool %s must be read-only", spec.Name)
		}
	}
}

func TestToolsByService(t *testing.T) {
	counts := map[string]int{
		ServiceJobs:         3,
		ServiceUnityCatalog: 5,
		ServiceNamespace:    2,
	}
	for service, want := range counts {
		got := ToolsByService(service)
		if len(got) != want {
			t.Errorf("ToolsByService(%q) = %d tools, want %d", service, len(got), want)
		}
		for _, tool := range got {
			if tool.Service != service {
				t.Errorf("Tool %s has service %s, expected %s", tool.Name, tool.Service, service)
			}
		}
	}

	if unknown := ToolsByService("unknown"); len(unknown) != 0 {
		t.Errorf("Expected 0 tools for unknown service, got %d", len(unknown))
	}
}

func TestToolsByCategory(t *testing.T) {
	searchTools := ToolsByCategory("search")
	if len(searchTools) != 1 || searchTools[0].Name != "databricks_find_tables" {
		t.Errorf("search tools = %+v", searchTools)
	}
}
