package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/revodata/databricks-mcp-server/internal/base"
	"github.com/revodata/databricks-mcp-server/internal/config"
	"github.com/revodata/databricks-mcp-server/internal/mask"
	"github.com/revodata/databricks-mcp-server/internal/namespace"
	"github.com/revodata/databricks-mcp-server/internal/unitycatalog"
)

// clients builds the Unity Catalog client and namespace cache from the
// regular server configuration
func clients() (*base.Client, *unitycatalog.Client, *namespace.Cache, error) {
	cfg, err := config.LoadFile(os.Getenv("DATABRICKS_MCP_CONFIG"))
	if err != nil {
		return nil, nil, nil, err
	}
	masks, err := mask.Load(cfg.MasksDir)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	api := base.NewClient(
		base.WithHTTPClient(base.NewHTTPClient(cfg.Client.RequestTimeout)),
		base.WithLogger(logger),
		base.WithCredentials(cfg.Host, cfg.Token),
		base.WithAPIVersion(cfg.APIVersion),
		base.WithMaxConcurrency(cfg.Client.MaxConcurrentRequests),
		base.WithRetry(cfg.Client.MaxRetries, cfg.Client.BaseDelay),
		base.WithMaxPages(cfg.Client.MaxPages),
	)
	uc := unitycatalog.NewClient(api, masks, unitycatalog.WithLogger(logger))
	cache := namespace.NewCache(uc, namespace.WithTTL(cfg.Namespace.TTL), namespace.WithLogger(logger))
	return api, uc, cache, nil
}

// measureCachePerformance compares a cold FindTables (full namespace walk)
// with a warm one served from the snapshot
func measureCachePerformance(ctx context.Context, cache *namespace.Cache, term string) []namespace.Match {
	fmt.Println("=== Namespace Cache Test ===")
	fmt.Println()

	fmt.Printf("1. FindTables(%q):\n", term)
	start := time.Now()
	matches := cache.FindTables(ctx, term, namespace.DefaultLimit, false)
	cold := time.Since(start)
	status := cache.Status()
	fmt.Printf("   First call (walk):     %v (%d tables)\n", cold, status.Tables)

	start = time.Now()
	_ = cache.FindTables(ctx, term, namespace.DefaultLimit, false)
	warm := time.Since(start)
	fmt.Printf("   Second call (cached):  %v\n", warm)
	if warm > 0 {
		fmt.Printf("   Speedup: %.0fx faster\n", float64(cold)/float64(warm))
	}
	fmt.Println()
	return matches
}

// measureAggregation compares one concurrent GetTableDetails call with the
// same lookups issued one by one
func measureAggregation(ctx context.Context, uc *unitycatalog.Client, matches []namespace.Match) {
	fmt.Println("=== Aggregated vs Sequential Details ===")
	fmt.Println()

	names := make([]string, 0, 5)
	for i := 0; i < 5 && i < len(matches); i++ {
		names = append(names, matches[i].Table)
	}
	if len(names) < 2 {
		fmt.Println("Not enough tables to compare")
		return
	}
	fmt.Printf("Testing with %d tables: %v\n\n", len(names), names)

	fmt.Println("2. GetTableDetails (concurrent):")
	start := time.Now()
	if _, err := uc.GetTableDetails(ctx, names); err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	batch := time.Since(start)
	fmt.Printf("   Batch time: %v\n", batch)

	fmt.Println("3. GetTableDetails (one at a time):")
	start = time.Now()
	for _, name := range names {
		_, _ = uc.GetTableDetails(ctx, []string{name})
	}
	sequential := time.Since(start)
	fmt.Printf("   Sequential time: %v\n", sequential)
	fmt.Printf("   Parallel speedup: %.1fx faster\n", float64(sequential)/float64(batch))
	fmt.Println()
}

func main() {
	fmt.Println("Databricks MCP Server - Performance Measurements")
	fmt.Println("================================================")
	fmt.Println()

	api, uc, cache, err := clients()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	defer api.Close()

	term := "orders"
	if len(os.Args) > 1 {
		term = os.Args[1]
	}

	ctx := context.Background()
	matches := measureCachePerformance(ctx, cache, term)
	measureAggregation(ctx, uc, matches)
}
