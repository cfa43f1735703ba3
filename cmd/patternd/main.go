// Package main implements the patternd CLI: one-shot pattern searches
// against a local catalog, plus a Prometheus metrics endpoint for
// long-running use.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/patternd/internal/config"
	"github.com/fyrsmithlabs/patternd/internal/logging"
	"github.com/fyrsmithlabs/patternd/internal/recommend"
	"github.com/fyrsmithlabs/patternd/internal/services"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "patternd",
	Short:   "Design-pattern recommendation engine",
	Long:    `patternd recommends design-pattern catalog entries for a natural-language problem description, blending dense, sparse, and graph retrieval signals.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
}

var (
	searchMaxResults int
	searchCategories []string
	searchTags       []string
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one search against the catalog",
	Long: `Run one search and print the ranked recommendations.

Examples:
  patternd search "how to create objects with many optional parameters"
  patternd search --max-results 5 --category creational "flexible object construction"
  patternd search --json "decouple senders from receivers"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var serveMetricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with a Prometheus metrics endpoint",
	Long: `Keep the engine resident and expose /metrics for scraping.
Intended for embedding behind a transport layer; the engine itself
stays local.`,
	RunE: runServe,
}

func init() {
	searchCmd.Flags().IntVar(&searchMaxResults, "max-results", 10, "maximum results to return")
	searchCmd.Flags().StringSliceVar(&searchCategories, "category", nil, "restrict to categories")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "restrict to tags")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")

	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", ":9091", "metrics listen address")
}

// setup loads config, builds the logger, and wires the service graph.
func setup() (services.Registry, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	registry, err := services.Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return registry, logger, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	registry, logger, err := setup()
	if err != nil {
		return err
	}
	defer registry.Close()
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	resp, err := registry.Recommend().Search(ctx, recommend.Request{
		Query:      strings.Join(args, " "),
		MaxResults: searchMaxResults,
		Filters: recommend.Filters{
			Categories: searchCategories,
			Tags:       searchTags,
		},
		ClientID: "cli",
	})
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "query %s (%s, semantic weight %.2f)\n",
		resp.QueryID, resp.QueryType, resp.Alpha.Semantic)
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%2d. %-24s %-12s score=%.3f  %s\n",
			i+1, r.Name, r.Category, r.FinalScore, r.Rationale)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	registry, logger, err := setup()
	if err != nil {
		return err
	}
	defer registry.Close()
	defer logger.Sync() //nolint:errcheck

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: serveMetricsAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", serveMetricsAddr))
		errCh <- server.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Evict idle rate-limiter keys so long-lived processes stay bounded.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				registry.Limiter().Cleanup()
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
