package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/watchheat/internal/api"
	"github.com/wonny/watchheat/internal/api/handlers"
	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read-only HTTP API",
	Long: `Serves heat records and stored observations over HTTP.

Endpoints:
  GET /health
  GET /metrics                                   - Prometheus (METRICS_ENABLED)
  GET /api/heat/{date}[?hot=true]                - ranked heat records
  GET /api/items                                 - items with observations
  GET /api/items/{brand}/{reference}/snapshots   - ?from=&to=

Example:
  go run ./cmd/heat api
  go run ./cmd/heat api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	apiAllItems bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default PORT)")
	apiCmd.Flags().BoolVar(&apiAllItems, "all-items", false, "score every stored item instead of the universe file")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var items []contracts.Item
	if !apiAllItems {
		if items, err = a.universe(); err != nil {
			return err
		}
	}

	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}

	router := api.NewRouter(api.Routes{
		Heat:      handlers.NewHeatHandler(a.runner(nil), items, redis.NewCache(a.redis, keyPrefix), a.log),
		Snapshots: handlers.NewSnapshotHandler(a.store, a.log),
		Metrics:   metricsHandler,
	}, a.log)
	if apiPort != "" {
		a.cfg.API.Port = apiPort
	}
	server := api.New(a.cfg.API, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.API.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.ListenAndServe(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
