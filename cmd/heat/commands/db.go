package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/watchheat/internal/snapshot"
	"github.com/wonny/watchheat/pkg/config"
	"github.com/wonny/watchheat/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "PostgreSQL maintenance",
}

var (
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the snapshot schema if missing",
		Long: `Creates the heat schema, the snapshots table and its indexes.
Safe to run repeatedly.

Example:
  go run ./cmd/heat db migrate`,
		RunE: runMigrate,
	}

	dbPingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Test the database connection",
		RunE:  runPing,
	}
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd, dbPingCmd)
}

func connect(ctx context.Context) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Failed to load config: %w", err)
	}
	if cfg.StoreBackend != "postgres" {
		return nil, nil, fmt.Errorf("STORE_BACKEND is %q; db commands need postgres", cfg.StoreBackend)
	}
	fmt.Printf("   Database URL: %s\n", maskPassword(cfg.Database.URL))

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	return cfg, db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := snapshot.NewPostgresStore(db.Pool).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("❌ Migration failed: %w", err)
	}
	fmt.Println("✅ Snapshot schema is up to date")
	return nil
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Printf("✅ Connected (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)
	fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	return nil
}
