package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wheelops/wheelhouse/pkg/config"
	"github.com/wheelops/wheelhouse/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the PostgreSQL connection",
	Long: `Loads DATABASE_URL from config, connects, pings, and prints pool
statistics.

Example:
  go run ./cmd/wheelhouse test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Wheelhouse Database Connection Test ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fmt.Printf("Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("Connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println("Health check results:")
	fmt.Printf("  Healthy:       %v\n", status.Healthy)
	fmt.Printf("  Response time: %v\n", status.ResponseTime)
	fmt.Printf("  Connections:   %d total, %d idle, %d max\n",
		status.TotalConns, status.IdleConns, status.MaxConns)

	fmt.Println("\nAll checks passed")
	return nil
}

// maskPassword hides credentials in the database URL for display
func maskPassword(url string) string {
	if len(url) < 55 {
		if len(url) > 30 {
			return url[:30] + "***"
		}
		return "***"
	}
	return url[:30] + "***" + url[len(url)-25:]
}
