package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wheelops/wheelhouse/internal/api"
	"github.com/wheelops/wheelhouse/internal/picks"
	"github.com/wheelops/wheelhouse/internal/screening"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the read-only HTTP API",
	Long: `Serves runs, candidates, and picks over HTTP.

Endpoints:
  GET /health
  GET /api/runs?limit=20
  GET /api/runs/latest
  GET /api/runs/{id}
  GET /api/runs/{id}/candidates?limit=100
  GET /api/runs/{id}/picks?action=CSP|CC

Example:
  go run ./cmd/wheelhouse api`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	server := api.NewServer(app.cfg.Port, api.Deps{
		Runs:       screening.NewRunRepository(app.db.Pool),
		Candidates: screening.NewCandidateRepository(app.db.Pool),
		Picks:      picks.NewRepository(app.db.Pool),
	}, app.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		app.log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
