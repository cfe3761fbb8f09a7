package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/google/uuid"
	"github.com/wheelops/wheelhouse/internal/scheduler"
	"github.com/wheelops/wheelhouse/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run all pipeline jobs on their cron schedules",
	Long: `Starts the long-running scheduler process. Jobs and default
schedules (seconds-precision cron, overridable via CRON_* variables):

  screening    0 0 11 * * MON    weekly screen
  rsi-refresh  0 30 9 * * *      warm the RSI cache
  csp-picks    0 0 13 * * MON    CSP picks from the latest run
  cc-picks     0 15 13 * * MON   CC picks for current holdings
  tracking     0 0 22 * * *      daily account snapshot
  maintenance  0 0 1 * * *       reclaim stale runs

Example:
  go run ./cmd/wheelhouse scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched := scheduler.New(app.log)

	jobs := []struct {
		name string
		spec string
		fn   func(context.Context) error
	}{
		{"screening", app.cfg.Cron.Screening, func(ctx context.Context) error {
			screener, err := app.screener()
			if err != nil {
				return err
			}
			_, err = screener.Run(ctx)
			return err
		}},
		{"rsi-refresh", app.cfg.Cron.RSIRefresh, func(ctx context.Context) error {
			return app.withStageLock(ctx, redis.StageRSI, time.Hour, func(ctx context.Context) error {
				tickers, err := app.rsiTickers(ctx)
				if err != nil {
					return err
				}
				_, err = app.rsiRefresher().Refresh(ctx, tickers)
				return err
			})
		}},
		{"csp-picks", app.cfg.Cron.CSPPicks, func(ctx context.Context) error {
			builder, err := app.cspBuilder()
			if err != nil {
				return err
			}
			return app.withStageLock(ctx, redis.StageCSPPicks, time.Hour, func(ctx context.Context) error {
				_, err := builder.Build(ctx, uuid.Nil)
				return err
			})
		}},
		{"cc-picks", app.cfg.Cron.CCPicks, func(ctx context.Context) error {
			builder, err := app.ccBuilder()
			if err != nil {
				return err
			}
			return app.withStageLock(ctx, redis.StageCCPicks, time.Hour, func(ctx context.Context) error {
				_, err := builder.Build(ctx, uuid.Nil)
				return err
			})
		}},
		{"tracking", app.cfg.Cron.Tracking, func(ctx context.Context) error {
			t, err := app.dailyTracker()
			if err != nil {
				return err
			}
			return app.withStageLock(ctx, redis.StageTracking, 30*time.Minute, func(ctx context.Context) error {
				_, err := t.Track(ctx)
				return err
			})
		}},
		{"maintenance", app.cfg.Cron.Maintenance, func(ctx context.Context) error {
			_, err := app.runTracker().ReclaimStale(ctx, app.cfg.RunStaleAfter)
			return err
		}},
	}

	for _, j := range jobs {
		if err := sched.Register(j.name, j.spec, j.fn); err != nil {
			return err
		}
	}

	sched.Start()
	fmt.Println("Scheduler running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	app.log.Infof("Received %s, stopping scheduler", sig)
	sched.Stop()
	return nil
}
