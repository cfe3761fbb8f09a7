package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wheelops/wheelhouse/pkg/logger"
)

const historySize = 50

// Execution records one job invocation for the status view
type Execution struct {
	Job        string        `json:"job"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Panicked   bool          `json:"panicked,omitempty"`
	Successful bool          `json:"successful"`
}

// Scheduler runs the pipeline jobs on cron schedules. Specs use the
// with-seconds format. A panicking job is recovered and recorded; it never
// takes the scheduler down.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger

	mu      sync.Mutex
	history []Execution
}

// New creates an empty scheduler
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: log,
	}
}

// Register adds a job under a cron spec
func (s *Scheduler) Register(name, spec string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runJob(name, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to register job %s (%q): %w", name, spec, err)
	}
	s.logger.Infof("Registered job %s with schedule %q", name, spec)
	return nil
}

func (s *Scheduler) runJob(name string, fn func(context.Context) error) {
	exec := Execution{Job: name, StartedAt: time.Now().UTC()}

	defer func() {
		if rec := recover(); rec != nil {
			exec.Panicked = true
			exec.Error = fmt.Sprintf("panic: %v", rec)
			s.logger.WithField("panic", rec).Errorf("Job %s panicked", name)
		}
		exec.Duration = time.Since(exec.StartedAt)
		exec.Successful = exec.Error == ""
		s.record(exec)
	}()

	s.logger.Infof("Job %s starting", name)
	if err := fn(context.Background()); err != nil {
		exec.Error = err.Error()
		s.logger.WithError(err).Errorf("Job %s failed", name)
		return
	}
	s.logger.Infof("Job %s finished", name)
}

func (s *Scheduler) record(exec Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, exec)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
}

// History returns recent job executions, newest last
func (s *Scheduler) History() []Execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Execution, len(s.history))
	copy(out, s.history)
	return out
}

// Start begins dispatching jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop halts dispatch and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}
