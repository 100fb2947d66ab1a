package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tradejournal/internal/domain"
	"tradejournal/internal/journal"
	"tradejournal/internal/ports"
)

// dailySnapshotSpec fires once a day at midnight UTC.
const dailySnapshotSpec = "0 0 * * *"

// Scheduler runs the journal's periodic jobs: currently a daily balance
// snapshot feeding the balance history view.
type Scheduler struct {
	cron      *cron.Cron
	journal   *journal.Service
	snapshots ports.SnapshotRepository
	logger    ports.Logger
}

// New creates a new scheduler.
func New(journalSvc *journal.Service, snapshots ports.SnapshotRepository, logger ports.Logger) (*Scheduler, error) {
	if journalSvc == nil || snapshots == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for scheduler")
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		journal:   journalSvc,
		snapshots: snapshots,
		logger:    logger,
	}, nil
}

// Start registers the jobs and starts the cron loop. It also records one
// snapshot immediately so a freshly started instance has a data point.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(dailySnapshotSpec, func() {
		s.SnapshotBalance(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to register balance snapshot job: %w", err)
	}
	s.cron.Start()
	s.SnapshotBalance(context.Background())
	s.logger.Info(context.Background(), "Scheduler started", map[string]interface{}{"snapshotSpec": dailySnapshotSpec})
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info(context.Background(), "Scheduler stopped")
}

// SnapshotBalance records the current account balance into the balance
// history. Failures are logged, not fatal; the next run retries.
func (s *Scheduler) SnapshotBalance(ctx context.Context) {
	settings, err := s.journal.Settings(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Balance snapshot failed to load settings")
		return
	}
	snapshot := &domain.BalanceSnapshot{
		Balance: settings.Balance,
		TakenAt: time.Now().UTC(),
	}
	if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		s.logger.Error(ctx, err, "Balance snapshot failed to persist")
		return
	}
	s.logger.Info(ctx, "Balance snapshot recorded", map[string]interface{}{"balance": snapshot.Balance})
}
