package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/cloudsync"
)

const (
	jobTimeout    = 2 * time.Minute
	probeSchedule = "@every 1m"
)

// Syncer pushes pending changes to the cloud.
type Syncer interface {
	SyncToCloud(ctx context.Context) cloudsync.Result
}

// Prober refreshes the connectivity signal.
type Prober interface {
	Probe(ctx context.Context) bool
}

// AlertSource builds the low-stock message.
type AlertSource interface {
	LowStockAlert() (string, bool)
}

// DigestSource builds the end-of-day summary text.
type DigestSource interface {
	DailyDigest(at time.Time) string
}

// Notifier delivers a text alert.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Jobs groups what the scheduler can run. Nil members and empty schedules
// disable the matching job.
type Jobs struct {
	Syncer       Syncer
	SyncSchedule string

	Prober Prober

	Alerts        AlertSource
	Notifier      Notifier
	AlertSchedule string

	Digest         DigestSource
	DigestSchedule string
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewScheduler creates a scheduler running in the given IANA timezone.
func NewScheduler(timezone string, jobs Jobs, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		jobs:   jobs,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Start registers the enabled jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.jobs.Syncer != nil && s.jobs.SyncSchedule != "" {
		if _, err := s.cron.AddFunc(s.jobs.SyncSchedule, s.runSync); err != nil {
			return fmt.Errorf("schedule auto sync %q: %w", s.jobs.SyncSchedule, err)
		}
	}

	if s.jobs.Prober != nil {
		if _, err := s.cron.AddFunc(probeSchedule, s.runProbe); err != nil {
			return fmt.Errorf("schedule connectivity probe: %w", err)
		}
	}

	if s.jobs.Alerts != nil && s.jobs.Notifier != nil && s.jobs.AlertSchedule != "" {
		if _, err := s.cron.AddFunc(s.jobs.AlertSchedule, s.runLowStockAlert); err != nil {
			return fmt.Errorf("schedule low stock alert %q: %w", s.jobs.AlertSchedule, err)
		}
	}

	if s.jobs.Digest != nil && s.jobs.Notifier != nil && s.jobs.DigestSchedule != "" {
		if _, err := s.cron.AddFunc(s.jobs.DigestSchedule, s.runDailyDigest); err != nil {
			return fmt.Errorf("schedule daily digest %q: %w", s.jobs.DigestSchedule, err)
		}
	}

	s.logger.Info("scheduler jobs registered", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result := s.jobs.Syncer.SyncToCloud(ctx)
	if !result.Success {
		s.logger.Warn("scheduled sync failed", zap.String("error", result.Error))
		return
	}
	s.logger.Info("scheduled sync completed", zap.Strings("entities", result.Pushed))
}

func (s *Scheduler) runProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.jobs.Prober.Probe(ctx)
}

func (s *Scheduler) runLowStockAlert() {
	message, ok := s.jobs.Alerts.LowStockAlert()
	if !ok {
		s.logger.Debug("no low stock products")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.jobs.Notifier.Notify(ctx, message); err != nil {
		s.logger.Error("failed to send low stock alert", zap.Error(err))
		return
	}
	s.logger.Info("low stock alert sent")
}

func (s *Scheduler) runDailyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	message := s.jobs.Digest.DailyDigest(s.now().In(s.loc))
	if err := s.jobs.Notifier.Notify(ctx, message); err != nil {
		s.logger.Error("failed to send daily digest", zap.Error(err))
		return
	}
	s.logger.Info("daily digest sent")
}
