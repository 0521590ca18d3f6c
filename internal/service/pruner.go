package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sipwell/agent/internal/domain"
	"go.uber.org/zap"
)

const defaultPruneInterval = 1 * time.Hour

// Pruner enforces the data-retention horizon: activity samples and
// error reports past it are deleted, terminal reminder records are
// archived. Runs as a named periodic job.
type Pruner struct {
	settingsStore domain.SettingsStore
	activityStore domain.ActivityStore
	reminderStore domain.ReminderStore
	reportStore   domain.ReportStore
	logger        *zap.Logger

	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewPruner(ss domain.SettingsStore, as domain.ActivityStore, rs domain.ReminderStore,
	reports domain.ReportStore, logger *zap.Logger) (*Pruner, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Pruner{
		settingsStore: ss,
		activityStore: as,
		reminderStore: rs,
		reportStore:   reports,
		logger:        logger,
		interval:      defaultPruneInterval,
		scheduler:     scheduler,
	}, nil
}

func (p *Pruner) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// Start registers the retention job and starts the job runner.
func (p *Pruner) Start() error {
	_, err := p.scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			p.RunOnce(ctx)
		}),
		gocron.WithName("retention-prune"),
	)
	if err != nil {
		return err
	}
	p.scheduler.Start()
	p.logger.Info("retention pruner started", zap.Duration("interval", p.interval))
	return nil
}

func (p *Pruner) Stop() {
	if err := p.scheduler.Shutdown(); err != nil {
		p.logger.Warn("retention pruner shutdown failed", zap.Error(err))
		return
	}
	p.logger.Info("retention pruner stopped")
}

// RunOnce applies the retention horizon once.
func (p *Pruner) RunOnce(ctx context.Context) {
	retention := domain.DefaultSettings().RetentionDays
	if settings, err := p.settingsStore.Load(ctx); err == nil && settings.RetentionDays > 0 {
		retention = settings.RetentionDays
	} else if err != nil {
		p.logger.Warn("settings unavailable, pruning with default retention", zap.Error(err))
	}
	cutoff := time.Now().AddDate(0, 0, -retention)

	deleted, err := p.activityStore.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to prune activity samples", zap.Error(err))
	} else if deleted > 0 {
		p.logger.Info("pruned activity samples", zap.Int64("count", deleted))
	}

	archived, err := p.reminderStore.ArchiveTerminalBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to archive reminder records", zap.Error(err))
	} else if archived > 0 {
		p.logger.Info("archived reminder records", zap.Int64("count", archived))
	}

	purged, err := p.reportStore.DeleteReportsBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to prune error reports", zap.Error(err))
	} else if purged > 0 {
		p.logger.Info("pruned error reports", zap.Int64("count", purged))
	}
}
