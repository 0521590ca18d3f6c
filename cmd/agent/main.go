package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sipwell/agent/internal/api"
	"github.com/sipwell/agent/internal/bootstrap"
	"github.com/sipwell/agent/internal/channel"
	"github.com/sipwell/agent/internal/config"
	"github.com/sipwell/agent/internal/domain"
	"github.com/sipwell/agent/internal/report"
	"github.com/sipwell/agent/internal/service"
	"github.com/sipwell/agent/internal/store"
	"go.uber.org/zap"
)

func main() {
	background := flag.Bool("background", false, "start without requiring a visible surface")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if config.LaunchMode() == "background" {
		*background = true
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("invalid database configuration", zap.Error(err))
	}
	defer pool.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	dbErr := pool.Ping(pingCtx)
	pingCancel()
	if dbErr == nil {
		logger.Info("connected to database")
	} else {
		logger.Warn("database unreachable, continuing degraded", zap.Error(dbErr))
	}

	// Reporting: durable sink when the database is up, direct-log
	// fallback otherwise. The fallback never fails.
	fallback := report.NewFallbackSink(logger)
	pgSink := report.NewPostgresSink(pool)
	var sink domain.ReportSink = pgSink
	if dbErr != nil {
		sink = fallback
	}

	// Stores
	settingsStore := store.NewSettingsStore(pool)
	activityStore := store.NewActivityStore(pool)
	reminderStore := store.NewReminderStore(pool)

	// Delivery surfaces
	notify := channel.NewNotificationChannel(config.NotifyURL())
	notify.SetTimeout(config.DispatchTimeout())
	overlay := channel.NewOverlayChannel(config.OverlayURL())
	overlay.SetTimeout(config.DispatchTimeout())

	// Services
	engine := service.NewIntervalEngine(service.IntervalTunables{
		HighActivityThreshold: config.HighActivityThreshold(),
		LowActivityThreshold:  config.LowActivityThreshold(),
	})
	delivery := service.NewDelivery(notify, overlay, sink, logger)
	delivery.SetEscalateAfter(config.EscalateAfterIgnores())
	delivery.SetDispatchTimeout(config.DispatchTimeout())

	scheduler := service.NewScheduler(settingsStore, activityStore, reminderStore, engine, delivery, sink, logger)
	scheduler.SetResponseTimeout(config.ResponseTimeout())
	scheduler.SetActivityWindow(config.ActivityWindow())
	scheduler.SetOnReminderDue(func(rec domain.ReminderRecord) {
		logger.Debug("reminder due notification", zap.String("record_id", rec.ID.String()))
	})

	pruner, err := service.NewPruner(settingsStore, activityStore, reminderStore, pgSink, logger)
	if err != nil {
		logger.Fatal("failed to create retention pruner", zap.Error(err))
	}
	pruner.SetInterval(config.PruneInterval())

	app := api.NewApp(scheduler, settingsStore, activityStore, reminderStore, pool, logger)

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	orchestrator := bootstrap.New(sink, fallback, logger)
	results := orchestrator.Bootstrap(ctx, []bootstrap.Initializer{
		{
			Service: bootstrap.ServiceDatabase,
			Hints:   []string{"check DATABASE_URL", "verify postgres is running"},
			Run: func(ctx context.Context) (domain.BootstrapOutcome, error) {
				if dbErr != nil {
					return domain.OutcomeFailed, domain.NewInitializationError(
						bootstrap.ServiceDatabase, "db-unreachable", dbErr)
				}
				return domain.OutcomeSuccess, nil
			},
		},
		{
			Service: bootstrap.ServiceReporting,
			Hints:   []string{"reports divert to the process log until the database returns"},
			Run: func(ctx context.Context) (domain.BootstrapOutcome, error) {
				if dbErr != nil {
					return domain.OutcomeDegraded, domain.NewInitializationError(
						bootstrap.ServiceReporting, "sink-fallback", dbErr)
				}
				return domain.OutcomeSuccess, nil
			},
		},
		{
			Service: bootstrap.ServiceSettings,
			Hints:   []string{"defaults are in effect until settings are saved"},
			Run: func(ctx context.Context) (domain.BootstrapOutcome, error) {
				if _, err := settingsStore.Load(ctx); err != nil {
					return domain.OutcomeDegraded, domain.NewInitializationError(
						bootstrap.ServiceSettings, "settings-unavailable", err)
				}
				return domain.OutcomeSuccess, nil
			},
		},
		{
			Service: bootstrap.ServiceChannels,
			Hints:   []string{"set SIPWELL_NOTIFY_URL and SIPWELL_OVERLAY_URL"},
			Run: func(ctx context.Context) (domain.BootstrapOutcome, error) {
				if config.NotifyURL() == "" && config.OverlayURL() == "" {
					if *background {
						// Background launches run headless by design;
						// reminders record as ignored until a surface
						// registers.
						return domain.OutcomeSuccess, nil
					}
					return domain.OutcomeDegraded, domain.NewSystemIntegrationError(
						bootstrap.ServiceChannels, "no-surface", fmt.Errorf("no delivery surface configured"))
				}
				return domain.OutcomeSuccess, nil
			},
		},
		{
			Service: bootstrap.ServiceScheduler,
			Run: func(ctx context.Context) (domain.BootstrapOutcome, error) {
				if err := scheduler.Start(); err != nil {
					return domain.OutcomeFailed, err
				}
				return domain.OutcomeSuccess, nil
			},
		},
		{
			Service: bootstrap.ServiceMaintenance,
			Run: func(ctx context.Context) (domain.BootstrapOutcome, error) {
				if err := pruner.Start(); err != nil {
					return domain.OutcomeFailed, err
				}
				return domain.OutcomeSuccess, nil
			},
		},
		{
			Service: bootstrap.ServiceHTTP,
			Hints:   []string{"check SERVER_PORT", "another process may hold the port"},
			Run: func(ctx context.Context) (domain.BootstrapOutcome, error) {
				lis, err := net.Listen("tcp", addr)
				if err != nil {
					return domain.OutcomeFailed, domain.NewUserInterfaceError(
						bootstrap.ServiceHTTP, "listen-failed", err)
				}
				go func() {
					logger.Info("control surface listening", zap.String("addr", addr))
					if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
						logger.Error("control surface stopped unexpectedly", zap.Error(err))
					}
				}()
				return domain.OutcomeSuccess, nil
			},
		},
	})
	app.SetBootstrapResults(results)

	for _, res := range results {
		logger.Info("bootstrap result",
			zap.String("service", res.Service),
			zap.String("outcome", string(res.Outcome)))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	scheduler.Stop()
	pruner.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown of control surface", zap.Error(err))
	}

	logger.Info("agent stopped")
}
