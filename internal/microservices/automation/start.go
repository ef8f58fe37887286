// Package automation assembles the automation service: storage, broker
// topology, controller, notification dispatcher, realtime hub and HTTP API.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"golang.org/x/sync/errgroup"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/common/httpx"
	"restaurant-automation/internal/common/logger"
	"restaurant-automation/internal/common/metrics"
	"restaurant-automation/internal/common/scheduler"
	"restaurant-automation/internal/connections/database"
	"restaurant-automation/internal/connections/objectstore"
	"restaurant-automation/internal/connections/rabbitmq"
	"restaurant-automation/internal/microservices/automation/decision"
	"restaurant-automation/internal/microservices/automation/intake"
	"restaurant-automation/internal/microservices/automation/load"
	"restaurant-automation/internal/microservices/automation/repository"
	"restaurant-automation/internal/microservices/automation/service"
	"restaurant-automation/internal/microservices/notificator/adapters"
	notifsvc "restaurant-automation/internal/microservices/notificator/service"
	ordersvc "restaurant-automation/internal/microservices/order/service"
	"restaurant-automation/internal/microservices/realtime"
	trackersvc "restaurant-automation/internal/microservices/tracker/service"
)

type Options struct {
	WorkerName string
	Prefetch   int
}

// Run blocks until ctx is cancelled or one of the service loops fails.
func Run(ctx context.Context, cfg config.App, opts Options, log *logger.Logger) error {
	metrics.Register(nil)

	db, err := database.Open(ctx, cfg.Database, database.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := repository.Migrate(db); err != nil {
		return err
	}
	store := repository.NewStore(db)
	log.Info("db_connected", map[string]any{"driver": cfg.Database.Driver})

	mq, err := rabbitmq.DialWithRetry(ctx, cfg.Rabbit, 2*time.Second)
	if err != nil {
		return err
	}
	defer func() { _ = mq.Close() }()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	log.Info("rabbitmq_connected", map[string]any{"host": cfg.Rabbit.Host})

	var archive objectstore.ReceiptArchiveInterface = objectstore.NewMemoryReceiptArchive()
	if cfg.Storage.Enabled() {
		s3archive, err := objectstore.NewS3ReceiptArchive(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		archive = s3archive
		log.Info("receipt_archive_ready", map[string]any{"bucket": cfg.Storage.Bucket})
	}

	sched := scheduler.New(clock.New(), log)
	tracker := load.NewTracker(cfg.Automation.KitchenCapacity, log)
	if err := tracker.Reconcile(ctx, store); err != nil {
		return err
	}

	hub := realtime.NewHub(64, log)
	mirror := realtime.NewFanoutMirror(mq, log, 256)
	bc := realtime.Multi{hub, mirror}

	registry := notifsvc.NewRegistry()
	adapters.RegisterDefaults(registry, mq, cfg.Notifications.Exchange, bc, sched.Now)
	dispatcher := notifsvc.NewDispatcher(registry, store, sched, log, notifsvc.OptionsFromConfig(cfg.Notifications))
	defer dispatcher.Stop()

	svc := service.NewAutomationService(service.Deps{
		Store:       store,
		Engine:      decision.NewEngine(decision.ConfigFrom(cfg.Decision)),
		Tracker:     tracker,
		Scheduler:   sched,
		Notifier:    dispatcher,
		Broadcaster: bc,
		Archive:     archive,
		Logger:      log,
	}, service.OptionsFromConfig(cfg.Automation))
	defer svc.Shutdown()

	resumed, err := svc.Resume(ctx)
	if err != nil {
		log.Error("resume_failed", err, nil)
	} else {
		log.Info("automation_resumed", map[string]any{"orders": resumed})
	}

	router, err := NewRouter(RouterDeps{
		HTTP:       cfg.HTTP,
		Auth0:      cfg.Auth0,
		Orders:     ordersvc.NewOrderService(store, intake.Announcer{Pub: mq}, bc, log, sched.Now),
		Tracker:    trackersvc.NewTrackerService(store, tracker, svc),
		Automation: svc,
		Reader:     store,
		Receipts:   archive,
		Events:     hub.Handler(15 * time.Second),
		Health: map[string]HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"rabbitmq": func(context.Context) error { return mq.Ping() },
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	consumer := intake.NewIntakeService(mq, svc, log, opts.WorkerName, opts.Prefetch)
	srv := httpx.New(fmt.Sprintf(":%d", cfg.HTTP.Port), router, cfg.HTTP.ShutdownTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http_listening", map[string]any{"port": cfg.HTTP.Port})
		return srv.Run(gctx)
	})
	g.Go(func() error {
		if err := consumer.Run(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("intake stream closed by broker")
		}
		return nil
	})
	g.Go(func() error { return tracker.Run(gctx, store, cfg.Automation.ReconcileInterval) })
	g.Go(func() error { return mirror.Run(gctx) })
	return g.Wait()
}
