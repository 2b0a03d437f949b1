// Command worker runs the task queue processor, its asynq trigger
// consumer, and the interval dispatcher.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/calls"
	callrepo "leadflow_backend/internal/calls/repository"
	callservice "leadflow_backend/internal/calls/service"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/leads"
	leadrepo "leadflow_backend/internal/leads/repository"
	leadservice "leadflow_backend/internal/leads/service"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/sequences"
	seqrepo "leadflow_backend/internal/sequences/repository"
	seqservice "leadflow_backend/internal/sequences/service"
	"leadflow_backend/internal/tasks"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tasks/scheduler"
	"leadflow_backend/internal/tiers"
	"leadflow_backend/migrations"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("database connection failed", "error", err.Error())
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		log.Error("migrations failed", "error", err.Error())
		os.Exit(1)
	}

	registry, err := tiers.Load(cfg.GetTiersFile())
	if err != nil {
		log.Error("tiers config failed", "error", err.Error())
		os.Exit(1)
	}

	bus := platformevents.NewInMemoryBus(log)
	validate := validator.New()

	leadRepository := leadrepo.New(pool)
	taskRepository := taskrepo.New(pool)
	seqRepository := seqrepo.New(pool)
	callRepository := callrepo.New(pool)
	notifRepository := notification.NewRepository(pool)

	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		sender = email.NewNoopSender(log)
	}

	leadSvc := leadservice.New(leadRepository, taskRepository, seqRepository, registry, bus, log)
	seqSvc := seqservice.New(seqRepository, leadRepository, sender, taskRepository, bus, log)
	callSvc := callservice.New(callRepository, leadRepository, registry, taskRepository, sender, bus, log)

	notifSvc := notification.NewService(notifRepository, log)
	notifSvc.SubscribeAll(bus)

	processor := tasks.NewProcessor(
		taskRepository,
		notification.NewFailureNotifier(bus),
		log,
		cfg.GetTaskBatchSize(),
		cfg.GetTaskDispatchWidth(),
	)
	leads.NewModule(leadSvc, validate).RegisterTaskHandlers(processor)
	sequences.NewModule(seqSvc, validate).RegisterTaskHandlers(processor)
	calls.NewModule(callSvc, validate).RegisterTaskHandlers(processor)

	worker, err := scheduler.NewWorker(cfg, cfg.GetTaskRetentionDays(), processor, taskRepository, log)
	if err != nil {
		log.Error("worker setup failed", "error", err.Error())
		os.Exit(1)
	}

	trigger, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("scheduler client failed", "error", err.Error())
		os.Exit(1)
	}
	defer trigger.Close()

	dispatcher := scheduler.NewDispatcher(trigger, cfg.GetTaskProcessInterval(), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run()
	})
	g.Go(func() error {
		dispatcher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		runDailySweep(gctx, taskRepository, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		worker.Shutdown()
		return nil
	})

	log.Info("worker started",
		"batch_size", cfg.GetTaskBatchSize(),
		"dispatch_width", cfg.GetTaskDispatchWidth(),
		"process_interval", cfg.GetTaskProcessInterval().String(),
	)
	if err := g.Wait(); err != nil {
		log.Error("worker stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

// runDailySweep queues the warm-lead qualification task once a day.
// The dated dedupe key keeps multiple workers from double-queueing it.
func runDailySweep(ctx context.Context, repo *taskrepo.Repository, log *logger.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	enqueue := func() {
		_, err := repo.Enqueue(ctx, taskrepo.EnqueueParams{
			Type:      tasks.TypeQualifyWarmLeads,
			Priority:  tasks.PriorityLow,
			Payload:   tasks.QualifyWarmLeadsPayload{},
			DedupeKey: fmt.Sprintf("qualify_warm_leads:%s", time.Now().UTC().Format("2006-01-02")),
		})
		if err != nil {
			log.Error("queue warm lead sweep failed", "error", err.Error())
		}
	}

	enqueue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}
