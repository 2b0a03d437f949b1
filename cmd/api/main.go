// Command api runs the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/calls"
	callrepo "leadflow_backend/internal/calls/repository"
	callservice "leadflow_backend/internal/calls/service"
	"leadflow_backend/internal/email"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads"
	leadrepo "leadflow_backend/internal/leads/repository"
	leadservice "leadflow_backend/internal/leads/service"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/sequences"
	seqrepo "leadflow_backend/internal/sequences/repository"
	seqservice "leadflow_backend/internal/sequences/service"
	taskhandler "leadflow_backend/internal/tasks/handler"
	taskrepo "leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tasks/scheduler"
	"leadflow_backend/internal/tiers"
	"leadflow_backend/migrations"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connectWithRetry(ctx, cfg, log)
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

	trigger, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("scheduler client failed", "error", err.Error())
		os.Exit(1)
	}
	defer trigger.Close()

	app := apphttp.NewApp(cfg, cfg.Env, log,
		leads.NewModule(leadSvc, validate),
		sequences.NewModule(seqSvc, validate),
		calls.NewModule(callSvc, validate),
		taskhandler.NewModule(taskhandler.New(taskRepository, trigger)),
		notification.NewModule(notifRepository),
	)

	if err := app.Run(ctx); err != nil {
		log.Error("http server failed", "error", err.Error())
		os.Exit(1)
	}
}

// connectWithRetry keeps trying the database so the service survives
// container start ordering.
func connectWithRetry(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = db.NewPool(ctx, cfg)
		if err == nil {
			return pool, nil
		}
		log.Warn("database not ready, retrying", "attempt", attempt, "error", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	return nil, err
}
