package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/postflight/campaign-api/internal/config"
	"github.com/postflight/campaign-api/internal/events"
	"github.com/postflight/campaign-api/internal/notify"
	"github.com/postflight/campaign-api/internal/platform/postgres"
	"github.com/postflight/campaign-api/internal/service"
	"github.com/postflight/campaign-api/internal/service/unsubscribe"
	"github.com/postflight/campaign-api/internal/store"
	"github.com/postflight/campaign-api/internal/task"
)

// application holds the wired components of a running server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskRunner *task.TaskRunner

	campaignService  service.CampaignService
	recipientService service.RecipientService
	groupService     service.GroupService
	tokenService     *unsubscribe.TokenService
}

// newApplication wires stores, transports, the task runner, and services.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	campaignStore := postgres.NewPostgresCampaignStore(db, logger)
	recipientStore := postgres.NewPostgresRecipientStore(db, logger)
	groupStore := postgres.NewPostgresGroupStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	txRunner := task.TxRunner(func(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
		return store.RunInTransaction(ctx, db, fn)
	})

	registry, err := buildNotifierRegistry(cfg.Notifier, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build notifier registry: %w", err)
	}

	tokenService, err := unsubscribe.NewTokenService(
		cfg.Unsubscribe.TokenSecret,
		time.Duration(cfg.Unsubscribe.TokenLifetimeHours)*time.Hour,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build token service: %w", err)
	}

	reconcileFactory := task.NewReconcileRecipientsTaskFactory(campaignStore, recipientStore, txRunner, logger)
	sendFactory := task.NewSendCampaignTaskFactory(
		campaignStore, registry, tokenService, cfg.Unsubscribe.LinkBaseURL, txRunner, logger)

	runner := task.NewTaskRunner(taskStore, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)
	runner.RegisterFactory(reconcileFactory)
	runner.RegisterFactory(sendFactory)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewFactoryEventHandler(runner, logger, reconcileFactory, sendFactory))

	campaignService, err := service.NewCampaignService(campaignStore, txRunner, emitter, logger)
	if err != nil {
		return nil, err
	}
	recipientService, err := service.NewRecipientService(recipientStore, groupStore, txRunner, logger)
	if err != nil {
		return nil, err
	}
	groupService, err := service.NewGroupService(groupStore, txRunner, logger)
	if err != nil {
		return nil, err
	}

	return &application{
		config:           cfg,
		logger:           logger,
		db:               db,
		taskRunner:       runner,
		campaignService:  campaignService,
		recipientService: recipientService,
		groupService:     groupService,
		tokenService:     tokenService,
	}, nil
}

// buildNotifierRegistry assembles the active transports from config. With
// LogOnly set, or with no transport configured, a logging notifier stands
// in so dispatches still complete locally.
func buildNotifierRegistry(cfg config.NotifierConfig, logger *slog.Logger) (*notify.Registry, error) {
	if cfg.LogOnly {
		return notify.NewRegistry(notify.NewLogNotifier(logger)), nil
	}

	registry := notify.NewRegistry()

	if cfg.SMTP.Host != "" {
		smtpNotifier, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			UseTLS:   cfg.SMTP.UseTLS,
			From:     cfg.FromAddress,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(smtpNotifier)
	}

	if cfg.SES.Region != "" {
		sesNotifier, err := notify.NewSESNotifier(context.Background(), notify.SESConfig{
			Region:    cfg.SES.Region,
			AccessKey: cfg.SES.AccessKey,
			SecretKey: cfg.SES.SecretKey,
			From:      cfg.FromAddress,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(sesNotifier)
	}

	if registry.Len() == 0 {
		logger.Warn("no notification transport configured, falling back to log notifier")
		registry.Register(notify.NewLogNotifier(logger))
	}

	return registry, nil
}

// run starts the task runner and the HTTP server, then blocks until
// shutdown completes.
func (app *application) run() error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	return app.startHTTPServer(context.Background(), app.setupRouter())
}

// cleanup stops the background components in dependency order.
func (app *application) cleanup() {
	app.taskRunner.Stop()
}
