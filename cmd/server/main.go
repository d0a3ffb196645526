// Package main implements the entry point for the taskrelay server,
// which publishes tasks, brokers their claim and review lifecycle, and
// expires overdue work.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/phrazzld/taskrelay/internal/config"
	"github.com/phrazzld/taskrelay/internal/export"
	"github.com/phrazzld/taskrelay/internal/notify"
	"github.com/phrazzld/taskrelay/internal/platform/logger"
	"github.com/phrazzld/taskrelay/internal/platform/postgres"
	"github.com/phrazzld/taskrelay/internal/scheduler"
	"github.com/phrazzld/taskrelay/internal/service"
	"github.com/phrazzld/taskrelay/internal/token"
)

// application bundles the configured dependencies the router and server
// need.
type application struct {
	config            *config.Config
	logger            *slog.Logger
	db                *sql.DB
	userService       service.UserService
	taskService       service.TaskService
	delegationService service.DelegationService
	scheduler         *scheduler.Scheduler
	exporter          *export.Exporter
}

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	app.scheduler.Start()
	if err := app.scheduler.Restore(context.Background()); err != nil {
		app.logger.Error("reminder restore failed", slog.String("error", err.Error()))
	}

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration, connects the database, applies
// migrations and wires the service graph.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := postgres.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	managerIDs, err := cfg.Tasks.ManagerIDList()
	if err != nil {
		return nil, fmt.Errorf("invalid manager allow-list: %w", err)
	}

	location, err := time.LoadLocation(cfg.Tasks.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", cfg.Tasks.Timezone, err)
	}

	signer, err := token.NewSigner(cfg.Auth.TokenSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db, appLogger)
	userStore := postgres.NewPostgresUserStore(db, appLogger)
	eventStore := postgres.NewPostgresEventStore(db, appLogger)

	notifier := notify.NewLogNotifier(appLogger)

	sched := scheduler.New(
		db,
		taskStore,
		eventStore,
		notifier,
		managerIDs,
		cfg.Scheduler.ReminderLeadMinutes,
		time.Duration(cfg.Scheduler.SweepIntervalSeconds)*time.Second,
		appLogger,
	)

	app := &application{
		config:      cfg,
		logger:      appLogger,
		db:          db,
		userService: service.NewUserService(userStore, managerIDs),
		taskService: service.NewTaskService(
			db,
			taskStore,
			eventStore,
			notifier,
			sched,
			managerIDs,
			cfg.Tasks.MaxActivePerExecutor,
		),
		delegationService: service.NewDelegationService(taskStore, signer),
		scheduler:         sched,
		exporter:          export.NewExporter(taskStore, userStore, location),
	}

	return app, nil
}

// cleanup releases resources on shutdown.
func (app *application) cleanup() {
	app.scheduler.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}

// displayLocation returns the configured display timezone. Falls back
// to UTC if configuration validation let a bad zone through.
func (app *application) displayLocation() *time.Location {
	location, err := time.LoadLocation(app.config.Tasks.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}
