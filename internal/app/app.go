package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumokids/storytime-backend/internal/db"
	"github.com/lumokids/storytime-backend/internal/observability"
	"github.com/lumokids/storytime-backend/internal/pkg/logger"
)

const serviceName = "storytime-backend"

// App bundles everything a process entrypoint needs: config, storage, repos,
// the resolver/visibility services and the HTTP router.
type App struct {
	Config   Config
	Log      *logger.Logger
	DB       *gorm.DB
	Repos    Repos
	Services Services
	Router   *gin.Engine

	tracingShutdown func(context.Context) error
}

func New() (*App, error) {
	bootstrapLog, err := logger.New("development")
	if err != nil {
		return nil, fmt.Errorf("init bootstrap logger: %w", err)
	}
	cfg := LoadConfig(bootstrapLog)

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracingShutdown := observability.InitTracing(context.Background(), log, observability.TracingConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
	})

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	gormDB := postgresService.DB()

	repositories := wireRepos(gormDB, log)
	services, err := wireServices(cfg, repositories, log)
	if err != nil {
		return nil, err
	}
	handlers := wireHandlers(log, services)
	router := wireRouter(cfg, handlers)

	return &App{
		Config:   cfg,
		Log:      log,
		DB:       gormDB,
		Repos:    repositories,
		Services: services,
		Router:   router,

		tracingShutdown: tracingShutdown,
	}, nil
}

func (a *App) Run() error {
	a.Log.Info("Starting HTTP server", "port", a.Config.Port)
	return a.Router.Run(":" + a.Config.Port)
}

func (a *App) Close() {
	if a.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracingShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
