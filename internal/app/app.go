// Package app assembles the API process from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursework-backend/internal/data/db"
	"github.com/yungbote/coursework-backend/internal/http"
	httpMW "github.com/yungbote/coursework-backend/internal/http/middleware"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/envutil"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	if err := ApplyConfigFile(envutil.String(ConfigFileEnv, "")); err != nil {
		return nil, err
	}
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	observability.Init(log, cfg.Metrics)

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}
	auth, err := httpMW.NewAuthMiddleware(log, cfg.AuthSecret)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		return nil, err
	}

	reposet := wireRepos(dbs.DB(), log)
	serviceset := wireServices(dbs.DB(), log, cfg, clients, reposet)
	handlerset := wireHandlers(log, dbs, clients, serviceset)

	return &App{
		Log:          log,
		DB:           dbs,
		Router:       wireRouter(log, cfg, auth, handlerset),
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}, nil
}

// Run starts background forwarders and serves HTTP until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.Services.Cancels.Start(ctx); err != nil {
		return fmt.Errorf("start cancel forwarder: %w", err)
	}
	return http.NewServer(a.Log, a.Cfg.HTTPAddr, a.Router).Run(ctx, a.Cfg.ShutdownGrace)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("Closing database failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownGrace)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	a.Log.Sync()
}
