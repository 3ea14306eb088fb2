package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libredis "utilitybill/backend/libs/redis"
	appconfig "utilitybill/backend/services/bill-service/internal/config"
	"utilitybill/backend/services/bill-service/internal/db"
	httpserver "utilitybill/backend/services/bill-service/internal/http"
	"utilitybill/backend/services/bill-service/internal/http/handlers"
	"utilitybill/backend/services/bill-service/internal/http/middleware"
	"utilitybill/backend/services/bill-service/internal/metrics"
	"utilitybill/backend/services/bill-service/internal/models"
	"utilitybill/backend/services/bill-service/internal/password"
	redisstore "utilitybill/backend/services/bill-service/internal/redis"
	"utilitybill/backend/services/bill-service/internal/repository"
	"utilitybill/backend/services/bill-service/internal/service"
	"utilitybill/backend/services/bill-service/internal/ws"
)

// configStore is the storage contract shared by the rule and credential services.
type configStore interface {
	service.RuleStore
	service.CredentialStore
}

// App wires dependencies for the bill service.
type App struct {
	server *httpserver.Server
	hub    *ws.Hub
	db     *sql.DB
	redis  *goredis.Client
	logger *zap.Logger
}

// New builds application graph. Resources acquired here are released by Close.
func New(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	revocations, err := a.openRevocations(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	m := metrics.New()
	validator := service.NewValidator()
	hub := ws.NewHub(cfg.Websocket.PingInterval, logger)

	tokenSvc := service.NewTokenService(cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)
	sessionSvc := service.NewSessionService(tokenSvc, revocations, logger)
	credentialSvc := service.NewCredentialService(store, password.NewBcryptHasher(cfg.Admin.BcryptCost), sessionSvc, validator, m, logger)
	ruleSvc := service.NewRuleService(store, credentialSvc, validator, hub, m, logger)
	billSvc := service.NewBillService(ruleSvc, m, logger)
	gate := service.NewAdminGate(ruleSvc, credentialSvc)

	configHandlers := handlers.NewConfigHandlers(ruleSvc, logger)
	adminHandlers := handlers.NewAdminHandlers(credentialSvc, sessionSvc, gate, logger)
	streamServer := ws.NewServer(hub, ruleSvc, cfg.Websocket.WriteTimeout, cfg.HTTP.AllowedOrigins, logger)

	routes := httpserver.Routes{
		Health:    handlers.NewHealthHandler(),
		Metrics:   m.Handler(),
		Calculate: handlers.NewCalculateHandler(billSvc, logger),
		GetConfig: configHandlers.Get,
		PutConfig: configHandlers.Put,
		GetPIN:    adminHandlers.GetPIN,
		SetPIN:    adminHandlers.SetPIN,
		Login:     adminHandlers.Login,
		Logout:    adminHandlers.Logout,
		State:     adminHandlers.State,
		Stream:    streamServer.HandleWS,
	}

	router := httpserver.NewRouter(routes, m)
	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)
	a.hub = hub

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *appconfig.Config) (configStore, error) {
	if cfg.Storage.Driver == appconfig.DriverMemory {
		a.logger.Warn("using in-memory config store, changes are lost on restart")
		rule := models.DefaultBillingRule()
		return repository.NewMemoryConfigRepository(&rule), nil
	}

	sqlDB, err := db.NewPostgres(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.db = sqlDB

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(sqlDB); err != nil {
			return nil, err
		}
		a.logger.Info("database migrations applied")
	}
	return repository.NewConfigRepository(sqlDB), nil
}

func (a *App) openRevocations(ctx context.Context, cfg *appconfig.Config) (service.RevocationList, error) {
	if cfg.Redis.Addr == "" {
		a.logger.Info("redis not configured, admin sign-outs are tracked in process")
		return service.NewMemoryRevocationList(), nil
	}

	client, err := libredis.NewRedisClient(ctx, libredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client
	return redisstore.NewRevocationStore(client), nil
}

// Run serves HTTP traffic and the config stream until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	return g.Wait()
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
