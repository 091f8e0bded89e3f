package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/handler"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/identity"
	"rollcall/internal/logging"
	"rollcall/internal/metrics"
	"rollcall/internal/observability"
	"rollcall/internal/roster"
	"rollcall/internal/store"
	"rollcall/internal/store/memstore"
)

var release = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

// backends are the storage pieces the API is assembled from.
type backends struct {
	teachers identity.Repository
	students roster.Repository
	ledger   attendance.Repository
	sessions auth.SessionStore

	db    *store.DB
	redis *store.Redis
}

func (b *backends) close() {
	_ = b.db.Close()
	_ = b.redis.Close()
}

func openBackends(ctx context.Context, cfg config.App, logger *zap.Logger) (*backends, error) {
	b := &backends{}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := memstore.New()
		b.teachers, b.students, b.ledger, b.sessions = mem, mem, mem, mem
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.db = db
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx, db.Client); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		b.teachers = identity.NewPGRepository(db.Client)
		b.students = roster.NewPGRepository(db.Client)
		b.ledger = attendance.NewPGRepository(db.Client)
		b.sessions = auth.NewPGSessionStore(db.Client)
	}

	switch {
	case cfg.NeedsRedis():
		b.redis = store.NewRedis(cfg.RedisAddr)
		if !b.redis.Healthy(ctx) {
			logger.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr))
		}
		b.sessions = auth.NewRedisSessionStore(b.redis.Client, "")
	case cfg.SessionBackend == config.BackendMemory && b.db != nil:
		b.sessions = memstore.New()
	}
	return b, nil
}

func tokenService(cfg config.App, accounts *identity.Store, sessions auth.SessionStore) (auth.TokenService, error) {
	if cfg.AuthStrategy == config.StrategyOpaque {
		return auth.NewOpaqueService(accounts, sessions), nil
	}
	svc, err := auth.NewSignedService(accounts, auth.SignedConfig{
		Key:        cfg.JWTSigningKey,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	b, err := openBackends(startCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer b.close()

	accounts := identity.NewStore(b.teachers, cfg.BcryptCost, logger)
	tokens, err := tokenService(cfg, accounts, b.sessions)
	if err != nil {
		return err
	}
	h := handler.New(accounts, tokens, roster.NewService(b.students), attendance.NewLedger(b.ledger, logger), logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.AccessLog(logger, "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewClientLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK
		if b.db != nil {
			ok := b.db.Healthy(c.Request.Context())
			body["db"] = ok
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		if b.redis != nil {
			ok := b.redis.Healthy(c.Request.Context())
			body["redis"] = ok
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})
	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("auth", cfg.AuthStrategy),
			zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}
