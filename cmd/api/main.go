package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nikahfirst/internal/audit"
	"nikahfirst/internal/auth"
	"nikahfirst/internal/config"
	"nikahfirst/internal/database"
	"nikahfirst/internal/httpapi"
	"nikahfirst/internal/subscription"
	"nikahfirst/internal/topup"
	"nikahfirst/internal/wallet"
	"nikahfirst/pkg/logger"
	"nikahfirst/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	sqlDB, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	db, err := utils.OpenGorm(sqlDB, cfg.App.Env == "local")
	if err != nil {
		log.Error("gorm init failed", "err", err)
		os.Exit(1)
	}
	if err := database.Migrate(rootCtx, db); err != nil {
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	// Without Redis, request numbers come from the database and creation is unlocked.
	var (
		seq  topup.Sequencer
		lock topup.Locker
	)
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		seq = topup.RedisSequencer{RDB: rdb}
		lock = topup.RedisLocker{RDB: rdb, TTL: cfg.Credits.TopUpLockTTL}
	} else {
		log.Warn("REDIS_HOST not set, top-up numbering falls back to the database")
	}

	// Services
	auditLog := audit.NewGormRepo(db)
	auditSvc := audit.NewService(auditLog)
	h := httpapi.Handlers{
		Auth: authManager,
		DB:   db,
		Wallet: wallet.NewService(db, auditSvc, wallet.Options{
			DefaultRedeemLimit: cfg.Credits.DefaultRedeemLimit,
			MaxGrant:           cfg.Credits.MaxAdminGrant,
		}),
		TopUp:        topup.NewService(db, auditSvc, seq, lock),
		Subscription: subscription.NewService(db, auditSvc),
		AuditLog:     auditLog,
		DevLogin:     cfg.App.Env == "local" || cfg.App.Env == "dev",
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
