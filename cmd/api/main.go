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

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/auth"
	"meeting-platform/internal/config"
	"meeting-platform/internal/httpapi"
	"meeting-platform/internal/lifecycle"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/notify"
	"meeting-platform/internal/provider"
	"meeting-platform/internal/reporting"
	"meeting-platform/pkg/logger"
	"meeting-platform/pkg/utils"
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

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	issuer, err := provider.NewTokenIssuer(cfg.Stream.APISecret, cfg.Stream.UserTokenTTL)
	if err != nil {
		log.Error("token issuer init failed", "err", err)
		os.Exit(1)
	}
	source, err := provider.NewStreamSource(cfg.Stream, issuer)
	if err != nil {
		log.Error("call source init failed", "err", err)
		os.Exit(1)
	}
	defer source.Close()

	events := audit.NewService(audit.NewPostgresRepo(db))
	hub := notify.NewHub(log)

	watch := lifecycle.NewManager(lifecycle.ManagerConfig{
		Source: source,
		Hub:    hub,
		Events: events,
		Redis:  rdb,
		Log:    log,
	})
	defer watch.StopAll()

	meetingSvc := meetings.NewService(meetings.ServiceConfig{
		Source:      source,
		Watch:       watch,
		Events:      events,
		Redis:       rdb,
		Logger:      log,
		MeetingLink: cfg.MeetingLink,
	})
	reportSvc := reporting.NewService(source)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:     authManager,
		Tokens:   issuer,
		Meetings: meetingSvc,
		Reports:  reportSvc,
		Events:   events,
	}
	registerRoutes(r, h, registerDeps{
		AuthMW: auth.RequireAccessToken(authManager),
		Hub:    hub,
		DB:     db,
		Redis:  rdb,
		Source: source,
	})

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
