package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"insiderpulse/internal/config"
	cronrunner "insiderpulse/internal/cron"
	"insiderpulse/internal/db"
	"insiderpulse/internal/detector"
	"insiderpulse/internal/handler"
	"insiderpulse/internal/logger"
	"insiderpulse/internal/notify"
	gormrepository "insiderpulse/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("IP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("IP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm, cfg.Pipeline.BatchSize)

	var queue notify.Queue = notify.NoopQueue{}
	var redisQueue *notify.RedisQueue
	if cfg.Redis.Enabled {
		redisQueue = notify.NewRedisQueue(cfg.Redis)
		queue = redisQueue
		defer redisQueue.Close()
	}

	orchestrator := &detector.Orchestrator{
		Repo:     store,
		Queue:    queue,
		Logger:   logger,
		Pipeline: cfg.Pipeline,
		Scoring:  cfg.Scoring,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	pipelineHandler := &handler.PipelineHandler{
		Repo:         store,
		Orchestrator: orchestrator,
		Logger:       logger,
		BaseCtx:      ctx,
	}
	pipelineHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.Refresh, func(ctx context.Context) {
			orchestrator.RunOnce(ctx)
		}); err != nil {
			logger.Fatal("cron add refresh failed", zap.Error(err))
		}
		cronRunner.Start()
		// First pass right away so signals are fresh shortly after boot.
		go orchestrator.RunOnce(ctx)
	}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if cfg.Cron.Enabled {
		cronRunner.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
