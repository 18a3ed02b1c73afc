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
	"golang.org/x/time/rate"

	"levelwatch/internal/config"
	"levelwatch/internal/contract"
	cronrunner "levelwatch/internal/cron"
	"levelwatch/internal/db"
	"levelwatch/internal/fetcher"
	"levelwatch/internal/gateway"
	"levelwatch/internal/handler"
	"levelwatch/internal/logger"
	"levelwatch/internal/models"
	"levelwatch/internal/notifier"
	gormrepository "levelwatch/internal/repository/gorm"
	"levelwatch/internal/service"
)

func main() {
	cfgPath := os.Getenv("LW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if raw := os.Getenv("LW_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
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

	store := gormrepository.New(dbConn.Gorm)

	dialer := &gateway.WSDialer{
		URL:            cfg.Gateway.URL,
		ResolveTimeout: cfg.Gateway.ResolveTimeout,
		Logger:         logger,
	}
	resolver := &contract.Resolver{Store: store, Logger: logger}

	pace := cfg.PriceRun.PaceInterval
	if pace <= 0 {
		pace = 500 * time.Millisecond
	}
	runner := &fetcher.Runner{
		Repo:         store,
		Gateway:      dialer,
		Resolver:     resolver,
		Logger:       logger,
		SnapshotWait: cfg.PriceRun.SnapshotWait,
		Pace:         rate.NewLimiter(rate.Every(pace), 1),
	}

	var notify notifier.Notifier = &notifier.Log{Logger: logger}
	if strings.EqualFold(cfg.Notifier.Kind, "telegram") {
		tg, err := notifier.NewTelegram(cfg.Notifier.Telegram.Token, cfg.Notifier.Telegram.ChatID)
		if err != nil {
			logger.Warn("telegram notifier unavailable, falling back to log", zap.Error(err))
		} else {
			notify = tg
		}
	}

	syncSvc := &service.WatchlistSyncService{Repo: store, Logger: logger}
	runSvc := &service.PriceRunService{Runner: runner, Repo: store, Notifier: notify, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	watchlistHandler := &handler.WatchlistHandler{Sync: syncSvc, Repo: store, Logger: logger}
	watchlistHandler.Register(engine)
	runHandler := &handler.RunHandler{Runs: runSvc, Repo: store, Logger: logger}
	runHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		sessionJob := func(session models.Session) func(context.Context) {
			return func(ctx context.Context) {
				if _, err := runSvc.Execute(ctx, session); err != nil {
					logger.Warn("scheduled price run failed",
						zap.String("session", string(session)), zap.Error(err))
				}
			}
		}
		if _, err := cronRunner.Add(cfg.Cron.AMRun, sessionJob(models.SessionAM)); err != nil {
			logger.Warn("cron register am run failed", zap.Error(err))
		}
		if _, err := cronRunner.Add(cfg.Cron.PMRun, sessionJob(models.SessionPM)); err != nil {
			logger.Warn("cron register pm run failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
