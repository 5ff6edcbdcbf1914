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
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"proudprofit/internal/alert"
	"proudprofit/internal/auth"
	"proudprofit/internal/config"
	cronrunner "proudprofit/internal/cron"
	"proudprofit/internal/db"
	"proudprofit/internal/dispatch"
	"proudprofit/internal/handler"
	"proudprofit/internal/logger"
	"proudprofit/internal/market"
	"proudprofit/internal/metrics"
	"proudprofit/internal/queue"
	"proudprofit/internal/realtime"
	gormrepository "proudprofit/internal/repository/gorm"
	signalsvc "proudprofit/internal/signal"
	"proudprofit/internal/timing"

	_ "proudprofit/docs"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("PP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PP_ENV_ONLY"); envOnlyRaw != "" {
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

	store := gormrepository.New(dbConn.Gorm)
	hub := realtime.NewHub(logger, cfg.Realtime.SubscriberBuffer)

	gateSvc := &timing.Service{Repo: store, Logger: logger}
	q := &queue.Queue{Repo: store, Logger: logger, DefaultMaxAttempts: cfg.Dispatch.MaxAttempts}

	feed := &market.Feed{
		Logger:        logger,
		Endpoint:      cfg.Feed.Endpoint,
		Symbols:       cfg.Feed.Symbols,
		PollInterval:  cfg.Feed.PollInterval,
		WindowSeconds: cfg.Feed.WindowSeconds,
	}

	matcher := &alert.Matcher{
		Repo:       store,
		Gate:       gateSvc,
		Queue:      q,
		Volatility: feed,
		Logger:     logger,
	}

	signals := &signalsvc.Service{
		Repo:   store,
		Logger: logger,
		Sinks:  []signalsvc.Sink{matcher, hub},
	}

	senders := buildSenders(cfg.Channels, hub, logger)
	dispatcher := dispatch.New(store, q, senders, cfg.Dispatch, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(metrics.Middleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	engine.GET("/metrics", metrics.Handler())
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	webhookHandler := &handler.WebhookHandler{Signals: signals, Token: cfg.Webhook.Token}
	webhookHandler.Register(engine)

	streamHandler := &handler.StreamHandler{Hub: hub, Logger: logger}
	streamHandler.Register(engine)

	jwtCfg := auth.JWT{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   "proudprofit",
		TokenTTL: 24 * time.Hour,
	}
	authed := engine.Group("", auth.Middleware(jwtCfg))

	signalHandler := &handler.SignalHandler{Signals: signals}
	signalHandler.Register(authed)
	alertHandler := &handler.AlertHandler{Repo: store}
	alertHandler.Register(authed)
	timingHandler := &handler.TimingHandler{Repo: store, Gate: gateSvc}
	timingHandler.Register(authed)
	notifHandler := &handler.NotificationHandler{Repo: store, Queue: q, Dispatcher: dispatcher}
	notifHandler.Register(authed)

	admin := engine.Group("", auth.Middleware(jwtCfg), auth.RequireAdmin())
	notifHandler.RegisterAdmin(admin)
	signalHandler.RegisterAdmin(admin)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)

	pollSpec := "@every " + durationOrDefault(cfg.Queue.PollInterval, 5*time.Second).String()
	batch := cfg.Queue.BatchSize
	if batch <= 0 {
		batch = 50
	}
	_, err = cronRunner.Add(pollSpec, func(ctx context.Context) {
		result, err := dispatcher.ProcessDue(ctx, time.Now().UTC(), batch)
		if err != nil {
			logger.Warn("queue poll failed", zap.Error(err))
			return
		}
		if result.Claimed > 0 {
			_, _ = q.Stats(ctx)
		}
	})
	if err != nil {
		logger.Warn("cron register queue poll failed", zap.Error(err))
	}

	sweepSpec := "@every " + durationOrDefault(cfg.Queue.SweepInterval, time.Minute).String()
	claimTimeout := durationOrDefault(cfg.Queue.ClaimTimeout, 5*time.Minute)
	_, err = cronRunner.Add(sweepSpec, func(ctx context.Context) {
		n, err := q.ReleaseStale(ctx, time.Now().UTC(), claimTimeout)
		if err != nil {
			logger.Warn("stale claim sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("released stale claims", zap.Int64("count", n))
		}
	})
	if err != nil {
		logger.Warn("cron register stale sweep failed", zap.Error(err))
	}

	retentionSpec := cfg.Timing.RetentionSweep
	if retentionSpec == "" {
		retentionSpec = "@every 6h"
	}
	retention := durationOrDefault(cfg.Timing.DecisionRetention, 30*24*time.Hour)
	_, err = cronRunner.Add(retentionSpec, func(ctx context.Context) {
		n, err := store.DeleteTimingDecisionsBefore(ctx, time.Now().UTC().Add(-retention))
		if err != nil {
			logger.Warn("decision retention sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("pruned timing decisions", zap.Int64("count", n))
		}
	})
	if err != nil {
		logger.Warn("cron register decision retention failed", zap.Error(err))
	}

	cronRunner.Start()
	defer cronRunner.Stop()

	if cfg.Feed.Enabled {
		feed.OnTick = func(ctx context.Context, tick market.Tick) {
			matcher.HandleTick(ctx, tick)
			hub.Publish(realtime.Event{
				Type:   realtime.EventPrice,
				Ticker: tick.Symbol,
				At:     tick.At,
				Data:   tick,
			})
		}
		go func() {
			if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("price feed stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildSenders(cfg config.ChannelsConfig, hub *realtime.Hub, logger *zap.Logger) []dispatch.Sender {
	senders := []dispatch.Sender{dispatch.NewAppSender(hub, cfg.Push)}
	if cfg.Email.Enabled {
		senders = append(senders, dispatch.NewEmailSender(cfg.Email))
	}
	if cfg.SMS.Enabled {
		senders = append(senders, dispatch.NewSMSSender(cfg.SMS))
	}
	if cfg.Telegram.Enabled {
		tg, err := dispatch.NewTelegramSender(cfg.Telegram)
		if err != nil {
			logger.Warn("telegram sender init failed (channel disabled)", zap.Error(err))
		} else {
			senders = append(senders, tg)
		}
	}
	return senders
}

func durationOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
