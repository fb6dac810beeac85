package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"convo-proxy/internal/config"
	apihttp "convo-proxy/internal/http"
	"convo-proxy/internal/llm"
	"convo-proxy/internal/metrics"
	"convo-proxy/internal/repository"
	"convo-proxy/internal/service"
	"convo-proxy/internal/stt"
)

const (
	serviceName     = "convo-proxy"
	serviceVersion  = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", zap.String("detail", w))
	}
	if cfg.AdminOpen() {
		logger.Warn("ADMIN_KEY is not set: admin endpoints are OPEN to anyone (development mode only)")
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	met := metrics.Noop()
	var metricsHandler http.Handler
	var metricsProvider *metrics.Provider
	if cfg.MetricsEnabled {
		p, err := metrics.InitProvider(serviceName, serviceVersion)
		if err != nil {
			return err
		}
		metricsProvider = p
		if met, err = metrics.NewMetrics(p.MeterProvider); err != nil {
			return err
		}
		metricsHandler = p.Handler
	}

	provider, err := llm.New(cfg.LLM(), logger.Named("llm"))
	if err != nil {
		return err
	}
	transcriber := stt.NewClient(cfg.HumeAPIKey, cfg.HumeURL(), logger.Named("stt"))

	sessions := repository.NewMemorySessionRepository(logger.Named("sessions"))
	chatSvc := service.NewChatService(sessions, provider, met, logger)
	voiceSvc := service.NewVoiceService(transcriber, met, logger)
	adminSvc := service.NewAdminService(sessions, logger)

	router := apihttp.NewRouter(
		apihttp.RouterConfig{
			Logger:         logger,
			Metrics:        met,
			MetricsHandler: metricsHandler,
			CORSOrigins:    cfg.CORSOrigins,
			AdminKey:       cfg.AdminKey,
		},
		apihttp.NewChatHandler(logger, chatSvc),
		apihttp.NewVoiceHandler(logger, voiceSvc),
		apihttp.NewAdminHandler(logger, adminSvc),
		apihttp.NewStaticHandler(logger, cfg.StaticDir),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server",
			zap.String("port", cfg.Port),
			zap.String("llm_provider", string(provider.Kind())),
			zap.Bool("metrics", cfg.MetricsEnabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if metricsProvider != nil {
			err = errors.Join(err, metricsProvider.Shutdown(shutdownCtx))
		}
		logger.Info("server stopped", zap.Int("live_sessions", sessions.Count()))
		return err
	})

	return g.Wait()
}
