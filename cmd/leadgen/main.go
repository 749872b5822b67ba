package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gbp-optimizer/leadgen-api/internal/config"
	"github.com/gbp-optimizer/leadgen-api/internal/domain"
	"github.com/gbp-optimizer/leadgen-api/internal/handler"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/bus"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/cache"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/client"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/mail"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/observability"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/resilience"
	"github.com/gbp-optimizer/leadgen-api/internal/infra/storage"
	"github.com/gbp-optimizer/leadgen-api/internal/port"
	"github.com/gbp-optimizer/leadgen-api/internal/service"
	"github.com/gbp-optimizer/leadgen-api/internal/token"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_dir", cfg.DataDir),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("embed_token_ttl", cfg.EmbedTokenTTL),
		zap.Bool("amqp_enabled", cfg.AMQPURL != ""),
		zap.Bool("smtp_enabled", cfg.SMTPHost != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), "leadgen-api", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer db.Close()

	leadStore := storage.NewLeadStore(db)
	settingsStore := storage.NewSettingsStore(db)

	// --- Event bus ---
	local := bus.NewLocal(logger, metrics)
	var publisher port.Publisher = local
	if cfg.AMQPURL != "" {
		amqpBus, err := bus.NewAMQP(cfg.AMQPURL, logger, metrics)
		if err != nil {
			logger.Warn("AMQP unavailable, events stay in-process", zap.Error(err))
		} else {
			defer amqpBus.Close()
			publisher = bus.NewComposite(local, amqpBus)
			relayCtx, relayCancel := context.WithCancel(context.Background())
			defer relayCancel()
			if err := amqpBus.Relay(relayCtx, local); err != nil {
				logger.Warn("AMQP relay unavailable, remote events will not reach local streams", zap.Error(err))
			}
			logger.Info("AMQP event publishing enabled")
		}
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	placesClient := client.NewPlacesClient(httpClient, cfg.PlacesAPIURL, resilience.NewCircuitBreaker("google-places"), resilienceCfg)
	openaiClient := client.NewOpenAIClient(httpClient, cfg.OpenAIAPIURL, resilience.NewCircuitBreaker("openai"), resilienceCfg, metrics)

	// --- Mail ---
	var sender port.MailSender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, logger)
		logger.Info("SMTP sending enabled", zap.String("host", cfg.SMTPHost))
	} else {
		logger.Warn("SMTP not configured, email sending unavailable")
	}

	// --- Services ---
	authSvc := service.NewAuthService(cfg.DemoEmail, cfg.DemoPasswordHash, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	// The session machine must have settled before routes start serving.
	authSvc.Initialize(context.Background())
	credentialSvc := service.NewCredentialService(settingsStore, domain.CredentialSet{
		GooglePlaces: cfg.GooglePlacesKey,
		OpenAI:       cfg.OpenAIKey,
	}, logger)
	scannerSvc := service.NewScannerService(placesClient, credentialSvc,
		cache.New[[]domain.Business](cfg.CacheTTL), metrics, cfg.MaxConcurrency, logger)
	reportSvc := service.NewReportService(openaiClient,
		cache.New[*domain.BusinessReport](cfg.CacheTTL), metrics, logger)
	leadSvc := service.NewLeadService(leadStore, settingsStore, publisher, sender, metrics, logger)
	templateSvc := service.NewTemplateService(settingsStore, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:        authSvc,
		Credentials: credentialSvc,
		Scanner:     scannerSvc,
		Reports:     reportSvc,
		Leads:       leadSvc,
		Templates:   templateSvc,
		Codec:       token.NewCodec(cfg.EmbedTokenTTL),
		Events:      local,
		Metrics:     metrics,
		Readiness:   db.Ping,
		Origins:     cfg.AllowedOrigins,
		Logger:      logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: the lead events stream keeps its response open.
		IdleTimeout: 60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
