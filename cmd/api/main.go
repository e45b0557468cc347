package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/seguroja/whatsapp-crm/internal/api/router"
	appconfig "github.com/seguroja/whatsapp-crm/internal/config"
	"github.com/seguroja/whatsapp-crm/internal/conversation"
	"github.com/seguroja/whatsapp-crm/internal/http/handlers"
	"github.com/seguroja/whatsapp-crm/internal/leads"
	"github.com/seguroja/whatsapp-crm/internal/notify"
	"github.com/seguroja/whatsapp-crm/internal/observability/metrics"
	"github.com/seguroja/whatsapp-crm/internal/whatsapp"
	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting whatsapp-crm API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var repo leads.Repository
	var messageStore *conversation.MessageStore
	var notifyLog notify.AttemptLogger
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repo = leads.NewPostgresRepository(pool)
		messageStore = conversation.NewMessageStore(pool)
		notifyLog = notify.NewLogStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory lead storage")
		repo = leads.NewInMemoryRepository()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = redisClient.Close() }()
	history := conversation.NewHistoryCache(redisClient)

	// Observability
	registry := prometheus.NewRegistry()
	conversationMetrics := metrics.NewConversationMetrics(registry)

	// WhatsApp gateway
	sender := whatsapp.NewClient(
		cfg.EvolutionAPIURL,
		cfg.EvolutionAPIKey,
		cfg.EvolutionInstance,
		whatsapp.WithTypingDelay(cfg.TypingDelay),
		whatsapp.WithTypingTimeout(cfg.GatewayTypingTimeout),
		whatsapp.WithHTTPClient(&http.Client{Timeout: cfg.GatewaySendTimeout}),
		whatsapp.WithLogger(logger),
	)

	// LLM
	llm := conversation.NewOpenAIClient(
		openai.NewClient(cfg.OpenAIAPIKey),
		conversation.WithModel(cfg.OpenAIModel),
		conversation.WithWindows(cfg.ExtractionWindow, cfg.ReplyWindow),
		conversation.WithTimeout(cfg.LLMTimeout),
		conversation.WithOpenAILogger(logger),
	)

	// Hand-off notifications
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, email notifications disabled")
	}
	notifyOpts := []notify.ServiceOption{
		notify.WithMetrics(conversationMetrics),
		notify.WithLogger(logger),
	}
	if notifyLog != nil {
		notifyOpts = append(notifyOpts, notify.WithAttemptLogger(notifyLog))
	}
	notifier := notify.NewService(emailSender, sender, notify.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminWhatsApp: cfg.AdminWhatsApp,
		DashboardURL:  cfg.DashboardURL,
		MaxRetries:    cfg.NotifyMaxRetries,
	}, notifyOpts...)

	// Turn processing. The lock table is shared with the admin takeover
	// handler so a broker claiming a conversation waits out in-flight turns.
	contactLocks := conversation.NewContactLocks()
	var appender conversation.MessageAppender = conversation.NopAppender{}
	if messageStore != nil {
		appender = messageStore
	}
	engine := conversation.NewEngine(repo, appender, history, sender, llm, notifier,
		conversation.WithMetrics(conversationMetrics),
		conversation.WithEngineLogger(logger),
		conversation.WithContactLocks(contactLocks),
	)

	queue := conversation.NewMemoryQueue(cfg.QueueBuffer)
	publisher := conversation.NewPublisher(queue, logger)
	worker := conversation.NewWorker(engine, queue, logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
	)
	worker.Start(ctx)

	// HTTP surface
	webhookHandler := handlers.NewEvolutionWebhookHandler(handlers.EvolutionWebhookConfig{
		Publisher:   publisher,
		CountryCode: cfg.DefaultCountryCode,
		Logger:      logger,
		Metrics:     conversationMetrics,
	})
	var adminHandler *handlers.AdminLeadsHandler
	if messageStore != nil {
		adminHandler = handlers.NewAdminLeadsHandler(handlers.AdminLeadsConfig{
			Repository: repo,
			Messages:   messageStore,
			Locks:      contactLocks,
			Logger:     logger,
		})
	}

	r := router.New(&router.Config{
		Logger:             logger,
		EvolutionWebhook:   webhookHandler,
		AdminLeads:         adminHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		WebhookPath:        cfg.WebhookPath,
		AdminAuthSecret:    cfg.AdminAuthSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Stop the workers after the webhook stops accepting new turns.
	cancel()
	worker.Wait()

	logger.Info("server stopped")
}
