package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trackbot/backend/internal/api/handler"
	"trackbot/backend/internal/auth"
	"trackbot/backend/internal/config"
	"trackbot/backend/internal/conversation"
	"trackbot/backend/internal/feed"
	"trackbot/backend/internal/gateway"
	"trackbot/backend/internal/localization"
	"trackbot/backend/internal/monitor"
	"trackbot/backend/internal/registry"
	"trackbot/backend/internal/report"
	"trackbot/backend/internal/storage"
	"trackbot/backend/internal/telegram"
	"trackbot/backend/internal/tracking"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupStorage connects the optional Postgres and Redis backends.
// Either may be nil when its setting is empty.
func setupStorage(ctx context.Context, cfg *config.Config) *storage.Service {
	var db *gorm.DB
	if cfg.DatabaseDSN != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect PostgreSQL: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	}

	s := storage.NewStorageService(db, rdb)
	if db != nil {
		if err := s.Migrate(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}
	log.WithFields(log.Fields{"database": db != nil, "redis": rdb != nil}).Info("Storage initialized")
	return s
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg.SetupLogging()
	log.WithFields(log.Fields{"env": cfg.Env, "provider": cfg.GeoProvider}).Info("Starting location tracking bot...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := setupStorage(ctx, cfg)

	geo, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("Failed to configure geo provider: %v", err)
	}
	texts, err := localization.Default()
	if err != nil {
		log.Fatalf("Failed to load texts: %v", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to start Telegram bot: %v", err)
	}
	log.WithField("username", bot.Self.UserName).Info("Authorized on Telegram")

	reg := registry.New(nil)
	admins := auth.NewAdmins(cfg.AdminIDs)
	notifier := telegram.NewNotifier(bot)

	svc := tracking.NewService(reg, report.NewBuilder(geo, geo), notifier, admins, texts, cfg.AdminGroupID)

	var relay feed.Relay
	if store.Redis != nil {
		relay = store
	}
	hub := feed.NewHub(relay)
	svc.SetPublisher(hub)

	var reports handler.ReportLister
	if store.DB != nil {
		svc.SetRecorder(store)
		reports = store
	}

	prompts := conversation.NewStore(cfg.PromptTimeout, nil)
	mon := monitor.New(reg, notifier, cfg.StaleThreshold, cfg.MonitorInterval)
	mon.AddExpirer(prompts)

	botService := telegram.NewBotService(notifier, svc, prompts, admins, texts)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	authenticator := auth.NewAPIAuthenticator(cfg.APIToken, cfg.JWTSecret)
	if !authenticator.Enabled() {
		log.Warn("Neither API_TOKEN nor JWT_SECRET is set, API requests will be rejected")
	}
	h := handler.NewHandler(svc, hub, authenticator, reports, cfg.CORSOrigins)
	h.RegisterRoutes(r)

	var updates <-chan tgbotapi.Update
	if cfg.IsProduction() {
		receiver := telegram.NewWebhookReceiver(config.FeedBufferSize)
		r.POST(cfg.WebhookPath(), receiver.Handle)
		if err := telegram.RegisterWebhook(bot, cfg.WebhookURL()); err != nil {
			log.Fatalf("Failed to register webhook: %v", err)
		}
		updates = receiver.Updates()
	} else {
		ch, err := telegram.StartPolling(bot)
		if err != nil {
			log.Fatalf("Failed to start polling: %v", err)
		}
		updates = ch
	}

	go hub.Run(ctx)
	go mon.Run(ctx)
	go botService.Run(ctx, updates)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Token"},
		AllowCredentials: true,
	}).Handler(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        corsHandler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   config.ReportTimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping...")

	if !cfg.IsProduction() {
		bot.StopReceivingUpdates()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	log.Info("Stopped")
}
