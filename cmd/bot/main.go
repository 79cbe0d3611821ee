// cmd/bot/main.go
// Main entry point: wires storage, services, the Telegram bot and the admin HTTP API

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	// Internal packages
	"github.com/weekender/weekender-bot/internal/auth"
	"github.com/weekender/weekender-bot/internal/common/database"
	"github.com/weekender/weekender-bot/internal/common/logging"
	"github.com/weekender/weekender-bot/internal/common/utils"
	"github.com/weekender/weekender-bot/internal/config"
	"github.com/weekender/weekender-bot/internal/dating"
	"github.com/weekender/weekender-bot/internal/events"
	"github.com/weekender/weekender-bot/internal/live"
	"github.com/weekender/weekender-bot/internal/notification"
	"github.com/weekender/weekender-bot/internal/profile"
	"github.com/weekender/weekender-bot/internal/recommend"
	"github.com/weekender/weekender-bot/internal/session"
	"github.com/weekender/weekender-bot/internal/support"
	"github.com/weekender/weekender-bot/internal/telegram"
)

var startTime = time.Now()

func main() {
	// 1. Load environment variables
	envErr := godotenv.Load()

	// 2. Load configuration
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Caller: cfg.IsDevelopment(),
	})
	logger := logging.Component("main")

	logger.Info().Msg("🚀 Starting Weekender bot")
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("⚠️  No .env file found, using environment variables")
	}

	// 3. Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("❌ Configuration validation failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Connect to PostgreSQL
	logger.Info().Msg("🗄️  Step 4: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDB(ctx, database.DefaultPostgresConfig(cfg.DatabaseURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to connect to PostgreSQL")
	}
	defer db.Close()

	// 5. Run database migrations
	logger.Info().Msg("🔨 Step 5: Running database migrations...")
	if err := database.RunMigrations(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("❌ Migration error")
	}

	// 6. Connect to Redis (optional)
	logger.Info().Msg("📮 Step 6: Connecting to Redis...")
	var redisClient *redis.Client
	var sessions session.Store
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("⚠️  Redis unavailable, continuing with in-memory sessions")
			redisClient = nil
		}
	} else {
		logger.Warn().Msg("⚠️  Redis URL not configured, sessions are kept in memory")
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = session.NewRedisStore(redisClient, cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryStore()
	}

	// 7. Connect to Telegram
	logger.Info().Msg("🤖 Step 7: Connecting to Telegram...")
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to connect to Telegram")
	}
	api.Debug = cfg.BotDebug
	logger.Info().Str("username", api.Self.UserName).Msg("✅ Authorized on Telegram")

	// 8. Initialize services
	logger.Info().Msg("🧩 Step 8: Initializing services...")
	profileService := profile.NewService(profile.NewPostgresRepository(db), profile.Settings{
		MinAge:       cfg.MinAge,
		MaxAge:       cfg.MaxAge,
		MaxPhotos:    cfg.MaxPhotos,
		MaxInterests: cfg.MaxInterests,
	})
	sender := telegram.NewSender(api, profileService)

	recommendService := recommend.NewService(
		recommend.NewPostgresStore(db),
		sessions,
		recommend.NewTracker(rand.New(rand.NewSource(time.Now().UnixNano()))),
	)
	datingService := dating.NewService(dating.NewPostgresRepository(db), sender)

	broadcaster := notification.NewBroadcaster(sender, notification.BroadcasterConfig{
		Interval:       cfg.MailingInterval,
		Burst:          cfg.MailingBurst,
		ProgressEvery:  cfg.MailingProgressEvery,
		BreakerTimeout: notification.DefaultBroadcasterConfig().BreakerTimeout,
	})
	liveHub := live.NewHub()
	go liveHub.Run(ctx)
	mailingService := notification.NewService(notification.NewPostgresRepository(db), broadcaster, liveHub)

	supportService := support.NewService(support.NewPostgresRepository(db), cfg.SupportTicketTTL)
	eventsService := events.NewService(events.NewPostgresRepository(db))

	authService := auth.NewService(auth.NewPostgresRepository(db), auth.NewRedisBlacklist(redisClient), auth.Config{
		JWTSecret:       cfg.JWTSecret,
		TokenExpiry:     cfg.AdminTokenExpiry,
		BootstrapAdmins: cfg.AdminTgIDs,
	})
	authMiddleware := auth.NewMiddleware(authService)

	// 9. Setup routes
	logger.Info().Msg("🛣️  Step 9: Setting up admin API routes...")
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	auth.RegisterRoutes(router, auth.NewHandler(authService), authMiddleware.RequireAdmin)
	profile.RegisterRoutes(router, profile.NewHandler(profileService), authMiddleware.RequireAdmin)
	events.RegisterRoutes(router, events.NewHandler(eventsService), authMiddleware.RequireAdmin)
	dating.RegisterRoutes(router, dating.NewHandler(datingService), authMiddleware.RequireAdmin)
	notification.RegisterRoutes(router, notification.NewHandler(mailingService), authMiddleware.RequireAdmin)
	support.RegisterRoutes(router, support.NewHandler(supportService), authMiddleware.RequireAdmin)
	live.RegisterRoutes(router, live.NewHandler(liveHub), authMiddleware.RequireAdmin)

	router.Use(loggingMiddleware(logging.Component("http")))

	// 10. Background jobs
	dating.NewScheduler(datingService).Start(ctx)
	go support.NewCleanupJob(supportService, time.Hour).Start(ctx)

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("🌍 Admin API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("❌ Failed to start server")
		}
	}()

	// 12. Start the bot
	bot := telegram.NewBot(api, telegram.Services{
		Profiles:  profileService,
		Recommend: recommendService,
		Dating:    datingService,
		Mailing:   mailingService,
		Support:   supportService,
		Auth:      authService,
		Sessions:  sessions,
	}, telegram.Config{
		EventsPageSize: cfg.EventsPageSize,
		PeoplePageSize: cfg.PeoplePageSize,
		MinAge:         cfg.MinAge,
		MaxAge:         cfg.MaxAge,
		MaxPhotos:      cfg.MaxPhotos,
		ChatURL:        cfg.ChatURL,
		AssistantURL:   cfg.AssistantURL,
		CommunityChat:  cfg.CommunityChat,
		HandlerTimeout: 30 * time.Second,
		Workers:        cfg.Workers,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.PollTimeout
	updates := api.GetUpdatesChan(u)

	logger.Info().Msg("✅ Bot is polling for updates")
	if err := bot.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("bot stopped unexpectedly")
	}

	// Graceful shutdown
	logger.Info().Msg("⚠️  Shutdown signal received...")
	api.StopReceivingUpdates()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("❌ Server forced to shutdown")
	}
	logger.Info().Msg("✅ Exited gracefully")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	})
}

func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the live feed upgrade through the logging middleware
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}
