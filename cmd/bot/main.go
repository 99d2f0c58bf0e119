// Package main - точка входа SMC Quest: геймифицированного бэкенда курса
// с квестами, опытом, дедлайнами и таблицей лидеров.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event handlers)
// - Infrastructure: хранилища прогресса, Redis-кеш, Telegram API клиент
// - Interface: Telegram Bot handlers, HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/smc-quest/smc-quest-core/config"

	// Application layer
	"github.com/smc-quest/smc-quest-core/internal/application/command"
	"github.com/smc-quest/smc-quest-core/internal/application/eventhandler"
	"github.com/smc-quest/smc-quest-core/internal/application/query"

	// Domain layer
	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"

	// Infrastructure layer
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/messaging"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/file"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/postgres"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/smc-quest/smc-quest-core/internal/interface/http"
	"github.com/smc-quest/smc-quest-core/internal/interface/telegram"

	// Packages
	"github.com/smc-quest/smc-quest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env опционален: в контейнере конфигурация приходит из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)
	log.Info("starting SMC Quest",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"store_backend", cfg.Store.Backend,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ЗАГРУЗКА КАТАЛОГА КУРСА
	// ─────────────────────────────────────────────────────────────────────────
	courseCatalog, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("invalid course catalog: %w", err)
	}
	log.Info("course catalog loaded",
		"modules", courseCatalog.ModuleCount(),
		"badges", len(courseCatalog.Badges()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ ХРАНИЛИЩА ПРОГРЕССА
	// ─────────────────────────────────────────────────────────────────────────
	var store player.Store

	switch cfg.Store.Backend {
	case config.StorePostgres:
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")
		store = postgres.NewStore(dbConn)

	case config.StoreFile:
		store = file.New(cfg.Store.FilePath, log)
		log.Info("using file progress store", "path", cfg.Store.FilePath)

	default:
		return fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}

	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load progress store: %w", err)
	}
	defer func() {
		log.Info("persisting progress store...")
		if err := store.Persist(context.Background()); err != nil {
			log.Error("failed to persist progress store", "error", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Кеш рейтинга необязателен: без него запросы лидерборда читают
	// хранилище напрямую.
	var leaderboardCache player.LeaderboardCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...", "addr", cfg.Redis.Addr())
		redisCache, err := redis.NewLeaderboardCache(ctx, redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.CacheTTL,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard cache disabled", "error", err)
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewGuardedCache(redisCache, log)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	deadlinePolicy := command.DeadlinePolicy{
		ModuleDeadlineHours:   cfg.Progression.ModuleDeadlineHours,
		PenaltyExtensionHours: cfg.Progression.PenaltyExtensionHours,
		MaxExtensions:         cfg.Progression.MaxExtensions,
	}
	streakPolicy := command.DefaultStreakPolicy()
	streakPolicy.DailyBonusXP = cfg.Progression.DailyBonusXP

	deadlines := command.NewDeadlineController(store, courseCatalog, eventBus, deadlinePolicy, log)
	progression := command.NewProgressionEngine(store, courseCatalog, deadlines, eventBus, log)
	badges := command.NewBadgeRegistry(store, courseCatalog, eventBus, log)
	streaks := command.NewStreakTracker(store, progression, badges, eventBus, streakPolicy, log)
	quests := command.NewQuestLedger(store, courseCatalog, progression, deadlines, badges, eventBus, log)

	getPlayer := query.NewGetPlayerHandler(store, log)
	getStats := query.NewGetPlayerStatsHandler(store, courseCatalog, cfg.Progression.MaxExtensions, log)
	getLeaderboard := query.NewGetLeaderboardHandler(store, leaderboardCache, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	if leaderboardCache != nil {
		progressHandler := eventhandler.NewOnProgressChangedHandler(store, leaderboardCache, log)
		if err := progressHandler.Register(eventBus); err != nil {
			return fmt.Errorf("failed to register progress handler: %w", err)
		}

		// Горячий старт: кеш пересобирается из хранилища, дальше его
		// поддерживают события прогресса.
		if err := getLeaderboard.RebuildCache(ctx); err != nil {
			log.Warn("initial leaderboard rebuild failed", "error", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. СОЗДАНИЕ TELEGRAM BOT (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var bot *telegram.Bot

	if cfg.Telegram.Enabled {
		botConfig := telegram.DefaultBotConfig(cfg.Telegram.Token)
		botConfig.PollingTimeout = int(cfg.Telegram.PollingTimeout.Seconds())
		botConfig.AdminIDs = cfg.Telegram.AdminIDs
		botConfig.Logger = log

		bot, err = telegram.NewBot(botConfig, telegram.BotDependencies{
			Quests:         quests,
			Progression:    progression,
			Deadlines:      deadlines,
			Streaks:        streaks,
			GetPlayer:      getPlayer,
			GetStats:       getStats,
			GetLeaderboard: getLeaderboard,
			Catalog:        courseCatalog,
		})
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
	} else {
		log.Info("telegram bot disabled, serving HTTP API only")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Addr = cfg.HTTP.Addr
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.AdminIDs = cfg.Telegram.AdminIDs

	httpServer := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		Quests:         quests,
		Progression:    progression,
		Deadlines:      deadlines,
		Streaks:        streaks,
		GetPlayer:      getPlayer,
		GetStats:       getStats,
		GetLeaderboard: getLeaderboard,
		Catalog:        courseCatalog,
		Logger:         newHTTPLogger(cfg),
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 11. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 2)

	go func() {
		log.Info("starting HTTP server", "addr", cfg.HTTP.Addr)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	if bot != nil {
		go func() {
			if err := bot.Start(ctx); err != nil {
				errCh <- fmt.Errorf("telegram bot error: %w", err)
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("SMC Quest is running",
		"http_addr", cfg.HTTP.Addr,
		"telegram_enabled", cfg.Telegram.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// Сначала бот перестаёт принимать обновления, потом закрывается HTTP.
	// Хранилище, Redis и event bus закрываются через defer.
	if bot != nil {
		log.Info("stopping Telegram bot...")
		bot.Stop()
	}

	log.Info("stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger строит slog по настройкам наблюдаемости.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// newHTTPLogger строит логгер HTTP-слоя с уровнем из конфигурации.
func newHTTPLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	return logger.New(opts)
}
