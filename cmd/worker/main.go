// Package main - точка входа фонового воркера SMC Quest.
//
// Воркер выполняет периодические задачи поверх общего хранилища прогресса:
// - Пересборка Redis-кеша таблицы лидеров
// - Напоминания о приближающихся дедлайнах модулей
//
// Воркер работает только с backend'ом postgres: файловое хранилище
// принадлежит процессу бота и не разделяется между процессами.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/smc-quest/smc-quest-core/config"
	"github.com/smc-quest/smc-quest-core/internal/application/query"
	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/external/telegram"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/postgres"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/persistence/redis"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/scheduler"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/scheduler/jobs"
	"github.com/smc-quest/smc-quest-core/pkg/retry"
)

// workerConfig содержит расписания, специфичные для воркера.
type workerConfig struct {
	RebuildInterval  time.Duration
	ReminderInterval time.Duration
	ReminderWindow   time.Duration
}

func loadWorkerConfig() workerConfig {
	return workerConfig{
		RebuildInterval:  getEnvDuration("REBUILD_LEADERBOARD_INTERVAL", 10*time.Minute),
		ReminderInterval: getEnvDuration("DEADLINE_REMINDER_INTERVAL", 30*time.Minute),
		ReminderWindow:   getEnvDuration("DEADLINE_REMINDER_WINDOW", 24*time.Hour),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	wcfg := loadWorkerConfig()

	if cfg.Store.Backend != config.StorePostgres {
		return fmt.Errorf("worker requires STORE_BACKEND=postgres, got %q", cfg.Store.Backend)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)
	log.Info("starting SMC Quest Worker",
		"env", cfg.App.Environment,
		"rebuild_interval", wcfg.RebuildInterval.String(),
		"reminder_interval", wcfg.ReminderInterval.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	// Воркер часто стартует одновременно с базой, поэтому подключение
	// повторяется с экспоненциальной задержкой.
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	err = retry.DatabaseRetrier().Do(ctx, func(ctx context.Context) error {
		var err error
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		return err
	})
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

	store := postgres.NewStore(dbConn)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("failed to prepare progress store: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
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
			log.Warn("failed to connect to Redis, rebuild job disabled", "error", err)
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewGuardedCache(redisCache, log)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕГИСТРАЦИЯ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(log)
	registered := 0

	if leaderboardCache != nil {
		rebuilder := query.NewGetLeaderboardHandler(store, leaderboardCache, log)
		job := jobs.NewRebuildLeaderboardJob(rebuilder, log)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(wcfg.RebuildInterval)); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}
		registered++
	}

	if cfg.Telegram.Token != "" {
		clientConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
		clientConfig.Logger = log
		notifier := telegramNotifier{client: telegram.NewClient(clientConfig)}

		job := jobs.NewDeadlineReminderJob(store, notifier, wcfg.ReminderWindow, log)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(wcfg.ReminderInterval)); err != nil {
			return fmt.Errorf("failed to register reminder job: %w", err)
		}
		registered++
	} else {
		log.Info("telegram token not set, deadline reminders disabled")
	}

	if registered == 0 {
		return fmt.Errorf("no jobs to run: enable Redis or set a telegram token")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("SMC Quest Worker is running", "jobs", registered)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// telegramNotifier адаптирует Telegram-клиент под интерфейс задач. В личном
// чате chat_id совпадает с идентификатором пользователя.
type telegramNotifier struct {
	client *telegram.Client
}

func (n telegramNotifier) Notify(ctx context.Context, userID int64, text string) error {
	_, err := n.client.SendHTML(ctx, userID, text)
	return err
}

// setupLogger настраивает структурированное логирование.
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

// getEnvDuration возвращает time.Duration переменную окружения.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
