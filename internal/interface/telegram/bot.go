// Package telegram implements the Telegram bot interface for the course:
// quest and quiz flow, stats, leaderboard, deadline control and the
// operator commands for homework review.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smc-quest/smc-quest-core/internal/application/command"
	"github.com/smc-quest/smc-quest-core/internal/application/query"
	"github.com/smc-quest/smc-quest-core/internal/domain/catalog"
	"github.com/smc-quest/smc-quest-core/internal/infrastructure/external/telegram"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Token is the Telegram Bot API token.
	Token string

	// PollingTimeout is the timeout for long polling (in seconds).
	PollingTimeout int

	// AdminIDs is the operator allow-list for review and deadline commands.
	AdminIDs []int64

	// Logger for structured logging.
	Logger *slog.Logger

	// GracefulShutdownTimeout is the timeout for graceful shutdown.
	GracefulShutdownTimeout time.Duration
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig(token string) BotConfig {
	return BotConfig{
		Token:                   token,
		PollingTimeout:          30,
		Logger:                  slog.Default(),
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// BotDependencies contains all dependencies for the bot handlers.
type BotDependencies struct {
	// Commands
	Quests      *command.QuestLedger
	Progression *command.ProgressionEngine
	Deadlines   *command.DeadlineController
	Streaks     *command.StreakTracker

	// Queries
	GetPlayer      *query.GetPlayerHandler
	GetStats       *query.GetPlayerStatsHandler
	GetLeaderboard *query.GetLeaderboardHandler

	// Course content
	Catalog catalog.Catalog
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	client *telegram.Client
	deps   BotDependencies
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewBot creates a new bot with the given configuration and dependencies.
func NewBot(config BotConfig, deps BotDependencies) (*Bot, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	clientConfig := telegram.DefaultClientConfig(config.Token)
	clientConfig.Logger = config.Logger

	return &Bot{
		config: config,
		client: telegram.NewClient(clientConfig),
		deps:   deps,
		logger: config.Logger,
	}, nil
}

// Start verifies the token and blocks polling for updates until ctx is
// cancelled or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	pollCtx, cancel := context.WithCancel(ctx)
	b.running = true
	b.cancel = cancel
	b.mu.Unlock()

	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram auth failed: %w", err)
	}
	b.logger.Info("telegram bot started", "username", me.Username)

	err = b.client.StartPolling(pollCtx, b.handleUpdate)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// Stop stops the polling loop.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	b.cancel()
	b.logger.Info("telegram bot stopped")
}

// isAdmin reports whether userID is on the operator allow-list.
func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.config.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// handleUpdate routes one update to a command or callback handler. A panic
// in a handler is contained so the polling loop survives.
func (b *Bot) handleUpdate(ctx context.Context, update *telegram.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler",
				"update_id", update.UpdateID, "panic", r)
			err = fmt.Errorf("panic in update handler: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && telegram.IsPrivateChat(update.Message):
		return b.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}
