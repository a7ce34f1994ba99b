package bot

import (
	"context"
	"docsummary/internal/completion"
	"docsummary/internal/database"
	"docsummary/internal/domain"
	"docsummary/internal/extract"
	"docsummary/internal/ratelimiter"
	"docsummary/internal/summary"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	// Commands match only the whole bot command entity at the start of a message.
	commandMatchType = tgbot.MatchTypeCommandStartOnly

	updateProcessingTimeout = 10 * time.Minute
	fileDownloadTimeout     = 2 * time.Minute

	telegramMessageMaxLength = 4096
	historyLimit             = 10
)

type Options struct {
	// AllowedUsers restricts the bot to these user IDs when non-empty.
	AllowedUsers []int64
	// DefaultProvider evaluates comparisons when the command names none.
	DefaultProvider domain.Provider
	MaxFileSize     int64
}

type Bot struct {
	api          *tgbot.Bot
	rateLimiter  *ratelimiter.RateLimiter
	db           *database.Database
	pipeline     *summary.Pipeline
	extractor    *extract.Extractor
	registry     *completion.Registry
	httpClient   *http.Client
	opts         Options
	typeKeyboard *models.InlineKeyboardMarkup
	log          *slog.Logger
}

func New(
	token string,
	db *database.Database,
	pipeline *summary.Pipeline,
	extractor *extract.Extractor,
	registry *completion.Registry,
	opts Options,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)

	b := &Bot{
		db:           db,
		pipeline:     pipeline,
		extractor:    extractor,
		registry:     registry,
		httpClient:   &http.Client{Timeout: fileDownloadTimeout},
		opts:         opts,
		typeKeyboard: getTypeKeyboard(),
		log:          log,
	}

	api, err := tgbot.New(token,
		tgbot.WithDefaultHandler(b.messageHandler(b.handleMessage)),
		tgbot.WithMiddlewares(b.allowedUsersMiddleware),
		tgbot.WithErrorsHandler(func(err error) {
			log.Error("Failed to process Telegram update",
				"error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	b.api = api
	b.rateLimiter = ratelimiter.New(api, log)
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerHandlers() {
	commands := []struct {
		command string
		handle  func(ctx context.Context, message *models.Message) error
	}{
		{"start", b.handleStartCommand},
		{"help", b.handleStartCommand},
		{"type", b.handleTypeCommand},
		{"providers", b.handleProvidersCommand},
		{"compare", b.handleCompareCommand},
		{"history", b.handleHistoryCommand},
	}

	for _, c := range commands {
		b.api.RegisterHandler(tgbot.HandlerTypeMessageText, c.command, commandMatchType, b.messageHandler(c.handle))
	}

	b.api.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, typeCallbackPrefix, tgbot.MatchTypePrefix, b.handleCallbackQuery)
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.api.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func (b *Bot) allowedUsersMiddleware(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, api *tgbot.Bot, update *models.Update) {
		userID, username := updateUser(update)

		if !b.userAllowed(userID) {
			b.log.DebugContext(ctx, "User is not allowed",
				"userID", userID,
				"username", username,
				"chatID", updateChatID(update))

			return
		}

		updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
		defer cancel()

		next(updateCtx, api, update)
	}
}

func (b *Bot) messageHandler(handle func(ctx context.Context, message *models.Message) error) tgbot.HandlerFunc {
	return func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
		message := update.Message
		if message == nil {
			return
		}

		err := b.withSpinner(ctx, message.Chat.ID, func() error {
			return handle(ctx, message)
		})
		if err != nil {
			b.log.ErrorContext(ctx, "Failed to handle message",
				"error", err,
				"chatID", message.Chat.ID,
				"userID", messageUserID(message),
				"chatType", message.Chat.Type,
				"messageID", message.ID)
		}
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	if len(b.opts.AllowedUsers) == 0 {
		return true
	}

	return slices.Contains(b.opts.AllowedUsers, userID)
}

// chatProviders returns the configured providers of the chat that are still
// registered, or every registered provider.
func (b *Bot) chatProviders(settings *domain.ChatSettings) []domain.Provider {
	var providers []domain.Provider

	if settings != nil {
		for _, p := range settings.Providers {
			if b.registry.Supports(p) {
				providers = append(providers, p)
			}
		}
	}

	if len(providers) == 0 {
		return b.registry.Providers()
	}

	return providers
}

func (b *Bot) compareProvider(arg string) (domain.Provider, error) {
	if strings.TrimSpace(arg) != "" {
		provider, err := domain.ParseProvider(arg)
		if err != nil {
			return "", err
		}

		if !b.registry.Supports(provider) {
			return "", completion.ErrProviderNotSupported
		}

		return provider, nil
	}

	if b.registry.Supports(b.opts.DefaultProvider) {
		return b.opts.DefaultProvider, nil
	}

	providers := b.registry.Providers()
	if len(providers) == 0 {
		return "", completion.ErrProviderNotSupported
	}

	return providers[0], nil
}

func updateUser(update *models.Update) (int64, string) {
	switch {
	case update == nil:
		return 0, ""
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.From.Username
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, update.CallbackQuery.From.Username
	}

	return 0, ""
}

func updateChatID(update *models.Update) int64 {
	switch {
	case update == nil:
		return 0
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil:
		return callbackChatID(update.CallbackQuery)
	}

	return 0
}

func messageUserID(message *models.Message) int64 {
	if message != nil && message.From != nil {
		return message.From.ID
	}

	return 0
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	switch {
	case cb == nil:
		return 0
	case cb.Message.Message != nil:
		return cb.Message.Message.Chat.ID
	case cb.Message.InaccessibleMessage != nil:
		return cb.Message.InaccessibleMessage.Chat.ID
	}

	return cb.From.ID
}

// commandArgs returns the text following the leading command.
func commandArgs(text string) string {
	_, args, _ := strings.Cut(strings.TrimSpace(text), " ")

	return strings.TrimSpace(args)
}
