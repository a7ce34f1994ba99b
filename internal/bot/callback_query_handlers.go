package bot

import (
	"context"
	"docsummary/internal/domain"
	"docsummary/internal/markdown"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	chatID := callbackChatID(callback)

	err := b.withSpinner(ctx, chatID, func() error {
		data := strings.TrimSpace(callback.Data)

		if typeStr, ok := strings.CutPrefix(data, typeCallbackPrefix); ok {
			return b.handleTypeQuery(ctx, typeStr, chatID, callback)
		}

		return b.answerCallback(ctx, callback, "")
	})
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to handle callback query",
			"error", err,
			"chatID", chatID,
			"userID", callback.From.ID,
			"data", callback.Data)
	}
}

func (b *Bot) handleTypeQuery(
	ctx context.Context,
	typeStr string,
	chatID int64,
	callback *models.CallbackQuery,
) error {
	summaryType, err := domain.ParseSummaryType(typeStr)
	if err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("parse summary type: %w", err))
	}

	if err = b.db.SetChatSummaryType(ctx, chatID, summaryType); err != nil {
		return b.errorCallbackAnswer(ctx, callback, fmt.Errorf("set chat summary type: %w", err))
	}

	if err = b.answerCallback(ctx, callback, "✅ Summary type is updated."); err != nil {
		return err
	}

	return b.sendMessage(ctx, chatID, fmt.Sprintf(
		"✅ Summary type is *%s*\\.", markdown.EscapeV2(string(summaryType))), nil)
}

func (b *Bot) answerCallback(ctx context.Context, callback *models.CallbackQuery, text string) error {
	if _, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            text,
	}); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}

func (b *Bot) errorCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	err error,
) error {
	if sendErr := b.answerCallback(ctx, callback, "❌ Failed."); sendErr != nil {
		return errors.Join(err, sendErr)
	}

	return err
}
