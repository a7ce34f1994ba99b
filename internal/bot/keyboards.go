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

const typeCallbackPrefix = "summary_type_"

// sendMessage sends MarkdownV2 text split to the Telegram length limit. The
// keyboard, if any, is attached to the last part.
func (b *Bot) sendMessage(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard *models.InlineKeyboardMarkup,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	disablePreview := true
	parts := markdown.Split(normalizedText, telegramMessageMaxLength)

	for i, part := range parts {
		params := &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   part,
			// See https://core.telegram.org/bots/api#markdownv2-style.
			ParseMode:          models.ParseModeMarkdown,
			LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disablePreview},
		}

		if keyboard != nil && i == len(parts)-1 {
			params.ReplyMarkup = keyboard
		}

		if _, err := b.rateLimiter.Send(ctx, params); err != nil {
			return fmt.Errorf("send message part %d of %d: %w", i+1, len(parts), err)
		}
	}

	return nil
}

// replyFailed tells the chat that handling failed and returns err joined with
// any send error.
func (b *Bot) replyFailed(ctx context.Context, chatID int64, err error) error {
	if sendErr := b.sendMessage(ctx, chatID, "❌ Failed\\.", nil); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send message: %w", sendErr))
	}

	return err
}

func getTypeKeyboard() *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, len(domain.SummaryTypes()))

	for _, t := range domain.SummaryTypes() {
		row = append(row, models.InlineKeyboardButton{
			Text:         summaryTypeLabel(t),
			CallbackData: typeCallbackPrefix + string(t),
		})
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{row},
	}
}

func summaryTypeLabel(t domain.SummaryType) string {
	switch t {
	case domain.SummaryTypeBrief:
		return "✂️ Brief"
	case domain.SummaryTypeDetailed:
		return "📖 Detailed"
	case domain.SummaryTypeBullets:
		return "🔹 Bullets"
	default:
		return string(t)
	}
}
