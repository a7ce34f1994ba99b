package bot

import (
	"context"
	"docsummary/internal/completion"
	"docsummary/internal/domain"
	"docsummary/internal/extract"
	"docsummary/internal/markdown"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
)

const welcomeText = `📚 *Welcome to DocSummary\!*

I summarize documents with several AI providers and compare the results\. You can:

– Send me text to summarize it
– Send me links to summarize the pages or feeds behind them
– Send me a document \(%s\)
– Choose the summary type with /type
– Choose providers with /providers
– Compare the latest summaries with /compare
– Browse recent summaries with /history`

const typeText = `*✂️ Summary type*

Current summary type is *%s*\.

You can choose different type below:`

func (b *Bot) handleStartCommand(ctx context.Context, message *models.Message) error {
	extensions := strings.Join(extract.SupportedExtensions(), ", ")

	return b.sendMessage(ctx, message.Chat.ID, fmt.Sprintf(welcomeText, markdown.EscapeV2(extensions)), nil)
}

func (b *Bot) handleTypeCommand(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID

	if arg := commandArgs(message.Text); arg != "" {
		summaryType, err := domain.ParseSummaryType(arg)
		if err != nil {
			return b.sendMessage(ctx, chatID, fmt.Sprintf(
				"✖️ Unknown summary type\\. Choose one of: %s\\.",
				markdown.EscapeV2(formatSummaryTypes(domain.SummaryTypes())),
			), b.typeKeyboard)
		}

		if err = b.db.SetChatSummaryType(ctx, chatID, summaryType); err != nil {
			return b.replyFailed(ctx, chatID, fmt.Errorf("set chat summary type: %w", err))
		}

		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✅ Summary type is *%s*\\.", markdown.EscapeV2(string(summaryType))), nil)
	}

	settings, err := b.db.GetChatSettingsWithDefault(ctx, chatID)
	if err != nil {
		return b.replyFailed(ctx, chatID, fmt.Errorf("get chat settings with default: %w", err))
	}

	return b.sendMessage(ctx, chatID,
		fmt.Sprintf(typeText, markdown.EscapeV2(string(settings.SummaryType))),
		b.typeKeyboard)
}

func (b *Bot) handleProvidersCommand(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID
	arg := commandArgs(message.Text)

	switch strings.ToLower(arg) {
	case "":
		settings, err := b.db.GetChatSettingsWithDefault(ctx, chatID)
		if err != nil {
			return b.replyFailed(ctx, chatID, fmt.Errorf("get chat settings with default: %w", err))
		}

		return b.sendMessage(ctx, chatID,
			formatProvidersMessage(b.chatProviders(settings), b.registry.Providers()), nil)

	case "all", "default":
		if err := b.db.SetChatProviders(ctx, chatID, nil); err != nil {
			return b.replyFailed(ctx, chatID, fmt.Errorf("set chat providers: %w", err))
		}

		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✅ Providers are reset to *%s*\\.",
			markdown.EscapeV2(completion.FormatProviders(b.registry.Providers()))), nil)
	}

	providers, err := domain.ParseProviderList(arg)
	if err == nil {
		for _, p := range providers {
			if !b.registry.Supports(p) {
				err = fmt.Errorf("%w: %s", completion.ErrProviderNotSupported, p)
				break
			}
		}
	}

	if err != nil || len(providers) == 0 {
		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✖️ Unknown or unavailable providers\\. Available: %s\\.",
			markdown.EscapeV2(completion.FormatProviders(b.registry.Providers()))), nil)
	}

	if err = b.db.SetChatProviders(ctx, chatID, providers); err != nil {
		return b.replyFailed(ctx, chatID, fmt.Errorf("set chat providers: %w", err))
	}

	return b.sendMessage(ctx, chatID, fmt.Sprintf(
		"✅ Providers are *%s*\\.", markdown.EscapeV2(completion.FormatProviders(providers))), nil)
}

func (b *Bot) handleCompareCommand(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID

	provider, err := b.compareProvider(commandArgs(message.Text))
	if err != nil {
		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✖️ Unknown or unavailable provider\\. Available: %s\\.",
			markdown.EscapeV2(completion.FormatProviders(b.registry.Providers()))), nil)
	}

	doc, summaries, err := b.db.LatestDocumentSummaries(ctx, chatID)
	if err != nil {
		return b.replyFailed(ctx, chatID, fmt.Errorf("get latest document summaries: %w", err))
	}

	if doc == nil || len(summaries) == 0 {
		return b.sendMessage(ctx, chatID,
			"✖️ Nothing to compare yet\\. Send me a document, a link or some text first\\.", nil)
	}

	resp, err := b.pipeline.CompareSummaries(ctx, domain.CompareRequest{
		Summaries: summaries,
		Provider:  provider,
	})
	if err != nil {
		errs := []error{fmt.Errorf("compare summaries: %w", err)}

		sendErr := b.sendMessage(ctx, chatID, fmt.Sprintf(
			"❌ Comparison by *%s* failed: %s",
			markdown.EscapeV2(string(provider)), markdown.EscapeV2(err.Error())), nil)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.sendMessage(ctx, chatID, formatComparisonMessage(doc.Source, resp), nil)
}

func (b *Bot) handleHistoryCommand(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID

	stored, err := b.db.RecentSummaries(ctx, chatID, historyLimit)
	if err != nil {
		return b.replyFailed(ctx, chatID, fmt.Errorf("get recent summaries: %w", err))
	}

	return b.sendMessage(ctx, chatID, formatHistoryMessage(stored), nil)
}
