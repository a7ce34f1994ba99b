package bot

import (
	"context"
	"docsummary/internal/extract"
	"docsummary/internal/markdown"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const textMessageSource = "text message"

const usageHint = "✖️ Send me text, a link or a document, or use /help\\."

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	if message.Document != nil {
		return b.handleDocument(ctx, message)
	}

	text := strings.TrimSpace(message.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return b.sendMessage(ctx, message.Chat.ID, usageHint, nil)
	}

	urls, err := extract.FindURLs(text)
	if err != nil {
		return b.replyFailed(ctx, message.Chat.ID, fmt.Errorf("find URLs: %w", err))
	}

	if len(urls) == 0 {
		return b.summarizeAndReply(ctx, message.Chat.ID, textMessageSource, text)
	}

	return b.handleURLs(ctx, message.Chat.ID, urls)
}

func (b *Bot) handleURLs(ctx context.Context, chatID int64, urls []string) error {
	var errs []error

	for _, u := range urls {
		text, err := b.extractor.ExtractURL(ctx, u)
		if err != nil {
			errs = append(errs, fmt.Errorf("extract URL: %w", err))

			sendErr := b.sendMessage(ctx, chatID, fmt.Sprintf(
				"❌ Failed to read %s\\.", markdown.EscapeV2(u)), nil)
			if sendErr != nil {
				errs = append(errs, fmt.Errorf("send message: %w", sendErr))
			}

			continue
		}

		if err = b.summarizeAndReply(ctx, chatID, u, text); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *Bot) handleDocument(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID
	doc := message.Document

	name := strings.TrimSpace(doc.FileName)
	if name == "" {
		name = doc.FileID
	}

	if !supportedDocument(name) {
		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✖️ Unsupported document format\\. Supported: %s\\.",
			markdown.EscapeV2(strings.Join(extract.SupportedExtensions(), ", "))), nil)
	}

	if b.opts.MaxFileSize > 0 && doc.FileSize > b.opts.MaxFileSize {
		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✖️ Document is too large \\(limit is %s bytes\\)\\.",
			markdown.EscapeV2(fmt.Sprint(b.opts.MaxFileSize))), nil)
	}

	file, err := b.api.GetFile(ctx, &tgbot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		return b.replyFailed(ctx, chatID, fmt.Errorf("get file: %w", err))
	}

	path, err := b.downloadFile(ctx, b.api.FileDownloadLink(file), filepath.Ext(name))
	if err != nil {
		return b.replyFailed(ctx, chatID, fmt.Errorf("download file: %w", err))
	}
	defer func() {
		if err = os.Remove(path); err != nil {
			b.log.WarnContext(ctx, "Failed to remove downloaded file",
				"error", err,
				"path", path)
		}
	}()

	text, err := b.extractor.ExtractFile(path)
	if err != nil {
		errs := []error{fmt.Errorf("extract file: %w", err)}

		sendErr := b.sendMessage(ctx, chatID, fmt.Sprintf(
			"❌ Failed to read %s\\.", markdown.EscapeV2(name)), nil)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.summarizeAndReply(ctx, chatID, name, text)
}

// summarizeAndReply summarizes text with every provider of the chat, stores
// the responses and sends one message per provider.
func (b *Bot) summarizeAndReply(ctx context.Context, chatID int64, source string, text string) error {
	if strings.TrimSpace(text) == "" {
		return b.sendMessage(ctx, chatID, fmt.Sprintf(
			"✖️ No text found in %s\\.", markdown.EscapeV2(source)), nil)
	}

	settings, err := b.db.GetChatSettingsWithDefault(ctx, chatID)
	if err != nil {
		return b.replyFailed(ctx, chatID, fmt.Errorf("get chat settings with default: %w", err))
	}

	providers := b.chatProviders(settings)

	b.log.InfoContext(ctx, "Summarizing document",
		"chatID", chatID,
		"source", source,
		"textLen", utf8.RuneCountInString(text),
		"summaryType", settings.SummaryType,
		"providers", providers)

	responses := b.pipeline.GenerateAll(ctx, text, settings.SummaryType, providers)

	var errs []error

	if _, err = b.db.SaveSummaries(ctx, chatID, source, utf8.RuneCountInString(text), responses); err != nil {
		errs = append(errs, fmt.Errorf("save summaries: %w", err))
	}

	for _, resp := range responses {
		if err = b.sendMessage(ctx, chatID, formatSummaryMessage(source, resp), nil); err != nil {
			errs = append(errs, fmt.Errorf("send summary of %s: %w", resp.Provider, err))
		}
	}

	return errors.Join(errs...)
}

// downloadFile stores the body of link in a temporary file with the given
// extension and returns its path.
func (b *Bot) downloadFile(ctx context.Context, link string, ext string) (path string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "docsummary-*"+strings.ToLower(ext))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close temp file: %w", closeErr))
		}
		if err != nil {
			err = errors.Join(err, os.Remove(f.Name()))
		}
	}()

	var body io.Reader = resp.Body
	if b.opts.MaxFileSize > 0 {
		body = io.LimitReader(resp.Body, b.opts.MaxFileSize+1)
	}

	n, err := io.Copy(f, body)
	if err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if b.opts.MaxFileSize > 0 && n > b.opts.MaxFileSize {
		return "", fmt.Errorf("%w: more than %d bytes", extract.ErrFileTooLarge, b.opts.MaxFileSize)
	}

	return f.Name(), nil
}

func supportedDocument(name string) bool {
	return slices.Contains(extract.SupportedExtensions(), strings.ToLower(filepath.Ext(name)))
}
