package database

import (
	"context"
	"database/sql"
	"docsummary/internal/domain"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SaveSummaries stores a summarized document with its per-provider responses
// and returns the document ID.
func (d *Database) SaveSummaries(
	ctx context.Context,
	chatID int64,
	source string,
	textLen int,
	responses []domain.SummaryResponse,
) (documentID int64, err error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return 0, errors.New("source is empty")
	}

	if len(responses) == 0 {
		return 0, errors.New("no summaries to save")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	res, err := tx.ExecContext(ctx,
		"insert into documents (chat_id, source, text_len, created_at) values (?, ?, ?, ?)",
		chatID, source, textLen, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}

	documentID, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get document ID: %w", err)
	}

	query := `insert into summaries
	(document_id, position, provider, summary_type, summary, error, partial_summary, created_at)
	values (?, ?, ?, ?, ?, ?, ?, ?)`

	for i, resp := range responses {
		summary, errMsg, partial := responseColumns(resp)

		if _, err = tx.ExecContext(ctx, query,
			documentID, i, string(resp.Provider), string(resp.SummaryType),
			summary, errMsg, partial, time.Now().UTC()); err != nil {
			return 0, fmt.Errorf("insert summary (provider = %s): %w", resp.Provider, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return documentID, nil
}

// LatestDocumentSummaries returns the responses of the most recent document
// of the chat in their original order. The document is nil when the chat has
// none.
func (d *Database) LatestDocumentSummaries(
	ctx context.Context,
	chatID int64,
) (*domain.Document, []domain.SummaryResponse, error) {
	var doc domain.Document

	err := d.db.QueryRowContext(ctx,
		`select id, chat_id, source, text_len, created_at
		from documents
		where chat_id = ?
		order by id desc
		limit 1`, chatID).Scan(&doc.ID, &doc.ChatID, &doc.Source, &doc.TextLen, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query latest document: %w", err)
	}

	stored, err := d.querySummaries(ctx, "LatestDocumentSummaries",
		`select s.id, s.document_id, d.source, s.created_at,
		s.provider, s.summary_type, s.summary, s.error, s.partial_summary
		from summaries as s
		join documents as d
		on d.id = s.document_id
		where s.document_id = ?
		order by s.position`, doc.ID)
	if err != nil {
		return nil, nil, err
	}

	responses := make([]domain.SummaryResponse, 0, len(stored))
	for _, s := range stored {
		responses = append(responses, s.Response)
	}

	return &doc, responses, nil
}

// RecentSummaries returns up to limit stored summaries of the chat, newest
// first.
func (d *Database) RecentSummaries(
	ctx context.Context,
	chatID int64,
	limit int,
) ([]domain.StoredSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	return d.querySummaries(ctx, "RecentSummaries",
		`select s.id, s.document_id, d.source, s.created_at,
		s.provider, s.summary_type, s.summary, s.error, s.partial_summary
		from summaries as s
		join documents as d
		on d.id = s.document_id
		where d.chat_id = ?
		order by s.document_id desc, s.position
		limit ?`, chatID, limit)
}

// DeleteDocumentsBefore removes documents created before cutoff together
// with their summaries and returns the number of removed documents.
func (d *Database) DeleteDocumentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, "delete from documents where created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}

	return res.RowsAffected()
}

func (d *Database) GetChatSettingsWithDefault(
	ctx context.Context,
	chatID int64,
) (*domain.ChatSettings, error) {
	var (
		summaryType string
		providers   string
	)

	err := d.db.QueryRowContext(ctx,
		"select summary_type, providers from chat_settings where chat_id = ?",
		chatID).Scan(&summaryType, &providers)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ChatSettings{
			ChatID:      chatID,
			SummaryType: domain.DefaultSummaryType,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chat settings: %w", err)
	}

	parsedType, err := domain.ParseSummaryType(summaryType)
	if err != nil {
		d.log.WarnContext(ctx, "Invalid stored summary type",
			"error", err,
			"chatID", chatID,
			"summaryType", summaryType)

		parsedType = domain.DefaultSummaryType
	}

	parsedProviders, err := domain.ParseProviderList(providers)
	if err != nil {
		d.log.WarnContext(ctx, "Invalid stored providers",
			"error", err,
			"chatID", chatID,
			"providers", providers)

		parsedProviders = nil
	}

	return &domain.ChatSettings{
		ChatID:      chatID,
		SummaryType: parsedType,
		Providers:   parsedProviders,
	}, nil
}

func (d *Database) SetChatSummaryType(
	ctx context.Context,
	chatID int64,
	summaryType domain.SummaryType,
) error {
	query := `insert into chat_settings (chat_id, summary_type)
	values (?, ?)
	on conflict (chat_id) do update
	set summary_type = excluded.summary_type`

	_, err := d.db.ExecContext(ctx, query, chatID, string(summaryType))

	return err
}

func (d *Database) SetChatProviders(
	ctx context.Context,
	chatID int64,
	providers []domain.Provider,
) error {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, string(p))
	}

	query := `insert into chat_settings (chat_id, providers)
	values (?, ?)
	on conflict (chat_id) do update
	set providers = excluded.providers`

	_, err := d.db.ExecContext(ctx, query, chatID, strings.Join(names, ","))

	return err
}

func (d *Database) querySummaries(
	ctx context.Context,
	operation string,
	query string,
	args ...any,
) ([]domain.StoredSummary, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", operation)
		}
	}()

	var summaries []domain.StoredSummary
	for rows.Next() {
		var (
			s                        domain.StoredSummary
			provider, summaryType    string
			summary, errMsg, partial sql.NullString
		)

		if err = rows.Scan(&s.ID, &s.DocumentID, &s.Source, &s.CreatedAt,
			&provider, &summaryType, &summary, &errMsg, &partial); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if errMsg.Valid {
			s.Response = domain.NewPartialFailure(
				domain.Provider(provider), domain.SummaryType(summaryType), errMsg.String, partial.String)
		} else {
			s.Response = domain.NewSuccess(
				domain.Provider(provider), domain.SummaryType(summaryType), summary.String)
		}

		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return summaries, nil
}

func responseColumns(resp domain.SummaryResponse) (summary, errMsg, partial sql.NullString) {
	switch res := resp.Result.(type) {
	case domain.Success:
		summary = sql.NullString{String: res.Summary, Valid: true}
	case domain.PartialFailure:
		errMsg = sql.NullString{String: res.Error, Valid: true}
		partial = sql.NullString{String: res.PartialSummary, Valid: res.PartialSummary != ""}
	default:
		errMsg = sql.NullString{String: "summary response has no result", Valid: true}
	}

	return summary, errMsg, partial
}
