package domain

import "time"

type Document struct {
	ID        int64
	ChatID    int64
	Source    string
	TextLen   int
	CreatedAt time.Time
}

type StoredSummary struct {
	ID         int64
	DocumentID int64
	Source     string
	CreatedAt  time.Time
	Response   SummaryResponse
}

type ChatSettings struct {
	ChatID      int64
	SummaryType SummaryType
	// Providers is empty when the chat uses the configured default.
	Providers []Provider
}
