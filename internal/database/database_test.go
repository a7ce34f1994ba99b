package database_test

import (
	"context"
	"docsummary/internal/database"
	"docsummary/internal/domain"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.sqlite"), slog.Default())
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})

	return db
}

func TestSaveAndLoadLatestDocumentSummaries(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	if doc, responses, err := db.LatestDocumentSummaries(ctx, 42); err != nil || doc != nil || responses != nil {
		t.Fatalf("expected no document, got %v %v %v", doc, responses, err)
	}

	first := []domain.SummaryResponse{
		domain.NewSuccess(domain.ProviderOpenAI, domain.SummaryTypeBrief, "old"),
	}
	if _, err := db.SaveSummaries(ctx, 42, "first.txt", 10, first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := []domain.SummaryResponse{
		domain.NewSuccess(domain.ProviderAnthropic, domain.SummaryTypeDetailed, "summary A"),
		domain.NewPartialFailure(domain.ProviderGemma, domain.SummaryTypeDetailed, "rate limited", "partial B"),
		domain.NewPartialFailure(domain.ProviderOpenAI, domain.SummaryTypeDetailed, "down", ""),
	}
	documentID, err := db.SaveSummaries(ctx, 42, "second.txt", 20, second)
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	doc, responses, err := db.LatestDocumentSummaries(ctx, 42)
	if err != nil {
		t.Fatalf("load latest: %v", err)
	}

	if doc == nil || doc.ID != documentID || doc.Source != "second.txt" || doc.TextLen != 20 {
		t.Fatalf("unexpected document: %+v", doc)
	}

	if len(responses) != len(second) {
		t.Fatalf("expected %d responses, got %d", len(second), len(responses))
	}

	for i := range second {
		if responses[i].Provider != second[i].Provider || responses[i].Result != second[i].Result {
			t.Fatalf("response %d mismatch: got %+v want %+v", i, responses[i], second[i])
		}
	}

	if _, other, err := db.LatestDocumentSummaries(ctx, 7); err != nil || other != nil {
		t.Fatalf("expected other chat to be empty, got %v %v", other, err)
	}
}

func TestRecentSummariesNewestFirst(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	for _, source := range []string{"a", "b", "c"} {
		if _, err := db.SaveSummaries(ctx, 1, source, 1, []domain.SummaryResponse{
			domain.NewSuccess(domain.ProviderOpenAI, domain.SummaryTypeBrief, "summary "+source),
		}); err != nil {
			t.Fatalf("save %s: %v", source, err)
		}
	}

	recent, err := db.RecentSummaries(ctx, 1, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}

	if len(recent) != 2 || recent[0].Source != "c" || recent[1].Source != "b" {
		t.Fatalf("unexpected recent summaries: %+v", recent)
	}
}

func TestDeleteDocumentsBefore(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	if _, err := db.SaveSummaries(ctx, 1, "doc", 1, []domain.SummaryResponse{
		domain.NewSuccess(domain.ProviderOpenAI, domain.SummaryTypeBrief, "s"),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	deleted, err := db.DeleteDocumentsBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil || deleted != 0 {
		t.Fatalf("expected nothing deleted, got %d (%v)", deleted, err)
	}

	deleted, err = db.DeleteDocumentsBefore(ctx, time.Now().Add(time.Hour))
	if err != nil || deleted != 1 {
		t.Fatalf("expected one deleted document, got %d (%v)", deleted, err)
	}

	recent, err := db.RecentSummaries(ctx, 1, 10)
	if err != nil || len(recent) != 0 {
		t.Fatalf("expected summaries to be removed, got %+v (%v)", recent, err)
	}
}

func TestChatSettings(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	settings, err := db.GetChatSettingsWithDefault(ctx, 5)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}

	if settings.SummaryType != domain.SummaryTypeBrief || len(settings.Providers) != 0 {
		t.Fatalf("unexpected default settings: %+v", settings)
	}

	if err = db.SetChatSummaryType(ctx, 5, domain.SummaryTypeBullets); err != nil {
		t.Fatalf("set type: %v", err)
	}

	if err = db.SetChatProviders(ctx, 5, []domain.Provider{domain.ProviderGemma, domain.ProviderOpenAI}); err != nil {
		t.Fatalf("set providers: %v", err)
	}

	settings, err = db.GetChatSettingsWithDefault(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if settings.SummaryType != domain.SummaryTypeBullets {
		t.Fatalf("unexpected summary type: %q", settings.SummaryType)
	}

	if len(settings.Providers) != 2 || settings.Providers[0] != domain.ProviderGemma {
		t.Fatalf("unexpected providers: %v", settings.Providers)
	}
}
