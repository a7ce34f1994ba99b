package bot

import (
	"docsummary/internal/completion"
	"docsummary/internal/domain"
	"docsummary/internal/markdown"
	"fmt"
	"strings"
)

const (
	historyPreviewLength = 200
	historyTimeLayout    = "2006-01-02 15:04"
)

func formatSummaryMessage(source string, resp domain.SummaryResponse) string {
	var b strings.Builder

	header := markdown.EscapeV2(fmt.Sprintf("%s · %s", resp.Provider, resp.SummaryType))

	if summary, ok := resp.Summary(); ok {
		fmt.Fprintf(&b, "📝 *%s*\n_%s_\n\n", header, markdown.EscapeV2(source))
		b.WriteString(markdown.EscapeV2(summary))

		return b.String()
	}

	failure, _ := resp.Failure()

	fmt.Fprintf(&b, "⚠️ *%s failed*\n_%s_\n\n", header, markdown.EscapeV2(source))
	fmt.Fprintf(&b, "Error: %s", markdown.EscapeV2(failure.Error))

	if failure.PartialSummary != "" {
		fmt.Fprintf(&b, "\n\n*Partial summary:*\n%s", markdown.EscapeV2(failure.PartialSummary))
	}

	return b.String()
}

func formatComparisonMessage(source string, resp domain.CompareResponse) string {
	return fmt.Sprintf("⚖️ *Comparison by %s*\n_%s_\n\n%s",
		markdown.EscapeV2(string(resp.Provider)),
		markdown.EscapeV2(source),
		markdown.EscapeV2(resp.EvaluationOfSummaries))
}

func formatHistoryMessage(stored []domain.StoredSummary) string {
	if len(stored) == 0 {
		return "✖️ History is empty\\."
	}

	var b strings.Builder
	b.WriteString("🗂 *Recent summaries:*\n\n")

	for i, s := range stored {
		preview, ok := s.Response.Summary()
		if !ok {
			failure, _ := s.Response.Failure()
			preview = "failed: " + failure.Error
		}

		fmt.Fprintf(&b, "%d\\. *%s*\n%s\n%s\n\n",
			i+1,
			markdown.EscapeV2(s.Source),
			markdown.EscapeV2(fmt.Sprintf("%s · %s · %s UTC",
				s.Response.Provider, s.Response.SummaryType, s.CreatedAt.UTC().Format(historyTimeLayout))),
			markdown.EscapeV2(truncate(preview, historyPreviewLength)))
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatProvidersMessage(current []domain.Provider, available []domain.Provider) string {
	return fmt.Sprintf(
		"*🤖 Providers*\n\nCurrent: *%s*\nAvailable: %s\n\nChange them with `/providers openai,anthropic` or reset with `/providers all`\\.",
		markdown.EscapeV2(completion.FormatProviders(current)),
		markdown.EscapeV2(completion.FormatProviders(available)))
}

func formatSummaryTypes(types []domain.SummaryType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	return strings.Join(names, ", ")
}

func truncate(s string, maxRunes int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxRunes {
		return string(runes)
	}

	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
