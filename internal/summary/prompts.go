package summary

import (
	"docsummary/internal/domain"
	"fmt"
	"strings"
)

const (
	briefInstruction    = "Provide a brief 2-3 sentence summary of the following text:"
	detailedInstruction = "Provide a detailed summary including main points and key details of the following text:"
	bulletsInstruction  = "Summarize the following text as bullet points highlighting key information:"

	compareInstruction = `You are an experienced editor. Below are summaries of the same document produced by different language models.

Compare and evaluate them on:
- Accuracy: does the summary stay faithful to the source?
- Coverage: are the main points and key details present?
- Clarity: is it easy to read and well structured?
- Conciseness: is it free of filler and repetition?

Point out notable omissions or mistakes of each summary and finish by naming the strongest one with a short justification.

Summaries:`
)

func instruction(summaryType domain.SummaryType) (string, error) {
	switch summaryType {
	case domain.SummaryTypeBrief:
		return briefInstruction, nil
	case domain.SummaryTypeDetailed:
		return detailedInstruction, nil
	case domain.SummaryTypeBullets:
		return bulletsInstruction, nil
	default:
		return "", fmt.Errorf("%w: unsupported summary type %q", domain.ErrInvalidRequest, summaryType)
	}
}

func buildPrompt(instruction string, text string) string {
	return instruction + "\n" + text
}

func buildComparePrompt(summaries []domain.SummaryResponse) string {
	var b strings.Builder
	b.WriteString(compareInstruction)

	for i, s := range summaries {
		b.WriteString("\n\n")
		b.WriteString(renderSummary(i+1, s))
	}

	return b.String()
}

// renderSummary formats one summary as
// "Summary <n> (provider: <p>, type: <t>):" followed by its body.
func renderSummary(n int, s domain.SummaryResponse) string {
	header := fmt.Sprintf("Summary %d (provider: %s, type: %s):\n", n, s.Provider, s.SummaryType)

	switch res := s.Result.(type) {
	case domain.Success:
		return header + strings.TrimSpace(res.Summary)
	case domain.PartialFailure:
		if partial := strings.TrimSpace(res.PartialSummary); partial != "" {
			return header + partial + "\n[incomplete: " + res.Error + "]"
		}
		return header + "[failed: " + res.Error + "]"
	default:
		return header + "[missing]"
	}
}
