package summary_test

import (
	"context"
	"docsummary/internal/domain"
	"docsummary/internal/summary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type stubCompleter struct {
	mu        sync.Mutex
	prompts   []string
	providers []domain.Provider
	reply     func(call int, prompt string) (string, error)
}

func (s *stubCompleter) Complete(
	_ context.Context,
	provider domain.Provider,
	prompt string,
) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.providers = append(s.providers, provider)
	call := len(s.prompts)
	s.mu.Unlock()

	return s.reply(call, prompt)
}

func (s *stubCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.prompts)
}

func fixedReply(summary string) func(int, string) (string, error) {
	return func(int, string) (string, error) { return summary, nil }
}

func numberedReply(failAt int) func(int, string) (string, error) {
	return func(call int, _ string) (string, error) {
		if call == failAt {
			return "", errors.New("provider exploded")
		}
		return fmt.Sprintf("summary-%d", call), nil
	}
}

// longText returns 15000 characters that split into 4 chunks of size 4000.
func longText() string {
	return strings.TrimSpace(strings.Repeat("word ", 3000))
}

func newPipeline(c summary.Completer) *summary.Pipeline {
	return summary.New(c, summary.DefaultChunkSize, slog.Default())
}

func TestGenerateSummaryShortText(t *testing.T) {
	stub := &stubCompleter{reply: fixedReply("Very short summary")}
	p := newPipeline(stub)

	resp := p.GenerateSummary(context.Background(), domain.SummaryRequest{Text: "Hello world"})

	got, ok := resp.Summary()
	if !ok {
		t.Fatalf("expected success, got %#v", resp.Result)
	}

	if got != "Very short summary" {
		t.Fatalf("unexpected summary: %q", got)
	}

	if resp.SummaryType != domain.SummaryTypeBrief {
		t.Fatalf("unexpected summary type: %q", resp.SummaryType)
	}

	if resp.Provider != domain.ProviderAnthropic {
		t.Fatalf("unexpected provider: %q", resp.Provider)
	}

	if _, failed := resp.Failure(); failed {
		t.Fatalf("expected no error")
	}

	if stub.callCount() != 1 {
		t.Fatalf("expected exactly one call, got %d", stub.callCount())
	}

	if !strings.HasSuffix(stub.prompts[0], "\nHello world") {
		t.Fatalf("expected prompt to end with text, got %q", stub.prompts[0])
	}
}

func TestGenerateSummaryWholeTextThreshold(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCalls int
	}{
		{"Just below threshold", strings.Repeat("x", summary.WholeTextThreshold-1), 1},
		{"Long text is chunked", longText(), 4},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stub := &stubCompleter{reply: fixedReply("ok")}
			p := newPipeline(stub)

			resp := p.GenerateSummary(context.Background(), domain.SummaryRequest{
				Text:     test.text,
				Provider: domain.ProviderOpenAI,
			})
			if !resp.Succeeded() {
				t.Fatalf("expected success, got %#v", resp.Result)
			}

			if stub.callCount() != test.wantCalls {
				t.Fatalf("expected %d calls, got %d", test.wantCalls, stub.callCount())
			}
		})
	}
}

func TestGenerateSummaryAtThresholdIsChunked(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("abcd ", summary.WholeTextThreshold/5+1))
	if len(text) < summary.WholeTextThreshold {
		t.Fatalf("test text is too short: %d", len(text))
	}

	stub := &stubCompleter{reply: fixedReply("ok")}
	newPipeline(stub).GenerateSummary(context.Background(), domain.SummaryRequest{Text: text})

	if stub.callCount() < 2 {
		t.Fatalf("expected chunked calls, got %d", stub.callCount())
	}
}

func TestGenerateSummaryJoinsChunkSummariesInOrder(t *testing.T) {
	stub := &stubCompleter{reply: numberedReply(-1)}
	p := newPipeline(stub)

	resp := p.GenerateSummary(context.Background(), domain.SummaryRequest{Text: longText()})

	got, ok := resp.Summary()
	if !ok {
		t.Fatalf("expected success, got %#v", resp.Result)
	}

	want := "summary-1\n\nsummary-2\n\nsummary-3\n\nsummary-4"
	if got != want {
		t.Fatalf("unexpected summary: got %q want %q", got, want)
	}

	for _, prompt := range stub.prompts {
		if len(prompt) > summary.DefaultChunkSize+200 {
			t.Fatalf("chunk prompt is too long: %d", len(prompt))
		}
	}
}

func TestGenerateSummaryStyleInstructions(t *testing.T) {
	tests := []struct {
		summaryType domain.SummaryType
		want        string
	}{
		{domain.SummaryTypeBrief, "2-3 sentence summary"},
		{domain.SummaryTypeDetailed, "detailed summary including main points and key details"},
		{domain.SummaryTypeBullets, "bullet points highlighting key information"},
	}

	for _, test := range tests {
		t.Run(string(test.summaryType), func(t *testing.T) {
			stub := &stubCompleter{reply: fixedReply("ok")}
			resp := newPipeline(stub).GenerateSummary(context.Background(), domain.SummaryRequest{
				Text:        "Some text",
				SummaryType: test.summaryType,
			})

			if resp.SummaryType != test.summaryType {
				t.Fatalf("summary type is not echoed: %q", resp.SummaryType)
			}

			if !strings.Contains(stub.prompts[0], test.want) {
				t.Fatalf("prompt %q does not contain %q", stub.prompts[0], test.want)
			}
		})
	}
}

func TestGenerateSummaryPartialFailure(t *testing.T) {
	for k := range 4 {
		t.Run(fmt.Sprintf("fails after %d chunks", k), func(t *testing.T) {
			stub := &stubCompleter{reply: numberedReply(k + 1)}
			resp := newPipeline(stub).GenerateSummary(context.Background(), domain.SummaryRequest{
				Text:     longText(),
				Provider: domain.ProviderGemma,
			})

			if _, ok := resp.Summary(); ok {
				t.Fatalf("expected summary to be absent")
			}

			failure, ok := resp.Failure()
			if !ok {
				t.Fatalf("expected failure, got %#v", resp.Result)
			}

			if failure.Error != "provider exploded" {
				t.Fatalf("unexpected error: %q", failure.Error)
			}

			var want []string
			for i := 1; i <= k; i++ {
				want = append(want, fmt.Sprintf("summary-%d", i))
			}

			if failure.PartialSummary != strings.Join(want, "\n\n") {
				t.Fatalf("unexpected partial summary: %q", failure.PartialSummary)
			}

			if stub.callCount() != k+1 {
				t.Fatalf("expected generation to stop after failing chunk, got %d calls", stub.callCount())
			}

			if resp.Provider != domain.ProviderGemma {
				t.Fatalf("provider is not echoed: %q", resp.Provider)
			}
		})
	}
}

func TestGenerateSummaryWholeTextFailureHasNoPartial(t *testing.T) {
	stub := &stubCompleter{reply: numberedReply(1)}
	resp := newPipeline(stub).GenerateSummary(context.Background(), domain.SummaryRequest{Text: "short"})

	failure, ok := resp.Failure()
	if !ok {
		t.Fatalf("expected failure")
	}

	if failure.PartialSummary != "" {
		t.Fatalf("expected empty partial summary, got %q", failure.PartialSummary)
	}
}

func TestGenerateSummaryRejectsEmptyTextWithoutCalling(t *testing.T) {
	stub := &stubCompleter{reply: fixedReply("ok")}
	resp := newPipeline(stub).GenerateSummary(context.Background(), domain.SummaryRequest{Text: " "})

	if resp.Succeeded() {
		t.Fatalf("expected failure for empty text")
	}

	if stub.callCount() != 0 {
		t.Fatalf("expected no provider calls, got %d", stub.callCount())
	}
}

func TestGenerateAllKeepsProviderOrder(t *testing.T) {
	stub := &stubCompleter{reply: fixedReply("ok")}

	providers := []domain.Provider{domain.ProviderGemma, domain.ProviderOpenAI, domain.ProviderAnthropic}
	responses := newPipeline(stub).GenerateAll(context.Background(), "text", domain.SummaryTypeBullets, providers)

	if len(responses) != len(providers) {
		t.Fatalf("expected %d responses, got %d", len(providers), len(responses))
	}

	for i, resp := range responses {
		if resp.Provider != providers[i] {
			t.Fatalf("response %d: got provider %q want %q", i, resp.Provider, providers[i])
		}
		if resp.SummaryType != domain.SummaryTypeBullets {
			t.Fatalf("response %d: unexpected type %q", i, resp.SummaryType)
		}
	}
}

func TestCompareSummaries(t *testing.T) {
	stub := &stubCompleter{reply: fixedReply("Comparison text")}

	summaries := []domain.SummaryResponse{
		domain.NewSuccess(domain.ProviderOpenAI, domain.SummaryTypeBrief, "OpenAI says A"),
		domain.NewSuccess(domain.ProviderAnthropic, domain.SummaryTypeDetailed, "Anthropic says B"),
		domain.NewPartialFailure(domain.ProviderGemma, domain.SummaryTypeBullets, "timeout", "Gemma says C"),
	}

	resp, err := newPipeline(stub).CompareSummaries(context.Background(), domain.CompareRequest{
		Summaries: summaries,
		Provider:  domain.ProviderOpenAI,
		Text:      "original",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Provider != domain.ProviderOpenAI || resp.EvaluationOfSummaries != "Comparison text" {
		t.Fatalf("unexpected response: %#v", resp)
	}

	if stub.callCount() != 1 || stub.providers[0] != domain.ProviderOpenAI {
		t.Fatalf("expected one call to openai, got %v", stub.providers)
	}

	prompt := stub.prompts[0]
	for _, want := range []string{
		"editor",
		"Summary 1 (provider: openai, type: brief):\nOpenAI says A",
		"Summary 2 (provider: anthropic, type: detailed):\nAnthropic says B",
		"Summary 3 (provider: gemma, type: bullets):\nGemma says C\n[incomplete: timeout]",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt does not contain %q:\n%s", want, prompt)
		}
	}
}

func TestCompareSummariesPropagatesFailure(t *testing.T) {
	stub := &stubCompleter{reply: numberedReply(1)}

	resp, err := newPipeline(stub).CompareSummaries(context.Background(), domain.CompareRequest{
		Summaries: []domain.SummaryResponse{
			domain.NewSuccess(domain.ProviderOpenAI, domain.SummaryTypeBrief, "A"),
		},
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	if resp != (domain.CompareResponse{}) {
		t.Fatalf("expected zero response on failure, got %#v", resp)
	}
}

func TestCompareSummariesRejectsEmptyInput(t *testing.T) {
	stub := &stubCompleter{reply: fixedReply("x")}

	_, err := newPipeline(stub).CompareSummaries(context.Background(), domain.CompareRequest{})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	if stub.callCount() != 0 {
		t.Fatalf("expected no provider calls")
	}
}
