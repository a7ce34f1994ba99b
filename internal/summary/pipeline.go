package summary

import (
	"context"
	"docsummary/internal/chunker"
	"docsummary/internal/domain"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// WholeTextThreshold is the character count from which text is chunked.
	WholeTextThreshold   = 10000
	DefaultChunkSize     = 4000
	MaxParallelProviders = 3

	chunkSummarySeparator = "\n\n"
)

// Completer produces a completion for prompt using the named provider. Any
// retry policy belongs to the implementation.
type Completer interface {
	Complete(ctx context.Context, provider domain.Provider, prompt string) (string, error)
}

type Pipeline struct {
	completer Completer
	chunkSize int
	log       *slog.Logger
}

func New(completer Completer, chunkSize int, log *slog.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Pipeline{
		completer: completer,
		chunkSize: chunkSize,
		log:       log,
	}
}

// GenerateSummary summarizes req.Text with req.Provider. Provider failures are
// reported in the response, never as a Go error. Text below
// WholeTextThreshold characters is sent in one prompt; longer text is chunked
// and the chunk summaries are concatenated in order. The first failing chunk
// stops generation and the summaries produced so far become the partial
// summary.
func (p *Pipeline) GenerateSummary(
	ctx context.Context,
	req domain.SummaryRequest,
) domain.SummaryResponse {
	if err := req.Validate(); err != nil {
		return domain.NewPartialFailure(req.Provider, req.SummaryType, err.Error(), "")
	}

	instr, err := instruction(req.SummaryType)
	if err != nil {
		return domain.NewPartialFailure(req.Provider, req.SummaryType, err.Error(), "")
	}

	textLen := utf8.RuneCountInString(req.Text)

	if textLen < WholeTextThreshold {
		summary, err := p.completer.Complete(ctx, req.Provider, buildPrompt(instr, req.Text))
		if err != nil {
			p.log.ErrorContext(ctx, "Failed to generate summary",
				"error", err,
				"provider", req.Provider,
				"summaryType", req.SummaryType,
				"textLen", textLen)

			return domain.NewPartialFailure(req.Provider, req.SummaryType, err.Error(), "")
		}

		return domain.NewSuccess(req.Provider, req.SummaryType, summary)
	}

	chunks := chunker.Split(req.Text, p.chunkSize)
	summaries := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		summary, err := p.completer.Complete(ctx, req.Provider, buildPrompt(instr, chunk))
		if err != nil {
			p.log.ErrorContext(ctx, "Failed to generate chunk summary",
				"error", err,
				"provider", req.Provider,
				"summaryType", req.SummaryType,
				"chunkIndex", i,
				"chunkCount", len(chunks),
				"completedChunks", len(summaries))

			return domain.NewPartialFailure(
				req.Provider,
				req.SummaryType,
				err.Error(),
				strings.Join(summaries, chunkSummarySeparator),
			)
		}

		summaries = append(summaries, summary)
	}

	p.log.DebugContext(ctx, "Summary is generated from chunks",
		"provider", req.Provider,
		"summaryType", req.SummaryType,
		"chunkCount", len(chunks),
		"textLen", textLen)

	return domain.NewSuccess(req.Provider, req.SummaryType, strings.Join(summaries, chunkSummarySeparator))
}

// GenerateAll runs GenerateSummary once per provider concurrently. The
// responses follow the order of providers.
func (p *Pipeline) GenerateAll(
	ctx context.Context,
	text string,
	summaryType domain.SummaryType,
	providers []domain.Provider,
) []domain.SummaryResponse {
	responses := make([]domain.SummaryResponse, len(providers))
	if len(providers) == 0 {
		return responses
	}

	workerCount := min(MaxParallelProviders, len(providers))

	type task struct {
		resultIndex int
		provider    domain.Provider
	}

	tasks := make(chan task)
	var wg sync.WaitGroup

	for range workerCount {
		wg.Go(func() {
			for t := range tasks {
				responses[t.resultIndex] = p.GenerateSummary(ctx, domain.SummaryRequest{
					Text:        text,
					SummaryType: summaryType,
					Provider:    t.provider,
				})
			}
		})
	}

	for i, provider := range providers {
		tasks <- task{resultIndex: i, provider: provider}
	}

	close(tasks)
	wg.Wait()

	return responses
}

// CompareSummaries asks req.Provider to evaluate the given summaries against
// each other. Unlike generation, a provider failure is returned as an error.
func (p *Pipeline) CompareSummaries(
	ctx context.Context,
	req domain.CompareRequest,
) (domain.CompareResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.CompareResponse{}, err
	}

	evaluation, err := p.completer.Complete(ctx, req.Provider, buildComparePrompt(req.Summaries))
	if err != nil {
		return domain.CompareResponse{}, fmt.Errorf("compare summaries: %w", err)
	}

	return domain.CompareResponse{
		Provider:              req.Provider,
		EvaluationOfSummaries: evaluation,
	}, nil
}
