// Command summarize summarizes one document with the configured providers and
// prints the responses, and optionally their comparison, as JSON.
package main

import (
	"context"
	"docsummary/internal/completion"
	"docsummary/internal/config"
	"docsummary/internal/domain"
	"docsummary/internal/extract"
	"docsummary/internal/summary"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const defaultTimeout = 5 * time.Minute

type options struct {
	file            string
	url             string
	text            string
	summaryType     domain.SummaryType
	providers       []domain.Provider
	compare         bool
	compareProvider string
	timeout         time.Duration
}

type output struct {
	Source     string                   `json:"source"`
	Summaries  []domain.SummaryResponse `json:"summaries"`
	Comparison *domain.CompareResponse  `json:"comparison,omitempty"`
}

func main() {
	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}

		log.Error("Failed to parse flags",
			"error", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config",
			"error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	if opts.compareProvider == "" {
		opts.compareProvider = cfg.DefaultProvider
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if err = run(ctx, cfg, opts, os.Stdin, os.Stdout, log); err != nil {
		log.ErrorContext(ctx, "Failed to summarize",
			"error", err)
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cfg config.Config,
	opts options,
	stdin io.Reader,
	stdout io.Writer,
	log *slog.Logger,
) error {
	registry, err := completion.NewRegistryFromConfig(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize providers: %w", err)
	}

	if len(opts.providers) == 0 {
		opts.providers = registry.Providers()
	}

	source, text, err := readInput(ctx, opts, extract.New(cfg.MaxFileSize, log), stdin)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	req := domain.SummaryRequest{Text: text, SummaryType: opts.summaryType}
	if err = req.Validate(); err != nil {
		return fmt.Errorf("validate input: %w", err)
	}

	out, err := summarize(ctx, summary.New(registry, cfg.ChunkSize, log), opts, source, text)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if encErr := enc.Encode(out); encErr != nil {
		return errors.Join(err, fmt.Errorf("encode output: %w", encErr))
	}

	return err
}

func parseFlags(args []string, errOutput io.Writer) (options, error) {
	var (
		opts        options
		summaryType string
		providers   string
	)

	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.SetOutput(errOutput)

	fs.StringVar(&opts.file, "file", "", "document to summarize ("+strings.Join(extract.SupportedExtensions(), ", ")+")")
	fs.StringVar(&opts.url, "url", "", "web page or feed to summarize")
	fs.StringVar(&opts.text, "text", "", "text to summarize")
	fs.StringVar(&summaryType, "type", string(domain.DefaultSummaryType), "summary type: brief, detailed or bullets")
	fs.StringVar(&providers, "providers", "", "comma-separated providers (default: every configured provider)")
	fs.BoolVar(&opts.compare, "compare", false, "compare the generated summaries")
	fs.StringVar(&opts.compareProvider, "compare-provider", "", "provider evaluating the comparison (default: DEFAULT_PROVIDER)")
	fs.DurationVar(&opts.timeout, "timeout", defaultTimeout, "overall timeout")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	inputs := 0
	for _, v := range []string{opts.file, opts.url, opts.text} {
		if v != "" {
			inputs++
		}
	}
	if inputs > 1 {
		return options{}, errors.New("-file, -url and -text are mutually exclusive")
	}

	var err error

	if opts.summaryType, err = domain.ParseSummaryType(summaryType); err != nil {
		return options{}, err
	}

	if opts.providers, err = domain.ParseProviderList(providers); err != nil {
		return options{}, err
	}

	if opts.compareProvider != "" {
		if _, err = domain.ParseProvider(opts.compareProvider); err != nil {
			return options{}, err
		}
	}

	if opts.timeout <= 0 {
		return options{}, fmt.Errorf("-timeout must be positive (got %s)", opts.timeout)
	}

	return opts, nil
}

// readInput returns the source name and text of the selected input. Standard
// input is read when no input flag is set.
func readInput(
	ctx context.Context,
	opts options,
	extractor *extract.Extractor,
	stdin io.Reader,
) (source string, text string, err error) {
	switch {
	case opts.file != "":
		text, err = extractor.ExtractFile(opts.file)
		return filepath.Base(opts.file), text, err
	case opts.url != "":
		text, err = extractor.ExtractURL(ctx, opts.url)
		return opts.url, text, err
	case opts.text != "":
		return "text", opts.text, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", "", fmt.Errorf("read stdin: %w", err)
	}

	return "stdin", string(data), nil
}

func summarize(
	ctx context.Context,
	pipeline *summary.Pipeline,
	opts options,
	source string,
	text string,
) (output, error) {
	out := output{
		Source:    source,
		Summaries: pipeline.GenerateAll(ctx, text, opts.summaryType, opts.providers),
	}

	if !opts.compare {
		return out, nil
	}

	provider, err := domain.ParseProvider(opts.compareProvider)
	if err != nil {
		return out, err
	}

	comparison, err := pipeline.CompareSummaries(ctx, domain.CompareRequest{
		Summaries: out.Summaries,
		Provider:  provider,
		Text:      text,
	})
	if err != nil {
		return out, err
	}

	out.Comparison = &comparison

	return out, nil
}
