package completion

import (
	"context"
	"docsummary/internal/config"
	"docsummary/internal/domain"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

// Registry maps provider names to completion clients. It is built once at
// startup and is read-only afterwards.
type Registry struct {
	clients map[domain.Provider]Client
	log     *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[domain.Provider]Client),
		log:     log,
	}
}

func (r *Registry) Register(provider domain.Provider, client Client) {
	r.clients[provider] = client
}

// Complete implements summary.Completer.
func (r *Registry) Complete(
	ctx context.Context,
	provider domain.Provider,
	prompt string,
) (string, error) {
	client, ok := r.clients[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProviderNotSupported, provider)
	}

	completion, err := client.Complete(ctx, prompt)
	if err != nil {
		r.log.DebugContext(ctx, "Completion failed",
			"error", err,
			"provider", provider,
			"promptLen", len(prompt))

		return "", fmt.Errorf("get completion from %s: %w", provider, err)
	}

	return completion, nil
}

func (r *Registry) Supports(provider domain.Provider) bool {
	_, ok := r.clients[provider]
	return ok
}

// Providers lists registered providers in canonical order.
func (r *Registry) Providers() []domain.Provider {
	var providers []domain.Provider

	for _, p := range domain.Providers() {
		if _, ok := r.clients[p]; ok {
			providers = append(providers, p)
		}
	}

	return providers
}

// NewRegistryFromConfig registers every provider whose credentials are
// configured. Each client is wrapped with the cache and then the retry policy.
func NewRegistryFromConfig(ctx context.Context, cfg config.Config, log *slog.Logger) (*Registry, error) {
	registry := NewRegistry(log)
	cache := NewCache(cfg.CacheMaxEntries, cfg.CacheTTL)
	policy := RetryPolicy{
		MaxAttempts:    cfg.MaxRetries,
		InitialBackoff: cfg.RetryInitialBackoff,
		MaxBackoff:     cfg.RetryMaxBackoff,
		Multiplier:     defaultMultiplier,
	}

	candidates := []struct {
		provider domain.Provider
		enabled  bool
		client   OpenAIClientConfig
	}{
		{
			provider: domain.ProviderOpenAI,
			enabled:  cfg.OpenAIAPIKey != "",
			client: OpenAIClientConfig{
				APIKey: cfg.OpenAIAPIKey,
				Model:  cfg.OpenAIModel,
			},
		},
		{
			provider: domain.ProviderAnthropic,
			enabled:  cfg.AnthropicAPIKey != "",
			client: OpenAIClientConfig{
				APIKey:  cfg.AnthropicAPIKey,
				Model:   cfg.AnthropicModel,
				BaseURL: AnthropicBaseURL,
			},
		},
		{
			provider: domain.ProviderGemma,
			enabled:  cfg.UseGemma && cfg.HuggingFaceToken != "",
			client: OpenAIClientConfig{
				APIKey:  cfg.HuggingFaceToken,
				Model:   cfg.GemmaModel,
				BaseURL: HuggingFaceBaseURL,
			},
		},
	}

	var errs []error
	for _, c := range candidates {
		if !c.enabled {
			log.InfoContext(ctx, "Provider is not configured",
				"provider", c.provider)

			continue
		}

		c.client.Timeout = cfg.RequestTimeout

		client, err := NewOpenAIClient(c.client)
		if err != nil {
			errs = append(errs, fmt.Errorf("create %s client: %w", c.provider, err))
			continue
		}

		name := string(c.provider)
		registry.Register(c.provider, WithRetry(WithCache(client, cache, name), policy, name, log))

		log.InfoContext(ctx, "Provider is initialized",
			"provider", c.provider,
			"model", c.client.Model,
			"maxAttempts", policy.MaxAttempts)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if len(registry.clients) == 0 {
		return nil, errors.New("no provider is configured")
	}

	return registry, nil
}

// FormatProviders joins providers with commas.
func FormatProviders(providers []domain.Provider) string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, string(p))
	}

	return strings.Join(names, ", ")
}
