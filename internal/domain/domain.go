package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRequest = errors.New("invalid request")

type SummaryType string

const (
	SummaryTypeBrief    SummaryType = "brief"
	SummaryTypeDetailed SummaryType = "detailed"
	SummaryTypeBullets  SummaryType = "bullets"

	DefaultSummaryType = SummaryTypeBrief
)

func SummaryTypes() []SummaryType {
	return []SummaryType{SummaryTypeBrief, SummaryTypeDetailed, SummaryTypeBullets}
}

func ParseSummaryType(s string) (SummaryType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSummaryType, nil
	}

	for _, t := range SummaryTypes() {
		if string(t) == s {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: unsupported summary type %q", ErrInvalidRequest, s)
}

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemma     Provider = "gemma"

	DefaultProvider = ProviderAnthropic
)

func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemma}
}

func ParseProvider(s string) (Provider, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultProvider, nil
	}

	for _, p := range Providers() {
		if string(p) == s {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: unsupported provider %q", ErrInvalidRequest, s)
}

// ParseProviderList parses a comma-separated provider list, dropping
// duplicates and keeping the first occurrence order.
func ParseProviderList(s string) ([]Provider, error) {
	var providers []Provider
	seen := make(map[Provider]struct{})

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		p, err := ParseProvider(part)
		if err != nil {
			return nil, err
		}

		if _, ok := seen[p]; ok {
			continue
		}

		seen[p] = struct{}{}
		providers = append(providers, p)
	}

	return providers, nil
}

type SummaryRequest struct {
	Text        string
	SummaryType SummaryType
	Provider    Provider
}

// Validate fills defaults and rejects requests that must not reach a provider.
func (r *SummaryRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidRequest)
	}

	summaryType, err := ParseSummaryType(string(r.SummaryType))
	if err != nil {
		return err
	}
	r.SummaryType = summaryType

	provider, err := ParseProvider(string(r.Provider))
	if err != nil {
		return err
	}
	r.Provider = provider

	return nil
}

type CompareRequest struct {
	Summaries []SummaryResponse
	Provider  Provider
	// Text is the original source; the evaluation prompt does not use it yet.
	Text string
}

func (r *CompareRequest) Validate() error {
	if len(r.Summaries) == 0 {
		return fmt.Errorf("%w: no summaries to compare", ErrInvalidRequest)
	}

	provider, err := ParseProvider(string(r.Provider))
	if err != nil {
		return err
	}
	r.Provider = provider

	return nil
}

type CompareResponse struct {
	Provider              Provider `json:"provider"`
	EvaluationOfSummaries string   `json:"evaluation_of_summaries"`
}
