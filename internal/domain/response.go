package domain

import (
	"encoding/json"
	"errors"
)

// SummaryResult is either Success or PartialFailure.
type SummaryResult interface {
	isSummaryResult()
}

type Success struct {
	Summary string
}

type PartialFailure struct {
	Error string
	// PartialSummary joins the chunk summaries produced before the failure.
	PartialSummary string
}

func (Success) isSummaryResult()        {}
func (PartialFailure) isSummaryResult() {}

type SummaryResponse struct {
	Provider    Provider
	SummaryType SummaryType
	Result      SummaryResult
}

func NewSuccess(provider Provider, summaryType SummaryType, summary string) SummaryResponse {
	return SummaryResponse{
		Provider:    provider,
		SummaryType: summaryType,
		Result:      Success{Summary: summary},
	}
}

func NewPartialFailure(
	provider Provider,
	summaryType SummaryType,
	errMsg string,
	partialSummary string,
) SummaryResponse {
	return SummaryResponse{
		Provider:    provider,
		SummaryType: summaryType,
		Result:      PartialFailure{Error: errMsg, PartialSummary: partialSummary},
	}
}

func (r SummaryResponse) Summary() (string, bool) {
	s, ok := r.Result.(Success)
	return s.Summary, ok
}

func (r SummaryResponse) Failure() (PartialFailure, bool) {
	f, ok := r.Result.(PartialFailure)
	return f, ok
}

func (r SummaryResponse) Succeeded() bool {
	_, ok := r.Result.(Success)
	return ok
}

type summaryResponseJSON struct {
	Provider       Provider    `json:"provider"`
	SummaryType    SummaryType `json:"summary_type"`
	Summary        *string     `json:"summary,omitempty"`
	Error          *string     `json:"error,omitempty"`
	PartialSummary *string     `json:"partial_summary,omitempty"`
}

func (r SummaryResponse) MarshalJSON() ([]byte, error) {
	out := summaryResponseJSON{
		Provider:    r.Provider,
		SummaryType: r.SummaryType,
	}

	switch res := r.Result.(type) {
	case Success:
		out.Summary = &res.Summary
	case PartialFailure:
		out.Error = &res.Error
		if res.PartialSummary != "" {
			out.PartialSummary = &res.PartialSummary
		}
	default:
		return nil, errors.New("summary response has no result")
	}

	return json.Marshal(out)
}

func (r *SummaryResponse) UnmarshalJSON(data []byte) error {
	var in summaryResponseJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	if in.Summary != nil && in.Error != nil {
		return errors.New("summary and error are mutually exclusive")
	}

	r.Provider = in.Provider
	r.SummaryType = in.SummaryType

	switch {
	case in.Error != nil:
		failure := PartialFailure{Error: *in.Error}
		if in.PartialSummary != nil {
			failure.PartialSummary = *in.PartialSummary
		}
		r.Result = failure
	case in.Summary != nil:
		r.Result = Success{Summary: *in.Summary}
	default:
		return errors.New("either summary or error is required")
	}

	return nil
}
