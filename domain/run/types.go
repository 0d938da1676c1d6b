package run

import (
	"fmt"
	"time"

	"sheetprompt/internal/errors"
)

// Outcome classifies how a single row finished
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeKey        Outcome = "ERROR_KEY"
	OutcomeAuth       Outcome = "ERROR_AUTH"
	OutcomeAPI        Outcome = "ERROR_API"
	OutcomeNetwork    Outcome = "ERROR_NETWORK"
	OutcomeUnexpected Outcome = "ERROR_UNEXPECTED"
)

// AllOutcomes lists outcomes in reporting order
var AllOutcomes = []Outcome{OutcomeOK, OutcomeKey, OutcomeAuth, OutcomeAPI, OutcomeNetwork, OutcomeUnexpected}

// ClassifyError maps a row error to its outcome
func ClassifyError(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.IsMissingColumn(err):
		return OutcomeKey
	case errors.IsAuthentication(err):
		return OutcomeAuth
	case errors.IsAPIError(err):
		return OutcomeAPI
	case errors.IsNetworkError(err):
		return OutcomeNetwork
	default:
		return OutcomeUnexpected
	}
}

// InferenceResult is the result for one row: generated text, or the error
// that stopped it
type InferenceResult struct {
	RowIndex int
	Text     string
	Err      error
	Latency  time.Duration // zero when no request was sent
	Tokens   TokenUsage
}

// TokenUsage counts tokens reported by the provider for one or more requests
type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}

// Add accumulates u into t. Negative counts are ignored.
func (t *TokenUsage) Add(u TokenUsage) {
	if u.Prompt < 0 || u.Completion < 0 || u.Total < 0 {
		return
	}
	t.Prompt += u.Prompt
	t.Completion += u.Completion
	t.Total += u.Total
}

// Outcome returns the classification of the result
func (r InferenceResult) Outcome() Outcome {
	return ClassifyError(r.Err)
}

// Failed reports whether the row has no generated text
func (r InferenceResult) Failed() bool {
	return r.Err != nil
}

// Marker returns the value written to the output cell: the generated text,
// or "ERROR_<KIND>: <message>" for a failed row
func (r InferenceResult) Marker() string {
	if r.Err == nil {
		return r.Text
	}
	return fmt.Sprintf("%s: %s", r.Outcome(), r.Err.Error())
}
