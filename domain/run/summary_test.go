package run

import (
	stderrors "errors"
	"testing"
	"time"

	"sheetprompt/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeOK},
		{errors.MissingColumn("foo"), OutcomeKey},
		{errors.Authentication("bad key", nil), OutcomeAuth},
		{errors.APIError("429", nil), OutcomeAPI},
		{errors.NetworkError("reset", nil), OutcomeNetwork},
		{stderrors.New("surprise"), OutcomeUnexpected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.err))
	}
}

func TestMarker(t *testing.T) {
	ok := InferenceResult{RowIndex: 0, Text: "generated"}
	assert.Equal(t, "generated", ok.Marker())
	assert.False(t, ok.Failed())

	failed := InferenceResult{RowIndex: 1, Err: errors.MissingColumn("foo")}
	assert.True(t, failed.Failed())
	assert.Equal(t, "ERROR_KEY: placeholder {foo} does not match any column", failed.Marker())
}

func TestNewSummary(t *testing.T) {
	id := uuid.New()
	results := []InferenceResult{
		{RowIndex: 0, Text: "a", Latency: 100 * time.Millisecond, Tokens: TokenUsage{Prompt: 5, Completion: 3, Total: 8}},
		{RowIndex: 1, Text: "b", Latency: 300 * time.Millisecond, Tokens: TokenUsage{Prompt: 6, Completion: 4, Total: 10}},
		{RowIndex: 2, Err: errors.APIError("quota", nil), Latency: 200 * time.Millisecond},
		{RowIndex: 3, Err: errors.MissingColumn("x")},
	}

	s := NewSummary(id, results)

	assert.Equal(t, id, s.RunID)
	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, 2, s.Succeeded())
	assert.Equal(t, 2, s.Failed())
	assert.Equal(t, 1, s.Counts[OutcomeAPI])
	assert.Equal(t, 1, s.Counts[OutcomeKey])

	assert.Equal(t, 3, s.Latency.Samples)
	assert.InDelta(t, 200, s.Latency.MeanMS, 1e-9)
	assert.InDelta(t, 200, s.Latency.MedMS, 1e-9)
	assert.InDelta(t, 300, s.Latency.MaxMS, 1e-9)

	assert.Equal(t, TokenUsage{Prompt: 11, Completion: 7, Total: 18}, s.Tokens)

	line := s.String()
	assert.Contains(t, line, "4 rows, 2 ok")
	assert.Contains(t, line, "ERROR_API=1")
	assert.Contains(t, line, "ERROR_KEY=1")
	assert.Contains(t, line, "tokens=18")
}

func TestNewSummaryWithoutRequests(t *testing.T) {
	s := NewSummary(uuid.New(), nil)
	assert.Zero(t, s.Rows)
	assert.Zero(t, s.Latency.Samples)
	assert.Contains(t, s.String(), "failures: none")
}

func TestTokenUsageIgnoresNegativeCounts(t *testing.T) {
	var total TokenUsage
	total.Add(TokenUsage{Prompt: 1, Completion: 1, Total: 2})
	total.Add(TokenUsage{Prompt: -1, Total: 4})
	assert.Equal(t, TokenUsage{Prompt: 1, Completion: 1, Total: 2}, total)
}
