package run

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
)

// LatencyStats describes inference call latencies in milliseconds
type LatencyStats struct {
	Samples int
	MeanMS  float64
	MedMS   float64
	P95MS   float64
	MaxMS   float64
}

// Summary reports what a batch run did
type Summary struct {
	RunID             uuid.UUID
	InputPath         string
	OutputPath        string
	Column            string
	ColumnOverwritten bool
	Rows              int
	Counts            map[Outcome]int
	Latency           LatencyStats
	Tokens            TokenUsage
	StartedAt         time.Time
	Duration          time.Duration
}

// NewSummary tallies results into a summary
func NewSummary(runID uuid.UUID, results []InferenceResult) *Summary {
	s := &Summary{
		RunID:  runID,
		Rows:   len(results),
		Counts: make(map[Outcome]int, len(AllOutcomes)),
	}

	var latencies []float64
	for _, r := range results {
		s.Counts[r.Outcome()]++
		s.Tokens.Add(r.Tokens)
		if r.Latency > 0 {
			latencies = append(latencies, float64(r.Latency)/float64(time.Millisecond))
		}
	}
	s.Latency = computeLatency(latencies)
	return s
}

func computeLatency(ms []float64) LatencyStats {
	out := LatencyStats{Samples: len(ms)}
	if len(ms) == 0 {
		return out
	}
	data := stats.Float64Data(ms)
	out.MeanMS, _ = stats.Mean(data)
	out.MedMS, _ = stats.Median(data)
	out.P95MS, _ = stats.Percentile(data, 95)
	out.MaxMS, _ = stats.Max(data)
	return out
}

// Succeeded returns the number of rows with generated text
func (s *Summary) Succeeded() int {
	return s.Counts[OutcomeOK]
}

// Failed returns the number of rows recorded with an error marker
func (s *Summary) Failed() int {
	return s.Rows - s.Succeeded()
}

// String renders a one-line report
func (s *Summary) String() string {
	var parts []string
	for _, o := range AllOutcomes[1:] {
		if n := s.Counts[o]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", o, n))
		}
	}
	failures := "none"
	if len(parts) > 0 {
		failures = strings.Join(parts, " ")
	}
	return fmt.Sprintf("run %s: %d rows, %d ok, failures: %s, latency mean=%.0fms p50=%.0fms p95=%.0fms, tokens=%d",
		s.RunID, s.Rows, s.Succeeded(), failures, s.Latency.MeanMS, s.Latency.MedMS, s.Latency.P95MS, s.Tokens.Total)
}
