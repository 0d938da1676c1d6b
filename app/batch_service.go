package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sheetprompt/adapters/tabular"
	"sheetprompt/domain/dataset"
	"sheetprompt/domain/prompt"
	"sheetprompt/domain/run"
	"sheetprompt/internal"
	"sheetprompt/internal/errors"
	"sheetprompt/ports"

	"github.com/google/uuid"
)

const previewRunes = 50

// BatchService runs one prompt template over every row of a dataset and
// writes the generated text back as a new column
type BatchService struct {
	loader    ports.DatasetLoader
	writer    ports.DatasetWriter
	generator ports.TextGenerator
	logger    *internal.Logger
}

// BatchRequest defines the inputs for a batch run
type BatchRequest struct {
	InputPath  string
	OutputPath string
	Template   string
	Column     string
	RunID      uuid.UUID // optional, generated if zero
}

// NewBatchService creates a batch service
func NewBatchService(loader ports.DatasetLoader, writer ports.DatasetWriter, generator ports.TextGenerator, logger *internal.Logger) *BatchService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BatchService{
		loader:    loader,
		writer:    writer,
		generator: generator,
		logger:    logger,
	}
}

// Run executes the batch. Row failures are recorded in the output column and
// do not stop the run; load, write and cancellation errors are returned and
// leave no output file.
func (s *BatchService) Run(ctx context.Context, req BatchRequest) (*run.Summary, error) {
	startedAt := time.Now()

	tmpl, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	s.logger.Info("Starting run %s: %s -> %s (column %q)", runID, req.InputPath, req.OutputPath, req.Column)

	ds, err := s.loader.Load(ctx, req.InputPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Loaded %d rows with columns %v", ds.Len(), ds.Header().Names())

	if err := tmpl.Validate(ds.Header()); err != nil {
		s.logger.Warn("Template does not match the input columns: %v. Affected rows will be marked %s.", err, run.OutcomeKey)
	}

	results, err := s.processRows(ctx, tmpl, ds)
	if err != nil {
		return nil, err
	}

	values := make([]dataset.Cell, len(results))
	for i, r := range results {
		values[i] = dataset.Text(r.Marker())
	}
	overwritten, err := ds.SetColumn(req.Column, values)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set result column")
	}
	if overwritten {
		s.logger.Warn("Column %q already exists and will be overwritten", req.Column)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.writer.Write(ctx, ds, req.OutputPath); err != nil {
		return nil, err
	}

	summary := run.NewSummary(runID, results)
	summary.InputPath = req.InputPath
	summary.OutputPath = req.OutputPath
	summary.Column = req.Column
	summary.ColumnOverwritten = overwritten
	summary.StartedAt = startedAt
	summary.Duration = time.Since(startedAt)

	s.logger.Info("Saved results to %s", req.OutputPath)
	s.logger.Info("%s", summary)
	return summary, nil
}

// validate checks everything that can be checked before touching the input
func (s *BatchService) validate(req BatchRequest) (*prompt.Template, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return nil, errors.InvalidInput("input file is required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, errors.InvalidInput("output file is required")
	}
	if req.Column == "" {
		return nil, errors.InvalidInput("new column name is required")
	}
	if _, err := tabular.DetectFormat(req.InputPath); err != nil {
		return nil, err
	}
	if _, err := tabular.DetectFormat(req.OutputPath); err != nil {
		return nil, err
	}

	tmpl, err := prompt.Parse(req.Template)
	if err != nil {
		return nil, errors.Wrap(err, "invalid prompt template")
	}
	return tmpl, nil
}

func (s *BatchService) processRows(ctx context.Context, tmpl *prompt.Template, ds *dataset.Dataset) ([]run.InferenceResult, error) {
	total := ds.Len()
	results := make([]run.InferenceResult, 0, total)

	for i, row := range ds.Rows() {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Run cancelled after %d of %d rows", i, total)
			return nil, err
		}

		result := s.processRow(ctx, tmpl, i, row)
		if result.Failed() {
			s.logger.Warn("Row %d failed: %s", i+1, result.Marker())
		}
		s.logger.Info("Processed row %d of %d. Result: '%s'", i+1, total, preview(result.Marker()))
		results = append(results, result)
	}
	return results, nil
}

func (s *BatchService) processRow(ctx context.Context, tmpl *prompt.Template, i int, row dataset.Row) run.InferenceResult {
	result := run.InferenceResult{RowIndex: i}

	text, err := tmpl.Render(row)
	if err != nil {
		result.Err = err
		return result
	}
	s.logger.Trace("Row %d prompt: %s", i+1, text)

	start := time.Now()
	resp, err := s.generator.Generate(ctx, text)
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	if resp == nil {
		result.Err = fmt.Errorf("generator returned no response")
		return result
	}
	result.Text = resp.Content
	if u := resp.Usage; u != nil {
		result.Tokens = run.TokenUsage{Prompt: u.PromptTokens, Completion: u.CompletionTokens, Total: u.TotalTokens}
	}
	return result
}

// preview shortens s to previewRunes runes, with "..." when cut
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes]) + "..."
}
