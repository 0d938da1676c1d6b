package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"sheetprompt/adapters/llm"
	"sheetprompt/adapters/tabular"
	"sheetprompt/app"
	"sheetprompt/internal"
	"sheetprompt/internal/config"
	"sheetprompt/internal/errors"

	"github.com/spf13/cobra"
)

const dotEnvFile = ".env"

// options holds the values of a single invocation
type options struct {
	inputFile      string
	outputFile     string
	promptTemplate string
	newColumnName  string
	model          string
	logLevel       string
	dryRun         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sheetprompt [input_file output_file prompt_template new_column_name]",
		Short: "Generate a new spreadsheet column by prompting Gemini once per row",
		Long: `Read a CSV, XLS or XLSX file, fill a prompt template with each row's values,
send each prompt to the Gemini API and save the responses as a new column.

Placeholders in the template are column names in braces, e.g. {ProductName}.

Example: sheetprompt --input_file products.csv --output_file described.xlsx \
  --prompt_template "Describe {ProductName} focusing on {CustomerFeedback}." \
  --new_column_name GeneratedDescription`,
		Args:          cobra.MaximumNArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd, args); err != nil {
				return err
			}
			return runBatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.inputFile, "input_file", "", "Path to the input CSV, XLS or XLSX file")
	cmd.Flags().StringVar(&opts.outputFile, "output_file", "", "Path to save the output file (.csv, .xls or .xlsx)")
	cmd.Flags().StringVar(&opts.promptTemplate, "prompt_template", "", "Prompt template with {column} placeholders")
	cmd.Flags().StringVar(&opts.newColumnName, "new_column_name", "", "Name of the column that receives the generated text")
	cmd.Flags().StringVar(&opts.model, "model", "", "Gemini model name (overrides "+config.EnvModel+")")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: ERROR, WARN, INFO, DEBUG or TRACE (overrides "+config.EnvLogLevel+")")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Render prompts without calling the API; the prompt is written as the result")

	return cmd
}

// resolve fills the required values from flags, or from the four positional
// arguments when no required flag was given
func (o *options) resolve(cmd *cobra.Command, args []string) error {
	required := []string{"input_file", "output_file", "prompt_template", "new_column_name"}

	anyFlag := false
	for _, name := range required {
		if cmd.Flags().Changed(name) {
			anyFlag = true
		}
	}

	switch {
	case anyFlag && len(args) > 0:
		return errors.InvalidInput("use either flags or positional arguments, not both")
	case !anyFlag && len(args) == len(required):
		o.inputFile, o.outputFile, o.promptTemplate, o.newColumnName = args[0], args[1], args[2], args[3]
		return nil
	case !anyFlag && len(args) > 0:
		return errors.InvalidInput(fmt.Sprintf("expected %d positional arguments, got %d", len(required), len(args)))
	}

	var missing []string
	for _, name := range required {
		if !cmd.Flags().Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return errors.InvalidInput(fmt.Sprintf("required flag(s) not set: %v", missing))
	}
	return nil
}

func runBatch(ctx context.Context, opts *options, stdout io.Writer) error {
	if _, err := config.LoadDotEnv(dotEnvFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	levelName := cfg.LogLevel
	if opts.logLevel != "" {
		levelName = opts.logLevel
	}
	level, ok := internal.ParseLogLevel(levelName)
	if !ok {
		return errors.ConfigInvalid(fmt.Sprintf("unknown log level %q", levelName))
	}
	logger := internal.DefaultLogger
	logger.SetLevel(level)

	if opts.model != "" {
		cfg.Gemini.Model = opts.model
	}
	if !opts.dryRun {
		if err := cfg.RequireCredentials(); err != nil {
			return err
		}
	} else {
		logger.Info("Dry run: prompts are rendered but not sent")
	}

	generator, err := llm.NewTextGenerator(ctx,
		llm.Credentials{APIKey: cfg.Gemini.APIKey},
		llm.Config{
			Model:           cfg.Gemini.Model,
			BaseURL:         cfg.Gemini.BaseURL,
			Temperature:     cfg.Gemini.Temperature,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
			Timeout:         cfg.Gemini.Timeout,
		},
		opts.dryRun,
	)
	if err != nil {
		return err
	}

	service := app.NewBatchService(
		tabular.NewDataReader(logger),
		tabular.NewDataWriter(logger),
		generator,
		logger,
	)

	summary, err := service.Run(ctx, app.BatchRequest{
		InputPath:  opts.inputFile,
		OutputPath: opts.outputFile,
		Template:   opts.promptTemplate,
		Column:     opts.newColumnName,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Processing complete. Output saved to %s\n", summary.OutputPath)
	fmt.Fprintln(stdout, summary.String())
	return nil
}
