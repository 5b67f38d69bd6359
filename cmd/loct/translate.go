package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oukeidos/loct/internal/cleanup"
	"github.com/oukeidos/loct/internal/files"
	"github.com/oukeidos/loct/internal/logger"
	"github.com/oukeidos/loct/internal/metadata"
	"github.com/oukeidos/loct/internal/pipeline"
	"github.com/oukeidos/loct/internal/prompt"
	"github.com/oukeidos/loct/internal/segmenter"
	"github.com/oukeidos/loct/internal/translator"
)

type translateOptions struct {
	provider        string
	modelName       string
	segmentSize     int
	overlap         int
	concurrency     int
	temperature     float32
	instruction     string
	instructionFile string
	sourceLangCode  string
	targetLangCode  string
	yes             bool
	logFilePath     string
	allowEnv        bool
	envOnly         bool
	debug           bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <input.txt> [output.txt]",
		Short: "Translate a text document segment by segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				_ = cmd.Usage()
				return fmt.Errorf("input file is required")
			}
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	cmd.Flags().StringVar(&opts.provider, "provider", pipeline.ProviderCohere, "Translation provider (cohere, gemini or openai)")
	cmd.Flags().StringVar(&opts.modelName, "model", metadata.DefaultModelID, "Model name")
	cmd.Flags().IntVar(&opts.segmentSize, "segment-size", segmenter.DefaultTargetSize, "Target segment size in characters")
	cmd.Flags().IntVar(&opts.overlap, "overlap", segmenter.DefaultOverlap, "Lookback window in characters when choosing cut points")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 1, "Number of concurrent API requests (1-20)")
	cmd.Flags().Float32Var(&opts.temperature, "temperature", 0.1, "Sampling temperature (0.0-1.0)")
	cmd.Flags().StringVar(&opts.instruction, "instruction", "", "Translation instruction steering tone and register")
	cmd.Flags().StringVar(&opts.instructionFile, "instruction-file", "", "Read the translation instruction from a file")
	cmd.Flags().StringVar(&opts.sourceLangCode, "source", "fr", "Source language code or name (default: fr)")
	cmd.Flags().StringVar(&opts.targetLangCode, "target", "en", "Target language code or name (default: en)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for API keys")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	bindFlagsToViper(cmd)
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if len(args) < 1 {
		return fmt.Errorf("input file is required")
	}
	outputPath := ""
	if len(args) > 1 {
		outputPath = args[1]
	}
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Warning: expected at most 2 arguments but got %d. Did you forget quotes around file paths?\n", len(args))
		fmt.Fprintf(os.Stderr, "  Using input: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "  Using output: %s\n", args[1])
	}

	applyConfigDefaults(cmd, opts)

	logLevel := logger.LevelInfo
	if opts.debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if opts.logFilePath != "" {
		if err := files.RejectSymlinkPath(opts.logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register(f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)

	startTime := time.Now()

	instruction, err := resolveInstruction(opts)
	if err != nil {
		return err
	}

	service := strings.ToLower(opts.provider)
	actualKey, source, err := resolveAPIKey(service, opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "service", service, "source", source)

	cfg := pipeline.Config{
		InputPath:  args[0],
		OutputPath: outputPath,
		LogPath:    opts.logFilePath,
		Provider:   service,
		APIKey:     actualKey,
		Model:      opts.modelName,
		Segmentation: segmenter.Config{
			TargetSize: opts.segmentSize,
			Overlap:    opts.overlap,
		},
		Concurrency: opts.concurrency,
		Temperature: opts.temperature,
		Instruction: instruction,
		Overwrite:   opts.yes,
		SourceLang:  opts.sourceLangCode,
		TargetLang:  opts.targetLangCode,
		OnProgress: func(p translator.Progress) {
			switch p.State {
			case translator.StateCompleted:
				logger.Info("Segment completed", "index", p.SegmentIndex, "completed", p.Completed, "total", p.Total, "percent", fmt.Sprintf("%.0f%%", p.Fraction()*100))
			case translator.StateRetrying:
				logger.Warn("Segment retry", "index", p.SegmentIndex, "attempt", p.Attempt, "error", p.Err)
			case translator.StateFailed:
				logger.Warn("Segment failed", "index", p.SegmentIndex, "error", p.Err)
			case translator.StateSkipped:
				logger.Debug("Segment skipped (blank)", "index", p.SegmentIndex)
			}
		},
		OnConfirmOverwrite: func(path string) bool {
			confirmed, err := prompt.DefaultConfirmer().ConfirmOverwrite(path, opts.yes)
			if err != nil {
				logger.Error("Overwrite confirmation failed", "error", err)
				return false
			}
			return confirmed
		},
	}

	ctx, stop := signalContext()
	defer stop()
	result, err := pipeline.RunTranslation(ctx, cfg)

	// Always print stats (even on partial success)
	printRunStats(&result, time.Since(startTime), opts.modelName)

	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled", "error", err)
			return nil
		}
		return err
	}

	return translationStatusError(result)
}

func resolveInstruction(opts *translateOptions) (string, error) {
	if opts.instructionFile != "" {
		if opts.instruction != "" {
			return "", fmt.Errorf("--instruction and --instruction-file are mutually exclusive")
		}
		if err := files.RejectSymlinkPath(opts.instructionFile); err != nil {
			return "", err
		}
		data, err := os.ReadFile(opts.instructionFile)
		if err != nil {
			return "", fmt.Errorf("failed to read instruction file: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("instruction file %s is empty", opts.instructionFile)
		}
		return text, nil
	}
	if strings.TrimSpace(opts.instruction) == "" {
		return "", fmt.Errorf("a translation instruction is required (--instruction or --instruction-file)")
	}
	return strings.TrimSpace(opts.instruction), nil
}

// applyConfigDefaults lets a config file override flag defaults. Flags set on
// the command line win because viper returns the changed flag value first.
func applyConfigDefaults(cmd *cobra.Command, opts *translateOptions) {
	flags := cmd.Flags()
	if !flags.Changed("provider") {
		if v := viper.GetString("translate.provider"); v != "" {
			opts.provider = v
		}
	}
	if !flags.Changed("model") {
		if v := viper.GetString("translate.model"); v != "" {
			opts.modelName = v
		}
	}
	if !flags.Changed("segment-size") {
		if v := viper.GetInt("translate.segment_size"); v > 0 {
			opts.segmentSize = v
		}
	}
	if !flags.Changed("overlap") {
		if viper.IsSet("translate.overlap") {
			opts.overlap = viper.GetInt("translate.overlap")
		}
	}
	if !flags.Changed("concurrency") {
		if v := viper.GetInt("translate.concurrency"); v > 0 {
			opts.concurrency = v
		}
	}
	if !flags.Changed("source") {
		if v := viper.GetString("translate.source"); v != "" {
			opts.sourceLangCode = v
		}
	}
	if !flags.Changed("target") {
		if v := viper.GetString("translate.target"); v != "" {
			opts.targetLangCode = v
		}
	}
	if !flags.Changed("instruction") {
		if v := viper.GetString("translate.instruction"); v != "" {
			opts.instruction = v
		}
	}
}

func translationStatusError(result pipeline.RunResult) error {
	switch result.Status {
	case pipeline.StatusSuccess:
		return nil
	case pipeline.StatusSkipped:
		return nil
	case pipeline.StatusPartialSuccess, pipeline.StatusFailure:
		return fmt.Errorf("translation finished with status: %s (%d of %d segments failed)",
			result.Status, result.FailedSegments, result.TotalSegments)
	default:
		return fmt.Errorf("translation finished with unknown status: %q", result.Status)
	}
}
