package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/oukeidos/loct/internal/apperrors"
	"github.com/oukeidos/loct/internal/cohere"
	"github.com/oukeidos/loct/internal/files"
	"github.com/oukeidos/loct/internal/gemini"
	"github.com/oukeidos/loct/internal/language"
	"github.com/oukeidos/loct/internal/logger"
	"github.com/oukeidos/loct/internal/openai"
	"github.com/oukeidos/loct/internal/provider"
	"github.com/oukeidos/loct/internal/segmenter"
	"github.com/oukeidos/loct/internal/translator"
)

// RunTranslation executes the full translation pipeline: read, validate,
// segment, translate, reassemble, write.
func RunTranslation(ctx context.Context, cfg Config) (RunResult, error) {
	var notes []string
	cfg, notes = cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return RunResult{}, err
	}

	srcLang, ok := language.Resolve(cfg.SourceLang)
	if !ok {
		return RunResult{}, apperrors.Config(fmt.Errorf("unsupported source language: %s", cfg.SourceLang))
	}
	tgtLang, ok := language.Resolve(cfg.TargetLang)
	if !ok {
		return RunResult{}, apperrors.Config(fmt.Errorf("unsupported target language: %s", cfg.TargetLang))
	}
	if srcLang.Code == tgtLang.Code {
		return RunResult{}, apperrors.Input(fmt.Errorf("source and target languages must be different (%s)", srcLang.Code))
	}
	if strings.TrimSpace(cfg.Instruction) == "" {
		return RunResult{}, apperrors.Input(fmt.Errorf("instruction context is required"))
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = DefaultOutputPath(cfg.InputPath, srcLang, tgtLang)
	}

	absIn, err := filepath.Abs(cfg.InputPath)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to resolve input path: %w", err)
	}
	absOut, err := filepath.Abs(outputPath)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to resolve output path: %w", err)
	}
	if absIn == absOut {
		return RunResult{}, fmt.Errorf("input and output files are the same (%s)", absIn)
	}
	if err := files.RejectSymlinkPath(outputPath); err != nil {
		return RunResult{}, err
	}
	if cfg.LogPath != "" {
		if err := files.RejectSymlinkPath(cfg.LogPath); err != nil {
			return RunResult{}, err
		}
	}

	shouldOverwrite := cfg.Overwrite
	outputExists := false
	if _, err := os.Stat(outputPath); err == nil {
		outputExists = true
		if cfg.OnConfirmOverwrite != nil {
			shouldOverwrite = cfg.OnConfirmOverwrite(outputPath)
		}
		if !shouldOverwrite {
			logger.Info("Output file exists. Aborted by user.", "path", outputPath)
			return RunResult{Status: StatusSkipped}, nil // Not an error, just user cancellation
		}
		logger.Info("Overwriting output file", "path", outputPath)
	}

	raw, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to read input file: %w", err)
	}
	if !utf8.Valid(raw) {
		return RunResult{}, apperrors.Input(fmt.Errorf("input file is not valid UTF-8: %s", cfg.InputPath))
	}
	document := string(raw)
	if strings.TrimSpace(document) == "" {
		return RunResult{}, apperrors.Input(fmt.Errorf("input document is empty"))
	}

	segments, err := segmenter.Split(document, cfg.Segmentation)
	if err != nil {
		return RunResult{}, err
	}
	logger.Info("Document segmented",
		"segments", len(segments),
		"target_size", cfg.Segmentation.TargetSize,
		"overlap", cfg.Segmentation.Overlap,
	)

	client, err := newClient(ctx, cfg)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}
	defer client.Close()

	tr, err := translator.New(provider.WithBreaker(client), translator.Options{
		Concurrency:    cfg.Concurrency,
		SourceLanguage: srcLang.Name,
		TargetLanguage: tgtLang.Name,
		Instruction:    strings.TrimSpace(cfg.Instruction),
		Temperature:    cfg.Temperature,
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to initialize translator: %w", err)
	}

	logger.Info("Starting translation", "provider", cfg.Provider, "model", cfg.Model, "concurrency", cfg.Concurrency)
	run, err := tr.Translate(ctx, segments, cfg.OnProgress)
	if err != nil {
		return RunResult{}, fmt.Errorf("fatal translation error: %w", err)
	}

	translated := run.Output()
	translatable := run.Total - run.Skipped
	result := RunResult{
		Status:          statusFor(run.Failed, translatable),
		Usage:           run.Usage,
		InputChars:      segmenter.Width(document),
		OutputChars:     segmenter.Width(translated),
		TotalSegments:   run.Total,
		FailedSegments:  run.Failed,
		SkippedSegments: run.Skipped,
		Duration:        run.Duration,
		Canceled:        run.Canceled,
	}
	logger.Info("Translation finished",
		"status", result.Status,
		"segments", run.Total,
		"failed", run.Failed,
		"skipped", run.Skipped,
		"duration", run.Duration,
	)

	if result.Status == StatusFailure {
		return result, nil
	}

	effectiveOutputPath := outputPath
	if !(outputExists && shouldOverwrite) {
		safePath, changed, err := files.SafePath(outputPath)
		if err != nil {
			return result, fmt.Errorf("failed to resolve output path: %w", err)
		}
		if changed {
			logger.Warn("Output path adjusted to avoid overwrite", "original", outputPath, "effective", safePath)
			effectiveOutputPath = safePath
		}
	}

	if err := files.AtomicWrite(effectiveOutputPath, []byte(translated), 0644); err != nil {
		return result, fmt.Errorf("failed to save output file: %w", err)
	}
	result.OutputPath = effectiveOutputPath
	logger.Info("Saved results", "path", effectiveOutputPath)

	return result, nil
}

// DefaultOutputPath derives an output filename embedding the language codes,
// e.g. letter.txt translated fr -> en becomes letter_fr_to_en.txt.
func DefaultOutputPath(inputPath string, src, tgt language.Language) string {
	ext := filepath.Ext(inputPath)
	if ext == "" {
		ext = ".txt"
	}
	stem := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return fmt.Sprintf("%s_%s_to_%s%s", stem, src.Code, tgt.Code, ext)
}

var newClient = newProviderClient

func newProviderClient(ctx context.Context, cfg Config) (provider.Translator, error) {
	switch cfg.Provider {
	case ProviderCohere:
		return cohere.NewClient(cfg.APIKey, cfg.Model), nil
	case ProviderGemini:
		return gemini.NewClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		return openai.NewClient(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
