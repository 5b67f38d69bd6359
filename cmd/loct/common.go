package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/oukeidos/loct/internal/auth"
	"github.com/oukeidos/loct/internal/logger"
	"github.com/oukeidos/loct/internal/metadata"
	"github.com/oukeidos/loct/internal/pipeline"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey
)

var serviceLabels = map[string]string{
	"cohere": "Cohere",
	"gemini": "Gemini",
	"openai": "OpenAI",
}

func serviceLabel(service string) string {
	if label, ok := serviceLabels[service]; ok {
		return label
	}
	return service
}

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(service string, allowEnv, envOnly bool) (string, string, error) {
	if !auth.KnownService(service) {
		return "", "", fmt.Errorf("invalid service. Must be 'cohere', 'gemini' or 'openai'")
	}
	if envOnly {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
		return "", "", fmt.Errorf("env-only set but %s is not set", auth.EnvVarName(service))
	}

	if key, source := getKey(service, false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(service); ok {
			return key, "Environment Variable", nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", serviceLabel(service)))
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func printRunStats(result *pipeline.RunResult, duration time.Duration, model string) {
	fmt.Println("\n--- Execution Stats ---")
	fmt.Printf("Time: %s\n", duration)
	fmt.Printf("Model: %s\n", model)
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Segments: %d (failed=%d, skipped=%d)\n",
		result.TotalSegments, result.FailedSegments, result.SkippedSegments)
	if result.InputChars > 0 || result.OutputChars > 0 {
		fmt.Printf("Characters: In=%d, Out=%d\n", result.InputChars, result.OutputChars)
	}
	if result.Usage.TotalTokens > 0 {
		fmt.Printf("Tokens: In=%d, Out=%d, Total=%d\n",
			result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.TotalTokens)
		cost := metadata.EstimateCost(model, result.Usage.InputTokens, result.Usage.OutputTokens)
		fmt.Printf("Estimated Cost: $%.5f\n", cost)
	}
	if result.OutputPath != "" && result.Status != pipeline.StatusFailure && result.Status != pipeline.StatusSkipped {
		fmt.Printf("Output: %s\n", result.OutputPath)
	}
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Cancellation requested")
		cancel()
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
