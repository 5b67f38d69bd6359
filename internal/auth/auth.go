// Package auth resolves API keys for the supported translation services
// from the OS keychain, the environment, or an interactive prompt.
package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "loct"

type serviceKeys struct {
	account string
	envVar  string
}

var services = map[string]serviceKeys{
	"cohere": {account: "cohere-api-key", envVar: "COHERE_API_KEY"},
	"gemini": {account: "gemini-api-key", envVar: "GEMINI_API_KEY"},
	"openai": {account: "openai-api-key", envVar: "OPENAI_API_KEY"},
}

// KnownService reports whether the service name is supported.
func KnownService(service string) bool {
	_, ok := services[strings.ToLower(service)]
	return ok
}

func lookup(service string) serviceKeys {
	if keys, ok := services[strings.ToLower(service)]; ok {
		return keys
	}
	return services["cohere"]
}

// GetKey retrieves the API key for a service (cohere, gemini or openai).
// If allowEnv is false, environment variables are ignored.
func GetKey(service string, allowEnv bool) (string, string) {
	keys := lookup(service)

	// 1. Try Keychain
	key, err := keyring.Get(serviceName, keys.account)
	if err == nil && key != "" {
		return strings.TrimSpace(key), "Keychain"
	}

	if allowEnv {
		// 2. Try Env Var (optional)
		key = os.Getenv(keys.envVar)
		if key != "" {
			return strings.TrimSpace(key), "Environment Variable"
		}
	}

	return "", ""
}

// SaveKey saves the key for a service to the OS Keychain.
func SaveKey(service, key string) error {
	return keyring.Set(serviceName, lookup(service).account, strings.TrimSpace(key))
}

// DeleteKey removes the key for a service from the OS Keychain.
func DeleteKey(service string) error {
	return keyring.Delete(serviceName, lookup(service).account)
}

// GetStatus returns whether a key exists for a service in the keychain.
func GetStatus(service string) bool {
	key, err := keyring.Get(serviceName, lookup(service).account)
	return err == nil && key != ""
}

// EnvVarName returns the environment variable consulted for a service.
func EnvVarName(service string) string {
	return lookup(service).envVar
}

// PromptForAPIKey securely prompts the user for their API key.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(service string) (string, bool) {
	key := strings.TrimSpace(os.Getenv(lookup(service).envVar))
	if key == "" {
		return "", false
	}
	return key, true
}
