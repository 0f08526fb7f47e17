package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// API key sources accepted in api_key_source.
const (
	KeySourceEnv     = "env"
	KeySourceConfig  = "config"
	KeySourceKeyring = "keyring"
)

// ErrMissingAPIKey is returned when a provider's key cannot be found.
var ErrMissingAPIKey = errors.New("api key not found")

// ResolveAPIKey resolves an API key from source. "keyring" currently falls
// back to the environment; an empty source means "env".
func ResolveAPIKey(source, configValue, envVar string) (string, error) {
	switch strings.ToLower(source) {
	case "", KeySourceEnv, KeySourceKeyring:
		return resolveFromEnv(envVar)
	case KeySourceConfig:
		if configValue == "" {
			return "", fmt.Errorf("%w: api_key_source is 'config' but no api_key value provided", ErrMissingAPIKey)
		}
		return configValue, nil
	default:
		return "", fmt.Errorf("unknown api_key_source: %q", source)
	}
}

// EnvVarFor returns the conventional environment variable for a provider,
// e.g. "openrouter" becomes OPENROUTER_API_KEY.
func EnvVarFor(providerName string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(providerName))
	return name + "_API_KEY"
}

func resolveFromEnv(envVar string) (string, error) {
	if envVar == "" {
		return "", fmt.Errorf("no environment variable name specified")
	}
	val := os.Getenv(envVar)
	if val == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrMissingAPIKey, envVar)
	}
	return val, nil
}
