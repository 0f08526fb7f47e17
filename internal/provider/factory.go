package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/julianshen/autodoc/internal/config"
)

const anthropicBaseURL = "https://api.anthropic.com"

// Endpoint carries everything a constructor needs to reach one backend.
type Endpoint struct {
	BaseURL      string
	APIKey       string
	ExtraHeaders map[string]string
}

// ProviderConstructor is a function that creates a new LLMProvider.
type ProviderConstructor func(ep Endpoint) (LLMProvider, error)

// Pinger is implemented by providers that can check reachability before a
// run starts.
type Pinger interface {
	Ping(ctx context.Context, model string) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderConstructor{}
)

// RegisterProvider registers a provider constructor by name.
func RegisterProvider(name string, constructor ProviderConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = constructor
}

// Registered returns the names of every registered constructor, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (ProviderConstructor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%s provider not registered", name)
	}
	return c, nil
}

// NewProvider creates an LLMProvider based on the given configuration.
// "anthropic", "gemini" and "ollama" select the built-in backends; any
// other name is looked up among the OpenAI-compatible configurations.
func NewProvider(cfg *config.Config) (LLMProvider, error) {
	switch cfg.Provider.Default {
	case "anthropic":
		return newKeyedProvider("anthropic", anthropicBaseURL,
			cfg.Provider.Anthropic.APIKeySource, cfg.Provider.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	case "gemini":
		return newKeyedProvider("gemini", "",
			cfg.Provider.Gemini.APIKeySource, cfg.Provider.Gemini.APIKey, "GEMINI_API_KEY")
	case "ollama":
		constructor, err := lookup("ollama")
		if err != nil {
			return nil, err
		}
		return constructor(Endpoint{BaseURL: cfg.Provider.Ollama.BaseURL})
	default:
		return newOpenAIProvider(cfg)
	}
}

// Check pings p when it supports it.
func Check(ctx context.Context, p LLMProvider, model string) error {
	if pinger, ok := p.(Pinger); ok {
		return pinger.Ping(ctx, model)
	}
	return nil
}

func newKeyedProvider(name, baseURL, source, configValue, envVar string) (LLMProvider, error) {
	constructor, err := lookup(name)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.ResolveAPIKey(source, configValue, envVar)
	if err != nil {
		return nil, fmt.Errorf("resolving %s API key: %w", name, err)
	}

	return constructor(Endpoint{BaseURL: baseURL, APIKey: apiKey})
}

func newOpenAIProvider(cfg *config.Config) (LLMProvider, error) {
	name := cfg.Provider.Default

	constructor, err := lookup("openai")
	if err != nil {
		return nil, err
	}

	for _, oc := range cfg.Provider.OpenAI {
		if oc.Name == name {
			apiKey, err := config.ResolveAPIKey(oc.APIKeySource, oc.APIKey, config.EnvVarFor(name))
			if err != nil {
				return nil, fmt.Errorf("resolving %s API key: %w", name, err)
			}

			return constructor(Endpoint{BaseURL: oc.BaseURL, APIKey: apiKey, ExtraHeaders: oc.ExtraHeaders})
		}
	}

	return nil, fmt.Errorf("unknown provider: %q", name)
}
