package translation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/parley/internal/config"
)

// Registry stores translation providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// NewRegistryFromConfig registers every provider the configuration enables.
// Gemini is only registered when an API key is present.
func NewRegistryFromConfig(cfg *config.Config, log zerolog.Logger) *Registry {
	registry := NewRegistry()
	if cfg == nil {
		return registry
	}

	timeout := cfg.TranslationTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	_ = registry.Register(NewGoogleProvider(cfg.GoogleTranslateURL, timeout))
	_ = registry.Register(NewMyMemoryProvider(cfg.MyMemoryURL, cfg.MyMemoryEmail, timeout))
	_ = registry.Register(NewLingvaProvider(cfg.LingvaURL, timeout))
	_ = registry.Register(NewLibreTranslateProvider(cfg.LibreTranslateURL, cfg.LibreTranslateAPIKey, timeout))
	_ = registry.Register(NewLocalProvider(cfg.TranslationEndpoint, cfg.TranslationModel))

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("gemini provider disabled")
		} else {
			_ = registry.Register(gemini)
		}
	}

	return registry
}

// Register adds one provider, replacing any provider with the same name.
func (r *Registry) Register(provider Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = provider
	return nil
}

// Provider resolves a provider by name.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}

	resolvedName := normalizeProviderName(name)
	provider, ok := r.providers[resolvedName]
	if ok {
		return provider, nil
	}

	return nil, fmt.Errorf("%w: %q (available: %s)", ErrProviderNotRegistered, resolvedName, strings.Join(r.ProviderNames(), ", "))
}

// Resolve returns the registered providers named in chain, in order.
// Unregistered and duplicate names are skipped.
func (r *Registry) Resolve(chain []string) []Provider {
	if r == nil {
		return nil
	}
	out := make([]Provider, 0, len(chain))
	seen := make(map[string]struct{}, len(chain))
	for _, raw := range chain {
		name := normalizeProviderName(raw)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if provider, ok := r.providers[name]; ok {
			out = append(out, provider)
		}
	}
	return out
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
