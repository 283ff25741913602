package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownProvider = errors.New("unknown ai provider")

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

// Registry maps provider names to factories; a request may pick a model
// per call while the provider stays configured once.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	fallback  string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{
		factories: make(map[string]ProviderFactory),
		fallback:  normalize(defaultName),
	}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = f
}

// Get resolves name (or the default when empty) and builds a provider for model.
func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = normalize(name)
	if name == "" {
		name = r.fallback
	}
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return f(ctx, strings.TrimSpace(model))
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Options configures the built-in providers.
type Options struct {
	Default           string
	OllamaBaseURL     string
	OllamaModel       string
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string
}

// NewDefaultRegistry registers ollama and openrouter.
func NewDefaultRegistry(o Options) *Registry {
	reg := NewRegistry(o.Default)
	reg.Register("ollama", func(_ context.Context, model string) (Provider, error) {
		if model == "" {
			model = o.OllamaModel
		}
		return NewOllamaProvider(o.OllamaBaseURL, model), nil
	})
	reg.Register("openrouter", func(_ context.Context, model string) (Provider, error) {
		if model == "" {
			model = o.OpenRouterModel
		}
		return NewOpenRouterProvider(o.OpenRouterBaseURL, o.OpenRouterAPIKey, model,
			o.OpenRouterSiteURL, o.OpenRouterAppName), nil
	})
	return reg
}
