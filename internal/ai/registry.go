package ai

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/san-kum/pinnlab/internal/config"
)

type Factory func(cfg config.AIConfig, hc *http.Client) (Provider, error)

type Registry struct {
	providers map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Factory)}

	r.providers["genkit"] = func(cfg config.AIConfig, hc *http.Client) (Provider, error) {
		return NewGenkit(cfg.Genkit.URL, hc), nil
	}
	r.providers["gemini"] = func(cfg config.AIConfig, hc *http.Client) (Provider, error) {
		return NewGemini(GeminiOptions{
			BaseURL:    cfg.Gemini.BaseURL,
			APIKey:     cfg.Gemini.APIKey,
			TextModel:  cfg.Gemini.TextModel,
			ImageModel: cfg.Gemini.ImageModel,
		}, hc)
	}

	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.providers[name] = f
}

// Get builds the provider named in cfg. A nil client gets one with the
// configured timeout.
func (r *Registry) Get(cfg config.AIConfig, hc *http.Client) (Provider, error) {
	f, ok := r.providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownProvider, cfg.Provider, r.List())
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return f(cfg, hc)
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
