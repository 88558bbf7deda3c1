// Package translate abstracts the translation backend behind a single
// text-in/text-out interface keyed by target language code. The engine
// performs no retries; a failed call is a per-destination failure.
package translate

import (
	"context"
	"errors"
	"fmt"
)

// ErrTranslation wraps any backend failure so callers can classify it
// without knowing which provider is configured.
var ErrTranslation = errors.New("translation failed")

// Translator converts text into the given target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

const (
	ProviderDeepL     = "deepl"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config selects and configures a translation provider.
type Config struct {
	Provider string `env:"BABELRELAY_TRANSLATOR_PROVIDER" json:"provider"`
	APIKey   string `env:"BABELRELAY_TRANSLATOR_API_KEY"  json:"api_key"`
	APIBase  string `env:"BABELRELAY_TRANSLATOR_API_BASE" json:"api_base,omitempty"`
	Model    string `env:"BABELRELAY_TRANSLATOR_MODEL"    json:"model,omitempty"`
}

// New builds the configured provider.
func New(cfg Config) (Translator, error) {
	switch cfg.Provider {
	case ProviderDeepL, "":
		return NewDeepL(cfg.APIKey, cfg.APIBase), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.APIBase, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.APIBase, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown translator provider %q", cfg.Provider)
	}
}
