// Package translate looks up word translations through a chain of public
// translation services, trying each in turn until one answers.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/metcalfc/leaf/internal/config"
	"github.com/metcalfc/leaf/internal/span"
)

// ErrNoTranslation is returned when no provider produced a usable result.
var ErrNoTranslation = errors.New("no translation found")

// Translator resolves a single word.
type Translator interface {
	Translate(ctx context.Context, word, from string) (span.Translation, error)
}

// Provider is one translation service.
type Provider interface {
	Name() string
	// Lookup returns the translated text, or ErrNoTranslation when the
	// service answered without a result.
	Lookup(ctx context.Context, word, from, to string) (string, error)
}

// Chain tries providers in order.
type Chain struct {
	providers []Provider
	source    string
	target    string
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewChain creates a chain translating into target. Every provider call
// waits on a shared limiter allowing rps requests per second.
func NewChain(target string, rps float64, log zerolog.Logger, providers ...Provider) *Chain {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Chain{
		providers: providers,
		target:    target,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
	}
}

// New builds the chain described by cfg.
func New(cfg config.TranslationConfig, log zerolog.Logger) (*Chain, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case config.ProviderLibreTranslate:
			providers = append(providers, &LibreTranslate{URL: cfg.LibreTranslateURL, APIKey: cfg.APIKey, Client: client})
		case config.ProviderMyMemory:
			providers = append(providers, &MyMemory{Client: client})
		case config.ProviderGoogle:
			providers = append(providers, &Google{Client: client})
		default:
			return nil, fmt.Errorf("unknown translation provider %q", name)
		}
	}

	c := NewChain(cfg.Target, cfg.RequestsPerSecond, log, providers...)
	c.source = cfg.Source
	return c, nil
}

// Translate asks each provider in order. A result equal to the input word
// counts as no result.
func (c *Chain) Translate(ctx context.Context, word, from string) (span.Translation, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return span.Translation{}, ErrNoTranslation
	}
	if c.source != "" {
		from = c.source
	}

	for _, p := range c.providers {
		if err := c.limiter.Wait(ctx); err != nil {
			return span.Translation{}, err
		}

		text, err := p.Lookup(ctx, word, from, c.target)
		if ctx.Err() != nil {
			return span.Translation{}, ctx.Err()
		}
		if err != nil {
			c.log.Debug().Err(err).Str("provider", p.Name()).Str("word", word).Msg("provider failed")
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" || strings.EqualFold(text, word) {
			c.log.Debug().Str("provider", p.Name()).Str("word", word).Msg("provider returned no translation")
			continue
		}

		c.log.Debug().Str("provider", p.Name()).Str("word", word).Msg("translated")
		return span.Translation{
			Word:          word,
			Meanings:      []string{text},
			Transcription: Transcription(word),
		}, nil
	}

	c.log.Warn().Str("word", word).Int("providers", len(c.providers)).Msg("no provider translated word")
	return span.Translation{}, fmt.Errorf("%w: %q", ErrNoTranslation, word)
}

// Transcription is the placeholder pronunciation shown for a word.
func Transcription(word string) string {
	return "[" + word + "]"
}
