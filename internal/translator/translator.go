// Package translator translates text between languages with an
// OpenAI-compatible chat completion API.
package translator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/provider"
)

// Translator translates text from sourceCode to targetCode. Each call
// resolves exactly once, with a translation or an error.
type Translator interface {
	Translate(ctx context.Context, text, sourceCode, targetCode string) (string, error)
}

type Kind int

const (
	// AdapterFailure is a failure reported by the backend: an API error, a
	// timeout or an empty response.
	AdapterFailure Kind = iota
	// ExceptionCaught is an unexpected local failure recovered while
	// translating.
	ExceptionCaught
)

func (k Kind) String() string {
	if k == ExceptionCaught {
		return "exception"
	}
	return "adapter"
}

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type Config struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewAdapter builds the translator for cfg.Provider. Without an API key
// the returned translator fails every call, so a session still starts and
// reports the problem as a translation error.
func NewAdapter(cfg Config) (Translator, error) {
	p := provider.GetProvider(cfg.Provider)
	if p == nil || !provider.Supports(cfg.Provider, provider.Chat) {
		return nil, fmt.Errorf("unsupported translation provider: %s", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return missingKey{provider: p}, nil
	}
	return NewChatAdapter(p, cfg), nil
}

type missingKey struct {
	provider provider.Provider
}

func (m missingKey) Translate(ctx context.Context, text, sourceCode, targetCode string) (string, error) {
	return "", &Error{
		Kind:    AdapterFailure,
		Message: fmt.Sprintf("%s API key required: set providers.%s.api_key or %s", m.provider.Name(), m.provider.Name(), m.provider.EnvVar()),
	}
}
