package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/provider"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatAdapter translates with a chat completion model.
type ChatAdapter struct {
	name    string
	client  chatClient
	model   string
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewChatAdapter talks to p's OpenAI-compatible chat endpoint.
func NewChatAdapter(p provider.Provider, cfg Config) *ChatAdapter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if base := p.BaseURL(); base != "" {
		clientConfig.BaseURL = base
	}
	return newChatAdapter(p.Name(), openai.NewClientWithConfig(clientConfig), cfg, p.DefaultModel(provider.Chat))
}

func newChatAdapter(name string, client chatClient, cfg Config, defaultModel string) *ChatAdapter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &ChatAdapter{
		name:    name,
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		log:     logger.Named("translator").Sugar(),
	}
}

func (a *ChatAdapter) Translate(ctx context.Context, text, sourceCode, targetCode string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorf("Translator: %s panicked: %v", a.name, r)
			result = ""
			err = &Error{Kind: ExceptionCaught, Message: fmt.Sprintf("translation failed: %v", r)}
		}
	}()

	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(sourceCode, targetCode)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		a.log.Warnf("Translator: %s call failed after %v: %v", a.name, duration, err)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: AdapterFailure, Message: "translation timed out", Cause: err}
		}
		return "", &Error{Kind: AdapterFailure, Message: fmt.Sprintf("%s translation: %v", a.name, err), Cause: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: AdapterFailure, Message: fmt.Sprintf("%s translation: no response choices", a.name)}
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", &Error{Kind: AdapterFailure, Message: fmt.Sprintf("%s translation: empty translation", a.name)}
	}
	a.log.Debugf("Translator: %s %s->%s in %v", a.name, sourceCode, targetCode, duration)
	return out, nil
}
