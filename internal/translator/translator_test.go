package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/speakswap/internal/provider"
)

type fakeChat struct {
	resp  openai.ChatCompletionResponse
	err   error
	panic any
	delay time.Duration
	got   openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	if f.panic != nil {
		panic(f.panic)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}
}

func TestChatAdapterDefaultModel(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{provider.ProviderOpenAI, "", "gpt-4o-mini"},
		{provider.ProviderGroq, "", "llama-3.3-70b-versatile"},
		{provider.ProviderGroq, "llama-3.1-8b-instant", "llama-3.1-8b-instant"},
	}
	for _, tt := range tests {
		a := NewChatAdapter(provider.GetProvider(tt.provider), Config{APIKey: "k", Model: tt.model})
		if a.model != tt.want || a.name != tt.provider {
			t.Errorf("%s/%q: got %s/%s, want %s", tt.provider, tt.model, a.name, a.model, tt.want)
		}
	}
}

func TestNewAdapter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai", Config{Provider: provider.ProviderOpenAI, APIKey: "sk"}, false},
		{"groq", Config{Provider: provider.ProviderGroq, APIKey: "gsk"}, false},
		{"openai without key", Config{Provider: provider.ProviderOpenAI}, false},
		{"groq without key", Config{Provider: provider.ProviderGroq}, false},
		{"unknown provider", Config{Provider: "deepl", APIKey: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil || a == nil {
				t.Fatalf("NewAdapter: %v", err)
			}
		})
	}
}

func TestTranslateWithoutKey(t *testing.T) {
	a, err := NewAdapter(Config{Provider: provider.ProviderGroq})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	got, err := a.Translate(context.Background(), "hello", "en", "fr")
	if got != "" {
		t.Errorf("translation = %q, want empty", got)
	}
	var trErr *Error
	if !errors.As(err, &trErr) || trErr.Kind != AdapterFailure {
		t.Fatalf("error = %v, want adapter failure", err)
	}
	if !strings.Contains(trErr.Error(), "GROQ_API_KEY") {
		t.Errorf("message %q should name the environment variable", trErr.Error())
	}
}

func TestTranslate(t *testing.T) {
	client := &fakeChat{resp: reply("  Hola mundo\n")}
	a := newChatAdapter(provider.ProviderOpenAI, client, Config{}, "gpt-4o-mini")

	got, err := a.Translate(context.Background(), "Hello world", "en", "es")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Hola mundo" {
		t.Errorf("Translate = %q, want %q", got, "Hola mundo")
	}
	if client.got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", client.got.Model)
	}
	if len(client.got.Messages) != 2 || client.got.Messages[1].Content != "Hello world" {
		t.Errorf("messages = %+v", client.got.Messages)
	}
	if sys := client.got.Messages[0].Content; !strings.Contains(sys, "English") || !strings.Contains(sys, "Spanish") {
		t.Errorf("system prompt should name both languages: %q", sys)
	}
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		name     string
		client   *fakeChat
		timeout  time.Duration
		wantKind Kind
		wantMsg  string
	}{
		{"api error", &fakeChat{err: errors.New("401 unauthorized")}, 0, AdapterFailure, "unauthorized"},
		{"no choices", &fakeChat{}, 0, AdapterFailure, "no response choices"},
		{"blank reply", &fakeChat{resp: reply(" \n\t ")}, 0, AdapterFailure, "empty translation"},
		{"timeout", &fakeChat{delay: time.Second, resp: reply("late")}, 10 * time.Millisecond, AdapterFailure, "timed out"},
		{"panic", &fakeChat{panic: "nil map"}, 0, ExceptionCaught, "nil map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newChatAdapter(provider.ProviderGroq, tt.client, Config{Timeout: tt.timeout}, "m")
			_, err := a.Translate(context.Background(), "text", "en", "fr")

			var trErr *Error
			if !errors.As(err, &trErr) {
				t.Fatalf("error %v is not *Error", err)
			}
			if trErr.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", trErr.Kind, tt.wantKind)
			}
			if !strings.Contains(trErr.Error(), tt.wantMsg) {
				t.Errorf("message %q should contain %q", trErr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestTranslateBlankText(t *testing.T) {
	client := &fakeChat{panic: "should not be called"}
	a := newChatAdapter(provider.ProviderOpenAI, client, Config{}, "m")
	got, err := a.Translate(context.Background(), "   ", "en", "es")
	if err != nil || got != "" {
		t.Errorf("Translate(blank) = %q, %v", got, err)
	}
}

func TestTranslateOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reply("Bonjour"))
	}))
	defer srv.Close()

	clientConfig := openai.DefaultConfig("test-key")
	clientConfig.BaseURL = srv.URL + "/v1"
	a := newChatAdapter(provider.ProviderOpenAI, openai.NewClientWithConfig(clientConfig), Config{}, "gpt-4o-mini")

	got, err := a.Translate(context.Background(), "Hello", "en", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Bonjour" {
		t.Errorf("Translate = %q, want Bonjour", got)
	}
}

func TestBuildSystemPromptUnknownCode(t *testing.T) {
	p := BuildSystemPrompt("xx", "en")
	if !strings.Contains(p, "xx") || !strings.Contains(p, "English") {
		t.Errorf("prompt = %q", p)
	}
}
