// Package testutil holds fixtures shared by tests that need real stores
// and scripted adapters.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/speakswap/internal/catalog"
	"github.com/leonardotrapani/speakswap/internal/config"
	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/recognizer"
	"github.com/leonardotrapani/speakswap/internal/store"
	"github.com/leonardotrapani/speakswap/internal/synthesizer"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.General.Locale = "en_US"
	cfg.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "sk-test"},
	}
	cfg.Notifications.Type = "none"
	return cfg
}

// Stores opens an in-memory database with a seeded catalog and an empty
// history, all closed when the test ends.
func Stores(t *testing.T) (*catalog.Catalog, *history.Store) {
	t.Helper()
	db, err := store.Open(store.Options{InMemory: true})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.New(db, nil)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	if err := cat.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	hist, err := history.New(db, nil)
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	t.Cleanup(cat.Close)
	t.Cleanup(hist.Close)
	return cat, hist
}

// WaitForEntries polls hist until it holds n entries or a second passes.
func WaitForEntries(hist *history.Store, n int) []history.Entry {
	deadline := time.Now().Add(time.Second)
	for len(hist.Entries()) != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return hist.Entries()
}

// FailText makes UpperTranslator fail.
const FailText = "fail"

// UpperTranslator upper-cases text and appends the target code.
type UpperTranslator struct{}

func (UpperTranslator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	if text == FailText {
		return "", errors.New("backend down")
	}
	return strings.ToUpper(text) + " (" + dst + ")", nil
}

// StubRecognizer reports Ready on Start and Idle on Stop.
type StubRecognizer struct {
	events chan recognizer.Event
	once   sync.Once
}

func NewStubRecognizer() *StubRecognizer {
	return &StubRecognizer{events: make(chan recognizer.Event, 16)}
}

func (r *StubRecognizer) Events() <-chan recognizer.Event { return r.events }
func (r *StubRecognizer) Start(code string)               { r.events <- recognizer.Event{State: recognizer.Ready} }
func (r *StubRecognizer) Stop()                           { r.events <- recognizer.Event{State: recognizer.Idle} }
func (r *StubRecognizer) Release()                        { r.once.Do(func() { close(r.events) }) }

// StubSynthesizer reports Speaking on Speak and Ready on Stop.
type StubSynthesizer struct {
	events chan synthesizer.Event
	once   sync.Once
}

func NewStubSynthesizer() *StubSynthesizer {
	return &StubSynthesizer{events: make(chan synthesizer.Event, 16)}
}

func (s *StubSynthesizer) Events() <-chan synthesizer.Event { return s.events }
func (s *StubSynthesizer) Speak(text, code string)          { s.events <- synthesizer.Event{State: synthesizer.Speaking} }
func (s *StubSynthesizer) Stop()                            { s.events <- synthesizer.Event{State: synthesizer.Ready} }
func (s *StubSynthesizer) Release()                         { s.once.Do(func() { close(s.events) }) }
