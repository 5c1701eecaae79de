// Package session coordinates speech recognition, translation, speech
// synthesis, the language catalog and the translation history behind one
// observable state.
//
// Every mutation runs on a single loop goroutine. Operations are
// fire-and-forget: they enqueue work for the loop and return. Observers read
// the outcome from the replay-latest values.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/observe"
	"github.com/leonardotrapani/speakswap/internal/recognizer"
	"github.com/leonardotrapani/speakswap/internal/synthesizer"
	"github.com/leonardotrapani/speakswap/internal/translator"
)

// Catalog is the part of the language catalog a session needs.
type Catalog interface {
	ListAll(ctx context.Context) <-chan []language.Language
	ToggleFavorite(ctx context.Context, l language.Language) error
	ToggleInstalled(ctx context.Context, l language.Language) error
}

// History receives one entry per completed translation.
type History interface {
	Insert(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Deps are the collaborators of a session. Catalog, History, Translator,
// Recognizer and Synthesizer are required. The session releases Recognizer
// and Synthesizer on Close.
type Deps struct {
	Catalog     Catalog
	History     History
	Translator  translator.Translator
	Recognizer  recognizer.Recognizer
	Synthesizer synthesizer.Synthesizer
	// Locale returns the preferred language code, or "". Defaults to
	// language.Preferred.
	Locale func() string
	Logger *zap.Logger
}

const queueSize = 64

type Session struct {
	deps Deps
	log  *zap.SugaredLogger

	// background outlives Close so in-flight translations can finish.
	background context.Context
	listCtx    context.Context
	listCancel context.CancelFunc

	ops      chan func()
	quit     chan struct{}
	loopDone chan struct{}
	once     sync.Once

	// owned by the loop goroutine
	st           State
	pub          State
	bootstrapped bool

	source     *observe.Value[*language.Language]
	target     *observe.Value[*language.Language]
	sourceText *observe.Value[string]
	translated *observe.Value[string]
	phase      *observe.Value[Phase]
	listening  *observe.Value[bool]
	speaking   *observe.Value[bool]
	languages  *observe.Value[[]language.Language]
	state      *observe.Value[State]
}

// New starts a session. It subscribes to the catalog listing immediately and
// bootstraps the language pair from the first non-empty listing.
func New(deps Deps) *Session {
	if deps.Locale == nil {
		deps.Locale = language.Preferred
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	listCtx, listCancel := context.WithCancel(context.Background())
	s := &Session{
		deps:       deps,
		log:        logger.Named("session").Sugar(),
		background: context.Background(),
		listCtx:    listCtx,
		listCancel: listCancel,
		ops:        make(chan func(), queueSize),
		quit:       make(chan struct{}),
		loopDone:   make(chan struct{}),

		source:     observe.NewValue[*language.Language](nil),
		target:     observe.NewValue[*language.Language](nil),
		sourceText: observe.NewValue(""),
		translated: observe.NewValue(""),
		phase:      observe.NewValue(Phase{}),
		listening:  observe.NewValue(false),
		speaking:   observe.NewValue(false),
		languages:  observe.NewValue[[]language.Language](nil),
		state:      observe.NewValue(State{}),
	}

	go s.loop(deps.Catalog.ListAll(listCtx))
	return s
}

func (s *Session) SourceLanguage() observe.Observable[*language.Language] { return s.source }
func (s *Session) TargetLanguage() observe.Observable[*language.Language] { return s.target }
func (s *Session) SourceText() observe.Observable[string]                 { return s.sourceText }
func (s *Session) TranslatedText() observe.Observable[string]             { return s.translated }
func (s *Session) Phase() observe.Observable[Phase]                       { return s.phase }
func (s *Session) IsListening() observe.Observable[bool]                  { return s.listening }
func (s *Session) IsSpeaking() observe.Observable[bool]                   { return s.speaking }

// Languages mirrors the catalog listing.
func (s *Session) Languages() observe.Observable[[]language.Language] { return s.languages }

// State is the combined snapshot, republished after every processed event.
func (s *Session) State() observe.Observable[State] { return s.state }

// SetSourceLanguage selects the source language and retranslates the current
// text.
func (s *Session) SetSourceLanguage(l language.Language) {
	s.post(func() {
		s.st.SourceLanguage = ref(l)
		s.translate()
	})
}

// SetTargetLanguage selects the target language and retranslates the current
// text.
func (s *Session) SetTargetLanguage(l language.Language) {
	s.post(func() {
		s.st.TargetLanguage = ref(l)
		s.translate()
	})
}

// ClearLanguages unselects both languages. The bootstrap does not run again.
func (s *Session) ClearLanguages() {
	s.post(func() {
		s.st.SourceLanguage = nil
		s.st.TargetLanguage = nil
	})
}

// SetSourceText replaces the source text. Non-blank text is translated when
// both languages are selected.
func (s *Session) SetSourceText(text string) {
	s.post(func() {
		s.setSourceText(text)
	})
}

// StartListening starts recognition in the source language and sets
// IsListening without waiting for the recognizer. Without a source language
// it does nothing.
func (s *Session) StartListening() {
	s.post(func() {
		if s.st.SourceLanguage == nil {
			return
		}
		s.deps.Recognizer.Start(s.st.SourceLanguage.Code)
		s.st.IsListening = true
	})
}

// StopListening ends the current utterance. A result still arrives for what
// was captured so far.
func (s *Session) StopListening() {
	s.post(func() {
		s.deps.Recognizer.Stop()
		s.st.IsListening = false
	})
}

// SpeakTranslation speaks the current translation in the target language.
func (s *Session) SpeakTranslation() {
	s.post(func() {
		if s.st.TargetLanguage == nil {
			return
		}
		s.deps.Synthesizer.Speak(s.st.TranslatedText, s.st.TargetLanguage.Code)
		s.st.IsSpeaking = true
	})
}

// StopSpeaking interrupts playback.
func (s *Session) StopSpeaking() {
	s.post(func() {
		s.deps.Synthesizer.Stop()
		s.st.IsSpeaking = false
	})
}

// ToggleFavorite flips l's favorite flag in the catalog. The change comes
// back through Languages.
func (s *Session) ToggleFavorite(l language.Language) {
	s.catalogWrite("favorite", l, s.deps.Catalog.ToggleFavorite)
}

// ToggleInstalled flips l's installed flag in the catalog.
func (s *Session) ToggleInstalled(l language.Language) {
	s.catalogWrite("installed", l, s.deps.Catalog.ToggleInstalled)
}

// Close stops the session and releases the speech engines. Translations
// still in flight complete but their results are discarded. Close is
// idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.quit)
		<-s.loopDone
		s.listCancel()

		s.deps.Recognizer.Release()
		s.deps.Synthesizer.Release()

		for _, c := range []interface{ Close() }{
			s.source, s.target, s.sourceText, s.translated,
			s.phase, s.listening, s.speaking, s.languages, s.state,
		} {
			c.Close()
		}
		s.log.Debug("Session: closed")
	})
}

func (s *Session) closed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// ErrClosed is returned by Sync once the session is closed.
var ErrClosed = errors.New("session closed")

// Sync returns once every operation posted before it has been applied and
// its state published.
func (s *Session) Sync(ctx context.Context) error {
	done := make(chan struct{})
	s.post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post hands fn to the loop. It is dropped once the session is closed.
func (s *Session) post(fn func()) {
	if s.closed() {
		return
	}
	select {
	case s.ops <- fn:
	case <-s.quit:
	}
}

func (s *Session) catalogWrite(what string, l language.Language, write func(context.Context, language.Language) error) {
	if s.closed() {
		return
	}
	go func() {
		if err := write(s.background, l); err != nil {
			s.log.Warnf("Session: toggle %s for %s failed: %v", what, l.Code, err)
		}
	}()
}
