package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/observe"
	"github.com/leonardotrapani/speakswap/internal/recognizer"
	"github.com/leonardotrapani/speakswap/internal/synthesizer"
	"github.com/leonardotrapani/speakswap/internal/translator"
)

var (
	english  = language.Language{Code: "en", Name: "English", IsInstalled: true, IsFavorite: true}
	spanish  = language.Language{Code: "es", Name: "Spanish", IsInstalled: true, IsFavorite: true}
	french   = language.Language{Code: "fr", Name: "French", IsInstalled: true}
	german   = language.Language{Code: "de", Name: "German", IsInstalled: true, IsFavorite: true}
	japanese = language.Language{Code: "ja", Name: "Japanese"}
)

type fakeCatalog struct {
	list    *observe.Value[[]language.Language]
	mu      sync.Mutex
	toggled []string
}

func newFakeCatalog(list ...language.Language) *fakeCatalog {
	return &fakeCatalog{list: observe.NewValue(list)}
}

func (c *fakeCatalog) ListAll(ctx context.Context) <-chan []language.Language {
	return c.list.Subscribe(ctx)
}

func (c *fakeCatalog) ToggleFavorite(ctx context.Context, l language.Language) error {
	return c.toggle("favorite:"+l.Code, l.Code, func(x *language.Language) { x.IsFavorite = !l.IsFavorite })
}

func (c *fakeCatalog) ToggleInstalled(ctx context.Context, l language.Language) error {
	return c.toggle("installed:"+l.Code, l.Code, func(x *language.Language) { x.IsInstalled = !l.IsInstalled })
}

func (c *fakeCatalog) toggle(what, code string, apply func(*language.Language)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggled = append(c.toggled, what)
	list := append([]language.Language(nil), c.list.Get()...)
	for i := range list {
		if list[i].Code == code {
			apply(&list[i])
		}
	}
	c.list.Set(list)
	return nil
}

type fakeHistory struct {
	inserted chan history.Entry
}

func (h *fakeHistory) Insert(ctx context.Context, e history.Entry) (history.Entry, error) {
	e.ID = "id-" + e.SourceText
	h.inserted <- e
	return e, nil
}

type result struct {
	out string
	err error
}

type call struct {
	text, src, dst string
	reply          chan result
}

type fakeTranslator struct {
	calls chan *call
}

func (f *fakeTranslator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	c := &call{text: text, src: src, dst: dst, reply: make(chan result, 1)}
	f.calls <- c
	r := <-c.reply
	return r.out, r.err
}

type fakeRecognizer struct {
	events   chan recognizer.Event
	mu       sync.Mutex
	started  []string
	stops    int
	released bool
}

func (r *fakeRecognizer) Events() <-chan recognizer.Event { return r.events }

func (r *fakeRecognizer) Start(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, code)
}

func (r *fakeRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *fakeRecognizer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.released {
		r.released = true
		close(r.events)
	}
}

func (r *fakeRecognizer) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

type utterance struct{ text, code string }

type fakeSynthesizer struct {
	events   chan synthesizer.Event
	mu       sync.Mutex
	spoken   []utterance
	stops    int
	released bool
}

func (s *fakeSynthesizer) Events() <-chan synthesizer.Event { return s.events }

func (s *fakeSynthesizer) Speak(text, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, utterance{text, code})
}

func (s *fakeSynthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeSynthesizer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released {
		s.released = true
		close(s.events)
	}
}

func (s *fakeSynthesizer) Spoken() []utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]utterance(nil), s.spoken...)
}

type harness struct {
	s       *Session
	catalog *fakeCatalog
	history *fakeHistory
	tr      *fakeTranslator
	rec     *fakeRecognizer
	synth   *fakeSynthesizer
}

func newHarness(t *testing.T, locale string, list ...language.Language) *harness {
	t.Helper()
	h := &harness{
		catalog: newFakeCatalog(list...),
		history: &fakeHistory{inserted: make(chan history.Entry, 16)},
		tr:      &fakeTranslator{calls: make(chan *call, 16)},
		rec:     &fakeRecognizer{events: make(chan recognizer.Event, 16)},
		synth:   &fakeSynthesizer{events: make(chan synthesizer.Event, 16)},
	}
	h.s = New(Deps{
		Catalog:     h.catalog,
		History:     h.history,
		Translator:  h.tr,
		Recognizer:  h.rec,
		Synthesizer: h.synth,
		Locale:      func() string { return locale },
	})
	t.Cleanup(h.s.Close)
	return h
}

// flush waits until everything posted so far has been processed and
// published.
func (h *harness) flush(t *testing.T) State {
	t.Helper()
	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		h.s.post(func() { close(done) })
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("session loop did not respond")
		}
	}
	return h.s.State().Get()
}

func (h *harness) waitFor(t *testing.T, desc string, cond func(State) bool) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	states := h.s.State().Subscribe(ctx)
	for {
		select {
		case st, ok := <-states:
			if !ok {
				t.Fatalf("state closed waiting for %s", desc)
			}
			if cond(st) {
				return st
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %s; state = %+v", desc, h.s.State().Get())
		}
	}
}

func (h *harness) nextCall(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-h.tr.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for translate call")
	}
	return nil
}

func (h *harness) noCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-h.tr.calls:
		t.Fatalf("unexpected translate call %+v", c)
	case <-time.After(30 * time.Millisecond):
	}
}

func (h *harness) nextEntry(t *testing.T) history.Entry {
	t.Helper()
	select {
	case e := <-h.history.inserted:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for history insert")
	}
	return history.Entry{}
}

func (h *harness) noEntry(t *testing.T) {
	t.Helper()
	select {
	case e := <-h.history.inserted:
		t.Fatalf("unexpected history insert %+v", e)
	case <-time.After(30 * time.Millisecond):
	}
}

// ready returns a harness whose pair has been bootstrapped to en -> es.
func ready(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, "en", english, spanish, french)
	h.waitFor(t, "bootstrap", func(st State) bool { return st.TargetLanguage != nil })
	return h
}

func codeOf(l *language.Language) string {
	if l == nil {
		return ""
	}
	return l.Code
}

func TestBootstrap(t *testing.T) {
	tests := []struct {
		name       string
		locale     string
		list       []language.Language
		wantSource string
		wantTarget string
	}{
		{"preferred locale", "es", []language.Language{english, spanish, french}, "es", "en"},
		{"unknown locale falls back to english", "xx", []language.Language{french, english, spanish}, "en", "es"},
		{"no locale", "", []language.Language{spanish, english}, "en", "es"},
		{"target skips non-favorites", "en", []language.Language{english, french, german}, "en", "de"},
		{"no favorite other than source", "en", []language.Language{english, french}, "en", "fr"},
		{"no english and no locale", "", []language.Language{french, german}, "", "de"},
		{"no favorites and no source", "", []language.Language{french, japanese}, "", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.locale, tt.list...)
			st := h.waitFor(t, "languages", func(st State) bool { return st.TargetLanguage != nil })
			if got := codeOf(st.SourceLanguage); got != tt.wantSource {
				t.Errorf("source = %q, want %q", got, tt.wantSource)
			}
			if got := codeOf(st.TargetLanguage); got != tt.wantTarget {
				t.Errorf("target = %q, want %q", got, tt.wantTarget)
			}
		})
	}
}

func TestBootstrapRunsOnce(t *testing.T) {
	h := newHarness(t, "en")
	if st := h.flush(t); st.SourceLanguage != nil || st.TargetLanguage != nil {
		t.Fatalf("empty listing should not bootstrap, got %+v", st)
	}

	h.catalog.list.Set([]language.Language{english, spanish})
	h.waitFor(t, "bootstrap", func(st State) bool { return codeOf(st.TargetLanguage) == "es" })

	h.s.ClearLanguages()
	h.flush(t)
	h.catalog.list.Set([]language.Language{english, spanish, german})
	h.waitFor(t, "new listing", func(State) bool { return len(h.s.Languages().Get()) == 3 })

	st := h.flush(t)
	if st.SourceLanguage != nil || st.TargetLanguage != nil {
		t.Errorf("bootstrap ran twice: %s -> %s", codeOf(st.SourceLanguage), codeOf(st.TargetLanguage))
	}
}

func TestBootstrapKeepsUserSelection(t *testing.T) {
	h := newHarness(t, "en")
	h.s.SetSourceLanguage(french)
	h.flush(t)

	h.catalog.list.Set([]language.Language{english, spanish})
	h.waitFor(t, "listing", func(State) bool { return len(h.s.Languages().Get()) == 2 })

	st := h.flush(t)
	if codeOf(st.SourceLanguage) != "fr" || st.TargetLanguage != nil {
		t.Errorf("languages = %s -> %s, want fr -> none", codeOf(st.SourceLanguage), codeOf(st.TargetLanguage))
	}
}

func TestTranslateSuccess(t *testing.T) {
	h := ready(t)

	h.s.SetSourceText("Hello")
	st := h.waitFor(t, "loading", func(st State) bool { return st.Phase.Kind == Loading })
	if st.SourceText != "Hello" {
		t.Errorf("SourceText = %q", st.SourceText)
	}

	c := h.nextCall(t)
	if c.text != "Hello" || c.src != "en" || c.dst != "es" {
		t.Fatalf("translate call = %+v", c)
	}
	c.reply <- result{out: "Hola"}

	st = h.waitFor(t, "success", func(st State) bool { return st.Phase.Kind == Success })
	if st.TranslatedText != "Hola" {
		t.Errorf("TranslatedText = %q, want Hola", st.TranslatedText)
	}
	if got := h.s.TranslatedText().Get(); got != "Hola" {
		t.Errorf("TranslatedText observable = %q", got)
	}

	e := h.nextEntry(t)
	if e.SourceText != "Hello" || e.TranslatedText != "Hola" || e.SourceLanguage != "en" || e.TargetLanguage != "es" {
		t.Errorf("history entry = %+v", e)
	}
}

func TestTranslateSkipped(t *testing.T) {
	t.Run("blank text", func(t *testing.T) {
		h := ready(t)
		h.s.SetSourceText("   ")
		st := h.flush(t)
		if st.SourceText != "   " {
			t.Errorf("SourceText = %q, text should always update", st.SourceText)
		}
		if st.Phase.Kind != Initial {
			t.Errorf("phase = %v, want initial", st.Phase.Kind)
		}
		h.noCall(t)
	})

	t.Run("no languages", func(t *testing.T) {
		h := ready(t)
		h.s.ClearLanguages()
		h.s.SetSourceText("Hello")
		st := h.flush(t)
		if st.SourceText != "Hello" || st.Phase.Kind != Initial {
			t.Errorf("state = %+v", st)
		}
		h.noCall(t)
	})
}

func TestTranslateFailure(t *testing.T) {
	h := ready(t)

	h.s.SetSourceText("Hello")
	h.nextCall(t).reply <- result{out: "Hola"}
	h.waitFor(t, "success", func(st State) bool { return st.Phase.Kind == Success })
	h.nextEntry(t)

	h.s.SetSourceText("Goodbye")
	h.nextCall(t).reply <- result{err: &translator.Error{Kind: translator.AdapterFailure, Message: "quota exceeded"}}

	st := h.waitFor(t, "error", func(st State) bool { return st.Phase.Kind == Error })
	if st.Phase.Message != "quota exceeded" {
		t.Errorf("message = %q", st.Phase.Message)
	}
	if st.TranslatedText != "Hola" {
		t.Errorf("TranslatedText = %q, failure should keep the previous translation", st.TranslatedText)
	}
	h.noEntry(t)

	h.s.SetSourceText("Again")
	h.nextCall(t).reply <- result{err: errors.New("connection reset")}
	st = h.waitFor(t, "plain error", func(st State) bool { return st.Phase.Message == "connection reset" })
	if st.Phase.Kind != Error {
		t.Errorf("phase = %v", st.Phase.Kind)
	}
}

func TestLastResolutionWins(t *testing.T) {
	h := ready(t)

	h.s.SetSourceText("one")
	first := h.nextCall(t)
	h.s.SetSourceText("two")
	second := h.nextCall(t)

	second.reply <- result{out: "dos"}
	h.waitFor(t, "second result", func(st State) bool { return st.TranslatedText == "dos" })
	first.reply <- result{out: "uno"}
	st := h.waitFor(t, "first result", func(st State) bool { return st.TranslatedText == "uno" })

	if st.SourceText != "two" {
		t.Errorf("SourceText = %q, want two", st.SourceText)
	}
	if st.Phase.Kind != Success {
		t.Errorf("phase = %v", st.Phase.Kind)
	}

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		e := h.nextEntry(t)
		got[e.SourceText] = e.TranslatedText
	}
	if got["one"] != "uno" || got["two"] != "dos" {
		t.Errorf("history = %v", got)
	}
}

func TestHistoryUsesValuesAtInitiation(t *testing.T) {
	h := ready(t)

	h.s.SetSourceText("Hello")
	pending := h.nextCall(t)

	h.s.SetTargetLanguage(french)
	retranslate := h.nextCall(t)
	if retranslate.dst != "fr" || retranslate.text != "Hello" {
		t.Fatalf("re-selection should retranslate into fr, got %+v", retranslate)
	}

	pending.reply <- result{out: "Hola"}
	e := h.nextEntry(t)
	if e.TargetLanguage != "es" || e.TranslatedText != "Hola" {
		t.Errorf("history entry = %+v, want es/Hola", e)
	}

	retranslate.reply <- result{out: "Bonjour"}
	e = h.nextEntry(t)
	if e.TargetLanguage != "fr" || e.TranslatedText != "Bonjour" {
		t.Errorf("history entry = %+v, want fr/Bonjour", e)
	}
}

func TestReselectWithoutTextDoesNotTranslate(t *testing.T) {
	h := ready(t)
	h.s.SetSourceLanguage(german)
	st := h.flush(t)
	if codeOf(st.SourceLanguage) != "de" {
		t.Errorf("source = %q", codeOf(st.SourceLanguage))
	}
	h.noCall(t)
}

func TestListening(t *testing.T) {
	t.Run("no source language", func(t *testing.T) {
		h := newHarness(t, "en")
		h.s.StartListening()
		if st := h.flush(t); st.IsListening {
			t.Error("listening without a source language")
		}
		if got := h.rec.Started(); len(got) != 0 {
			t.Errorf("recognizer started: %v", got)
		}
	})

	t.Run("result translates", func(t *testing.T) {
		h := ready(t)
		h.s.StartListening()
		if st := h.flush(t); !st.IsListening {
			t.Error("StartListening should set listening")
		}
		if got := h.rec.Started(); len(got) != 1 || got[0] != "en" {
			t.Errorf("recognizer started with %v", got)
		}

		h.rec.events <- recognizer.Event{State: recognizer.Ready}
		h.rec.events <- recognizer.Event{State: recognizer.Speaking}
		h.rec.events <- recognizer.Event{State: recognizer.Partial, Text: "hel"}
		h.rec.events <- recognizer.Event{State: recognizer.Processing}
		h.rec.events <- recognizer.Event{State: recognizer.Result, Text: "hello"}

		st := h.waitFor(t, "result", func(st State) bool { return st.SourceText == "hello" })
		if st.IsListening {
			t.Error("Result should clear listening")
		}
		if c := h.nextCall(t); c.text != "hello" {
			t.Errorf("translate call = %+v", c)
		}
	})

	t.Run("failure", func(t *testing.T) {
		h := ready(t)
		h.s.StartListening()
		h.flush(t)
		h.rec.events <- recognizer.Event{State: recognizer.Failed, Err: &recognizer.Error{Reason: recognizer.NoMatch}}

		st := h.waitFor(t, "error", func(st State) bool { return st.Phase.Kind == Error })
		if st.Phase.Message != "no recognition match" {
			t.Errorf("message = %q", st.Phase.Message)
		}
		if st.IsListening {
			t.Error("Failed should clear listening")
		}
	})

	t.Run("idle and stop", func(t *testing.T) {
		h := ready(t)
		h.s.StartListening()
		h.flush(t)
		h.rec.events <- recognizer.Event{State: recognizer.Idle}
		h.waitFor(t, "idle", func(st State) bool { return !st.IsListening })

		h.s.StartListening()
		h.s.StopListening()
		if st := h.flush(t); st.IsListening {
			t.Error("StopListening should clear listening immediately")
		}
		h.rec.mu.Lock()
		stops := h.rec.stops
		h.rec.mu.Unlock()
		if stops != 1 {
			t.Errorf("recognizer stopped %d times, want 1", stops)
		}
	})
}

func TestSpeaking(t *testing.T) {
	t.Run("no target language", func(t *testing.T) {
		h := newHarness(t, "en")
		h.s.SpeakTranslation()
		if st := h.flush(t); st.IsSpeaking {
			t.Error("speaking without a target language")
		}
		if got := h.synth.Spoken(); len(got) != 0 {
			t.Errorf("spoke %v", got)
		}
	})

	t.Run("speaks translation", func(t *testing.T) {
		h := ready(t)
		h.s.SetSourceText("Hello")
		h.nextCall(t).reply <- result{out: "Hola"}
		h.waitFor(t, "translated", func(st State) bool { return st.TranslatedText == "Hola" })

		h.s.SpeakTranslation()
		if st := h.flush(t); !st.IsSpeaking {
			t.Error("SpeakTranslation should set speaking")
		}
		if got := h.synth.Spoken(); len(got) != 1 || got[0] != (utterance{"Hola", "es"}) {
			t.Errorf("spoken = %v", got)
		}

		h.synth.events <- synthesizer.Event{State: synthesizer.Speaking}
		h.synth.events <- synthesizer.Event{State: synthesizer.Ready}
		h.waitFor(t, "done speaking", func(st State) bool { return !st.IsSpeaking })
	})

	t.Run("failure", func(t *testing.T) {
		h := ready(t)
		h.s.SpeakTranslation()
		h.flush(t)
		h.synth.events <- synthesizer.Event{State: synthesizer.Failed, Err: &synthesizer.Error{Reason: synthesizer.UnsupportedLanguage, Detail: "es"}}
		st := h.waitFor(t, "error", func(st State) bool { return st.Phase.Kind == Error })
		if st.IsSpeaking {
			t.Error("Failed should clear speaking")
		}
		if st.Phase.Message != "language not supported: es" {
			t.Errorf("message = %q", st.Phase.Message)
		}
	})

	t.Run("stop", func(t *testing.T) {
		h := ready(t)
		h.s.SpeakTranslation()
		h.s.StopSpeaking()
		if st := h.flush(t); st.IsSpeaking {
			t.Error("StopSpeaking should clear speaking immediately")
		}
	})

	t.Run("independent of listening", func(t *testing.T) {
		h := ready(t)
		h.s.StartListening()
		h.s.SpeakTranslation()
		st := h.flush(t)
		if !st.IsListening || !st.IsSpeaking {
			t.Errorf("listening=%v speaking=%v, want both", st.IsListening, st.IsSpeaking)
		}
	})
}

func TestToggles(t *testing.T) {
	h := ready(t)

	h.s.ToggleFavorite(french)
	h.waitFor(t, "favorite", func(State) bool {
		l, _ := language.Find(h.s.Languages().Get(), "fr")
		return l.IsFavorite
	})

	h.s.ToggleInstalled(french)
	h.waitFor(t, "uninstalled", func(State) bool {
		l, _ := language.Find(h.s.Languages().Get(), "fr")
		return !l.IsInstalled
	})

	h.catalog.mu.Lock()
	defer h.catalog.mu.Unlock()
	if len(h.catalog.toggled) != 2 || h.catalog.toggled[0] != "favorite:fr" || h.catalog.toggled[1] != "installed:fr" {
		t.Errorf("toggled = %v", h.catalog.toggled)
	}
}

func TestObservablesReplayToNewSubscribers(t *testing.T) {
	h := ready(t)
	h.s.SetSourceText("Hello")
	h.flush(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := h.s.SourceText().Subscribe(ctx)
	b := h.s.SourceText().Subscribe(ctx)
	for _, ch := range []<-chan string{a, b} {
		if got := <-ch; got != "Hello" {
			t.Errorf("replayed %q, want Hello", got)
		}
	}
	if got := codeOf(h.s.SourceLanguage().Get()); got != "en" {
		t.Errorf("SourceLanguage = %q", got)
	}
	if got := codeOf(h.s.TargetLanguage().Get()); got != "es" {
		t.Errorf("TargetLanguage = %q", got)
	}
	if got := h.s.Phase().Get().Kind; got != Loading {
		t.Errorf("Phase = %v", got)
	}
}

func TestCloseDropsLateResults(t *testing.T) {
	h := ready(t)

	h.s.SetSourceText("Hello")
	pending := h.nextCall(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	translated := h.s.TranslatedText().Subscribe(ctx)
	<-translated

	h.s.Close()
	h.s.Close()

	pending.reply <- result{out: "Hola"}
	h.noEntry(t)

	if _, ok := <-translated; ok {
		t.Error("observables should close with the session")
	}
	if got := h.s.TranslatedText().Get(); got != "" {
		t.Errorf("TranslatedText after close = %q", got)
	}
	if !h.rec.released || !h.synth.released {
		t.Error("Close should release recognizer and synthesizer")
	}

	// operations after close are ignored
	h.s.SetSourceText("ignored")
	h.s.StartListening()
	h.s.ToggleFavorite(french)
	if got := h.s.SourceText().Get(); got != "Hello" {
		t.Errorf("SourceText after close = %q", got)
	}
}

func TestSync(t *testing.T) {
	h := ready(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	h.s.SetSourceText("Hello")
	if err := h.s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	st := h.s.State().Get()
	if st.SourceText != "Hello" || st.Phase.Kind != Loading {
		t.Errorf("after Sync: text %q phase %v, want Hello Loading", st.SourceText, st.Phase.Kind)
	}
	h.nextCall(t).reply <- result{out: "Hola"}

	h.s.Close()
	if err := h.s.Sync(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Sync after Close = %v, want ErrClosed", err)
	}
}
