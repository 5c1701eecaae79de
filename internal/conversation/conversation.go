// Package conversation drives hands-free turns on a session. With
// AutoSpeak every new translation is spoken. In Continuous mode a
// conversation started with Begin keeps going: each utterance is
// translated and spoken, then listening resumes until a stop word is heard.
package conversation

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/leonardotrapani/speakswap/internal/session"
)

type Options struct {
	Continuous bool
	AutoSpeak  bool
	// StopWords end a continuous conversation when recognized as the whole
	// utterance. Case and punctuation are ignored.
	StopWords []string
	// MaxMisses ends a continuous conversation after this many failed turns
	// in a row.
	MaxMisses int
}

func DefaultOptions() Options {
	return Options{StopWords: []string{"exit", "stop"}, MaxMisses: 3}
}

func (o Options) Enabled() bool {
	return o.Continuous || o.AutoSpeak
}

type stage int

const (
	idle stage = iota
	listening
	translating
	speaking
)

func (s stage) String() string {
	switch s {
	case listening:
		return "listening"
	case translating:
		return "translating"
	case speaking:
		return "speaking"
	default:
		return "idle"
	}
}

// Driver reacts to session state. It is not safe to Run twice.
type Driver struct {
	s    *session.Session
	opts Options
	log  *zap.SugaredLogger
	fold cases.Caser

	begun atomic.Bool
	ended atomic.Bool

	// owned by Run
	stage    stage
	prev     session.State
	started  bool
	heard    bool // saw the recognizer listening in this turn
	misses   int
	suppress string
}

func New(s *session.Session, opts Options, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxMisses < 1 {
		opts.MaxMisses = 1
	}
	return &Driver{
		s:    s,
		opts: opts,
		log:  logger.Named("conversation").Sugar(),
		fold: cases.Fold(),
	}
}

// Begin starts a continuous conversation with the listening the caller is
// about to start. It is a no-op unless Continuous is set.
func (d *Driver) Begin() {
	if d.opts.Continuous {
		d.ended.Store(false)
		d.begun.Store(true)
	}
}

// End finishes a continuous conversation. Callers stopping the recognizer on
// the user's behalf call End first so the stop is not taken for the end of
// an utterance.
func (d *Driver) End() {
	d.begun.Store(false)
	d.ended.Store(true)
}

// Run follows the session until ctx is done or the session closes.
func (d *Driver) Run(ctx context.Context) {
	if !d.opts.Enabled() {
		return
	}
	for st := range d.s.State().Subscribe(ctx) {
		d.step(ctx, st)
	}
}

func (d *Driver) step(ctx context.Context, st session.State) {
	prev := d.prev
	d.prev = st
	if !d.started {
		d.started = true
		return
	}

	if d.ended.Swap(false) && d.stage != idle {
		d.finish("ended by user")
		return
	}
	if d.begun.Swap(false) {
		d.stage = listening
		d.heard = false
		d.misses = 0
		d.log.Infof("Conversation: started")
	}

	switch d.stage {
	case idle:
		if d.opts.AutoSpeak && newTranslation(prev, st) {
			if st.SourceText == d.suppress {
				d.suppress = ""
				return
			}
			d.s.SpeakTranslation()
		}

	case listening:
		if st.IsListening {
			d.heard = true
			return
		}
		if !d.heard {
			return
		}
		switch st.Phase.Kind {
		case session.Loading, session.Success:
			if d.isStopWord(st.SourceText) {
				if d.opts.AutoSpeak {
					d.suppress = st.SourceText
				}
				d.finish("stop word " + st.SourceText)
				return
			}
			d.stage = translating
			if st.Phase.Kind == session.Success {
				d.speak(ctx)
			}
		default:
			d.miss(ctx, st.Phase.Message)
		}

	case translating:
		switch st.Phase.Kind {
		case session.Success:
			d.speak(ctx)
		case session.Error:
			d.miss(ctx, st.Phase.Message)
		}

	case speaking:
		if !st.IsSpeaking {
			d.listen(ctx)
		}
	}
}

func (d *Driver) speak(ctx context.Context) {
	d.misses = 0
	d.s.SpeakTranslation()
	if err := d.s.Sync(ctx); err != nil {
		d.finish(err.Error())
		return
	}
	d.prev = d.s.State().Get()
	d.stage = speaking
}

func (d *Driver) listen(ctx context.Context) {
	d.s.StartListening()
	if err := d.s.Sync(ctx); err != nil {
		d.finish(err.Error())
		return
	}
	d.prev = d.s.State().Get()
	if !d.prev.IsListening {
		d.finish("no source language")
		return
	}
	d.stage = listening
	d.heard = true
}

func (d *Driver) miss(ctx context.Context, reason string) {
	d.misses++
	d.log.Debugf("Conversation: turn failed (%d/%d): %s", d.misses, d.opts.MaxMisses, reason)
	if d.misses >= d.opts.MaxMisses {
		d.finish("too many failed turns")
		return
	}
	d.listen(ctx)
}

func (d *Driver) finish(reason string) {
	d.log.Infof("Conversation: ended while %s (%s)", d.stage, reason)
	d.stage = idle
	d.misses = 0
}

func (d *Driver) isStopWord(text string) bool {
	said := d.normalize(text)
	if said == "" {
		return false
	}
	for _, w := range d.opts.StopWords {
		if d.normalize(w) == said {
			return true
		}
	}
	return false
}

func (d *Driver) normalize(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return d.fold.String(s)
}

// newTranslation reports whether st carries a translation prev did not.
func newTranslation(prev, st session.State) bool {
	if st.Phase.Kind != session.Success || st.TranslatedText == "" {
		return false
	}
	return prev.Phase.Kind != session.Success ||
		prev.TranslatedText != st.TranslatedText ||
		prev.SourceText != st.SourceText
}
