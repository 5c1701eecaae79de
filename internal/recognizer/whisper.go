package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/recording"
)

const eventBuffer = 32

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxDuration time.Duration
	// SpeechTimeout ends a capture in which no voiced frame arrived within
	// this long of Ready. Zero waits until Stop or MaxDuration.
	SpeechTimeout time.Duration
	// EndSilence ends a capture once this much audio without speech follows
	// the last voiced frame. Zero waits until Stop or MaxDuration.
	EndSilence time.Duration
	// VoiceThreshold is the frame RMS that counts as speech. Zero uses
	// recording.DefaultVoiceThreshold.
	VoiceThreshold float64
	SampleRate     int
	Channels       int
}

// Transcriber sends a finished WAV recording for transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, languageCode string) (string, error)
}

type openAITranscriber struct {
	client *openai.Client
	model  string
}

func (t *openAITranscriber) Transcribe(ctx context.Context, wav []byte, languageCode string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(wav),
		FilePath: "audio.wav",
		Language: languageCode,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Whisper records one utterance per Start/Stop pair and transcribes it with
// the OpenAI-compatible transcription endpoint.
type Whisper struct {
	config      Config
	source      recording.Source
	transcriber Transcriber
	log         *zap.SugaredLogger

	events chan Event

	mu       sync.Mutex
	busy     bool
	released bool
	closed   bool
	stop     chan struct{}
	stopping bool
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// NewWhisper builds a recognizer over source. Without an API key every Start
// fails with PermissionsMissing.
func NewWhisper(config Config, source recording.Source, logger *zap.Logger) *Whisper {
	var t Transcriber
	if config.APIKey != "" {
		clientConfig := openai.DefaultConfig(config.APIKey)
		if config.BaseURL != "" {
			clientConfig.BaseURL = config.BaseURL
		}
		t = &openAITranscriber{client: openai.NewClientWithConfig(clientConfig), model: config.Model}
	}
	return newWhisper(config, source, t, logger)
}

func newWhisper(config Config, source recording.Source, t Transcriber, logger *zap.Logger) *Whisper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if config.Channels == 0 {
		config.Channels = 1
	}
	return &Whisper{
		config:      config,
		source:      source,
		transcriber: t,
		log:         logger.Named("recognizer").Sugar(),
		events:      make(chan Event, eventBuffer),
	}
}

func (w *Whisper) Events() <-chan Event {
	return w.events
}

func (w *Whisper) Start(languageCode string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.released {
		return
	}
	if w.busy {
		w.emitLocked(Event{State: Failed, Err: newError(Busy, nil)})
		return
	}
	if w.transcriber == nil {
		w.emitLocked(Event{State: Failed, Err: newError(PermissionsMissing, errors.New("no API key configured"))})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.busy = true
	w.stop = make(chan struct{})
	w.stopping = false
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(ctx, languageCode, w.stop)
}

func (w *Whisper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requestStopLocked()
}

func (w *Whisper) Release() {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return
	}
	w.released = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	w.emitLocked(Event{State: Idle})
	w.closed = true
	close(w.events)
	w.mu.Unlock()
}

// run captures and transcribes one utterance. The final event is emitted
// only after the recognizer is free again, so a listener may Start from its
// handler.
func (w *Whisper) run(ctx context.Context, languageCode string, stop <-chan struct{}) {
	final, ok := w.utterance(ctx, languageCode, stop)

	w.mu.Lock()
	w.busy = false
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if ok {
		w.emitLocked(final)
	}
	w.mu.Unlock()
	w.wg.Done()
}

// utterance returns the terminal event, or false when the capture was
// abandoned by Release.
func (w *Whisper) utterance(ctx context.Context, languageCode string, stop <-chan struct{}) (Event, bool) {
	frames, errs, err := w.source.Start(ctx)
	if err != nil {
		return w.failure(Audio, err), true
	}
	w.emit(Event{State: Ready})
	w.log.Infof("Recognizer: listening (%s)", languageCode)

	var maxTimer, silenceTimer <-chan time.Time
	if w.config.MaxDuration > 0 {
		timer := time.NewTimer(w.config.MaxDuration)
		defer timer.Stop()
		maxTimer = timer.C
	}
	if w.config.SpeechTimeout > 0 {
		timer := time.NewTimer(w.config.SpeechTimeout)
		defer timer.Stop()
		silenceTimer = timer.C
	}

	var pcm []byte
	var trailing time.Duration
	heard, ending := false, false
	for frames != nil {
		select {
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			pcm = append(pcm, frame.Data...)

			voiced := frame.Level.Voiced(w.config.VoiceThreshold)
			switch {
			case voiced && !heard:
				heard = true
				silenceTimer = nil
				w.emit(Event{State: Speaking})
			case voiced:
				trailing = 0
			case heard && !ending:
				trailing += w.audioDuration(len(frame.Data))
				if w.config.EndSilence > 0 && trailing >= w.config.EndSilence {
					w.log.Debugf("Recognizer: %v of silence, end of utterance", trailing)
					ending = true
					_ = w.source.Stop()
				}
			}
		case captureErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			_ = w.source.Stop()
			return w.failure(Audio, captureErr), true
		case <-stop:
			stop = nil
			_ = w.source.Stop()
		case <-maxTimer:
			w.log.Infof("Recognizer: max duration %v reached, stopping", w.config.MaxDuration)
			maxTimer = nil
			_ = w.source.Stop()
		case <-silenceTimer:
			w.log.Infof("Recognizer: no speech after %v, stopping", w.config.SpeechTimeout)
			silenceTimer = nil
			_ = w.source.Stop()
		case <-ctx.Done():
			_ = w.source.Stop()
			return Event{}, false
		}
	}

	if ctx.Err() != nil {
		return Event{}, false
	}
	if errs != nil {
		select {
		case captureErr, ok := <-errs:
			if ok && captureErr != nil {
				return w.failure(Audio, captureErr), true
			}
		default:
		}
	}
	if !heard {
		return w.failure(SpeechTimeout, nil), true
	}

	w.emit(Event{State: Processing})

	tctx := ctx
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := w.transcriber.Transcribe(tctx, encodeWAV(pcm, w.config.SampleRate, w.config.Channels), languageCode)
	if ctx.Err() != nil {
		return Event{}, false
	}
	if err != nil {
		return w.failure(classify(err), fmt.Errorf("transcribe: %w", err)), true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return w.failure(NoMatch, nil), true
	}
	w.log.Infof("Recognizer: transcribed %d bytes in %v", len(pcm), time.Since(start))
	return Event{State: Result, Text: text}, true
}

// audioDuration is the playing time of n bytes of 16-bit PCM.
func (w *Whisper) audioDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(w.config.SampleRate*w.config.Channels*2)
}

func (w *Whisper) requestStopLocked() {
	if !w.busy || w.stopping {
		return
	}
	w.stopping = true
	close(w.stop)
}

func (w *Whisper) failure(reason Reason, cause error) Event {
	if cause != nil {
		w.log.Warnf("Recognizer: %s: %v", reason.Message(), cause)
	}
	return Event{State: Failed, Err: newError(reason, cause)}
}

func (w *Whisper) emit(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emitLocked(ev)
}

func (w *Whisper) emitLocked(ev Event) {
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
		w.log.Warnf("Recognizer: event buffer full, dropping %s", ev.State)
	}
}
