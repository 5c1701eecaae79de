package synthesizer

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/language"
)

const eventBuffer = 32

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Speed   float64
	Player  string
	Timeout time.Duration
}

// Voice renders text to a WAV stream.
type Voice interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// Player plays an audio stream to completion or until ctx ends.
type Player interface {
	Play(ctx context.Context, audio io.Reader) error
}

type openAIVoice struct {
	client *openai.Client
	model  string
	voice  string
	speed  float64
}

func (v *openAIVoice) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := v.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(v.model),
		Input:          text,
		Voice:          openai.SpeechVoice(v.voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          v.speed,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CommandPlayer pipes audio into an external player such as pw-play.
type CommandPlayer struct {
	Command string
	Args    []string
}

func (p *CommandPlayer) Play(ctx context.Context, audio io.Reader) error {
	cmd := exec.CommandContext(ctx, p.Command, append(p.Args, "-")...)
	cmd.Stdin = audio
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", p.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// OpenAI speaks through the OpenAI speech endpoint and a local player.
type OpenAI struct {
	voice   Voice
	player  Player
	timeout time.Duration
	log     *zap.SugaredLogger

	events chan Event

	mu       sync.Mutex
	ready    bool
	released bool
	closed   bool
	cancel   context.CancelFunc
	gen      uint64

	wg sync.WaitGroup
}

// NewOpenAI builds the synthesizer. It reports NotInitialized when the API
// key is missing or the player binary is not installed.
func NewOpenAI(cfg Config, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}

	var voice Voice
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		v := &openAIVoice{
			client: openai.NewClientWithConfig(clientConfig),
			model:  cfg.Model,
			voice:  cfg.Voice,
			speed:  cfg.Speed,
		}
		if v.model == "" {
			v.model = string(openai.TTSModel1)
		}
		if v.voice == "" {
			v.voice = string(openai.VoiceAlloy)
		}
		voice = v
	}

	var player Player
	playerCmd := cfg.Player
	if playerCmd == "" {
		playerCmd = "pw-play"
	}
	if _, err := exec.LookPath(playerCmd); err == nil {
		player = &CommandPlayer{Command: playerCmd}
	} else {
		logger.Sugar().Warnf("Synthesizer: player %s not found: %v", playerCmd, err)
	}

	return newOpenAI(voice, player, cfg.Timeout, logger)
}

func newOpenAI(voice Voice, player Player, timeout time.Duration, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OpenAI{
		voice:   voice,
		player:  player,
		timeout: timeout,
		log:     logger.Named("synthesizer").Sugar(),
		events:  make(chan Event, eventBuffer),
		ready:   voice != nil && player != nil,
	}
	if s.ready {
		s.emitLocked(Event{State: Ready})
	} else {
		s.emitLocked(Event{State: Failed, Err: &Error{Reason: NotInitialized}})
	}
	return s
}

func (s *OpenAI) Events() <-chan Event {
	return s.events
}

func (s *OpenAI) Speak(text, languageCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	if !s.ready {
		s.emitLocked(Event{State: Failed, Err: &Error{Reason: NotInitialized}})
		return
	}
	if !language.SpeechSupported(languageCode) {
		s.emitLocked(Event{State: Failed, Err: &Error{Reason: UnsupportedLanguage, Detail: languageCode}})
		return
	}

	s.stopLocked()
	if strings.TrimSpace(text) == "" {
		s.emitLocked(Event{State: Ready})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	s.wg.Add(1)
	go s.speak(ctx, s.gen, text)
}

func (s *OpenAI) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.stopLocked()
	s.emitLocked(Event{State: Ready})
}

func (s *OpenAI) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.stopLocked()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.emitLocked(Event{State: Idle})
	s.closed = true
	close(s.events)
	s.mu.Unlock()
}

func (s *OpenAI) speak(ctx context.Context, gen uint64, text string) {
	defer s.wg.Done()

	s.emit(gen, Event{State: Speaking})

	synthCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	audio, err := s.voice.Synthesize(synthCtx, text)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warnf("Synthesizer: synthesis failed: %v", err)
			s.emit(gen, Event{State: Failed, Err: &Error{Reason: Generic, Detail: err.Error()}})
		}
		return
	}
	defer audio.Close()

	start := time.Now()
	if err := s.player.Play(ctx, audio); err != nil {
		if ctx.Err() == nil {
			s.log.Warnf("Synthesizer: playback failed: %v", err)
			s.emit(gen, Event{State: Failed, Err: &Error{Reason: Generic, Detail: err.Error()}})
		}
		return
	}
	s.log.Debugf("Synthesizer: played %d chars in %v", len(text), time.Since(start))
	s.emit(gen, Event{State: Ready})
}

func (s *OpenAI) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// emit drops events from utterances that were replaced or stopped.
func (s *OpenAI) emit(gen uint64, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.cancel == nil {
		return
	}
	if ev.State != Speaking {
		s.cancel()
		s.cancel = nil
	}
	s.emitLocked(ev)
}

func (s *OpenAI) emitLocked(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.log.Warnf("Synthesizer: event buffer full, dropping %s", ev.State)
	}
}
