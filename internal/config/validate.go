package config

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/speakswap/internal/injection"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/logging"
	"github.com/leonardotrapani/speakswap/internal/provider"
)

func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.General.LogLevel); err != nil {
		return fmt.Errorf("invalid general.log_level: %q", c.General.LogLevel)
	}
	if c.General.Locale != "" && language.ParseLocale(c.General.Locale) == "" {
		return fmt.Errorf("invalid general.locale: %q", c.General.Locale)
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format != "s16" {
		return fmt.Errorf("invalid recording.format: %q (only s16 is supported)", c.Recording.Format)
	}
	if c.Recording.MaxDuration <= 0 {
		return fmt.Errorf("invalid recording.max_duration: %v", c.Recording.MaxDuration)
	}
	if c.Recording.SpeechTimeout < 0 {
		return fmt.Errorf("invalid recording.speech_timeout: %v", c.Recording.SpeechTimeout)
	}
	if c.Recording.EndSilence < 0 {
		return fmt.Errorf("invalid recording.end_silence: %v", c.Recording.EndSilence)
	}
	if c.Recording.VoiceThreshold < 0 || c.Recording.VoiceThreshold >= 1 {
		return fmt.Errorf("invalid recording.voice_threshold: %v (must be in [0, 1))", c.Recording.VoiceThreshold)
	}

	if err := checkProvider("recognition.provider", c.Recognition.Provider, provider.Transcription); err != nil {
		return err
	}
	if c.Recognition.Timeout <= 0 {
		return fmt.Errorf("invalid recognition.timeout: %v", c.Recognition.Timeout)
	}

	if err := checkProvider("translation.provider", c.Translation.Provider, provider.Chat); err != nil {
		return err
	}
	if c.Translation.Timeout <= 0 {
		return fmt.Errorf("invalid translation.timeout: %v", c.Translation.Timeout)
	}

	if err := checkProvider("synthesis.provider", c.Synthesis.Provider, provider.Speech); err != nil {
		return err
	}
	if c.Synthesis.Speed < 0.25 || c.Synthesis.Speed > 4.0 {
		return fmt.Errorf("invalid synthesis.speed: %v (must be between 0.25 and 4.0)", c.Synthesis.Speed)
	}
	if c.Synthesis.Player == "" {
		return fmt.Errorf("invalid synthesis.player: empty")
	}
	if c.Synthesis.Timeout <= 0 {
		return fmt.Errorf("invalid synthesis.timeout: %v", c.Synthesis.Timeout)
	}

	switch c.Output.Mode {
	case injection.ModeClipboard, injection.ModeType, injection.ModeFallback:
	default:
		return fmt.Errorf("invalid output.mode: %q (must be clipboard, type or fallback)", c.Output.Mode)
	}
	if c.Output.Timeout <= 0 {
		return fmt.Errorf("invalid output.timeout: %v", c.Output.Timeout)
	}

	if c.Conversation.MaxMisses < 1 {
		return fmt.Errorf("invalid conversation.max_misses: %d", c.Conversation.MaxMisses)
	}
	for _, w := range c.Conversation.StopWords {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("invalid conversation.stop_words: blank entry")
		}
	}

	if c.Notifications.Enabled {
		switch c.Notifications.Type {
		case "desktop", "log", "none":
		default:
			return fmt.Errorf("invalid notifications.type: %q (must be desktop, log or none)", c.Notifications.Type)
		}
	}

	return nil
}

func checkProvider(field, name string, c provider.Capability) error {
	if provider.Supports(name, c) {
		return nil
	}
	return fmt.Errorf("invalid %s: %q (must be %s)", field, name, strings.Join(provider.ListProvidersWith(c), " or "))
}
