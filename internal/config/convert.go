package config

import (
	"os"

	"github.com/leonardotrapani/speakswap/internal/conversation"
	"github.com/leonardotrapani/speakswap/internal/injection"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/provider"
	"github.com/leonardotrapani/speakswap/internal/recognizer"
	"github.com/leonardotrapani/speakswap/internal/recording"
	"github.com/leonardotrapani/speakswap/internal/store"
	"github.com/leonardotrapani/speakswap/internal/synthesizer"
	"github.com/leonardotrapani/speakswap/internal/translator"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		Format:            c.Recording.Format,
		BufferSize:        c.Recording.BufferSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
	}
}

func (c *Config) ToRecognizerConfig() recognizer.Config {
	config := recognizer.Config{
		APIKey:         c.APIKey(c.Recognition.Provider),
		Model:          c.Recognition.Model,
		Timeout:        c.Recognition.Timeout,
		MaxDuration:    c.Recording.MaxDuration,
		SpeechTimeout:  c.Recording.SpeechTimeout,
		EndSilence:     c.Recording.EndSilence,
		VoiceThreshold: c.Recording.VoiceThreshold,
		SampleRate:     c.Recording.SampleRate,
		Channels:       c.Recording.Channels,
	}
	if p := provider.GetProvider(c.Recognition.Provider); p != nil {
		config.BaseURL = p.BaseURL()
	}
	return config
}

func (c *Config) ToTranslatorConfig() translator.Config {
	return translator.Config{
		Provider: c.Translation.Provider,
		APIKey:   c.APIKey(c.Translation.Provider),
		Model:    c.Translation.Model,
		Timeout:  c.Translation.Timeout,
	}
}

func (c *Config) ToSynthesizerConfig() synthesizer.Config {
	return synthesizer.Config{
		APIKey:  c.APIKey(c.Synthesis.Provider),
		Model:   c.Synthesis.Model,
		Voice:   c.Synthesis.Voice,
		Speed:   c.Synthesis.Speed,
		Player:  c.Synthesis.Player,
		Timeout: c.Synthesis.Timeout,
	}
}

func (c *Config) ToConversationOptions() conversation.Options {
	return conversation.Options{
		Continuous: c.Conversation.Continuous,
		AutoSpeak:  c.Conversation.AutoSpeak,
		StopWords:  c.Conversation.StopWords,
		MaxMisses:  c.Conversation.MaxMisses,
	}
}

func (c *Config) ToInjectionConfig() injection.Config {
	return injection.Config{
		Mode:    c.Output.Mode,
		Timeout: c.Output.Timeout,
	}
}

// ToStoreOptions returns the database location. A Logger is left to the
// caller.
func (c *Config) ToStoreOptions() (store.Options, error) {
	dir := c.General.DataDir
	if dir == "" {
		var err error
		if dir, err = store.DefaultDir(); err != nil {
			return store.Options{}, err
		}
	}
	return store.Options{Dir: dir}, nil
}

// Locale returns the function a session uses to find the preferred
// language: general.locale when set, the environment otherwise.
func (c *Config) Locale() func() string {
	if c.General.Locale != "" {
		code := language.ParseLocale(c.General.Locale)
		return func() string { return code }
	}
	return language.Preferred
}

// APIKey returns the key for a provider from providers.<name>.api_key, then
// the provider's environment variable.
func (c *Config) APIKey(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	if envVar := provider.EnvVarForProvider(providerName); envVar != "" {
		return os.Getenv(envVar)
	}
	return ""
}
