package config

import "time"

type Config struct {
	General       GeneralConfig             `toml:"general"`
	Recording     RecordingConfig           `toml:"recording"`
	Recognition   RecognitionConfig         `toml:"recognition"`
	Translation   TranslationConfig         `toml:"translation"`
	Synthesis     SynthesisConfig           `toml:"synthesis"`
	Output        OutputConfig              `toml:"output"`
	Conversation  ConversationConfig        `toml:"conversation"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

type GeneralConfig struct {
	// Locale overrides the environment's language (LC_ALL, LANG) when
	// picking the default source language.
	Locale   string `toml:"locale"`
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
}

// ProviderConfig holds the API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	SampleRate        int           `toml:"sample_rate"`
	Channels          int           `toml:"channels"`
	Format            string        `toml:"format"`
	BufferSize        int           `toml:"buffer_size"`
	Device            string        `toml:"device"`
	ChannelBufferSize int           `toml:"channel_buffer_size"`
	MaxDuration       time.Duration `toml:"max_duration"`
	SpeechTimeout     time.Duration `toml:"speech_timeout"`
	EndSilence        time.Duration `toml:"end_silence"`
	VoiceThreshold    float64       `toml:"voice_threshold"`
}

type RecognitionConfig struct {
	Provider string        `toml:"provider"` // "openai", "groq"
	Model    string        `toml:"model"`
	Timeout  time.Duration `toml:"timeout"`
}

type TranslationConfig struct {
	Provider string        `toml:"provider"` // "openai", "groq"
	Model    string        `toml:"model"`
	Timeout  time.Duration `toml:"timeout"`
}

type SynthesisConfig struct {
	Provider string        `toml:"provider"` // "openai"
	Model    string        `toml:"model"`
	Voice    string        `toml:"voice"`
	Speed    float64       `toml:"speed"`
	Player   string        `toml:"player"`
	Timeout  time.Duration `toml:"timeout"`
}

// OutputConfig controls how "copy" hands the translation to the desktop.
type OutputConfig struct {
	Mode    string        `toml:"mode"` // "clipboard", "type", "fallback"
	Timeout time.Duration `toml:"timeout"`
}

// ConversationConfig controls hands-free use of the daemon.
type ConversationConfig struct {
	// Continuous keeps listening after each spoken translation until a
	// stop word is heard.
	Continuous bool     `toml:"continuous"`
	AutoSpeak  bool     `toml:"auto_speak"`
	StopWords  []string `toml:"stop_words"`
	MaxMisses  int      `toml:"max_misses"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}
