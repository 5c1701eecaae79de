package config

import (
	"time"

	"github.com/leonardotrapani/speakswap/internal/recording"
)

// DefaultConfig returns the configuration used when no file sets a value.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Recording: RecordingConfig{
			SampleRate:        16000,
			Channels:          1,
			Format:            "s16",
			BufferSize:        8192,
			Device:            "",
			ChannelBufferSize: 30,
			MaxDuration:       2 * time.Minute,
			SpeechTimeout:     8 * time.Second,
			EndSilence:        1500 * time.Millisecond,
			VoiceThreshold:    recording.DefaultVoiceThreshold,
		},
		Recognition: RecognitionConfig{
			Provider: "openai",
			Model:    "whisper-1",
			Timeout:  30 * time.Second,
		},
		Translation: TranslationConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  20 * time.Second,
		},
		Synthesis: SynthesisConfig{
			Provider: "openai",
			Model:    "tts-1",
			Voice:    "alloy",
			Speed:    1.0,
			Player:   "pw-play",
			Timeout:  30 * time.Second,
		},
		Output: OutputConfig{
			Mode:    "clipboard",
			Timeout: 3 * time.Second,
		},
		Conversation: ConversationConfig{
			StopWords: []string{"exit", "stop"},
			MaxMisses: 3,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
		Providers: make(map[string]ProviderConfig),
	}
}

const defaultConfigTemplate = `# SpeakSwap configuration
# Changes are picked up by a running daemon without a restart.

[general]
  locale = ""          # language used to pick the default source language, e.g. "es_ES"; empty = $LANG
  data_dir = ""        # where languages and history are stored; empty = ~/.local/share/speakswap/db
  log_level = "info"   # debug, info, warn, error

[recording]
  sample_rate = 16000
  channels = 1
  format = "s16"
  buffer_size = 8192
  device = ""                # pw-record --target; empty = default input
  channel_buffer_size = 30
  max_duration = "2m"        # listening stops on its own after this long
  speech_timeout = "8s"      # give up when nobody speaks this long; "0s" waits for stop
  end_silence = "1.5s"       # a pause this long ends the utterance; "0s" waits for stop
  voice_threshold = 0.01     # frame RMS (0-1) that counts as speech

[recognition]
  provider = "openai"        # "openai" or "groq"
  model = "whisper-1"        # groq: "whisper-large-v3-turbo"
  timeout = "30s"

[translation]
  provider = "openai"        # "openai" or "groq"
  model = "gpt-4o-mini"      # groq: "llama-3.3-70b-versatile"
  timeout = "20s"

[synthesis]
  provider = "openai"
  model = "tts-1"
  voice = "alloy"
  speed = 1.0
  player = "pw-play"
  timeout = "30s"

[output]
  mode = "clipboard"         # "clipboard" (wl-copy), "type" (wtype), "fallback" (both)
  timeout = "3s"

[conversation]
  continuous = false         # after speaking a translation, listen again
  auto_speak = false         # speak every translation as soon as it arrives
  stop_words = ["exit", "stop"]  # saying one of these ends a continuous conversation
  max_misses = 3             # end after this many failed turns in a row

[notifications]
  enabled = true
  type = "desktop"           # "desktop", "log", "none"

# API keys. OPENAI_API_KEY and GROQ_API_KEY are used when unset here.
# [providers.openai]
#   api_key = "sk-..."
# [providers.groq]
#   api_key = "gsk_..."
`
