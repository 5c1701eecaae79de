package provider

import "strings"

// OpenAIProvider covers all three capabilities.
type OpenAIProvider struct{}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) BaseURL() string {
	return ""
}

func (p *OpenAIProvider) EnvVar() string {
	return EnvOpenAIKey
}

func (p *OpenAIProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

func (p *OpenAIProvider) Models() []Model {
	return []Model{
		{ID: "whisper-1", Type: Transcription},
		{ID: "gpt-4o-transcribe", Type: Transcription},
		{ID: "gpt-4o-mini-transcribe", Type: Transcription},
		{ID: "gpt-4o-mini", Type: Chat},
		{ID: "gpt-4o", Type: Chat},
		{ID: "gpt-4.1-mini", Type: Chat},
		{ID: "tts-1", Type: Speech},
		{ID: "tts-1-hd", Type: Speech},
		{ID: "gpt-4o-mini-tts", Type: Speech},
	}
}

func (p *OpenAIProvider) DefaultModel(c Capability) string {
	switch c {
	case Transcription:
		return "whisper-1"
	case Chat:
		return "gpt-4o-mini"
	case Speech:
		return "tts-1"
	}
	return ""
}
