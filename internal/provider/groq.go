package provider

import "strings"

// GroqProvider serves transcription and chat through an OpenAI-compatible
// endpoint. It has no speech synthesis.
type GroqProvider struct{}

func (p *GroqProvider) Name() string {
	return ProviderGroq
}

func (p *GroqProvider) BaseURL() string {
	return groqBaseURL
}

func (p *GroqProvider) EnvVar() string {
	return EnvGroqKey
}

func (p *GroqProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "gsk_")
}

func (p *GroqProvider) Models() []Model {
	return []Model{
		{ID: "whisper-large-v3", Type: Transcription},
		{ID: "whisper-large-v3-turbo", Type: Transcription},
		{ID: "llama-3.3-70b-versatile", Type: Chat},
		{ID: "llama-3.1-8b-instant", Type: Chat},
	}
}

func (p *GroqProvider) DefaultModel(c Capability) string {
	switch c {
	case Transcription:
		return "whisper-large-v3-turbo"
	case Chat:
		return "llama-3.3-70b-versatile"
	}
	return ""
}
