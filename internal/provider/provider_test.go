package provider

import (
	"slices"
	"testing"
)

func TestProviderInterface(t *testing.T) {
	providers := []struct {
		name       string
		baseURL    string
		envVar     string
		transcribe string
		chat       string
		speech     string
		validKey   string
		invalidKey string
	}{
		{"openai", "", "OPENAI_API_KEY", "whisper-1", "gpt-4o-mini", "tts-1", "sk-abc", "gsk_abc"},
		{"groq", groqBaseURL, "GROQ_API_KEY", "whisper-large-v3-turbo", "llama-3.3-70b-versatile", "", "gsk_abc", "sk-abc"},
	}

	for _, tc := range providers {
		t.Run(tc.name, func(t *testing.T) {
			p := GetProvider(tc.name)
			if p == nil {
				t.Fatalf("GetProvider(%q) returned nil", tc.name)
			}
			if p.Name() != tc.name {
				t.Errorf("Name() = %q, want %q", p.Name(), tc.name)
			}
			if p.BaseURL() != tc.baseURL {
				t.Errorf("BaseURL() = %q, want %q", p.BaseURL(), tc.baseURL)
			}
			if p.EnvVar() != tc.envVar {
				t.Errorf("EnvVar() = %q, want %q", p.EnvVar(), tc.envVar)
			}

			for c, want := range map[Capability]string{Transcription: tc.transcribe, Chat: tc.chat, Speech: tc.speech} {
				if got := p.DefaultModel(c); got != want {
					t.Errorf("DefaultModel(%s) = %q, want %q", c, got, want)
				}
				if want == "" {
					continue
				}
				ids := []string{}
				for _, m := range ModelsOfType(p, c) {
					ids = append(ids, m.ID)
				}
				if !slices.Contains(ids, want) {
					t.Errorf("default %s model %q missing from %v", c, want, ids)
				}
			}

			if !p.ValidateAPIKey(tc.validKey) {
				t.Errorf("ValidateAPIKey(%q) = false", tc.validKey)
			}
			if p.ValidateAPIKey(tc.invalidKey) {
				t.Errorf("ValidateAPIKey(%q) = true", tc.invalidKey)
			}
		})
	}
}

func TestGetProviderNotFound(t *testing.T) {
	if p := GetProvider("nonexistent"); p != nil {
		t.Errorf("GetProvider(nonexistent) should return nil, got %v", p)
	}
	if got := EnvVarForProvider("nonexistent"); got != "" {
		t.Errorf("EnvVarForProvider(nonexistent) = %q", got)
	}
}

func TestListProviders(t *testing.T) {
	if got, want := ListProviders(), []string{"groq", "openai"}; !slices.Equal(got, want) {
		t.Errorf("ListProviders() = %v, want %v", got, want)
	}
}

func TestListProvidersWith(t *testing.T) {
	tests := []struct {
		c    Capability
		want []string
	}{
		{Transcription, []string{"groq", "openai"}},
		{Chat, []string{"groq", "openai"}},
		{Speech, []string{"openai"}},
	}
	for _, tt := range tests {
		if got := ListProvidersWith(tt.c); !slices.Equal(got, tt.want) {
			t.Errorf("ListProvidersWith(%s) = %v, want %v", tt.c, got, tt.want)
		}
	}
	if Supports("groq", Speech) {
		t.Error("groq should not support speech")
	}
}
