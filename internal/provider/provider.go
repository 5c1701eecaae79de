// Package provider describes the hosted speech and language services
// SpeakSwap can talk to.
package provider

import "sort"

// Capability is one kind of work a provider can do.
type Capability int

const (
	Transcription Capability = iota
	Chat
	Speech
)

func (c Capability) String() string {
	switch c {
	case Transcription:
		return "transcription"
	case Chat:
		return "chat"
	case Speech:
		return "speech"
	default:
		return "unknown"
	}
}

// Model is one model a provider offers for a capability.
type Model struct {
	ID   string
	Type Capability
}

// Provider defines a hosted service with an OpenAI-compatible API.
type Provider interface {
	Name() string
	// BaseURL is empty for the client library's default endpoint.
	BaseURL() string
	EnvVar() string
	ValidateAPIKey(key string) bool
	Models() []Model
	DefaultModel(c Capability) string
}

var registry = make(map[string]Provider)

func init() {
	Register(&OpenAIProvider{})
	Register(&GroqProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns registered provider names, sorted.
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether the named provider offers c.
func Supports(name string, c Capability) bool {
	p := GetProvider(name)
	return p != nil && p.DefaultModel(c) != ""
}

// ListProvidersWith returns the sorted names of providers offering c.
func ListProvidersWith(c Capability) []string {
	var names []string
	for _, name := range ListProviders() {
		if Supports(name, c) {
			names = append(names, name)
		}
	}
	return names
}

// ModelsOfType filters the provider's models to one capability.
func ModelsOfType(p Provider, c Capability) []Model {
	var out []Model
	for _, m := range p.Models() {
		if m.Type == c {
			out = append(out, m)
		}
	}
	return out
}

// EnvVarForProvider returns the environment variable holding the API key
// for the named provider, or "" if it is unknown.
func EnvVarForProvider(name string) string {
	if p := GetProvider(name); p != nil {
		return p.EnvVar()
	}
	return ""
}
