package provider

// Provider names as used in the config file.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

// Environment variable names for API keys
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvGroqKey   = "GROQ_API_KEY"
)

const groqBaseURL = "https://api.groq.com/openai/v1"
