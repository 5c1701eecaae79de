package session

import "github.com/leonardotrapani/speakswap/internal/language"

type PhaseKind int

const (
	Initial PhaseKind = iota
	Loading
	Success
	Error
)

func (k PhaseKind) String() string {
	switch k {
	case Initial:
		return "initial"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Phase is the translation status. Message is only set for Error.
type Phase struct {
	Kind    PhaseKind
	Message string
}

func errorPhase(msg string) Phase {
	return Phase{Kind: Error, Message: msg}
}

// State is a snapshot of everything the session exposes. Language pointers
// are nil while unselected and are never mutated after publication.
type State struct {
	SourceLanguage *language.Language
	TargetLanguage *language.Language
	SourceText     string
	TranslatedText string
	Phase          Phase
	IsListening    bool
	IsSpeaking     bool
}

func sameLanguage(a, b *language.Language) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ref(l language.Language) *language.Language {
	return &l
}
