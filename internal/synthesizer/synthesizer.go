// Package synthesizer speaks text aloud and reports playback progress as a
// stream of events.
package synthesizer

import "fmt"

type State int

const (
	Idle State = iota
	Ready
	Speaking
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Speaking:
		return "speaking"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Reason int

const (
	Generic Reason = iota
	NotInitialized
	UnsupportedLanguage
)

// Error is a synthesis failure. Detail carries the language code for
// UnsupportedLanguage and the underlying message for Generic.
type Error struct {
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	switch e.Reason {
	case NotInitialized:
		return "speech engine not initialized"
	case UnsupportedLanguage:
		return fmt.Sprintf("language not supported: %s", e.Detail)
	default:
		if e.Detail == "" {
			return "speech synthesis failed"
		}
		return e.Detail
	}
}

type Event struct {
	State State
	Err   *Error
}

// Synthesizer is a text-to-speech engine. Speak and Stop return
// immediately; outcomes arrive on Events. A new Speak replaces any
// utterance still playing. Release closes the events channel.
type Synthesizer interface {
	Events() <-chan Event
	Speak(text, languageCode string)
	Stop()
	Release()
}
