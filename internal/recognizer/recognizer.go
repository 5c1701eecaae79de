// Package recognizer turns microphone audio into text and reports progress
// as a stream of events.
package recognizer

type State int

const (
	Idle State = iota
	Ready
	Speaking
	Processing
	Partial
	Result
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
	case Processing:
		return "processing"
	case Partial:
		return "partial"
	case Result:
		return "result"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one recognizer state change. Text is set for Partial and Result,
// Err for Failed.
type Event struct {
	State State
	Text  string
	Err   *Error
}

// Recognizer is a speech-to-text engine. Start and Stop return immediately;
// outcomes arrive on Events. The events channel is closed by Release, after
// which the recognizer must not be used.
type Recognizer interface {
	Events() <-chan Event
	Start(languageCode string)
	Stop()
	Release()
}
