package recognizer

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

type Reason int

const (
	Unknown Reason = iota
	Audio
	Client
	PermissionsMissing
	Network
	NetworkTimeout
	NoMatch
	Busy
	Server
	SpeechTimeout
)

var messages = map[Reason]string{
	Audio:              "audio recording error",
	Client:             "client side error",
	PermissionsMissing: "insufficient permissions",
	Network:            "network error",
	NetworkTimeout:     "network timeout",
	NoMatch:            "no recognition match",
	Busy:               "recognition service busy",
	Server:             "server error",
	SpeechTimeout:      "no speech input",
	Unknown:            "unknown error occurred",
}

// Message is the user-facing text for r.
func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return messages[Unknown]
}

// Error is a recognition failure. Cause, when set, is the underlying error
// and is only logged.
type Error struct {
	Reason Reason
	Cause  error
}

func (e *Error) Error() string {
	return e.Reason.Message()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(reason Reason, cause error) *Error {
	return &Error{Reason: reason, Cause: cause}
}

// classify maps a transcription request failure onto a Reason.
func classify(err error) Reason {
	if err == nil {
		return Unknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkTimeout
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status != 0 {
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return PermissionsMissing
		case status == http.StatusTooManyRequests:
			return Busy
		case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
			return NetworkTimeout
		case status >= 500:
			return Server
		case status >= 400:
			return Client
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NetworkTimeout
		}
		return Network
	}
	return Unknown
}
