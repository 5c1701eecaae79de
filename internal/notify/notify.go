// Package notify tells the user about session outcomes outside the terminal.
package notify

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

type Notifier interface {
	Translated(source, translated string)
	Error(msg string)
	ListeningChanged(on bool)
}

// New returns the notifier for a notifications.type value. Unknown types
// and "none" get Nop.
func New(kind string, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch kind {
	case "desktop":
		return NewDesktop(logger)
	case "log":
		return Log{L: logger.Named("notify").Sugar()}
	default:
		return Nop{}
	}
}

// Desktop sends notifications through notify-send.
type Desktop struct {
	log *zap.SugaredLogger
	run func(args ...string) error
}

func NewDesktop(logger *zap.Logger) *Desktop {
	return &Desktop{
		log: logger.Named("notify").Sugar(),
		run: func(args ...string) error {
			return exec.Command("notify-send", args...).Run()
		},
	}
}

func (d *Desktop) Translated(source, translated string) {
	d.send("-a", "SpeakSwap", "SpeakSwap: "+source, translated)
}

func (d *Desktop) Error(msg string) {
	d.send("-a", "SpeakSwap", "-u", "critical", "SpeakSwap", msg)
}

func (d *Desktop) ListeningChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	d.send("-a", "SpeakSwap", fmt.Sprintf("SpeakSwap: %s Listening", state))
}

func (d *Desktop) send(args ...string) {
	if err := d.run(args...); err != nil {
		d.log.Warnf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the logger.
type Log struct {
	L *zap.SugaredLogger
}

func (l Log) Translated(source, translated string) {
	l.L.Infof("Notification: %q -> %q", source, translated)
}

func (l Log) Error(msg string) {
	l.L.Errorf("Notification: %s", msg)
}

func (l Log) ListeningChanged(on bool) {
	if on {
		l.L.Info("Notification: listening started")
		return
	}
	l.L.Info("Notification: listening stopped")
}

// Nop is a Notifier that does nothing.
type Nop struct{}

func (Nop) Translated(source, translated string) {}
func (Nop) Error(msg string)                     {}
func (Nop) ListeningChanged(on bool)             {}
