// Package injection hands a finished translation to the desktop, either on
// the Wayland clipboard or typed into the focused window.
package injection

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	ModeClipboard = "clipboard"
	ModeType      = "type"
	// ModeFallback copies to the clipboard and then tries to type.
	ModeFallback = "fallback"
)

var ErrEmpty = errors.New("cannot inject empty text")

// Injector interface for text injection
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Config for text injection
type Config struct {
	Mode    string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:    ModeClipboard,
		Timeout: 3 * time.Second,
	}
}

// runner runs name with args, feeding stdin when it is not empty.
type runner func(ctx context.Context, stdin, name string, args ...string) error

type injector struct {
	config Config
	run    runner
}

func NewInjector(config Config) Injector {
	return &injector{config: config, run: runCommand}
}

func (i *injector) Inject(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}

	switch i.config.Mode {
	case ModeClipboard:
		return i.copy(ctx, text)
	case ModeType:
		return i.typeText(ctx, text)
	case ModeFallback:
		if err := i.copy(ctx, text); err != nil {
			return err
		}
		// the text is on the clipboard even when typing fails
		_ = i.typeText(ctx, text)
		return nil
	default:
		return fmt.Errorf("unsupported injection mode: %s", i.config.Mode)
	}
}

func (i *injector) copy(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, i.config.Timeout)
	defer cancel()
	if err := i.run(ctx, text, "wl-copy"); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}

func (i *injector) typeText(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, i.config.Timeout)
	defer cancel()
	if err := i.run(ctx, "", "wtype", "--", text); err != nil {
		return fmt.Errorf("wtype failed: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, stdin, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found: %w", name, err)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	return cmd.Run()
}
