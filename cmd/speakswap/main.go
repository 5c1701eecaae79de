package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakswap/internal/bus"
	"github.com/leonardotrapani/speakswap/internal/config"
	"github.com/leonardotrapani/speakswap/internal/conversation"
	"github.com/leonardotrapani/speakswap/internal/daemon"
	"github.com/leonardotrapani/speakswap/internal/injection"
	"github.com/leonardotrapani/speakswap/internal/logging"
	"github.com/leonardotrapani/speakswap/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "speakswap",
	Short:        "Speak, translate and hear it back",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		sessionCmd(),
		toggleCmd(),
		speakCmd(),
		hushCmd(),
		translateCmd(),
		copyCmd(),
		languageCmd("source", bus.CmdSource),
		languageCmd("target", bus.CmdTarget),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		languagesCmd(),
		historyCmd(),
		doctorCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err := logging.New(cfg.General.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			mgr, err := config.NewManager(logger)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = mgr.GetConfig()

			a, err := openApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := daemon.New(cfg, a.newSession, logger)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}

			mgr.OnReload(d.Reload)
			if err := mgr.StartWatching(cmd.Context()); err != nil {
				logger.Sugar().Warnf("Config: watching disabled: %v", err)
			}
			defer mgr.Stop()

			return d.Run()
		},
	}
}

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Interactive translation session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			// the menu owns the terminal, so only errors reach stderr
			logger, err := logging.New("error")
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := openApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.newSession(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			// the menu waits on its own prompts, so only auto_speak applies here
			opts := cfg.ToConversationOptions()
			opts.Continuous = false
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go conversation.New(s, opts, logger).Run(ctx)

			return tui.Run(ctx, s, a.history, injection.NewInjector(cfg.ToInjectionConfig()))
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Start or stop listening",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdToggleListen, "", "failed to toggle listening")
		},
	}
}

func speakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speak",
		Short: "Speak the current translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdSpeak, "", "failed to speak")
		},
	}
}

func hushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hush",
		Short: "Stop speaking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdHush, "", "failed to stop speaking")
		},
	}
}

func translateCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "translate <text...>",
		Short: "Translate text with the running daemon and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			// the daemon acknowledges t once the session has applied it
			if err := sendQuiet(bus.CmdText, text); err != nil {
				return fmt.Errorf("failed to translate: %w", err)
			}
			st, err := awaitStatus(timeout, settled(text))
			if err != nil {
				return err
			}
			if st.Phase == "error" {
				return errors.New(st.Error)
			}
			fmt.Println(st.Translation)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the translation")
	return cmd
}

func copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy",
		Short: "Copy the current translation to the clipboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdCopy, "", "failed to copy translation")
		},
	}
}

func languageCmd(use string, c byte) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <code>",
		Short: "Set the " + use + " language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(c, args[0], "failed to set "+use+" language")
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdStatus, "", "failed to get status")
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdVersion, "", "failed to get version")
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdQuit, "", "failed to stop daemon")
		},
	}
}

func send(c byte, arg, failure string) error {
	resp, err := bus.SendCommand(c, arg)
	if err != nil {
		return fmt.Errorf("%s: %w", failure, err)
	}
	fmt.Print(resp)
	if strings.HasPrefix(resp, "ERR") {
		return errors.New(failure)
	}
	return nil
}

func sendQuiet(c byte, arg string) error {
	resp, err := bus.SendCommand(c, arg)
	if err != nil {
		return err
	}
	if msg, ok := strings.CutPrefix(strings.TrimSpace(resp), "ERR "); ok {
		return errors.New(msg)
	}
	return nil
}

// settled reports a status whose text is text and whose translation is no
// longer pending.
func settled(text string) func(daemon.Status) bool {
	return func(st daemon.Status) bool {
		return st.Text == text && st.Phase != "loading"
	}
}

// awaitStatus polls the daemon until done reports true for its status.
func awaitStatus(timeout time.Duration, done func(daemon.Status) bool) (daemon.Status, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		resp, err := bus.SendCommand(bus.CmdStatus, "")
		if err != nil {
			return daemon.Status{}, err
		}
		st, err := daemon.ParseStatus(resp)
		if err != nil {
			return daemon.Status{}, err
		}
		if done(st) {
			return st, nil
		}
		if time.Now().After(deadline) {
			return st, fmt.Errorf("timed out after %s (phase=%s)", timeout, st.Phase)
		}
		<-ticker.C
	}
}
