package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/config"
	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/logging"
	"github.com/leonardotrapani/speakswap/internal/observe"
	"github.com/leonardotrapani/speakswap/internal/tui"
)

// withApp opens the stores for a command that runs without the daemon.
// The database is exclusive, so these fail while the daemon is up.
func withApp(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err := logging.New(cfg.General.LogLevel)
		if err != nil {
			logger = zap.NewNop()
		}
		defer logger.Sync()

		a, err := openApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		tui.Setup(cmd.OutOrStdout())
		return fn(cmd.Context(), a)
	}
}

func languagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "Manage the language catalog",
	}

	var favorites bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List languages",
		RunE: withApp(func(ctx context.Context, a *app) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			listing := a.catalog.ListAll(ctx)
			if favorites {
				listing = a.catalog.ListFavorites(ctx)
			}
			fmt.Println(tui.RenderLanguages(<-listing))
			return nil
		}),
	}
	list.Flags().BoolVar(&favorites, "favorites", false, "Only favorite languages")

	cmd.AddCommand(
		list,
		toggleLanguageCmd("favorite", "Toggle a language's favorite flag", func(ctx context.Context, a *app, l language.Language) error {
			return a.catalog.ToggleFavorite(ctx, l)
		}),
		toggleLanguageCmd("install", "Toggle a language's installed flag", func(ctx context.Context, a *app, l language.Language) error {
			return a.catalog.ToggleInstalled(ctx, l)
		}),
	)
	return cmd
}

func toggleLanguageCmd(use, short string, toggle func(context.Context, *app, language.Language) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <code>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				l, ok, err := a.catalog.GetByCode(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("unknown language %q", args[0])
				}
				if err := toggle(ctx, a, l); err != nil {
					return err
				}
				l, _, err = a.catalog.GetByCode(ctx, l.Code)
				if err != nil {
					return err
				}
				fmt.Println(tui.RenderLanguages([]language.Language{l}))
				return nil
			})(cmd, args)
		},
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or edit translation history",
	}

	var source, target string
	list := &cobra.Command{
		Use:   "list",
		Short: "List past translations, newest first",
		RunE: withApp(func(ctx context.Context, a *app) error {
			entries := a.history.Entries()
			if source != "" || target != "" {
				entries = observe.Filter(entries, func(e history.Entry) bool {
					return (source == "" || e.SourceLanguage == source) &&
						(target == "" || e.TargetLanguage == target)
				})
			}
			fmt.Println(tui.RenderHistory(entries))
			return nil
		}),
	}
	list.Flags().StringVar(&source, "source", "", "Only entries from this language code")
	list.Flags().StringVar(&target, "target", "", "Only entries into this language code")

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.history.DeleteAll(ctx)
		}),
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				return a.history.Delete(ctx, args[0])
			})(cmd, args)
		},
	}

	cmd.AddCommand(list, clearAll, del)
	return cmd
}
