package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/speakswap/internal/config"
	"github.com/leonardotrapani/speakswap/internal/deps"
	"github.com/leonardotrapani/speakswap/internal/provider"
	"github.com/leonardotrapani/speakswap/internal/tui"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, API keys and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			tui.Setup(cmd.OutOrStdout())
			out := cmd.OutOrStdout()

			path, _ := config.GetConfigPath()
			cfg, err := config.LoadFile(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				fmt.Fprintln(out, tui.StyleError.Render("✗ config: "+err.Error()))
				if cfg == nil {
					cfg = config.DefaultConfig()
				}
			} else {
				fmt.Fprintln(out, tui.StyleSuccess.Render("✓ config: "+path))
			}

			inUse := map[string]bool{
				cfg.Recognition.Provider: true,
				cfg.Translation.Provider: true,
				cfg.Synthesis.Provider:   true,
			}
			missing := 0
			for _, name := range provider.ListProviders() {
				switch {
				case cfg.APIKey(name) != "":
					fmt.Fprintln(out, tui.StyleSuccess.Render("✓ "+name+" API key"))
				case inUse[name]:
					missing++
					fmt.Fprintln(out, tui.StyleError.Render(fmt.Sprintf("✗ %s API key not set (%s)", name, provider.EnvVarForProvider(name))))
				default:
					fmt.Fprintln(out, tui.StyleMuted.Render(fmt.Sprintf("- %s API key not set (%s)", name, provider.EnvVarForProvider(name))))
				}
			}

			for _, s := range deps.CheckAll(cmd.Context(), deps.Tools(cfg.Synthesis.Player, cfg.Output.Mode)) {
				if !s.Installed {
					missing++
					fmt.Fprintln(out, tui.StyleWarning.Render(fmt.Sprintf("✗ %s not found (%s)", s.Name, s.Purpose)))
					continue
				}
				line := fmt.Sprintf("✓ %s %s", s.Name, s.Path)
				if s.Version != "" {
					line += tui.StyleMuted.Render(" " + s.Version)
				}
				fmt.Fprintln(out, tui.StyleSuccess.Render(line))
			}

			if err != nil || missing > 0 {
				return fmt.Errorf("%d problem(s) found", missing+boolToInt(err != nil))
			}
			return nil
		},
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
