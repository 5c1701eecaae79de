// Package deps reports on the external programs SpeakSwap shells out to.
package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Purpose   string
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program and the flag that prints its version.
type Tool struct {
	Name        string
	Purpose     string
	VersionFlag string
}

// Tools returns the programs SpeakSwap runs for the configured playback
// command and output mode.
func Tools(player, outputMode string) []Tool {
	if player == "" {
		player = "pw-play"
	}
	tools := []Tool{
		{Name: "pw-record", Purpose: "microphone capture", VersionFlag: "--version"},
		{Name: "pw-cli", Purpose: "PipeWire availability check", VersionFlag: "--version"},
		{Name: player, Purpose: "speech playback", VersionFlag: "--version"},
		{Name: "notify-send", Purpose: "desktop notifications", VersionFlag: "--version"},
	}
	if outputMode != "type" {
		tools = append(tools, Tool{Name: "wl-copy", Purpose: "copying translations", VersionFlag: "--version"})
	}
	if outputMode == "type" || outputMode == "fallback" {
		tools = append(tools, Tool{Name: "wtype", Purpose: "typing translations"})
	}
	return tools
}

// Check looks tool up on PATH and asks it for its version.
func Check(ctx context.Context, tool Tool) Status {
	status := Status{Name: tool.Name, Purpose: tool.Purpose}

	path, err := exec.LookPath(tool.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if tool.VersionFlag == "" {
		return status
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// parse first non-empty line as version
	output, err := exec.CommandContext(ctx, path, tool.VersionFlag).Output()
	if err == nil {
		for _, line := range strings.Split(string(output), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				status.Version = line
				break
			}
		}
	}

	return status
}

// CheckAll checks every tool in order.
func CheckAll(ctx context.Context, tools []Tool) []Status {
	out := make([]Status, len(tools))
	for i, tool := range tools {
		out[i] = Check(ctx, tool)
	}
	return out
}
