package main

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/config"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write a config file interactively",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.DefaultConfigPath()
			if p := ctx.configPath(); p != "" {
				dir = filepath.Dir(p)
			}
			return runSetupFlow(cmd.InOrStdin(), cmd.OutOrStdout(), dir)
		},
	}
}

// runSetupFlow asks for the worker command and profile, then saves the config
func runSetupFlow(in io.Reader, out io.Writer, dir string) error {
	cfg := config.DefaultConfig()
	reader := bufio.NewReader(in)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Welcome to crate!")
	fmt.Fprintln(out)

	// Loop until the worker command resolves on PATH
	for {
		input, err := prompt(reader, out, "Download worker command (e.g. crate-worker --json): ")
		if err != nil {
			return err
		}
		fields := strings.Fields(input)
		if len(fields) == 0 {
			fmt.Fprintln(out, "Worker command cannot be empty. Please try again.")
			continue
		}
		resolved, err := exec.LookPath(fields[0])
		if err != nil {
			fmt.Fprintf(out, "✗ %s not found: %v\n", fields[0], err)
			continue
		}
		fmt.Fprintf(out, "✓ Found: %s\n", resolved)
		cfg.Worker.Command = fields[0]
		cfg.Worker.Args = fields[1:]
		break
	}

	profile, err := prompt(reader, out, fmt.Sprintf("Profile [%s]: ", cfg.Library.Profile))
	if err != nil {
		return err
	}
	if profile != "" {
		cfg.Library.Profile = profile
	}

	path, err := config.SaveConfig(cfg, dir)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Configuration saved to %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run `crate run` to start the application.")
	return nil
}

func prompt(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	input, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}
