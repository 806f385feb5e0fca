package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"livecap/internal/audio"
	"livecap/internal/easystart"
	"livecap/internal/envcheck"
	"livecap/internal/pactl"
)

func newEasyStartCommand(ctx *commandContext) *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "easy-start",
		Short: "Check the environment and optionally launch transcription with minimal prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.ensureLogger()

			host, err := audio.NewPortAudioHost()
			if err != nil {
				return err
			}
			defer host.Close()

			out := cmd.OutOrStdout()

			var pulse easystart.PulseControl
			if runtime.GOOS == "linux" {
				pulse = pactl.New(log)
			}

			scriptPath, scriptArgv, hasScript := audio.SetupScript(runtime.GOOS)
			hasScript = hasScript && audio.ScriptExists(scriptPath)

			orchestrator := &easystart.Orchestrator{
				Check: func(runCtx context.Context) bool {
					results := envcheck.RunAll(runCtx, cfg, host, runtime.GOOS)
					renderCheckResults(out, results)
					return envcheck.Ready(results)
				},
				Diagnose: func(runCtx context.Context) error {
					report, err := audio.Collect(runCtx, host, cfg.Audio, runtime.GOOS)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, audio.Render(report))
					return nil
				},
				Pulse:     pulse,
				RunScript: audio.RunScript,
				RunPipeline: func(runCtx context.Context) error {
					return runPipeline(runCtx, cfg, log)
				},
				Prompt:     stdinPrompt(cmd.InOrStdin(), out),
				Out:        out,
				Log:        log,
				GOOS:       runtime.GOOS,
				ScriptPath: scriptPath,
				ScriptArgv: scriptArgv,
				HasScript:  hasScript,
			}

			if !orchestrator.Run(cmd.Context(), !nonInteractive) {
				return errors.New("environment not ready")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Verify and restore only; never prompt or launch")
	return cmd
}

func stdinPrompt(in io.Reader, out io.Writer) func(string, bool) bool {
	reader := bufio.NewReader(in)
	return func(message string, defaultYes bool) bool {
		suffix := " [y/N]: "
		if defaultYes {
			suffix = " [Y/n]: "
		}
		fmt.Fprint(out, message+suffix)

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" {
			return defaultYes
		}
		return answer == "y" || answer == "yes"
	}
}
