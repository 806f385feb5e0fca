package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"livecap/internal/audio"
)

func newDiagnoseCommand(ctx *commandContext) *cobra.Command {
	var copyFlag bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run audio environment diagnostics and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			host, err := audio.NewPortAudioHost()
			if err != nil {
				return err
			}
			defer host.Close()

			report, err := audio.Collect(cmd.Context(), host, cfg.Audio, runtime.GOOS)
			if err != nil {
				if errors.Is(err, audio.ErrEnvironment) {
					return fmt.Errorf("audio environment error: %w", err)
				}
				return err
			}

			rendered := audio.Render(report)
			fmt.Fprintln(cmd.OutOrStdout(), rendered)

			if copyFlag {
				if err := clipboard.WriteAll(rendered); err != nil {
					return fmt.Errorf("copy report to clipboard: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Report copied to clipboard.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyFlag, "copy", false, "Copy the rendered report to the clipboard")
	return cmd
}
