package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"livecap/internal/audio"
	"livecap/internal/envcheck"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run environment readiness checks and exit",
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

			results := envcheck.RunAll(cmd.Context(), cfg, host, runtime.GOOS)
			renderCheckResults(cmd.OutOrStdout(), results)

			if !envcheck.Ready(results) {
				return errors.New("environment not ready; fix the failed checks above")
			}
			return nil
		},
	}
}

func renderCheckResults(out io.Writer, results []envcheck.Result) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, r := range results {
		status := "FAIL"
		if r.Passed {
			status = "OK"
		}
		tw.AppendRow(table.Row{r.Name, status, r.Detail})
	}
	fmt.Fprintln(out, tw.Render())
}
