package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"livecap/internal/audio"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio devices and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := audio.NewPortAudioHost()
			if err != nil {
				return err
			}
			defer host.Close()

			devices, err := host.Enumerate(cmd.Context())
			if err != nil {
				return err
			}

			for _, d := range devices {
				var io []string
				if d.Inputs > 0 {
					io = append(io, "IN")
				}
				if d.Outputs > 0 {
					io = append(io, "OUT")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%3d: %-7s %s  (%s)\n",
					d.Index, strings.Join(io, "/"), d.Name, d.HostAPI)
			}
			return nil
		},
	}
}
