package main

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/Simplici0/pagen/internal/settings"
)

func (a *app) newDefaultsCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in settings document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := settings.ParseFormat(format)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := settings.Encode(&buf, settings.Default(), f); err != nil {
				return err
			}
			return writeOutput(cmd, output, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "-", `output file, "-" for stdout`)
	return cmd
}
