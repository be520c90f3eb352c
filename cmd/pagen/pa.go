package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Simplici0/pagen/internal/settings"
	"github.com/Simplici0/pagen/internal/toolpath"
)

func (a *app) newPACmd() *cobra.Command {
	var (
		src    source
		height float64
	)
	cmd := &cobra.Command{
		Use:   "pa",
		Short: "Look up the pressure advance printed at a height",
		Long: `Pa maps a height measured on the printed object back to the pressure
advance value used there. Without --height it prints the whole table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(cmd.Context(), src)
			if err != nil {
				return err
			}
			cfg, err := settings.Resolve(doc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("height") {
				layer, value, err := toolpath.ValueAtHeight(cfg, height)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "height %s mm: calibration layer %d of %d, pressure advance %s\n",
					settings.FormatValue(height), layer+1, cfg.SweepLayers(), formatAdvance(value))
				return err
			}

			steps, err := toolpath.SweepTable(cfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LAYER\tZ\tPRESSURE ADVANCE")
			for _, s := range steps {
				fmt.Fprintf(tw, "%d\t%.3f\t%s\n", s.Layer, s.Z, formatAdvance(s.Value))
			}
			return tw.Flush()
		},
	}
	src.register(cmd, a.env.SettingsPath)
	cmd.Flags().Float64Var(&height, "height", 0, "height in mm measured from the bed")
	return cmd
}

func formatAdvance(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
