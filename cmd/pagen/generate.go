package main

import (
	"github.com/spf13/cobra"

	"github.com/Simplici0/pagen/internal/program"
)

func (a *app) newGenerateCmd() *cobra.Command {
	var (
		src    source
		output string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a calibration program",
		Long: `Generate reads a settings document (the built-in defaults, a file or a saved
profile), applies any --set overrides and writes the calibration G-code.
Nothing is written when the settings are invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(cmd.Context(), src)
			if err != nil {
				return err
			}

			res, err := program.Generate(doc, a.logger)
			if err != nil {
				a.logger.Error("generation failed", "err", err)
				return err
			}

			if err := writeOutput(cmd, output, res.GCode); err != nil {
				return err
			}
			a.logger.Info("calibration program written",
				"output", output,
				"layers", res.Layers,
				"filament_mm", res.Usage.FilamentMM,
				"estimated_time", res.Usage.Duration,
			)
			return nil
		},
	}
	src.register(cmd, a.env.SettingsPath)
	cmd.Flags().StringVarP(&output, "output", "o", "-", `output file, "-" for stdout`)
	return cmd
}
