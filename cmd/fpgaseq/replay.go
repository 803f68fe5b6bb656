package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/fpgaseq/playback"
)

func replayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay RECIPE",
		Short: "Compile a recipe and replay the board programs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.experiment(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			batch, err := e.Build(cmd.Context())
			if err != nil {
				return err
			}

			report, err := playback.Builder{}.WithLogger(a.logger).Build().Replay(batch)
			if err != nil {
				return err
			}

			report.Render(os.Stdout)

			if !report.LockStep {
				a.logger.Warn("boards are not in lock-step")
			}

			return nil
		},
	}
}
