package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/fpgaseq/playback"
	"github.com/sarchlab/fpgaseq/verify"
)

var errVerify = errors.New("verification found issues")

func verifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify RECIPE",
		Short: "Compile a recipe, lint the packets and replay the programs",
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

			player := playback.Builder{}.WithLogger(a.logger).Build()
			report := verify.GenerateReport(batch, player)
			report.WriteReport(os.Stdout)

			if !report.OK() {
				return errVerify
			}

			return nil
		},
	}
}
