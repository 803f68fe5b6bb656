package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sarchlab/fpgaseq/packet"
)

func compileCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile RECIPE",
		Short: "Compile a recipe and list the packets",
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

			w := io.Writer(os.Stdout)
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()

				w = f
			}

			renderBatch(w, batch)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the listing to a file")

	return cmd
}

func renderBatch(w io.Writer, batch *packet.Batch) {
	setups := table.NewWriter()
	setups.SetOutputMirror(w)
	setups.SetTitle("Setup packets")
	setups.AppendHeader(table.Row{"Server", "State", "Records"})

	for _, s := range batch.Setups {
		setups.AppendRow(table.Row{s.Server, s.State, len(s.Records)})
	}

	setups.Render()
	fmt.Fprintln(w)

	records := table.NewWriter()
	records.SetOutputMirror(w)
	records.SetTitle("Request")
	records.AppendHeader(table.Row{"#", "Record"})

	for i, rec := range batch.Request.Records {
		records.AppendRow(table.Row{i, rec.String()})
	}

	records.Render()
}
