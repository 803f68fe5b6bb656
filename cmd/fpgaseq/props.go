package main

import (
	"io"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/buildinfo"
	"github.com/sarchlab/fpgaseq/recipe"
)

func propsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "props RECIPE",
		Short: "Show the build number and properties of each board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := recipe.Load(args[0])
			if err != nil {
				return err
			}

			src := a.source(r)

			boards, err := r.BuildBoards()
			if err != nil {
				return err
			}

			buildinfo.LoadAll(cmd.Context(), src, boards, a.logger)

			propsTable(os.Stdout, boards)

			return nil
		},
	}
}

// propsTable writes one row per board property, sorted by name.
func propsTable(w io.Writer, boards []*board.Board) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Board", "Family", "Build", "Jump table", "Property", "Value"})

	for _, b := range boards {
		keys := maps.Keys(b.Properties)
		slices.Sort(keys)

		for i, k := range keys {
			if i == 0 {
				t.AppendRow(table.Row{b.Name, b.Family.Name(), b.BuildNumber, b.UsesJumpTable(), k, b.Properties[k]})
				continue
			}

			t.AppendRow(table.Row{"", "", "", "", k, b.Properties[k]})
		}
	}

	t.Render()
}
