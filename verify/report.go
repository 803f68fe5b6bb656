package verify

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/fpgaseq/packet"
	"github.com/sarchlab/fpgaseq/playback"
)

// Report is the lint and the replay of one batch.
type Report struct {
	Issues    []Issue
	Replay    *playback.Report
	ReplayErr error
}

// GenerateReport lints the batch and replays it with player. Boards that do
// not end with the others are reported as timing issues.
func GenerateReport(batch *packet.Batch, player *playback.Player) *Report {
	r := &Report{Issues: Lint(batch)}

	r.Replay, r.ReplayErr = player.Replay(batch)
	if r.ReplayErr != nil || r.Replay.LockStep {
		return r
	}

	var last int64
	for _, res := range r.Replay.Results {
		last = max(last, res.Cycles())
	}

	for _, res := range r.Replay.Results {
		switch {
		case !res.Finished:
			r.Issues = append(r.Issues, Issue{Type: IssueTiming, Board: res.Board, Message: "did not finish"})
		case res.Cycles() != last:
			r.Issues = append(r.Issues, Issue{
				Type:    IssueTiming,
				Board:   res.Board,
				Message: fmt.Sprintf("ends at cycle %d, %d cycles before the last board", res.Cycles(), last-res.Cycles()),
			})
		}
	}

	return r
}

// OK tells if the batch has no issue and replayed.
func (r *Report) OK() bool {
	return len(r.Issues) == 0 && r.ReplayErr == nil
}

// WriteReport writes the issues and the replay.
func (r *Report) WriteReport(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Lint")
	t.AppendHeader(table.Row{"Type", "Board", "Issue"})

	for _, issue := range r.Issues {
		t.AppendRow(table.Row{issue.Type, issue.Board, issue.Message})
	}

	if len(r.Issues) == 0 {
		t.AppendRow(table.Row{"", "", "no issues"})
	}

	t.Render()
	fmt.Fprintln(w)

	if r.ReplayErr != nil {
		fmt.Fprintf(w, "Replay failed: %v\n", r.ReplayErr)
		return
	}

	r.Replay.Render(w)
}
