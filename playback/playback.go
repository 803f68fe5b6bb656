// Package playback replays a compiled batch on a discrete event engine. Each
// board with a memory program becomes a ticking component clocked at the
// board clock, and the replay reports when each board ends and whether the
// boards stay in lock-step.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/fpgaseq/packet"
)

// ErrNoPrograms is returned for a batch without memory programs.
var ErrNoPrograms = errors.New("batch has no memory programs")

// Result is the replay of one board.
type Result struct {
	Board        string
	Ops          int
	EndNs        float64
	Finished     bool
	TimerWindows [][2]float64
}

// Cycles returns the end time in board clock cycles.
func (r Result) Cycles() int64 {
	return int64(math.Round(r.EndNs / clockNs))
}

// Report is the replay of a batch.
type Report struct {
	Results  []Result
	LockStep bool
}

// Render writes the report as a table.
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Replay")
	t.AppendHeader(table.Row{"Board", "Ops", "End (ns)", "Cycles", "Timer windows"})

	for _, res := range r.Results {
		windows := ""
		for i, win := range res.TimerWindows {
			if i > 0 {
				windows += " "
			}

			windows += fmt.Sprintf("[%g, %g]", win[0], win[1])
		}

		t.AppendRow(table.Row{res.Board, res.Ops, res.EndNs, res.Cycles(), windows})
	}

	t.AppendFooter(table.Row{"", "", "", "lock-step", r.LockStep})
	t.Render()
}

// Player replays batches.
type Player struct {
	engine sim.Engine
	logger *slog.Logger
	boards int
}

// Builder creates players.
type Builder struct {
	engine sim.Engine
	logger *slog.Logger
}

// WithEngine sets the engine the boards run on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// Build creates a player. A serial engine is used if none is given.
func (b Builder) Build() *Player {
	p := &Player{engine: b.engine, logger: b.logger}

	if p.engine == nil {
		p.engine = sim.NewSerialEngine()
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Replay plays every board with a memory program in daisy-chain order.
// Boards are in lock-step if they all end within one clock cycle.
func (p *Player) Replay(batch *packet.Batch) (*Report, error) {
	runs := batch.Boards()

	var players []*Board
	for _, name := range boardOrder(batch) {
		ops, ok, err := DecodeBoard(runs[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if !ok {
			continue
		}

		b := NewBoard(p.boards, name, p.engine, ops, p.logger)
		p.boards++
		b.TickNow()
		players = append(players, b)
	}

	if len(players) == 0 {
		return nil, ErrNoPrograms
	}

	if err := p.engine.Run(); err != nil {
		return nil, err
	}

	report := &Report{LockStep: true}
	lo, hi := math.Inf(1), math.Inf(-1)

	for _, b := range players {
		res := b.Result()
		report.Results = append(report.Results, res)
		lo = min(lo, res.EndNs)
		hi = max(hi, res.EndNs)

		if !res.Finished {
			report.LockStep = false
		}
	}

	if hi-lo >= clockNs {
		report.LockStep = false
	}

	return report, nil
}

func boardOrder(batch *packet.Batch) []string {
	if rec, ok := batch.Request.Find(packet.DaisyChain); ok {
		if names, ok := rec.Args[0].([]string); ok {
			return names
		}
	}

	var names []string
	for _, rec := range batch.Request.FindAll(packet.SelectDevice) {
		names = append(names, rec.Args[0].(string))
	}

	return names
}

// DecodeBoard decodes the memory program among the records of one board.
// It reports false if the board has no memory program.
func DecodeBoard(recs []packet.Record) ([]Op, bool, error) {
	var (
		words []int64
		dual  *packet.DualBlock
		found bool
	)

	for _, rec := range recs {
		switch rec.Name {
		case packet.Memory:
			words, found = rec.Args[0].([]int64)
		case packet.SramDualBlock:
			if d, ok := rec.Args[0].(packet.DualBlock); ok {
				dual = &d
			}
		}
	}

	if !found {
		return nil, false, nil
	}

	ops, err := Decode(words, dual)

	return ops, true, err
}
