package playback

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/config"
)

// Board plays the program of one board, one clock cycle per tick.
type Board struct {
	*sim.TickingComponent

	board  string
	logger *slog.Logger
	ops    []Op

	pc      int
	left    float64
	elapsed float64

	timerStart float64
	windows    [][2]float64
	done       bool
	endNs      float64
}

// NewBoard creates the player of a board on the engine. The component is
// named "Board[index]" since board names are not valid component names.
func NewBoard(index int, boardName string, engine sim.Engine, ops []Op, logger *slog.Logger) *Board {
	b := &Board{board: boardName, logger: logger, ops: ops, timerStart: -1}
	if len(ops) > 0 {
		b.left = ops[0].Ns
	}

	b.TickingComponent = sim.NewTickingComponent(fmt.Sprintf("Board[%d]", index), engine, board.ClockFreq, b)

	return b
}

// Tick spends one clock cycle on the program.
func (b *Board) Tick() (madeProgress bool) {
	if b.done {
		return false
	}

	budget := clockNs
	for budget > 0 && b.pc < len(b.ops) {
		step := min(budget, b.left)
		budget -= step
		b.left -= step
		b.elapsed += step

		if b.left > 0 {
			break
		}

		b.retire(b.ops[b.pc])
		b.pc++

		if b.pc < len(b.ops) {
			b.left = b.ops[b.pc].Ns
		}
	}

	if b.pc >= len(b.ops) {
		b.done = true
		b.endNs = b.elapsed
		b.logger.Debug("board finished", "board", b.board, "ns", b.endNs)
	}

	return true
}

func (b *Board) retire(op Op) {
	config.Trace(b.logger, "retire", "board", b.board, "op", op.Kind.String(), "ns", b.elapsed)

	switch op.Kind {
	case OpStartTimer:
		b.timerStart = b.elapsed
	case OpStopTimer:
		if b.timerStart >= 0 {
			b.windows = append(b.windows, [2]float64{b.timerStart, b.elapsed})
			b.timerStart = -1
		}
	}
}

// BoardName returns the name of the board being played.
func (b *Board) BoardName() string {
	return b.board
}

// Result returns what the board did once the engine stopped.
func (b *Board) Result() Result {
	return Result{
		Board:        b.board,
		Ops:          len(b.ops),
		EndNs:        b.endNs,
		Finished:     b.done,
		TimerWindows: b.windows,
	}
}
