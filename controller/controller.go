// Package controller accumulates the per-board program of a DAC board:
// either a memory command sequence or a jump table.
package controller

import (
	"errors"
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/mem"
	"github.com/sarchlab/fpgaseq/packet"
)

var (
	// ErrTimerState is returned for timer calls in the wrong state.
	ErrTimerState = errors.New("timer state error")

	// ErrSramExclusivity is returned when single-block and dual-block SRAM
	// calls are mixed in one sequence.
	ErrSramExclusivity = errors.New("cannot call SRAM and dual-block in the same sequence")

	// ErrDualBlockRepeated is returned for a second dual-block call.
	ErrDualBlockRepeated = errors.New("only one dual-block SRAM call allowed per sequence")

	// ErrNoDualBlock is returned when dual-block data is requested from a
	// sequence without a dual-block call.
	ErrNoDualBlock = errors.New("sequence does not have a dual-block SRAM call")

	// ErrMemoryTooLong is returned when the memory exceeds SRAM_WRITE_PKT_LEN.
	ErrMemoryTooLong = errors.New("memory sequence exceeds maximum length")

	// ErrCounterOverflow is returned when a jump table needs a fifth counter.
	ErrCounterOverflow = errors.New("more than 4 counters used in jump table")

	// ErrWrongKind is returned by operations that the controller kind does
	// not support.
	ErrWrongKind = errors.New("operation not supported by controller kind")
)

// Kind selects how a board is sequenced.
type Kind int

const (
	Memory Kind = iota
	JumpTable
)

func (k Kind) String() string {
	switch k {
	case Memory:
		return "memory"
	case JumpTable:
		return "jumptable"
	default:
		panic("invalid controller kind")
	}
}

// KindFor returns the controller kind a board's build calls for.
func KindFor(b *board.Board) Kind {
	if b.UsesJumpTable() {
		return JumpTable
	}

	return Memory
}

// Blocks is the view of a board's SRAM block directory the controller needs
// to resolve SRAM calls.
type Blocks interface {
	mem.BlockLengths
	HasBlock(name string) bool
	BlockStart(name string) (int, error)
	BlockEnd(name string) (int, error)
}

// A Controller holds the program of one DAC board.
type Controller struct {
	board string
	kind  Kind

	commands        []mem.Command
	timerStartCount int
	timerStopCount  int
	sramCalled      bool
	sramDualBlock   bool
	dualBlockIndex  int
	dualBlockDelay  *float64

	entries      []Entry
	counters     [NumCounters]int64
	countersUsed int
}

// New creates an empty controller for the named board.
func New(boardName string, kind Kind) *Controller {
	c := &Controller{board: boardName, kind: kind}
	c.Clear()

	return c
}

// Kind returns the kind of the controller.
func (c *Controller) Kind() Kind {
	return c.kind
}

// Board returns the name of the board the controller sequences.
func (c *Controller) Board() string {
	return c.board
}

// Clear empties the program. The dual-block delay survives.
func (c *Controller) Clear() {
	c.commands = nil
	c.timerStartCount = 0
	c.timerStopCount = 0
	c.sramCalled = false
	c.sramDualBlock = false
	c.dualBlockIndex = -1

	c.entries = nil
	c.counters = [NumCounters]int64{}
	c.countersUsed = 0
}

func (c *Controller) requireMemory(op string) error {
	if c.kind != Memory {
		return fmt.Errorf("%s: %s on %s controller: %w", c.board, op, c.kind, ErrWrongKind)
	}

	return nil
}

// AddPackets appends the board program to the run request.
func (c *Controller) AddPackets(req *packet.Request, blocks Blocks, shortestSram, maxMemory int) error {
	switch c.kind {
	case Memory:
		words, err := c.Memory(blocks, shortestSram, maxMemory)
		if err != nil {
			return err
		}

		req.Add(packet.Memory, words)
	case JumpTable:
		c.addJumpTablePackets(req)
	default:
		panic("invalid controller kind")
	}

	return nil
}

// SequenceLength returns the run time of the program in microseconds,
// including the board's start delay.
func (c *Controller) SequenceLength(blocks mem.BlockLengths, startDelay int) (float64, error) {
	return c.sequenceLength(blocks, startDelay, false)
}

// SequenceLengthPostSram is SequenceLength counted from the first SRAM call.
func (c *Controller) SequenceLengthPostSram(blocks mem.BlockLengths, startDelay int) (float64, error) {
	return c.sequenceLength(blocks, startDelay, true)
}

func (c *Controller) sequenceLength(
	blocks mem.BlockLengths,
	startDelay int,
	postSram bool,
) (float64, error) {
	t := board.StartDelayMicroseconds(startDelay)

	started := !postSram
	for _, cmd := range c.commands {
		if cmd.CallsSram() {
			started = true
		}

		if !started {
			continue
		}

		d, err := cmd.Duration(blocks)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", c.board, err)
		}

		t += d
	}

	return t, nil
}
