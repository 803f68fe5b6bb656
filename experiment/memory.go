package experiment

import (
	"fmt"
	"math"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/config"
	"github.com/sarchlab/fpgaseq/controller"
	"github.com/sarchlab/fpgaseq/fpga"
	"github.com/sarchlab/fpgaseq/mem"
)

// DefaultBiasDelayUs is the delay appended after bias commands when none is
// given.
const DefaultBiasDelayUs = 4.3

// BiasCommand sets one fast bias DAC through the fiber of a channel.
type BiasCommand struct {
	Channel    string
	Type       string
	Millivolts float64
}

// NewMem empties the program of every board.
func (e *Experiment) NewMem() {
	for _, d := range e.dacs {
		d.Controller().Clear()
	}

	e.dirty.Memory = true
}

// MemBias sends bias commands in parallel. Every memory board is padded
// with Noops to the longest command list, then delayUs is added to all of
// them if positive. Jump table boards take no bias commands.
func (e *Experiment) MemBias(cmds []BiasCommand, delayUs float64) error {
	perBoard := make(map[int][]mem.Command)
	maxCmds := 0

	for _, c := range cmds {
		ch, err := e.lookupKind(c.Channel, channel.FiberBias)
		if err != nil {
			return err
		}

		t, err := mem.ParseBiasCommandType(c.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", ch.ID(), err)
		}

		if d := e.dacOf(ch); d.Board.UsesJumpTable() {
			return fmt.Errorf("%s: bias commands on jump table board %s: %w",
				ch.ID(), d.Name(), controller.ErrWrongKind)
		}

		perBoard[ch.Fpga] = append(perBoard[ch.Fpga], mem.NewFastBias(ch.Fiber(), t, c.Millivolts))
		maxCmds = max(maxCmds, len(perBoard[ch.Fpga]))
	}

	for i, d := range e.dacs {
		if d.Board.UsesJumpTable() {
			continue
		}

		ctrl := d.Controller()
		own := perBoard[i]

		if err := ctrl.AddCommands(own); err != nil {
			return err
		}

		if err := ctrl.AddNoops(maxCmds - len(own)); err != nil {
			return err
		}

		if delayUs > 0 {
			if err := ctrl.AddDelay(delayUs); err != nil {
				return err
			}
		}

		config.Trace(e.logger, "bias commands", "board", d.Name(), "commands", len(own), "padding", maxCmds-len(own))
	}

	e.dirty.Memory = true

	return nil
}

// MemDelay adds a delay to every board.
func (e *Experiment) MemDelay(us float64) error {
	for _, d := range e.memoryDacs() {
		if err := d.Controller().AddDelay(us); err != nil {
			return err
		}
	}

	e.dirty.Memory = true

	return nil
}

// MemDelaySingle adds a delay to the board of one fiber bias channel.
func (e *Experiment) MemDelaySingle(id string, us float64) error {
	ch, err := e.lookupKind(id, channel.FiberBias)
	if err != nil {
		return err
	}

	if err := e.dacOf(ch).Controller().AddDelay(us); err != nil {
		return err
	}

	e.dirty.Memory = true

	return nil
}

// MemCallSram plays a block on every board. The block may be declared
// later.
func (e *Experiment) MemCallSram(block string) error {
	for _, d := range e.memoryDacs() {
		if err := d.Controller().CallSramBlock(block); err != nil {
			return err
		}
	}

	e.dirty.Memory = true

	return nil
}

// MemCallSramDualBlock plays two blocks back to back on every board.
func (e *Experiment) MemCallSramDualBlock(block1, block2 string) error {
	for _, d := range e.memoryDacs() {
		if err := d.Controller().CallSramDualBlock(block1, block2); err != nil {
			return err
		}
	}

	e.dirty.Memory = true

	return nil
}

// timerBoardSets splits the memory boards into the boards of the given fiber
// bias channels, the other timer boards and the boards with no fiber bias
// channel.
func (e *Experiment) timerBoardSets(ids []string) (named, others, nonTimer []*fpga.Dac, err error) {
	picked := make(map[int]bool)

	for _, id := range ids {
		ch, err := e.lookupKind(id, channel.FiberBias)
		if err != nil {
			return nil, nil, nil, err
		}

		picked[ch.Fpga] = true
	}

	for i, d := range e.dacs {
		switch {
		case d.Board.UsesJumpTable():
		case picked[i]:
			named = append(named, d)
		case e.timerBoards[i]:
			others = append(others, d)
		default:
			nonTimer = append(nonTimer, d)
		}
	}

	return named, others, nonTimer, nil
}

// MemStartTimer starts the timer on the boards of the given fiber bias
// channels. Boards without a fiber bias channel start their timer the first
// time. Every other board gets a Noop.
func (e *Experiment) MemStartTimer(ids ...string) error {
	named, noops, nonTimer, err := e.timerBoardSets(ids)
	if err != nil {
		return err
	}

	starts := named
	for _, d := range nonTimer {
		if d.Controller().TimerStarted() {
			noops = append(noops, d)
		} else {
			starts = append(starts, d)
		}
	}

	return e.timerStep(starts, noops, "start", (*controller.Controller).StartTimer)
}

// MemStopTimer stops the timer on the boards of the given fiber bias
// channels and on boards without one whose timer runs. Every other board
// gets a Noop.
func (e *Experiment) MemStopTimer(ids ...string) error {
	named, noops, nonTimer, err := e.timerBoardSets(ids)
	if err != nil {
		return err
	}

	stops := named
	for _, d := range nonTimer {
		if d.Controller().TimerRunning() {
			stops = append(stops, d)
		} else {
			noops = append(noops, d)
		}
	}

	return e.timerStep(stops, noops, "stop", (*controller.Controller).StopTimer)
}

func (e *Experiment) timerStep(act, noops []*fpga.Dac, op string, step func(*controller.Controller) error) error {
	for _, d := range act {
		if err := step(d.Controller()); err != nil {
			return err
		}

		config.Trace(e.logger, op+" timer", "board", d.Name())
	}

	for _, d := range noops {
		if err := d.Controller().AddNoops(1); err != nil {
			return err
		}
	}

	e.dirty.Memory = true

	return nil
}

// MemSyncDelay pads every board with a delay so that all of them run as
// long as the longest one. Call it last in the program.
func (e *Experiment) MemSyncDelay() error {
	dacs := e.memoryDacs()
	cycles := make([]int64, len(dacs))
	longest := int64(0)

	for i, d := range dacs {
		l, err := d.SequenceLength()
		if err != nil {
			return err
		}

		cycles[i] = int64(math.Round(l * float64(board.ClockFreq) / 1e6))
		longest = max(longest, cycles[i])
	}

	for i, d := range dacs {
		pad := longest - cycles[i]
		if pad <= 0 {
			continue
		}

		if err := d.Controller().AddDelayCycles(pad); err != nil {
			return err
		}

		config.Trace(e.logger, "sync delay", "board", d.Name(), "cycles", pad)
	}

	e.dirty.Memory = true

	return nil
}

// JumpTableAddEntry adds an entry to the jump table of every board
// sequenced by one.
func (e *Experiment) JumpTableAddEntry(name string, args []int64) error {
	for _, d := range e.dacs {
		if !d.Board.UsesJumpTable() {
			continue
		}

		if err := d.Controller().AddEntry(name, args); err != nil {
			return err
		}
	}

	e.dirty.Memory = true

	return nil
}
