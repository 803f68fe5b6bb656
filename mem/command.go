// Package mem holds the memory commands that make up a DAC board's control
// program.
package mem

import (
	"errors"
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
)

// Kind enumerates the memory command variants.
type Kind int

const (
	Noop Kind = iota
	EndSequence
	StartTimer
	StopTimer
	Delay
	CallSram
	CallSramDualBlock
	SendFiber
)

func (k Kind) String() string {
	switch k {
	case Noop:
		return "Noop"
	case EndSequence:
		return "EndSequence"
	case StartTimer:
		return "StartTimer"
	case StopTimer:
		return "StopTimer"
	case Delay:
		return "Delay"
	case CallSram:
		return "CallSram"
	case CallSramDualBlock:
		return "CallSramDualBlock"
	case SendFiber:
		return "SendFiber"
	default:
		panic("invalid memory command kind")
	}
}

// Opcodes of the memory words.
const (
	NoopWord        = 0x000000
	EndSequenceWord = 0xF00000
	StartTimerWord  = 0x400000
	StopTimerWord   = 0x400001
	DelayWord       = 0x300000
	SramStartWord   = 0x800000
	SramEndWord     = 0xA00000
	SramCallWord    = 0xC00000
	FiberOut0Word   = 0x100000
	FiberOut1Word   = 0x200000

	PayloadMask = 0x0FFFFF
)

// sramCallOverhead is the number of clock cycles spent issuing an SRAM call.
const sramCallOverhead = 3

// ErrDelayNotSet is returned when the duration of a dual-block call is
// needed before its inter-block delay has been given.
var ErrDelayNotSet = errors.New("dual-block SRAM delay not set")

// BlockLengths resolves the length in samples of a board's SRAM blocks.
type BlockLengths interface {
	BlockLength(name string) (int, error)
}

// A Command is one memory instruction. Only the fields of its kind are used.
type Command struct {
	Kind Kind

	// Cycles is the length of a Delay.
	Cycles int64

	// Block and Block2 name the SRAM blocks of a call.
	Block  string
	Block2 string

	// Start and End are the resolved SRAM addresses of a CallSram.
	Start int64
	End   int64

	// DelayNs separates the two blocks of a dual-block call.
	DelayNs    float64
	DelayIsSet bool

	Fiber board.FiberID
	Bits  int64
}

// NewNoop creates a Noop.
func NewNoop() Command { return Command{Kind: Noop} }

// NewEndSequence creates an EndSequence.
func NewEndSequence() Command { return Command{Kind: EndSequence} }

// NewStartTimer creates a StartTimer.
func NewStartTimer() Command { return Command{Kind: StartTimer} }

// NewStopTimer creates a StopTimer.
func NewStopTimer() Command { return Command{Kind: StopTimer} }

// NewDelay creates a Delay of the given number of clock cycles.
func NewDelay(cycles int64) Command {
	return Command{Kind: Delay, Cycles: cycles}
}

// NewCallSram creates an unresolved call of a single SRAM block.
func NewCallSram(block string) Command {
	return Command{Kind: CallSram, Block: block}
}

// NewCallSramDualBlock creates a dual-block call. A nil delay leaves the
// delay unset.
func NewCallSramDualBlock(block1, block2 string, delayNs *float64) Command {
	c := Command{Kind: CallSramDualBlock, Block: block1, Block2: block2}
	if delayNs != nil {
		c.DelayNs = *delayNs
		c.DelayIsSet = true
	}

	return c
}

// NewSendFiber creates a fiber write.
func NewSendFiber(fiber board.FiberID, bits int64) Command {
	return Command{Kind: SendFiber, Fiber: fiber, Bits: bits}
}

// Words encodes the command.
func (c Command) Words() []int64 {
	switch c.Kind {
	case Noop:
		return []int64{NoopWord}
	case EndSequence:
		return []int64{EndSequenceWord}
	case StartTimer:
		return []int64{StartTimerWord}
	case StopTimer:
		return []int64{StopTimerWord}
	case Delay:
		return delayWords(c.Cycles)
	case CallSram:
		return []int64{
			SramStartWord + (c.Start & PayloadMask),
			SramEndWord + (c.End & PayloadMask),
			SramCallWord,
		}
	case CallSramDualBlock:
		// The board driver lays out the two blocks itself.
		return []int64{SramStartWord, SramEndWord, SramCallWord}
	case SendFiber:
		return []int64{fiberOpcode(c.Fiber) + (c.Bits & PayloadMask)}
	default:
		panic("invalid memory command kind")
	}
}

func delayWords(cycles int64) []int64 {
	words := make([]int64, 0, 1)

	left := cycles
	for left > PayloadMask {
		words = append(words, DelayWord+PayloadMask)
		left -= PayloadMask
	}

	return append(words, DelayWord+left)
}

func fiberOpcode(f board.FiberID) int64 {
	switch f {
	case board.Out0:
		return FiberOut0Word
	case board.Out1:
		return FiberOut1Word
	default:
		panic("invalid fiber id")
	}
}

// Duration returns how long the command runs, in microseconds.
func (c Command) Duration(blocks BlockLengths) (float64, error) {
	switch c.Kind {
	case Noop, EndSequence, StartTimer, StopTimer, SendFiber:
		return board.ClocksToMicroseconds(1), nil
	case Delay:
		return board.ClocksToMicroseconds(c.Cycles), nil
	case CallSram:
		n, err := blocks.BlockLength(c.Block)
		if err != nil {
			return 0, err
		}

		return board.SamplesToMicroseconds(int64(n)) +
			board.ClocksToMicroseconds(sramCallOverhead), nil
	case CallSramDualBlock:
		if !c.DelayIsSet {
			return 0, fmt.Errorf("%s/%s: %w", c.Block, c.Block2, ErrDelayNotSet)
		}

		n1, err := blocks.BlockLength(c.Block)
		if err != nil {
			return 0, err
		}

		n2, err := blocks.BlockLength(c.Block2)
		if err != nil {
			return 0, err
		}

		return board.SamplesToMicroseconds(int64(n1+n2)) +
			board.ClocksToMicroseconds(sramCallOverhead) +
			c.DelayNs/1000, nil
	default:
		panic("invalid memory command kind")
	}
}

// CallsSram tells if the command starts SRAM playback.
func (c Command) CallsSram() bool {
	return c.Kind == CallSram || c.Kind == CallSramDualBlock
}

func (c Command) String() string {
	switch c.Kind {
	case Delay:
		return fmt.Sprintf("Delay(%d)", c.Cycles)
	case CallSram:
		return fmt.Sprintf("CallSram(%s)", c.Block)
	case CallSramDualBlock:
		return fmt.Sprintf("CallSramDualBlock(%s, %s)", c.Block, c.Block2)
	case SendFiber:
		return fmt.Sprintf("SendFiber(%s, %#x)", c.Fiber, c.Bits)
	default:
		return c.Kind.String()
	}
}

// Concat encodes a list of commands into one word array.
func Concat(cmds []Command) []int64 {
	var words []int64
	for _, c := range cmds {
		words = append(words, c.Words()...)
	}

	return words
}
