package playback

import (
	"errors"
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/mem"
	"github.com/sarchlab/fpgaseq/packet"
)

var (
	// ErrBadWord is returned for memory words that do not decode.
	ErrBadWord = errors.New("undecodable memory word")

	// ErrNoEnd is returned when a program does not end in EndSequence.
	ErrNoEnd = errors.New("memory does not end the sequence")
)

// OpKind is the kind of a decoded instruction.
type OpKind int

const (
	OpNoop OpKind = iota
	OpFiber
	OpDelay
	OpStartTimer
	OpStopTimer
	OpSram
	OpEnd
)

func (k OpKind) String() string {
	switch k {
	case OpNoop:
		return "noop"
	case OpFiber:
		return "fiber"
	case OpDelay:
		return "delay"
	case OpStartTimer:
		return "start timer"
	case OpStopTimer:
		return "stop timer"
	case OpSram:
		return "sram"
	case OpEnd:
		return "end"
	default:
		panic("invalid op kind")
	}
}

// An Op is one decoded instruction and the time it takes in nanoseconds.
type Op struct {
	Kind OpKind
	Ns   float64
}

const (
	clockNs   = 1e9 / float64(board.ClockFreq)
	sramCalls = 3
	opShift   = 20
)

// Decode turns the memory words of a board into timed instructions. The
// dual-block record, if any, gives the length of dual-block calls.
func Decode(words []int64, dual *packet.DualBlock) ([]Op, error) {
	var ops []Op

	for i := 0; i < len(words); i++ {
		w := words[i]
		payload := w & mem.PayloadMask

		switch w >> opShift {
		case 0x0:
			ops = append(ops, Op{Kind: OpNoop, Ns: clockNs})
		case 0x1, 0x2:
			ops = append(ops, Op{Kind: OpFiber, Ns: clockNs})
		case 0x3:
			ops = append(ops, Op{Kind: OpDelay, Ns: float64(payload) * clockNs})
		case 0x4:
			switch w {
			case mem.StartTimerWord:
				ops = append(ops, Op{Kind: OpStartTimer, Ns: clockNs})
			case mem.StopTimerWord:
				ops = append(ops, Op{Kind: OpStopTimer, Ns: clockNs})
			default:
				return nil, fmt.Errorf("word %d = %#x: %w", i, w, ErrBadWord)
			}
		case 0x8:
			op, err := decodeSramCall(words[i:], dual)
			if err != nil {
				return nil, fmt.Errorf("word %d: %w", i, err)
			}

			ops = append(ops, op)
			i += sramCalls - 1
		case 0xF:
			ops = append(ops, Op{Kind: OpEnd, Ns: clockNs})
			return ops, nil
		default:
			return nil, fmt.Errorf("word %d = %#x: %w", i, w, ErrBadWord)
		}
	}

	return nil, ErrNoEnd
}

func decodeSramCall(words []int64, dual *packet.DualBlock) (Op, error) {
	if len(words) < sramCalls ||
		words[1]>>opShift != mem.SramEndWord>>opShift ||
		words[2] != mem.SramCallWord {
		return Op{}, fmt.Errorf("incomplete SRAM call: %w", ErrBadWord)
	}

	start := words[0] & mem.PayloadMask
	end := words[1] & mem.PayloadMask

	ns := float64(end-start+1) + sramCalls*clockNs
	if dual != nil {
		ns = float64(len(dual.Block1)+len(dual.Block2)) + dual.DelayNs + sramCalls*clockNs
	}

	return Op{Kind: OpSram, Ns: ns}, nil
}
