package mem

import (
	"fmt"
	"strings"

	"github.com/sarchlab/fpgaseq/board"
)

// BiasCommandType selects how a fast-bias voltage is written to the card.
type BiasCommandType int

const (
	Dac0 BiasCommandType = iota
	Dac0NoSelect
	Dac1
	Dac1Slow
)

func (t BiasCommandType) String() string {
	switch t {
	case Dac0:
		return "dac0"
	case Dac0NoSelect:
		return "dac0noselect"
	case Dac1:
		return "dac1"
	case Dac1Slow:
		return "dac1slow"
	default:
		panic("invalid bias command type")
	}
}

// ParseBiasCommandType parses the names returned by String.
func ParseBiasCommandType(name string) (BiasCommandType, error) {
	for _, t := range []BiasCommandType{Dac0, Dac0NoSelect, Dac1, Dac1Slow} {
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown bias command type %q", name)
}

// FastBiasBits encodes a voltage in millivolts for the bias card.
func FastBiasBits(t BiasCommandType, mv float64) int64 {
	switch t {
	case Dac0:
		return dac0Level(mv) << 3
	case Dac0NoSelect:
		return 0x00004 + dac0Level(mv)<<3
	case Dac1:
		return 0x80000 + dac1Level(mv)<<3
	case Dac1Slow:
		return 0x80004 + dac1Level(mv)<<3
	default:
		panic("invalid bias command type")
	}
}

func dac0Level(mv float64) int64 {
	return int64(mv/2500.0*0xFFFF) & 0xFFFF
}

func dac1Level(mv float64) int64 {
	return int64((mv+2500.0)/5000.0*0xFFFF) & 0xFFFF
}

// NewFastBias creates the fiber write that sets a fast-bias voltage.
func NewFastBias(fiber board.FiberID, t BiasCommandType, mv float64) Command {
	return NewSendFiber(fiber, FastBiasBits(t, mv))
}
