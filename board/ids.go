package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
)

var (
	// ErrMissingProperty is returned when a build property is not defined.
	ErrMissingProperty = errors.New("missing build property")

	// ErrWrongFamily is returned when an operation does not apply to the
	// family of a board.
	ErrWrongFamily = errors.New("wrong board family")

	// ErrUnknownID is returned when a textual id cannot be parsed.
	ErrUnknownID = errors.New("unknown id")
)

// TriggerID selects one of the four trigger outputs of a DAC board.
type TriggerID int

const (
	S0 TriggerID = iota
	S1
	S2
	S3
)

// Shift returns the SRAM bit carrying the trigger.
func (t TriggerID) Shift() int {
	switch t {
	case S0, S1, S2, S3:
		return 28 + int(t)
	default:
		panic("invalid trigger id")
	}
}

func (t TriggerID) String() string {
	return fmt.Sprintf("s%d", int(t))
}

// ParseTriggerID parses names such as "S3".
func ParseTriggerID(name string) (TriggerID, error) {
	switch strings.ToLower(name) {
	case "s0":
		return S0, nil
	case "s1":
		return S1, nil
	case "s2":
		return S2, nil
	case "s3":
		return S3, nil
	}

	return 0, fmt.Errorf("trigger id %q: %w", name, ErrUnknownID)
}

// AnalogID selects one of the two 14-bit DAC lanes of a board.
type AnalogID int

const (
	DacA AnalogID = iota
	DacB
)

// Shift returns the bit offset of the lane inside an SRAM word.
func (a AnalogID) Shift() int {
	switch a {
	case DacA:
		return 0
	case DacB:
		return 14
	default:
		panic("invalid dac id")
	}
}

func (a AnalogID) String() string {
	switch a {
	case DacA:
		return "a"
	case DacB:
		return "b"
	default:
		panic("invalid dac id")
	}
}

// ParseAnalogID parses "a" or "b".
func ParseAnalogID(name string) (AnalogID, error) {
	switch strings.ToLower(name) {
	case "a":
		return DacA, nil
	case "b":
		return DacB, nil
	}

	return 0, fmt.Errorf("dac id %q: %w", name, ErrUnknownID)
}

// FiberID selects one of the fiber outputs of a DAC board.
type FiberID int

const (
	Out0 FiberID = iota
	Out1
)

func (f FiberID) String() string {
	switch f {
	case Out0:
		return "out0"
	case Out1:
		return "out1"
	default:
		panic("invalid fiber id")
	}
}

// ParseFiberID parses "out0" or "out1".
func ParseFiberID(name string) (FiberID, error) {
	switch strings.ToLower(name) {
	case "out0":
		return Out0, nil
	case "out1":
		return Out1, nil
	}

	return 0, fmt.Errorf("fiber id %q: %w", name, ErrUnknownID)
}

// MicrowaveSource is a signal generator that feeds one or more microwave
// boards. Server names the instrument server that drives it.
type MicrowaveSource struct {
	Name   string
	Device string
	Server string
}

// ClocksToMicroseconds converts memory clock cycles to microseconds.
func ClocksToMicroseconds(cycles int64) float64 {
	return float64(cycles) / float64(ClockFreq) * 1e6
}

// MicrosecondsToClocks converts microseconds to memory clock cycles,
// truncating toward zero.
func MicrosecondsToClocks(us float64) int64 {
	return int64(us * float64(ClockFreq) / 1e6)
}

// SamplesToMicroseconds converts SRAM samples to microseconds.
func SamplesToMicroseconds(samples int64) float64 {
	return float64(samples) / float64(DacFreq) * 1e6
}

// StartDelayMicroseconds converts a start delay to microseconds.
func StartDelayMicroseconds(startDelay int) float64 {
	return float64(startDelay) * StartDelayUnitNs / 1000.0
}

// ClockPeriod returns the length of one memory clock cycle.
func ClockPeriod() sim.VTimeInSec {
	return sim.VTimeInSec(1.0 / float64(ClockFreq))
}
