// Package board describes the physical FPGA boards that take part in an
// experiment, together with the build properties that bound what a compiled
// sequence may contain.
package board

import (
	"fmt"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
)

const (
	// ClockFreq is the memory-sequencer clock shared by every board.
	ClockFreq = 25 * sim.MHz

	// DacFreq is the SRAM sample rate of a DAC board.
	DacFreq = 1 * sim.GHz

	// StartDelayUnitNs is the length of one start-delay unit.
	StartDelayUnitNs = 4

	// JumpTableBuild is the first DAC build number that is driven by a jump
	// table instead of a memory sequence.
	JumpTableBuild = 13
)

// Build property keys.
const (
	SramLen                = "SRAM_LEN"
	SramWritePktLen        = "SRAM_WRITE_PKT_LEN"
	DemodChannels          = "DEMOD_CHANNELS"
	DemodChannelsPerPacket = "DEMOD_CHANNELS_PER_PACKET"
	TrigAmp                = "TRIG_AMP"
	LookupAccumulatorBits  = "LOOKUP_ACCUMULATOR_BITS"
	DemodTimeStep          = "DEMOD_TIME_STEP"
)

// Family tells which kind of hardware a board is.
type Family int

const (
	Analog Family = iota
	Microwave
	Adc
)

// Name returns the name of the family.
func (f Family) Name() string {
	switch f {
	case Analog:
		return "analog"
	case Microwave:
		return "microwave"
	case Adc:
		return "adc"
	default:
		panic("invalid board family")
	}
}

// ParseFamily parses a family name.
func ParseFamily(name string) (Family, error) {
	for _, f := range []Family{Analog, Microwave, Adc} {
		if strings.EqualFold(f.Name(), name) {
			return f, nil
		}
	}

	return 0, fmt.Errorf("board family %q: %w", name, ErrWrongFamily)
}

// IsDac tells if the board drives outputs from SRAM.
func (f Family) IsDac() bool {
	return f == Analog || f == Microwave
}

// BuildType returns the registry prefix used to look up build properties.
func (f Family) BuildType() string {
	if f == Adc {
		return "adcBuild"
	}

	return "dacBuild"
}

// Properties holds the numeric build properties of a board.
type Properties map[string]int64

// Get returns a property or an error if the board does not define it.
func (p Properties) Get(key string) (int64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("build property %s: %w", key, ErrMissingProperty)
	}

	return v, nil
}

// Int returns a property as an int, or the fallback when it is missing.
func (p Properties) Int(key string, fallback int) int {
	v, ok := p[key]
	if !ok {
		return fallback
	}

	return int(v)
}

// Clone returns a copy that can be mutated independently.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// DefaultDacProperties are used when a DAC board's build metadata cannot be
// reached.
func DefaultDacProperties() Properties {
	return Properties{
		SramLen:         10240,
		SramWritePktLen: 256,
	}
}

// DefaultAdcProperties are used when an ADC board's build metadata cannot be
// reached.
func DefaultAdcProperties() Properties {
	return Properties{
		DemodChannels:          4,
		DemodChannelsPerPacket: 11,
		TrigAmp:                255,
		LookupAccumulatorBits:  16,
		DemodTimeStep:          2,
	}
}

// DefaultBuildNumber is the build assumed for a board whose build number
// cannot be read.
func DefaultBuildNumber(f Family) int {
	if f == Adc {
		return 1
	}

	return 5
}

// BiasLink records the bias card reached through one of a DAC's fibers.
type BiasLink struct {
	Card    string
	Channel string
}

// A Board is a physical FPGA device. Boards are read-only for the compiler.
type Board struct {
	Name        string
	Family      Family
	BuildNumber int
	Properties  Properties

	// MicrowaveSource names the source feeding a microwave board.
	MicrowaveSource string

	Fibers map[FiberID]BiasLink
}

// New creates a board with the default properties of its family.
func New(name string, family Family) *Board {
	b := &Board{
		Name:        name,
		Family:      family,
		BuildNumber: DefaultBuildNumber(family),
		Fibers:      make(map[FiberID]BiasLink),
	}

	if family == Adc {
		b.Properties = DefaultAdcProperties()
	} else {
		b.Properties = DefaultDacProperties()
	}

	return b
}

// UsesJumpTable tells if the board is sequenced by a jump table.
func (b *Board) UsesJumpTable() bool {
	return b.Family.IsDac() && b.BuildNumber >= JumpTableBuild
}

// ConnectFiber wires one of the board's fiber outputs to a bias card.
func (b *Board) ConnectFiber(fiber FiberID, card, channel string) error {
	if b.Family == Adc {
		return fmt.Errorf("ADC board %q was given fibers: %w", b.Name, ErrWrongFamily)
	}

	b.Fibers[fiber] = BiasLink{Card: card, Channel: channel}

	return nil
}

// FiberTo returns the fiber that reaches the given bias card channel.
func (b *Board) FiberTo(card, channel string) (FiberID, bool) {
	for id, link := range b.Fibers {
		if link.Card == card && link.Channel == channel {
			return id, true
		}
	}

	return 0, false
}

func (b *Board) String() string {
	return fmt.Sprintf("%s(%s, build %d)", b.Name, b.Family.Name(), b.BuildNumber)
}
