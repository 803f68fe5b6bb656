package channel

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/packet"
)

var (
	// ErrConflictingAdcConfig is returned when channels sharing an ADC board
	// ask for incompatible settings.
	ErrConflictingAdcConfig = errors.New("conflicting ADC configuration")

	// ErrAdcMode is returned when a setting does not apply to the current
	// mode of an ADC channel.
	ErrAdcMode = errors.New("wrong ADC mode")
)

// AdcMode is the acquisition mode of an ADC board.
type AdcMode int

const (
	AdcUnset AdcMode = iota
	AdcAverage
	AdcDemodulate
)

func (m AdcMode) String() string {
	switch m {
	case AdcUnset:
		return "unset"
	case AdcAverage:
		return "average"
	case AdcDemodulate:
		return "demodulate"
	default:
		panic("invalid adc mode")
	}
}

// TriggerTableEntry is one row of an ADC trigger table.
type TriggerTableEntry struct {
	Count, Delay, Length, Channels int64
}

// MixerEntry is one I/Q pair of an ADC mixer table.
type MixerEntry struct {
	I, Q int64
}

// AdcConfig is the readout configuration of one ADC channel.
type AdcConfig struct {
	demodChannels int
	trigAmp       int
	lookupBits    int
	timeStep      int

	mode         AdcMode
	demodChannel int

	filterFunction string
	stretchLen     int
	stretchAt      int

	ampSin, ampCos int
	dPhi, phi0     int

	triggerTable []TriggerTableEntry
	mixerTable   []MixerEntry

	criticalPhase float64
	reverse       bool
	offsetI       int
	offsetQ       int
}

// NewAdcConfig creates an unconfigured channel bounded by the board's build
// properties.
func NewAdcConfig(props board.Properties) *AdcConfig {
	c := &AdcConfig{
		demodChannels: props.Int(board.DemodChannels, 4),
		trigAmp:       props.Int(board.TrigAmp, 255),
		lookupBits:    props.Int(board.LookupAccumulatorBits, 16),
		timeStep:      props.Int(board.DemodTimeStep, 2),
	}
	c.Clear()

	return c
}

// Clear resets every setting.
func (c *AdcConfig) Clear() {
	c.mode = AdcUnset
	c.demodChannel = 0
	c.filterFunction = ""
	c.stretchLen = -1
	c.stretchAt = -1
	c.ampSin = -1
	c.ampCos = -1
	c.dPhi = 0
	c.phi0 = 0
	c.triggerTable = nil
	c.mixerTable = nil
	c.criticalPhase = 0
	c.reverse = false
	c.offsetI = 0
	c.offsetQ = 0
}

// Mode returns the acquisition mode.
func (c *AdcConfig) Mode() AdcMode {
	return c.mode
}

// DemodChannel returns the demodulator used in demodulate mode.
func (c *AdcConfig) DemodChannel() int {
	return c.demodChannel
}

// SetToAverage selects average mode.
func (c *AdcConfig) SetToAverage() {
	c.mode = AdcAverage
}

// SetToDemodulate selects demodulate mode on one of the board's
// demodulators.
func (c *AdcConfig) SetToDemodulate(ch int) error {
	if ch < 0 || ch > c.demodChannels {
		return fmt.Errorf("ADC demod channel %d must be in [0, %d]: %w",
			ch, c.demodChannels, ErrInvalidArgument)
	}

	c.mode = AdcDemodulate
	c.demodChannel = ch

	return nil
}

func (c *AdcConfig) requireDemodulate(op string) error {
	if c.mode != AdcDemodulate {
		return fmt.Errorf("%s needs demodulate mode, have %s: %w", op, c.mode, ErrAdcMode)
	}

	return nil
}

// SetFilterFunction sets the demodulation window. The byte at stretchAt is
// repeated stretchLen times.
func (c *AdcConfig) SetFilterFunction(f string, stretchLen, stretchAt int) error {
	if err := c.requireDemodulate("filter function"); err != nil {
		return err
	}

	c.filterFunction = f
	c.stretchLen = stretchLen
	c.stretchAt = stretchAt

	return nil
}

// SetTrigMagnitude sets the sine and cosine amplitudes of the demodulator.
func (c *AdcConfig) SetTrigMagnitude(ampSin, ampCos int) error {
	if err := c.requireDemodulate("trig magnitude"); err != nil {
		return err
	}

	if ampSin < 0 || ampSin > c.trigAmp || ampCos < 0 || ampCos > c.trigAmp {
		return fmt.Errorf("trig amplitudes must be in [0, %d]: %w", c.trigAmp, ErrInvalidArgument)
	}

	c.ampSin = ampSin
	c.ampCos = ampCos

	return nil
}

// TrigMagnitude returns the sine and cosine amplitudes, -1 when unset.
func (c *AdcConfig) TrigMagnitude() (ampSin, ampCos int) {
	return c.ampSin, c.ampCos
}

// SetPhaseSteps sets the demodulation phase as lookup table steps.
func (c *AdcConfig) SetPhaseSteps(dPhi, phi0 int) error {
	if err := c.requireDemodulate("demod phase"); err != nil {
		return err
	}

	c.dPhi = dPhi
	c.phi0 = phi0

	return nil
}

// SetPhase sets the demodulation phase from a frequency in Hz and an offset
// in radians.
func (c *AdcConfig) SetPhase(freqHz, phase float64) error {
	if err := c.requireDemodulate("demod phase"); err != nil {
		return err
	}

	if phase < -math.Pi || phase > math.Pi {
		return fmt.Errorf("phase %g must be in [-pi, pi]: %w", phase, ErrInvalidArgument)
	}

	table := math.Exp2(float64(c.lookupBits))
	dPhi := int(math.Floor(freqHz * table * float64(c.timeStep) * 1e-9))
	phi0 := int(phase * table / (2 * math.Pi))

	return c.SetPhaseSteps(dPhi, phi0)
}

// Phase returns the demodulation phase in lookup table steps.
func (c *AdcConfig) Phase() (dPhi, phi0 int) {
	return c.dPhi, c.phi0
}

// SetTriggerTable sets the board's acquisition trigger table.
func (c *AdcConfig) SetTriggerTable(t []TriggerTableEntry) {
	c.triggerTable = t
}

// SetMixerTable sets the demodulator's mixer table.
func (c *AdcConfig) SetMixerTable(t []MixerEntry) {
	c.mixerTable = t
}

// SetCriticalPhase sets the phase that separates the two readout states.
func (c *AdcConfig) SetCriticalPhase(phase float64) error {
	if phase < -math.Pi || phase > math.Pi {
		return fmt.Errorf("critical phase %g must be in [-pi, pi]: %w", phase, ErrInvalidArgument)
	}

	c.criticalPhase = phase

	return nil
}

// ReverseCriticalPhase flips the comparison made by InterpretPhases.
func (c *AdcConfig) ReverseCriticalPhase(reverse bool) {
	c.reverse = reverse
}

// SetIqOffset sets the offsets added to I and Q before taking the phase.
func (c *AdcConfig) SetIqOffset(offsetI, offsetQ int) {
	c.offsetI = offsetI
	c.offsetQ = offsetQ
}

// Phases returns the phase of every I/Q pair.
func (c *AdcConfig) Phases(is, qs []int) ([]float64, error) {
	if len(is) != len(qs) {
		return nil, fmt.Errorf("got %d I and %d Q values: %w", len(is), len(qs), ErrInvalidArgument)
	}

	out := make([]float64, len(is))
	for k := range is {
		out[k] = math.Atan2(float64(qs[k]+c.offsetQ), float64(is[k]+c.offsetI))
	}

	return out, nil
}

// InterpretPhases turns I/Q pairs into states by comparing their phase
// with the critical phase.
func (c *AdcConfig) InterpretPhases(is, qs []int) ([]bool, error) {
	phases, err := c.Phases(is, qs)
	if err != nil {
		return nil, err
	}

	out := make([]bool, len(phases))
	for k, p := range phases {
		if c.reverse {
			out[k] = p < c.criticalPhase
		} else {
			out[k] = p > c.criticalPhase
		}
	}

	return out, nil
}

// Reconcile checks that two channels on one board agree on the settings
// the board shares.
func (c *AdcConfig) Reconcile(other *AdcConfig) error {
	conflict := func(what string) error {
		return fmt.Errorf("%s differs: %w", what, ErrConflictingAdcConfig)
	}

	if c.mode != other.mode {
		return conflict("mode")
	}

	if !slices.Equal(c.triggerTable, other.triggerTable) {
		return conflict("trigger table")
	}

	switch c.mode {
	case AdcAverage:
	case AdcDemodulate:
		if c.filterFunction != other.filterFunction {
			return conflict("filter function")
		}

		if c.stretchAt != other.stretchAt || c.stretchLen != other.stretchLen {
			return conflict("filter stretch")
		}

		if c.demodChannel == other.demodChannel {
			return fmt.Errorf("demod channel %d used twice: %w", c.demodChannel, ErrConflictingAdcConfig)
		}
	default:
		return fmt.Errorf("no mode (average/demodulate) set: %w", ErrAdcMode)
	}

	return nil
}

// AddGlobalPackets adds the board-wide settings to the run request.
func (c *AdcConfig) AddGlobalPackets(req *packet.Request, startDelay int) error {
	if c.mode == AdcUnset {
		return fmt.Errorf("no mode (average/demodulate) set: %w", ErrAdcMode)
	}

	if startDelay < 0 {
		return fmt.Errorf("ADC start delay not set: %w", ErrInvalidArgument)
	}

	req.Add(packet.AdcRunMode, c.mode.String())
	req.Add(packet.StartDelay, int64(startDelay))

	if c.triggerTable != nil {
		req.Add(packet.AdcTriggerTable, c.triggerTable)
	}

	return nil
}

// AddLocalPackets adds the per-demodulator settings to the run request.
func (c *AdcConfig) AddLocalPackets(req *packet.Request) {
	if c.mixerTable != nil {
		req.Add(packet.AdcMixerTable, int64(c.demodChannel), c.mixerTable)
	}
}
