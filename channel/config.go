package channel

import (
	"fmt"
	"strings"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/packet"
)

// OffFrequencyGHz is the carrier assumed when deconvolving for a source
// that is off.
const OffFrequencyGHz = 6.0

// MicrowaveConfig is the state of a microwave source. Two configurations
// are compatible only if they are equal.
type MicrowaveConfig struct {
	On           bool
	FrequencyGHz float64
	PowerDBm     float64
}

// MicrowavesOn returns the configuration of a running source.
func MicrowavesOn(freqGHz, powerDBm float64) MicrowaveConfig {
	return MicrowaveConfig{On: true, FrequencyGHz: freqGHz, PowerDBm: powerDBm}
}

// MicrowavesOff returns the configuration of a source that is off.
func MicrowavesOff() MicrowaveConfig {
	return MicrowaveConfig{}
}

// Frequency returns the carrier used for deconvolution.
func (c MicrowaveConfig) Frequency() float64 {
	if !c.On {
		return OffFrequencyGHz
	}

	return c.FrequencyGHz
}

// Setup returns the packet that puts the source into this state.
func (c MicrowaveConfig) Setup(src board.MicrowaveSource) packet.Setup {
	server := src.Server
	if server == "" {
		server = packet.AnritsuServer
	}

	s := packet.Setup{
		Server: server,
		Records: []packet.Record{
			{Name: packet.SelectDevice, Args: []any{src.Device}},
			{Name: packet.Output, Args: []any{c.On}},
		},
	}

	if !c.On {
		s.State = fmt.Sprintf("%s: off", src.Name)
		return s
	}

	s.Records = append(s.Records,
		packet.Record{Name: packet.Frequency, Args: []any{c.FrequencyGHz}},
		packet.Record{Name: packet.Amplitude, Args: []any{c.PowerDBm}},
	)
	s.State = fmt.Sprintf("%s: %g GHz @ %g dBm", src.Name, c.FrequencyGHz, c.PowerDBm)

	return s
}

var (
	highPassFilters = []string{"DC", "3300", "1000", "330", "100", "33", "10", "3.3"}
	lowPassFilters  = []string{"0", "0.22", "0.5", "1", "2.2", "5", "10", "22"}
)

func filterIndex(table []string, name, what string) (int64, error) {
	for i, f := range table {
		if strings.EqualFold(f, name) {
			return int64(i), nil
		}
	}

	return 0, fmt.Errorf("%s filter %q, want one of %s: %w",
		what, name, strings.Join(table, ", "), ErrInvalidArgument)
}

// PreampConfig is the state of the preamp that conditions a timing
// channel.
type PreampConfig struct {
	Offset   int64
	Polarity bool
	HighPass string
	LowPass  string

	highPass int64
	lowPass  int64
}

// NewPreampConfig validates and creates a preamp configuration. Filters
// are named by their corner frequency.
func NewPreampConfig(offset int64, polarity bool, highPass, lowPass string) (PreampConfig, error) {
	hp, err := filterIndex(highPassFilters, highPass, "high pass")
	if err != nil {
		return PreampConfig{}, err
	}

	lp, err := filterIndex(lowPassFilters, lowPass, "low pass")
	if err != nil {
		return PreampConfig{}, err
	}

	return PreampConfig{
		Offset:   offset,
		Polarity: polarity,
		HighPass: highPass,
		LowPass:  lowPass,
		highPass: hp,
		lowPass:  lp,
	}, nil
}

// Setup returns the DC rack packet that programs the preamp behind link.
func (c PreampConfig) Setup(link board.BiasLink) packet.Setup {
	polarity := int64(0)
	if c.Polarity {
		polarity = 1
	}

	return packet.Setup{
		Server: packet.DCRackServer,
		Records: []packet.Record{
			{Name: packet.SelectCard, Args: []any{link.Card}},
			{Name: packet.PreampRegister, Args: []any{
				link.Channel,
				[]int64{c.highPass, c.lowPass, polarity, c.Offset},
			}},
		},
		State: fmt.Sprintf("%s%s: offset=%d polarity=%t highPass=%s lowPass=%s",
			link.Card, link.Channel, c.Offset, c.Polarity, c.HighPass, c.LowPass),
	}
}

// Serial bias DAC range in volts.
const (
	minBiasVolts = -2.5
	maxBiasVolts = 2.5
)

// SerialBiasConfig is a voltage applied through the DC rack serial bus.
type SerialBiasConfig struct {
	Dac   string
	Volts float64
}

// NewSerialBiasConfig validates and creates a serial bias configuration.
// dac selects the fine or coarse bias DAC of the card.
func NewSerialBiasConfig(dac string, volts float64) (SerialBiasConfig, error) {
	dac = strings.ToUpper(dac)
	if dac != "FINE" && dac != "DAC0" && dac != "DAC1" {
		return SerialBiasConfig{}, fmt.Errorf("bias dac %q: %w", dac, ErrInvalidArgument)
	}

	if volts < minBiasVolts || volts > maxBiasVolts {
		return SerialBiasConfig{}, fmt.Errorf("bias %g V out of range [%g, %g]: %w",
			volts, minBiasVolts, maxBiasVolts, ErrInvalidArgument)
	}

	return SerialBiasConfig{Dac: dac, Volts: volts}, nil
}

// Setup returns the DC rack packet that applies the voltage.
func (c SerialBiasConfig) Setup(link board.BiasLink) packet.Setup {
	return packet.Setup{
		Server: packet.DCRackServer,
		Records: []packet.Record{
			{Name: packet.SelectCard, Args: []any{link.Card}},
			{Name: packet.BiasVoltage, Args: []any{link.Channel, c.Dac, c.Volts}},
		},
		State: fmt.Sprintf("%s%s: %s=%gV", link.Card, link.Channel, c.Dac, c.Volts),
	}
}
