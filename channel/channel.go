// Package channel defines the logical channels of an experiment. A Channel
// is a tagged variant: its Kind selects which of the per-kind accessors are
// valid. Channels refer to their board directly and to their fpga model by
// index into the experiment's arena.
package channel

import (
	"errors"
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channeldata"
)

var (
	// ErrWrongKind is returned when an operation does not apply to the
	// kind of a channel.
	ErrWrongKind = errors.New("wrong channel kind")

	// ErrNoBlock is returned when block data is added before a block was
	// started on the channel.
	ErrNoBlock = errors.New("no current SRAM block")

	// ErrNoMicrowaveConfig is returned when a microwave channel was never
	// configured.
	ErrNoMicrowaveConfig = errors.New("no microwave configuration for channel")

	// ErrInvalidArgument is returned for out-of-range configuration values.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind is the kind of a channel.
type Kind int

const (
	Analog Kind = iota
	Microwave
	Trigger
	FiberBias
	SerialBias
	AdcReadout
)

func (k Kind) String() string {
	switch k {
	case Analog:
		return "analog"
	case Microwave:
		return "microwave"
	case Trigger:
		return "trigger"
	case FiberBias:
		return "fiberbias"
	case SerialBias:
		return "serialbias"
	case AdcReadout:
		return "adc"
	default:
		panic("invalid channel kind")
	}
}

// ParseKind parses the name of a kind.
func ParseKind(name string) (Kind, error) {
	for k := Analog; k <= AdcReadout; k++ {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf("channel kind %q: %w", name, ErrInvalidArgument)
}

// UsesSram tells if channels of the kind carry per-block SRAM data.
func (k Kind) UsesSram() bool {
	return k == Analog || k == Microwave || k == Trigger
}

// IsTiming tells if channels of the kind produce timing results.
func (k Kind) IsTiming() bool {
	return k == FiberBias || k == AdcReadout
}

// A Channel is one output or input of a device.
type Channel struct {
	Name   string
	Device string
	Kind   Kind
	Board  *board.Board

	// Fpga indexes the fpga model of the channel's board, or is -1 for
	// channels without one.
	Fpga int

	currentBlock string

	analog    *analogState
	microwave *microwaveState
	trigger   *triggerState
	bias      *biasState
	adc       *AdcConfig
}

type analogState struct {
	dac       board.AnalogID
	rates     []float64
	times     []float64
	reflRates []float64
	reflAmps  []float64
	blocks    map[string]*channeldata.Analog
}

type microwaveState struct {
	source board.MicrowaveSource
	config *MicrowaveConfig
	blocks map[string]*channeldata.Iq
}

type triggerState struct {
	id     board.TriggerID
	blocks map[string]*channeldata.Trigger
}

type biasState struct {
	link  board.BiasLink
	fiber board.FiberID

	preamp    *PreampConfig
	intervals [][2]float64

	voltage *SerialBiasConfig
}

func newChannel(device, name string, kind Kind, b *board.Board) *Channel {
	return &Channel{Name: name, Device: device, Kind: kind, Board: b, Fpga: -1}
}

// NewAnalog creates a channel on one lane of an analog board.
func NewAnalog(device, name string, b *board.Board, dac board.AnalogID) *Channel {
	c := newChannel(device, name, Analog, b)
	c.analog = &analogState{dac: dac, blocks: make(map[string]*channeldata.Analog)}

	return c
}

// NewMicrowave creates an I/Q channel on a microwave board.
func NewMicrowave(device, name string, b *board.Board, src board.MicrowaveSource) *Channel {
	c := newChannel(device, name, Microwave, b)
	c.microwave = &microwaveState{source: src, blocks: make(map[string]*channeldata.Iq)}

	return c
}

// NewTrigger creates a channel on one trigger output of a DAC board.
func NewTrigger(device, name string, b *board.Board, id board.TriggerID) *Channel {
	c := newChannel(device, name, Trigger, b)
	c.trigger = &triggerState{id: id, blocks: make(map[string]*channeldata.Trigger)}

	return c
}

// NewFiberBias creates a bias channel driven over a DAC board's fiber. The
// channel's timer results come from this board.
func NewFiberBias(device, name string, b *board.Board, fiber board.FiberID) *Channel {
	c := newChannel(device, name, FiberBias, b)
	c.bias = &biasState{fiber: fiber, link: b.Fibers[fiber]}

	return c
}

// NewSerialBias creates a bias channel set over the DC rack serial bus.
func NewSerialBias(device, name string, b *board.Board, fiber board.FiberID) *Channel {
	c := newChannel(device, name, SerialBias, b)
	c.bias = &biasState{fiber: fiber, link: b.Fibers[fiber]}

	return c
}

// NewAdc creates a readout channel on an ADC board.
func NewAdc(device, name string, b *board.Board) *Channel {
	c := newChannel(device, name, AdcReadout, b)
	c.adc = NewAdcConfig(b.Properties)

	return c
}

// ID returns the "device.channel" name of the channel.
func (c *Channel) ID() string {
	return c.Device + "." + c.Name
}

func (c *Channel) String() string {
	return fmt.Sprintf("%s(%s on %s)", c.ID(), c.Kind, c.Board.Name)
}

func (c *Channel) require(kinds ...Kind) error {
	for _, k := range kinds {
		if c.Kind == k {
			return nil
		}
	}

	return fmt.Errorf("%s is a %s channel: %w", c.ID(), c.Kind, ErrWrongKind)
}

// SetCurrentBlock makes later data calls apply to the named block.
func (c *Channel) SetCurrentBlock(name string) error {
	if !c.Kind.UsesSram() {
		return fmt.Errorf("%s has no SRAM: %w", c.ID(), ErrWrongKind)
	}

	c.currentBlock = name

	return nil
}

// CurrentBlock returns the block data calls apply to.
func (c *Channel) CurrentBlock() string {
	return c.currentBlock
}

func (c *Channel) requireBlock() error {
	if c.currentBlock == "" {
		return fmt.Errorf("%s: %w", c.ID(), ErrNoBlock)
	}

	return nil
}

// ClearConfig drops the configuration set since the channel was created.
// Block data is kept.
func (c *Channel) ClearConfig() {
	switch c.Kind {
	case Microwave:
		c.microwave.config = nil
	case FiberBias:
		c.bias.preamp = nil
		c.bias.intervals = nil
	case SerialBias:
		c.bias.voltage = nil
	case AdcReadout:
		c.adc.Clear()
	}
}

// Dac returns the lane of an analog channel.
func (c *Channel) Dac() board.AnalogID {
	if c.Kind != Analog {
		panic("not an analog channel")
	}

	return c.analog.dac
}

// SetSettling sets the settling rates and times used to deconvolve the
// channel. Every block is re-deconvolved on the next build.
func (c *Channel) SetSettling(rates, times []float64) error {
	if err := c.require(Analog); err != nil {
		return err
	}

	if len(rates) != len(times) {
		return fmt.Errorf("%s: settling rates and times must have the same length: %w",
			c.ID(), ErrInvalidArgument)
	}

	c.analog.rates = rates
	c.analog.times = times
	c.invalidateAnalog()

	return nil
}

// SetReflection sets the reflection rates and amplitudes used to
// deconvolve the channel.
func (c *Channel) SetReflection(rates, amplitudes []float64) error {
	if err := c.require(Analog); err != nil {
		return err
	}

	if len(rates) != len(amplitudes) {
		return fmt.Errorf("%s: reflection rates and amplitudes must have the same length: %w",
			c.ID(), ErrInvalidArgument)
	}

	c.analog.reflRates = rates
	c.analog.reflAmps = amplitudes
	c.invalidateAnalog()

	return nil
}

// Settling returns the settling rates and times.
func (c *Channel) Settling() (rates, times []float64) {
	return c.analog.rates, c.analog.times
}

// Reflection returns the reflection rates and amplitudes.
func (c *Channel) Reflection() (rates, amplitudes []float64) {
	return c.analog.reflRates, c.analog.reflAmps
}

func (c *Channel) invalidateAnalog() {
	for _, d := range c.analog.blocks {
		d.Invalidate()
	}
}

// AddAnalogData sets the data of the current block, which is blockLen
// samples long.
func (c *Channel) AddAnalogData(d *channeldata.Analog, blockLen int) error {
	if err := c.require(Analog); err != nil {
		return err
	}

	if err := c.requireBlock(); err != nil {
		return err
	}

	if err := d.CheckLength(blockLen); err != nil {
		return fmt.Errorf("%s block %s: %w", c.ID(), c.currentBlock, err)
	}

	c.analog.blocks[c.currentBlock] = d

	return nil
}

// AnalogData returns the data of a block, creating zero data of blockLen
// samples when none was given.
func (c *Channel) AnalogData(block string, blockLen int) *channeldata.Analog {
	d, ok := c.analog.blocks[block]
	if !ok {
		d = channeldata.ZeroAnalog(blockLen)
		c.analog.blocks[block] = d
	}

	return d
}

// MicrowaveSource returns the source feeding a microwave channel.
func (c *Channel) MicrowaveSource() board.MicrowaveSource {
	if c.Kind != Microwave {
		panic("not a microwave channel")
	}

	return c.microwave.source
}

// ConfigMicrowavesOn turns the channel's source on. Every block is
// re-deconvolved on the next build since the carrier may have changed.
func (c *Channel) ConfigMicrowavesOn(freqGHz, powerDBm float64) error {
	if err := c.require(Microwave); err != nil {
		return err
	}

	cfg := MicrowavesOn(freqGHz, powerDBm)
	c.microwave.config = &cfg

	for _, d := range c.microwave.blocks {
		d.Invalidate()
	}

	return nil
}

// ConfigMicrowavesOff turns the channel's source off.
func (c *Channel) ConfigMicrowavesOff() error {
	if err := c.require(Microwave); err != nil {
		return err
	}

	cfg := MicrowavesOff()
	c.microwave.config = &cfg

	return nil
}

// MicrowaveConfig returns the source configuration of the channel.
func (c *Channel) MicrowaveConfig() (MicrowaveConfig, error) {
	if err := c.require(Microwave); err != nil {
		return MicrowaveConfig{}, err
	}

	if c.microwave.config == nil {
		return MicrowaveConfig{}, fmt.Errorf("%w %s", ErrNoMicrowaveConfig, c.ID())
	}

	return *c.microwave.config, nil
}

// AddIqData sets the data of the current block.
func (c *Channel) AddIqData(d *channeldata.Iq, blockLen int) error {
	if err := c.require(Microwave); err != nil {
		return err
	}

	if err := c.requireBlock(); err != nil {
		return err
	}

	if err := d.CheckLength(blockLen); err != nil {
		return fmt.Errorf("%s block %s: %w", c.ID(), c.currentBlock, err)
	}

	c.microwave.blocks[c.currentBlock] = d

	return nil
}

// IqData returns the data of a block, creating zero data of blockLen
// samples when none was given.
func (c *Channel) IqData(block string, blockLen int) *channeldata.Iq {
	d, ok := c.microwave.blocks[block]
	if !ok {
		d = channeldata.ZeroIq(blockLen)
		c.microwave.blocks[block] = d
	}

	return d
}

// TriggerID returns the output of a trigger channel.
func (c *Channel) TriggerID() board.TriggerID {
	if c.Kind != Trigger {
		panic("not a trigger channel")
	}

	return c.trigger.id
}

// AddTriggerData sets the data of the current block.
func (c *Channel) AddTriggerData(d *channeldata.Trigger, blockLen int) error {
	if err := c.require(Trigger); err != nil {
		return err
	}

	if err := c.requireBlock(); err != nil {
		return err
	}

	if err := d.CheckLength(blockLen); err != nil {
		return fmt.Errorf("%s block %s: %w", c.ID(), c.currentBlock, err)
	}

	c.trigger.blocks[c.currentBlock] = d

	return nil
}

// AddPulse raises the trigger for length samples from start in the current
// block. The pulse is clipped to the block.
func (c *Channel) AddPulse(start, length, blockLen int) error {
	if err := c.require(Trigger); err != nil {
		return err
	}

	if err := c.requireBlock(); err != nil {
		return err
	}

	bits := c.TriggerData(c.currentBlock, blockLen).Bits()

	start = max(0, start)
	end := min(len(bits), start+length)

	for i := start; i < end; i++ {
		bits[i] = true
	}

	return nil
}

// TriggerData returns the data of a block, creating an idle block of
// blockLen samples when none was given.
func (c *Channel) TriggerData(block string, blockLen int) *channeldata.Trigger {
	d, ok := c.trigger.blocks[block]
	if !ok {
		d = channeldata.ZeroTrigger(blockLen)
		c.trigger.blocks[block] = d
	}

	return d
}

// Fiber returns the DAC fiber of a bias channel.
func (c *Channel) Fiber() board.FiberID {
	if c.bias == nil {
		panic("not a bias channel")
	}

	return c.bias.fiber
}

// BiasLink returns the bias card channel reached by a bias channel.
func (c *Channel) BiasLink() board.BiasLink {
	if c.bias == nil {
		panic("not a bias channel")
	}

	return c.bias.link
}

// SetPreampConfig configures the preamp behind a fiber bias channel.
func (c *Channel) SetPreampConfig(offset int64, polarity bool, highPass, lowPass string) error {
	if err := c.require(FiberBias); err != nil {
		return err
	}

	cfg, err := NewPreampConfig(offset, polarity, highPass, lowPass)
	if err != nil {
		return fmt.Errorf("%s: %w", c.ID(), err)
	}

	c.bias.preamp = &cfg

	return nil
}

// PreampConfig returns the preamp configuration, if one was set.
func (c *Channel) PreampConfig() (PreampConfig, bool) {
	if c.Kind != FiberBias || c.bias.preamp == nil {
		return PreampConfig{}, false
	}

	return *c.bias.preamp, true
}

// SetSwitchIntervals sets the intervals, in microseconds, used to process
// the channel's timing results.
func (c *Channel) SetSwitchIntervals(intervals [][2]float64) error {
	if err := c.require(FiberBias); err != nil {
		return err
	}

	for _, in := range intervals {
		if in[0] > in[1] {
			return fmt.Errorf("%s: switch interval %v is reversed: %w",
				c.ID(), in, ErrInvalidArgument)
		}
	}

	c.bias.intervals = intervals

	return nil
}

// SwitchIntervals returns the switching intervals of a fiber bias channel.
func (c *Channel) SwitchIntervals() [][2]float64 {
	if c.Kind != FiberBias {
		return nil
	}

	return c.bias.intervals
}

// SetBias sets the voltage a serial bias channel applies through one of
// the bias card's DACs.
func (c *Channel) SetBias(dac string, volts float64) error {
	if err := c.require(SerialBias); err != nil {
		return err
	}

	cfg, err := NewSerialBiasConfig(dac, volts)
	if err != nil {
		return fmt.Errorf("%s: %w", c.ID(), err)
	}

	c.bias.voltage = &cfg

	return nil
}

// SerialBiasConfig returns the voltage configuration, if one was set.
func (c *Channel) SerialBiasConfig() (SerialBiasConfig, bool) {
	if c.Kind != SerialBias || c.bias.voltage == nil {
		return SerialBiasConfig{}, false
	}

	return *c.bias.voltage, true
}

// Adc returns the readout configuration of an ADC channel.
func (c *Channel) Adc() (*AdcConfig, error) {
	if err := c.require(AdcReadout); err != nil {
		return nil, err
	}

	return c.adc, nil
}
