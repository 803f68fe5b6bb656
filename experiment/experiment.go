// Package experiment aggregates the devices, channels and board models of
// one sequence and compiles them into the packets sent to the boards.
//
// An Experiment owns every channel and board model in flat slices. Channels
// refer to their board model by index, so there are no reference cycles.
// Mutating calls mark the compiled sequence dirty; Build clears the flags.
package experiment

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/config"
	"github.com/sarchlab/fpgaseq/deconv"
	"github.com/sarchlab/fpgaseq/fpga"
	"github.com/sarchlab/fpgaseq/packet"
)

var (
	// ErrUnknownChannel is returned when a channel id does not name a
	// channel of the experiment.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrUnknownBoard is returned when a channel names a board that was
	// not given to the builder.
	ErrUnknownBoard = errors.New("unknown board")

	// ErrUnknownSource is returned when a microwave board is fed by a
	// source that was not given to the builder.
	ErrUnknownSource = errors.New("unknown microwave source")

	// ErrConflictingMicrowaveConfig is returned when channels sharing a
	// microwave source configure it differently.
	ErrConflictingMicrowaveConfig = errors.New("conflicting microwave configurations")
)

// ChannelSpec describes one channel of a device. Dac, Trigger and Fiber
// apply to analog, trigger and bias channels.
type ChannelSpec struct {
	Name    string
	Kind    channel.Kind
	Board   string
	Dac     board.AnalogID
	Trigger board.TriggerID
	Fiber   board.FiberID
}

// Device is a named group of channels, usually one qubit.
type Device struct {
	Name     string
	Channels []ChannelSpec
}

// TimingItem is one entry of the timing order. Sub selects a demodulator of
// an ADC channel, or is -1.
type TimingItem struct {
	Channel int
	Sub     int
}

// Flags tracks which parts of the compiled sequence are stale.
type Flags struct {
	Config bool
	Memory bool
	Sram   bool
}

// Any tells if any part is stale.
func (f Flags) Any() bool {
	return f.Config || f.Memory || f.Sram
}

// An Experiment is the sequence being built for a set of devices.
type Experiment struct {
	logger     *slog.Logger
	dispatcher *deconv.Dispatcher

	devices  []Device
	channels []*channel.Channel
	ids      map[string]int

	dacs        []*fpga.Dac
	adcs        []*fpga.Adc
	fpgaOrder   []string
	timerBoards map[int]bool
	sources     map[string]board.MicrowaveSource

	blocks *fpga.Directory

	autoTrigger       fpga.AutoTrigger
	autoTriggerLength int
	setups            []packet.Setup
	timingOrder       []TimingItem
	loopDelay         *float64

	dirty Flags
}

// Builder creates experiments.
type Builder struct {
	boards            map[string]*board.Board
	sources           map[string]board.MicrowaveSource
	dispatcher        *deconv.Dispatcher
	logger            *slog.Logger
	autoTriggerLength int
}

// NewBuilder returns a builder with the default automatic trigger length.
func NewBuilder() Builder {
	return Builder{autoTriggerLength: config.DefaultAutoTriggerLengthNs}
}

// WithBoards adds boards the experiment may use.
func (b Builder) WithBoards(boards ...*board.Board) Builder {
	m := make(map[string]*board.Board, len(b.boards)+len(boards))
	for k, v := range b.boards {
		m[k] = v
	}

	for _, bd := range boards {
		m[bd.Name] = bd
	}

	b.boards = m

	return b
}

// WithMicrowaveSources adds the sources feeding microwave boards.
func (b Builder) WithMicrowaveSources(srcs ...board.MicrowaveSource) Builder {
	m := make(map[string]board.MicrowaveSource, len(b.sources)+len(srcs))
	for k, v := range b.sources {
		m[k] = v
	}

	for _, s := range srcs {
		m[s.Name] = s
	}

	b.sources = m

	return b
}

// WithDispatcher sets the dispatcher deconvolution requests go through.
func (b Builder) WithDispatcher(d *deconv.Dispatcher) Builder {
	b.dispatcher = d
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// WithAutoTriggerLength sets the automatic trigger length used when none
// is configured.
func (b Builder) WithAutoTriggerLength(ns int) Builder {
	b.autoTriggerLength = ns
	return b
}

// Build creates an experiment for the devices.
func (b Builder) Build(devices ...Device) (*Experiment, error) {
	e := &Experiment{
		logger:            b.logger,
		dispatcher:        b.dispatcher,
		devices:           devices,
		ids:               make(map[string]int),
		timerBoards:       make(map[int]bool),
		sources:           b.sources,
		blocks:            fpga.NewDirectory("experiment"),
		autoTriggerLength: b.autoTriggerLength,
		dirty:             Flags{Config: true, Memory: true, Sram: true},
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	if e.dispatcher == nil {
		e.dispatcher = deconv.DispatcherBuilder{}.WithLogger(e.logger).Build(deconv.DryRun{})
	}

	dacIndex := make(map[string]int)
	adcIndex := make(map[string]int)

	for _, dev := range devices {
		for _, spec := range dev.Channels {
			bd, ok := b.boards[spec.Board]
			if !ok {
				return nil, fmt.Errorf("%s.%s: board %q: %w", dev.Name, spec.Name, spec.Board, ErrUnknownBoard)
			}

			ch, err := b.newChannel(dev.Name, spec, bd)
			if err != nil {
				return nil, err
			}

			idx := len(e.channels)
			if _, dup := e.ids[ch.ID()]; dup {
				return nil, fmt.Errorf("channel %s declared twice: %w", ch.ID(), channel.ErrInvalidArgument)
			}

			e.channels = append(e.channels, ch)
			e.ids[ch.ID()] = idx

			if err := e.bind(ch, idx, dacIndex, adcIndex); err != nil {
				return nil, err
			}
		}
	}

	e.logger.Debug("experiment created",
		"devices", len(devices), "channels", len(e.channels),
		"dacs", len(e.dacs), "adcs", len(e.adcs))

	return e, nil
}

func (b Builder) newChannel(device string, spec ChannelSpec, bd *board.Board) (*channel.Channel, error) {
	switch spec.Kind {
	case channel.Analog:
		return channel.NewAnalog(device, spec.Name, bd, spec.Dac), nil
	case channel.Microwave:
		src, ok := b.sources[bd.MicrowaveSource]
		if !ok {
			return nil, fmt.Errorf("%s.%s: board %s source %q: %w",
				device, spec.Name, bd.Name, bd.MicrowaveSource, ErrUnknownSource)
		}

		return channel.NewMicrowave(device, spec.Name, bd, src), nil
	case channel.Trigger:
		return channel.NewTrigger(device, spec.Name, bd, spec.Trigger), nil
	case channel.FiberBias:
		return channel.NewFiberBias(device, spec.Name, bd, spec.Fiber), nil
	case channel.SerialBias:
		return channel.NewSerialBias(device, spec.Name, bd, spec.Fiber), nil
	case channel.AdcReadout:
		return channel.NewAdc(device, spec.Name, bd), nil
	default:
		panic("invalid channel kind")
	}
}

func (e *Experiment) bind(ch *channel.Channel, idx int, dacIndex, adcIndex map[string]int) error {
	bd := ch.Board

	if ch.Kind == channel.SerialBias {
		return nil
	}

	if ch.Kind == channel.AdcReadout {
		if bd.Family != board.Adc {
			return fmt.Errorf("%s on %s: %w", ch.ID(), bd, board.ErrWrongFamily)
		}

		a, ok := adcIndex[bd.Name]
		if !ok {
			a = len(e.adcs)
			adcIndex[bd.Name] = a
			e.adcs = append(e.adcs, fpga.NewAdc(bd))
			e.fpgaOrder = append(e.fpgaOrder, bd.Name)
		}

		ch.Fpga = a
		e.adcs[a].BindChannel(idx)

		return nil
	}

	if !bd.Family.IsDac() {
		return fmt.Errorf("%s on %s: %w", ch.ID(), bd, board.ErrWrongFamily)
	}

	d, ok := dacIndex[bd.Name]
	if !ok {
		d = len(e.dacs)
		dacIndex[bd.Name] = d
		e.dacs = append(e.dacs, fpga.NewDac(bd, e.blocks))
		e.fpgaOrder = append(e.fpgaOrder, bd.Name)
	}

	ch.Fpga = d
	m := e.dacs[d]

	switch ch.Kind {
	case channel.Analog:
		return m.BindAnalog(idx, ch.Dac())
	case channel.Microwave:
		return m.BindIq(idx)
	case channel.Trigger:
		return m.BindTrigger(idx, ch.TriggerID())
	case channel.FiberBias:
		e.timerBoards[d] = true
	}

	return nil
}

// Channel returns the channel at index i of the arena.
func (e *Experiment) Channel(i int) *channel.Channel {
	return e.channels[i]
}

// Channels returns every channel in declaration order.
func (e *Experiment) Channels() []*channel.Channel {
	return e.channels
}

// Dacs returns the DAC board models.
func (e *Experiment) Dacs() []*fpga.Dac {
	return e.dacs
}

// Adcs returns the ADC board models.
func (e *Experiment) Adcs() []*fpga.Adc {
	return e.adcs
}

// Dac returns the model of a DAC board by name.
func (e *Experiment) Dac(name string) (*fpga.Dac, error) {
	for _, d := range e.dacs {
		if d.Name() == name {
			return d, nil
		}
	}

	return nil, fmt.Errorf("DAC %q: %w", name, ErrUnknownBoard)
}

// Blocks returns the experiment-wide block directory.
func (e *Experiment) Blocks() *fpga.Directory {
	return e.blocks
}

// FpgaNames returns the boards of the experiment in the order they were
// first used.
func (e *Experiment) FpgaNames() []string {
	return e.fpgaOrder
}

// Dirty returns the stale parts of the compiled sequence.
func (e *Experiment) Dirty() Flags {
	return e.dirty
}

// Lookup finds a channel by "device.channel" id. A bare device name finds
// the device's only channel.
func (e *Experiment) Lookup(id string) (*channel.Channel, error) {
	if idx, ok := e.ids[id]; ok {
		return e.channels[idx], nil
	}

	if !strings.Contains(id, ".") {
		var found *channel.Channel
		for _, ch := range e.channels {
			if ch.Device != id {
				continue
			}

			if found != nil {
				return nil, fmt.Errorf("device %q has several channels: %w", id, ErrUnknownChannel)
			}

			found = ch
		}

		if found != nil {
			return found, nil
		}
	}

	return nil, fmt.Errorf("%q: %w", id, ErrUnknownChannel)
}

func (e *Experiment) lookupKind(id string, kinds ...channel.Kind) (*channel.Channel, error) {
	ch, err := e.Lookup(id)
	if err != nil {
		return nil, err
	}

	for _, k := range kinds {
		if ch.Kind == k {
			return ch, nil
		}
	}

	return nil, fmt.Errorf("%s is a %s channel: %w", ch.ID(), ch.Kind, channel.ErrWrongKind)
}

// dacOf returns the model of the board a DAC channel is bound to.
func (e *Experiment) dacOf(ch *channel.Channel) *fpga.Dac {
	return e.dacs[ch.Fpga]
}

// memoryDacs returns the DAC boards sequenced by memory programs.
func (e *Experiment) memoryDacs() []*fpga.Dac {
	var out []*fpga.Dac
	for _, d := range e.dacs {
		if !d.Board.UsesJumpTable() {
			out = append(out, d)
		}
	}

	return out
}
