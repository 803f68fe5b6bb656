package experiment

import (
	"fmt"

	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/channeldata"
)

// Pulse is a trigger pulse in nanoseconds from the start of a block.
type Pulse struct {
	Start  int
	Length int
}

// NewSramBlock declares a block of length samples on the board of a
// channel and makes it the channel's current block.
func (e *Experiment) NewSramBlock(name string, length int, id string) error {
	ch, err := e.lookupKind(id, channel.Analog, channel.Microwave, channel.Trigger)
	if err != nil {
		return err
	}

	if err := e.dacOf(ch).StartSramBlock(name, length); err != nil {
		return err
	}

	if err := ch.SetCurrentBlock(name); err != nil {
		return err
	}

	e.dirty.Sram = true

	return nil
}

// SramDualBlockDelay sets the delay between the blocks of the dual-block
// call on every board.
func (e *Experiment) SramDualBlockDelay(ns float64) {
	for _, d := range e.memoryDacs() {
		d.Controller().SetSramDualBlockDelay(ns)
	}

	e.dirty.Sram = true
}

// currentBlock returns the channel and the length of its current block.
func (e *Experiment) currentBlock(id string, kind channel.Kind) (*channel.Channel, int, error) {
	ch, err := e.lookupKind(id, kind)
	if err != nil {
		return nil, 0, err
	}

	if ch.CurrentBlock() == "" {
		return nil, 0, fmt.Errorf("%s: %w", ch.ID(), channel.ErrNoBlock)
	}

	n, err := e.dacOf(ch).BlockLength(ch.CurrentBlock())
	if err != nil {
		return nil, 0, err
	}

	e.dirty.Sram = true

	return ch, n, nil
}

// SramAnalogData sets time domain samples of the current block of an
// analog channel. Deconvolved samples are used as they are.
func (e *Experiment) SramAnalogData(id string, samples []float64, deconvolved bool) error {
	ch, n, err := e.currentBlock(id, channel.Analog)
	if err != nil {
		return err
	}

	return ch.AddAnalogData(channeldata.NewAnalogTime(samples, deconvolved), n)
}

// SramAnalogDataFourier sets the spectrum of the current block of an
// analog channel, shifted by t0 nanoseconds.
func (e *Experiment) SramAnalogDataFourier(id string, spectrum []complex128, t0 float64) error {
	ch, n, err := e.currentBlock(id, channel.Analog)
	if err != nil {
		return err
	}

	return ch.AddAnalogData(channeldata.NewAnalogFourier(spectrum, t0), n)
}

// SramIqData sets time domain I/Q samples of the current block of a
// microwave channel.
func (e *Experiment) SramIqData(id string, samples []complex128, deconvolved bool) error {
	ch, n, err := e.currentBlock(id, channel.Microwave)
	if err != nil {
		return err
	}

	return ch.AddIqData(channeldata.NewIqTime(samples, deconvolved), n)
}

// SramIqDataFourier sets the I/Q spectrum of the current block of a
// microwave channel, shifted by t0 nanoseconds.
func (e *Experiment) SramIqDataFourier(id string, spectrum []complex128, t0 float64) error {
	ch, n, err := e.currentBlock(id, channel.Microwave)
	if err != nil {
		return err
	}

	return ch.AddIqData(channeldata.NewIqFourier(spectrum, t0), n)
}

// SramTriggerData sets the trigger output of the current block.
func (e *Experiment) SramTriggerData(id string, bits []bool) error {
	ch, n, err := e.currentBlock(id, channel.Trigger)
	if err != nil {
		return err
	}

	return ch.AddTriggerData(channeldata.NewTrigger(bits), n)
}

// SramTriggerPulses raises the trigger output of the current block for
// each pulse.
func (e *Experiment) SramTriggerPulses(id string, pulses []Pulse) error {
	ch, n, err := e.currentBlock(id, channel.Trigger)
	if err != nil {
		return err
	}

	for _, p := range pulses {
		if err := ch.AddPulse(p.Start, p.Length, n); err != nil {
			return err
		}
	}

	return nil
}
