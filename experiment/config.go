package experiment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/fpga"
	"github.com/sarchlab/fpgaseq/packet"
)

// ClearConfig drops setup packets, the timing order, the automatic trigger,
// the loop delay and every channel's configuration.
func (e *Experiment) ClearConfig() {
	e.setups = nil
	e.timingOrder = nil
	e.autoTrigger = fpga.AutoTrigger{}
	e.loopDelay = nil

	for _, ch := range e.channels {
		ch.ClearConfig()
	}

	e.dirty.Config = true
}

// ConfigMicrowaves turns on the source feeding a microwave channel.
func (e *Experiment) ConfigMicrowaves(id string, freqGHz, powerDBm float64) error {
	ch, err := e.lookupKind(id, channel.Microwave)
	if err != nil {
		return err
	}

	if err := ch.ConfigMicrowavesOn(freqGHz, powerDBm); err != nil {
		return err
	}

	e.dirty.Config = true

	return nil
}

// ConfigMicrowavesOff turns off the source feeding a microwave channel.
func (e *Experiment) ConfigMicrowavesOff(id string) error {
	ch, err := e.lookupKind(id, channel.Microwave)
	if err != nil {
		return err
	}

	if err := ch.ConfigMicrowavesOff(); err != nil {
		return err
	}

	e.dirty.Config = true

	return nil
}

// ConfigPreamp sets the preamp of a fiber bias channel.
func (e *Experiment) ConfigPreamp(id string, offset int64, polarity bool, highPass, lowPass string) error {
	ch, err := e.lookupKind(id, channel.FiberBias)
	if err != nil {
		return err
	}

	if err := ch.SetPreampConfig(offset, polarity, highPass, lowPass); err != nil {
		return err
	}

	e.dirty.Config = true

	return nil
}

// ConfigSettling sets the settling rates and times of an analog channel.
func (e *Experiment) ConfigSettling(id string, rates, times []float64) error {
	ch, err := e.lookupKind(id, channel.Analog)
	if err != nil {
		return err
	}

	if err := ch.SetSettling(rates, times); err != nil {
		return err
	}

	e.dirty.Config = true

	return nil
}

// ConfigReflection sets the reflection rates and amplitudes of an analog
// channel.
func (e *Experiment) ConfigReflection(id string, rates, amplitudes []float64) error {
	ch, err := e.lookupKind(id, channel.Analog)
	if err != nil {
		return err
	}

	if err := ch.SetReflection(rates, amplitudes); err != nil {
		return err
	}

	e.dirty.Config = true

	return nil
}

// ConfigTimingOrder sets the channels timing results are returned for. An
// ADC id may end in "::n" to select demodulator n.
func (e *Experiment) ConfigTimingOrder(ids ...string) error {
	items := make([]TimingItem, 0, len(ids))

	for _, id := range ids {
		sub := -1

		if i := strings.LastIndex(id, "::"); i >= 0 {
			n, err := strconv.Atoi(id[i+2:])
			if err != nil {
				return fmt.Errorf("timing order %q: %w", id, channel.ErrInvalidArgument)
			}

			sub = n
			id = id[:i]
		}

		ch, err := e.lookupKind(id, channel.AdcReadout, channel.FiberBias)
		if err != nil {
			return err
		}

		items = append(items, TimingItem{Channel: e.ids[ch.ID()], Sub: sub})
	}

	e.timingOrder = items
	e.dirty.Config = true

	return nil
}

// TimingOrder returns the boards timing results come from. ADC entries
// with a demodulator are named "board::n".
func (e *Experiment) TimingOrder() []string {
	items := e.timingOrder
	if items == nil {
		for i, ch := range e.channels {
			if ch.Kind.IsTiming() {
				items = append(items, TimingItem{Channel: i, Sub: -1})
			}
		}
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		name := e.channels[it.Channel].Board.Name
		if it.Sub >= 0 {
			name = fmt.Sprintf("%s::%d", name, it.Sub)
		}

		out = append(out, name)
	}

	return out
}

// ConfigSetupPackets replaces the setup packets sent before the sequence
// runs.
func (e *Experiment) ConfigSetupPackets(setups ...packet.Setup) {
	e.setups = append([]packet.Setup(nil), setups...)
	e.dirty.Config = true
}

// ConfigAutoTrigger adds a trigger pulse of lengthNs at the start of every
// block on every board. A non-positive length selects the default.
func (e *Experiment) ConfigAutoTrigger(trigger string, lengthNs int) error {
	id, err := board.ParseTriggerID(trigger)
	if err != nil {
		return err
	}

	if lengthNs <= 0 {
		lengthNs = e.autoTriggerLength
	}

	e.autoTrigger = fpga.AutoTrigger{Enabled: true, ID: id, Length: lengthNs}
	e.dirty.Config = true

	return nil
}

// AutoTrigger returns the automatic trigger setting.
func (e *Experiment) AutoTrigger() fpga.AutoTrigger {
	return e.autoTrigger
}

// ConfigSwitchIntervals sets the switching intervals of a fiber bias
// channel, in microseconds.
func (e *Experiment) ConfigSwitchIntervals(id string, intervals [][2]float64) error {
	ch, err := e.lookupKind(id, channel.FiberBias)
	if err != nil {
		return err
	}

	return ch.SetSwitchIntervals(intervals)
}

// ConfigBiasVoltage sets the voltage of a serial bias channel.
func (e *Experiment) ConfigBiasVoltage(id, dac string, volts float64) error {
	ch, err := e.lookupKind(id, channel.SerialBias)
	if err != nil {
		return err
	}

	if err := ch.SetBias(dac, volts); err != nil {
		return err
	}

	e.dirty.Config = true

	return nil
}

// ConfigLoopDelay sets the delay between repetitions, in microseconds.
func (e *Experiment) ConfigLoopDelay(us float64) {
	e.loopDelay = &us
	e.dirty.Config = true
}

// LoopDelay returns the loop delay and whether it was set.
func (e *Experiment) LoopDelay() (float64, bool) {
	if e.loopDelay == nil {
		return 0, false
	}

	return *e.loopDelay, true
}

// SetStartDelay sets the start delay of the board a channel plays on, in
// units of 4 ns.
func (e *Experiment) SetStartDelay(id string, delay int) error {
	ch, err := e.lookupKind(id, channel.AdcReadout, channel.Analog, channel.Microwave)
	if err != nil {
		return err
	}

	if ch.Kind == channel.AdcReadout {
		e.adcs[ch.Fpga].SetStartDelay(delay)
	} else {
		e.dacOf(ch).SetStartDelay(delay)
	}

	e.dirty.Config = true

	return nil
}

func (e *Experiment) adcConfig(id string) (*channel.AdcConfig, error) {
	ch, err := e.lookupKind(id, channel.AdcReadout)
	if err != nil {
		return nil, err
	}

	e.dirty.Config = true

	return ch.Adc()
}

// AdcSetAverage puts an ADC channel in average mode.
func (e *Experiment) AdcSetAverage(id string) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	cfg.SetToAverage()

	return nil
}

// AdcSetDemodulate puts an ADC channel in demodulate mode on demodulator
// demodCh.
func (e *Experiment) AdcSetDemodulate(id string, demodCh int) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	return cfg.SetToDemodulate(demodCh)
}

// AdcSetFilterFunction sets the filter of a demodulating ADC channel.
func (e *Experiment) AdcSetFilterFunction(id, filter string, stretchLen, stretchAt int) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	return cfg.SetFilterFunction(filter, stretchLen, stretchAt)
}

// AdcSetTrigMagnitude sets the sine and cosine amplitudes of the
// demodulator.
func (e *Experiment) AdcSetTrigMagnitude(id string, ampSin, ampCos int) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	return cfg.SetTrigMagnitude(ampSin, ampCos)
}

// AdcSetPhaseSteps sets the demodulator phase in raw units.
func (e *Experiment) AdcSetPhaseSteps(id string, dPhi, phi0 int) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	return cfg.SetPhaseSteps(dPhi, phi0)
}

// AdcSetPhase sets the demodulator phase from a frequency in Hz and a
// phase in radians.
func (e *Experiment) AdcSetPhase(id string, freqHz, phase float64) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	return cfg.SetPhase(freqHz, phase)
}

// AdcSetTriggerTable sets the trigger table of an ADC channel.
func (e *Experiment) AdcSetTriggerTable(id string, table []channel.TriggerTableEntry) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	cfg.SetTriggerTable(table)

	return nil
}

// AdcSetMixerTable sets the mixer table of an ADC channel.
func (e *Experiment) AdcSetMixerTable(id string, table []channel.MixerEntry) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	cfg.SetMixerTable(table)

	return nil
}

// ConfigCriticalPhase sets the phase readout results are compared to.
func (e *Experiment) ConfigCriticalPhase(id string, phase float64) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	return cfg.SetCriticalPhase(phase)
}

// ReverseCriticalPhase flips the comparison against the critical phase.
func (e *Experiment) ReverseCriticalPhase(id string, reverse bool) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	cfg.ReverseCriticalPhase(reverse)

	return nil
}

// SetIqOffset sets the I/Q offsets of an ADC channel.
func (e *Experiment) SetIqOffset(id string, offsetI, offsetQ int) error {
	cfg, err := e.adcConfig(id)
	if err != nil {
		return err
	}

	cfg.SetIqOffset(offsetI, offsetQ)

	return nil
}
