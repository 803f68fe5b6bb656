package recipe

import (
	"context"
	"fmt"

	"github.com/sarchlab/fpgaseq/buildinfo"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/experiment"
	"github.com/sarchlab/fpgaseq/packet"
)

// Config is the configuration section of a recipe.
type Config struct {
	AutoTrigger *AutoTrigger `yaml:"autotrigger"`
	TimingOrder []string     `yaml:"timing_order"`
	LoopDelayUs *float64     `yaml:"loop_delay_us"`

	Microwaves []Microwave  `yaml:"microwaves"`
	Settling   []Settling   `yaml:"settling"`
	Reflection []Reflection `yaml:"reflection"`
	Preamps    []Preamp     `yaml:"preamps"`
	Biases     []Bias       `yaml:"bias_voltages"`
	Delays     []StartDelay `yaml:"start_delays"`
	Adcs       []Adc        `yaml:"adcs"`
	Setups     []Setup      `yaml:"setup_packets"`
}

// AutoTrigger adds a trigger pulse to every block.
type AutoTrigger struct {
	Trigger  string `yaml:"trigger"`
	LengthNs int    `yaml:"length_ns"`
}

// Microwave configures a source through one of its channels. A missing
// frequency turns the source off.
type Microwave struct {
	Channel      string   `yaml:"channel"`
	FrequencyGHz *float64 `yaml:"frequency_ghz"`
	PowerDBm     float64  `yaml:"power_dbm"`
}

// Settling sets the settling of an analog channel.
type Settling struct {
	Channel string    `yaml:"channel"`
	Rates   []float64 `yaml:"rates"`
	Times   []float64 `yaml:"times"`
}

// Reflection sets the reflection of an analog channel.
type Reflection struct {
	Channel    string    `yaml:"channel"`
	Rates      []float64 `yaml:"rates"`
	Amplitudes []float64 `yaml:"amplitudes"`
}

// Preamp configures the preamp behind a fiber bias channel.
type Preamp struct {
	Channel   string       `yaml:"channel"`
	Offset    int64        `yaml:"offset"`
	Polarity  bool         `yaml:"polarity"`
	HighPass  string       `yaml:"high_pass"`
	LowPass   string       `yaml:"low_pass"`
	Intervals [][2]float64 `yaml:"switch_intervals"`
}

// Bias sets a serial bias voltage.
type Bias struct {
	Channel string  `yaml:"channel"`
	Dac     string  `yaml:"dac"`
	Volts   float64 `yaml:"volts"`
}

// StartDelay sets the start delay of a channel's board.
type StartDelay struct {
	Channel string `yaml:"channel"`
	Delay   int    `yaml:"delay"`
}

// Adc configures an ADC readout channel.
type Adc struct {
	Channel      string `yaml:"channel"`
	Mode         string `yaml:"mode"`
	DemodChannel int    `yaml:"demod_channel"`

	Filter     string `yaml:"filter"`
	StretchLen int    `yaml:"stretch_len"`
	StretchAt  int    `yaml:"stretch_at"`

	TrigMagnitude *[2]int     `yaml:"trig_magnitude"`
	Phase         *[2]float64 `yaml:"phase"`

	TriggerTable []channel.TriggerTableEntry `yaml:"trigger_table"`
	MixerTable   []channel.MixerEntry        `yaml:"mixer_table"`

	CriticalPhase *float64 `yaml:"critical_phase"`
	Reverse       bool     `yaml:"reverse"`
	IqOffset      *[2]int  `yaml:"iq_offset"`
}

// Setup is a setup packet sent before the sequence runs.
type Setup struct {
	Server  string        `yaml:"server"`
	State   string        `yaml:"state"`
	Records []SetupRecord `yaml:"records"`
}

// SetupRecord is one call of a setup packet.
type SetupRecord struct {
	Name string `yaml:"name"`
	Args []any  `yaml:"args"`
}

// Step is one memory operation. Exactly one field is set.
type Step struct {
	StartTimer *[]string    `yaml:"start_timer"`
	StopTimer  *[]string    `yaml:"stop_timer"`
	DelayUs    *float64     `yaml:"delay_us"`
	DelayOne   *SingleDelay `yaml:"delay_single"`
	Bias       *BiasStep    `yaml:"bias"`
	CallSram   *string      `yaml:"call_sram"`
	CallDual   *[2]string   `yaml:"call_dual_block"`
	SyncDelay  bool         `yaml:"sync_delay"`
	JumpTable  *JumpEntry   `yaml:"jump_table"`
}

// SingleDelay delays the board of one fiber bias channel.
type SingleDelay struct {
	Channel string  `yaml:"channel"`
	Us      float64 `yaml:"us"`
}

// BiasStep is a set of parallel fast bias commands.
type BiasStep struct {
	Commands []experiment.BiasCommand `yaml:"commands"`
	DelayUs  *float64                 `yaml:"delay_us"`
}

// JumpEntry is a jump table entry.
type JumpEntry struct {
	Name string  `yaml:"name"`
	Args []int64 `yaml:"args"`
}

// Sram is the SRAM section of a recipe.
type Sram struct {
	DualBlockDelayNs *float64 `yaml:"dual_block_delay_ns"`
	Blocks           []Block  `yaml:"blocks"`
}

// Block declares one block and the data of its channels.
type Block struct {
	Name     string      `yaml:"name"`
	Length   int         `yaml:"length"`
	Channels []BlockData `yaml:"channels"`
}

// BlockData is the data of one channel in a block. Analog and IQ samples
// are in the time domain; IQ pairs are [I, Q].
type BlockData struct {
	Channel     string       `yaml:"channel"`
	Analog      []float64    `yaml:"analog"`
	Iq          [][2]float64 `yaml:"iq"`
	Deconvolved bool         `yaml:"deconvolved"`
	Bits        []bool       `yaml:"bits"`
	Pulses      [][2]int     `yaml:"pulses"`
}

// Experiment creates the boards of the recipe, loads their build metadata
// from src, builds the experiment with b and applies the recipe to it.
func (r *Recipe) Experiment(
	ctx context.Context,
	src buildinfo.Source,
	b experiment.Builder,
) (*experiment.Experiment, error) {
	boards, err := r.BuildBoards()
	if err != nil {
		return nil, err
	}

	buildinfo.LoadAll(ctx, src, boards, nil)

	devices, err := r.ExperimentDevices()
	if err != nil {
		return nil, err
	}

	e, err := b.WithBoards(boards...).
		WithMicrowaveSources(r.MicrowaveSources()...).
		Build(devices...)
	if err != nil {
		return nil, err
	}

	if err := r.Apply(e); err != nil {
		return nil, err
	}

	return e, nil
}

// Apply replays the configuration, memory and SRAM sections on e.
func (r *Recipe) Apply(e *experiment.Experiment) error {
	if err := r.Config.apply(e); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for i, s := range r.Memory {
		if err := s.apply(e); err != nil {
			return fmt.Errorf("memory step %d: %w", i, err)
		}
	}

	if err := r.Sram.apply(e); err != nil {
		return fmt.Errorf("sram: %w", err)
	}

	return nil
}

func (c Config) apply(e *experiment.Experiment) error {
	for _, m := range c.Microwaves {
		var err error
		if m.FrequencyGHz == nil {
			err = e.ConfigMicrowavesOff(m.Channel)
		} else {
			err = e.ConfigMicrowaves(m.Channel, *m.FrequencyGHz, m.PowerDBm)
		}

		if err != nil {
			return err
		}
	}

	for _, s := range c.Settling {
		if err := e.ConfigSettling(s.Channel, s.Rates, s.Times); err != nil {
			return err
		}
	}

	for _, s := range c.Reflection {
		if err := e.ConfigReflection(s.Channel, s.Rates, s.Amplitudes); err != nil {
			return err
		}
	}

	for _, p := range c.Preamps {
		if p.HighPass != "" || p.LowPass != "" {
			if err := e.ConfigPreamp(p.Channel, p.Offset, p.Polarity, p.HighPass, p.LowPass); err != nil {
				return err
			}
		}

		if p.Intervals != nil {
			if err := e.ConfigSwitchIntervals(p.Channel, p.Intervals); err != nil {
				return err
			}
		}
	}

	for _, b := range c.Biases {
		if err := e.ConfigBiasVoltage(b.Channel, b.Dac, b.Volts); err != nil {
			return err
		}
	}

	for _, d := range c.Delays {
		if err := e.SetStartDelay(d.Channel, d.Delay); err != nil {
			return err
		}
	}

	for _, a := range c.Adcs {
		if err := a.apply(e); err != nil {
			return fmt.Errorf("%s: %w", a.Channel, err)
		}
	}

	if c.AutoTrigger != nil {
		if err := e.ConfigAutoTrigger(c.AutoTrigger.Trigger, c.AutoTrigger.LengthNs); err != nil {
			return err
		}
	}

	if c.TimingOrder != nil {
		if err := e.ConfigTimingOrder(c.TimingOrder...); err != nil {
			return err
		}
	}

	if c.LoopDelayUs != nil {
		e.ConfigLoopDelay(*c.LoopDelayUs)
	}

	if c.Setups != nil {
		setups := make([]packet.Setup, len(c.Setups))
		for i, s := range c.Setups {
			setups[i] = packet.Setup{Server: s.Server, State: s.State}
			for _, rec := range s.Records {
				setups[i].Records = append(setups[i].Records, packet.Record{Name: rec.Name, Args: rec.Args})
			}
		}

		e.ConfigSetupPackets(setups...)
	}

	return nil
}

func (a Adc) apply(e *experiment.Experiment) error {
	var err error

	switch a.Mode {
	case channel.AdcAverage.String():
		err = e.AdcSetAverage(a.Channel)
	case channel.AdcDemodulate.String():
		err = e.AdcSetDemodulate(a.Channel, a.DemodChannel)
	default:
		err = fmt.Errorf("mode %q: %w", a.Mode, channel.ErrAdcMode)
	}

	if err != nil {
		return err
	}

	if a.Filter != "" {
		if err := e.AdcSetFilterFunction(a.Channel, a.Filter, a.StretchLen, a.StretchAt); err != nil {
			return err
		}
	}

	if a.TrigMagnitude != nil {
		if err := e.AdcSetTrigMagnitude(a.Channel, a.TrigMagnitude[0], a.TrigMagnitude[1]); err != nil {
			return err
		}
	}

	if a.Phase != nil {
		if err := e.AdcSetPhase(a.Channel, a.Phase[0], a.Phase[1]); err != nil {
			return err
		}
	}

	if a.TriggerTable != nil {
		if err := e.AdcSetTriggerTable(a.Channel, a.TriggerTable); err != nil {
			return err
		}
	}

	if a.MixerTable != nil {
		if err := e.AdcSetMixerTable(a.Channel, a.MixerTable); err != nil {
			return err
		}
	}

	if a.CriticalPhase != nil {
		if err := e.ConfigCriticalPhase(a.Channel, *a.CriticalPhase); err != nil {
			return err
		}
	}

	if err := e.ReverseCriticalPhase(a.Channel, a.Reverse); err != nil {
		return err
	}

	if a.IqOffset != nil {
		return e.SetIqOffset(a.Channel, a.IqOffset[0], a.IqOffset[1])
	}

	return nil
}

func (s Step) apply(e *experiment.Experiment) error {
	ops := 0
	var run func() error

	set := func(ok bool, f func() error) {
		if ok {
			ops++
			run = f
		}
	}

	set(s.StartTimer != nil, func() error { return e.MemStartTimer(*s.StartTimer...) })
	set(s.StopTimer != nil, func() error { return e.MemStopTimer(*s.StopTimer...) })
	set(s.DelayUs != nil, func() error { return e.MemDelay(*s.DelayUs) })
	set(s.DelayOne != nil, func() error { return e.MemDelaySingle(s.DelayOne.Channel, s.DelayOne.Us) })
	set(s.CallSram != nil, func() error { return e.MemCallSram(*s.CallSram) })
	set(s.CallDual != nil, func() error { return e.MemCallSramDualBlock(s.CallDual[0], s.CallDual[1]) })
	set(s.SyncDelay, e.MemSyncDelay)
	set(s.JumpTable != nil, func() error { return e.JumpTableAddEntry(s.JumpTable.Name, s.JumpTable.Args) })
	set(s.Bias != nil, func() error {
		delay := experiment.DefaultBiasDelayUs
		if s.Bias.DelayUs != nil {
			delay = *s.Bias.DelayUs
		}

		return e.MemBias(s.Bias.Commands, delay)
	})

	if ops != 1 {
		return ErrBadStep
	}

	return run()
}

func (s Sram) apply(e *experiment.Experiment) error {
	for _, b := range s.Blocks {
		for _, d := range b.Channels {
			if err := d.apply(e, b); err != nil {
				return fmt.Errorf("block %s, %s: %w", b.Name, d.Channel, err)
			}
		}
	}

	if s.DualBlockDelayNs != nil {
		e.SramDualBlockDelay(*s.DualBlockDelayNs)
	}

	return nil
}

func (d BlockData) apply(e *experiment.Experiment, b Block) error {
	if err := e.NewSramBlock(b.Name, b.Length, d.Channel); err != nil {
		return err
	}

	if d.Analog != nil {
		if err := e.SramAnalogData(d.Channel, d.Analog, d.Deconvolved); err != nil {
			return err
		}
	}

	if d.Iq != nil {
		samples := make([]complex128, len(d.Iq))
		for i, p := range d.Iq {
			samples[i] = complex(p[0], p[1])
		}

		if err := e.SramIqData(d.Channel, samples, d.Deconvolved); err != nil {
			return err
		}
	}

	if d.Bits != nil {
		if err := e.SramTriggerData(d.Channel, d.Bits); err != nil {
			return err
		}
	}

	if d.Pulses != nil {
		pulses := make([]experiment.Pulse, len(d.Pulses))
		for i, p := range d.Pulses {
			pulses[i] = experiment.Pulse{Start: p[0], Length: p[1]}
		}

		return e.SramTriggerPulses(d.Channel, pulses)
	}

	return nil
}
