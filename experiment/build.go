package experiment

import (
	"context"
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/config"
	"github.com/sarchlab/fpgaseq/deconv"
	"github.com/sarchlab/fpgaseq/packet"
)

// Build checks the cross-board invariants, waits for every pending
// deconvolution and assembles the setup packets and the run request. No
// batch is returned if any step fails.
func (e *Experiment) Build(ctx context.Context) (*packet.Batch, error) {
	for _, d := range e.memoryDacs() {
		if err := d.Controller().CheckTimerStatus(); err != nil {
			return nil, err
		}
	}

	batch := &packet.Batch{}
	batch.Setups = append(batch.Setups, e.setups...)

	uwave, err := e.microwaveSetups()
	if err != nil {
		return nil, err
	}

	batch.Setups = append(batch.Setups, uwave...)
	batch.Setups = append(batch.Setups, e.biasSetups()...)

	if err := e.deconvolve(ctx); err != nil {
		return nil, err
	}

	req := &batch.Request

	for _, a := range e.adcs {
		if err := a.AddPackets(req, e); err != nil {
			return nil, err
		}
	}

	for _, d := range e.dacs {
		if err := d.AddPackets(req, e, e.autoTrigger); err != nil {
			return nil, err
		}

		if e.loopDelay != nil {
			req.Add(packet.LoopDelay, *e.loopDelay)
		}
	}

	req.Add(packet.DaisyChain, e.FpgaNames())
	req.Add(packet.TimingOrder, e.TimingOrder())

	e.logger.Debug("sequence built",
		"setups", len(batch.Setups), "records", len(req.Records), "boards", len(e.fpgaOrder))

	e.dirty = Flags{}

	return batch, nil
}

// microwaveSetups returns one setup per microwave source. Channels sharing a
// source must agree on its configuration. Sources of microwave boards with
// no configured channel are turned off.
func (e *Experiment) microwaveSetups() ([]packet.Setup, error) {
	var order []string
	configs := make(map[string]channel.MicrowaveConfig)
	sources := make(map[string]board.MicrowaveSource)

	for _, ch := range e.channels {
		if ch.Kind != channel.Microwave {
			continue
		}

		cfg, err := ch.MicrowaveConfig()
		if err != nil {
			return nil, err
		}

		src := ch.MicrowaveSource()

		seen, ok := configs[src.Name]
		if !ok {
			order = append(order, src.Name)
			configs[src.Name] = cfg
			sources[src.Name] = src

			continue
		}

		if seen != cfg {
			return nil, fmt.Errorf("source %q: %w", src.Name, ErrConflictingMicrowaveConfig)
		}
	}

	for _, d := range e.dacs {
		name := d.Board.MicrowaveSource
		if d.Board.Family != board.Microwave || name == "" {
			continue
		}

		if _, ok := configs[name]; ok {
			continue
		}

		src, ok := e.sources[name]
		if !ok {
			return nil, fmt.Errorf("board %s source %q: %w", d.Name(), name, ErrUnknownSource)
		}

		order = append(order, name)
		configs[name] = channel.MicrowavesOff()
		sources[name] = src
	}

	setups := make([]packet.Setup, 0, len(order))
	for _, name := range order {
		s := configs[name].Setup(sources[name])
		config.Trace(e.logger, "microwave setup", "source", name, "state", s.State)
		setups = append(setups, s)
	}

	return setups, nil
}

// biasSetups returns the DC rack setups of preamp and serial bias channels.
func (e *Experiment) biasSetups() []packet.Setup {
	var preamps, serials []packet.Setup

	for _, ch := range e.channels {
		switch ch.Kind {
		case channel.FiberBias:
			if cfg, ok := ch.PreampConfig(); ok {
				preamps = append(preamps, cfg.Setup(ch.BiasLink()))
			}
		case channel.SerialBias:
			if cfg, ok := ch.SerialBiasConfig(); ok {
				serials = append(serials, cfg.Setup(ch.BiasLink()))
			}
		}
	}

	return append(preamps, serials...)
}

// deconvolve submits every block that is not deconvolved yet and waits for
// all of them.
func (e *Experiment) deconvolve(ctx context.Context) error {
	var tasks []*deconv.Task

	for _, d := range e.dacs {
		if !d.HasSramChannel() {
			continue
		}

		ts, err := d.Deconvolve(ctx, e, e.dispatcher)
		if err != nil {
			deconv.All(tasks...).Cancel()
			return err
		}

		tasks = append(tasks, ts...)
	}

	group := deconv.All(tasks...)
	e.logger.Debug("waiting for deconvolution", "requests", group.Len())

	if err := group.Wait(ctx); err != nil {
		group.Cancel()
		return fmt.Errorf("deconvolution: %w", err)
	}

	return nil
}
