package fpga

import (
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/packet"
)

// AdcAcquisitionMicroseconds is the fixed acquisition window of an ADC
// board.
const AdcAcquisitionMicroseconds = 16.384

// An Adc models one ADC board and the readout channels that share it.
type Adc struct {
	Board *board.Board

	channels   []int
	startDelay int
}

// NewAdc creates the model of an ADC board. The start delay is unset.
func NewAdc(b *board.Board) *Adc {
	return &Adc{Board: b, startDelay: -1}
}

// Name returns the board name.
func (m *Adc) Name() string {
	return m.Board.Name
}

// BindChannel adds the readout channel at index idx.
func (m *Adc) BindChannel(idx int) {
	m.channels = append(m.channels, idx)
}

// Channels returns the indices of the bound readout channels.
func (m *Adc) Channels() []int {
	return m.channels
}

// StartDelay returns the start delay in units of 4 ns, or -1 if unset.
func (m *Adc) StartDelay() int {
	return m.startDelay
}

// SetStartDelay sets the start delay in units of 4 ns.
func (m *Adc) SetStartDelay(d int) {
	m.startDelay = d
}

// SequenceLength returns the time the board needs in microseconds.
func (m *Adc) SequenceLength() float64 {
	return board.StartDelayMicroseconds(m.startDelay) + AdcAcquisitionMicroseconds
}

// AddPackets reconciles the channels of the board and appends the board
// settings followed by the settings of each channel. A board with no
// channels adds nothing.
func (m *Adc) AddPackets(req *packet.Request, chs Channels) error {
	if len(m.channels) == 0 {
		return nil
	}

	req.Add(packet.SelectDevice, m.Name())

	for i, a := range m.channels {
		ca, err := chs.Channel(a).Adc()
		if err != nil {
			return err
		}

		for _, b := range m.channels[i+1:] {
			cb, err := chs.Channel(b).Adc()
			if err != nil {
				return err
			}

			if err := ca.Reconcile(cb); err != nil {
				return fmt.Errorf("%s: %s and %s: %w",
					m.Name(), chs.Channel(a).ID(), chs.Channel(b).ID(), err)
			}
		}
	}

	first, _ := chs.Channel(m.channels[0]).Adc()
	if err := first.AddGlobalPackets(req, m.startDelay); err != nil {
		return fmt.Errorf("%s: %w", m.Name(), err)
	}

	for _, idx := range m.channels {
		cfg, _ := chs.Channel(idx).Adc()
		cfg.AddLocalPackets(req)
	}

	return nil
}
