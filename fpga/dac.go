package fpga

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/controller"
	"github.com/sarchlab/fpgaseq/deconv"
	"github.com/sarchlab/fpgaseq/mem"
	"github.com/sarchlab/fpgaseq/packet"
)

var (
	// ErrSramTooLong is returned when the SRAM of a board exceeds its
	// SRAM_LEN build property.
	ErrSramTooLong = errors.New("SRAM too long")

	// ErrLaneTaken is returned when two channels are bound to the same
	// output of a board.
	ErrLaneTaken = errors.New("board output already bound")
)

// Bit layout of an SRAM word.
const (
	codeMask  = 0x3FFF
	iShift    = 0
	qShift    = 14
	noChannel = -1
)

// Channels resolves channel indices of the experiment arena.
type Channels interface {
	Channel(i int) *channel.Channel
}

// AutoTrigger is a trigger pulse injected at the start of every block.
type AutoTrigger struct {
	Enabled bool
	ID      board.TriggerID
	Length  int
}

// autoTriggerOffset is the first sample of an automatic trigger pulse.
const autoTriggerOffset = 4

// A Dac models the sequence state of one DAC board.
type Dac struct {
	Board *board.Board

	ctrl       *controller.Controller
	blocks     *Directory
	global     *Directory
	startDelay int

	analog   [2]int
	iq       int
	triggers [4]int
}

// NewDac creates the model of a DAC board. Blocks it declares are also
// declared in global, which fixes the SRAM layout of every board.
func NewDac(b *board.Board, global *Directory) *Dac {
	m := &Dac{
		Board:  b,
		ctrl:   controller.New(b.Name, controller.KindFor(b)),
		blocks: NewDirectory(b.Name),
		global: global,
		iq:     noChannel,
	}

	m.analog = [2]int{noChannel, noChannel}
	m.triggers = [4]int{noChannel, noChannel, noChannel, noChannel}

	return m
}

// Name returns the board name.
func (m *Dac) Name() string {
	return m.Board.Name
}

// Controller returns the board program.
func (m *Dac) Controller() *controller.Controller {
	return m.ctrl
}

// Blocks returns the blocks declared by channels of this board.
func (m *Dac) Blocks() *Directory {
	return m.blocks
}

// StartDelay returns the start delay in units of 4 ns.
func (m *Dac) StartDelay() int {
	return m.startDelay
}

// SetStartDelay sets the start delay in units of 4 ns.
func (m *Dac) SetStartDelay(d int) {
	m.startDelay = d
}

// BindAnalog binds the channel at index idx to one lane of an analog board.
func (m *Dac) BindAnalog(idx int, dac board.AnalogID) error {
	if m.Board.Family != board.Analog {
		return fmt.Errorf("%s: analog channel on %s board: %w",
			m.Name(), m.Board.Family.Name(), board.ErrWrongFamily)
	}

	if m.analog[dac] != noChannel {
		return fmt.Errorf("%s: dac %s: %w", m.Name(), dac, ErrLaneTaken)
	}

	m.analog[dac] = idx

	return nil
}

// BindIq binds the channel at index idx to a microwave board. A board
// carries a single I/Q channel.
func (m *Dac) BindIq(idx int) error {
	if m.Board.Family != board.Microwave {
		return fmt.Errorf("%s: microwave channel on %s board: %w",
			m.Name(), m.Board.Family.Name(), board.ErrWrongFamily)
	}

	if m.iq != noChannel {
		return fmt.Errorf("%s: iq: %w", m.Name(), ErrLaneTaken)
	}

	m.iq = idx

	return nil
}

// BindTrigger binds the channel at index idx to a trigger output.
func (m *Dac) BindTrigger(idx int, id board.TriggerID) error {
	if m.triggers[id] != noChannel {
		return fmt.Errorf("%s: trigger %s: %w", m.Name(), id, ErrLaneTaken)
	}

	m.triggers[id] = idx

	return nil
}

// HasSramChannel tells if an analog or IQ channel is bound to the board.
// Trigger channels alone do not count: such a board plays zeros.
func (m *Dac) HasSramChannel() bool {
	if m.iq != noChannel {
		return true
	}

	for _, idx := range m.analog {
		if idx != noChannel {
			return true
		}
	}

	return false
}

// StartSramBlock declares a block in the experiment, then on the board.
// A block the experiment rejects is not kept on the board.
func (m *Dac) StartSramBlock(name string, length int) error {
	if length <= 0 {
		return fmt.Errorf("%s: block %q has length %d: %w",
			m.Name(), name, length, channel.ErrInvalidArgument)
	}

	if err := m.global.Declare(name, length); err != nil {
		return err
	}

	return m.blocks.Declare(name, length)
}

// BlockLength returns the length of a block.
func (m *Dac) BlockLength(name string) (int, error) {
	if m.blocks.HasBlock(name) {
		return m.blocks.BlockLength(name)
	}

	return m.global.BlockLength(name)
}

func (m *Dac) maxSram() int {
	return m.Board.Properties.Int(board.SramLen, int(board.DefaultDacProperties()[board.SramLen]))
}

func (m *Dac) maxMemory() int {
	return m.Board.Properties.Int(board.SramWritePktLen,
		int(board.DefaultDacProperties()[board.SramWritePktLen]))
}

// addressBlocks is the block view SRAM calls resolve against. Boards with
// SRAM channels lay out every experiment block, so a call to an unknown
// block is an error. Other boards play zeros for every call.
func (m *Dac) addressBlocks() controller.Blocks {
	if m.HasSramChannel() {
		return declaredBlocks{m.global}
	}

	return zeroBlocks{m.global}
}

type declaredBlocks struct{ *Directory }

func (declaredBlocks) HasBlock(string) bool { return true }

type zeroBlocks struct{ *Directory }

func (zeroBlocks) HasBlock(string) bool { return false }

func (m *Dac) zeroSram() []int64 {
	return make([]int64, min(m.maxSram(), m.global.TotalLength()))
}

// Sram renders the SRAM of the board: every experiment block in
// declaration order, each padded at the front to its padded length.
func (m *Dac) Sram(chs Channels, auto AutoTrigger) ([]int64, error) {
	if !m.HasSramChannel() {
		return m.zeroSram(), nil
	}

	var sram []int64
	for _, name := range m.global.Names() {
		block, err := m.paddedBlock(chs, name, auto)
		if err != nil {
			return nil, err
		}

		sram = append(sram, block...)
	}

	if err := m.checkSramLength(sram); err != nil {
		return nil, err
	}

	return sram, nil
}

func (m *Dac) checkSramLength(sram []int64) error {
	if len(sram) > m.maxSram() {
		return fmt.Errorf("%s: %d samples, limit %d: %w",
			m.Name(), len(sram), m.maxSram(), ErrSramTooLong)
	}

	return nil
}

// DualBlock renders the two blocks of the board's dual-block call. Only the
// first block carries the automatic trigger.
func (m *Dac) DualBlock(chs Channels, auto AutoTrigger) (packet.DualBlock, error) {
	b1, b2, delay, err := m.ctrl.DualBlock()
	if err != nil {
		return packet.DualBlock{}, err
	}

	if !m.HasSramChannel() {
		return packet.DualBlock{Block1: m.zeroSram(), Block2: m.zeroSram(), DelayNs: delay}, nil
	}

	words1, err := m.paddedBlock(chs, b1, auto)
	if err != nil {
		return packet.DualBlock{}, err
	}

	words2, err := m.paddedBlock(chs, b2, AutoTrigger{})
	if err != nil {
		return packet.DualBlock{}, err
	}

	for _, w := range [][]int64{words1, words2} {
		if err := m.checkSramLength(w); err != nil {
			return packet.DualBlock{}, err
		}
	}

	return packet.DualBlock{Block1: words1, Block2: words2, DelayNs: delay}, nil
}

func (m *Dac) paddedBlock(chs Channels, name string, auto AutoTrigger) ([]int64, error) {
	words, err := m.SramBlock(chs, name, auto)
	if err != nil {
		return nil, err
	}

	return padFront(words, PaddedLength(len(words))), nil
}

func padFront(words []int64, n int) []int64 {
	if len(words) >= n {
		return words
	}

	fill := int64(0)
	if len(words) > 0 {
		fill = words[0]
	}

	out := make([]int64, n)
	for i := range n - len(words) {
		out[i] = fill
	}

	copy(out[n-len(words):], words)

	return out
}

// SramBlock renders one block of the board without padding.
func (m *Dac) SramBlock(chs Channels, name string, auto AutoTrigger) ([]int64, error) {
	n, err := m.global.BlockLength(name)
	if err != nil {
		return nil, err
	}

	var words []int64
	switch m.Board.Family {
	case board.Analog:
		words, err = m.analogWords(chs, name, n)
	case board.Microwave:
		words, err = m.iqWords(chs, name, n)
	default:
		panic("DAC model on a non-DAC board")
	}

	if err != nil {
		return nil, fmt.Errorf("%s block %q: %w", m.Name(), name, err)
	}

	m.setTriggerBits(chs, words, name, auto)

	return words, nil
}

func (m *Dac) analogWords(chs Channels, name string, n int) ([]int64, error) {
	words := make([]int64, n)

	for lane, idx := range m.analog {
		if idx == noChannel {
			continue
		}

		codes, err := chs.Channel(idx).AnalogData(name, n).Codes(n)
		if err != nil {
			return nil, err
		}

		shift := board.AnalogID(lane).Shift()
		for i, c := range codes {
			words[i] |= int64(c&codeMask) << shift
		}
	}

	return words, nil
}

func (m *Dac) iqWords(chs Channels, name string, n int) ([]int64, error) {
	words := make([]int64, n)
	if m.iq == noChannel {
		return words, nil
	}

	is, qs, err := chs.Channel(m.iq).IqData(name, n).Codes(n)
	if err != nil {
		return nil, err
	}

	for i := range words {
		words[i] = int64(is[i]&codeMask)<<iShift | int64(qs[i]&codeMask)<<qShift
	}

	return words, nil
}

// setTriggerBits ORs the trigger outputs into the block. The automatic
// trigger is added to a copy of the channel's data.
func (m *Dac) setTriggerBits(chs Channels, words []int64, name string, auto AutoTrigger) {
	for t, idx := range m.triggers {
		id := board.TriggerID(t)
		bit := int64(1) << id.Shift()

		var bits []bool
		if idx != noChannel {
			bits = append([]bool(nil), chs.Channel(idx).TriggerData(name, len(words)).Bits()...)
		} else if auto.Enabled && auto.ID == id {
			bits = make([]bool, len(words))
		}

		if auto.Enabled && auto.ID == id {
			for i := autoTriggerOffset; i < autoTriggerOffset+auto.Length; i++ {
				if i < len(bits)-1 {
					bits[i] = true
				}
			}
		}

		for i, on := range bits {
			if on {
				words[i] |= bit
			}
		}
	}
}

// Deconvolve submits every block of the board's waveform channels that is
// not deconvolved yet.
func (m *Dac) Deconvolve(ctx context.Context, chs Channels, d *deconv.Dispatcher) ([]*deconv.Task, error) {
	var tasks []*deconv.Task

	add := func(t *deconv.Task) {
		if t != nil {
			tasks = append(tasks, t)
		}
	}

	for _, name := range m.global.Names() {
		n, err := m.global.BlockLength(name)
		if err != nil {
			return nil, err
		}

		for lane, idx := range m.analog {
			if idx == noChannel {
				continue
			}

			ch := chs.Channel(idx)
			data := ch.AnalogData(name, n)
			rates, times := ch.Settling()
			req := data.Request(m.Name(), board.AnalogID(lane), rates, times, n)
			req.ReflectionRates, req.ReflectionAmplitudes = ch.Reflection()
			add(data.Deconvolve(ctx, d, req))
		}

		if m.iq != noChannel {
			ch := chs.Channel(m.iq)

			cfg, err := ch.MicrowaveConfig()
			if err != nil {
				return nil, err
			}

			data := ch.IqData(name, n)
			add(data.Deconvolve(ctx, d, data.Request(m.Name(), cfg.Frequency(), n)))
		}
	}

	return tasks, nil
}

// AddPackets appends the board's start delay, program and SRAM to the run
// request.
func (m *Dac) AddPackets(req *packet.Request, chs Channels, auto AutoTrigger) error {
	req.Add(packet.SelectDevice, m.Name())
	req.Add(packet.StartDelay, int64(m.startDelay))

	err := m.ctrl.AddPackets(req, m.addressBlocks(), m.global.TotalLength(), m.maxMemory())
	if err != nil {
		return err
	}

	if m.ctrl.HasDualBlockSram() {
		dual, err := m.DualBlock(chs, auto)
		if err != nil {
			return err
		}

		req.Add(packet.SramDualBlock, dual)

		return nil
	}

	sram, err := m.Sram(chs, auto)
	if err != nil {
		return err
	}

	req.Add(packet.Sram, sram)

	return nil
}

// Memory renders the board's memory words.
func (m *Dac) Memory() ([]int64, error) {
	return m.ctrl.Memory(m.addressBlocks(), m.global.TotalLength(), m.maxMemory())
}

// SequenceLength returns the run time of the board's program in
// microseconds.
func (m *Dac) SequenceLength() (float64, error) {
	return m.ctrl.SequenceLength(m.global, m.startDelay)
}

// SequenceLengthPostSram returns the run time from the first SRAM call.
func (m *Dac) SequenceLengthPostSram() (float64, error) {
	return m.ctrl.SequenceLengthPostSram(m.global, m.startDelay)
}

var _ mem.BlockLengths = (*Directory)(nil)
