// Package channeldata holds the per-block waveform data of channels. Analog
// and IQ data are deconvolved before they can be written to SRAM; the
// result is cached until Invalidate is called.
package channeldata

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/deconv"
)

var (
	// ErrLength is returned when block data does not match the declared
	// block length.
	ErrLength = errors.New("incorrect SRAM block length")

	// ErrNotDeconvolved is returned when codes are read before the data
	// was deconvolved.
	ErrNotDeconvolved = errors.New("data has not yet been deconvolved")
)

// Domain tells how waveform data is represented.
type Domain int

const (
	Time Domain = iota
	Fourier
)

func checkLength(have, want int) error {
	if have != want {
		return fmt.Errorf("%w: expected %d but got %d", ErrLength, want, have)
	}

	return nil
}

// FourierLength is the number of spectrum points that describe a real
// signal of n samples.
func FourierLength(n int) int {
	if n%2 == 0 {
		return n/2 + 1
	}

	return (n + 1) / 2
}

// Analog is the data of one block on an analog lane.
type Analog struct {
	domain     Domain
	samples    []float64
	spectrum   []complex128
	timeOffset float64

	deconvolved bool
	codes       []int
}

// NewAnalogTime creates time domain data. Data that is already deconvolved
// is converted to DAC codes directly.
func NewAnalogTime(samples []float64, deconvolved bool) *Analog {
	a := &Analog{domain: Time, samples: samples}
	if deconvolved {
		a.Store(deconv.QuantizeAll(samples))
	}

	return a
}

// NewAnalogFourier creates Fourier domain data shifted by t0 nanoseconds.
func NewAnalogFourier(spectrum []complex128, t0 float64) *Analog {
	return &Analog{domain: Fourier, spectrum: spectrum, timeOffset: t0}
}

// ZeroAnalog creates an all-zero block of n samples. It still passes
// through deconvolution so that the lane's offset correction applies.
func ZeroAnalog(n int) *Analog {
	return NewAnalogFourier(make([]complex128, FourierLength(n)), 0)
}

// Domain returns the representation of the data.
func (a *Analog) Domain() Domain {
	return a.domain
}

// CheckLength verifies the data fits a block of n samples.
func (a *Analog) CheckLength(n int) error {
	if a.domain == Fourier {
		return checkLength(len(a.spectrum), FourierLength(n))
	}

	return checkLength(len(a.samples), n)
}

// Deconvolved tells if DAC codes are available.
func (a *Analog) Deconvolved() bool {
	return a.deconvolved
}

// Invalidate drops the cached codes.
func (a *Analog) Invalidate() {
	a.deconvolved = false
}

// Store records deconvolved codes.
func (a *Analog) Store(codes []int) {
	a.codes = codes
	a.deconvolved = true
}

// Codes returns the deconvolved DAC codes of a block of n samples.
func (a *Analog) Codes(n int) ([]int, error) {
	if !a.deconvolved {
		return nil, ErrNotDeconvolved
	}

	if err := checkLength(len(a.codes), n); err != nil {
		return nil, fmt.Errorf("deconvolved codes: %w", err)
	}

	return a.codes, nil
}

// Request builds the deconvolution request for the data.
func (a *Analog) Request(
	boardName string,
	dac board.AnalogID,
	rates, times []float64,
	length int,
) deconv.AnalogRequest {
	return deconv.AnalogRequest{
		Board:         boardName,
		Dac:           dac,
		Samples:       a.samples,
		Spectrum:      a.spectrum,
		Fourier:       a.domain == Fourier,
		SettlingRates: rates,
		SettlingTimes: times,
		TimeOffset:    a.timeOffset,
		Length:        length,
	}
}

// Deconvolve submits the data to d unless it is already deconvolved, in
// which case it returns nil.
func (a *Analog) Deconvolve(
	ctx context.Context,
	d *deconv.Dispatcher,
	req deconv.AnalogRequest,
) *deconv.Task {
	if a.deconvolved {
		return nil
	}

	return d.Analog(ctx, req, a.Store)
}

// Iq is the data of one block on a microwave channel.
type Iq struct {
	domain     Domain
	samples    []complex128
	timeOffset float64

	deconvolved bool
	i, q        []int
}

// NewIqTime creates time domain I/Q data, real part I and imaginary part Q.
func NewIqTime(samples []complex128, deconvolved bool) *Iq {
	d := &Iq{domain: Time, samples: samples}
	if deconvolved {
		res := deconv.IqResult{I: make([]int, len(samples)), Q: make([]int, len(samples))}
		for k, s := range samples {
			res.I[k] = deconv.Quantize(real(s))
			res.Q[k] = deconv.Quantize(imag(s))
		}

		d.Store(res)
	}

	return d
}

// NewIqFourier creates Fourier domain I/Q data shifted by t0 nanoseconds.
func NewIqFourier(spectrum []complex128, t0 float64) *Iq {
	return &Iq{domain: Fourier, samples: spectrum, timeOffset: t0}
}

// ZeroIq creates an all-zero block of n samples.
func ZeroIq(n int) *Iq {
	return NewIqFourier(make([]complex128, n), 0)
}

// Domain returns the representation of the data.
func (d *Iq) Domain() Domain {
	return d.domain
}

// CheckLength verifies the data fits a block of n samples.
func (d *Iq) CheckLength(n int) error {
	return checkLength(len(d.samples), n)
}

// Deconvolved tells if DAC codes are available.
func (d *Iq) Deconvolved() bool {
	return d.deconvolved
}

// Invalidate drops the cached codes.
func (d *Iq) Invalidate() {
	d.deconvolved = false
}

// Store records deconvolved codes.
func (d *Iq) Store(res deconv.IqResult) {
	d.i = res.I
	d.q = res.Q
	d.deconvolved = true
}

// Codes returns the deconvolved I and Q codes of a block of n samples.
func (d *Iq) Codes(n int) (i, q []int, err error) {
	if !d.deconvolved {
		return nil, nil, ErrNotDeconvolved
	}

	if err := checkLength(len(d.i), n); err != nil {
		return nil, nil, fmt.Errorf("deconvolved I codes: %w", err)
	}

	if err := checkLength(len(d.q), n); err != nil {
		return nil, nil, fmt.Errorf("deconvolved Q codes: %w", err)
	}

	return d.i, d.q, nil
}

// Request builds the deconvolution request for the data.
func (d *Iq) Request(boardName string, freqGHz float64, length int) deconv.IqRequest {
	return deconv.IqRequest{
		Board:        boardName,
		FrequencyGHz: freqGHz,
		Samples:      d.samples,
		Fourier:      d.domain == Fourier,
		TimeOffset:   d.timeOffset,
		Length:       length,
	}
}

// Deconvolve submits the data to dispatcher unless it is already
// deconvolved, in which case it returns nil.
func (d *Iq) Deconvolve(
	ctx context.Context,
	dispatcher *deconv.Dispatcher,
	req deconv.IqRequest,
) *deconv.Task {
	if d.deconvolved {
		return nil
	}

	return dispatcher.Iq(ctx, req, d.Store)
}

// Trigger is the per-sample trigger state of one block.
type Trigger struct {
	bits []bool
}

// NewTrigger creates trigger data.
func NewTrigger(bits []bool) *Trigger {
	return &Trigger{bits: bits}
}

// ZeroTrigger creates an idle trigger block.
func ZeroTrigger(n int) *Trigger {
	return &Trigger{bits: make([]bool, n)}
}

// CheckLength verifies the data fits a block of n samples.
func (t *Trigger) CheckLength(n int) error {
	return checkLength(len(t.bits), n)
}

// Bits returns the trigger state per sample.
func (t *Trigger) Bits() []bool {
	return t.bits
}
