// Package deconv is the boundary to the deconvolution service that turns
// ideal waveforms into hardware-ready DAC codes. Requests are issued
// asynchronously through a Dispatcher and joined with All.
package deconv

import (
	"context"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/packet"
)

// AnalogRequest asks for one lane of an analog board to be corrected.
type AnalogRequest struct {
	Board string
	Dac   board.AnalogID

	// Samples holds time domain data. Spectrum holds Fourier data and is
	// used when Fourier is set.
	Samples  []float64
	Spectrum []complex128
	Fourier  bool

	SettlingRates []float64
	SettlingTimes []float64

	ReflectionRates      []float64
	ReflectionAmplitudes []float64

	// TimeOffset shifts Fourier data in nanoseconds.
	TimeOffset float64

	// Length is the number of time domain samples expected back.
	Length int
}

// IqRequest asks for the I/Q data of a microwave board to be corrected at a
// carrier frequency.
type IqRequest struct {
	Board        string
	FrequencyGHz float64

	Samples    []complex128
	Fourier    bool
	TimeOffset float64
	Length     int
}

// IqResult is a corrected I/Q pair.
type IqResult struct {
	I []int
	Q []int
}

// Service performs deconvolution.
type Service interface {
	DeconvolveAnalog(ctx context.Context, req AnalogRequest) ([]int, error)
	DeconvolveIq(ctx context.Context, req IqRequest) (IqResult, error)
}

// Records renders the request as calls to a remote deconvolution server.
func (r AnalogRequest) Records() []packet.Record {
	recs := []packet.Record{
		{Name: "Board", Args: []any{r.Board}},
		{Name: "DAC", Args: []any{r.Dac.String()}},
		{Name: "Set Settling", Args: []any{r.SettlingRates, r.SettlingTimes}},
	}

	if len(r.ReflectionRates) > 0 {
		recs = append(recs, packet.Record{
			Name: "Set Reflection",
			Args: []any{r.ReflectionRates, r.ReflectionAmplitudes},
		})
	}

	if !r.Fourier {
		return append(recs, packet.Record{Name: "Correct", Args: []any{r.Samples}})
	}

	return append(recs,
		packet.Record{Name: "Loop", Args: []any{false}},
		packet.Record{Name: "Time Offset", Args: []any{r.TimeOffset}},
		packet.Record{Name: "Correct FT", Args: []any{r.Spectrum}},
	)
}

// Records renders the request as calls to a remote deconvolution server.
func (r IqRequest) Records() []packet.Record {
	recs := []packet.Record{
		{Name: "Board", Args: []any{r.Board}},
		{Name: "Frequency", Args: []any{r.FrequencyGHz}},
	}

	if !r.Fourier {
		return append(recs, packet.Record{Name: "Correct", Args: []any{r.Samples}})
	}

	return append(recs,
		packet.Record{Name: "Loop", Args: []any{false}},
		packet.Record{Name: "Time Offset", Args: []any{r.TimeOffset}},
		packet.Record{Name: "Correct FT", Args: []any{r.Samples}},
	)
}
