package deconv

import (
	"context"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// FullScale is the DAC code of a unit amplitude sample.
const FullScale = 0x1FFF

// Quantize converts a sample in [-1, 1] to a 14-bit two's complement DAC
// code.
func Quantize(v float64) int {
	return int(v*FullScale) & 0x3FFF
}

// QuantizeAll converts samples with Quantize.
func QuantizeAll(vs []float64) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = Quantize(v)
	}

	return out
}

// DryRun is a Service that performs no correction. Time domain data is
// quantized as given and Fourier data is transformed back first. It lets a
// sequence compile without a deconvolution server.
type DryRun struct{}

func (DryRun) DeconvolveAnalog(ctx context.Context, req AnalogRequest) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !req.Fourier {
		return QuantizeAll(req.Samples), nil
	}

	return QuantizeAll(inverseReal(req.Spectrum, req.Length)), nil
}

func (DryRun) DeconvolveIq(ctx context.Context, req IqRequest) (IqResult, error) {
	if err := ctx.Err(); err != nil {
		return IqResult{}, err
	}

	samples := req.Samples
	if req.Fourier {
		samples = inverse(req.Samples)
	}

	res := IqResult{I: make([]int, len(samples)), Q: make([]int, len(samples))}
	for i, s := range samples {
		res.I[i] = Quantize(real(s))
		res.Q[i] = Quantize(imag(s))
	}

	return res, nil
}

// inverseReal transforms the non-negative frequency half of a real signal's
// spectrum into n time domain samples. Missing coefficients are zero.
func inverseReal(half []complex128, n int) []float64 {
	if n == 0 {
		return nil
	}

	coeff := make([]complex128, n/2+1)
	copy(coeff, half)

	out := fourier.NewFFT(n).Sequence(nil, coeff)
	floats.Scale(1/float64(n), out)

	return out
}

func inverse(spectrum []complex128) []complex128 {
	n := len(spectrum)
	if n == 0 {
		return nil
	}

	out := fourier.NewCmplxFFT(n).Sequence(nil, spectrum)
	scale := complex(1/float64(n), 0)

	for i := range out {
		out[i] *= scale
	}

	return out
}
