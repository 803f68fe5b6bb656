package deconv_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/deconv"
)

var _ = Describe("DryRun", func() {
	ctx := context.Background()

	It("should quantize into 14-bit codes", func() {
		Expect(deconv.Quantize(1)).To(Equal(0x1FFF))
		Expect(deconv.Quantize(0)).To(Equal(0))
		Expect(deconv.Quantize(-1)).To(Equal(0x2001))
	})

	It("should pass time domain data through", func() {
		out, err := deconv.DryRun{}.DeconvolveAnalog(ctx, deconv.AnalogRequest{
			Samples: []float64{0, 1, -1},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]int{0, 0x1FFF, 0x2001}))
	})

	It("should transform a constant spectrum back to the time domain", func() {
		// A DC term of n recovers a unit signal.
		out, err := deconv.DryRun{}.DeconvolveAnalog(ctx, deconv.AnalogRequest{
			Spectrum: []complex128{4, 0, 0},
			Fourier:  true,
			Length:   4,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(4))
		for _, v := range out {
			Expect(v).To(BeNumerically("~", 0x1FFF, 1))
		}
	})

	It("should transform a cosine spectrum", func() {
		out, err := deconv.DryRun{}.DeconvolveAnalog(ctx, deconv.AnalogRequest{
			Spectrum: []complex128{0, 4, 0, 0, 0},
			Fourier:  true,
			Length:   8,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(8))
		Expect(out[0]).To(BeNumerically("~", 0x1FFF, 1))
		Expect(out[4]).To(BeNumerically("~", 0x2001, 1))
	})

	It("should transform full SRAM blocks", func() {
		const n = 10240
		half := make([]complex128, n/2+1)
		half[0] = n

		out, err := deconv.DryRun{}.DeconvolveAnalog(ctx, deconv.AnalogRequest{
			Spectrum: half,
			Fourier:  true,
			Length:   n,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(n))
		Expect(out).To(HaveEach(BeNumerically("~", 0x1FFF, 1)))
	})

	It("should transform an I/Q spectrum", func() {
		res, err := deconv.DryRun{}.DeconvolveIq(ctx, deconv.IqRequest{
			Samples: []complex128{0, 4, 0, 0},
			Fourier: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.I[0]).To(BeNumerically("~", 0x1FFF, 1))
		Expect(res.Q[1]).To(BeNumerically("~", 0x1FFF, 1))
	})

	It("should split I and Q", func() {
		res, err := deconv.DryRun{}.DeconvolveIq(ctx, deconv.IqRequest{
			Samples: []complex128{complex(1, 0), complex(0, 1)},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.I).To(Equal([]int{0x1FFF, 0}))
		Expect(res.Q).To(Equal([]int{0, 0x1FFF}))
	})
})

var _ = Describe("Requests", func() {
	It("should render time domain analog calls", func() {
		r := deconv.AnalogRequest{Board: "dac1", Dac: board.DacB, Samples: []float64{0}}
		names := []string{}
		for _, rec := range r.Records() {
			names = append(names, rec.Name)
		}
		Expect(names).To(Equal([]string{"Board", "DAC", "Set Settling", "Correct"}))
	})

	It("should render Fourier IQ calls", func() {
		r := deconv.IqRequest{Board: "mw1", FrequencyGHz: 6, Fourier: true, TimeOffset: 2}
		names := []string{}
		for _, rec := range r.Records() {
			names = append(names, rec.Name)
		}
		Expect(names).To(Equal([]string{
			"Board", "Frequency", "Loop", "Time Offset", "Correct FT",
		}))
	})
})
