package channel_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/channeldata"
	"github.com/sarchlab/fpgaseq/packet"
)

var _ = Describe("Channel", func() {
	var (
		dac *board.Board
		mw  *board.Board
	)

	BeforeEach(func() {
		dac = board.New("dac1", board.Analog)
		Expect(dac.ConnectFiber(board.Out0, "fb1", "A")).To(Succeed())
		mw = board.New("dac2", board.Microwave)
	})

	It("should parse kinds", func() {
		k, err := channel.ParseKind("microwave")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(channel.Microwave))

		_, err = channel.ParseKind("laser")
		Expect(err).To(MatchError(channel.ErrInvalidArgument))
	})

	It("should reject operations of another kind", func() {
		ch := channel.NewTrigger("q0", "trig", dac, board.S3)

		Expect(ch.SetSettling(nil, nil)).To(MatchError(channel.ErrWrongKind))
		Expect(ch.ConfigMicrowavesOn(6, 2.7)).To(MatchError(channel.ErrWrongKind))
		Expect(ch.TriggerID()).To(Equal(board.S3))
	})

	It("should require a block before data", func() {
		ch := channel.NewAnalog("q0", "z", dac, board.DacA)

		err := ch.AddAnalogData(channeldata.NewAnalogTime(make([]float64, 4), false), 4)
		Expect(err).To(MatchError(channel.ErrNoBlock))
	})

	It("should check the block length", func() {
		ch := channel.NewAnalog("q0", "z", dac, board.DacA)
		Expect(ch.SetCurrentBlock("b")).To(Succeed())

		err := ch.AddAnalogData(channeldata.NewAnalogTime(make([]float64, 4), false), 5)
		Expect(err).To(MatchError(channeldata.ErrLength))
	})

	It("should create zero data for missing blocks", func() {
		ch := channel.NewAnalog("q0", "z", dac, board.DacA)

		d := ch.AnalogData("b", 10)
		Expect(d.Domain()).To(Equal(channeldata.Fourier))
		Expect(d.CheckLength(10)).To(Succeed())
		Expect(ch.AnalogData("b", 10)).To(BeIdenticalTo(d))
	})

	It("should invalidate analog blocks when settling changes", func() {
		ch := channel.NewAnalog("q0", "z", dac, board.DacA)
		Expect(ch.SetCurrentBlock("b")).To(Succeed())

		d := channeldata.NewAnalogTime([]float64{0, 0, 0, 0}, true)
		Expect(ch.AddAnalogData(d, 4)).To(Succeed())
		Expect(d.Deconvolved()).To(BeTrue())

		Expect(ch.SetSettling([]float64{1, 2}, []float64{3})).
			To(MatchError(channel.ErrInvalidArgument))
		Expect(d.Deconvolved()).To(BeTrue())

		Expect(ch.SetSettling([]float64{0.01}, []float64{0.02})).To(Succeed())
		Expect(d.Deconvolved()).To(BeFalse())

		rates, times := ch.Settling()
		Expect(rates).To(Equal([]float64{0.01}))
		Expect(times).To(Equal([]float64{0.02}))
	})

	It("should invalidate IQ blocks when the source is turned on", func() {
		src := board.MicrowaveSource{Name: "uwave1", Device: "GPIB0::1"}
		ch := channel.NewMicrowave("q0", "uw", mw, src)
		Expect(ch.SetCurrentBlock("b")).To(Succeed())

		d := channeldata.NewIqTime(make([]complex128, 4), true)
		Expect(ch.AddIqData(d, 4)).To(Succeed())

		Expect(ch.ConfigMicrowavesOff()).To(Succeed())
		Expect(d.Deconvolved()).To(BeTrue())

		Expect(ch.ConfigMicrowavesOn(6.5, 2.7)).To(Succeed())
		Expect(d.Deconvolved()).To(BeFalse())

		cfg, err := ch.MicrowaveConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(channel.MicrowavesOn(6.5, 2.7)))
	})

	It("should report a missing microwave configuration", func() {
		ch := channel.NewMicrowave("q0", "uw", mw, board.MicrowaveSource{Name: "uwave1"})

		_, err := ch.MicrowaveConfig()
		Expect(err).To(MatchError(channel.ErrNoMicrowaveConfig))
	})

	It("should add clipped trigger pulses", func() {
		ch := channel.NewTrigger("q0", "trig", dac, board.S0)
		Expect(ch.SetCurrentBlock("b")).To(Succeed())

		Expect(ch.AddPulse(-2, 4, 8)).To(Succeed())
		Expect(ch.AddPulse(6, 10, 8)).To(Succeed())

		Expect(ch.TriggerData("b", 8).Bits()).To(Equal(
			[]bool{true, true, true, true, false, false, true, true}))
	})

	It("should bind bias channels to the board fiber", func() {
		ch := channel.NewFiberBias("q0", "flux", dac, board.Out0)

		Expect(ch.Fiber()).To(Equal(board.Out0))
		Expect(ch.BiasLink()).To(Equal(board.BiasLink{Card: "fb1", Channel: "A"}))
		Expect(ch.Kind.IsTiming()).To(BeTrue())
	})

	It("should clear configuration but keep data", func() {
		uw := channel.NewMicrowave("q0", "uw", mw, board.MicrowaveSource{Name: "uwave1"})
		Expect(uw.ConfigMicrowavesOn(6, 1)).To(Succeed())
		Expect(uw.SetCurrentBlock("b")).To(Succeed())
		Expect(uw.AddIqData(channeldata.NewIqTime(make([]complex128, 4), true), 4)).To(Succeed())

		fb := channel.NewFiberBias("q0", "flux", dac, board.Out0)
		Expect(fb.SetPreampConfig(10, true, "DC", "0")).To(Succeed())

		uw.ClearConfig()
		fb.ClearConfig()

		_, err := uw.MicrowaveConfig()
		Expect(err).To(MatchError(channel.ErrNoMicrowaveConfig))
		Expect(uw.IqData("b", 4).Deconvolved()).To(BeTrue())

		_, ok := fb.PreampConfig()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Setup packets", func() {
	src := board.MicrowaveSource{Name: "uwave1", Device: "GPIB0::1"}

	It("should turn a source on", func() {
		s := channel.MicrowavesOn(6.5, 2.7).Setup(src)

		Expect(s.Server).To(Equal(packet.AnritsuServer))
		Expect(s.State).To(Equal("uwave1: 6.5 GHz @ 2.7 dBm"))
		Expect(s.Records).To(Equal([]packet.Record{
			{Name: packet.SelectDevice, Args: []any{"GPIB0::1"}},
			{Name: packet.Output, Args: []any{true}},
			{Name: packet.Frequency, Args: []any{6.5}},
			{Name: packet.Amplitude, Args: []any{2.7}},
		}))
	})

	It("should turn a source off", func() {
		src.Server = packet.HittiteServer
		s := channel.MicrowavesOff().Setup(src)

		Expect(s.Server).To(Equal(packet.HittiteServer))
		Expect(s.State).To(Equal("uwave1: off"))
		Expect(s.Records).To(HaveLen(2))
		Expect(channel.MicrowavesOff().Frequency()).To(Equal(channel.OffFrequencyGHz))
	})

	It("should treat equal configurations as compatible", func() {
		Expect(channel.MicrowavesOn(6, 1)).To(Equal(channel.MicrowavesOn(6, 1)))
		Expect(channel.MicrowavesOn(6, 1)).NotTo(Equal(channel.MicrowavesOn(6, 2)))
		Expect(channel.MicrowavesOff()).To(Equal(channel.MicrowavesOff()))
	})

	It("should program the preamp", func() {
		cfg, err := channel.NewPreampConfig(100, true, "3300", "0.5")
		Expect(err).NotTo(HaveOccurred())

		s := cfg.Setup(board.BiasLink{Card: "pre1", Channel: "B"})
		Expect(s.Server).To(Equal(packet.DCRackServer))
		Expect(s.Records[1].Args[1]).To(Equal([]int64{1, 2, 1, 100}))
		Expect(s.State).To(Equal("pre1B: offset=100 polarity=true highPass=3300 lowPass=0.5"))
	})

	It("should reject unknown filters", func() {
		_, err := channel.NewPreampConfig(0, false, "42", "0")
		Expect(err).To(MatchError(channel.ErrInvalidArgument))
	})

	It("should set a serial bias", func() {
		b := board.New("dac1", board.Analog)
		Expect(b.ConnectFiber(board.Out1, "fb2", "C")).To(Succeed())
		ch := channel.NewSerialBias("q0", "bias", b, board.Out1)

		Expect(ch.SetBias("dac1", 3)).To(MatchError(channel.ErrInvalidArgument))
		Expect(ch.SetBias("dac1", 0.25)).To(Succeed())

		cfg, ok := ch.SerialBiasConfig()
		Expect(ok).To(BeTrue())

		s := cfg.Setup(ch.BiasLink())
		Expect(s.Records[1]).To(Equal(packet.Record{
			Name: packet.BiasVoltage,
			Args: []any{"C", "DAC1", 0.25},
		}))
		Expect(s.State).To(Equal("fb2C: DAC1=0.25V"))
	})
})
