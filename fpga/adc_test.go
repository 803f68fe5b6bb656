package fpga_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/fpga"
	"github.com/sarchlab/fpgaseq/packet"
)

var _ = Describe("ADC model", func() {
	var (
		b   *board.Board
		m   *fpga.Adc
		chs arena
	)

	BeforeEach(func() {
		b = board.New("adc1", board.Adc)
		m = fpga.NewAdc(b)
		chs = arena{
			channel.NewAdc("q0", "readout", b),
			channel.NewAdc("q1", "readout", b),
		}
		m.BindChannel(0)
		m.BindChannel(1)
	})

	adc := func(i int) *channel.AdcConfig {
		cfg, err := chs[i].Adc()
		Expect(err).NotTo(HaveOccurred())

		return cfg
	}

	It("should add nothing for a board without channels", func() {
		empty := fpga.NewAdc(b)

		req := &packet.Request{}
		Expect(empty.AddPackets(req, chs)).To(Succeed())
		Expect(req.Records).To(BeEmpty())
	})

	It("should reject conflicting channels", func() {
		adc(0).SetToAverage()
		Expect(adc(1).SetToDemodulate(0)).To(Succeed())
		m.SetStartDelay(0)

		err := m.AddPackets(&packet.Request{}, chs)
		Expect(err).To(MatchError(channel.ErrConflictingAdcConfig))
	})

	It("should need a start delay", func() {
		adc(0).SetToAverage()
		adc(1).SetToAverage()

		err := m.AddPackets(&packet.Request{}, chs)
		Expect(err).To(MatchError(channel.ErrInvalidArgument))
	})

	It("should emit global then local packets", func() {
		Expect(adc(0).SetToDemodulate(0)).To(Succeed())
		Expect(adc(1).SetToDemodulate(1)).To(Succeed())
		adc(0).SetMixerTable([]channel.MixerEntry{{I: 1, Q: 1}})
		adc(1).SetMixerTable([]channel.MixerEntry{{I: 2, Q: 2}})
		m.SetStartDelay(5)

		req := &packet.Request{}
		Expect(m.AddPackets(req, chs)).To(Succeed())
		Expect(req.Names()).To(Equal([]string{
			packet.SelectDevice, packet.AdcRunMode, packet.StartDelay,
			packet.AdcMixerTable, packet.AdcMixerTable,
		}))
		Expect(req.Records[4].Args[0]).To(Equal(int64(1)))
	})

	It("should include the start delay in the sequence length", func() {
		m.SetStartDelay(250)

		Expect(m.SequenceLength()).To(BeNumerically("~", 1+16.384, 1e-9))
	})
})
