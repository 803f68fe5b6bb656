package channel_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/packet"
)

var _ = Describe("ADC config", func() {
	var a, b *channel.AdcConfig

	BeforeEach(func() {
		a = channel.NewAdcConfig(board.DefaultAdcProperties())
		b = channel.NewAdcConfig(board.DefaultAdcProperties())
	})

	It("should need demodulate mode for demod settings", func() {
		Expect(a.SetTrigMagnitude(1, 1)).To(MatchError(channel.ErrAdcMode))
		Expect(a.SetFilterFunction("ff", 1, 2)).To(MatchError(channel.ErrAdcMode))
		Expect(a.SetPhase(1e6, 0)).To(MatchError(channel.ErrAdcMode))
	})

	It("should bound the demod channel and amplitudes", func() {
		Expect(a.SetToDemodulate(5)).To(MatchError(channel.ErrInvalidArgument))
		Expect(a.SetToDemodulate(2)).To(Succeed())
		Expect(a.SetTrigMagnitude(256, 0)).To(MatchError(channel.ErrInvalidArgument))
		Expect(a.SetTrigMagnitude(255, 0)).To(Succeed())
	})

	It("should convert frequency and phase to lookup steps", func() {
		Expect(a.SetToDemodulate(0)).To(Succeed())
		Expect(a.SetPhase(50e6, math.Pi/2)).To(Succeed())

		dPhi, phi0 := a.Phase()
		Expect(dPhi).To(Equal(6553))
		Expect(phi0).To(BeNumerically("~", 16384, 1))

		Expect(a.SetPhase(50e6, 4)).To(MatchError(channel.ErrInvalidArgument))
	})

	It("should interpret phases against the critical phase", func() {
		Expect(a.SetCriticalPhase(0)).To(Succeed())

		states, err := a.InterpretPhases([]int{1, 1}, []int{1, -1})
		Expect(err).NotTo(HaveOccurred())
		Expect(states).To(Equal([]bool{true, false}))

		a.ReverseCriticalPhase(true)
		states, _ = a.InterpretPhases([]int{1, 1}, []int{1, -1})
		Expect(states).To(Equal([]bool{false, true}))

		a.SetIqOffset(0, 2)
		states, _ = a.InterpretPhases([]int{1}, []int{-1})
		Expect(states).To(Equal([]bool{false}))

		_, err = a.InterpretPhases([]int{1}, nil)
		Expect(err).To(MatchError(channel.ErrInvalidArgument))
		Expect(a.SetCriticalPhase(4)).To(MatchError(channel.ErrInvalidArgument))
	})

	Context("reconcile", func() {
		It("should fail when no mode is set", func() {
			Expect(a.Reconcile(b)).To(MatchError(channel.ErrAdcMode))
		})

		It("should fail on different modes", func() {
			a.SetToAverage()
			Expect(b.SetToDemodulate(1)).To(Succeed())

			Expect(a.Reconcile(b)).To(MatchError(channel.ErrConflictingAdcConfig))
		})

		It("should fail on different trigger tables", func() {
			a.SetToAverage()
			b.SetToAverage()
			a.SetTriggerTable([]channel.TriggerTableEntry{{Count: 1, Delay: 2, Length: 3, Channels: 4}})

			Expect(a.Reconcile(b)).To(MatchError(channel.ErrConflictingAdcConfig))

			b.SetTriggerTable([]channel.TriggerTableEntry{{Count: 1, Delay: 2, Length: 3, Channels: 4}})
			Expect(a.Reconcile(b)).To(Succeed())
		})

		It("should need distinct demodulators", func() {
			Expect(a.SetToDemodulate(1)).To(Succeed())
			Expect(b.SetToDemodulate(1)).To(Succeed())
			Expect(a.Reconcile(b)).To(MatchError(channel.ErrConflictingAdcConfig))

			Expect(b.SetToDemodulate(2)).To(Succeed())
			Expect(a.Reconcile(b)).To(Succeed())

			Expect(b.SetFilterFunction("xx", 1, 1)).To(Succeed())
			Expect(a.Reconcile(b)).To(MatchError(channel.ErrConflictingAdcConfig))
		})
	})

	It("should emit global and local packets", func() {
		Expect(a.SetToDemodulate(3)).To(Succeed())
		a.SetMixerTable([]channel.MixerEntry{{I: 1, Q: 2}})

		req := &packet.Request{}
		Expect(a.AddGlobalPackets(req, -1)).To(MatchError(channel.ErrInvalidArgument))

		Expect(a.AddGlobalPackets(req, 10)).To(Succeed())
		a.AddLocalPackets(req)

		Expect(req.Names()).To(Equal([]string{
			packet.AdcRunMode, packet.StartDelay, packet.AdcMixerTable,
		}))
		Expect(req.Records[0].Args).To(Equal([]any{"demodulate"}))
		Expect(req.Records[1].Args).To(Equal([]any{int64(10)}))
		Expect(req.Records[2].Args[0]).To(Equal(int64(3)))
	})

	It("should reset on clear", func() {
		Expect(a.SetToDemodulate(1)).To(Succeed())
		Expect(a.SetTrigMagnitude(3, 4)).To(Succeed())

		a.Clear()

		Expect(a.Mode()).To(Equal(channel.AdcUnset))
		s, c := a.TrigMagnitude()
		Expect(s).To(Equal(-1))
		Expect(c).To(Equal(-1))
	})
})
