package experiment_test

import (
	"context"
	"errors"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/channeldata"
	"github.com/sarchlab/fpgaseq/controller"
	"github.com/sarchlab/fpgaseq/deconv"
	"github.com/sarchlab/fpgaseq/experiment"
	"github.com/sarchlab/fpgaseq/packet"
)

func recordNames(recs []packet.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}

	return out
}

var _ = Describe("Experiment", func() {
	var (
		mockCtrl   *gomock.Controller
		svc        *MockService
		dispatcher *deconv.Dispatcher

		dac1, dac2, dac3, adc1 *board.Board
		source                 board.MicrowaveSource

		e *experiment.Experiment
	)

	qubit := experiment.Device{
		Name: "q0",
		Channels: []experiment.ChannelSpec{
			{Name: "flux", Kind: channel.Analog, Board: "dac1", Dac: board.DacA},
			{Name: "uw", Kind: channel.Microwave, Board: "dac2"},
			{Name: "trig", Kind: channel.Trigger, Board: "dac1", Trigger: board.S0},
			{Name: "bias", Kind: channel.FiberBias, Board: "dac3", Fiber: board.Out0},
			{Name: "readout", Kind: channel.AdcReadout, Board: "adc1"},
		},
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		svc = NewMockService(mockCtrl)
		dispatcher = deconv.DispatcherBuilder{}.WithNumWorkers(2).Build(svc)

		dac1 = board.New("dac1", board.Analog)
		dac2 = board.New("dac2", board.Microwave)
		dac2.MicrowaveSource = "uwave1"
		dac3 = board.New("dac3", board.Analog)
		Expect(dac3.ConnectFiber(board.Out0, "bias_card", "A")).To(Succeed())
		adc1 = board.New("adc1", board.Adc)
		source = board.MicrowaveSource{Name: "uwave1", Device: "GPIB0::5"}

		var err error
		e, err = experiment.NewBuilder().
			WithBoards(dac1, dac2, dac3, adc1).
			WithMicrowaveSources(source).
			WithDispatcher(dispatcher).
			Build(qubit)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		dispatcher.Close()
		mockCtrl.Finish()
	})

	analogOK := func() {
		svc.EXPECT().DeconvolveAnalog(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req deconv.AnalogRequest) ([]int, error) {
				return make([]int, req.Length), nil
			})
	}

	iqOK := func() {
		svc.EXPECT().DeconvolveIq(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req deconv.IqRequest) (deconv.IqResult, error) {
				return deconv.IqResult{I: make([]int, req.Length), Q: make([]int, req.Length)}, nil
			})
	}

	program := func() {
		Expect(e.MemStartTimer("q0.bias")).To(Succeed())
		Expect(e.MemCallSram("b")).To(Succeed())
		Expect(e.MemStopTimer("q0.bias")).To(Succeed())

		Expect(e.NewSramBlock("b", 40, "q0.flux")).To(Succeed())
		Expect(e.NewSramBlock("b", 40, "q0.uw")).To(Succeed())
		Expect(e.NewSramBlock("b", 40, "q0.trig")).To(Succeed())

		Expect(e.ConfigMicrowaves("q0.uw", 6.5, 10)).To(Succeed())
		Expect(e.AdcSetAverage("q0.readout")).To(Succeed())
		Expect(e.SetStartDelay("q0.readout", 0)).To(Succeed())
	}

	It("should bind channels to board models in order of use", func() {
		Expect(e.FpgaNames()).To(Equal([]string{"dac1", "dac2", "dac3", "adc1"}))
		Expect(e.Dacs()).To(HaveLen(3))
		Expect(e.Adcs()).To(HaveLen(1))

		ch, err := e.Lookup("q0.trig")
		Expect(err).NotTo(HaveOccurred())
		Expect(ch.Fpga).To(Equal(0))
	})

	It("should reject a bare device name with several channels", func() {
		_, err := e.Lookup("q0")
		Expect(err).To(MatchError(experiment.ErrUnknownChannel))
	})

	It("should reject an operation on the wrong channel kind", func() {
		Expect(e.ConfigSettling("q0.uw", []float64{1}, []float64{2})).
			To(MatchError(channel.ErrWrongKind))
	})

	It("should reject a channel on an unknown board", func() {
		_, err := experiment.NewBuilder().Build(qubit)
		Expect(err).To(MatchError(experiment.ErrUnknownBoard))
	})

	It("should list timing channels in declaration order", func() {
		Expect(e.TimingOrder()).To(Equal([]string{"dac3", "adc1"}))

		Expect(e.ConfigTimingOrder("q0.readout::1", "q0.bias")).To(Succeed())
		Expect(e.TimingOrder()).To(Equal([]string{"adc1::1", "dac3"}))
	})

	It("should fail to build when a timer was never started", func() {
		_, err := e.Build(context.Background())
		Expect(err).To(MatchError(controller.ErrTimerState))
		Expect(e.Dirty().Any()).To(BeTrue())
	})

	It("should pad timer steps with Noops on other boards", func() {
		Expect(e.MemStartTimer()).To(Succeed())

		d3, err := e.Dac("dac3")
		Expect(err).NotTo(HaveOccurred())
		Expect(d3.Controller().TimerStarted()).To(BeFalse())
		Expect(d3.Controller().Len()).To(Equal(1))

		d1, err := e.Dac("dac1")
		Expect(err).NotTo(HaveOccurred())
		Expect(d1.Controller().TimerRunning()).To(BeTrue())
	})

	It("should pad bias commands to the longest list", func() {
		err := e.MemBias([]experiment.BiasCommand{
			{Channel: "q0.bias", Type: "dac1", Millivolts: 100},
			{Channel: "q0.bias", Type: "dac0", Millivolts: 0},
		}, experiment.DefaultBiasDelayUs)
		Expect(err).NotTo(HaveOccurred())

		for _, d := range e.Dacs() {
			Expect(d.Controller().Len()).To(Equal(3))
		}
	})

	It("should pad every board to the longest program", func() {
		d1, err := e.Dac("dac1")
		Expect(err).NotTo(HaveOccurred())
		Expect(d1.Controller().AddNoops(1)).To(Succeed())
		Expect(e.MemDelay(0.2)).To(Succeed())

		Expect(e.MemSyncDelay()).To(Succeed())

		lengths := make([]float64, 0, len(e.Dacs()))
		for _, d := range e.Dacs() {
			l, err := d.SequenceLength()
			Expect(err).NotTo(HaveOccurred())
			lengths = append(lengths, l)
		}

		Expect(lengths).To(HaveEach(BeNumerically("~", lengths[0], 1e-9)))
		Expect(lengths[0]).To(BeNumerically("~", 0.24, 1e-9))
	})

	It("should reject bias commands for a jump table board", func() {
		jt := board.New("dac9", board.Analog)
		jt.BuildNumber = board.JumpTableBuild
		Expect(jt.ConnectFiber(board.Out0, "bias_card", "B")).To(Succeed())

		e, err := experiment.NewBuilder().
			WithBoards(jt).
			WithDispatcher(dispatcher).
			Build(experiment.Device{Name: "q1", Channels: []experiment.ChannelSpec{
				{Name: "bias", Kind: channel.FiberBias, Board: "dac9", Fiber: board.Out0},
			}})
		Expect(err).NotTo(HaveOccurred())

		err = e.MemBias([]experiment.BiasCommand{
			{Channel: "q1.bias", Type: "dac1", Millivolts: 100},
		}, 0)
		Expect(err).To(MatchError(controller.ErrWrongKind))
	})

	It("should build the whole sequence", func() {
		program()
		e.ConfigLoopDelay(50)
		analogOK()
		iqOK()

		batch, err := e.Build(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Dirty().Any()).To(BeFalse())

		Expect(batch.SetupStates()).To(Equal([]string{"uwave1: 6.5 GHz @ 10 dBm"}))

		boards := batch.Boards()
		Expect(recordNames(boards["adc1"])).To(Equal([]string{packet.AdcRunMode, packet.StartDelay}))
		Expect(recordNames(boards["dac1"])).To(Equal([]string{
			packet.StartDelay, packet.Memory, packet.Sram, packet.LoopDelay,
		}))

		mem, ok := batch.Request.Find(packet.Memory)
		Expect(ok).To(BeTrue())
		Expect(mem.Args[0]).To(Equal([]int64{
			0, 0x400000, 0x800000, 0xA00000 | 39, 0xC00000, 0x400001, 0xF00000,
		}))

		zeros := boards["dac3"][2]
		Expect(zeros.Name).To(Equal(packet.Sram))
		Expect(zeros.Args[0]).To(HaveLen(40))
		Expect(zeros.Args[0]).To(HaveEach(int64(0)))

		chain, _ := batch.Request.Find(packet.DaisyChain)
		Expect(chain.Args[0]).To(Equal([]string{"dac1", "dac2", "dac3", "adc1"}))

		order, _ := batch.Request.Find(packet.TimingOrder)
		Expect(order.Args[0]).To(Equal([]string{"dac3", "adc1"}))
	})

	It("should not deconvolve a block twice", func() {
		program()
		analogOK()
		iqOK()

		_, err := e.Build(context.Background())
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Build(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should deconvolve again after the carrier changed", func() {
		program()
		analogOK()
		iqOK()

		_, err := e.Build(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(e.ConfigMicrowaves("q0.uw", 7, 10)).To(Succeed())
		Expect(e.Dirty().Config).To(BeTrue())
		iqOK()

		_, err = e.Build(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should abort the build when a deconvolution fails", func() {
		program()
		iqOK()
		svc.EXPECT().DeconvolveAnalog(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("server down"))

		batch, err := e.Build(context.Background())
		Expect(err).To(MatchError(ContainSubstring("server down")))
		Expect(batch).To(BeNil())
		Expect(e.Dirty().Any()).To(BeTrue())
	})

	It("should reject a deconvolution reply of the wrong length", func() {
		program()
		iqOK()
		svc.EXPECT().DeconvolveAnalog(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req deconv.AnalogRequest) ([]int, error) {
				return make([]int, req.Length+1), nil
			})

		batch, err := e.Build(context.Background())
		Expect(err).To(MatchError(channeldata.ErrLength))
		Expect(batch).To(BeNil())
	})

	It("should require a microwave configuration", func() {
		program()
		e.ClearConfig()
		Expect(e.AdcSetAverage("q0.readout")).To(Succeed())

		_, err := e.Build(context.Background())
		Expect(err).To(MatchError(channel.ErrNoMicrowaveConfig))
	})

	Context("with a shared microwave source", func() {
		var dac4 *board.Board

		BeforeEach(func() {
			dac4 = board.New("dac4", board.Microwave)
			dac4.MicrowaveSource = "uwave1"

			var err error
			e, err = experiment.NewBuilder().
				WithBoards(dac1, dac2, dac3, adc1, dac4).
				WithMicrowaveSources(source, board.MicrowaveSource{Name: "uwave2", Device: "GPIB0::6"}).
				WithDispatcher(dispatcher).
				Build(qubit, experiment.Device{
					Name: "q1",
					Channels: []experiment.ChannelSpec{
						{Name: "uw", Kind: channel.Microwave, Board: "dac4"},
					},
				})
			Expect(err).NotTo(HaveOccurred())

			program()
			Expect(e.NewSramBlock("b", 40, "q1.uw")).To(Succeed())
		})

		It("should reject conflicting configurations", func() {
			Expect(e.ConfigMicrowaves("q1", 5, 10)).To(Succeed())

			_, err := e.Build(context.Background())
			Expect(err).To(MatchError(experiment.ErrConflictingMicrowaveConfig))
		})

		It("should emit one setup for matching configurations", func() {
			Expect(e.ConfigMicrowaves("q1", 6.5, 10)).To(Succeed())
			analogOK()
			iqOK()
			iqOK()

			batch, err := e.Build(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(batch.Setups).To(HaveLen(1))
		})
	})

	It("should turn off the source of a board without microwave channels", func() {
		dac4 := board.New("dac4", board.Microwave)
		dac4.MicrowaveSource = "uwave2"

		ex, err := experiment.NewBuilder().
			WithBoards(dac4).
			WithMicrowaveSources(board.MicrowaveSource{Name: "uwave2", Device: "GPIB0::6"}).
			WithDispatcher(dispatcher).
			Build(experiment.Device{
				Name: "q9",
				Channels: []experiment.ChannelSpec{
					{Name: "trig", Kind: channel.Trigger, Board: "dac4", Trigger: board.S3},
				},
			})
		Expect(err).NotTo(HaveOccurred())

		Expect(ex.MemStartTimer()).To(Succeed())
		Expect(ex.MemStopTimer()).To(Succeed())

		batch, err := ex.Build(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(batch.SetupStates()).To(Equal([]string{"uwave2: off"}))
	})

	It("should emit preamp and serial bias setups", func() {
		Expect(e.ConfigPreamp("q0.bias", 100, true, "1000", "0.5")).To(Succeed())

		setups := func() []string {
			program()
			analogOK()
			iqOK()

			batch, err := e.Build(context.Background())
			Expect(err).NotTo(HaveOccurred())

			return batch.SetupStates()
		}()

		Expect(setups).To(HaveLen(2))
		Expect(setups[1]).To(ContainSubstring("offset=100"))
	})
})
