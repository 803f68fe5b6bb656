package verify_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fpgaseq/packet"
	"github.com/sarchlab/fpgaseq/playback"
	"github.com/sarchlab/fpgaseq/verify"
)

var timed = []int64{0, 0x400000, 0x800000, 0xA00000 | 39, 0xC00000, 0x400001, 0xF00000}

func addDac(b *packet.Batch, name string, words []int64) {
	b.Request.Add(packet.SelectDevice, name)
	b.Request.Add(packet.StartDelay, int64(0))
	b.Request.Add(packet.Memory, words)
	b.Request.Add(packet.Sram, make([]int64, 40))
}

func types(issues []verify.Issue) []verify.IssueType {
	out := make([]verify.IssueType, len(issues))
	for i, issue := range issues {
		out[i] = issue.Type
	}

	return out
}

var _ = Describe("Lint", func() {
	var batch *packet.Batch

	BeforeEach(func() {
		batch = &packet.Batch{}
		addDac(batch, "dac1", timed)
		addDac(batch, "dac2", timed)
		batch.Request.Add(packet.SelectDevice, "adc1")
		batch.Request.Add(packet.AdcRunMode, "average")
	})

	finish := func(chain []string, order []string) {
		batch.Request.Add(packet.DaisyChain, chain)
		batch.Request.Add(packet.TimingOrder, order)
	}

	It("should pass a complete batch", func() {
		finish([]string{"dac1", "dac2", "adc1"}, []string{"dac2", "adc1::0"})
		Expect(verify.Lint(batch)).To(BeEmpty())
	})

	It("should find boards missing from the daisy chain", func() {
		finish([]string{"dac1", "adc1", "dac3"}, []string{"dac2"})

		issues := verify.Lint(batch)
		Expect(issues).To(ContainElement(verify.Issue{
			Type: verify.IssueStruct, Board: "dac3", Message: "in the daisy chain but never selected",
		}))
		Expect(issues).To(ContainElement(verify.Issue{
			Type: verify.IssueStruct, Board: "dac2", Message: "selected but not in the daisy chain",
		}))
		Expect(issues).To(ContainElement(verify.Issue{
			Type: verify.IssueStruct, Board: "dac2", Message: "in the timing order but not in the daisy chain",
		}))
	})

	It("should require a daisy chain and a timing order", func() {
		issues := verify.Lint(batch)
		Expect(types(issues)).To(HaveEach(verify.IssueStruct))
		Expect(issues).To(HaveLen(5))
	})

	It("should find a program without SRAM", func() {
		batch.Request.Add(packet.SelectDevice, "dac3")
		batch.Request.Add(packet.Memory, timed)
		finish([]string{"dac1", "dac2", "adc1", "dac3"}, nil)

		Expect(verify.Lint(batch)).To(ConsistOf(verify.Issue{
			Type: verify.IssueStruct, Board: "dac3", Message: "memory program without SRAM",
		}))
	})

	It("should find unpaired timers", func() {
		batch = &packet.Batch{}
		addDac(batch, "dac1", []int64{0x400000, 0x400000, 0xF00000})
		finish([]string{"dac1"}, nil)

		Expect(verify.Lint(batch)).To(ConsistOf(
			verify.Issue{Type: verify.IssueTiming, Board: "dac1", Message: "op 1 starts a running timer"},
			verify.Issue{Type: verify.IssueTiming, Board: "dac1", Message: "timer still running at the end"},
		))
	})

	It("should report undecodable programs", func() {
		batch = &packet.Batch{}
		addDac(batch, "dac1", []int64{0x400000})
		finish([]string{"dac1"}, nil)

		issues := verify.Lint(batch)
		Expect(issues).To(HaveLen(1))
		Expect(issues[0].Message).To(ContainSubstring("end"))
	})

	It("should find repeated setups", func() {
		off := packet.Setup{Server: packet.AnritsuServer, State: "uwave1: off"}
		batch.Setups = []packet.Setup{off, off}
		finish([]string{"dac1", "dac2", "adc1"}, nil)

		Expect(verify.Lint(batch)).To(HaveLen(1))
	})
})

var _ = Describe("Report", func() {
	player := func() *playback.Player {
		return playback.Builder{}.Build()
	}

	It("should report boards that end early", func() {
		batch := &packet.Batch{}
		addDac(batch, "dac1", timed)
		addDac(batch, "dac2", []int64{0x400000, 0x800000, 0xA00000 | 39, 0xC00000, 0x400001, 0xF00000})
		batch.Request.Add(packet.DaisyChain, []string{"dac1", "dac2"})
		batch.Request.Add(packet.TimingOrder, []string{"dac1"})

		r := verify.GenerateReport(batch, player())
		Expect(r.ReplayErr).NotTo(HaveOccurred())
		Expect(r.OK()).To(BeFalse())
		Expect(r.Issues).To(ConsistOf(verify.Issue{
			Type:    verify.IssueTiming,
			Board:   "dac2",
			Message: "ends at cycle 7, 1 cycles before the last board",
		}))

		buf := &bytes.Buffer{}
		r.WriteReport(buf)
		Expect(buf.String()).To(ContainSubstring("ends at cycle 7"))
		Expect(buf.String()).To(ContainSubstring("Replay"))
	})

	It("should pass a batch in lock-step", func() {
		batch := &packet.Batch{}
		addDac(batch, "dac1", timed)
		batch.Request.Add(packet.DaisyChain, []string{"dac1"})
		batch.Request.Add(packet.TimingOrder, []string{"dac1"})

		r := verify.GenerateReport(batch, player())
		Expect(r.OK()).To(BeTrue())
	})
})
