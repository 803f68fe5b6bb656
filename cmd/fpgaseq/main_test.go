package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/buildinfo"
	"github.com/sarchlab/fpgaseq/config"
	"github.com/sarchlab/fpgaseq/recipe"
)

var _ = Describe("Build metadata source", func() {
	var (
		buf *bytes.Buffer
		a   *app
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		a = &app{
			cfg:    config.Default(),
			logger: config.NewLogger(buf, slog.LevelInfo),
			connect: func(_, _, _, _ string) (*buildinfo.SQLSource, error) {
				return nil, errors.New("dial tcp 127.0.0.1:3306: connection refused")
			},
		}
		a.cfg.NoDB = false
	})

	It("should fall back to defaults when the registry is unreachable", func() {
		src := a.source(nil)
		Expect(src).To(BeNil())
		Expect(buf.String()).To(ContainSubstring("registry unavailable"))

		b := board.New("dac1", board.Analog)
		b.BuildNumber = 99
		buildinfo.Load(context.Background(), src, b, a.logger)
		Expect(b.BuildNumber).To(Equal(board.DefaultBuildNumber(board.Analog)))
		Expect(b.Properties).To(Equal(board.DefaultDacProperties()))
	})

	It("should serve the recipe builds without a database", func() {
		a.cfg.NoDB = true

		r, err := recipe.Load("../../recipe/testdata/qubit.yaml")
		Expect(err).NotTo(HaveOccurred())

		Expect(a.source(r)).NotTo(BeNil())
		Expect(buf.String()).To(BeEmpty())
	})
})

var _ = Describe("Properties table", func() {
	It("should list the properties of each board by name", func() {
		b := board.New("dac1", board.Analog)
		b.Properties = board.Properties{"SRAM_WRITE_PKT_LEN": 256, "SRAM_LEN": 10240}

		var buf bytes.Buffer
		propsTable(&buf, []*board.Board{b})

		out := buf.String()
		Expect(out).To(ContainSubstring("dac1"))
		Expect(strings.Index(out, "SRAM_LEN")).To(BeNumerically("<", strings.Index(out, "SRAM_WRITE_PKT_LEN")))
		Expect(out).To(ContainSubstring("10240"))
	})
})
