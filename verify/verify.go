// Package verify checks a compiled batch before it is sent to the boards.
//
// Lint runs static checks on the records: STRUCT issues are records that
// the boards cannot run as a whole, TIMING issues are programs whose timers
// do not pair up. GenerateReport adds a replay of the memory programs.
package verify

import (
	"fmt"
	"strings"

	"github.com/sarchlab/fpgaseq/packet"
	"github.com/sarchlab/fpgaseq/playback"
)

// IssueType classifies an issue.
type IssueType string

const (
	IssueStruct IssueType = "STRUCT"
	IssueTiming IssueType = "TIMING"
)

// Issue is one problem found in a batch. Board is empty for issues that
// concern the whole batch.
type Issue struct {
	Type    IssueType
	Board   string
	Message string
}

func (i Issue) String() string {
	if i.Board == "" {
		return fmt.Sprintf("[%s] %s", i.Type, i.Message)
	}

	return fmt.Sprintf("[%s] %s: %s", i.Type, i.Board, i.Message)
}

type linter struct {
	issues []Issue
}

func (l *linter) add(t IssueType, board, format string, args ...any) {
	l.issues = append(l.issues, Issue{Type: t, Board: board, Message: fmt.Sprintf(format, args...)})
}

// Lint runs the static checks on a batch.
func Lint(batch *packet.Batch) []Issue {
	l := &linter{}

	chain := l.chain(batch)
	runs := batch.Boards()

	inChain := make(map[string]bool, len(chain))
	for _, name := range chain {
		inChain[name] = true

		if _, ok := runs[name]; !ok {
			l.add(IssueStruct, name, "in the daisy chain but never selected")
		}
	}

	for _, rec := range batch.Request.FindAll(packet.SelectDevice) {
		name, _ := rec.Args[0].(string)
		if !inChain[name] {
			l.add(IssueStruct, name, "selected but not in the daisy chain")
		}
	}

	l.timingOrder(batch, inChain)
	l.setups(batch)

	for _, name := range chain {
		l.board(name, runs[name])
	}

	return l.issues
}

func (l *linter) chain(batch *packet.Batch) []string {
	recs := batch.Request.FindAll(packet.DaisyChain)
	if len(recs) != 1 {
		l.add(IssueStruct, "", "%d daisy chain records, want 1", len(recs))
	}

	if len(recs) == 0 {
		return nil
	}

	names, _ := recs[0].Args[0].([]string)

	return names
}

func (l *linter) timingOrder(batch *packet.Batch, inChain map[string]bool) {
	rec, ok := batch.Request.Find(packet.TimingOrder)
	if !ok {
		l.add(IssueStruct, "", "no timing order")
		return
	}

	names, _ := rec.Args[0].([]string)
	for _, name := range names {
		board, _, _ := strings.Cut(name, "::")
		if !inChain[board] {
			l.add(IssueStruct, board, "in the timing order but not in the daisy chain")
		}
	}
}

func (l *linter) setups(batch *packet.Batch) {
	seen := make(map[string]bool)

	for _, s := range batch.Setups {
		key := s.Server + "\x00" + s.State
		if seen[key] {
			l.add(IssueStruct, "", "setup %q sent twice to %s", s.State, s.Server)
		}

		seen[key] = true
	}
}

func (l *linter) board(name string, recs []packet.Record) {
	has := make(map[string]int)
	for _, rec := range recs {
		has[rec.Name]++
	}

	sram := has[packet.Sram] + has[packet.SramDualBlock]

	switch {
	case has[packet.Memory] > 1:
		l.add(IssueStruct, name, "%d memory programs", has[packet.Memory])
	case has[packet.Memory] == 1 && sram == 0:
		l.add(IssueStruct, name, "memory program without SRAM")
	case has[packet.Memory] == 0 && has[packet.JumpTableClear] == 0 && sram > 0:
		l.add(IssueStruct, name, "SRAM without a program")
	}

	if sram > 1 {
		l.add(IssueStruct, name, "%d SRAM records", sram)
	}

	ops, ok, err := playback.DecodeBoard(recs)
	if err != nil {
		l.add(IssueStruct, name, "%v", err)
		return
	}

	if ok {
		l.timers(name, ops)
	}
}

// timers checks that every start timer is stopped before the next one and
// before the end.
func (l *linter) timers(name string, ops []playback.Op) {
	running := false

	for i, op := range ops {
		switch op.Kind {
		case playback.OpStartTimer:
			if running {
				l.add(IssueTiming, name, "op %d starts a running timer", i)
			}

			running = true
		case playback.OpStopTimer:
			if !running {
				l.add(IssueTiming, name, "op %d stops a timer that is not running", i)
			}

			running = false
		}
	}

	if running {
		l.add(IssueTiming, name, "timer still running at the end")
	}
}
