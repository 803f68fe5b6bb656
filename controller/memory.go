package controller

import (
	"fmt"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/mem"
)

// Commands returns a copy of the memory commands issued so far.
func (c *Controller) Commands() []mem.Command {
	out := make([]mem.Command, len(c.commands))
	copy(out, c.commands)

	return out
}

// Len returns the number of memory commands issued so far.
func (c *Controller) Len() int {
	return len(c.commands)
}

// AddCommand appends a memory command. Delays are merged into a directly
// preceding delay.
func (c *Controller) AddCommand(cmd mem.Command) error {
	if err := c.requireMemory("add memory command"); err != nil {
		return err
	}

	if cmd.Kind == mem.Delay {
		c.addDelayCycles(cmd.Cycles)
		return nil
	}

	c.commands = append(c.commands, cmd)

	return nil
}

// AddCommands appends several memory commands in order.
func (c *Controller) AddCommands(cmds []mem.Command) error {
	for _, cmd := range cmds {
		if err := c.AddCommand(cmd); err != nil {
			return err
		}
	}

	return nil
}

// AddNoops appends n Noops.
func (c *Controller) AddNoops(n int) error {
	for i := 0; i < n; i++ {
		if err := c.AddCommand(mem.NewNoop()); err != nil {
			return err
		}
	}

	return nil
}

// AddDelay appends a delay given in microseconds.
func (c *Controller) AddDelay(us float64) error {
	if err := c.requireMemory("add delay"); err != nil {
		return err
	}

	c.addDelayCycles(board.MicrosecondsToClocks(us))

	return nil
}

// AddDelayCycles appends a delay given in memory clock cycles.
func (c *Controller) AddDelayCycles(cycles int64) error {
	if err := c.requireMemory("add delay"); err != nil {
		return err
	}

	if cycles > 0 {
		c.addDelayCycles(cycles)
	}

	return nil
}

func (c *Controller) addDelayCycles(cycles int64) {
	n := len(c.commands)
	if n > 0 && c.commands[n-1].Kind == mem.Delay {
		c.commands[n-1].Cycles += cycles
		return
	}

	c.commands = append(c.commands, mem.NewDelay(cycles))
}

// TimerStarted tells if the timer has been started at least once.
func (c *Controller) TimerStarted() bool {
	return c.timerStartCount > 0
}

// TimerRunning tells if the timer has been started and not yet stopped.
func (c *Controller) TimerRunning() bool {
	return c.timerStartCount == c.timerStopCount+1
}

// TimerStopped tells if the timer is stopped.
func (c *Controller) TimerStopped() bool {
	return c.timerStartCount == c.timerStopCount
}

// StartTimer issues a StartTimer. The timer must be stopped.
func (c *Controller) StartTimer() error {
	if err := c.requireMemory("start timer"); err != nil {
		return err
	}

	if !c.TimerStopped() {
		return fmt.Errorf("%s: timer already started: %w", c.board, ErrTimerState)
	}

	c.commands = append(c.commands, mem.NewStartTimer())
	c.timerStartCount++

	return nil
}

// StopTimer issues a StopTimer. The timer must be running.
func (c *Controller) StopTimer() error {
	if err := c.requireMemory("stop timer"); err != nil {
		return err
	}

	if !c.TimerRunning() {
		return fmt.Errorf("%s: timer not started: %w", c.board, ErrTimerState)
	}

	c.commands = append(c.commands, mem.NewStopTimer())
	c.timerStopCount++

	return nil
}

// CheckTimerStatus verifies that the timer was started at least once and
// stopped as often as it was started.
func (c *Controller) CheckTimerStatus() error {
	if c.kind != Memory {
		return nil
	}

	if !c.TimerStarted() {
		return fmt.Errorf("%s: timer not started: %w", c.board, ErrTimerState)
	}

	if !c.TimerStopped() {
		return fmt.Errorf("%s: timer not stopped: %w", c.board, ErrTimerState)
	}

	return nil
}

// CallSramBlock plays one SRAM block.
func (c *Controller) CallSramBlock(block string) error {
	if err := c.requireMemory("call SRAM"); err != nil {
		return err
	}

	if c.sramDualBlock {
		return fmt.Errorf("%s: %w", c.board, ErrSramExclusivity)
	}

	c.commands = append(c.commands, mem.NewCallSram(block))
	c.sramCalled = true

	return nil
}

// CallSramDualBlock plays two SRAM blocks back to back.
func (c *Controller) CallSramDualBlock(block1, block2 string) error {
	if err := c.requireMemory("call SRAM dual block"); err != nil {
		return err
	}

	if c.sramCalled {
		return fmt.Errorf("%s: %w", c.board, ErrSramExclusivity)
	}

	if c.sramDualBlock {
		return fmt.Errorf("%s: %w", c.board, ErrDualBlockRepeated)
	}

	c.commands = append(c.commands, mem.NewCallSramDualBlock(block1, block2, c.dualBlockDelay))
	c.dualBlockIndex = len(c.commands) - 1
	c.sramDualBlock = true

	return nil
}

// SetSramDualBlockDelay sets the delay between the two blocks of a
// dual-block call, updating a call that was already issued.
func (c *Controller) SetSramDualBlockDelay(ns float64) {
	c.dualBlockDelay = &ns

	if c.sramDualBlock {
		c.commands[c.dualBlockIndex].DelayNs = ns
		c.commands[c.dualBlockIndex].DelayIsSet = true
	}
}

// HasDualBlockSram tells if the sequence has a dual-block call.
func (c *Controller) HasDualBlockSram() bool {
	return c.sramDualBlock
}

// DualBlock returns the block names and delay of the dual-block call.
func (c *Controller) DualBlock() (block1, block2 string, delayNs float64, err error) {
	if !c.sramDualBlock {
		return "", "", 0, fmt.Errorf("%s: %w", c.board, ErrNoDualBlock)
	}

	cmd := c.commands[c.dualBlockIndex]
	if !cmd.DelayIsSet {
		return "", "", 0, fmt.Errorf("%s: %w", c.board, mem.ErrDelayNotSet)
	}

	return cmd.Block, cmd.Block2, cmd.DelayNs, nil
}

// Memory renders the memory words of the board. A Noop is prepended and an
// EndSequence appended. Calls of blocks the board never declared play the
// zero-filled region [0, shortestSram].
func (c *Controller) Memory(blocks Blocks, shortestSram, maxMemory int) ([]int64, error) {
	if err := c.requireMemory("render memory"); err != nil {
		return nil, err
	}

	cmds := make([]mem.Command, 0, len(c.commands)+2)
	cmds = append(cmds, mem.NewNoop())
	cmds = append(cmds, c.commands...)
	cmds = append(cmds, mem.NewEndSequence())

	for i := range cmds {
		if cmds[i].Kind != mem.CallSram {
			continue
		}

		if err := resolve(&cmds[i], blocks, shortestSram); err != nil {
			return nil, fmt.Errorf("%s: %w", c.board, err)
		}
	}

	words := mem.Concat(cmds)
	if len(words) > maxMemory {
		return nil, fmt.Errorf("%s: %d words, limit %d: %w",
			c.board, len(words), maxMemory, ErrMemoryTooLong)
	}

	return words, nil
}

func resolve(cmd *mem.Command, blocks Blocks, shortestSram int) error {
	if !blocks.HasBlock(cmd.Block) {
		cmd.Start = 0
		cmd.End = int64(shortestSram)

		return nil
	}

	start, err := blocks.BlockStart(cmd.Block)
	if err != nil {
		return err
	}

	end, err := blocks.BlockEnd(cmd.Block)
	if err != nil {
		return err
	}

	cmd.Start = int64(start)
	cmd.End = int64(end)

	return nil
}
