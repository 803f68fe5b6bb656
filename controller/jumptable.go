package controller

import (
	"fmt"

	"github.com/sarchlab/fpgaseq/packet"
)

// NumCounters is the number of hardware counters of a jump table.
const NumCounters = 4

// CycleEntry is the jump table opcode that loops through a counter.
const CycleEntry = "CYCLE"

// An Entry is one jump table instruction.
type Entry struct {
	Name string
	Args []int64
}

// AddEntry appends a jump table entry. A CYCLE entry takes four arguments;
// its third argument is the loop count, which moves into the next free
// counter and is replaced by the counter index.
func (c *Controller) AddEntry(name string, args []int64) error {
	if c.kind != JumpTable {
		return fmt.Errorf("%s: add jump table entry on %s controller: %w",
			c.board, c.kind, ErrWrongKind)
	}

	args = append([]int64(nil), args...)

	if name == CycleEntry {
		if len(args) != 4 {
			return fmt.Errorf("%s: cycle must have 4 arguments, got %v", c.board, args)
		}

		if c.countersUsed == NumCounters {
			return fmt.Errorf("%s: %w", c.board, ErrCounterOverflow)
		}

		c.counters[c.countersUsed] = args[2]
		args[2] = int64(c.countersUsed)
		c.countersUsed++
	}

	c.entries = append(c.entries, Entry{Name: name, Args: args})

	return nil
}

// Entries returns the jump table entries in insertion order.
func (c *Controller) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Counters returns the counter values.
func (c *Controller) Counters() [NumCounters]int64 {
	return c.counters
}

func (c *Controller) addJumpTablePackets(req *packet.Request) {
	req.Add(packet.JumpTableClear)
	req.Add(packet.JumpTableCounters, c.counters)

	for _, e := range c.entries {
		req.Add(packet.JumpTableAddEntry, e.Name, e.Args)
	}
}
