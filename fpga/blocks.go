package fpga

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

// SRAM blocks are padded to a multiple of BlockAlign samples and to at least
// MinBlockLength samples.
const (
	BlockAlign     = 4
	MinBlockLength = 20
)

var (
	// ErrInconsistentBlockLength is returned when a block name is declared
	// again with another length.
	ErrInconsistentBlockLength = errors.New("conflicting block lengths")

	// ErrUndeclaredBlock is returned when a block is looked up on a
	// directory that does not declare it.
	ErrUndeclaredBlock = errors.New("undeclared SRAM block")
)

// BlockLengthError reports a block declared twice with different lengths.
type BlockLengthError struct {
	Block string
	Board string
	Have  int
	Want  int
}

func (e *BlockLengthError) Error() string {
	return fmt.Sprintf("%s: block %q declared with length %d, was %d: %v",
		e.Board, e.Block, e.Want, e.Have, ErrInconsistentBlockLength)
}

func (e *BlockLengthError) Unwrap() error {
	return ErrInconsistentBlockLength
}

func roundUp[T constraints.Integer](v, m T) T {
	return (v + m - 1) / m * m
}

// PaddedLength returns the number of SRAM samples a block of n samples
// occupies.
func PaddedLength(n int) int {
	if n%BlockAlign == 0 && n >= MinBlockLength {
		return n
	}

	return max(roundUp(n, BlockAlign), MinBlockLength)
}

// A Directory records SRAM block names and lengths in declaration order.
type Directory struct {
	owner   string
	names   []string
	lengths map[string]int
}

// NewDirectory creates an empty directory. The owner names the directory in
// errors.
func NewDirectory(owner string) *Directory {
	return &Directory{owner: owner, lengths: make(map[string]int)}
}

// Declare adds a block. Declaring a known block again is allowed only with
// the same length.
func (d *Directory) Declare(name string, length int) error {
	if have, ok := d.lengths[name]; ok {
		if have != length {
			return &BlockLengthError{Block: name, Board: d.owner, Have: have, Want: length}
		}

		return nil
	}

	d.names = append(d.names, name)
	d.lengths[name] = length

	return nil
}

// Clear forgets every block.
func (d *Directory) Clear() {
	d.names = nil
	d.lengths = make(map[string]int)
}

// Names returns the block names in declaration order.
func (d *Directory) Names() []string {
	return d.names
}

// HasBlock tells if the block was declared.
func (d *Directory) HasBlock(name string) bool {
	_, ok := d.lengths[name]
	return ok
}

// BlockLength returns the declared length of a block.
func (d *Directory) BlockLength(name string) (int, error) {
	n, ok := d.lengths[name]
	if !ok {
		return 0, fmt.Errorf("%s: block %q: %w", d.owner, name, ErrUndeclaredBlock)
	}

	return n, nil
}

// PaddedLength returns the padded length of a block.
func (d *Directory) PaddedLength(name string) (int, error) {
	n, err := d.BlockLength(name)
	if err != nil {
		return 0, err
	}

	return PaddedLength(n), nil
}

// BlockStart returns the SRAM address of the first sample of a block.
func (d *Directory) BlockStart(name string) (int, error) {
	if !d.HasBlock(name) {
		return 0, fmt.Errorf("%s: block %q: %w", d.owner, name, ErrUndeclaredBlock)
	}

	start := 0
	for _, b := range d.names {
		if b == name {
			break
		}

		start += PaddedLength(d.lengths[b])
	}

	return start, nil
}

// BlockEnd returns the SRAM address of the last sample of a block.
func (d *Directory) BlockEnd(name string) (int, error) {
	start, err := d.BlockStart(name)
	if err != nil {
		return 0, err
	}

	return start + PaddedLength(d.lengths[name]) - 1, nil
}

// TotalLength returns the padded length of all blocks together.
func (d *Directory) TotalLength() int {
	total := 0
	for _, b := range d.names {
		total += PaddedLength(d.lengths[b])
	}

	return total
}
