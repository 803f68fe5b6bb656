// Package fpga models the boards of an experiment at build time. A Dac
// renders the memory program and SRAM of a DAC board from the channels bound
// to it; an Adc emits the readout settings of an ADC board. SRAM blocks are
// laid out in the order they were declared in the experiment, each padded at
// the front to a multiple of four samples and at least twenty samples.
package fpga
