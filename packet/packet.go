// Package packet defines the records handed to the board transport layer.
package packet

import (
	"fmt"
	"strings"
)

// Record names understood by the board driver.
const (
	SelectDevice      = "Select Device"
	StartDelay        = "Start Delay"
	Memory            = "Memory"
	Sram              = "SRAM"
	SramDualBlock     = "SRAM dual block"
	DaisyChain        = "Daisy Chain"
	TimingOrder       = "Timing Order"
	JumpTableClear    = "Jump Table Clear"
	JumpTableCounters = "Jump Table Set Counters"
	JumpTableAddEntry = "Jump Table Add Entry"
	AdcRunMode        = "ADC Run Mode"
	AdcTriggerTable   = "ADC Trigger Table"
	AdcMixerTable     = "ADC Mixer Table"
	Output            = "Output"
	Frequency         = "Frequency"
	Amplitude         = "Amplitude"
	SelectCard        = "Select Card"
	PreampRegister    = "Register"
	BiasVoltage       = "Channel Set Voltage"
	LoopDelay         = "Loop Delay"
)

// Servers that receive setup packets.
const (
	DCRackServer  = "DC Rack Server"
	AnritsuServer = "Anritsu Server"
	HittiteServer = "Hittite T2100 Server"
)

// A Record is one named call with its arguments.
type Record struct {
	Name string
	Args []any
}

func (r Record) String() string {
	if len(r.Args) == 0 {
		return r.Name
	}

	parts := make([]string, len(r.Args))
	for i, a := range r.Args {
		parts[i] = summarize(a)
	}

	return fmt.Sprintf("%s(%s)", r.Name, strings.Join(parts, ", "))
}

func summarize(a any) string {
	switch v := a.(type) {
	case []int64:
		return fmt.Sprintf("[%d words]", len(v))
	case []string:
		return strings.Join(v, " ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// DualBlock is the payload of a SramDualBlock record.
type DualBlock struct {
	Block1  []int64
	Block2  []int64
	DelayNs float64
}

// A Request accumulates records in order.
type Request struct {
	Records []Record
}

// Add appends a record.
func (r *Request) Add(name string, args ...any) {
	r.Records = append(r.Records, Record{Name: name, Args: args})
}

// Names returns the record names in order.
func (r *Request) Names() []string {
	names := make([]string, len(r.Records))
	for i, rec := range r.Records {
		names[i] = rec.Name
	}

	return names
}

// Find returns the first record with the given name.
func (r *Request) Find(name string) (Record, bool) {
	for _, rec := range r.Records {
		if rec.Name == name {
			return rec, true
		}
	}

	return Record{}, false
}

// FindAll returns every record with the given name.
func (r *Request) FindAll(name string) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}

	return out
}

// Setup is a configuration request for an auxiliary server, such as a
// microwave source or the DC rack, together with the state token that
// identifies it.
type Setup struct {
	Server  string
	Records []Record
	State   string
}

// Batch is the complete compiled output of an experiment.
type Batch struct {
	Setups  []Setup
	Request Request
}

// SetupStates returns the state tokens of the setup packets.
func (b *Batch) SetupStates() []string {
	out := make([]string, len(b.Setups))
	for i, s := range b.Setups {
		out[i] = s.State
	}

	return out
}

// Boards splits the request into per-board record runs, each starting at a
// Select Device record. Records before the first selection are dropped.
func (b *Batch) Boards() map[string][]Record {
	out := make(map[string][]Record)

	current := ""
	for _, rec := range b.Request.Records {
		if rec.Name == SelectDevice {
			current, _ = rec.Args[0].(string)
			continue
		}

		if rec.Name == DaisyChain || rec.Name == TimingOrder {
			current = ""
			continue
		}

		if current != "" {
			out[current] = append(out[current], rec)
		}
	}

	return out
}
