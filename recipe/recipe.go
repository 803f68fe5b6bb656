// Package recipe reads experiment descriptions from YAML and replays them
// as calls on an experiment.
package recipe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/fpgaseq/board"
	"github.com/sarchlab/fpgaseq/buildinfo"
	"github.com/sarchlab/fpgaseq/channel"
	"github.com/sarchlab/fpgaseq/experiment"
)

// ErrBadStep is returned for a memory step that names no operation or
// more than one.
var ErrBadStep = errors.New("memory step must name exactly one operation")

// A Recipe describes the boards, devices and sequence of one experiment.
type Recipe struct {
	Boards  []Board         `yaml:"boards"`
	Sources []Source        `yaml:"sources"`
	Devices []Device        `yaml:"devices"`
	Config  Config          `yaml:"config"`
	Memory  []Step          `yaml:"memory"`
	Sram    Sram            `yaml:"sram"`
	Props   map[string]Prop `yaml:"properties"`
}

// Board is a physical board. Build pins the build number; otherwise it is
// looked up.
type Board struct {
	Name            string           `yaml:"name"`
	Family          string           `yaml:"family"`
	Build           *int             `yaml:"build"`
	MicrowaveSource string           `yaml:"microwave_source"`
	Fibers          map[string]Fiber `yaml:"fibers"`
}

// Fiber is the bias card channel a fiber reaches.
type Fiber struct {
	Card    string `yaml:"card"`
	Channel string `yaml:"channel"`
}

// Prop pins the build properties of one build type and number.
type Prop struct {
	Build  int              `yaml:"build"`
	Values map[string]int64 `yaml:"values"`
}

// Source is a microwave source.
type Source struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`
	Server string `yaml:"server"`
}

// Device is a named group of channels.
type Device struct {
	Name     string    `yaml:"name"`
	Channels []Channel `yaml:"channels"`
}

// Channel is one channel of a device.
type Channel struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Board   string `yaml:"board"`
	Dac     string `yaml:"dac"`
	Trigger string `yaml:"trigger"`
	Fiber   string `yaml:"fiber"`
}

// Load reads a recipe file.
func Load(filename string) (*Recipe, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", filename, err)
	}

	return r, nil
}

// Decode reads a recipe. Unknown fields are an error.
func Decode(in io.Reader) (*Recipe, error) {
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)

	r := &Recipe{}
	if err := dec.Decode(r); err != nil {
		return nil, err
	}

	return r, nil
}

// StaticSource returns the builds and properties pinned by the recipe.
func (r *Recipe) StaticSource() buildinfo.StaticSource {
	src := buildinfo.StaticSource{
		Builds: make(map[string]int),
		Props:  make(map[string]map[int]board.Properties),
	}

	for _, b := range r.Boards {
		if b.Build != nil {
			src.Builds[b.Name] = *b.Build
		}
	}

	for buildType, p := range r.Props {
		if src.Props[buildType] == nil {
			src.Props[buildType] = make(map[int]board.Properties)
		}

		src.Props[buildType][p.Build] = board.Properties(p.Values)
	}

	return src
}

// BuildBoards creates the boards of the recipe with family defaults.
func (r *Recipe) BuildBoards() ([]*board.Board, error) {
	out := make([]*board.Board, 0, len(r.Boards))

	for _, rb := range r.Boards {
		fam, err := board.ParseFamily(rb.Family)
		if err != nil {
			return nil, fmt.Errorf("board %s: %w", rb.Name, err)
		}

		b := board.New(rb.Name, fam)
		b.MicrowaveSource = rb.MicrowaveSource

		for name, link := range rb.Fibers {
			id, err := board.ParseFiberID(name)
			if err != nil {
				return nil, fmt.Errorf("board %s: %w", rb.Name, err)
			}

			if err := b.ConnectFiber(id, link.Card, link.Channel); err != nil {
				return nil, err
			}
		}

		out = append(out, b)
	}

	return out, nil
}

// MicrowaveSources returns the sources of the recipe.
func (r *Recipe) MicrowaveSources() []board.MicrowaveSource {
	out := make([]board.MicrowaveSource, len(r.Sources))
	for i, s := range r.Sources {
		out[i] = board.MicrowaveSource{Name: s.Name, Device: s.Device, Server: s.Server}
	}

	return out
}

// ExperimentDevices converts the devices of the recipe.
func (r *Recipe) ExperimentDevices() ([]experiment.Device, error) {
	out := make([]experiment.Device, 0, len(r.Devices))

	for _, d := range r.Devices {
		dev := experiment.Device{Name: d.Name}

		for _, c := range d.Channels {
			spec, err := c.spec()
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", d.Name, c.Name, err)
			}

			dev.Channels = append(dev.Channels, spec)
		}

		out = append(out, dev)
	}

	return out, nil
}

func (c Channel) spec() (experiment.ChannelSpec, error) {
	kind, err := channel.ParseKind(c.Kind)
	if err != nil {
		return experiment.ChannelSpec{}, err
	}

	spec := experiment.ChannelSpec{Name: c.Name, Kind: kind, Board: c.Board}

	switch kind {
	case channel.Analog:
		spec.Dac, err = board.ParseAnalogID(c.Dac)
	case channel.Trigger:
		spec.Trigger, err = board.ParseTriggerID(c.Trigger)
	case channel.FiberBias, channel.SerialBias:
		spec.Fiber, err = board.ParseFiberID(c.Fiber)
	}

	return spec, err
}
