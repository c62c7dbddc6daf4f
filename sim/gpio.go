package sim

import (
	"fmt"

	"hatfw/core"
)

// GPIO is an in-memory core.GPIODriver. Inputs are driven with SetInput.
type GPIO struct {
	pins map[core.GPIOPin]*pin
}

type pin struct {
	output bool
	pullUp bool
	level  bool // Driven output level, or external input level
	ext    bool // Input driven externally
}

// NewGPIO returns a driver with no pins configured.
func NewGPIO() *GPIO {
	return &GPIO{pins: make(map[core.GPIOPin]*pin)}
}

func (g *GPIO) get(p core.GPIOPin) *pin {
	st, ok := g.pins[p]
	if !ok {
		st = &pin{}
		g.pins[p] = st
	}
	return st
}

func (g *GPIO) ConfigureOutput(p core.GPIOPin) error {
	g.get(p).output = true
	return nil
}

func (g *GPIO) ConfigureInput(p core.GPIOPin) error {
	st := g.get(p)
	st.output, st.pullUp = false, false
	return nil
}

func (g *GPIO) ConfigureInputPullUp(p core.GPIOPin) error {
	st := g.get(p)
	st.output, st.pullUp = false, true
	return nil
}

func (g *GPIO) SetPin(p core.GPIOPin, v bool) error {
	st, ok := g.pins[p]
	if !ok || !st.output {
		return fmt.Errorf("sim: pin %d is not an output", p)
	}
	st.level = v
	return nil
}

func (g *GPIO) ReadPin(p core.GPIOPin) bool {
	st := g.get(p)
	switch {
	case st.output, st.ext:
		return st.level
	default:
		return st.pullUp
	}
}

// SetInput drives an input pin from outside.
func (g *GPIO) SetInput(p core.GPIOPin, v bool) {
	st := g.get(p)
	st.ext = true
	st.level = v
}

// Driven reports whether p is an output driven high.
func (g *GPIO) Driven(p core.GPIOPin) bool {
	st := g.get(p)
	return st.output && st.level
}

// Oscillator holds a calibration value in place of OSCCAL.
type Oscillator struct {
	Cal uint8
}

func (o *Oscillator) Calibration() uint8     { return o.Cal }
func (o *Oscillator) SetCalibration(v uint8) { o.Cal = v }
