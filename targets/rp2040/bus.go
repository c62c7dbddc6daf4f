//go:build rp2040

package main

import (
	"machine"

	"hatfw/usi"
)

// Bus lines.
const (
	sdaPin = machine.GP4
	sclPin = machine.GP5
)

// busPins emulates open-drain outputs: a pulled line is an output driving
// low, a released line is an input with pull-up.
type busPins struct {
	sclLow, sdaLow bool
}

func (p *busPins) SCL() bool { return sclPin.Get() }
func (p *busPins) SDA() bool { return sdaPin.Get() }

func (p *busPins) PullSCL(low bool) {
	if low == p.sclLow {
		return
	}
	p.sclLow = low
	drive(sclPin, low)
}

func (p *busPins) PullSDA(low bool) {
	if low == p.sdaLow {
		return
	}
	p.sdaLow = low
	drive(sdaPin, low)
}

func drive(pin machine.Pin, low bool) {
	if low {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
		return
	}
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
}

// attachBus feeds both line edges into the software shifter. Edge
// interrupts run the engine handlers, so the bus speed is bounded by
// interrupt latency.
func attachBus(s *usi.Shifter) error {
	if err := sclPin.SetInterrupt(machine.PinRising|machine.PinFalling, func(p machine.Pin) {
		UpdateSystemTime()
		s.SCLEdge(p.Get())
	}); err != nil {
		return err
	}
	return sdaPin.SetInterrupt(machine.PinRising|machine.PinFalling, func(p machine.Pin) {
		UpdateSystemTime()
		s.SDAEdge(p.Get())
	})
}
