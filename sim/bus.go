// Package sim runs the bus slave firmware against a simulated two-wire bus
// on the host. Everything is synchronous: a master line change propagates
// edges to the software shifter, which runs the engine's interrupt
// handlers before the call returns.
package sim

import "hatfw/usi"

// EdgeListener receives line changes. usi.Shifter implements it.
type EdgeListener interface {
	SCLEdge(high bool)
	SDAEdge(high bool)
}

// Bus is a wired-AND bus with one master and one slave. A line is low
// while either side pulls it low.
type Bus struct {
	slave EdgeListener

	mSCL, mSDA bool // Master pulls low
	sSCL, sSDA bool // Slave pulls low
	scl, sda   bool // Resolved levels
	settling   bool

	edges int // SCL edges seen
}

// NewBus returns an idle bus (both lines high).
func NewBus() *Bus {
	return &Bus{scl: true, sda: true}
}

// Attach connects the slave's edge inputs.
func (b *Bus) Attach(l EdgeListener) {
	b.slave = l
}

// SCL implements usi.Pins.
func (b *Bus) SCL() bool { return b.scl }

// SDA implements usi.Pins.
func (b *Bus) SDA() bool { return b.sda }

// PullSCL implements usi.Pins.
func (b *Bus) PullSCL(low bool) {
	b.sSCL = low
	b.settle()
}

// PullSDA implements usi.Pins.
func (b *Bus) PullSDA(low bool) {
	b.sSDA = low
	b.settle()
}

// SlaveHoldsSCL reports whether the slave is stretching the clock.
func (b *Bus) SlaveHoldsSCL() bool { return b.sSCL }

// SlaveHoldsSDA reports whether the slave is pulling SDA low.
func (b *Bus) SlaveHoldsSDA() bool { return b.sSDA }

// Edges returns the number of SCL transitions so far.
func (b *Bus) Edges() int { return b.edges }

func (b *Bus) setSCL(high bool) {
	b.mSCL = !high
	b.settle()
}

func (b *Bus) setSDA(high bool) {
	b.mSDA = !high
	b.settle()
}

// settle propagates level changes until the bus is stable. Calls made by
// the slave while an edge is being delivered are folded into the outer
// loop. SDA changes are delivered before SCL changes so that a slave
// releasing SCL after setting SDA is not seen as a start or stop.
func (b *Bus) settle() {
	if b.settling {
		return
	}
	b.settling = true
	defer func() { b.settling = false }()

	for {
		sda, scl := !(b.mSDA || b.sSDA), !(b.mSCL || b.sSCL)
		switch {
		case sda != b.sda:
			b.sda = sda
			if b.slave != nil {
				b.slave.SDAEdge(sda)
			}
		case scl != b.scl:
			b.scl = scl
			b.edges++
			if b.slave != nil {
				b.slave.SCLEdge(scl)
			}
		default:
			return
		}
	}
}

var _ usi.Pins = (*Bus)(nil)
