// Package usi is a software model of the AVR Universal Serial Interface in
// two-wire mode. It implements i2cs.Shifter over open-drain pins and is
// clocked by line edges, either from GPIO edge interrupts or from a
// simulated bus.
//
// Modelled behaviour:
//   - a 4-bit counter incremented on both SCL edges; overflow sets a flag
//     and, when enabled, calls the overflow handler
//   - the data register shifts in SDA on rising SCL
//   - the SDA output latch follows the data register MSB on falling SCL,
//     and immediately when the register is written while SCL is low
//   - SDA falling while SCL is high is a start condition; the start
//     handler runs when SCL falls (or a stop follows) and SCL is held low
//     until the start flag is cleared
//   - SDA rising while SCL is high sets the stop flag
//   - SCL is held low after an overflow when hold mode is selected
package usi

// Pins are the two open-drain bus lines.
type Pins interface {
	// SCL and SDA sample the line levels.
	SCL() bool
	SDA() bool

	// PullSCL and PullSDA pull a line low, or release it.
	PullSCL(low bool)
	PullSDA(low bool)
}

// Shifter is the software shift peripheral.
type Shifter struct {
	pins       Pins
	onStart    func()
	onOverflow func()

	data    byte
	latch   bool // Output latch, true when the driven bit is 1
	sdaOut  bool
	counter uint8

	overflowIRQ bool
	holdSCL     bool

	startFlag    bool
	startHold    bool // SCL fell with the start flag set
	startPending bool // Start handler not yet run
	overflowFlag bool
	stopFlag     bool

	scl, sda bool // Levels at the last edge
}

// New returns a shifter on pins with both lines released.
func New(pins Pins) *Shifter {
	s := &Shifter{pins: pins, latch: true}
	s.scl, s.sda = pins.SCL(), pins.SDA()
	pins.PullSCL(false)
	pins.PullSDA(false)
	return s
}

// Attach sets the start condition and counter overflow handlers.
func (s *Shifter) Attach(onStart, onOverflow func()) {
	s.onStart = onStart
	s.onOverflow = onOverflow
}

// SCLEdge feeds a new SCL level. Repeated levels are ignored.
func (s *Shifter) SCLEdge(high bool) {
	if high == s.scl {
		return
	}
	s.scl = high

	if high {
		var in byte
		if s.pins.SDA() {
			in = 1
		}
		s.data = s.data<<1 | in
		s.count()
		return
	}

	s.latch = s.data&0x80 != 0
	s.updateSDA()
	if s.startPending {
		s.startPending = false
		s.startHold = s.startFlag
		s.updateSCL()
		s.runStart()
		return
	}
	s.count()
}

// SDAEdge feeds a new SDA level. Repeated levels are ignored.
func (s *Shifter) SDAEdge(high bool) {
	if high == s.sda {
		return
	}
	s.sda = high
	if !s.scl {
		return
	}

	if !high {
		s.startFlag = true
		s.startPending = true
		return
	}
	s.stopFlag = true
	if s.startPending {
		s.startPending = false
		s.runStart()
	}
}

func (s *Shifter) runStart() {
	if s.onStart != nil {
		s.onStart()
	}
}

func (s *Shifter) count() {
	s.counter = (s.counter + 1) & 0x0F
	if s.counter != 0 {
		return
	}
	s.overflowFlag = true
	s.updateSCL()
	if s.overflowIRQ && s.onOverflow != nil {
		s.onOverflow()
	}
}

func (s *Shifter) updateSCL() {
	s.pins.PullSCL(s.overflowFlag && s.holdSCL || s.startHold)
}

func (s *Shifter) updateSDA() {
	s.pins.PullSDA(s.sdaOut && !s.latch)
}

// SetControl enables the overflow handler and selects SCL hold on
// overflow.
func (s *Shifter) SetControl(overflowIRQ, holdSCL bool) {
	s.overflowIRQ = overflowIRQ
	s.holdSCL = holdSCL
	s.updateSCL()
}

// SetCounter loads the counter to overflow after bits clock periods and
// clears the overflow and stop flags (and the start flag when clearStart
// is set), releasing a held SCL.
func (s *Shifter) SetCounter(bits uint8, clearStart bool) {
	s.counter = (16 - 2*bits) & 0x0F
	s.overflowFlag = false
	s.stopFlag = false
	if clearStart {
		s.startFlag = false
		s.startHold = false
	}
	s.updateSCL()
}

// Data returns the data register.
func (s *Shifter) Data() byte {
	return s.data
}

// SetData loads the data register.
func (s *Shifter) SetData(b byte) {
	s.data = b
	if !s.scl {
		s.latch = b&0x80 != 0
		s.updateSDA()
	}
}

// DriveSDA connects the output latch to SDA.
func (s *Shifter) DriveSDA() {
	s.sdaOut = true
	s.updateSDA()
}

// ReleaseSDA disconnects the output latch from SDA.
func (s *Shifter) ReleaseSDA() {
	s.sdaOut = false
	s.updateSDA()
}

// StopDetected reports the stop flag.
func (s *Shifter) StopDetected() bool {
	return s.stopFlag
}

// SCLHigh samples SCL.
func (s *Shifter) SCLHigh() bool {
	return s.pins.SCL()
}

// SDAHigh samples SDA.
func (s *Shifter) SDAHigh() bool {
	return s.pins.SDA()
}

// Counter returns the 4-bit counter value.
func (s *Shifter) Counter() uint8 {
	return s.counter
}

// StartFlag reports whether a start condition is pending acknowledgement.
func (s *Shifter) StartFlag() bool {
	return s.startFlag
}
