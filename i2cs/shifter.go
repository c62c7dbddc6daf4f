package i2cs

// Shifter is the two-wire shift peripheral the engine drives (a USI in
// two-wire mode, or a software model of one).
//
// Methods are only called from the engine's interrupt handlers.
type Shifter interface {
	// SetControl enables the counter overflow interrupt and selects
	// whether SCL is held low after a counter overflow.
	SetControl(overflowIRQ, holdSCL bool)

	// SetCounter arms the counter to overflow after bits SCL clock
	// periods (2*bits edges), clears a pending overflow and stop flag,
	// and clears the start flag when clearStart is set. Clearing the
	// overflow flag releases a held SCL.
	SetCounter(bits uint8, clearStart bool)

	// Data returns the shift register.
	Data() byte

	// SetData loads the shift register. Its MSB is driven on SDA while
	// SDA is an output.
	SetData(b byte)

	// DriveSDA makes SDA an output.
	DriveSDA()

	// ReleaseSDA makes SDA an input (released high).
	ReleaseSDA()

	// StopDetected reports a stop condition seen since the last
	// SetCounter.
	StopDetected() bool

	// SCLHigh and SDAHigh sample the bus lines.
	SCLHigh() bool
	SDAHigh() bool
}

// Line primitives. All run with SCL held low by the peripheral (start
// detector or counter overflow), so SDA only changes while SCL is low. Each
// waits for the clock-stretch guard before touching the lines; SCL is
// released by the final SetCounter.

func (e *Engine) armWaitStart() {
	e.guard.WaitUntilSafe()
	e.hw.ReleaseSDA()
	e.hw.SetControl(false, false)
	e.hw.SetCounter(0, false)
}

func (e *Engine) armAddress() {
	e.guard.WaitUntilSafe()
	e.hw.ReleaseSDA()
	e.hw.SetCounter(8, false)
}

func (e *Engine) armSendAck() {
	e.guard.WaitUntilSafe()
	e.hw.SetData(0)
	e.hw.DriveSDA()
	e.hw.SetCounter(1, false)
}

func (e *Engine) armReadAck() {
	e.guard.WaitUntilSafe()
	e.hw.SetData(0)
	e.hw.ReleaseSDA()
	e.hw.SetCounter(1, false)
}

func (e *Engine) armSendData(b byte) {
	e.guard.WaitUntilSafe()
	e.hw.SetData(b)
	e.hw.DriveSDA()
	e.hw.SetCounter(8, false)
}

func (e *Engine) armReadData() {
	e.guard.WaitUntilSafe()
	e.hw.ReleaseSDA()
	e.hw.SetCounter(8, false)
}
