package i2cs

// fakeShifter records what the engine does to the peripheral. Tests play
// the role of the shift hardware by setting data before each overflow.
type fakeShifter struct {
	data        byte
	sdaDriven   bool
	overflowIRQ bool
	holdSCL     bool
	bits        uint8
	arms        int
	startClear  bool
	stop        bool
	scl, sda    bool
}

func (f *fakeShifter) SetControl(overflowIRQ, holdSCL bool) {
	f.overflowIRQ = overflowIRQ
	f.holdSCL = holdSCL
}

func (f *fakeShifter) SetCounter(bits uint8, clearStart bool) {
	f.bits = bits
	f.arms++
	f.stop = false
	if clearStart {
		f.startClear = true
	}
}

func (f *fakeShifter) Data() byte         { return f.data }
func (f *fakeShifter) SetData(b byte)     { f.data = b }
func (f *fakeShifter) DriveSDA()          { f.sdaDriven = true }
func (f *fakeShifter) ReleaseSDA()        { f.sdaDriven = false }
func (f *fakeShifter) StopDetected() bool { return f.stop }
func (f *fakeShifter) SCLHigh() bool      { return f.scl }
func (f *fakeShifter) SDAHigh() bool      { return f.sda }

// recordingSlave replays a transmit sequence and scripted receive results.
type recordingSlave struct {
	tx      []byte
	txFirst []bool
	rx      []byte
	rxFirst []bool
	more    []bool // Receive results, last value repeats
	txPos   int
}

func (s *recordingSlave) Transmit(first bool) byte {
	s.txFirst = append(s.txFirst, first)
	var b byte
	if s.txPos < len(s.tx) {
		b = s.tx[s.txPos]
	}
	s.txPos++
	return b
}

func (s *recordingSlave) Receive(first bool, data byte) bool {
	s.rxFirst = append(s.rxFirst, first)
	s.rx = append(s.rx, data)
	if len(s.more) == 0 {
		return true
	}
	i := len(s.rx) - 1
	if i >= len(s.more) {
		i = len(s.more) - 1
	}
	return s.more[i]
}

type traceLog []TraceEvent

func (l *traceLog) Trace(ev TraceEvent) {
	*l = append(*l, ev)
}

type tickCounter struct {
	ticks  uint8
	resets int
	polls  int
}

func (c *tickCounter) Reset(preload uint8) {
	c.ticks = preload
	c.resets++
}

func (c *tickCounter) Ticks() uint8 {
	t := c.ticks
	c.ticks++
	c.polls++
	return t
}

type harness struct {
	hw    *fakeShifter
	e     *Engine
	trace traceLog
}

func newHarness() *harness {
	h := &harness{hw: &fakeShifter{scl: true, sda: true}}
	h.e = New(h.hw, Guard{})
	h.e.SetTracer(&h.trace)
	h.e.Init()
	return h
}

// start simulates the start detector interrupt after SCL went low.
func (h *harness) start() {
	h.hw.scl, h.hw.sda = false, false
	h.e.OnStart()
}

// shiftIn completes an 8-bit shift of b into the data register.
func (h *harness) shiftIn(b byte) {
	h.hw.data = b
	h.e.OnOverflow()
}

// shiftOut completes an 8-bit shift of the loaded byte and returns it.
func (h *harness) shiftOut() byte {
	b := h.hw.data
	h.e.OnOverflow()
	return b
}

// ackOut completes the 1-bit shift of the slave's ACK.
func (h *harness) ackOut() {
	h.hw.data = 0
	h.e.OnOverflow()
}

// masterAck completes the 1-bit shift of the master's ACK (true) or NACK.
func (h *harness) masterAck(ack bool) {
	if ack {
		h.hw.data = 0
	} else {
		h.hw.data = 1
	}
	h.e.OnOverflow()
}

func (h *harness) state() State {
	return h.e.st.state
}
