package i2cs

const noSlave int8 = -1

// isrState is owned by the interrupt handlers. Nothing outside OnStart and
// OnOverflow reads or writes it.
type isrState struct {
	state  State
	active int8 // Registry slot of the addressed device, or noSlave
	rx     byte // Byte received, waiting for its ACK to be shifted out
	first  bool // Next device call is the first of this transaction
}

// Engine is the bus protocol state machine.
type Engine struct {
	reg    Registry
	guard  Guard
	hw     Shifter
	tracer Tracer
	st     isrState
}

// New creates an engine driving hw. Call Register for each device and then
// Init before enabling the peripheral interrupts.
func New(hw Shifter, guard Guard) *Engine {
	return &Engine{
		hw:    hw,
		guard: guard,
		st:    isrState{state: StateWaitStart, active: noSlave},
	}
}

// Register adds a virtual device. See Registry.Register.
func (e *Engine) Register(addr Addr, ops Slave) bool {
	return e.reg.Register(addr, ops)
}

// Registered returns the number of registered devices.
func (e *Engine) Registered() int {
	return e.reg.Len()
}

// SetTracer installs an event tracer. Must be called before Init.
func (e *Engine) SetTracer(t Tracer) {
	e.tracer = t
}

// Init resets the engine state and arms the peripheral for start condition
// detection. Registered devices are kept.
func (e *Engine) Init() {
	e.st = isrState{state: StateWaitStart, active: noSlave}
	e.hw.ReleaseSDA()
	e.hw.SetControl(false, false)
	e.hw.SetCounter(0, true)
}

// OnStart handles the start condition interrupt.
func (e *Engine) OnStart() {
	e.hw.ReleaseSDA()

	// Wait for SCL low (first address bit) or a stop condition. A master
	// that never lowers SCL leaves recovery to the watchdog.
	stop := false
	for {
		scl, sda := e.hw.SCLHigh(), e.hw.SDAHigh()
		if !scl {
			break
		}
		if sda {
			stop = true
			break
		}
	}

	if !stop {
		e.hw.SetControl(true, true)
	}
	e.hw.SetCounter(8, true)

	e.st.state = StateAddr
	e.st.active = noSlave
	e.trace(TraceStart, 0, 0)
}

// OnOverflow handles the counter overflow interrupt.
func (e *Engine) OnOverflow() {
	e.guard.Prepare()

	if e.hw.StopDetected() {
		e.enterWaitStart()
		e.trace(TraceStop, 0, 0)
		return
	}

	for e.step() {
	}
}

func (e *Engine) enterWaitStart() {
	e.st.state = StateWaitStart
	e.st.active = noSlave
	e.armWaitStart()
}

// step runs the current state. It returns true when the state changed and
// must run again within this interrupt.
func (e *Engine) step() bool {
	st := &e.st

	switch st.state {
	case StateAddr:
		data := e.hw.Data()
		addr := Addr(data >> 1)
		idx, ok := e.reg.Lookup(addr)
		if !ok {
			e.enterWaitStart()
			e.trace(TraceAddrNack, addr, data)
			return false
		}
		st.active = int8(idx)
		st.first = true
		if data&1 != 0 {
			st.state = StatePrepSend
		} else {
			st.state = StatePrepRecv
		}
		e.armSendAck()
		e.trace(TraceAddrAck, addr, data)

	case StatePrepSend:
		// The guard wait sits in armSendData, after Transmit, so device
		// latency is absorbed before the line changes.
		slot := e.reg.at(st.active)
		b := slot.ops.Transmit(st.first)
		st.first = false
		st.state = StateSend
		e.armSendData(b)
		e.trace(TraceTransmit, slot.addr, b)

	case StateSend:
		st.state = StateRecvAck
		e.armReadAck()

	case StateRecvAck:
		if e.hw.Data()&1 != 0 {
			addr := e.reg.at(st.active).addr
			e.enterWaitStart()
			e.trace(TraceMasterNack, addr, 0)
			return false
		}
		st.state = StatePrepSend
		return true

	case StatePrepRecv:
		st.state = StateRecv
		e.armReadData()

	case StateRecv:
		st.rx = e.hw.Data()
		st.state = StateRecvProc
		e.armSendAck()

	case StateRecvProc:
		slot := e.reg.at(st.active)
		more := slot.ops.Receive(st.first, st.rx)
		st.first = false
		e.trace(TraceReceive, slot.addr, st.rx)
		if more {
			st.state = StatePrepRecv
			return true
		}
		st.state = StateAddr
		st.active = noSlave
		e.armAddress()
		e.trace(TraceRelease, slot.addr, st.rx)

	case StateWaitStart:
		// Overflow interrupts are disarmed here; a late one is ignored.
		e.armWaitStart()
	}

	return false
}

func (e *Engine) trace(kind TraceKind, addr Addr, data byte) {
	if e.tracer == nil {
		return
	}
	e.tracer.Trace(TraceEvent{Kind: kind, State: e.st.state, Addr: addr, Data: data})
}
