package i2cs

import "testing"

func TestReadTransaction(t *testing.T) {
	h := newHarness()
	dev := &recordingSlave{tx: []byte{0x11, 0x22, 0x33}}
	if !h.e.Register(0x50, dev) {
		t.Fatal("Register failed")
	}

	h.start()
	if h.state() != StateAddr {
		t.Fatalf("Expected ADDR after start, got %v", h.state())
	}
	if !h.hw.overflowIRQ || !h.hw.holdSCL || h.hw.bits != 8 {
		t.Errorf("Start did not arm 8-bit address shift: irq=%v hold=%v bits=%d",
			h.hw.overflowIRQ, h.hw.holdSCL, h.hw.bits)
	}

	h.shiftIn(0x50<<1 | 1)
	if !h.hw.sdaDriven || h.hw.data != 0 || h.hw.bits != 1 {
		t.Fatalf("Expected ACK driven after address match")
	}
	if h.state() != StatePrepSend {
		t.Fatalf("Expected PREP_SEND, got %v", h.state())
	}

	h.ackOut()
	var got []byte
	for i := 0; i < 3; i++ {
		if h.state() != StateSend {
			t.Fatalf("Byte %d: expected SEND, got %v", i, h.state())
		}
		got = append(got, h.shiftOut())
		if h.state() != StateRecvAck || h.hw.sdaDriven {
			t.Fatalf("Byte %d: expected released SDA in RECV_ACK, got %v", i, h.state())
		}
		h.masterAck(i < 2)
	}

	want := []byte{0x11, 0x22, 0x33}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Byte %d: expected 0x%02X, got 0x%02X", i, want[i], got[i])
		}
	}
	if len(dev.txFirst) != 3 {
		t.Errorf("Expected 3 Transmit calls, got %d", len(dev.txFirst))
	}
	if h.state() != StateWaitStart {
		t.Errorf("Expected WAIT_START after NACK, got %v", h.state())
	}
	if h.hw.overflowIRQ {
		t.Error("Overflow interrupt still armed after NACK")
	}
}

func TestWriteTransactionReleasesToAddress(t *testing.T) {
	h := newHarness()
	dev := &recordingSlave{more: []bool{true, false}}
	h.e.Register(0x21, dev)

	h.start()
	h.shiftIn(0x21 << 1)
	if h.state() != StatePrepRecv {
		t.Fatalf("Expected PREP_RECV, got %v", h.state())
	}
	h.ackOut()
	h.shiftIn(0x01)
	h.ackOut()
	if h.state() != StateRecv {
		t.Fatalf("Expected RECV after continue, got %v", h.state())
	}
	h.shiftIn(0x02)
	h.ackOut()

	if h.state() != StateAddr {
		t.Fatalf("Expected ADDR after device ended transfer, got %v", h.state())
	}
	if h.hw.sdaDriven || h.hw.bits != 8 || !h.hw.overflowIRQ {
		t.Errorf("Expected released SDA and 8-bit address shift armed")
	}
	if len(dev.rx) != 2 || dev.rx[0] != 0x01 || dev.rx[1] != 0x02 {
		t.Errorf("Expected received [01 02], got % X", dev.rx)
	}
	if !dev.rxFirst[0] || dev.rxFirst[1] {
		t.Errorf("Expected first flags [true false], got %v", dev.rxFirst)
	}

	// The next byte is decoded as an address without any start condition.
	h.shiftIn(0x21<<1 | 1)
	if h.state() != StatePrepSend {
		t.Errorf("Expected PREP_SEND after re-addressing, got %v", h.state())
	}
}

func TestUnknownAddressIsIgnored(t *testing.T) {
	h := newHarness()
	dev := &recordingSlave{}
	h.e.Register(0x50, dev)

	h.start()
	h.shiftIn(0x51 << 1)

	if h.state() != StateWaitStart {
		t.Errorf("Expected WAIT_START, got %v", h.state())
	}
	if h.hw.sdaDriven {
		t.Error("ACK driven for unknown address")
	}
	if h.hw.overflowIRQ || h.hw.holdSCL {
		t.Error("Expected start-only detection after unknown address")
	}
	if len(dev.txFirst)+len(dev.rxFirst) != 0 {
		t.Error("Device called for unknown address")
	}
	if n := len(h.trace); n == 0 || h.trace[n-1].Kind != TraceAddrNack {
		t.Errorf("Expected ADDR_NACK trace, got %v", h.trace)
	}
}

func TestFirstByteFlag(t *testing.T) {
	for n := 1; n <= 8; n++ {
		h := newHarness()
		dev := &recordingSlave{tx: make([]byte, n)}
		h.e.Register(0x10, dev)

		h.start()
		h.shiftIn(0x10<<1 | 1)
		h.ackOut()
		for i := 0; i < n; i++ {
			h.shiftOut()
			h.masterAck(i < n-1)
		}
		h.start()
		h.shiftIn(0x10 << 1)
		h.ackOut()
		for i := 0; i < n; i++ {
			h.shiftIn(byte(i))
			h.ackOut()
		}

		if len(dev.txFirst) != n || len(dev.rxFirst) != n {
			t.Fatalf("n=%d: expected %d calls each, got tx=%d rx=%d",
				n, n, len(dev.txFirst), len(dev.rxFirst))
		}
		for i := 0; i < n; i++ {
			if dev.txFirst[i] != (i == 0) {
				t.Errorf("n=%d: Transmit call %d first=%v", n, i, dev.txFirst[i])
			}
			if dev.rxFirst[i] != (i == 0) {
				t.Errorf("n=%d: Receive call %d first=%v", n, i, dev.rxFirst[i])
			}
		}
	}
}

func TestRoutesOnlyToAddressedDevice(t *testing.T) {
	h := newHarness()
	a := &recordingSlave{tx: []byte{0xAA}}
	b := &recordingSlave{tx: []byte{0xBB}}
	h.e.Register(0x20, a)
	h.e.Register(0x21, b)

	h.start()
	h.shiftIn(0x21<<1 | 1)
	h.ackOut()
	if got := h.shiftOut(); got != 0xBB {
		t.Errorf("Expected 0xBB, got 0x%02X", got)
	}
	h.masterAck(false)

	h.start()
	h.shiftIn(0x20 << 1)
	h.ackOut()
	h.shiftIn(0x5A)
	h.ackOut()

	if len(a.txFirst) != 0 || len(a.rx) != 1 || a.rx[0] != 0x5A {
		t.Errorf("Device 0x20 saw tx=%d rx=% X", len(a.txFirst), a.rx)
	}
	if len(b.txFirst) != 1 || len(b.rx) != 0 {
		t.Errorf("Device 0x21 saw tx=%d rx=% X", len(b.txFirst), b.rx)
	}
}

func TestStopAbortsInEveryState(t *testing.T) {
	// Each setup leaves the engine expecting the next overflow in the
	// named state.
	setups := []struct {
		state State
		drive func(h *harness)
	}{
		{StateAddr, func(h *harness) { h.start() }},
		{StatePrepSend, func(h *harness) { h.start(); h.shiftIn(0x30<<1 | 1) }},
		{StateSend, func(h *harness) { h.start(); h.shiftIn(0x30<<1 | 1); h.ackOut() }},
		{StateRecvAck, func(h *harness) { h.start(); h.shiftIn(0x30<<1 | 1); h.ackOut(); h.shiftOut() }},
		{StatePrepRecv, func(h *harness) { h.start(); h.shiftIn(0x30 << 1) }},
		{StateRecv, func(h *harness) { h.start(); h.shiftIn(0x30 << 1); h.ackOut() }},
		{StateRecvProc, func(h *harness) { h.start(); h.shiftIn(0x30 << 1); h.ackOut(); h.shiftIn(0x99) }},
	}

	for _, s := range setups {
		h := newHarness()
		dev := &recordingSlave{tx: []byte{1, 2, 3}}
		h.e.Register(0x30, dev)
		s.drive(h)
		if h.state() != s.state {
			t.Fatalf("Setup for %v ended in %v", s.state, h.state())
		}
		calls := len(dev.txFirst) + len(dev.rx)

		h.hw.stop = true
		h.hw.data = 0x42
		h.e.OnOverflow()

		if h.state() != StateWaitStart {
			t.Errorf("%v: expected WAIT_START after stop, got %v", s.state, h.state())
		}
		if h.hw.sdaDriven || h.hw.overflowIRQ {
			t.Errorf("%v: bus not released after stop", s.state)
		}
		if got := len(dev.txFirst) + len(dev.rx); got != calls {
			t.Errorf("%v: device called after stop", s.state)
		}
		if h.e.st.active != noSlave {
			t.Errorf("%v: active device kept after stop", s.state)
		}
	}
}

func TestStopDiscardsPartialByte(t *testing.T) {
	h := newHarness()
	dev := &recordingSlave{}
	h.e.Register(0x30, dev)

	h.start()
	h.shiftIn(0x30 << 1)
	h.ackOut()
	h.shiftIn(0x77)
	// Stop arrives before the ACK for 0x77 has been shifted out.
	h.hw.stop = true
	h.e.OnOverflow()

	if len(dev.rx) != 0 {
		t.Errorf("Expected no bytes delivered, got % X", dev.rx)
	}

	// A fresh transaction starts clean.
	h.start()
	h.shiftIn(0x30 << 1)
	h.ackOut()
	h.shiftIn(0x01)
	h.ackOut()
	if len(dev.rx) != 1 || dev.rx[0] != 0x01 || !dev.rxFirst[0] {
		t.Errorf("Expected first byte 0x01 with first=true, got % X %v", dev.rx, dev.rxFirst)
	}
}

func TestRepeatedStartResetsTransaction(t *testing.T) {
	h := newHarness()
	dev := &recordingSlave{tx: []byte{0xC0, 0xC1}}
	h.e.Register(0x2F, dev)

	h.start()
	h.shiftIn(0x2F << 1)
	h.ackOut()
	h.shiftIn(0x04)
	h.ackOut()

	h.start()
	if h.state() != StateAddr || h.e.st.active != noSlave {
		t.Fatalf("Expected ADDR without active device, got %v/%d", h.state(), h.e.st.active)
	}
	h.shiftIn(0x2F<<1 | 1)
	h.ackOut()
	if got := h.shiftOut(); got != 0xC0 {
		t.Errorf("Expected 0xC0, got 0x%02X", got)
	}
	if len(dev.txFirst) != 1 || !dev.txFirst[0] {
		t.Errorf("Expected first=true on read after repeated start, got %v", dev.txFirst)
	}
}

func TestStartSeesStop(t *testing.T) {
	h := newHarness()
	h.hw.scl, h.hw.sda = true, true
	h.hw.startClear = false
	h.e.OnStart()

	if h.hw.overflowIRQ {
		t.Error("Overflow interrupt armed although a stop followed the start")
	}
	if !h.hw.startClear {
		t.Error("Start flag not cleared")
	}
}

func TestSpuriousOverflowInWaitStart(t *testing.T) {
	h := newHarness()
	arms := h.hw.arms
	h.e.OnOverflow()

	if h.state() != StateWaitStart {
		t.Errorf("Expected WAIT_START, got %v", h.state())
	}
	if h.hw.arms != arms+1 || h.hw.overflowIRQ {
		t.Error("Expected peripheral re-armed for start detection")
	}
}

func TestInitResetsState(t *testing.T) {
	h := newHarness()
	h.e.Register(0x30, &recordingSlave{})
	h.start()
	h.shiftIn(0x30 << 1)

	h.e.Init()
	if h.state() != StateWaitStart || h.e.st.active != noSlave {
		t.Errorf("Expected clean WAIT_START, got %v/%d", h.state(), h.e.st.active)
	}
	if h.hw.sdaDriven || h.hw.overflowIRQ || !h.hw.startClear {
		t.Error("Peripheral not re-armed for start detection")
	}
	if h.e.Registered() != 1 {
		t.Errorf("Expected registry kept, got %d devices", h.e.Registered())
	}
}

func TestGuardRunsOnEveryOverflow(t *testing.T) {
	hw := &fakeShifter{}
	c := &tickCounter{}
	g, err := NewGuard(c, GuardConfig{TimerHz: 1000000, BusKHz: 100})
	if err != nil {
		t.Fatalf("NewGuard failed: %v", err)
	}
	e := New(hw, g)
	dev := &recordingSlave{tx: []byte{0x5A}}
	e.Register(0x50, dev)
	e.Init()

	e.OnStart()
	hw.data = 0x50<<1 | 1
	e.OnOverflow()

	if c.resets != 1 {
		t.Errorf("Expected counter reset on overflow entry, got %d", c.resets)
	}
	// Preload 1, safe phase 7: the first safe tick is the 7th poll.
	if c.polls != 7 {
		t.Errorf("Expected 7 polls before releasing SCL, got %d", c.polls)
	}
}

func TestTraceSequence(t *testing.T) {
	h := newHarness()
	h.e.Register(0x21, &recordingSlave{more: []bool{false}})

	h.start()
	h.shiftIn(0x21 << 1)
	h.ackOut()
	h.shiftIn(0xEE)
	h.ackOut()

	want := []TraceKind{TraceStart, TraceAddrAck, TraceReceive, TraceRelease}
	if len(h.trace) != len(want) {
		t.Fatalf("Expected %d events, got %v", len(want), h.trace)
	}
	for i, k := range want {
		if h.trace[i].Kind != k {
			t.Errorf("Event %d: expected %v, got %v", i, k, h.trace[i].Kind)
		}
	}
	if h.trace[2].Data != 0xEE || h.trace[2].Addr != 0x21 {
		t.Errorf("Unexpected RX event %+v", h.trace[2])
	}
	if h.trace[3].State != StateAddr {
		t.Errorf("Expected RELEASE to enter ADDR, got %v", h.trace[3].State)
	}
}
