package core

import (
	"hatfw/i2cs"
	"hatfw/protocol"
)

// TraceRingSize is the number of bus events kept between drains.
const TraceRingSize = 16

// BusEvent is a bus engine event stamped with the system time.
type BusEvent struct {
	Kind  i2cs.TraceKind
	State i2cs.State
	Addr  i2cs.Addr
	Data  byte
	Clock uint32
}

// TraceRing buffers bus events from interrupt context for the main loop.
// The interrupt handler is the only writer; Drain runs with interrupts
// masked. When full, new events are counted in Lost and dropped.
type TraceRing struct {
	events [TraceRingSize]BusEvent
	head   uint8 // Next write
	tail   uint8 // Next read
	count  uint8
	lost   uint16
}

// Trace records ev. It implements i2cs.Tracer.
func (r *TraceRing) Trace(ev i2cs.TraceEvent) {
	if r.count == TraceRingSize {
		r.lost++
		return
	}
	r.events[r.head] = BusEvent{
		Kind:  ev.Kind,
		State: ev.State,
		Addr:  ev.Addr,
		Data:  ev.Data,
		Clock: GetTime(),
	}
	r.head = (r.head + 1) % TraceRingSize
	r.count++
}

// Drain moves pending events into dst and returns the number copied
// together with the number of events lost since the previous drain.
func (r *TraceRing) Drain(dst []BusEvent) (int, uint16) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	n := 0
	for n < len(dst) && r.count > 0 {
		dst[n] = r.events[r.tail]
		r.tail = (r.tail + 1) % TraceRingSize
		r.count--
		n++
	}
	lost := r.lost
	r.lost = 0
	return n, lost
}

// Len returns the number of pending events.
func (r *TraceRing) Len() int {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)
	return int(r.count)
}

// DumpTraceRing drains r and writes one line per event to the debug writer.
func DumpTraceRing(r *TraceRing) {
	var evs [TraceRingSize]BusEvent
	n, lost := r.Drain(evs[:])
	if debugPrintln == nil {
		return
	}
	for i := 0; i < n; i++ {
		debugPrintln(FormatBusEvent(&evs[i]))
	}
	if lost > 0 {
		debugPrintln("[I2CS] lost=" + utoa(uint32(lost)))
	}
}

// FormatBusEvent renders ev as a single log line without fmt.
func FormatBusEvent(ev *BusEvent) string {
	return "[I2CS] " + ev.Kind.String() +
		" state=" + ev.State.String() +
		" addr=0x" + hex8(uint8(ev.Addr)) +
		" data=0x" + hex8(ev.Data) +
		" clock=" + utoa(ev.Clock)
}

// AppendBusEvent appends the VLQ payload for ev:
// kind, state, addr, data, clock.
func AppendBusEvent(dst []byte, ev *BusEvent) []byte {
	dst = protocol.AppendUVLQ(dst, uint32(ev.Kind))
	dst = protocol.AppendUVLQ(dst, uint32(ev.State))
	dst = protocol.AppendUVLQ(dst, uint32(ev.Addr))
	dst = protocol.AppendUVLQ(dst, uint32(ev.Data))
	return protocol.AppendUVLQ(dst, ev.Clock)
}

// DecodeBusEvent parses a payload written by AppendBusEvent.
func DecodeBusEvent(payload []byte) (BusEvent, error) {
	var f [5]uint32
	for i := range f {
		v, err := protocol.DecodeUVLQ(&payload)
		if err != nil {
			return BusEvent{}, err
		}
		f[i] = v
	}
	if len(payload) != 0 || f[0] > 0xFF || f[1] > 0xFF || f[2] > 0xFF || f[3] > 0xFF {
		return BusEvent{}, protocol.ErrBadFrame
	}
	return BusEvent{
		Kind:  i2cs.TraceKind(f[0]),
		State: i2cs.State(f[1]),
		Addr:  i2cs.Addr(f[2]),
		Data:  byte(f[3]),
		Clock: f[4],
	}, nil
}

// EncodeTraceFrames drains r and appends one frame per event to dst. When
// events were dropped, a final TraceLost frame carries the count,
// saturated at 255.
func EncodeTraceFrames(r *TraceRing, w *protocol.FrameWriter, dst []byte) ([]byte, uint16) {
	var evs [TraceRingSize]BusEvent
	var payload [5 * 5]byte
	n, lost := r.Drain(evs[:])
	for i := 0; i < n; i++ {
		// A bus event payload is at most 25 bytes, well inside PayloadMax.
		dst, _ = w.Append(dst, AppendBusEvent(payload[:0], &evs[i]))
	}
	if lost > 0 {
		ev := BusEvent{Kind: i2cs.TraceLost, Data: 0xFF, Clock: GetTime()}
		if lost < 0xFF {
			ev.Data = byte(lost)
		}
		dst, _ = w.Append(dst, AppendBusEvent(payload[:0], &ev))
	}
	return dst, lost
}
