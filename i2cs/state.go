package i2cs

// State is the engine's protocol state.
type State uint8

const (
	StateWaitStart State = iota // Waiting for a start condition only
	StateAddr                   // Shifting in address and R/W bit
	StatePrepSend               // ACK done, fetch next byte to transmit
	StateSend                   // Byte shifted out
	StateRecvAck                // Master ACK/NACK shifted in
	StatePrepRecv               // ACK done, arm for next received byte
	StateRecv                   // Byte shifted in
	StateRecvProc               // Our ACK shifted out, hand byte to device
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateWaitStart:
		return "WAIT_START"
	case StateAddr:
		return "ADDR"
	case StatePrepSend:
		return "PREP_SEND"
	case StateSend:
		return "SEND"
	case StateRecvAck:
		return "RECV_ACK"
	case StatePrepRecv:
		return "PREP_RECV"
	case StateRecv:
		return "RECV"
	case StateRecvProc:
		return "RECV_PROC"
	default:
		return "UNKNOWN"
	}
}

// TraceKind classifies engine trace events.
type TraceKind uint8

const (
	TraceStart      TraceKind = iota + 1 // Start or repeated start armed address decode
	TraceStop                            // Stop condition aborted the transaction
	TraceAddrAck                         // Address matched a device
	TraceAddrNack                        // Address matched nothing
	TraceTransmit                        // Byte handed to the master
	TraceReceive                         // Byte handed to the device
	TraceMasterNack                      // Master ended a read
	TraceRelease                         // Device ended a write, re-armed for address
	TraceLost                            // Events dropped by the trace buffer; Data holds the count
)

// String returns the kind name.
func (k TraceKind) String() string {
	switch k {
	case TraceStart:
		return "START"
	case TraceStop:
		return "STOP"
	case TraceAddrAck:
		return "ADDR_ACK"
	case TraceAddrNack:
		return "ADDR_NACK"
	case TraceTransmit:
		return "TX"
	case TraceReceive:
		return "RX"
	case TraceMasterNack:
		return "MASTER_NACK"
	case TraceRelease:
		return "RELEASE"
	case TraceLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// TraceEvent is a single engine event. State is the state entered.
type TraceEvent struct {
	Kind  TraceKind
	State State
	Addr  Addr
	Data  byte
}

// Tracer receives engine events from interrupt context. Implementations
// must not block or allocate.
type Tracer interface {
	Trace(ev TraceEvent)
}
