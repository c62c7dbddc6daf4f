package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	debugPrintln DebugWriter = func(s string) {}
	debugEnabled bool
)

// SetDebugWriter sets the platform-specific debug output function
// (UART, USB, or a host logger).
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables DebugPrintln output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message when debug output is enabled.
// Never call it from interrupt context.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}
