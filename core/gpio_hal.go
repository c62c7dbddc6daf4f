package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface used by portable code (the
// TX-enable subsystem). Targets and the simulator provide implementations.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output.
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInput configures a pin as a floating input.
	ConfigureInput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as an input with pull-up.
	ConfigureInputPullUp(pin GPIOPin) error

	// SetPin drives an output high (true) or low (false).
	SetPin(pin GPIOPin, value bool) error

	// ReadPin samples a pin.
	ReadPin(pin GPIOPin) bool
}
