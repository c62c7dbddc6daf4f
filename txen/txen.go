// Package txen drives the transmit-enable line of a bus transceiver. The
// enable output is asserted as soon as the UART TX line goes active and
// released by a one-shot timer once the line has been idle for the
// configured timeout.
package txen

import "hatfw/core"

// DebugMode overrides normal TX-enable operation for bench testing.
type DebugMode uint8

const (
	DebugOff       DebugMode = iota // Follow the TX line
	DebugRetrigger                  // Re-assert immediately after every timeout
	DebugNoTrigger                  // Never assert
)

// Valid reports whether m is a known mode.
func (m DebugMode) Valid() bool {
	return m <= DebugNoTrigger
}

func (m DebugMode) String() string {
	switch m {
	case DebugOff:
		return "off"
	case DebugRetrigger:
		return "retrigger"
	case DebugNoTrigger:
		return "notrigger"
	default:
		return "invalid"
	}
}

// DefaultTimeoutUS is one 11-bit frame at 19.2 kBaud.
const DefaultTimeoutUS = 573

// Timer is the one-shot timeout source. On expiry it must call
// TxEn.Expire, typically from interrupt context.
type Timer interface {
	// Configure prepares the timer for a timeout of us microseconds.
	Configure(us uint16)

	// Start restarts the timeout from zero.
	Start()

	// Stop cancels a running timeout.
	Stop()
}

// Config selects the pins. TxActiveLow is set for a UART TX line, which
// idles high.
type Config struct {
	TxPin       core.GPIOPin
	TxEnPin     core.GPIOPin
	TxActiveLow bool
}

// TxEn is the transmit-enable controller.
type TxEn struct {
	gpio  core.GPIODriver
	cfg   Config
	timer Timer

	active    bool // Written by Expire from interrupt context
	debug     DebugMode
	timeoutUS uint16
	fault     error // First pin error outside Init
}

// New creates a controller. Call Init before Poll.
func New(gpio core.GPIODriver, cfg Config, timer Timer) *TxEn {
	return &TxEn{gpio: gpio, cfg: cfg, timer: timer}
}

// Init configures the pins, releases the enable output and applies the
// default timeout.
func (t *TxEn) Init() error {
	if err := t.gpio.ConfigureInput(t.cfg.TxPin); err != nil {
		return err
	}
	t.debug = DebugOff
	if err := t.setOutput(false); err != nil {
		return err
	}
	t.SetTimeout(DefaultTimeoutUS)
	return nil
}

// setOutput drives the enable line high, or leaves it floating.
func (t *TxEn) setOutput(on bool) error {
	if !on {
		return t.gpio.ConfigureInput(t.cfg.TxEnPin)
	}
	if err := t.gpio.ConfigureOutput(t.cfg.TxEnPin); err != nil {
		return err
	}
	return t.gpio.SetPin(t.cfg.TxEnPin, true)
}

// drive is setOutput for paths that cannot return an error. The first
// failure is kept for Fault.
func (t *TxEn) drive(on bool) {
	if err := t.setOutput(on); err != nil && t.fault == nil {
		t.fault = err
	}
}

// Fault returns the first enable pin error seen by SetTimeout, Poll or
// Expire, or nil.
func (t *TxEn) Fault() error {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)
	return t.fault
}

// SetTimeout sets the idle timeout. The output is released and a running
// timeout is cancelled.
func (t *TxEn) SetTimeout(us uint16) {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)

	t.timeoutUS = us
	t.drive(false)
	t.timer.Stop()
	t.active = false
	t.timer.Configure(us)
}

// Timeout returns the configured timeout in microseconds.
func (t *TxEn) Timeout() uint16 {
	return t.timeoutUS
}

// SetDebugMode selects a debug mode. Unknown modes are ignored.
func (t *TxEn) SetDebugMode(m DebugMode) {
	if m.Valid() {
		t.debug = m
	}
}

// DebugMode returns the active debug mode.
func (t *TxEn) DebugMode() DebugMode {
	return t.debug
}

// Active reports whether the enable output is asserted.
func (t *TxEn) Active() bool {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)
	return t.active
}

func (t *TxEn) txActive() bool {
	return t.gpio.ReadPin(t.cfg.TxPin) != t.cfg.TxActiveLow
}

func (t *TxEn) trigger() {
	t.drive(true)
	t.timer.Start()
	t.active = true
}

// Poll runs one main loop iteration.
func (t *TxEn) Poll() {
	state := core.DisableInterrupts()
	defer core.RestoreInterrupts(state)

	switch t.debug {
	case DebugRetrigger:
		if !t.active {
			t.trigger()
		}
	case DebugNoTrigger:
	default:
		if !t.active && t.txActive() {
			t.trigger()
		}
	}
}

// Expire ends the enable pulse. Called by the Timer.
func (t *TxEn) Expire() {
	t.drive(false)
	t.timer.Stop()
	t.active = false
}
