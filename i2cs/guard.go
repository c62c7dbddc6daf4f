package i2cs

import "errors"

// ErrGuardConfig is returned when the timer and bus frequencies cannot
// produce an integral clock-stretch guard period.
var ErrGuardConfig = errors.New("i2cs: bus and timer frequency give no integral guard period")

const (
	// guardPreload is loaded into the counter on interrupt entry.
	guardPreload = 1

	// minGuardPeriod is the smallest SCL period, in counter ticks, that
	// still leaves a distinct safe phase.
	minGuardPeriod = 4
)

// Counter is a free-running hardware tick counter used by the guard.
type Counter interface {
	// Reset restarts counting at preload.
	Reset(preload uint8)

	// Ticks returns the current count.
	Ticks() uint8
}

// GuardConfig describes the clock relationship the guard is built for.
type GuardConfig struct {
	TimerHz uint32 // Counter tick frequency (system clock / prescaler)
	BusKHz  uint32 // Nominal bus frequency
}

// Period returns the SCL period in counter ticks.
func (c GuardConfig) Period() (uint8, error) {
	if c.TimerHz == 0 || c.BusKHz == 0 {
		return 0, ErrGuardConfig
	}
	busHz := c.BusKHz * 1000
	if c.TimerHz%busHz != 0 {
		return 0, ErrGuardConfig
	}
	p := c.TimerHz / busHz
	if p < minGuardPeriod || p > 0xFF {
		return 0, ErrGuardConfig
	}
	return uint8(p), nil
}

// SafePhase returns the tick within one SCL period at which releasing SCL
// is safe: well into the SCL-low half and away from the next edge.
func (c GuardConfig) SafePhase() (uint8, error) {
	p, err := c.Period()
	if err != nil {
		return 0, err
	}
	return safePhase(p), nil
}

// ReleaseTable returns, for every value of an 8-bit counter, whether
// releasing SCL at that count is safe.
func (c GuardConfig) ReleaseTable() ([256]bool, error) {
	var table [256]bool
	p, err := c.Period()
	if err != nil {
		return table, err
	}
	safe := safePhase(p)
	for i := range table {
		table[i] = uint8(i%int(p)) == safe
	}
	return table, nil
}

func safePhase(period uint8) uint8 {
	return uint8(uint16(period) * 7 / 10)
}

// Guard works around bus masters that corrupt a transfer when a slave
// releases a stretched SCL too soon after an edge. Before any line change
// it waits until the counter, restarted on interrupt entry, reaches the safe
// phase of the SCL period.
//
// The zero Guard (nil counter) does nothing.
type Guard struct {
	counter Counter
	period  uint8
	safe    uint8
}

// NewGuard builds a guard over counter for the given clocks.
func NewGuard(counter Counter, cfg GuardConfig) (Guard, error) {
	p, err := cfg.Period()
	if err != nil {
		return Guard{}, err
	}
	return Guard{counter: counter, period: p, safe: safePhase(p)}, nil
}

// Enabled reports whether the guard waits at all.
func (g *Guard) Enabled() bool {
	return g.counter != nil
}

// Prepare restarts the counter. It must run before any variable-latency
// code in the interrupt handler.
func (g *Guard) Prepare() {
	if g.counter == nil {
		return
	}
	g.counter.Reset(guardPreload)
}

// WaitUntilSafe busy-waits for the safe phase. The wait is bounded by one
// SCL period.
func (g *Guard) WaitUntilSafe() {
	if g.counter == nil {
		return
	}
	for g.counter.Ticks()%g.period != g.safe {
	}
}
