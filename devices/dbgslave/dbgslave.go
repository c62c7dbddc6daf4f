// Package dbgslave is a bus test device. It echoes the last byte written,
// with its two low bits replaced by transaction markers, and burns a
// varying number of cycles per byte to exercise the bus timing budget.
package dbgslave

// MaxDelay bounds the per-byte busy loop.
const MaxDelay = 42

var spinSink uint8

func spin(n uint8) {
	for ; n > 0; n-- {
		spinSink++
	}
}

// Device is the echo slave. Transmit and Receive implement i2cs.Slave.
type Device struct {
	data    byte
	txDelay uint8
	rxDelay uint8
}

// New returns an echo device.
func New() *Device {
	return &Device{}
}

// Transmit returns the stored byte with bit 1 set on the first byte of
// the transaction.
func (d *Device) Transmit(first bool) byte {
	spin(d.txDelay)
	d.txDelay = next(d.txDelay)

	if first {
		return d.data | 0x02
	}
	return d.data
}

// Receive stores data with bit 0 marking the first byte of the
// transaction.
func (d *Device) Receive(first bool, data byte) bool {
	spin(d.rxDelay)
	d.rxDelay = next(d.rxDelay)

	d.data = data &^ 0x03
	if first {
		d.data |= 0x01
	}
	return true
}

// Delays returns the busy-loop lengths used for the next transmit and
// receive.
func (d *Device) Delays() (tx, rx uint8) {
	return d.txDelay, d.rxDelay
}

func next(delay uint8) uint8 {
	delay++
	if delay >= MaxDelay {
		return 0
	}
	return delay
}
