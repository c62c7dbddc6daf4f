// Package conf is a configuration register device on the bus.
//
// A write transaction selects an item with its first byte. Further bytes
// of the same transaction set the item: the value (little-endian) followed
// by its bitwise inverse. A value whose inverse does not match is dropped.
// A read transaction returns the value of the item selected by the
// preceding write.
package conf

import "hatfw/txen"

// Item selects a configuration value.
type Item uint8

const (
	ItemNone              Item = iota
	ItemXtalCal                // Oscillator calibration, u8
	ItemEEPROMWriteEnable      // EEPROM emulation write enable, bool
	ItemTxEnDebug              // TX-enable debug mode, u8
	ItemTxEnTimeout            // TX-enable timeout in microseconds, u16
)

func (i Item) String() string {
	switch i {
	case ItemNone:
		return "none"
	case ItemXtalCal:
		return "xtalcal"
	case ItemEEPROMWriteEnable:
		return "eemuwe"
	case ItemTxEnDebug:
		return "pbtxendbg"
	case ItemTxEnTimeout:
		return "pbtxento"
	default:
		return "unknown"
	}
}

// Size returns the value width in bytes.
func (i Item) Size() int {
	if i == ItemTxEnTimeout {
		return 2
	}
	return 1
}

// Oscillator is the tunable system clock.
type Oscillator interface {
	Calibration() uint8
	SetCalibration(v uint8)
}

// WriteProtect is the EEPROM emulation write switch.
type WriteProtect interface {
	WriteEnabled() bool
	SetWriteEnable(on bool)
}

// Transmitter is the TX-enable controller.
type Transmitter interface {
	Timeout() uint16
	SetTimeout(us uint16)
	DebugMode() txen.DebugMode
	SetDebugMode(m txen.DebugMode)
}

// Targets are the subsystems the items control. A nil target reads as
// zero and ignores writes.
type Targets struct {
	Osc    Oscillator
	EEPROM WriteProtect
	TxEn   Transmitter
}

// Device is the configuration slave. Transmit and Receive implement
// i2cs.Slave.
type Device struct {
	t     Targets
	item  Item
	count uint8
	buf   [4]byte
}

// New returns a device controlling t.
func New(t Targets) *Device {
	return &Device{t: t}
}

// Selected returns the currently selected item.
func (d *Device) Selected() Item {
	return d.item
}

func (d *Device) read() uint16 {
	switch d.item {
	case ItemXtalCal:
		if d.t.Osc != nil {
			return uint16(d.t.Osc.Calibration())
		}
	case ItemEEPROMWriteEnable:
		if d.t.EEPROM != nil && d.t.EEPROM.WriteEnabled() {
			return 1
		}
	case ItemTxEnDebug:
		if d.t.TxEn != nil {
			return uint16(d.t.TxEn.DebugMode())
		}
	case ItemTxEnTimeout:
		if d.t.TxEn != nil {
			return d.t.TxEn.Timeout()
		}
	}
	return 0
}

// Transmit returns the selected value, low byte first. The selection is
// cleared once the whole value has been read.
func (d *Device) Transmit(first bool) byte {
	if first {
		d.count = 0
	}
	if d.item == ItemNone || d.item > ItemTxEnTimeout {
		return 0
	}

	if d.count == 0 {
		v := d.read()
		d.buf[0], d.buf[1] = byte(v), byte(v>>8)
	}
	b := d.buf[d.count]
	d.count++
	if int(d.count) >= d.item.Size() {
		d.item = ItemNone
	}
	return b
}

// Receive selects an item or collects a safe write. It always accepts
// more data.
func (d *Device) Receive(first bool, data byte) bool {
	if first {
		d.item = ItemNone
		d.count = 0
	}
	if d.item == ItemNone {
		d.item = Item(data)
		d.count = 0
		return true
	}
	if d.item > ItemTxEnTimeout {
		return true
	}

	d.buf[d.count] = data
	d.count++
	n := d.item.Size()
	if int(d.count) < 2*n {
		return true
	}

	var v, inv uint16
	for i := 0; i < n; i++ {
		v |= uint16(d.buf[i]) << (8 * i)
		inv |= uint16(d.buf[n+i]) << (8 * i)
	}
	if n == 1 {
		inv |= 0xFF00
	}
	if v == ^inv {
		d.apply(v)
	}
	d.item = ItemNone
	return true
}

func (d *Device) apply(v uint16) {
	switch d.item {
	case ItemXtalCal:
		if d.t.Osc != nil {
			d.t.Osc.SetCalibration(uint8(v))
		}
	case ItemEEPROMWriteEnable:
		if d.t.EEPROM != nil && v <= 1 {
			d.t.EEPROM.SetWriteEnable(v == 1)
		}
	case ItemTxEnDebug:
		if d.t.TxEn != nil {
			d.t.TxEn.SetDebugMode(txen.DebugMode(v))
		}
	case ItemTxEnTimeout:
		if d.t.TxEn != nil {
			d.t.TxEn.SetTimeout(v)
		}
	}
}

// SafeWrite returns the write transaction payload setting item to v.
func SafeWrite(item Item, v uint16) []byte {
	if item.Size() == 1 {
		return []byte{byte(item), byte(v), ^byte(v)}
	}
	inv := ^v
	return []byte{byte(item), byte(v), byte(v >> 8), byte(inv), byte(inv >> 8)}
}
