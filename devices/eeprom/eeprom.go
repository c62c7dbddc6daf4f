// Package eeprom emulates a 24Cxx serial EEPROM as a bus slave.
//
// Protocol: a write transaction starts with the 16-bit word address (high
// byte first) followed by data bytes. Writes wrap within a page. A read
// after a complete address streams bytes from the word address, wrapping
// at the emulated size. A read with no address set returns the low byte of
// the word address.
package eeprom

const (
	DefaultSize     = 4096
	DefaultPageSize = 32
)

// Memory is the backing store. Addresses beyond Len read as erased.
type Memory interface {
	Len() int
	Load(addr uint16) byte
	Store(addr uint16, b byte)
}

// RAM is a Memory in host or target RAM.
type RAM []byte

func (r RAM) Len() int                  { return len(r) }
func (r RAM) Load(addr uint16) byte     { return r[addr] }
func (r RAM) Store(addr uint16, b byte) { r[addr] = b }

// Config is the emulated chip geometry. Both sizes must be powers of two.
type Config struct {
	Size     uint32
	PageSize uint16
}

type state uint8

const (
	stateIdle     state = iota // Waiting for address high byte
	stateAddrLo                // Waiting for address low byte
	stateComplete              // Address set, data follows
)

// Device is the emulated EEPROM. Transmit and Receive implement
// i2cs.Slave.
type Device struct {
	mem      Memory
	addrMask uint16
	pageMask uint16

	state    state
	wordAddr uint16
	writeEn  bool
}

// New returns a write-protected device over mem.
func New(mem Memory, cfg Config) *Device {
	if cfg.Size == 0 {
		cfg.Size = DefaultSize
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Device{
		mem:      mem,
		addrMask: uint16(cfg.Size - 1),
		pageMask: cfg.PageSize - 1,
	}
}

// SetWriteEnable enables or disables data writes.
func (d *Device) SetWriteEnable(on bool) {
	d.writeEn = on
}

// WriteEnabled reports whether data writes are accepted.
func (d *Device) WriteEnabled() bool {
	return d.writeEn
}

// Addr returns the current word address.
func (d *Device) Addr() uint16 {
	return d.wordAddr
}

// Transmit returns the next byte of a read.
func (d *Device) Transmit(first bool) byte {
	switch d.state {
	case stateIdle:
		return byte(d.wordAddr)
	case stateComplete:
		var b byte = 0xFF
		if int(d.wordAddr) < d.mem.Len() {
			b = d.mem.Load(d.wordAddr)
		}
		d.wordAddr = (d.wordAddr + 1) & d.addrMask
		return b
	default:
		// Address incomplete.
		return 0
	}
}

// Receive consumes an address or data byte. With writes disabled the
// transfer ends after the address, so data bytes are not acknowledged.
func (d *Device) Receive(first bool, data byte) bool {
	if first {
		d.state = stateIdle
	}

	switch d.state {
	case stateIdle:
		d.wordAddr = (d.wordAddr&0x00FF | uint16(data)<<8) & d.addrMask
		d.state = stateAddrLo
		return true
	case stateAddrLo:
		d.wordAddr = (d.wordAddr&0xFF00 | uint16(data)) & d.addrMask
		d.state = stateComplete
		return d.writeEn
	default:
		if d.writeEn && int(d.wordAddr) < d.mem.Len() {
			d.mem.Store(d.wordAddr, data)
		}
		d.wordAddr = d.wordAddr&^d.pageMask | (d.wordAddr+1)&d.pageMask
		return true
	}
}
