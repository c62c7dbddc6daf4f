// Package hatconf configures a HAT board over its two-wire configuration
// device.
package hatconf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"tinygo.org/x/drivers"

	"hatfw/config"
	"hatfw/devices/conf"
	"hatfw/txen"
)

// DefaultTries is the number of attempts per operation.
const DefaultTries = 5

// ProductPath holds the HAT product name on Linux hosts.
const ProductPath = "/proc/device-tree/hat/product"

// ProductName is the HAT EEPROM product string.
const ProductName = "PiLC"

var (
	ErrVerify      = errors.New("hatconf: read-back does not match")
	ErrUnknownItem = errors.New("hatconf: unknown item")
)

// Client talks to the configuration device.
type Client struct {
	bus   drivers.I2C
	addr  uint16
	tries int
}

// New returns a client for the device at addr. Zero selects the default
// address.
func New(bus drivers.I2C, addr uint16) *Client {
	if addr == 0 {
		addr = config.DefaultConfAddr
	}
	return &Client{bus: bus, addr: addr, tries: DefaultTries}
}

// SetTries sets the number of attempts per operation.
func (c *Client) SetTries(n int) {
	if n < 1 {
		n = 1
	}
	c.tries = n
}

func checkItem(item conf.Item) error {
	if item > conf.ItemTxEnTimeout {
		return fmt.Errorf("%w %d", ErrUnknownItem, item)
	}
	return nil
}

// Get reads an item. ItemNone reads as zero.
func (c *Client) Get(item conf.Item) (uint16, error) {
	if err := checkItem(item); err != nil {
		return 0, err
	}
	if item == conf.ItemNone {
		return 0, nil
	}

	var err error
	for i := 0; i < c.tries; i++ {
		var v uint16
		if v, err = c.read(item); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("read %s: %w", item, err)
}

func (c *Client) read(item conf.Item) (uint16, error) {
	buf := make([]byte, item.Size())
	if err := c.bus.Tx(c.addr, []byte{byte(item)}, buf); err != nil {
		return 0, err
	}
	var v uint16
	for i, b := range buf {
		v |= uint16(b) << (8 * i)
	}
	return v, nil
}

// Set writes an item and reads it back.
func (c *Client) Set(item conf.Item, v uint16) error {
	if err := checkItem(item); err != nil {
		return err
	}
	if item == conf.ItemNone {
		return nil
	}

	var err error
	for i := 0; i < c.tries; i++ {
		if err = c.bus.Tx(c.addr, conf.SafeWrite(item, v), nil); err != nil {
			continue
		}
		var got uint16
		if got, err = c.read(item); err != nil {
			continue
		}
		if got == v {
			return nil
		}
		err = fmt.Errorf("%w: wrote %d, read %d", ErrVerify, v, got)
	}
	return fmt.Errorf("write %s: %w", item, err)
}

// XtalCal reads the oscillator calibration.
func (c *Client) XtalCal() (uint8, error) {
	v, err := c.Get(conf.ItemXtalCal)
	return uint8(v), err
}

// SetXtalCal sets the oscillator calibration.
func (c *Client) SetXtalCal(v uint8) error {
	return c.Set(conf.ItemXtalCal, uint16(v))
}

// EEPROMWriteEnable reports whether the emulated EEPROM accepts writes.
func (c *Client) EEPROMWriteEnable() (bool, error) {
	v, err := c.Get(conf.ItemEEPROMWriteEnable)
	return v != 0, err
}

// SetEEPROMWriteEnable switches EEPROM write protection.
func (c *Client) SetEEPROMWriteEnable(on bool) error {
	var v uint16
	if on {
		v = 1
	}
	return c.Set(conf.ItemEEPROMWriteEnable, v)
}

// TxEnDebug reads the TX-enable debug mode.
func (c *Client) TxEnDebug() (txen.DebugMode, error) {
	v, err := c.Get(conf.ItemTxEnDebug)
	return txen.DebugMode(v), err
}

// SetTxEnDebug sets the TX-enable debug mode.
func (c *Client) SetTxEnDebug(m txen.DebugMode) error {
	if !m.Valid() {
		return fmt.Errorf("hatconf: invalid debug mode %d", m)
	}
	return c.Set(conf.ItemTxEnDebug, uint16(m))
}

// TxEnTimeout reads the TX-enable timeout in microseconds.
func (c *Client) TxEnTimeout() (uint16, error) {
	return c.Get(conf.ItemTxEnTimeout)
}

// SetTxEnTimeout sets the TX-enable timeout in microseconds.
func (c *Client) SetTxEnTimeout(us uint16) error {
	return c.Set(conf.ItemTxEnTimeout, us)
}

// SetBaudrate sets the TX-enable timeout to one UART frame at kBaud.
func (c *Client) SetBaudrate(kBaud float64) error {
	us, err := FrameUS(kBaud)
	if err != nil {
		return err
	}
	return c.SetTxEnTimeout(us)
}

// FrameUS returns the duration of one 11-symbol UART frame (start, 8
// data, parity, stop) at kBaud, rounded up to whole microseconds.
func FrameUS(kBaud float64) (uint16, error) {
	if kBaud <= 0 {
		return 0, fmt.Errorf("hatconf: invalid baud rate %gk", kBaud)
	}
	const symbols = 1 + 8 + 1 + 1
	us := symbols * 1000 / kBaud
	n := uint64(us)
	if float64(n) < us {
		n++
	}
	if n > 0xFFFF {
		return 0, fmt.Errorf("hatconf: baud rate %gk too low", kBaud)
	}
	return uint16(n), nil
}

// HaveHAT reports whether the device tree names the HAT.
func HaveHAT() bool {
	return haveHAT(ProductPath)
}

func haveHAT(path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00")) == ProductName
}

// Items lists the configurable items.
var Items = []conf.Item{
	conf.ItemXtalCal,
	conf.ItemEEPROMWriteEnable,
	conf.ItemTxEnDebug,
	conf.ItemTxEnTimeout,
}

// ParseItem accepts an item name or number.
func ParseItem(s string) (conf.Item, error) {
	for _, it := range Items {
		if s == it.String() {
			return it, nil
		}
	}
	var n uint8
	if _, err := fmt.Sscan(s, &n); err == nil && checkItem(conf.Item(n)) == nil {
		return conf.Item(n), nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownItem, s)
}
