package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers/at24cx"

	"hatfw/config"
	"hatfw/core"
	"hatfw/devices/conf"
	"hatfw/i2cs"
	"hatfw/txen"
	"hatfw/usi"
)

func newSystem(t *testing.T, mutate func(*config.Config)) *System {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := NewSystem(cfg)
	require.NoError(t, err)
	return s
}

func newEEPROM(s *System) at24cx.Device {
	dev := at24cx.New(s.Master)
	dev.Address = uint16(s.Config.EEPROM.Addr)
	dev.Configure(at24cx.Config{
		PageSize:      s.Config.EEPROM.PageSize,
		EndRAMAddress: uint16(s.Config.EEPROM.Size),
	})
	return dev
}

func TestEEPROMReadThroughDriver(t *testing.T) {
	s := newSystem(t, nil)
	s.Memory[0x10] = 0x5A
	dev := newEEPROM(s)

	v, err := dev.ReadByte(0x0010)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x5A), v)

	v, err = dev.ReadByte(0x0011)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), v)

	// Beyond the 512 byte backing image
	v, err = dev.ReadByte(0x0400)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), v)
}

func TestEEPROMSequentialRead(t *testing.T) {
	s := newSystem(t, nil)
	copy(s.Memory[0x20:], []byte("hat-eeprom"))
	dev := newEEPROM(s)

	buf := make([]byte, 10)
	n, err := dev.ReadAt(buf, 0x20)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "hat-eeprom", string(buf))
}

func TestEEPROMWriteProtected(t *testing.T) {
	s := newSystem(t, nil)
	dev := newEEPROM(s)

	err := dev.WriteByte(0x0020, 0x42)
	require.ErrorIs(t, err, ErrNACK)
	assert.Equal(t, byte(0xFF), s.Memory[0x20])

	// The bus is usable again after the NACK
	v, err := dev.ReadByte(0x0020)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), v)
}

func TestEEPROMWriteAfterConfEnable(t *testing.T) {
	s := newSystem(t, nil)
	dev := newEEPROM(s)
	addr := uint16(s.Config.Conf.Addr)

	require.NoError(t, s.Master.Tx(addr, conf.SafeWrite(conf.ItemEEPROMWriteEnable, 1), nil))
	require.True(t, s.EEPROM.WriteEnabled())

	require.NoError(t, dev.WriteByte(0x0020, 0x42))
	assert.Equal(t, byte(0x42), s.Memory[0x20])

	v, err := dev.ReadByte(0x0020)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), v)

	n, err := dev.WriteAt([]byte{1, 2, 3, 4}, 0x40)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, []byte(s.Memory[0x40:0x44]))

	// Read back the enable flag
	r := make([]byte, 1)
	require.NoError(t, s.Master.Tx(addr, []byte{byte(conf.ItemEEPROMWriteEnable)}, r))
	assert.Equal(t, byte(1), r[0])
}

func TestEEPROMPageWriteWraps(t *testing.T) {
	s := newSystem(t, func(c *config.Config) { c.EEPROM.WriteEnable = true })

	err := s.Master.Tx(uint16(s.Config.EEPROM.Addr), []byte{0x00, 0x1E, 0xA1, 0xA2, 0xA3, 0xA4}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA1, 0xA2}, []byte(s.Memory[0x1E:0x20]))
	assert.Equal(t, []byte{0xA3, 0xA4}, []byte(s.Memory[0x00:0x02]))
	assert.Equal(t, byte(0xFF), s.Memory[0x20])
}

func TestEEPROMImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xDE, 0xAD, 0xBE, 0xEF}, 0o644))

	s := newSystem(t, func(c *config.Config) { c.EEPROM.Image = path })
	dev := newEEPROM(s)

	buf := make([]byte, 5)
	_, err := dev.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xFF}, buf)
}

func TestEEPROMImageTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 1024), 0o644))

	cfg := config.Default()
	cfg.EEPROM.Image = path
	_, err := NewSystem(cfg)
	require.Error(t, err)
}

func TestUnknownAddress(t *testing.T) {
	s := newSystem(t, nil)

	err := s.Master.Tx(0x10, []byte{0x00}, nil)
	require.ErrorIs(t, err, ErrNoDevice)

	evs, lost := s.Events()
	assert.Zero(t, lost)
	require.Len(t, evs, 2)
	assert.Equal(t, i2cs.TraceStart, evs[0].Kind)
	assert.Equal(t, i2cs.TraceAddrNack, evs[1].Kind)
	assert.Equal(t, i2cs.Addr(0x10), evs[1].Addr)
	assert.Equal(t, i2cs.StateWaitStart, evs[1].State)

	// Probe of a registered address
	require.NoError(t, s.Master.Tx(uint16(s.Config.Conf.Addr), nil, nil))
}

func TestConfItems(t *testing.T) {
	s := newSystem(t, func(c *config.Config) { c.Clock.XtalCal = 0x7A })
	addr := uint16(s.Config.Conf.Addr)

	r := make([]byte, 2)
	require.NoError(t, s.Master.Tx(addr, []byte{byte(conf.ItemTxEnTimeout)}, r))
	assert.Equal(t, []byte{0x3D, 0x02}, r) // 573

	require.NoError(t, s.Master.Tx(addr, conf.SafeWrite(conf.ItemTxEnTimeout, 1000), nil))
	assert.Equal(t, uint16(1000), s.TxEn.Timeout())

	r = r[:1]
	require.NoError(t, s.Master.Tx(addr, []byte{byte(conf.ItemXtalCal)}, r))
	assert.Equal(t, byte(0x7A), r[0])

	require.NoError(t, s.Master.Tx(addr, conf.SafeWrite(conf.ItemXtalCal, 0x80), nil))
	assert.Equal(t, uint8(0x80), s.Osc.Cal)

	// A write without a matching inverse is ignored
	require.NoError(t, s.Master.Tx(addr, []byte{byte(conf.ItemXtalCal), 0x10, 0x10}, nil))
	assert.Equal(t, uint8(0x80), s.Osc.Cal)

	require.NoError(t, s.Master.Tx(addr, conf.SafeWrite(conf.ItemTxEnDebug, uint16(txen.DebugNoTrigger)), nil))
	assert.Equal(t, txen.DebugNoTrigger, s.TxEn.DebugMode())
}

func TestDebugEcho(t *testing.T) {
	s := newSystem(t, func(c *config.Config) { c.Debug.Enabled = true })
	addr := uint16(s.Config.Debug.Addr)

	require.NoError(t, s.Master.Tx(addr, []byte{0x40}, nil))
	r := make([]byte, 2)
	require.NoError(t, s.Master.Tx(addr, nil, r))
	assert.Equal(t, []byte{0x43, 0x41}, r)

	require.NoError(t, s.Master.Tx(addr, []byte{0x40, 0x80}, r))
	assert.Equal(t, []byte{0x82, 0x80}, r)
}

func TestGuardPollsEveryOverflow(t *testing.T) {
	s := newSystem(t, func(c *config.Config) {
		c.Clock.CPUHz = 1000000
		c.Clock.GuardPrescaler = 1
	})

	// Address byte and its ACK: two overflows, each waiting 7 ticks
	require.NoError(t, s.Master.Tx(uint16(s.Config.Conf.Addr), nil, nil))
	assert.Equal(t, 14, s.Counter.Polls())
}

func TestGuardDisabled(t *testing.T) {
	s := newSystem(t, func(c *config.Config) { c.Bus.DisableGuard = true })
	require.NoError(t, s.Master.Tx(uint16(s.Config.Conf.Addr), nil, nil))
	assert.Zero(t, s.Counter.Polls())
}

func TestClockStretchWithoutHandler(t *testing.T) {
	bus := NewBus()
	sh := usi.New(bus)
	bus.Attach(sh)
	sh.SetControl(false, true)
	sh.SetCounter(0, true)

	// The counter overflows during the ACK clock and nothing re-arms it.
	m := NewMaster(bus)
	_, err := m.SendByte(0xA0)
	require.ErrorIs(t, err, ErrClockStretch)
	assert.True(t, bus.SlaveHoldsSCL())

	err = m.Tx(0x50, []byte{0x00}, nil)
	require.ErrorIs(t, err, ErrClockStretch)
}

func TestStopMidTransaction(t *testing.T) {
	s := newSystem(t, func(c *config.Config) { c.EEPROM.WriteEnable = true })
	m := s.Master

	require.NoError(t, m.Start())
	ack, err := m.SendByte(s.Config.EEPROM.Addr << 1)
	require.NoError(t, err)
	require.True(t, ack)
	ack, err = m.SendByte(0x00)
	require.NoError(t, err)
	require.True(t, ack)
	require.NoError(t, m.Stop())

	// The engine recovers on the next start
	s.Memory[0x33] = 0x99
	dev := newEEPROM(s)
	v, err := dev.ReadByte(0x0033)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x99), v)
}

func TestTraceEvents(t *testing.T) {
	s := newSystem(t, nil)
	core.SetTime(1000)

	require.NoError(t, s.Master.Tx(uint16(s.Config.Conf.Addr), []byte{byte(conf.ItemNone)}, nil))

	evs, lost := s.Events()
	assert.Zero(t, lost)
	kinds := make([]i2cs.TraceKind, len(evs))
	for i, ev := range evs {
		kinds[i] = ev.Kind
	}
	assert.Equal(t, []i2cs.TraceKind{i2cs.TraceStart, i2cs.TraceAddrAck, i2cs.TraceReceive}, kinds)
	assert.Equal(t, uint32(1000), evs[0].Clock)
	assert.Equal(t, i2cs.Addr(s.Config.Conf.Addr), evs[1].Addr)

	// Events are drained
	evs, _ = s.Events()
	assert.Empty(t, evs)
}

func TestTraceOverflowCountsLost(t *testing.T) {
	s := newSystem(t, func(c *config.Config) { c.Debug.Enabled = true })

	w := make([]byte, 20)
	require.NoError(t, s.Master.Tx(uint16(s.Config.Debug.Addr), w, nil))

	evs, lost := s.Events()
	assert.Len(t, evs, core.TraceRingSize)
	assert.Equal(t, uint16(22-core.TraceRingSize), lost)
}

func TestTxEnFollowsUART(t *testing.T) {
	s := newSystem(t, nil)

	s.Step()
	assert.False(t, s.TxEn.Active())
	assert.False(t, s.GPIO.Driven(TxEnPin))

	s.GPIO.SetInput(TxPin, false) // Start bit
	s.Step()
	assert.True(t, s.TxEn.Active())
	assert.True(t, s.GPIO.Driven(TxEnPin))

	s.GPIO.SetInput(TxPin, true)
	s.Advance(100)
	assert.True(t, s.TxEn.Active())

	s.Advance(uint32(txen.CompensatedUS(txen.DefaultTimeoutUS)))
	assert.False(t, s.TxEn.Active())
	assert.False(t, s.GPIO.Driven(TxEnPin))
}

func TestNewSystemRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.KHz = 300
	_, err := NewSystem(cfg)
	require.ErrorIs(t, err, config.ErrInvalid)
}
