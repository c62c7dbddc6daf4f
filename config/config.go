// Package config loads board descriptions for the host tools: clocks, bus
// speed, device addresses, EEPROM geometry and TX-enable settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hatfw/i2cs"
	"hatfw/txen"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Default device addresses.
const (
	DefaultEEPROMAddr = 0x50
	DefaultConfAddr   = 0x2F
	DefaultDebugAddr  = 0x2E
)

// Config is a board description.
type Config struct {
	Clock  Clock  `yaml:"clock"`
	Bus    Bus    `yaml:"bus"`
	EEPROM EEPROM `yaml:"eeprom"`
	Conf   Conf   `yaml:"conf"`
	Debug  Debug  `yaml:"debug"`
	TxEn   TxEn   `yaml:"txen"`
}

// Clock describes the MCU clock and the guard counter prescaler.
type Clock struct {
	CPUHz          uint32 `yaml:"cpu_hz"`
	GuardPrescaler uint32 `yaml:"guard_prescaler"`
	XtalCal        uint8  `yaml:"xtal_cal"`
}

// TimerHz returns the guard counter tick rate.
func (c Clock) TimerHz() uint32 {
	if c.GuardPrescaler == 0 {
		return c.CPUHz
	}
	return c.CPUHz / c.GuardPrescaler
}

// Bus describes the two-wire bus.
type Bus struct {
	KHz          uint32 `yaml:"khz"`
	DisableGuard bool   `yaml:"disable_guard"`
}

// EEPROM describes the emulated 24Cxx EEPROM.
type EEPROM struct {
	Disabled    bool   `yaml:"disabled"`
	Addr        uint8  `yaml:"addr"`
	Size        uint32 `yaml:"size"`
	PageSize    uint16 `yaml:"page_size"`
	ImageSize   int    `yaml:"image_size"`
	Image       string `yaml:"image"`
	WriteEnable bool   `yaml:"write_enable"`
}

// Conf describes the configuration register device.
type Conf struct {
	Disabled bool  `yaml:"disabled"`
	Addr     uint8 `yaml:"addr"`
}

// Debug describes the echo test device. It is off unless enabled.
type Debug struct {
	Enabled bool  `yaml:"enabled"`
	Addr    uint8 `yaml:"addr"`
}

// TxEn describes the TX-enable controller.
type TxEn struct {
	TimeoutUS uint16 `yaml:"timeout_us"`
	Debug     string `yaml:"debug"`
}

// DebugMode parses the debug mode name.
func (t TxEn) DebugMode() (txen.DebugMode, error) {
	for m := txen.DebugOff; m.Valid(); m++ {
		if m.String() == t.Debug {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: txen debug mode %q", ErrInvalid, t.Debug)
}

// Parse decodes, defaults and validates a YAML board description.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads a board description from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the ATtiny85 HAT board.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults fills in missing values with the HAT board settings.
func applyDefaults(cfg *Config) {
	if cfg.Clock.CPUHz == 0 {
		cfg.Clock.CPUHz = 8000000
	}
	if cfg.Clock.GuardPrescaler == 0 {
		cfg.Clock.GuardPrescaler = 8
	}
	if cfg.Bus.KHz == 0 {
		cfg.Bus.KHz = 100
	}

	if cfg.EEPROM.Addr == 0 {
		cfg.EEPROM.Addr = DefaultEEPROMAddr
	}
	if cfg.EEPROM.Size == 0 {
		cfg.EEPROM.Size = 4096
	}
	if cfg.EEPROM.PageSize == 0 {
		cfg.EEPROM.PageSize = 32
	}
	if cfg.EEPROM.ImageSize == 0 {
		cfg.EEPROM.ImageSize = 512 // ATtiny85 data EEPROM
	}

	if cfg.Conf.Addr == 0 {
		cfg.Conf.Addr = DefaultConfAddr
	}
	if cfg.Debug.Addr == 0 {
		cfg.Debug.Addr = DefaultDebugAddr
	}

	if cfg.TxEn.TimeoutUS == 0 {
		cfg.TxEn.TimeoutUS = txen.DefaultTimeoutUS
	}
	if cfg.TxEn.Debug == "" {
		cfg.TxEn.Debug = txen.DebugOff.String()
	}
}

// Validate checks a defaulted configuration.
func (c *Config) Validate() error {
	if !c.Bus.DisableGuard {
		gc := i2cs.GuardConfig{TimerHz: c.Clock.TimerHz(), BusKHz: c.Bus.KHz}
		if _, err := gc.Period(); err != nil {
			return fmt.Errorf("%w: %d Hz guard counter at %d kHz: %v",
				ErrInvalid, gc.TimerHz, gc.BusKHz, err)
		}
	}

	if !isPow2(c.EEPROM.Size) || c.EEPROM.Size > 1<<16 {
		return fmt.Errorf("%w: eeprom size %d", ErrInvalid, c.EEPROM.Size)
	}
	if !isPow2(uint32(c.EEPROM.PageSize)) || uint32(c.EEPROM.PageSize) > c.EEPROM.Size {
		return fmt.Errorf("%w: eeprom page size %d", ErrInvalid, c.EEPROM.PageSize)
	}
	if c.EEPROM.ImageSize < 0 || uint32(c.EEPROM.ImageSize) > c.EEPROM.Size {
		return fmt.Errorf("%w: eeprom image size %d", ErrInvalid, c.EEPROM.ImageSize)
	}

	seen := map[uint8]string{}
	for _, d := range c.devices() {
		if d.addr > uint8(i2cs.AddrMask) {
			return fmt.Errorf("%w: %s address 0x%02X", ErrInvalid, d.name, d.addr)
		}
		if other, ok := seen[d.addr]; ok {
			return fmt.Errorf("%w: %s and %s share address 0x%02X", ErrInvalid, other, d.name, d.addr)
		}
		seen[d.addr] = d.name
	}
	if len(seen) > i2cs.MaxSlaves {
		return fmt.Errorf("%w: %d devices, at most %d", ErrInvalid, len(seen), i2cs.MaxSlaves)
	}

	if _, err := c.TxEn.DebugMode(); err != nil {
		return err
	}
	return nil
}

type device struct {
	name string
	addr uint8
}

func (c *Config) devices() []device {
	var ds []device
	if !c.EEPROM.Disabled {
		ds = append(ds, device{"eeprom", c.EEPROM.Addr})
	}
	if !c.Conf.Disabled {
		ds = append(ds, device{"conf", c.Conf.Addr})
	}
	if c.Debug.Enabled {
		ds = append(ds, device{"debug", c.Debug.Addr})
	}
	return ds
}

func isPow2(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}
