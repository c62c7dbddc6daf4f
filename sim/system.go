package sim

import (
	"fmt"
	"os"

	"hatfw/config"
	"hatfw/core"
	"hatfw/devices/conf"
	"hatfw/devices/dbgslave"
	"hatfw/devices/eeprom"
	"hatfw/i2cs"
	"hatfw/txen"
	"hatfw/usi"
)

// Simulated pin numbers of the TX-enable controller.
const (
	TxPin   core.GPIOPin = 3
	TxEnPin core.GPIOPin = 4
)

// System is the complete HAT firmware on a simulated bus, wired the same
// way as the ATtiny85 target.
type System struct {
	Config *config.Config

	Bus     *Bus
	Shifter *usi.Shifter
	Counter *Counter
	Engine  *i2cs.Engine
	Master  *Master
	Trace   *core.TraceRing

	GPIO *GPIO
	Osc  *Oscillator
	TxEn *txen.TxEn

	EEPROM *eeprom.Device
	Memory eeprom.RAM
	Conf   *conf.Device
	Debug  *dbgslave.Device
}

// NewSystem builds a system for cfg. A nil cfg selects config.Default.
// The core scheduler is reset.
func NewSystem(cfg *config.Config) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.ResetTimers()

	s := &System{
		Config:  cfg,
		Bus:     NewBus(),
		Counter: &Counter{},
		Trace:   &core.TraceRing{},
		GPIO:    NewGPIO(),
		Osc:     &Oscillator{Cal: cfg.Clock.XtalCal},
	}

	var guard i2cs.Guard
	if !cfg.Bus.DisableGuard {
		g, err := i2cs.NewGuard(s.Counter, i2cs.GuardConfig{
			TimerHz: cfg.Clock.TimerHz(),
			BusKHz:  cfg.Bus.KHz,
		})
		if err != nil {
			return nil, err
		}
		guard = g
	}

	s.Shifter = usi.New(s.Bus)
	s.Bus.Attach(s.Shifter)
	s.Engine = i2cs.New(s.Shifter, guard)
	s.Engine.SetTracer(s.Trace)
	s.Master = NewMaster(s.Bus)

	if err := s.initTxEn(); err != nil {
		return nil, err
	}
	if err := s.initDevices(); err != nil {
		return nil, err
	}

	s.Engine.Init()
	s.Shifter.Attach(s.Engine.OnStart, s.Engine.OnOverflow)
	return s, nil
}

func (s *System) initTxEn() error {
	timer := txen.NewSchedTimer()
	s.TxEn = txen.New(s.GPIO, txen.Config{
		TxPin:       TxPin,
		TxEnPin:     TxEnPin,
		TxActiveLow: true,
	}, timer)
	timer.Bind(s.TxEn)

	s.GPIO.SetInput(TxPin, true) // UART idle
	if err := s.TxEn.Init(); err != nil {
		return fmt.Errorf("txen: %w", err)
	}
	mode, err := s.Config.TxEn.DebugMode()
	if err != nil {
		return err
	}
	s.TxEn.SetTimeout(s.Config.TxEn.TimeoutUS)
	s.TxEn.SetDebugMode(mode)
	return nil
}

func (s *System) initDevices() error {
	cfg := s.Config
	targets := conf.Targets{Osc: s.Osc, TxEn: s.TxEn}

	if !cfg.EEPROM.Disabled {
		s.Memory = make(eeprom.RAM, cfg.EEPROM.ImageSize)
		for i := range s.Memory {
			s.Memory[i] = 0xFF
		}
		if cfg.EEPROM.Image != "" {
			img, err := os.ReadFile(cfg.EEPROM.Image)
			if err != nil {
				return fmt.Errorf("eeprom image: %w", err)
			}
			if len(img) > len(s.Memory) {
				return fmt.Errorf("eeprom image %s: %d bytes, capacity %d",
					cfg.EEPROM.Image, len(img), len(s.Memory))
			}
			copy(s.Memory, img)
		}
		s.EEPROM = eeprom.New(s.Memory, eeprom.Config{
			Size:     cfg.EEPROM.Size,
			PageSize: cfg.EEPROM.PageSize,
		})
		s.EEPROM.SetWriteEnable(cfg.EEPROM.WriteEnable)
		s.Engine.Register(i2cs.Addr(cfg.EEPROM.Addr), s.EEPROM)
		targets.EEPROM = s.EEPROM
	}

	if !cfg.Conf.Disabled {
		s.Conf = conf.New(targets)
		s.Engine.Register(i2cs.Addr(cfg.Conf.Addr), s.Conf)
	}

	if cfg.Debug.Enabled {
		s.Debug = dbgslave.New()
		s.Engine.Register(i2cs.Addr(cfg.Debug.Addr), s.Debug)
	}
	return nil
}

// Step runs one main loop iteration: due timers, then the TX-enable poll.
func (s *System) Step() {
	core.ProcessTimers()
	s.TxEn.Poll()
}

// Advance moves the system time forward by us microseconds and runs a
// main loop iteration.
func (s *System) Advance(us uint32) {
	core.AdvanceTime(core.TimerFromUS(us))
	s.Step()
}

// Events drains the bus trace. lost counts events dropped since the last
// drain.
func (s *System) Events() (evs []core.BusEvent, lost uint16) {
	var buf [core.TraceRingSize]core.BusEvent
	for {
		n, l := s.Trace.Drain(buf[:])
		lost += l
		evs = append(evs, buf[:n]...)
		if n < len(buf) {
			return evs, lost
		}
	}
}
