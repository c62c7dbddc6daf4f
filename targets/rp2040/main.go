//go:build rp2040

// Firmware for an RP2040 board emulating the HAT controller: the bus slave
// runs on a software shifter clocked by GPIO edge interrupts and streams
// its trace over UART0.
package main

import (
	"machine"
	"time"

	"hatfw/core"
	"hatfw/devices/conf"
	"hatfw/devices/dbgslave"
	"hatfw/devices/eeprom"
	"hatfw/i2cs"
	"hatfw/protocol"
	"hatfw/txen"
	"hatfw/usi"
)

const (
	busKHz = 100

	eepromAddr = 0x50
	confAddr   = 0x2F
	debugAddr  = 0x2E

	txPin   = core.GPIOPin(machine.GP8)
	txEnPin = core.GPIOPin(machine.GP9)

	traceBaud = 115200
)

// Oscillator calibration has no hardware counterpart here; the value is
// kept so the configuration item reads back.
var osc calibration = 0x80

var (
	trace     core.TraceRing
	frames    protocol.FrameWriter
	frameBuf  []byte
	traceUART = machine.UART0
)

var (
	memory = make(eeprom.RAM, eeprom.DefaultSize)
	tx     *txen.TxEn
)

type calibration uint8

func (c *calibration) Calibration() uint8     { return uint8(*c) }
func (c *calibration) SetCalibration(v uint8) { *c = calibration(v) }

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitClock()
	core.ResetTimers()
	traceUART.Configure(machine.UARTConfig{BaudRate: traceBaud})
	mode := GetMode()
	if mode.TextTrace {
		core.SetDebugWriter(func(s string) {
			traceUART.Write([]byte(s))
			traceUART.Write([]byte("\r\n"))
		})
		core.SetDebugEnabled(true)
		core.DebugPrintln("hatfw rp2040: text trace")
	}

	gpio := NewRPGPIODriver()
	timer := txen.NewSchedTimer()
	tx = txen.New(gpio, txen.Config{TxPin: txPin, TxEnPin: txEnPin, TxActiveLow: true}, timer)
	timer.Bind(tx)
	if err := tx.Init(); err != nil {
		panic("txen: " + err.Error())
	}

	guard, err := i2cs.NewGuard(&usCounter{}, i2cs.GuardConfig{TimerHz: core.TimerFreq(), BusKHz: busKHz})
	if err != nil {
		panic(err.Error())
	}

	for i := range memory {
		memory[i] = 0xFF
	}
	ee := eeprom.New(memory, eeprom.Config{})

	pins := &busPins{}
	shifter := usi.New(pins)
	engine := i2cs.New(shifter, guard)
	engine.SetTracer(&trace)
	mustRegister(engine, eepromAddr, ee)
	mustRegister(engine, confAddr, conf.New(conf.Targets{Osc: &osc, EEPROM: ee, TxEn: tx}))
	mustRegister(engine, debugAddr, dbgslave.New())

	state := core.DisableInterrupts()
	engine.Init()
	shifter.Attach(engine.OnStart, engine.OnOverflow)
	if err := attachBus(shifter); err != nil {
		panic(err.Error())
	}
	core.RestoreInterrupts(state)

	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 500})
	machine.Watchdog.Start()

	for {
		UpdateSystemTime()
		core.ProcessTimers()
		tx.Poll()
		if mode.TextTrace {
			core.DumpTraceRing(&trace)
		} else {
			flushTrace()
		}
		machine.Watchdog.Update()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// flushTrace sends pending bus events as frames on the trace UART. Drops
// are reported in-band as a TraceLost frame.
func flushTrace() {
	frameBuf, _ = core.EncodeTraceFrames(&trace, &frames, frameBuf[:0])
	if len(frameBuf) > 0 {
		traceUART.Write(frameBuf)
	}
}

func mustRegister(e *i2cs.Engine, addr i2cs.Addr, dev i2cs.Slave) {
	if !e.Register(addr, dev) {
		panic("i2cs: registry full")
	}
}
