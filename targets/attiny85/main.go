//go:build attiny85

// Firmware for the ATtiny85 HAT controller: bus slave on the hardware USI
// with the EEPROM emulation and configuration devices, plus the RS485
// transmit-enable controller.
package main

import (
	"device/avr"
	"runtime/interrupt"

	"hatfw/devices/conf"
	"hatfw/devices/eeprom"
	"hatfw/i2cs"
	"hatfw/txen"
)

const (
	cpuHz   = 8000000
	timerHz = cpuHz / 8 // Timer0 prescaler
	busKHz  = 100

	eepromAddr = 0x50
	confAddr   = 0x2F
)

// The guard needs an integral SCL period of at least four Timer0 ticks.
const guardPeriod = timerHz / (busKHz * 1000)

const _ uint8 = guardPeriod - 4

var _ = [1]struct{}{}[timerHz%(busKHz*1000)]

var (
	engine *i2cs.Engine
	tx     *txen.TxEn
	timer1 = &Timer1{cpuHz: cpuHz}
)

func main() {
	watchdogInit()

	guard, err := i2cs.NewGuard(&Timer0{}, i2cs.GuardConfig{TimerHz: timerHz, BusKHz: busKHz})
	if err != nil {
		panic("i2cs guard")
	}
	timer0Init()

	gpio := NewGPIODriver()
	tx = txen.New(gpio, txen.Config{
		TxPin:       txPin,
		TxEnPin:     txEnPin,
		TxActiveLow: true,
	}, timer1)
	if err := tx.Init(); err != nil {
		panic("txen")
	}

	usi := &USI{}
	engine = i2cs.New(usi, guard)

	ee := eeprom.New(EEPROM{}, eeprom.Config{Size: eepromSize, PageSize: 16})
	mustRegister(engine, eepromAddr, ee)
	mustRegister(engine, confAddr, conf.New(conf.Targets{
		Osc:    Oscillator{},
		EEPROM: ee,
		TxEn:   tx,
	}))

	state := interrupt.Disable()
	usi.Init()
	engine.Init()
	interrupt.New(avr.IRQ_USI_START, func(interrupt.Interrupt) {
		engine.OnStart()
	})
	interrupt.New(avr.IRQ_USI_OVF, func(interrupt.Interrupt) {
		engine.OnOverflow()
	})
	interrupt.New(avr.IRQ_TIMER1_COMPA, func(interrupt.Interrupt) {
		timer1.Stop()
		tx.Expire()
	})
	interrupt.Restore(state)

	for {
		tx.Poll()
		watchdogReset()
	}
}

func mustRegister(e *i2cs.Engine, addr i2cs.Addr, dev i2cs.Slave) {
	if !e.Register(addr, dev) {
		panic("i2cs: registry full")
	}
}
