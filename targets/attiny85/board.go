//go:build attiny85

package main

import (
	"device/avr"
	"machine"

	"hatfw/core"
)

// RS485 transceiver pins.
const (
	txPin   = core.GPIOPin(machine.PB3)
	txEnPin = core.GPIOPin(machine.PB4)
)

// GPIODriver implements core.GPIODriver on port B.
type GPIODriver struct{}

func NewGPIODriver() GPIODriver { return GPIODriver{} }

func (GPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (d GPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

func (d GPIODriver) ConfigureInput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInput)
}

func (d GPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

func (GPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machine.Pin(pin).Set(value)
	return nil
}

func (GPIODriver) ReadPin(pin core.GPIOPin) bool {
	return machine.Pin(pin).Get()
}

// Oscillator exposes the internal RC oscillator calibration.
type Oscillator struct{}

func (Oscillator) Calibration() uint8     { return avr.OSCCAL.Get() }
func (Oscillator) SetCalibration(v uint8) { avr.OSCCAL.Set(v) }

// The watchdog resets the chip when the main loop stops running, such as
// when a bus master stalls in the middle of a start condition.
func watchdogInit() {
	watchdogReset()
	avr.MCUSR.ClearBits(avr.MCUSR_WDRF)
	avr.WDTCR.Set(avr.WDTCR_WDCE | avr.WDTCR_WDE)
	avr.WDTCR.Set(avr.WDTCR_WDE | avr.WDTCR_WDP2) // 250 ms
}

func watchdogReset() {
	avr.Asm("wdr")
}
