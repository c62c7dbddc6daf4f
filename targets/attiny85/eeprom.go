//go:build attiny85

package main

import "device/avr"

const eepromSize = 512

// EEPROM is the on-chip data EEPROM as an eeprom.Memory. Writes block only
// until the previous write has finished.
type EEPROM struct{}

func (EEPROM) Len() int { return eepromSize }

func eepromWait() {
	for avr.EECR.HasBits(avr.EECR_EEPE) {
	}
}

func (EEPROM) Load(addr uint16) byte {
	eepromWait()
	avr.EEARH.Set(uint8(addr >> 8))
	avr.EEARL.Set(uint8(addr))
	avr.EECR.SetBits(avr.EECR_EERE)
	return avr.EEDR.Get()
}

// Store runs with interrupts masked: EEPE must follow EEMPE within four
// cycles. Bytes that already hold b are not rewritten.
func (e EEPROM) Store(addr uint16, b byte) {
	if e.Load(addr) == b {
		return
	}
	avr.EECR.Set(0) // Erase and write
	avr.EEDR.Set(b)
	avr.EECR.SetBits(avr.EECR_EEMPE)
	avr.EECR.SetBits(avr.EECR_EEPE)
}
