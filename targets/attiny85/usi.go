//go:build attiny85

package main

import "device/avr"

// Bus pins on port B.
const (
	sdaBit = 1 << 0 // PB0
	sclBit = 1 << 2 // PB2
)

// USI implements i2cs.Shifter on the USI peripheral in two-wire mode.
type USI struct{}

// Init releases both lines and enables the start condition interrupt.
func (USI) Init() {
	avr.PORTB.SetBits(sdaBit | sclBit)
	avr.DDRB.SetBits(sclBit)
	avr.DDRB.ClearBits(sdaBit)
	USI{}.SetControl(false, false)
	avr.USISR.Set(avr.USISR_USISIF | avr.USISR_USIOIF | avr.USISR_USIPF | avr.USISR_USIDC)
}

func (USI) SetControl(overflowIRQ, holdSCL bool) {
	v := uint8(avr.USICR_USISIE | avr.USICR_USIWM1 | avr.USICR_USICS1)
	if overflowIRQ {
		v |= avr.USICR_USIOIE
	}
	if holdSCL {
		v |= avr.USICR_USIWM0
	}
	avr.USICR.Set(v)
}

// SetCounter writes the flags and the counter in one store. Flags clear
// on a written one; the start flag is left alone unless asked.
func (USI) SetCounter(bits uint8, clearStart bool) {
	v := uint8(avr.USISR_USIOIF|avr.USISR_USIPF|avr.USISR_USIDC) | (16-2*bits)&0x0F
	if clearStart {
		v |= avr.USISR_USISIF
	}
	avr.USISR.Set(v)
}

func (USI) Data() byte         { return avr.USIDR.Get() }
func (USI) SetData(b byte)     { avr.USIDR.Set(b) }
func (USI) DriveSDA()          { avr.DDRB.SetBits(sdaBit) }
func (USI) ReleaseSDA()        { avr.DDRB.ClearBits(sdaBit) }
func (USI) StopDetected() bool { return avr.USISR.HasBits(avr.USISR_USIPF) }
func (USI) SCLHigh() bool      { return avr.PINB.HasBits(sclBit) }
func (USI) SDAHigh() bool      { return avr.PINB.HasBits(sdaBit) }
