//go:build attiny85

package main

import (
	"device/avr"

	"hatfw/txen"
)

// Timer0 is the free-running guard counter, clocked at cpuHz/8.
type Timer0 struct{}

func timer0Init() {
	avr.TCCR0A.Set(0)
	avr.TCCR0B.Set(avr.TCCR0B_CS01)
}

func (Timer0) Reset(preload uint8) { avr.TCNT0.Set(preload) }
func (Timer0) Ticks() uint8        { return avr.TCNT0.Get() }

// Timer1 implements txen.Timer in CTC mode. The prescaler select value is
// the index into txen.Dividers plus one.
type Timer1 struct {
	cpuHz uint32
	cs    uint8
	ocr   uint8
}

func (t *Timer1) Configure(us uint16) {
	idx, ocr := txen.Prescale(t.cpuHz, us)
	t.cs, t.ocr = idx+1, ocr
}

func (t *Timer1) Start() {
	avr.TCCR1.Set(0)
	avr.TCNT1.Set(0)
	avr.OCR1A.Set(t.ocr)
	avr.OCR1C.Set(t.ocr)
	avr.GTCCR.SetBits(avr.GTCCR_PSR1)
	avr.TIFR.Set(avr.TIFR_OCF1A)
	avr.TIMSK.SetBits(avr.TIMSK_OCIE1A)
	avr.TCCR1.Set(avr.TCCR1_CTC1 | t.cs)
}

func (t *Timer1) Stop() {
	avr.TCCR1.Set(0)
	avr.TIMSK.ClearBits(avr.TIMSK_OCIE1A)
}
