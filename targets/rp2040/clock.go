//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"hatfw/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word, no latching
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// InitClock selects the 1 MHz hardware timer as the system time base.
func InitClock() {
	core.SetTimerFreq(1000000)
	UpdateSystemTime()
}

// GetHardwareTime reads the low 32 bits of the microsecond counter.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// UpdateSystemTime updates the core timer with hardware time.
// Called from the main loop and from bus interrupts before tracing.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}

// usCounter is the guard counter: microseconds since the last Reset.
type usCounter struct {
	start uint32
}

func (c *usCounter) Reset(preload uint8) {
	c.start = GetHardwareTime() - uint32(preload)
}

func (c *usCounter) Ticks() uint8 {
	return uint8(GetHardwareTime() - c.start)
}
