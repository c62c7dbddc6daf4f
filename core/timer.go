package core

var (
	timerFreq   uint32 = 1000000 // Ticks per second of GetTime
	systemTicks uint32
)

// SetTimerFreq sets the tick rate targets feed into SetTime.
func SetTimerFreq(hz uint32) {
	timerFreq = hz
}

// TimerFreq returns the tick rate of GetTime.
func TimerFreq() uint32 {
	return timerFreq
}

// GetTime returns the current system time in timer ticks.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time. Targets call it from their tick
// source before ProcessTimers.
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// AdvanceTime moves the system time forward by d ticks.
func AdvanceTime(d uint32) {
	setSystemTicks(getSystemTicks() + d)
}

// TimerFromUS converts microseconds to timer ticks.
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * uint64(timerFreq) / 1000000)
}

// TimerToUS converts timer ticks to microseconds.
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / uint64(timerFreq))
}

// ProcessTimers runs every timer that is due at the current time.
func ProcessTimers() {
	TimerDispatch(GetTime())
}
