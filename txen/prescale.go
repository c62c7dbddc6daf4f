package txen

// RunTimeCompUS is subtracted from the timeout for the code path between
// the TX edge and the timer start.
const RunTimeCompUS = 6

// Dividers are the Timer1 clock prescalers, smallest first.
var Dividers = [...]uint16{
	1, 2, 4, 8, 16, 32, 64, 128, 256,
	512, 1024, 2048, 4096, 8192, 16384,
}

// CompensatedUS returns the timer run time for a timeout.
func CompensatedUS(timeoutUS uint16) uint16 {
	if timeoutUS > RunTimeCompUS {
		return timeoutUS - RunTimeCompUS
	}
	return 0
}

// Prescale picks the smallest prescaler whose compare value for timeoutUS
// fits in 8 bits. It returns the index into Dividers and the compare value.
// When nothing fits, the largest divider is returned with a truncated
// compare value.
func Prescale(cpuHz uint32, timeoutUS uint16) (idx uint8, ocr uint8) {
	us := uint32(CompensatedUS(timeoutUS))

	mul, div := cpuHz, uint32(1000000)
	for mul%10 == 0 && div%10 == 0 {
		mul /= 10
		div /= 10
	}

	var v uint32
	for i, d := range Dividers {
		idx = uint8(i)
		v = divRoundUp(mul*us, div*uint32(d))
		if v <= 0xFF {
			break
		}
	}
	return idx, uint8(v)
}

func divRoundUp(n, d uint32) uint32 {
	return (n + d - 1) / d
}
