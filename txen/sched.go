package txen

import "hatfw/core"

// SchedTimer implements Timer on the core scheduler.
type SchedTimer struct {
	timer core.Timer
	ticks uint32
	owner *TxEn
}

// NewSchedTimer returns a timer; call Bind before use.
func NewSchedTimer() *SchedTimer {
	s := &SchedTimer{}
	s.timer.Handler = s.fire
	return s
}

// Bind sets the controller to expire.
func (s *SchedTimer) Bind(t *TxEn) {
	s.owner = t
}

func (s *SchedTimer) fire(*core.Timer) uint8 {
	if s.owner != nil {
		s.owner.Expire()
	}
	return core.SF_DONE
}

// Configure implements Timer.
func (s *SchedTimer) Configure(us uint16) {
	s.ticks = core.TimerFromUS(uint32(CompensatedUS(us)))
}

// Start implements Timer.
func (s *SchedTimer) Start() {
	s.timer.WakeTime = core.GetTime() + s.ticks
	core.ScheduleTimer(&s.timer)
}

// Stop implements Timer.
func (s *SchedTimer) Stop() {
	core.CancelTimer(&s.timer)
}
