package core

// Timer is a scheduled callback. The handler returns SF_DONE or
// SF_RESCHEDULE; a rescheduled timer is re-queued at its (updated)
// WakeTime.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	next     *Timer
	queued   bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var timerList *Timer

// before reports whether a is earlier than b, allowing for clock wrap.
func before(a, b uint32) bool {
	return int32(a-b) < 0
}

// ScheduleTimer queues t. A timer that is already queued is moved.
func ScheduleTimer(t *Timer) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	if t.queued {
		removeTimer(t)
	}
	insertTimer(t)
}

// CancelTimer removes t from the queue. It reports whether t was queued.
func CancelTimer(t *Timer) bool {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	if !t.queued {
		return false
	}
	removeTimer(t)
	return true
}

// TimerPending reports whether t is queued.
func TimerPending(t *Timer) bool {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)
	return t.queued
}

func insertTimer(t *Timer) {
	t.queued = true
	if timerList == nil || before(t.WakeTime, timerList.WakeTime) {
		t.next = timerList
		timerList = t
		return
	}

	cur := timerList
	for cur.next != nil && !before(t.WakeTime, cur.next.WakeTime) {
		cur = cur.next
	}
	t.next = cur.next
	cur.next = t
}

func removeTimer(t *Timer) {
	t.queued = false
	if timerList == t {
		timerList = t.next
		t.next = nil
		return
	}
	for cur := timerList; cur != nil; cur = cur.next {
		if cur.next == t {
			cur.next = t.next
			t.next = nil
			return
		}
	}
}

// TimerDispatch runs all timers due at now, in wake order.
func TimerDispatch(now uint32) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	for timerList != nil && !before(now, timerList.WakeTime) {
		t := timerList
		timerList = t.next
		t.next = nil
		t.queued = false

		if t.Handler(t) == SF_RESCHEDULE {
			insertTimer(t)
		}
	}
}

// ResetTimers drops every queued timer.
func ResetTimers() {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	for t := timerList; t != nil; {
		next := t.next
		t.next = nil
		t.queued = false
		t = next
	}
	timerList = nil
}
