package sim

// Counter is the guard tick counter. With no real time passing, every poll
// advances it by one tick, so a guard wait lasts at most one SCL period of
// polls.
type Counter struct {
	ticks uint8
	polls int
}

// Reset implements i2cs.Counter.
func (c *Counter) Reset(preload uint8) {
	c.ticks = preload
}

// Ticks implements i2cs.Counter.
func (c *Counter) Ticks() uint8 {
	t := c.ticks
	c.ticks++
	c.polls++
	return t
}

// Polls returns the total number of polls.
func (c *Counter) Polls() int {
	return c.polls
}
