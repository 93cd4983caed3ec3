package core

import "time"

// Clock measures one interval at a time, such as a fence wait or a frame.
type Clock struct {
	start   time.Time
	elapsed time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Update refreshes Elapsed. Has no effect on a stopped clock.
func (c *Clock) Update() {
	if c.Running() {
		c.elapsed = time.Since(c.start)
	}
}

// Start resets the elapsed time and starts measuring.
func (c *Clock) Start() {
	c.start = time.Now()
	c.elapsed = 0
}

// Stop keeps the last measured elapsed time.
func (c *Clock) Stop() {
	c.start = time.Time{}
}

func (c *Clock) Running() bool {
	return !c.start.IsZero()
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}
