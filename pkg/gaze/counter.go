package gaze

// Level is the outcome of counting an out-of-bounds sample.
type Level int

const (
	Quiet Level = iota // below the soft band
	Soft               // inside the soft band, no reset
	Fire               // crossed the hard threshold, counter reset
)

// Counter is a hysteresis counter: consecutive out samples accumulate, any
// in sample clears it, and crossing the hard threshold fires once and resets.
type Counter struct {
	count int
	soft  int
	hard  int
}

// NewCounter creates a counter with soft band (soft, hard] and firing above hard.
func NewCounter(soft, hard int) Counter {
	return Counter{soft: soft, hard: hard}
}

// Out records an out-of-bounds sample.
func (c *Counter) Out() Level {
	c.count++
	if c.count > c.hard {
		c.count = 0
		return Fire
	}
	if c.count > c.soft {
		return Soft
	}
	return Quiet
}

// In records an in-bounds sample.
func (c *Counter) In() {
	c.count = 0
}

// Count returns the accumulated out samples.
func (c *Counter) Count() int {
	return c.count
}
