package amm

import "time"

// Clock is the wall-clock source. Hosts read it once per operation.
type Clock interface {
	Now() int64
}

// SystemClock reads unix seconds from the OS.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// FixedClock always returns the same instant. Tests advance it by assignment.
type FixedClock struct {
	TS int64
}

func (c *FixedClock) Now() int64 { return c.TS }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.TS += int64(d / time.Second)
}
