package cache

import "time"

// SetClock replaces the time source of c.
func SetClock(c *Memory, now func() time.Time) { c.now = now }
