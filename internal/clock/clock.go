package clock

import (
	"errors"
	"fmt"
	"time"

	"chesscore/internal/core"
)

var ErrNegativeElapsed = errors.New("negative elapsed time")

// Clock tracks the remaining time of both sides. It is driven externally:
// the owner calls Advance for the side to move, there is no internal ticker.
// Clock is not safe for concurrent use.
type Clock struct {
	initial   time.Duration
	increment time.Duration
	remaining [2]time.Duration
	now       func() time.Time
	last      time.Time
	suspended bool

	expired    core.Color
	hasExpired bool
}

// New creates a clock giving each side initial time. A zero initial means
// the game is untimed. now defaults to time.Now.
func New(initial, increment time.Duration, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{
		initial:   initial,
		increment: increment,
		now:       now,
	}
	c.Reset()
	return c
}

// Reset restores both sides to the initial time and clears expiry.
func (c *Clock) Reset() {
	c.remaining = [2]time.Duration{c.initial, c.initial}
	c.hasExpired = false
	c.expired = 0
	c.last = c.now()
}

func (c *Clock) Untimed() bool {
	return c.initial <= 0
}

// Tick subtracts elapsed from side. The first side to reach zero is flagged
// as expired.
func (c *Clock) Tick(elapsed time.Duration, side core.Color) error {
	if elapsed < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeElapsed, elapsed)
	}
	if c.Untimed() {
		return nil
	}
	i := side.Index()
	c.remaining[i] -= elapsed
	if c.remaining[i] <= 0 && !c.hasExpired {
		c.expired = side
		c.hasExpired = true
	}
	return nil
}

// Advance charges the wall time since the last update to side. While the
// clock is suspended the time is discarded instead.
func (c *Clock) Advance(side core.Color) bool {
	now := c.now()
	elapsed := now.Sub(c.last)
	c.last = now
	if c.suspended || elapsed <= 0 {
		return c.hasExpired
	}
	_ = c.Tick(elapsed, side)
	return c.hasExpired
}

// Suspend stops charging time until Resume.
func (c *Clock) Suspend() {
	c.suspended = true
}

// Resume restarts charging from now.
func (c *Clock) Resume() {
	c.suspended = false
	c.Rebase()
}

func (c *Clock) Suspended() bool {
	return c.suspended
}

// Rebase drops any time accumulated since the last update.
func (c *Clock) Rebase() {
	c.last = c.now()
}

// AddIncrement credits the per-move increment to side.
func (c *Clock) AddIncrement(side core.Color) {
	if c.increment <= 0 || c.Untimed() {
		return
	}
	c.remaining[side.Index()] += c.increment
}

// Remaining never reports below zero.
func (c *Clock) Remaining(side core.Color) time.Duration {
	r := c.remaining[side.Index()]
	if r < 0 {
		return 0
	}
	return r
}

func (c *Clock) Seconds(side core.Color) float64 {
	return c.Remaining(side).Seconds()
}

// Expired returns the side whose time ran out first.
func (c *Clock) Expired() (core.Color, bool) {
	return c.expired, c.hasExpired
}

// Display formats the remaining time of side as mm:ss.
func (c *Clock) Display(side core.Color) string {
	if c.Untimed() {
		return "--:--"
	}
	r := c.Remaining(side)
	return fmt.Sprintf("%02d:%02d", int(r.Minutes()), int(r.Seconds())%60)
}
