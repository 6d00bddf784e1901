package clock

import (
	"errors"
	"testing"
	"time"

	"chesscore/internal/core"
)

// fakeTime is a manually advanced time source.
type fakeTime struct {
	t time.Time
}

func (f *fakeTime) now() time.Time          { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFake() *fakeTime {
	return &fakeTime{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTick(t *testing.T) {
	c := New(300*time.Second, 0, newFake().now)

	if err := c.Tick(1500*time.Millisecond, core.ColorWhite); err != nil {
		t.Fatal(err)
	}
	if got := c.Seconds(core.ColorWhite); got != 298.5 {
		t.Errorf("white = %v, want 298.5", got)
	}
	if got := c.Seconds(core.ColorBlack); got != 300 {
		t.Errorf("black = %v, want 300", got)
	}

	err := c.Tick(-time.Second, core.ColorBlack)
	if !errors.Is(err, ErrNegativeElapsed) {
		t.Errorf("Tick(negative) error = %v, want ErrNegativeElapsed", err)
	}
	if got := c.Seconds(core.ColorBlack); got != 300 {
		t.Errorf("black after rejected tick = %v, want 300", got)
	}
}

func TestExpiryIsFlaggedNotClamped(t *testing.T) {
	c := New(2*time.Second, 0, newFake().now)

	if _, ok := c.Expired(); ok {
		t.Fatal("fresh clock reports expiry")
	}
	if err := c.Tick(3*time.Second, core.ColorBlack); err != nil {
		t.Fatal(err)
	}
	side, ok := c.Expired()
	if !ok || side != core.ColorBlack {
		t.Errorf("Expired() = %s, %v; want b, true", side, ok)
	}
	if got := c.Remaining(core.ColorBlack); got != 0 {
		t.Errorf("Remaining = %v, want 0", got)
	}

	// The first side to run out stays flagged
	if err := c.Tick(5*time.Second, core.ColorWhite); err != nil {
		t.Fatal(err)
	}
	if side, _ := c.Expired(); side != core.ColorBlack {
		t.Errorf("Expired() side = %s, want b", side)
	}
}

func TestAdvanceAndSuspend(t *testing.T) {
	ft := newFake()
	c := New(60*time.Second, 0, ft.now)

	ft.advance(10 * time.Second)
	c.Advance(core.ColorWhite)
	if got := c.Seconds(core.ColorWhite); got != 50 {
		t.Errorf("white after advance = %v, want 50", got)
	}

	c.Suspend()
	ft.advance(5 * time.Second)
	c.Advance(core.ColorBlack)
	if got := c.Seconds(core.ColorBlack); got != 60 {
		t.Errorf("black charged while suspended: %v", got)
	}

	ft.advance(5 * time.Second)
	c.Resume()
	ft.advance(2 * time.Second)
	c.Advance(core.ColorBlack)
	if got := c.Seconds(core.ColorBlack); got != 58 {
		t.Errorf("black after resume = %v, want 58", got)
	}

	ft.advance(7 * time.Second)
	c.Rebase()
	c.Advance(core.ColorBlack)
	if got := c.Seconds(core.ColorBlack); got != 58 {
		t.Errorf("rebase did not discard elapsed time: %v", got)
	}
}

func TestAdvanceReportsExpiry(t *testing.T) {
	ft := newFake()
	c := New(time.Second, 0, ft.now)
	ft.advance(1500 * time.Millisecond)
	if !c.Advance(core.ColorWhite) {
		t.Error("Advance() did not report expiry")
	}
}

func TestIncrement(t *testing.T) {
	c := New(60*time.Second, 2*time.Second, newFake().now)
	c.AddIncrement(core.ColorBlack)
	if got := c.Seconds(core.ColorBlack); got != 62 {
		t.Errorf("black = %v, want 62", got)
	}
}

func TestUntimed(t *testing.T) {
	ft := newFake()
	c := New(0, time.Second, ft.now)
	ft.advance(time.Hour)
	if c.Advance(core.ColorWhite) {
		t.Error("untimed clock expired")
	}
	if got := c.Display(core.ColorWhite); got != "--:--" {
		t.Errorf("Display = %q", got)
	}
}

func TestDisplay(t *testing.T) {
	c := New(300*time.Second, 0, newFake().now)
	if got := c.Display(core.ColorWhite); got != "05:00" {
		t.Errorf("Display = %q, want 05:00", got)
	}
	_ = c.Tick(61500*time.Millisecond, core.ColorWhite)
	if got := c.Display(core.ColorWhite); got != "03:58" {
		t.Errorf("Display = %q, want 03:58", got)
	}
}
