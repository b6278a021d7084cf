package timeutil

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func expectTick(t *testing.T, tk Ticker, want time.Time) {
	t.Helper()
	select {
	case got := <-tk.C():
		if !got.Equal(want) {
			t.Errorf("tick at %v, want %v", got, want)
		}
	default:
		t.Errorf("no tick, want one at %v", want)
	}
}

func expectNoTick(t *testing.T, tk Ticker) {
	t.Helper()
	select {
	case got := <-tk.C():
		t.Errorf("unexpected tick at %v", got)
	default:
	}
}

func TestRealClock(t *testing.T) {
	before := time.Now()
	now := RealClock{}.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v, before %v", now, before)
	}

	ticker := RealClock{}.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("real ticker did not fire")
	}
}

func TestMockClock_AdvanceAndSet(t *testing.T) {
	c := NewMockClock(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", c.Now(), epoch)
	}

	c.Advance(250 * time.Millisecond)
	if got := c.Now().Sub(epoch); got != 250*time.Millisecond {
		t.Errorf("after Advance: %v, want 250ms", got)
	}

	// Backwards jumps are allowed; callers clamp negative steps.
	c.Set(epoch.Add(-time.Second))
	if got := c.Now().Sub(epoch); got != -time.Second {
		t.Errorf("after Set: %v, want -1s", got)
	}
}

func TestMockClock_TickerFiresWhenDue(t *testing.T) {
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Second / 60)

	expectNoTick(t, tk)
	c.Advance(time.Second / 120)
	expectNoTick(t, tk)
	c.Advance(time.Second / 120)
	expectTick(t, tk, epoch.Add(time.Second/60))

	// The next tick is one interval after the last delivered one.
	c.Advance(time.Second / 120)
	expectNoTick(t, tk)
	c.Advance(time.Second / 120)
	expectTick(t, tk, epoch.Add(2*time.Second/60))
}

func TestMockClock_UndrainedTickIsDropped(t *testing.T) {
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(time.Second)
	c.Advance(time.Second)
	expectTick(t, tk, epoch.Add(time.Second))
	expectNoTick(t, tk)
}

func TestMockClock_SetFollowsReplayTimestamps(t *testing.T) {
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Second)

	c.Set(epoch.Add(-time.Hour))
	expectNoTick(t, tk)
	c.Set(epoch.Add(3 * time.Second))
	expectTick(t, tk, epoch.Add(3*time.Second))
}

func TestMockClock_StoppedTickerIsSilent(t *testing.T) {
	c := NewMockClock(epoch)
	stopped := c.NewTicker(time.Second)
	live := c.NewTicker(time.Second)
	stopped.Stop()
	stopped.Stop()

	c.Advance(5 * time.Second)
	expectNoTick(t, stopped)
	expectTick(t, live, epoch.Add(5*time.Second))
}

func TestClockInterface(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = NewMockClock(epoch)
}
