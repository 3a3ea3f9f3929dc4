package clock

import (
	"testing"
	"time"

	"github.com/ashgrove/reelengine/internal/media"
)

func TestNewIsPausedAtZero(t *testing.T) {
	t.Parallel()

	c := New()
	if c.Running() {
		t.Fatal("expected new clock to be paused")
	}
	if got := c.Position(); got != 0 {
		t.Errorf("Position() = %v, want 0", got)
	}
}

func TestPlayAdvancesPosition(t *testing.T) {
	t.Parallel()

	c := New()
	c.Play()
	time.Sleep(20 * time.Millisecond)
	got := c.Position()
	if got <= 0 {
		t.Errorf("Position() = %v, want > 0 after Play", got)
	}
}

func TestPauseFreezesPosition(t *testing.T) {
	t.Parallel()

	c := New()
	c.Play()
	time.Sleep(15 * time.Millisecond)
	c.Pause()
	frozen := c.Position()
	time.Sleep(15 * time.Millisecond)
	if got := c.Position(); got != frozen {
		t.Errorf("Position() after pause = %v, want frozen %v", got, frozen)
	}
}

func TestUpdateJumpsPosition(t *testing.T) {
	t.Parallel()

	c := New()
	c.Update(media.FromDuration(5 * time.Second))
	if got := c.Position(); got != media.FromDuration(5*time.Second) {
		t.Errorf("Position() = %v, want 5s", got)
	}
}

func TestSetSpeedRejectsNonPositive(t *testing.T) {
	t.Parallel()

	c := New()
	c.SetSpeed(2.0)
	if got := c.Speed(); got != 2.0 {
		t.Fatalf("Speed() = %v, want 2.0", got)
	}
	c.SetSpeed(0)
	c.SetSpeed(-1)
	if got := c.Speed(); got != 2.0 {
		t.Errorf("Speed() = %v, want unchanged 2.0 after invalid SetSpeed", got)
	}
}

func TestSetSpeedScalesSubsequentElapsed(t *testing.T) {
	t.Parallel()

	c := New()
	c.Play()
	c.SetSpeed(4.0)
	time.Sleep(20 * time.Millisecond)
	got := c.Position()
	// at 4x speed, ~20ms of wall time should advance position by ~80ms;
	// allow generous slack for scheduling jitter.
	if got < media.FromDuration(40*time.Millisecond) {
		t.Errorf("Position() = %v, want at least ~40ms after 20ms at 4x speed", got)
	}
}

func TestResetReturnsToZeroAndPaused(t *testing.T) {
	t.Parallel()

	c := New()
	c.Play()
	time.Sleep(10 * time.Millisecond)
	c.Reset()
	if c.Running() {
		t.Error("expected Reset to pause the clock")
	}
	if got := c.Position(); got != 0 {
		t.Errorf("Position() after Reset = %v, want 0", got)
	}
}
