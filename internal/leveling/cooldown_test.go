package leveling

import (
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestCooldownWindow(t *testing.T) {
	tracker := NewCooldownTracker(CooldownConfig{Window: 60 * time.Second})
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tracker.WithClock(clock)

	if !tracker.Allow("u1", "g1", clock.Now()) {
		t.Fatalf("first message should be allowed")
	}
	clock.Advance(10 * time.Second)
	if !tracker.IsOnCooldown("u1", "g1") {
		t.Fatalf("expected cooldown after 10s")
	}
	if tracker.Allow("u1", "g1", clock.Now()) {
		t.Fatalf("second message within window should be rejected")
	}
	if tracker.IsOnCooldown("u1", "g2") {
		t.Fatalf("cooldown must be per guild")
	}
	clock.Advance(50 * time.Second)
	if tracker.IsOnCooldown("u1", "g1") {
		t.Fatalf("cooldown should expire after the window")
	}
}

func TestCooldownRecordAndForget(t *testing.T) {
	tracker := NewCooldownTracker(CooldownConfig{Window: time.Minute})
	clock := &fakeClock{now: time.Unix(0, 0)}
	tracker.WithClock(clock)

	tracker.RecordAward("u1", "g1", clock.Now())
	if !tracker.IsOnCooldown("u1", "g1") {
		t.Fatalf("expected cooldown after record")
	}
	tracker.Forget("u1", "g1")
	if tracker.IsOnCooldown("u1", "g1") {
		t.Fatalf("expected no cooldown after forget")
	}
}

func TestCooldownSweepByInterval(t *testing.T) {
	tracker := NewCooldownTracker(CooldownConfig{Window: time.Minute, SweepInterval: 5 * time.Minute})
	clock := &fakeClock{now: time.Unix(0, 0)}
	tracker.WithClock(clock)

	tracker.RecordAward("u1", "g1", clock.Now())
	tracker.RecordAward("u2", "g1", clock.Now())
	clock.Advance(5 * time.Minute)
	tracker.RecordAward("u3", "g1", clock.Now())
	if got := tracker.Len(); got != 1 {
		t.Fatalf("expected stale entries swept, got %d entries", got)
	}
}

func TestCooldownSweepBySize(t *testing.T) {
	tracker := NewCooldownTracker(CooldownConfig{Window: time.Minute, MaxEntries: 2})
	clock := &fakeClock{now: time.Unix(0, 0)}
	tracker.WithClock(clock)

	tracker.RecordAward("u1", "g1", clock.Now())
	clock.Advance(2 * time.Minute)
	tracker.RecordAward("u2", "g1", clock.Now())
	tracker.RecordAward("u3", "g1", clock.Now())
	if got := tracker.Len(); got != 2 {
		t.Fatalf("expected expired entry evicted, got %d entries", got)
	}

	clock.Advance(time.Second)
	tracker.RecordAward("u4", "g1", clock.Now())
	if got := tracker.Len(); got != 2 {
		t.Fatalf("expected cap enforced with live entries, got %d", got)
	}
	if !tracker.IsOnCooldown("u4", "g1") {
		t.Fatalf("newest entry must survive the cap")
	}
}

func TestCooldownZeroWindow(t *testing.T) {
	tracker := NewCooldownTracker(CooldownConfig{})
	now := time.Unix(0, 0)
	if !tracker.Allow("u1", "g1", now) || !tracker.Allow("u1", "g1", now) {
		t.Fatalf("zero window must never rate limit")
	}
}
