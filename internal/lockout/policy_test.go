package lockout

import (
	"testing"
	"time"

	"asset-console/backend/internal/account/domain"
)

func TestEvaluate_Unlocked(t *testing.T) {
	p := NewPolicy(5, 15*time.Minute)
	now := time.Now().UTC()

	d := p.Evaluate(domain.LockoutState{}, now)
	if d.Locked {
		t.Error("empty state should not be locked")
	}
	if d.RemainingSeconds() != 0 {
		t.Errorf("RemainingSeconds = %d, want 0", d.RemainingSeconds())
	}
}

func TestEvaluate_Locked(t *testing.T) {
	p := NewPolicy(5, 15*time.Minute)
	now := time.Now().UTC()
	until := now.Add(90 * time.Second)

	d := p.Evaluate(domain.LockoutState{LockedUntil: &until}, now)
	if !d.Locked {
		t.Fatal("state with future locked_until should be locked")
	}
	if d.Remaining != 90*time.Second {
		t.Errorf("Remaining = %v, want 90s", d.Remaining)
	}
	if d.RemainingSeconds() != 90 {
		t.Errorf("RemainingSeconds = %d, want 90", d.RemainingSeconds())
	}
}

func TestEvaluate_LazyExpiry(t *testing.T) {
	p := NewPolicy(5, 15*time.Minute)
	now := time.Now().UTC()
	until := now.Add(-time.Second)

	d := p.Evaluate(domain.LockoutState{LockedUntil: &until, FailedCount: 0}, now)
	if d.Locked {
		t.Error("expired lock should evaluate as unlocked without a write")
	}
	// Exactly at the deadline counts as unlocked.
	d = p.Evaluate(domain.LockoutState{LockedUntil: &now}, now)
	if d.Locked {
		t.Error("lock expiring exactly now should be unlocked")
	}
}

func TestRemainingSeconds_RoundsUp(t *testing.T) {
	p := NewPolicy(5, 15*time.Minute)
	now := time.Now().UTC()
	until := now.Add(1500 * time.Millisecond)

	d := p.Evaluate(domain.LockoutState{LockedUntil: &until}, now)
	if d.RemainingSeconds() != 2 {
		t.Errorf("RemainingSeconds = %d, want 2 (rounded up)", d.RemainingSeconds())
	}
}

func TestNewPolicy_Defaults(t *testing.T) {
	p := NewPolicy(0, 0)
	if p.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %d, want %d", p.Threshold, DefaultThreshold)
	}
	if p.Window != DefaultWindow {
		t.Errorf("Window = %v, want %v", p.Window, DefaultWindow)
	}
}

func TestLockDeadline(t *testing.T) {
	p := NewPolicy(5, 30*time.Second)
	now := time.Now().UTC()
	if got := p.LockDeadline(now); !got.Equal(now.Add(30 * time.Second)) {
		t.Errorf("LockDeadline = %v, want now+30s", got)
	}
}
