package breaker

import (
	"sync"
	"testing"
	"time"
)

// fakeClock provides a controllable time source for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (fc *fakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

func (fc *fakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	fc.now = fc.now.Add(d)
	fc.mu.Unlock()
}

func newTestBreaker() (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	b := New(Config{
		FailureThreshold: 2,
		StaleThreshold:   5 * time.Minute,
		CoolOff:          time.Minute,
	})
	b.nowFunc = clock.Now
	return b, clock
}

func TestBreaker_NoDataYet(t *testing.T) {
	b, _ := newTestBreaker()
	if b.Allow() {
		t.Fatal("expected Allow=false before any successful poll")
	}
	b.RecordSuccess()
	if !b.Allow() {
		t.Fatal("expected Allow=true after first success")
	}
}

func TestBreaker_TripAndCoolOff(t *testing.T) {
	b, clock := newTestBreaker()
	b.RecordSuccess()

	if b.RecordFailure() {
		t.Fatal("first failure should not trip with threshold 2")
	}
	if !b.Allow() {
		t.Fatal("expected Allow=true below the failure threshold")
	}
	if !b.RecordFailure() {
		t.Fatal("second failure should trip")
	}
	if b.RecordFailure() {
		t.Fatal("an already tripped breaker should not report tripping again")
	}
	if b.Allow() {
		t.Fatal("expected Allow=false while tripped")
	}
	if b.Failures() != 3 {
		t.Errorf("Failures = %d, want 3", b.Failures())
	}

	clock.Advance(10 * time.Second)
	b.RecordSuccess()
	if b.Allow() {
		t.Fatal("expected Allow=false during cool-off")
	}
	if b.Failures() != 0 {
		t.Errorf("Failures = %d after success, want 0", b.Failures())
	}

	clock.Advance(61 * time.Second)
	b.RecordSuccess()
	if !b.Allow() {
		t.Fatal("expected Allow=true after cool-off elapsed")
	}
}

func TestBreaker_Stale(t *testing.T) {
	b, clock := newTestBreaker()
	b.RecordSuccess()

	clock.Advance(6 * time.Minute)
	if b.Allow() {
		t.Fatal("expected Allow=false when the last success is stale")
	}
	b.RecordSuccess()
	if !b.Allow() {
		t.Fatal("expected Allow=true after a fresh success")
	}
}

func TestBreaker_ManualHalt(t *testing.T) {
	b, _ := newTestBreaker()
	b.RecordSuccess()

	b.ManualHalt()
	if b.Allow() {
		t.Fatal("expected Allow=false after ManualHalt")
	}
	b.Resume()
	if !b.Allow() {
		t.Fatal("expected Allow=true after Resume")
	}
}

func TestNew_ThresholdFloor(t *testing.T) {
	b := New(Config{})
	b.RecordSuccess()
	if !b.RecordFailure() {
		t.Fatal("zero threshold should trip on the first failure")
	}
}
