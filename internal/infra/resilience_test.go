package infra

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, probes int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(
		WithFailureThreshold(threshold),
		WithCoolDown(10*time.Second),
		WithProbeLimit(probes),
		WithBreakerClock(clock.Now),
	)
	return cb, clock
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker()
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %v", cb.State())
	}
	if cb.threshold != DefaultFailureThreshold {
		t.Errorf("expected threshold %d, got %d", DefaultFailureThreshold, cb.threshold)
	}
	if cb.coolDown != DefaultCoolDown {
		t.Errorf("expected cool-down %v, got %v", DefaultCoolDown, cb.coolDown)
	}
	if !cb.Allow() {
		t.Error("closed circuit should allow requests")
	}
}

func TestCircuitBreaker_IgnoresNonPositiveOptions(t *testing.T) {
	cb := NewCircuitBreaker(WithFailureThreshold(0), WithProbeLimit(-1))
	if cb.threshold != DefaultFailureThreshold || cb.probeLimit != DefaultProbeLimit {
		t.Errorf("non-positive options should keep defaults, got threshold=%d probes=%d", cb.threshold, cb.probeLimit)
	}
}

func TestCircuitBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		run       func(cb *CircuitBreaker, clock *fakeClock)
		wantState CircuitState
		wantAllow bool
	}{
		{
			name: "stays closed below threshold",
			run: func(cb *CircuitBreaker, _ *fakeClock) {
				cb.RecordFailure()
				cb.RecordFailure()
			},
			wantState: CircuitClosed,
			wantAllow: true,
		},
		{
			name: "opens at threshold",
			run: func(cb *CircuitBreaker, _ *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.RecordFailure()
				}
			},
			wantState: CircuitOpen,
			wantAllow: false,
		},
		{
			name: "success resets the failure run",
			run: func(cb *CircuitBreaker, _ *fakeClock) {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordSuccess()
				cb.RecordFailure()
				cb.RecordFailure()
			},
			wantState: CircuitClosed,
			wantAllow: true,
		},
		{
			name: "half-open after cool-down",
			run: func(cb *CircuitBreaker, clock *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.RecordFailure()
				}
				clock.Advance(11 * time.Second)
			},
			wantState: CircuitHalfOpen,
			wantAllow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(3, 1)
			tt.run(cb, clock)
			allowed := cb.Allow()
			if allowed != tt.wantAllow {
				t.Errorf("Allow() = %v, want %v", allowed, tt.wantAllow)
			}
			if cb.State() != tt.wantState {
				t.Errorf("state = %v, want %v", cb.State(), tt.wantState)
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenProbeOutcome(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		cb, clock := newTestBreaker(1, 1)
		cb.RecordFailure()
		clock.Advance(11 * time.Second)
		if !cb.Allow() {
			t.Fatal("probe should be allowed")
		}
		cb.RecordSuccess()
		if cb.State() != CircuitClosed {
			t.Errorf("expected closed after successful probe, got %v", cb.State())
		}
	})

	t.Run("failure reopens", func(t *testing.T) {
		cb, clock := newTestBreaker(1, 1)
		cb.RecordFailure()
		clock.Advance(11 * time.Second)
		cb.Allow()
		cb.RecordFailure()
		if cb.State() != CircuitOpen {
			t.Errorf("expected open after failed probe, got %v", cb.State())
		}
		if cb.Allow() {
			t.Error("reopened circuit should reject immediately")
		}
	})
}

func TestCircuitBreaker_ProbeLimit(t *testing.T) {
	cb, clock := newTestBreaker(1, 2)
	cb.RecordFailure()
	clock.Advance(11 * time.Second)

	if !cb.Allow() || !cb.Allow() {
		t.Fatal("two probes should be admitted")
	}
	if cb.Allow() {
		t.Error("third probe should be rejected")
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb, clock := newTestBreaker(2, 1)
	cb.RecordFailure()

	stats := cb.Stats()
	if stats.State != "closed" {
		t.Errorf("expected closed, got %s", stats.State)
	}
	if stats.ConsecutiveFails != 1 {
		t.Errorf("expected 1 failure, got %d", stats.ConsecutiveFails)
	}
	if !stats.LastFailure.Equal(clock.Now()) {
		t.Errorf("unexpected last failure %v", stats.LastFailure)
	}
	if !stats.RetryAt.Equal(clock.Now().Add(10 * time.Second)) {
		t.Errorf("unexpected retry time %v", stats.RetryAt)
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestErrCircuitOpen(t *testing.T) {
	var err error = &ErrCircuitOpen{
		State:    "open",
		RetryAt:  time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC),
		Failures: 5,
	}
	if !strings.Contains(err.Error(), "2024-01-01T00:00:30Z") {
		t.Errorf("error should carry retry time: %s", err)
	}
	var open *ErrCircuitOpen
	if !errors.As(err, &open) || open.Failures != 5 {
		t.Error("errors.As should recover the breaker error")
	}
}
