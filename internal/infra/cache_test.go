package infra

import (
	"errors"
	"testing"
	"time"
)

type searchArgs struct {
	Query      string
	Results    int
	Suggestion bool
}

func TestNewMemo(t *testing.T) {
	m := NewMemo(true)
	if m == nil {
		t.Fatal("NewMemo returned nil")
	}
	if !m.Enabled() {
		t.Error("expected memo to be enabled")
	}
	if m.Len() != 0 {
		t.Errorf("expected empty memo, got %d entries", m.Len())
	}
}

func TestMemo_GetOrCompute_HitAfterMiss(t *testing.T) {
	m := NewMemo(true)
	calls := 0
	compute := func() (any, error) {
		calls++
		return []string{"Go"}, nil
	}
	key := MemoKey{Op: "search", Args: searchArgs{Query: "go", Results: 10}}

	_, hit, err := m.GetOrCompute(key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Error("first call should be a miss")
	}

	v, hit, err := m.GetOrCompute(key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Error("second call should be a hit")
	}
	if calls != 1 {
		t.Errorf("expected compute to run once, ran %d times", calls)
	}
	if got := v.([]string); len(got) != 1 || got[0] != "Go" {
		t.Errorf("unexpected value %v", got)
	}
}

func TestMemo_KeySensitivity(t *testing.T) {
	m := NewMemo(true)
	compute := func() (any, error) { return "ok", nil }

	// Same query, one call overrides the default result count explicitly.
	defaults := MemoKey{Op: "search", Args: searchArgs{Query: "go", Results: 10}}
	override := MemoKey{Op: "search", Args: searchArgs{Query: "go", Results: 10, Suggestion: true}}

	_, _, _ = m.GetOrCompute(defaults, compute)
	_, _, _ = m.GetOrCompute(override, compute)

	if m.Len() != 2 {
		t.Errorf("expected 2 distinct entries, got %d", m.Len())
	}
}

func TestMemo_DifferentOpsDoNotCollide(t *testing.T) {
	m := NewMemo(true)
	_, _, _ = m.GetOrCompute(MemoKey{Op: "search", Args: "go"}, func() (any, error) { return 1, nil })
	v, hit, _ := m.GetOrCompute(MemoKey{Op: "suggest", Args: "go"}, func() (any, error) { return 2, nil })
	if hit {
		t.Error("different operations must not share entries")
	}
	if v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
}

func TestMemo_TypedArgsDoNotCollide(t *testing.T) {
	m := NewMemo(true)
	_, _, _ = m.GetOrCompute(MemoKey{Op: "op", Args: 1}, func() (any, error) { return "int", nil })
	v, hit, _ := m.GetOrCompute(MemoKey{Op: "op", Args: "1"}, func() (any, error) { return "string", nil })
	if hit || v != "string" {
		t.Errorf("int and string arguments must produce distinct keys, got hit=%v v=%v", hit, v)
	}
}

func TestMemo_Disabled(t *testing.T) {
	m := NewMemo(false)
	calls := 0
	compute := func() (any, error) {
		calls++
		return "v", nil
	}
	key := MemoKey{Op: "search", Args: searchArgs{Query: "go"}}

	for i := 0; i < 3; i++ {
		_, hit, err := m.GetOrCompute(key, compute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hit {
			t.Error("disabled memo must never hit")
		}
	}
	if calls != 3 {
		t.Errorf("expected 3 computations, got %d", calls)
	}
	if m.Len() != 0 {
		t.Errorf("disabled memo created %d entries", m.Len())
	}
}

func TestMemo_ErrorsNotStored(t *testing.T) {
	m := NewMemo(true)
	key := MemoKey{Op: "summary", Args: "Go"}
	wantErr := errors.New("boom")

	_, _, err := m.GetOrCompute(key, func() (any, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected boom, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("failed result was stored")
	}

	v, hit, err := m.GetOrCompute(key, func() (any, error) { return "recovered", nil })
	if err != nil || hit || v != "recovered" {
		t.Errorf("expected fresh compute after failure, got v=%v hit=%v err=%v", v, hit, err)
	}
}

func TestMemo_RefreshInterval(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemo(true, WithRefreshInterval(time.Minute), WithClock(func() time.Time { return now }))

	n := 0
	compute := func() (any, error) {
		n++
		return n, nil
	}
	key := MemoKey{Op: "random", Args: 1}

	v, _, _ := m.GetOrCompute(key, compute)
	if v != 1 {
		t.Fatalf("expected 1, got %v", v)
	}

	now = now.Add(time.Minute)
	v, hit, _ := m.GetOrCompute(key, compute)
	if !hit || v != 1 {
		t.Errorf("entry exactly at the interval should still be fresh, got v=%v hit=%v", v, hit)
	}

	now = now.Add(time.Second)
	v, hit, _ = m.GetOrCompute(key, compute)
	if hit || v != 2 {
		t.Errorf("stale entry should recompute, got v=%v hit=%v", v, hit)
	}
	if m.Len() != 1 {
		t.Errorf("refresh should overwrite, got %d entries", m.Len())
	}
}

func TestMemo_NoRefreshByDefault(t *testing.T) {
	now := time.Now()
	m := NewMemo(true, WithClock(func() time.Time { return now }))
	_, _, _ = m.GetOrCompute(MemoKey{Op: "op"}, func() (any, error) { return "a", nil })

	now = now.Add(365 * 24 * time.Hour)
	v, hit, _ := m.GetOrCompute(MemoKey{Op: "op"}, func() (any, error) { return "b", nil })
	if !hit || v != "a" {
		t.Errorf("entries should never go stale without a refresh interval, got v=%v hit=%v", v, hit)
	}
}

func TestMemo_Clear(t *testing.T) {
	m := NewMemo(true)
	for i := 0; i < 5; i++ {
		_, _, _ = m.GetOrCompute(MemoKey{Op: "op", Args: i}, func() (any, error) { return i, nil })
	}
	if m.Len() != 5 {
		t.Fatalf("expected 5 entries, got %d", m.Len())
	}
	m.Clear()
	if m.Len() != 0 {
		t.Errorf("expected empty memo after Clear, got %d", m.Len())
	}
}

func TestMemo_SetEnabledKeepsEntries(t *testing.T) {
	m := NewMemo(true)
	key := MemoKey{Op: "op"}
	_, _, _ = m.GetOrCompute(key, func() (any, error) { return "a", nil })

	m.SetEnabled(false)
	v, hit, _ := m.GetOrCompute(key, func() (any, error) { return "b", nil })
	if hit || v != "b" {
		t.Errorf("disabled memo must bypass storage, got v=%v hit=%v", v, hit)
	}

	m.SetEnabled(true)
	v, hit, _ = m.GetOrCompute(key, func() (any, error) { return "c", nil })
	if !hit || v != "a" {
		t.Errorf("re-enabled memo should serve the original entry, got v=%v hit=%v", v, hit)
	}
}
