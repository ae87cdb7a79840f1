package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_NextDoublesAndCaps(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 350*time.Millisecond)

	want := []time.Duration{100, 200, 350, 350}
	for i, base := range want {
		base *= time.Millisecond
		d := b.Next()
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		if d < lo || d > hi {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", i, d, lo, hi)
		}
	}
}

func TestBackoff_WaitCanceled(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := b.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() did not return promptly on a canceled context")
	}
}

func TestBackoff_WaitElapses(t *testing.T) {
	b := NewBackoff(5*time.Millisecond, 5*time.Millisecond)

	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
