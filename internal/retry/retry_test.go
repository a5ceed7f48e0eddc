package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelay_ExponentialAndCapped(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	if d := p.Delay(1); d != 0 {
		t.Fatalf("attempt 1 delay = %v, want 0", d)
	}
	if d := p.Delay(2); d != 100*time.Millisecond {
		t.Fatalf("attempt 2 delay = %v, want 100ms", d)
	}
	if d := p.Delay(3); d != 200*time.Millisecond {
		t.Fatalf("attempt 3 delay = %v, want 200ms", d)
	}
	if d := p.Delay(4); d != 300*time.Millisecond {
		t.Fatalf("attempt 4 delay = %v, want cap 300ms", d)
	}
	if d := p.Delay(10); d != 300*time.Millisecond {
		t.Fatalf("attempt 10 delay = %v, want cap 300ms", d)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3}, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do err=%v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	wantErr := errors.New("still broken")
	err := Do(context.Background(), Policy{MaxAttempts: 4}, nil, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do err=%v, want %v", err, wantErr)
	}
	if calls != 4 {
		t.Fatalf("calls=%d, want 4", calls)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	permanent := errors.New("illegal address")
	err := Do(context.Background(), Policy{MaxAttempts: 5}, func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do err=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestDo_ObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 3}, nil, func() error {
		calls++
		return errors.New("x")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do err=%v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls=%d, want 0 after cancellation", calls)
	}
}

func TestNormalize(t *testing.T) {
	p := Policy{MaxAttempts: 0, BaseDelay: -1, MaxDelay: -1}.Normalize()
	if p.MaxAttempts != 1 || p.BaseDelay != 0 || p.MaxDelay != 0 {
		t.Fatalf("Normalize gave %+v", p)
	}
}
