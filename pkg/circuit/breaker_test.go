package circuit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b := New(Config{Name: "test", MaxConsecFailures: 3, OpenFor: time.Hour})
	boom := errors.New("boom")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.CurrentState() != Open {
		t.Fatalf("state = %v, want open", b.CurrentState())
	}
	if err := b.Do(ctx, func(context.Context) error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("want ErrOpen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New(Config{Name: "test2", MaxConsecFailures: 2, OpenFor: time.Hour})
	boom := errors.New("boom")
	ctx := context.Background()

	_ = b.Do(ctx, func(context.Context) error { return boom })
	_ = b.Do(ctx, func(context.Context) error { return nil })
	_ = b.Do(ctx, func(context.Context) error { return boom })
	if b.CurrentState() != Closed {
		t.Fatalf("state = %v, want closed after interleaved success", b.CurrentState())
	}
}

func TestHalfOpenProbe(t *testing.T) {
	b := New(Config{Name: "test3", MaxConsecFailures: 1, OpenFor: 10 * time.Millisecond})
	ctx := context.Background()

	_ = b.Do(ctx, func(context.Context) error { return errors.New("boom") })
	if b.CurrentState() != Open {
		t.Fatal("breaker did not open")
	}
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.CurrentState() != Closed {
		t.Fatalf("state = %v, want closed after successful probe", b.CurrentState())
	}
}

func TestOperationTimeout(t *testing.T) {
	b := New(Config{Name: "test4", OperationTimeout: 10 * time.Millisecond})
	err := b.Do(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}
