package halclient_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	halclient "github.com/reoring/halclient"
)

func TestLazy_DoesNotLoadOnConstruction(t *testing.T) {
	var calls atomic.Int32
	l := halclient.NewLazy(func(context.Context) (int, error) {
		calls.Add(1)
		return 7, nil
	}, halclient.RetryOnFailure)

	if calls.Load() != 0 {
		t.Fatalf("loader ran on construction")
	}
	if _, ok := l.Peek(); ok {
		t.Fatalf("Peek reported a value before first access")
	}
	v, err := l.Get(context.Background())
	if err != nil || v != 7 {
		t.Fatalf("Get = %v, %v", v, err)
	}
	if _, err := l.Get(context.Background()); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one load, got %d", calls.Load())
	}
	if !l.Resolved() {
		t.Fatalf("expected resolved")
	}
}

func TestLazy_ConcurrentFirstAccessLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	type box struct{ n int }
	l := halclient.NewLazy(func(context.Context) (*box, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &box{n: 42}, nil
	}, halclient.RetryOnFailure)

	const n = 32
	results := make([]*box, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := l.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected exactly one load, got %d", calls.Load())
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d observed a different value", i)
		}
	}
}

func TestLazy_ConcurrentWaitersShareFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	l := halclient.NewLazy(func(context.Context) (int, error) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		return 0, boom
	}, halclient.RetryOnFailure)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = l.Get(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected waiters to share one failed load, got %d loads", calls.Load())
	}
	for i, err := range errs {
		if err != boom {
			t.Fatalf("caller %d got %v, want the shared failure", i, err)
		}
	}
	if l.Resolved() {
		t.Fatalf("failed load must leave the reference unresolved")
	}
}

func TestLazy_RetryOnFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	l := halclient.NewLazy(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return "ok", nil
	}, halclient.RetryOnFailure)

	if _, err := l.Get(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if l.Resolved() {
		t.Fatalf("failed load must leave the reference unresolved")
	}
	v, err := l.Get(context.Background())
	if err != nil || v != "ok" {
		t.Fatalf("retry Get = %q, %v", v, err)
	}
	if l.Attempts() != 2 {
		t.Fatalf("expected 2 attempts, got %d", l.Attempts())
	}
}

func TestLazy_CacheFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	l := halclient.NewLazy(func(context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	}, halclient.CacheFailure)

	for i := 0; i < 3; i++ {
		if _, err := l.Get(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("Get #%d: expected boom, got %v", i, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected the failure to be cached after one load, got %d loads", calls.Load())
	}
}

func TestLazy_CancelledAccessStaysRetryable(t *testing.T) {
	l := halclient.NewLazy(func(ctx context.Context) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}, halclient.RetryOnFailure)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if v, err := l.Get(context.Background()); err != nil || v != 1 {
		t.Fatalf("Get after cancel = %v, %v", v, err)
	}
}

func TestLazyOf_IsResolved(t *testing.T) {
	l := halclient.LazyOf("x")
	v, ok := l.Peek()
	if !ok || v != "x" || !l.Resolved() {
		t.Fatalf("LazyOf not resolved: %q %v", v, ok)
	}
	if l.Attempts() != 0 {
		t.Fatalf("LazyOf must not count attempts")
	}
}
