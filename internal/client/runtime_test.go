package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRuntime_CallRunsJobAndReturnsResult(t *testing.T) {
	rt := newRuntime()
	defer rt.close()

	ran := false
	if err := rt.call(func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("call() failed: %v", err)
	}
	if !ran {
		t.Error("job did not run")
	}

	want := errors.New("job failure")
	if err := rt.call(func(ctx context.Context) error {
		return want
	}); !errors.Is(err, want) {
		t.Errorf("call() = %v, want %v", err, want)
	}
}

func TestRuntime_SerializesJobs(t *testing.T) {
	rt := newRuntime()
	defer rt.close()

	var order []int
	done := make(chan struct{}, 2)
	for i := 1; i <= 2; i++ {
		i := i
		go func() {
			_ = rt.call(func(ctx context.Context) error {
				order = append(order, i)
				time.Sleep(10 * time.Millisecond)
				order = append(order, i)
				return nil
			})
			done <- struct{}{}
		}()
	}
	<-done
	<-done

	// Jobs never interleave: each pair of entries is the same job.
	if len(order) != 4 || order[0] != order[1] || order[2] != order[3] {
		t.Errorf("jobs interleaved: %v", order)
	}
}

func TestRuntime_CallAfterClose(t *testing.T) {
	rt := newRuntime()
	rt.close()

	err := rt.call(func(ctx context.Context) error { return nil })
	if !IsUsageError(err) {
		t.Errorf("call() after close = %v, want usage error", err)
	}
}

func TestRuntime_CloseCancelsJobContext(t *testing.T) {
	rt := newRuntime()

	started := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- rt.call(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	rt.close()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("job result = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("call() did not return after close")
	}
}
