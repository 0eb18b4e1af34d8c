package client

import (
	"context"

	"github.com/muurk/pulseguard/internal/logging"
)

// runtime is the execution context backing thread-bridged use of the
// client. It owns one goroutine that drains a job queue; synchronous
// operations submit their context-taking counterpart as a job and block
// on its result. Running jobs one at a time on a single goroutine gives
// synchronous callers the same serialization a cooperative scheduler
// gives asynchronous ones.
//
// Callers driving the client from their own goroutines use the
// ...Context methods directly and no runtime is ever created.
type runtime struct {
	jobs   chan func(context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newRuntime() *runtime {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &runtime{
		jobs:   make(chan func(context.Context)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go rt.loop()
	return rt
}

func (r *runtime) loop() {
	logging.Debug("Session runtime started")
	defer close(r.done)
	defer logging.Debug("Session runtime stopped")
	for {
		select {
		case job := <-r.jobs:
			job(r.ctx)
		case <-r.ctx.Done():
			return
		}
	}
}

// call runs fn on the runtime goroutine and blocks until it completes
// or the runtime shuts down.
func (r *runtime) call(fn func(ctx context.Context) error) error {
	errc := make(chan error, 1)
	job := func(ctx context.Context) {
		errc <- fn(ctx)
	}
	select {
	case r.jobs <- job:
	case <-r.done:
		return NewUsageError("session runtime has shut down")
	}
	select {
	case err := <-errc:
		return err
	case <-r.done:
		// The job may have finished in the same instant the runtime
		// shut down; prefer its result if one was delivered.
		select {
		case err := <-errc:
			return err
		default:
			return NewUsageError("session runtime shut down during call")
		}
	}
}

// close stops the runtime goroutine and waits for it to exit. A job in
// flight runs to completion first.
func (r *runtime) close() {
	r.cancel()
	<-r.done
}
