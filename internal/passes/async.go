package passes

import (
	"context"

	"github.com/ascotlan/iss-spotter/internal/lookup"
)

// NextPassesFunc runs NextPasses and hands the outcome to done, error first.
// done is called exactly once, on the calling goroutine.
func (o *Orchestrator) NextPassesFunc(ctx context.Context, done func(err error, passes []lookup.Pass)) {
	list, err := o.NextPasses(ctx)
	done(err, list)
}

// Future is the pending result of a run started with NextPassesAsync.
type Future struct {
	done   chan struct{}
	passes []lookup.Pass
	err    error
}

// NextPassesAsync starts NextPasses on its own goroutine and returns
// immediately.
func (o *Orchestrator) NextPassesAsync(ctx context.Context) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.passes, f.err = o.NextPasses(ctx)
	}()
	return f
}

// Done is closed once the run has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the run finishes and returns its outcome. It may be
// called any number of times.
func (f *Future) Await() ([]lookup.Pass, error) {
	<-f.done
	return f.passes, f.err
}
