// Package cli holds the two calling conventions of the command-line tools.
// Both print through the same routine, so identical upstream answers give
// identical output.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/ascotlan/iss-spotter/internal/lookup"
	"github.com/ascotlan/iss-spotter/internal/passes"
	"github.com/ascotlan/iss-spotter/internal/report"
)

// Runner is the part of passes.Orchestrator the tools use.
type Runner interface {
	NextPassesFunc(ctx context.Context, done func(err error, list []lookup.Pass))
	NextPassesAsync(ctx context.Context) *passes.Future
}

// Callback runs one lookup through the error-first callback convention and
// returns the process exit code.
func Callback(ctx context.Context, r Runner, w io.Writer, loc *time.Location) int {
	code := 0
	r.NextPassesFunc(ctx, func(err error, list []lookup.Pass) {
		code = finish(w, loc, list, err)
	})
	return code
}

// Await runs one lookup through the awaitable convention and returns the
// process exit code.
func Await(ctx context.Context, r Runner, w io.Writer, loc *time.Location) int {
	list, err := r.NextPassesAsync(ctx).Await()
	return finish(w, loc, list, err)
}

func finish(w io.Writer, loc *time.Location, list []lookup.Pass, err error) int {
	if err != nil {
		report.Failure(w, err)
		return 1
	}
	if err := report.Passes(w, list, loc); err != nil {
		return 1
	}
	return 0
}
