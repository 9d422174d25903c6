// Package report renders passes as the lines the command-line tools print.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/ascotlan/iss-spotter/internal/lookup"
)

// TimeLayout formats rise times in the observer's local zone.
const TimeLayout = "Mon Jan 02 2006 15:04:05 MST"

// Line renders one pass, with the rise time shown in loc.
func Line(p lookup.Pass, loc *time.Location) string {
	rise := time.Unix(p.RiseTime, 0).In(loc)
	return fmt.Sprintf("Next pass at %s for %d seconds!", rise.Format(TimeLayout), p.Duration)
}

// Passes writes one line per pass, in the given order.
func Passes(w io.Writer, list []lookup.Pass, loc *time.Location) error {
	for _, p := range list {
		if _, err := fmt.Fprintln(w, Line(p, loc)); err != nil {
			return err
		}
	}
	return nil
}

// Failure writes the short diagnostic for a failed run: the message only.
func Failure(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "It didn't work: %s\n", err.Error())
	return werr
}
