package domain

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze the year window via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for the collection window. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Period is one (year, month) slice of the collection window.
type Period struct {
	Year  int
	Month int
}

// CollectionWindow returns every period from January of (current year - yearsBack)
// through month monthLimit of the current year, in chronological order. Each year
// contributes months 1..monthLimit.
func CollectionWindow(yearsBack, monthLimit int) []Period {
	current := clock.Now().UTC().Year()
	periods := make([]Period, 0, (yearsBack+1)*monthLimit)
	for year := current - yearsBack; year <= current; year++ {
		for month := 1; month <= monthLimit; month++ {
			periods = append(periods, Period{Year: year, Month: month})
		}
	}
	return periods
}

// Pause blocks for d on c, returning early with the context error when ctx is
// done first. Non-positive durations return immediately.
func Pause(ctx context.Context, c clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := c.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
