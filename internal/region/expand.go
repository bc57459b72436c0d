package region

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"regionmark/internal/model"
)

const day = 24 * time.Hour

var (
	// ErrInvalidWindow is returned when a window's From is after its To.
	ErrInvalidWindow = errors.New("region: window from is after to")
	// ErrWindowTooLarge is returned when a window spans more days than allowed.
	ErrWindowTooLarge = errors.New("region: window too large")
)

// ValidateWindow checks the window precondition shared by all expansions.
func ValidateWindow(w model.Window) error {
	if w.From.After(w.To) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidWindow,
			w.From.UTC().Format(time.RFC3339), w.To.UTC().Format(time.RFC3339))
	}
	return nil
}

// ValidateWindowSpan checks the window precondition and that w spans at most
// maxDays days. maxDays <= 0 disables the span check.
func ValidateWindowSpan(w model.Window, maxDays int) error {
	if err := ValidateWindow(w); err != nil {
		return err
	}
	if maxDays > 0 && w.To.Sub(w.From) > time.Duration(maxDays)*day {
		return fmt.Errorf("%w: more than %d days", ErrWindowTooLarge, maxDays)
	}
	return nil
}

// Expand returns every occurrence of rule that overlaps w, in chronological
// order of their starts.
func Expand(rule Rule, w model.Window) ([]model.Occurrence, error) {
	if err := ValidateWindow(w); err != nil {
		return nil, err
	}
	out := slices.Collect(Occurrences(rule, w))
	if out == nil {
		out = []model.Occurrence{}
	}
	return out, nil
}

// Occurrences lazily enumerates the occurrences of rule that overlap w.
// The window is not validated; an inverted window yields nothing.
//
// Candidates are generated by stepping whole days from the from-endpoint
// time on the window's first UTC day. An occurrence is dropped only when it
// lies entirely before or entirely after the window; partial overlaps are
// returned unclipped.
func Occurrences(rule Rule, w model.Window) iter.Seq[model.Occurrence] {
	return func(yield func(model.Occurrence) bool) {
		if rule.Inert() {
			return
		}

		uw := w.UTC()
		lo, hi := uw.From.Unix(), uw.To.Unix()

		start := startOfDay(uw.From).Add(rule.From.offset())
		for start.Unix() <= hi {
			if dow, ok := rule.From.DayOfWeek.Get(); ok {
				for isoWeekday(start) != dow {
					start = start.Add(day)
					if start.Unix() > hi {
						return
					}
				}
			}

			end := resolveEnd(rule, start)

			s, e := start.Unix(), end.Unix()
			outside := (s < lo && e < lo) || (s > hi && e > hi)
			if !outside {
				if !yield(model.Occurrence{From: start, To: end}) {
					return
				}
			}

			start = start.Add(day)
		}
	}
}

// resolveEnd computes the end of the occurrence starting at start.
//
// When the to-hour is not earlier than the from-hour the hour difference is
// added (an equal hour adds nothing). Otherwise the end walks forward hour by
// hour until it reaches the to-hour, crossing midnight. Minute and second are
// then set directly, and a to-weekday moves the end forward in whole days.
func resolveEnd(rule Rule, start time.Time) time.Time {
	fromHour := rule.From.Hour.OrElse(0)
	toHour := rule.To.Hour.OrElse(0)

	end := start
	if toHour >= fromHour {
		end = end.Add(time.Duration(toHour-fromHour) * time.Hour)
	} else {
		for end.Hour() != toHour {
			end = end.Add(time.Hour)
		}
	}

	end = time.Date(end.Year(), end.Month(), end.Day(), end.Hour(),
		rule.To.Minute.OrElse(0), rule.To.Second, 0, time.UTC)

	if dow, ok := rule.To.DayOfWeek.Get(); ok {
		for isoWeekday(end) != dow {
			end = end.Add(day)
		}
	}
	return end
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// isoWeekday maps time.Weekday to 1=Monday .. 7=Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
