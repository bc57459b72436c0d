package ics

import (
	"errors"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "regionmark/internal/log"
	"regionmark/internal/model"
	"regionmark/internal/region"
)

const defaultMaxOccurrencesPerEvent = 5000

// Expansion is the result of expanding a feed's events over a window.
type Expansion struct {
	Occurrences []model.Occurrence
	// Truncated lists UIDs that hit the per-event cap.
	Truncated []string
}

// ExpandEvents turns events into occurrences overlapping w, sorted by start.
// Overlap follows the region rule: an occurrence is dropped only when it is
// entirely before or entirely after the window.
//
//   - single events pass through
//   - RRULE series are expanded with EXDATE removal
//   - overriding instances (RECURRENCE-ID) replace the instance they name
//
// maxPerEvent <= 0 selects the default cap.
func ExpandEvents(events []Event, w model.Window, maxPerEvent int) (Expansion, error) {
	var out Expansion
	if err := region.ValidateWindow(w); err != nil {
		return out, err
	}
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrencesPerEvent
	}
	w = w.UTC()

	overridden := make(map[string][]time.Time)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overridden[ev.UID] = append(overridden[ev.UID], *ev.RecurrenceID)
		}
	}

	occs := make([]model.Occurrence, 0)
	for _, ev := range events {
		if ev.RRule == "" || ev.RecurrenceID != nil {
			occ := model.Occurrence{From: ev.Start, To: ev.End}
			if overlaps(occ, w) {
				occs = append(occs, occ)
			}
			continue
		}

		series, capped, err := expandSeries(ev, overridden[ev.UID], w, maxPerEvent)
		if err != nil {
			appLog.Error("ics: RRULE skipped", err, "uid", ev.UID, "rrule", ev.RRule)
			continue
		}
		if capped {
			out.Truncated = append(out.Truncated, ev.UID)
			appLog.Error("ics: occurrences truncated", errors.New("max occurrences reached"),
				"uid", ev.UID, "cap", maxPerEvent)
		}
		occs = append(occs, series...)
	}

	slices.SortStableFunc(occs, func(a, b model.Occurrence) int {
		return a.From.Compare(b.From)
	})
	out.Occurrences = occs
	return out, nil
}

func expandSeries(ev Event, extraExDates []time.Time, w model.Window, limit int) ([]model.Occurrence, bool, error) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, false, err
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.UTC())
	}
	for _, ex := range extraExDates {
		set.ExDate(ex.UTC())
	}

	// Instances that started before the window may still reach into it.
	dur := ev.End.Sub(ev.Start)
	starts := set.Between(w.From.Add(-dur), w.To, true)

	capped := false
	if len(starts) > limit {
		starts = starts[:limit]
		capped = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		occ := model.Occurrence{From: s.UTC(), To: s.UTC().Add(dur)}
		if overlaps(occ, w) {
			out = append(out, occ)
		}
	}
	return out, capped, nil
}

func overlaps(o model.Occurrence, w model.Window) bool {
	lo, hi := w.From.Unix(), w.To.Unix()
	s, e := o.From.Unix(), o.To.Unix()
	return !((s < lo && e < lo) || (s > hi && e > hi))
}
