package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "regionmark/internal/log"
	"regionmark/internal/model"
	"regionmark/internal/region"
)

const productID = "-//regionmark//time regions//EN"

var isoToRRule = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// ExportRules renders rules as an iCalendar feed. Each rule that has
// occurrences in w becomes one recurring VEVENT: DTSTART/DTEND are the first
// occurrence, and the RRULE repeats it daily (or weekly on the from weekday)
// for as many occurrences as the window holds. UIDs are stable across calls
// for the same rule at the same position.
func ExportRules(rules []region.Rule, w model.Window, now time.Time) (string, error) {
	if err := region.ValidateWindow(w); err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for i, rule := range rules {
		if rule.Inert() {
			continue
		}
		occs, err := region.Expand(rule, w)
		if err != nil {
			return "", err
		}
		if len(occs) == 0 {
			continue
		}
		first := occs[0]
		if first.To.Before(first.From) {
			appLog.Debug("ics export: rule ends before it starts; skipped", "index", i, "rule", rule.String())
			continue
		}

		ev := cal.AddEvent(ruleUID(i, rule))
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(first.From)
		ev.SetEndAt(first.To)
		ev.SetSummary("Time region " + strconv.Itoa(i+1) + ": " + rule.String())
		ev.AddProperty(ical.ComponentPropertyRrule, RecurrenceFor(rule, len(occs)))
	}

	return cal.Serialize(), nil
}

// RecurrenceFor returns the RRULE value repeating rule count times.
func RecurrenceFor(rule region.Rule, count int) string {
	opt := rrule.ROption{Freq: rrule.DAILY, Count: count}
	if dow, ok := rule.From.DayOfWeek.Get(); ok {
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{isoToRRule[dow-1]}
	}
	return opt.RRuleString()
}

func ruleUID(index int, rule region.Rule) string {
	name := "regionmark/rule/" + strconv.Itoa(index) + "/" + rule.String()
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@regionmark"
}
