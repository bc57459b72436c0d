// Package region turns user-configured recurring time regions into concrete
// UTC intervals, resolves their colours and builds the markings a chart
// renderer draws for them.
package region

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/samber/mo"

	"regionmark/internal/model"
)

const (
	maxHour   = 23
	maxMinute = 59
)

// ClockTime is a time-of-day anchor, optionally pinned to an ISO weekday.
// An absent Hour/Minute means the endpoint has no time-of-day.
type ClockTime struct {
	Hour      mo.Option[int] `json:"hour"`
	Minute    mo.Option[int] `json:"minute"`
	Second    int            `json:"second"`
	DayOfWeek mo.Option[int] `json:"dayOfWeek"`
}

// Specified reports whether the endpoint carries a weekday or a time-of-day.
func (c ClockTime) Specified() bool {
	return c.DayOfWeek.IsPresent() || c.Hour.IsPresent()
}

func (c ClockTime) offset() time.Duration {
	return time.Duration(c.Hour.OrElse(0))*time.Hour +
		time.Duration(c.Minute.OrElse(0))*time.Minute +
		time.Duration(c.Second)*time.Second
}

// Style holds the drawing options of a region.
type Style struct {
	Fill      bool      `json:"fill"`
	Line      bool      `json:"line"`
	ColorMode ColorMode `json:"colorMode"`
	FillColor string    `json:"fillColor,omitempty"`
	LineColor string    `json:"lineColor,omitempty"`
}

// Rule is a normalized recurrence rule.
type Rule struct {
	From ClockTime `json:"from"`
	To   ClockTime `json:"to"`
	Style
}

// Inert reports whether the rule produces no occurrences at all.
func (r Rule) Inert() bool {
	return !r.From.Specified() || !r.To.Specified()
}

var clockPattern = regexp.MustCompile(`^(\d+):?(\d{2})?`)

// ParseClockTime parses "H", "H:MM" or "HH:MM". Anything that does not start
// with digits yields an unspecified ClockTime. Hours above 23 and minutes
// above 59 are clamped.
func ParseClockTime(s string) ClockTime {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return ClockTime{}
	}

	ct := ClockTime{
		Hour:   mo.Some(clampDigits(m[1], maxHour)),
		Minute: mo.Some(0),
	}
	if m[2] != "" {
		ct.Minute = mo.Some(clampDigits(m[2], maxMinute))
	}
	return ct
}

// clampDigits parses a run of decimal digits, clamping to limit. A run too
// long for int is by definition above any limit.
func clampDigits(digits string, limit int) int {
	n, err := strconv.Atoi(digits)
	if err != nil || n > limit {
		return limit
	}
	return n
}

// Normalize builds a fresh Rule from a raw region. It never fails; missing
// or malformed fields leave the rule inert.
//
//   - a lone from/to time-of-day is copied to the other endpoint
//   - a lone from/to weekday is copied to the other endpoint
//   - a weekday endpoint without time-of-day starts at 00:00:00 (from) or
//     ends at 23:59:59 (to)
func Normalize(raw model.TimeRegion) Rule {
	fromStr, toStr := raw.From, raw.To
	if fromStr != "" && toStr == "" {
		toStr = fromStr
	}
	if fromStr == "" && toStr != "" {
		fromStr = toStr
	}

	from := ParseClockTime(fromStr)
	to := ParseClockTime(toStr)

	fromDow, fromOK := raw.FromDayOfWeek.ISO()
	toDow, toOK := raw.ToDayOfWeek.ISO()
	if !fromOK && toOK {
		fromDow, fromOK = toDow, true
	}
	if !toOK && fromOK {
		toDow, toOK = fromDow, true
	}
	if fromOK {
		from.DayOfWeek = mo.Some(fromDow)
	}
	if toOK {
		to.DayOfWeek = mo.Some(toDow)
	}

	if from.DayOfWeek.IsPresent() && from.Hour.IsAbsent() && from.Minute.IsAbsent() {
		from.Hour, from.Minute, from.Second = mo.Some(0), mo.Some(0), 0
	}
	if to.DayOfWeek.IsPresent() && to.Hour.IsAbsent() && to.Minute.IsAbsent() {
		to.Hour, to.Minute, to.Second = mo.Some(maxHour), mo.Some(maxMinute), 59
	}

	return Rule{
		From: from,
		To:   to,
		Style: Style{
			Fill:      raw.Fill,
			Line:      raw.Line,
			ColorMode: ParseColorMode(raw.ColorMode),
			FillColor: raw.FillColor,
			LineColor: raw.LineColor,
		},
	}
}

// NormalizeAll normalizes every region, preserving order.
func NormalizeAll(raw []model.TimeRegion) []Rule {
	out := make([]Rule, len(raw))
	for i, r := range raw {
		out[i] = Normalize(r)
	}
	return out
}

var weekdayAbbrev = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func (c ClockTime) String() string {
	var s string
	if dow, ok := c.DayOfWeek.Get(); ok {
		s = weekdayAbbrev[dow] + " "
	}
	h, hok := c.Hour.Get()
	if !hok {
		return s + "--:--"
	}
	return s + fmt.Sprintf("%02d:%02d:%02d", h, c.Minute.OrElse(0), c.Second)
}

// String describes the rule, e.g. "Mon 09:00:00 - Fri 17:00:00".
func (r Rule) String() string {
	if r.Inert() {
		return "inert"
	}
	return r.From.String() + " - " + r.To.String()
}
