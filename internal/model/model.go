package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TimeRegion is a recurring time region exactly as the user configured it,
// before normalization. All fields are optional; missing or malformed values
// degrade to an inert region rather than an error.
type TimeRegion struct {
	// From / To are time-of-day strings in H[:MM] or HH:MM form.
	From string `yaml:"from,omitempty" json:"from,omitempty"`
	To   string `yaml:"to,omitempty" json:"to,omitempty"`

	// FromDayOfWeek / ToDayOfWeek pin an endpoint to an ISO weekday.
	FromDayOfWeek DayOfWeek `yaml:"from_day_of_week,omitempty" json:"fromDayOfWeek,omitempty"`
	ToDayOfWeek   DayOfWeek `yaml:"to_day_of_week,omitempty" json:"toDayOfWeek,omitempty"`

	// Fill draws a shaded band, Line draws boundary lines. Both may be set.
	Fill bool `yaml:"fill" json:"fill"`
	Line bool `yaml:"line" json:"line"`

	// ColorMode is one of gray, red, green, blue, yellow or custom.
	ColorMode string `yaml:"color_mode,omitempty" json:"colorMode,omitempty"`
	// FillColor / LineColor are only consulted when ColorMode is custom.
	FillColor string `yaml:"fill_color,omitempty" json:"fillColor,omitempty"`
	LineColor string `yaml:"line_color,omitempty" json:"lineColor,omitempty"`
}

// DayOfWeek is a user-supplied weekday. It accepts ISO numbers (1=Monday ..
// 7=Sunday) given as YAML/JSON numbers or strings, and weekday names.
type DayOfWeek string

var weekdayNames = map[string]int{
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
	"sun": 7, "sunday": 7,
}

// ISO returns the ISO weekday number. Values outside 1..7 are reported as
// absent.
func (d DayOfWeek) ISO() (int, bool) {
	s := strings.ToLower(strings.TrimSpace(string(d)))
	if s == "" {
		return 0, false
	}
	if n, ok := weekdayNames[s]; ok {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	n := int(f)
	if n < 1 || n > 7 {
		return 0, false
	}
	return n, true
}

// UnmarshalYAML accepts any scalar node.
func (d *DayOfWeek) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("day of week: expected scalar, got %v at line %d", value.Tag, value.Line)
	}
	if value.Tag == "!!null" {
		*d = ""
		return nil
	}
	*d = DayOfWeek(value.Value)
	return nil
}

// UnmarshalJSON accepts numbers, strings and null.
func (d *DayOfWeek) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DayOfWeek(s)
		return nil
	}
	*d = DayOfWeek(data)
	return nil
}

// Window is an absolute query range. From must not be after To.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// UTC returns the window with both bounds converted to UTC.
func (w Window) UTC() Window {
	return Window{From: w.From.UTC(), To: w.To.UTC()}
}

// Occurrence is a single concrete realization of a recurring region.
// Bounds are never clipped to the query window.
type Occurrence struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Duration returns To - From.
func (o Occurrence) Duration() time.Duration {
	return o.To.Sub(o.From)
}

// ParseInstant accepts RFC3339, a plain UTC date (2006-01-02) or integer
// epoch milliseconds, the unit chart front-ends send.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty instant")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: want RFC3339, YYYY-MM-DD or epoch millis", s)
	}
	return t, nil
}

// DefaultWindow spans backfillDays before now to horizonDays after it.
func DefaultWindow(now time.Time, backfillDays, horizonDays int) Window {
	now = now.UTC()
	return Window{
		From: now.AddDate(0, 0, -backfillDays),
		To:   now.AddDate(0, 0, horizonDays),
	}
}
