package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDayOfWeek_ISO(t *testing.T) {
	tests := []struct {
		in     DayOfWeek
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{"7", 7, true},
		{" 3 ", 3, true},
		{"5.0", 5, true},
		{"Sat", 6, true},
		{"sunday", 7, true},
		{"", 0, false},
		{"0", 0, false},
		{"8", 0, false},
		{"-1", 0, false},
		{"2.5", 0, false},
		{"someday", 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, ok := tt.in.ISO()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeRegion_YAML(t *testing.T) {
	src := `
from: "09:00"
to: "17:00"
from_day_of_week: 1
to_day_of_week: fri
fill: true
color_mode: blue
`
	var r TimeRegion
	require.NoError(t, yaml.Unmarshal([]byte(src), &r))

	assert.Equal(t, "09:00", r.From)
	assert.Equal(t, DayOfWeek("1"), r.FromDayOfWeek)
	assert.Equal(t, DayOfWeek("fri"), r.ToDayOfWeek)
	assert.True(t, r.Fill)
	assert.False(t, r.Line)
	assert.Equal(t, "blue", r.ColorMode)
}

func TestTimeRegion_YAMLRejectsNonScalarWeekday(t *testing.T) {
	var r TimeRegion
	err := yaml.Unmarshal([]byte("from_day_of_week: [1, 2]\n"), &r)
	assert.Error(t, err)
}

func TestTimeRegion_JSON(t *testing.T) {
	var r TimeRegion
	require.NoError(t, json.Unmarshal([]byte(`{"from":"22","fromDayOfWeek":6,"toDayOfWeek":"7","line":true}`), &r))

	assert.Equal(t, DayOfWeek("6"), r.FromDayOfWeek)
	assert.Equal(t, DayOfWeek("7"), r.ToDayOfWeek)
	assert.True(t, r.Line)

	var empty TimeRegion
	require.NoError(t, json.Unmarshal([]byte(`{"fromDayOfWeek":null}`), &empty))
	assert.Equal(t, DayOfWeek(""), empty.FromDayOfWeek)
}

func TestWindowUTC(t *testing.T) {
	loc := time.FixedZone("X", -5*60*60)
	w := Window{From: time.Date(2024, 1, 1, 20, 0, 0, 0, loc), To: time.Date(2024, 1, 2, 20, 0, 0, 0, loc)}.UTC()

	assert.Equal(t, time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.UTC, w.To.Location())
}

func TestParseInstant(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := ParseInstant("2024-01-02T12:04:05+09:00")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseInstant(" 1704164645000 ")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseInstant("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseInstant("yesterday")
	assert.Error(t, err)
	_, err = ParseInstant("")
	assert.Error(t, err)
}

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	w := DefaultWindow(now, 1, 7)

	assert.Equal(t, time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC), w.To)
}
