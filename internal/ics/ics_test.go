package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"regionmark/internal/model"
	"regionmark/internal/region"
)

func feed(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

var sampleFeed = feed(
	"BEGIN:VEVENT",
	"UID:single@test",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240102T100000Z",
	"DTEND:20240102T120000Z",
	"SUMMARY:Release freeze",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:holiday@test",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;VALUE=DATE:20240105",
	"DTEND;VALUE=DATE:20240106",
	"SUMMARY:Holiday",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:standup@test",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240101T090000Z",
	"DTEND:20240101T091500Z",
	"RRULE:FREQ=DAILY;COUNT=10",
	"EXDATE:20240103T090000Z",
	"SUMMARY:Standup",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:standup@test",
	"DTSTAMP:20240101T000000Z",
	"RECURRENCE-ID:20240104T090000Z",
	"DTSTART:20240104T110000Z",
	"DTEND:20240104T111500Z",
	"SUMMARY:Standup (moved)",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240101T090000Z",
	"SUMMARY:no uid",
	"END:VEVENT",
)

func day(d, h, m int) time.Time {
	return time.Date(2024, time.January, d, h, m, 0, 0, time.UTC)
}

var week = model.Window{From: day(1, 0, 0), To: day(8, 0, 0)}

func TestParseFeed(t *testing.T) {
	src := Source{ID: "team", URL: "https://example.com/team.ics"}
	events, err := ParseFeed(src, sampleFeed)
	require.NoError(t, err)
	require.Len(t, events, 4, "event without UID is skipped")

	single := events[0]
	assert.Equal(t, "single@test", single.UID)
	assert.Equal(t, "Release freeze", single.Summary)
	assert.Equal(t, day(2, 10, 0), single.Start)
	assert.Equal(t, day(2, 12, 0), single.End)
	assert.False(t, single.AllDay)
	assert.Equal(t, src, single.Source)

	holiday := events[1]
	assert.True(t, holiday.AllDay)
	assert.Equal(t, day(5, 0, 0), holiday.Start)
	assert.Equal(t, day(6, 0, 0), holiday.End)

	standup := events[2]
	assert.Equal(t, "FREQ=DAILY;COUNT=10", standup.RRule)
	require.Len(t, standup.ExDates, 1)
	assert.Equal(t, day(3, 9, 0), standup.ExDates[0])

	moved := events[3]
	require.NotNil(t, moved.RecurrenceID)
	assert.Equal(t, day(4, 9, 0), *moved.RecurrenceID)
}

func TestParseFeed_Empty(t *testing.T) {
	_, err := ParseFeed(Source{}, nil)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestExpandEvents(t *testing.T) {
	events, err := ParseFeed(Source{ID: "team"}, sampleFeed)
	require.NoError(t, err)

	exp, err := ExpandEvents(events, week, 0)
	require.NoError(t, err)
	assert.Empty(t, exp.Truncated)

	var starts []time.Time
	for _, o := range exp.Occurrences {
		starts = append(starts, o.From)
	}
	assert.Equal(t, []time.Time{
		day(1, 9, 0),
		day(2, 9, 0),
		day(2, 10, 0),
		day(4, 11, 0),
		day(5, 0, 0),
		day(5, 9, 0),
		day(6, 9, 0),
		day(7, 9, 0),
	}, starts)
}

func TestExpandEvents_SeriesStartedBeforeWindow(t *testing.T) {
	events := []Event{{
		UID:   "night",
		Start: day(1, 22, 0),
		End:   day(2, 6, 0),
		RRule: "FREQ=DAILY",
	}}
	w := model.Window{From: day(3, 2, 0), To: day(3, 4, 0)}

	exp, err := ExpandEvents(events, w, 0)
	require.NoError(t, err)
	require.Len(t, exp.Occurrences, 1)
	assert.Equal(t, day(2, 22, 0), exp.Occurrences[0].From)
}

func TestExpandEvents_Cap(t *testing.T) {
	events, err := ParseFeed(Source{ID: "team"}, sampleFeed)
	require.NoError(t, err)

	exp, err := ExpandEvents(events, week, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"standup@test"}, exp.Truncated)
}

func TestExpandEvents_BadRRuleIsSkipped(t *testing.T) {
	events := []Event{
		{UID: "bad", Start: day(1, 9, 0), End: day(1, 10, 0), RRule: "FREQ=SOMETIMES"},
		{UID: "ok", Start: day(2, 9, 0), End: day(2, 10, 0)},
	}
	exp, err := ExpandEvents(events, week, 0)
	require.NoError(t, err)
	require.Len(t, exp.Occurrences, 1)
	assert.Equal(t, day(2, 9, 0), exp.Occurrences[0].From)
}

func TestExpandEvents_InvalidWindow(t *testing.T) {
	_, err := ExpandEvents(nil, model.Window{From: day(2, 0, 0), To: day(1, 0, 0)}, 0)
	assert.ErrorIs(t, err, region.ErrInvalidWindow)
}

func TestFetcher_ConditionalAndFallback(t *testing.T) {
	var mode atomic.Int32
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if mode.Load() == 1 {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(sampleFeed)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "team", URL: srv.URL + "/secret/team.ics"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, sampleFeed, first.Body)

	second, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, sampleFeed, second.Body)

	mode.Store(1)
	third, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_FetchAllReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.ics" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(sampleFeed)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "ok", URL: srv.URL + "/ok.ics"},
		{ID: "missing", URL: srv.URL + "/missing.ics"},
		{ID: "blank"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Source.ID)
	assert.Len(t, errs, 2)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/abc.ics?token=x"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}

func TestExportRules(t *testing.T) {
	rules := []region.Rule{
		region.Normalize(model.TimeRegion{From: "22:00", To: "06:00", Fill: true}),
		region.Normalize(model.TimeRegion{}),
		region.Normalize(model.TimeRegion{FromDayOfWeek: "sat", Line: true}),
	}
	w := model.Window{From: day(1, 0, 0), To: day(15, 0, 0)}
	now := day(1, 12, 0)

	out, err := ExportRules(rules, w, now)
	require.NoError(t, err)

	again, err := ExportRules(rules, w, now)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2, "inert rule is not exported")

	for i, idx := range []int{0, 2} {
		ev := events[i]
		start, err := ev.GetStartAt()
		require.NoError(t, err)

		r, err := rrule.StrToRRule(ev.GetProperty(ical.ComponentPropertyRrule).Value)
		require.NoError(t, err)
		r.DTStart(start)

		want, err := region.Expand(rules[idx], w)
		require.NoError(t, err)

		got := r.All()
		require.Len(t, got, len(want))
		for j := range want {
			assert.True(t, want[j].From.Equal(got[j]), "occurrence %d of rule %d", j, idx)
		}
	}
}

func TestRecurrenceFor(t *testing.T) {
	weekly := RecurrenceFor(region.Normalize(model.TimeRegion{FromDayOfWeek: "6"}), 2)
	assert.Contains(t, weekly, "FREQ=WEEKLY")
	assert.Contains(t, weekly, "BYDAY=SA")
	assert.Contains(t, weekly, "COUNT=2")

	daily := RecurrenceFor(region.Normalize(model.TimeRegion{From: "9"}), 5)
	assert.Contains(t, daily, "FREQ=DAILY")
	assert.NotContains(t, daily, "BYDAY")
}
