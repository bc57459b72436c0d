package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regionmark/internal/config"
	"regionmark/internal/ics"
	appLog "regionmark/internal/log"
	"regionmark/internal/model"
	"regionmark/internal/region"
)

// CalendarRegion is a subscribed feed drawn as regions.
type CalendarRegion struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Colors      region.Colors      `json:"colors"`
	Occurrences []model.Occurrence `json:"occurrences"`
	Markings    []region.Marking   `json:"markings"`
	Truncated   []string           `json:"truncated,omitempty"`
}

// RegionsResponse is the JSON shape of /api/regions.
type RegionsResponse struct {
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	Theme     region.Theme     `json:"theme"`
	Regions   []region.Result  `json:"regions"`
	Calendars []CalendarRegion `json:"calendars"`
}

// Markings flattens every marking of the response, configured regions first.
func (r RegionsResponse) Markings() []region.Marking {
	var out []region.Marking
	for _, res := range r.Regions {
		out = append(out, res.Markings...)
	}
	for _, c := range r.Calendars {
		out = append(out, c.Markings...)
	}
	return out
}

// Regions computes configured and calendar-fed regions over w. Windows wider
// than the configured maximum fail with region.ErrWindowTooLarge. Results are
// cached per window and theme until the next calendar refresh.
func (s *Server) Regions(_ context.Context, w model.Window, theme region.Theme) (RegionsResponse, error) {
	if err := region.ValidateWindowSpan(w, s.cfg.MaxWindowDays); err != nil {
		return RegionsResponse{}, err
	}
	w = w.UTC()
	if resp, ok := s.regions.Get(regionsKey(s.calendarGeneration(), w, theme)); ok {
		return resp, nil
	}

	results, err := region.Compute(s.cfg.Regions, w, theme)
	if err != nil {
		return RegionsResponse{}, err
	}

	calendars, gen := s.calendarRegions(w, theme)
	resp := RegionsResponse{
		From:      w.From,
		To:        w.To,
		Theme:     theme,
		Regions:   results,
		Calendars: calendars,
	}
	// Keyed by the generation the calendars were read at, so a refresh that
	// lands mid-computation never leaves stale regions under the live key.
	s.regions.Add(regionsKey(gen, w, theme), resp)
	return resp, nil
}

func regionsKey(gen uint64, w model.Window, theme region.Theme) string {
	return fmt.Sprintf("%d/%d/%d/%s", gen, w.From.Unix(), w.To.Unix(), theme)
}

func (s *Server) calendarGeneration() uint64 {
	s.calMu.RLock()
	defer s.calMu.RUnlock()
	return s.calGen
}

func (s *Server) calendarRegions(w model.Window, theme region.Theme) ([]CalendarRegion, uint64) {
	s.calMu.RLock()
	defer s.calMu.RUnlock()

	out := make([]CalendarRegion, 0, len(s.cfg.Calendars))
	for _, c := range s.cfg.Calendars {
		events, ok := s.calEvents[c.Key()]
		if !ok {
			continue
		}
		exp, err := ics.ExpandEvents(events, w, 0)
		if err != nil {
			appLog.Error("calendar expand failed", err, "id", c.Key())
			continue
		}
		style := calendarStyle(c)
		colors := region.ResolveColors(style, theme)
		out = append(out, CalendarRegion{
			ID:          c.Key(),
			Name:        c.Name,
			Colors:      colors,
			Occurrences: exp.Occurrences,
			Markings:    region.BuildMarkings(exp.Occurrences, style, colors),
			Truncated:   exp.Truncated,
		})
	}
	return out, s.calGen
}

func calendarStyle(c config.CalendarSource) region.Style {
	return region.Style{
		Fill:      c.Fill,
		Line:      c.Line,
		ColorMode: region.ParseColorMode(c.ColorMode),
		FillColor: c.FillColor,
		LineColor: c.LineColor,
	}
}

// RefreshCalendars refetches every configured feed. Feeds that fail keep
// their previous events; the returned error joins all failures.
func (s *Server) RefreshCalendars(ctx context.Context) error {
	sources := make([]ics.Source, 0, len(s.cfg.Calendars))
	for _, c := range s.cfg.Calendars {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.Key(), URL: c.URL})
	}
	if len(sources) == 0 {
		return nil
	}

	results, errs := s.fetcher.FetchAll(ctx, sources)

	parsed := make(map[string][]ics.Event, len(results))
	for _, res := range results {
		events, err := ics.ParseFeed(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", res.Source.ID, err))
			continue
		}
		parsed[res.Source.ID] = events
	}

	s.calMu.Lock()
	for id, events := range parsed {
		s.calEvents[id] = events
	}
	s.calGen++
	s.calMu.Unlock()
	s.regions.Purge()

	appLog.Info("calendars refreshed", "sources", len(sources), "parsed", len(parsed), "failed", len(errs))
	return errors.Join(errs...)
}
