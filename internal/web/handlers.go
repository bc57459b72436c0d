package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"regionmark/internal/ics"
	appLog "regionmark/internal/log"
	"regionmark/internal/model"
	"regionmark/internal/region"
	"regionmark/internal/render"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleRegions returns computed regions for a window.
//
// GET /api/regions?from=&to=&theme=
//   - from, to: RFC3339, YYYY-MM-DD or epoch millis; default is the
//     configured backfill/horizon around now
//   - theme: dark or light; default from config
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.Regions(r.Context(), win, s.themeFromQuery(r))
	if err != nil {
		writeComputeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type ruleDTO struct {
	Index int              `json:"index"`
	Raw   model.TimeRegion `json:"raw"`
	Rule  region.Rule      `json:"rule"`
	Inert bool             `json:"inert"`
	Text  string           `json:"text"`
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	rules := region.NormalizeAll(s.cfg.Regions)
	out := make([]ruleDTO, len(rules))
	for i, rule := range rules {
		out[i] = ruleDTO{Index: i, Raw: s.cfg.Regions[i], Rule: rule, Inert: rule.Inert(), Text: rule.String()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleColorModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, region.ColorModes())
}

// handleExport serves the configured rules as an iCalendar feed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := region.ValidateWindowSpan(win, s.cfg.MaxWindowDays); err != nil {
		writeComputeError(w, err)
		return
	}
	body, err := ics.ExportRules(region.NormalizeAll(s.cfg.Regions), win, s.now())
	if err != nil {
		writeComputeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="regions.ics"`)
	_, _ = w.Write([]byte(body))
}

var previewPage = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; }
body.dark { background: #161719; }
body.light { background: #FFFFFF; }
</style>
</head>
<body class="{{.Theme}}">
{{.SVG}}
</body>
</html>
`))

type previewData struct {
	Title string
	Theme string
	SVG   template.HTML
}

// handlePreview renders the regions of a window as an HTML page wrapping an
// inline SVG. Capture waits for the SVG's data-ready attribute.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	theme := s.themeFromQuery(r)
	resp, err := s.Regions(r.Context(), win, theme)
	if err != nil {
		writeComputeError(w, err)
		return
	}

	title := fmt.Sprintf("Time regions %s .. %s", resp.From.Format("2006-01-02 15:04"), resp.To.Format("2006-01-02 15:04"))
	svg := render.SVG(resp.Markings(), win, render.Options{
		Width:  s.cfg.Preview.Width,
		Height: s.cfg.Preview.Height,
		Theme:  theme,
		Title:  title,
	})

	var buf bytes.Buffer
	if err := previewPage.Execute(&buf, previewData{Title: title, Theme: theme.String(), SVG: template.HTML(svg)}); err != nil {
		appLog.Error("preview template failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render preview")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePreviewPNG serves the last captured PNG from disk.
func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Preview.Output)
}

func (s *Server) windowFromQuery(r *http.Request) (model.Window, error) {
	win := model.DefaultWindow(s.now(), s.cfg.BackfillDays, s.cfg.HorizonDays)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := model.ParseInstant(v)
		if err != nil {
			return model.Window{}, fmt.Errorf("from: %w", err)
		}
		win.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := model.ParseInstant(v)
		if err != nil {
			return model.Window{}, fmt.Errorf("to: %w", err)
		}
		win.To = t
	}
	return win, nil
}

func (s *Server) themeFromQuery(r *http.Request) region.Theme {
	if v := r.URL.Query().Get("theme"); v != "" {
		return region.ParseTheme(v)
	}
	return region.ParseTheme(s.cfg.Theme)
}

func writeComputeError(w http.ResponseWriter, err error) {
	if errors.Is(err, region.ErrInvalidWindow) || errors.Is(err, region.ErrWindowTooLarge) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	appLog.Error("region computation failed", err)
	writeError(w, http.StatusInternalServerError, "failed to compute regions")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
