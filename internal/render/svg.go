// Package render draws region markings as a standalone SVG timeline, used
// for previews and PNG snapshots.
package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"regionmark/internal/model"
	"regionmark/internal/region"
)

const (
	marginLeft   = 12.0
	marginRight  = 12.0
	marginTop    = 28.0
	marginBottom = 28.0

	defaultFill = "rgba(120, 120, 120, 0.15)"
	defaultLine = "rgba(120, 120, 120, 0.60)"
)

// Options controls the image size, theme and caption.
type Options struct {
	Width  int
	Height int
	Theme  region.Theme
	Title  string
}

type palette struct {
	background string
	grid       string
	text       string
}

func paletteFor(t region.Theme) palette {
	if t == region.ThemeLight {
		return palette{background: "#FFFFFF", grid: "#E4E4E4", text: "#464C54"}
	}
	return palette{background: "#161719", grid: "#2C3235", text: "#C7D0D9"}
}

// SVG draws every marking over w. Fill markings are bands spanning the plot
// height; line markings are vertical rules. Markings outside w are clipped
// to the plot area. The root element carries data-ready="true" so capture
// can wait on it.
func SVG(markings []region.Marking, w model.Window, opts Options) []byte {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 360
	}
	w = w.UTC()
	p := paletteFor(opts.Theme)

	plotW := float64(opts.Width) - marginLeft - marginRight
	plotH := float64(opts.Height) - marginTop - marginBottom
	span := w.To.Sub(w.From)
	if span <= 0 {
		span = time.Second
	}
	x := func(t time.Time) float64 {
		f := float64(t.Sub(w.From)) / float64(span)
		f = min(max(f, 0), 1)
		return marginLeft + f*plotW
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" data-ready="true">`,
		opts.Width, opts.Height, opts.Width, opts.Height)
	b.WriteByte('\n')
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`+"\n", opts.Width, opts.Height, p.background)

	if opts.Title != "" {
		fmt.Fprintf(&b, `<text x="%.1f" y="18" fill="%s" font-family="sans-serif" font-size="13">%s</text>`+"\n",
			marginLeft, p.text, escape(opts.Title))
	}

	// Day grid.
	for d := nextMidnight(w.From); !d.After(w.To); d = d.Add(24 * time.Hour) {
		dx := x(d)
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`+"\n",
			dx, marginTop, dx, marginTop+plotH, p.grid)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" fill="%s" font-family="sans-serif" font-size="11">%s</text>`+"\n",
			dx+3, marginTop+plotH+16, p.text, d.Format("Mon 02"))
	}

	for _, m := range markings {
		switch m.Kind {
		case region.MarkingFill:
			x1, x2 := x(m.From), x(m.To)
			if x2 < x1 {
				x1, x2 = x2, x1
			}
			fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
				x1, marginTop, x2-x1, plotH, escape(m.Color.OrElse(defaultFill)))
		case region.MarkingLine:
			lx := x(m.From)
			fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`+"\n",
				lx, marginTop, lx, marginTop+plotH, escape(m.Color.OrElse(defaultLine)))
		}
	}

	fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="%s"/>`+"\n",
		marginLeft, marginTop, plotW, plotH, p.grid)
	b.WriteString("</svg>\n")
	return b.Bytes()
}

func nextMidnight(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(t) {
		d = d.Add(24 * time.Hour)
	}
	return d
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
