package render

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regionmark/internal/model"
	"regionmark/internal/region"
)

func TestSVG(t *testing.T) {
	w := model.Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	markings := []region.Marking{
		{Kind: region.MarkingFill, From: w.From.Add(-2 * time.Hour), To: w.From.Add(6 * time.Hour), Color: mo.Some("#123456")},
		{Kind: region.MarkingLine, From: w.From.Add(24 * time.Hour), To: w.From.Add(24 * time.Hour)},
	}

	out := SVG(markings, w, Options{Width: 212, Height: 100, Title: "Nights & weekends"})
	s := string(out)

	// Well-formed XML.
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		_, err := dec.Token()
		if err != nil {
			assert.Equal(t, "EOF", err.Error())
			break
		}
	}

	assert.Contains(t, s, `data-ready="true"`)
	assert.Contains(t, s, "Nights &amp; weekends")
	// Plot is 188 wide, so 6h of 48h starts clipped at 12 and ends at 12+23.5.
	assert.Contains(t, s, `<rect x="12.0" y="28.0" width="23.5" height="44.0" fill="#123456"/>`)
	assert.Contains(t, s, `stroke="`+defaultLine+`"`)
	assert.Contains(t, s, "Tue 02")
	assert.Contains(t, s, "Wed 03")
	assert.NotContains(t, s, "Sun 31")
}

func TestSVG_DegenerateWindow(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	out := SVG(nil, model.Window{From: at, To: at}, Options{Theme: region.ThemeLight})

	require.NotEmpty(t, out)
	assert.Contains(t, string(out), `width="1200"`)
	assert.Contains(t, string(out), "#FFFFFF")
}
