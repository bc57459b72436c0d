package region

import (
	"regionmark/internal/model"
)

// Result is everything a renderer needs for one configured region.
type Result struct {
	Index       int                `json:"index"`
	Rule        Rule               `json:"rule"`
	Inert       bool               `json:"inert"`
	Colors      Colors             `json:"colors"`
	Occurrences []model.Occurrence `json:"occurrences"`
	Markings    []Marking          `json:"markings"`
}

// Compute runs the per-render pipeline for a list of raw regions: normalize,
// expand against w, resolve colours and build markings. Results keep the
// input order and length; inert regions yield empty results.
func Compute(regions []model.TimeRegion, w model.Window, theme Theme) ([]Result, error) {
	if err := ValidateWindow(w); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(regions))
	for i, raw := range regions {
		rule := Normalize(raw)

		// Window already validated; Expand cannot fail here.
		occs, _ := Expand(rule, w)

		colors := ResolveColors(rule.Style, theme)
		out = append(out, Result{
			Index:       i,
			Rule:        rule,
			Inert:       rule.Inert(),
			Colors:      colors,
			Occurrences: occs,
			Markings:    BuildMarkings(occs, rule.Style, colors),
		})
	}
	return out, nil
}
