package region

import (
	"time"

	"github.com/samber/mo"

	"regionmark/internal/model"
)

// MarkingKind distinguishes shaded bands from boundary lines.
type MarkingKind string

const (
	MarkingFill MarkingKind = "fill"
	MarkingLine MarkingKind = "line"
)

// Marking is one drawable x-axis marking. Line markings have From == To.
type Marking struct {
	Kind  MarkingKind       `json:"kind"`
	From  time.Time         `json:"from"`
	To    time.Time         `json:"to"`
	Color mo.Option[string] `json:"color"`
}

// BuildMarkings emits, per occurrence, one fill marking when s.Fill is set
// and a line marking at each bound when s.Line is set.
func BuildMarkings(occs []model.Occurrence, s Style, colors Colors) []Marking {
	n := 0
	if s.Fill {
		n++
	}
	if s.Line {
		n += 2
	}
	out := make([]Marking, 0, n*len(occs))

	for _, o := range occs {
		if s.Fill {
			out = append(out, Marking{Kind: MarkingFill, From: o.From, To: o.To, Color: colors.Fill})
		}
		if s.Line {
			out = append(out,
				Marking{Kind: MarkingLine, From: o.From, To: o.From, Color: colors.Line},
				Marking{Kind: MarkingLine, From: o.To, To: o.To, Color: colors.Line},
			)
		}
	}
	return out
}
