package region

import (
	"strings"

	"github.com/samber/mo"
)

// ColorMode selects a colour preset. Unknown names never reach this type;
// ParseColorMode maps them to DefaultColorMode.
type ColorMode uint8

const (
	ColorRed ColorMode = iota
	ColorGray
	ColorGreen
	ColorBlue
	ColorYellow
	ColorCustom
)

// DefaultColorMode is used for empty or unknown colour mode names.
const DefaultColorMode = ColorRed

var colorModeKeys = [...]string{
	ColorRed:    "red",
	ColorGray:   "gray",
	ColorGreen:  "green",
	ColorBlue:   "blue",
	ColorYellow: "yellow",
	ColorCustom: "custom",
}

var colorModeTitles = [...]string{
	ColorRed:    "Red",
	ColorGray:   "Gray",
	ColorGreen:  "Green",
	ColorBlue:   "Blue",
	ColorYellow: "Yellow",
	ColorCustom: "Custom",
}

// ParseColorMode maps a configured name to a ColorMode.
func ParseColorMode(s string) ColorMode {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, k := range colorModeKeys {
		if k == s {
			return ColorMode(i)
		}
	}
	return DefaultColorMode
}

func (m ColorMode) String() string {
	if int(m) < len(colorModeKeys) {
		return colorModeKeys[m]
	}
	return colorModeKeys[DefaultColorMode]
}

// Title is the human-readable name of the mode.
func (m ColorMode) Title() string {
	if int(m) < len(colorModeTitles) {
		return colorModeTitles[m]
	}
	return colorModeTitles[DefaultColorMode]
}

func (m ColorMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ColorMode) UnmarshalText(b []byte) error {
	*m = ParseColorMode(string(b))
	return nil
}

// ColorModeOption is a selectable entry for configuration UIs.
type ColorModeOption struct {
	Key   string `json:"key"`
	Title string `json:"value"`
}

// ColorModes lists every mode in presentation order.
func ColorModes() []ColorModeOption {
	order := []ColorMode{ColorGray, ColorRed, ColorGreen, ColorBlue, ColorYellow, ColorCustom}
	out := make([]ColorModeOption, 0, len(order))
	for _, m := range order {
		out = append(out, ColorModeOption{Key: m.String(), Title: m.Title()})
	}
	return out
}

// Theme is the chart theme colours are resolved against.
type Theme uint8

const (
	ThemeDark Theme = iota
	ThemeLight
)

// ParseTheme accepts "dark" and "light"; anything else is dark.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), "light") {
		return ThemeLight
	}
	return ThemeDark
}

func (t Theme) String() string {
	if t == ThemeLight {
		return "light"
	}
	return "dark"
}

func (t Theme) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Colors is the resolved fill/line pair of a region. A colour is absent when
// the region did not ask for that kind of marking or supplied no value.
type Colors struct {
	Fill mo.Option[string] `json:"fill"`
	Line mo.Option[string] `json:"line"`
}

type colorPair struct {
	fill string
	line string
}

// preset returns the built-in pair for m. Gray is the only theme-dependent
// preset; custom has none.
func (m ColorMode) preset(theme Theme) (colorPair, bool) {
	switch m {
	case ColorGray:
		if theme == ThemeLight {
			return colorPair{fill: "rgba(0, 0, 0, 0.09)", line: "rgba(0, 0, 0, 0.2)"}, true
		}
		return colorPair{fill: "rgba(255, 255, 255, 0.09)", line: "rgba(255, 255, 255, 0.2)"}, true
	case ColorRed:
		return colorPair{fill: "rgba(234, 112, 112, 0.12)", line: "rgba(237, 46, 24, 0.60)"}, true
	case ColorGreen:
		return colorPair{fill: "rgba(11, 237, 50, 0.090)", line: "rgba(6,163,69, 0.60)"}, true
	case ColorBlue:
		return colorPair{fill: "rgba(11, 125, 238, 0.12)", line: "rgba(11, 125, 238, 0.60)"}, true
	case ColorYellow:
		return colorPair{fill: "rgba(235, 138, 14, 0.12)", line: "rgba(247, 149, 32, 0.60)"}, true
	default:
		return colorPair{}, false
	}
}

// ResolveColors resolves the fill and line colours of a style. Custom mode
// reads the user-supplied values; every other mode reads its preset.
func ResolveColors(s Style, theme Theme) Colors {
	if s.ColorMode == ColorCustom {
		return Colors{
			Fill: requested(s.Fill, s.FillColor, theme),
			Line: requested(s.Line, s.LineColor, theme),
		}
	}

	p, ok := s.ColorMode.preset(theme)
	if !ok {
		p, _ = DefaultColorMode.preset(theme)
	}
	return Colors{
		Fill: requested(s.Fill, p.fill, theme),
		Line: requested(s.Line, p.line, theme),
	}
}

func requested(on bool, color string, theme Theme) mo.Option[string] {
	if !on || strings.TrimSpace(color) == "" {
		return mo.None[string]()
	}
	return mo.Some(ColorFromHexRgbOrName(color, theme))
}

type namedColor struct {
	dark  string
	light string
}

// namedColors is the palette user-supplied colour names resolve against.
var namedColors = map[string]namedColor{
	"red":         {dark: "#E02F44", light: "#E02F44"},
	"dark-red":    {dark: "#C4162A", light: "#C4162A"},
	"orange":      {dark: "#FF780A", light: "#FA6400"},
	"yellow":      {dark: "#FADE2A", light: "#F2CC0C"},
	"green":       {dark: "#56A64B", light: "#37872D"},
	"dark-green":  {dark: "#37872D", light: "#19730E"},
	"blue":        {dark: "#3274D9", light: "#1F60C4"},
	"dark-blue":   {dark: "#1F60C4", light: "#1250B0"},
	"purple":      {dark: "#A352CC", light: "#8F3BB8"},
	"white":       {dark: "#FFFFFF", light: "#FFFFFF"},
	"black":       {dark: "#000000", light: "#000000"},
	"gray":        {dark: "#8E8E8E", light: "#7B7B7B"},
	"transparent": {dark: "transparent", light: "transparent"},
}

// ColorFromHexRgbOrName resolves a colour string for theme. Hex and rgb/rgba
// values pass through; known names map to the theme palette; unknown names
// are returned unchanged.
func ColorFromHexRgbOrName(color string, theme Theme) string {
	c := strings.TrimSpace(color)
	lc := strings.ToLower(c)
	if strings.HasPrefix(lc, "#") || strings.HasPrefix(lc, "rgb") {
		return c
	}
	if nc, ok := namedColors[lc]; ok {
		if theme == ThemeLight {
			return nc.light
		}
		return nc.dark
	}
	return c
}
