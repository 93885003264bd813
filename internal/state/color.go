package state

import (
	"image/color"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultColor = "#FFD700"
	DefaultWidth = 3.0
)

// Palette is the preset colour list offered by the toolbar.
var Palette = []string{
	DefaultColor,
	"#FF0000", // red
	"#00FF00", // green
	"#0000FF", // blue
	"#FFFF00", // yellow
	"#FF00FF", // magenta
	"#00FFFF", // cyan
	"#FFA500", // orange
	"#FFFFFF",
	"#000000",
}

// WidthPresets are the brush sizes offered by the toolbar.
var WidthPresets = []float64{2, 3, 5, 8}

// ValidWidth reports whether w can be used as a stroke width: positive and
// finite.
func ValidWidth(w float64) bool {
	return w > 0 && !math.IsInf(w, 0)
}

// CanonicalColor validates a "#RRGGBB" string and returns it upper-cased.
func CanonicalColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return "", false
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return "", false
	}
	return strings.ToUpper(c.Hex()), true
}

// RGBA converts a stored colour to an opaque color.RGBA, falling back to the
// default colour for anything unparsable.
func RGBA(s string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		c, _ = colorful.Hex(DefaultColor)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
