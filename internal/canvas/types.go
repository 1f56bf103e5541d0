package canvas

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/example/beamdeck/internal/geom"
)

// Tool is the active input tool of the preview surface.
type Tool int

const (
	ToolNone Tool = iota
	ToolPen
	ToolHighlighter
	ToolLaser
)

var toolNames = []string{"none", "pen", "highlighter", "laser"}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("tool(%d)", int(t))
	}
	return toolNames[t]
}

// Draws reports whether the tool leaves annotation strokes.
func (t Tool) Draws() bool { return t == ToolPen || t == ToolHighlighter }

// ParseTool resolves a tool by name.
func ParseTool(s string) (Tool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range toolNames {
		if n == s {
			return Tool(i), nil
		}
	}
	return ToolNone, fmt.Errorf("unknown tool %q", s)
}

// DisplayMode controls how the projector composite is placed on its surface.
type DisplayMode int

const (
	DisplayFit DisplayMode = iota
	DisplayFill
	DisplayStretch
	DisplayCenter
	DisplayTile
)

var displayModeNames = []string{"fit", "fill", "stretch", "center", "tile"}

func (m DisplayMode) String() string {
	if m < 0 || int(m) >= len(displayModeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return displayModeNames[m]
}

// DisplayModes lists every mode in cycling order.
func DisplayModes() []DisplayMode {
	return []DisplayMode{DisplayFit, DisplayFill, DisplayStretch, DisplayCenter, DisplayTile}
}

// ParseDisplayMode accepts the short names and the long labels written by
// older gallery files such as "Ajustar (Fit)".
func ParseDisplayMode(s string) (DisplayMode, error) {
	key := strings.TrimSpace(s)
	if open := strings.LastIndex(key, "("); open >= 0 && strings.HasSuffix(key, ")") {
		key = key[open+1 : len(key)-1]
	}
	key = strings.ToLower(strings.TrimSpace(key))
	for i, n := range displayModeNames {
		if n == key {
			return DisplayMode(i), nil
		}
	}
	return DisplayFit, fmt.Errorf("unknown display mode %q", s)
}

// PointerStyle selects the pointer glyph.
type PointerStyle int

const (
	PointerGlow PointerStyle = iota
	PointerSpot
)

func (p PointerStyle) String() string {
	if p == PointerSpot {
		return "spot"
	}
	return "glow"
}

// ParsePointerStyle resolves "glow" or "spot".
func ParsePointerStyle(s string) (PointerStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "glow", "":
		return PointerGlow, nil
	case "spot":
		return PointerSpot, nil
	}
	return PointerGlow, fmt.Errorf("unknown pointer style %q", s)
}

// NormalizedRect is a rectangle in image-relative coordinates where the
// image spans [0,1] on both axes.
type NormalizedRect struct {
	X, Y, W, H float64
}

// MinROISize is the smallest side the ROI may shrink to.
const MinROISize = 0.01

// Clamp keeps the size, limited to [0,1], and moves the rectangle inside the
// unit square.
func (r NormalizedRect) Clamp() NormalizedRect {
	r.W = clamp(finiteOr(r.W, 0), 0, 1)
	r.H = clamp(finiteOr(r.H, 0), 0, 1)
	r.X = clamp(finiteOr(r.X, 0), 0, 1-r.W)
	r.Y = clamp(finiteOr(r.Y, 0), 0, 1-r.H)
	return r
}

// Square forces W == H using the width and clamps the result.
func (r NormalizedRect) Square() NormalizedRect {
	side := clamp(finiteOr(r.W, MinROISize), MinROISize, 1)
	c := r.Center()
	return NormalizedRect{X: c.X - side/2, Y: c.Y - side/2, W: side, H: side}.Clamp()
}

// Center returns the midpoint.
func (r NormalizedRect) Center() geom.Point {
	return geom.Pt(r.X+r.W/2, r.Y+r.H/2)
}

// In maps r into the area rectangle.
func (r NormalizedRect) In(area geom.Rect) geom.Rect {
	return geom.R(area.X+r.X*area.W, area.Y+r.Y*area.H, r.W*area.W, r.H*area.H)
}

// Style is the colour and thickness used by a drawing tool.
type Style struct {
	Color     color.NRGBA
	Thickness float64
}

// Default tool styles.
var (
	DefaultPen         = Style{Color: color.NRGBA{R: 255, A: 255}, Thickness: 5}
	DefaultHighlighter = Style{Color: color.NRGBA{R: 255, G: 255, A: 100}, Thickness: 25}
)

// Stroke is a free-hand annotation path. Points are normalized image
// coordinates and Thickness is in source pixels.
type Stroke struct {
	Points    []geom.Point
	Color     color.NRGBA
	Thickness float64
	Tool      Tool
}

// Valid reports whether the stroke can be drawn.
func (s Stroke) Valid() bool {
	if len(s.Points) < 2 || !(s.Thickness > 0) || math.IsInf(s.Thickness, 0) {
		return false
	}
	for _, p := range s.Points {
		if !p.Finite() {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
