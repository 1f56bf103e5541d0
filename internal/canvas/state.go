package canvas

import (
	"math"
	"slices"

	"github.com/example/beamdeck/internal/geom"
)

// Brightness limits. 1.0 leaves the image unchanged.
const (
	MinBrightness = 0.2
	MaxBrightness = 2.0
)

// Magnifier size limits, in percent of the image width.
const (
	MinMagnifier     = 10
	MaxMagnifier     = 100
	DefaultMagnifier = 50
)

// DefaultAspect is the projector aspect ratio assumed until a surface
// reports its own.
const DefaultAspect = 16.0 / 9.0

// State is the per-image presentation state. Values returned by Store are
// copies and never change after they are handed out.
type State struct {
	Rotation     geom.Rotation
	ROIEnabled   bool
	ROI          NormalizedRect
	ROIRotation  geom.Rotation
	Magnifier    int
	Brightness   float64
	AutoContrast bool
	Strokes      []Stroke
	Pen          Style
	Highlighter  Style

	Pointer        geom.Point
	PointerVisible bool
	PointerStyle   PointerStyle
	Frame          uint64

	Tool        Tool
	DisplayMode DisplayMode
	Aspect      float64

	Revision uint64
}

// DefaultState returns the state of a freshly loaded image.
func DefaultState() State {
	return State{
		ROI:         NormalizedRect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
		Magnifier:   DefaultMagnifier,
		Brightness:  1,
		Pen:         DefaultPen,
		Highlighter: DefaultHighlighter,
		DisplayMode: DisplayFit,
		Aspect:      DefaultAspect,
	}
}

// StyleFor returns the drawing style of a tool.
func (s State) StyleFor(t Tool) (Style, bool) {
	switch t {
	case ToolPen:
		return s.Pen, true
	case ToolHighlighter:
		return s.Highlighter, true
	}
	return Style{}, false
}

// PointerActive reports whether the pointer glyph should be drawn.
func (s State) PointerActive() bool {
	return s.Tool == ToolLaser && s.PointerVisible
}

func (s State) clone() State {
	s.Strokes = slices.Clip(s.Strokes)
	return s
}

// normalize brings a state read from outside into its invariants.
func (s State) normalize() State {
	if r, err := geom.NormalizeRotation(int(s.Rotation)); err == nil {
		s.Rotation = r
	} else {
		s.Rotation = geom.Rot0
	}
	s.ROIRotation = roiRotation(s.ROIRotation)
	if s.Magnifier == 0 {
		s.Magnifier = int(s.ROI.W*100 + 0.5)
	}
	s.Magnifier = clampMagnifier(s.Magnifier)
	s.ROI = s.ROI.Square()
	s.Brightness = clamp(finiteOr(s.Brightness, 1), MinBrightness, MaxBrightness)
	if !(s.Aspect > 0) || math.IsInf(s.Aspect, 0) {
		s.Aspect = DefaultAspect
	}
	if s.Pen.Thickness <= 0 {
		s.Pen = DefaultPen
	}
	if s.Highlighter.Thickness <= 0 {
		s.Highlighter = DefaultHighlighter
	}
	kept := s.Strokes[:0:0]
	for _, st := range s.Strokes {
		if st.Valid() {
			kept = append(kept, st)
		}
	}
	s.Strokes = kept
	return s
}

func roiRotation(r geom.Rotation) geom.Rotation {
	n, err := geom.NormalizeRotation(int(r))
	if err != nil {
		return geom.Rot0
	}
	return geom.Rotation(int(n) % 180)
}

func clampMagnifier(v int) int {
	return min(max(v, MinMagnifier), MaxMagnifier)
}

func magnifierRect(center geom.Point, v int) NormalizedRect {
	side := float64(clampMagnifier(v)) / 100
	return NormalizedRect{X: center.X - side/2, Y: center.Y - side/2, W: side, H: side}.Clamp()
}
