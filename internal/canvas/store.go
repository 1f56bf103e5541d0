package canvas

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/example/beamdeck/internal/geom"
)

// Store owns the State of one image. Every mutation goes through a typed
// setter that compares the old and new value and, when they differ, stores
// the value and publishes exactly one event.
type Store struct {
	mu   sync.RWMutex
	st   State
	subs map[*Subscription]struct{}
	log  *slog.Logger
}

// Option modifies a Store during creation.
type Option func(*Store)

// WithState seeds the store, for example from a saved gallery. The state is
// normalized and its revision kept.
func WithState(st State) Option {
	return func(s *Store) { s.st = st.normalize() }
}

// WithLogger sets the logger used for rejected updates.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates a store holding DefaultState unless overridden.
func NewStore(opts ...Option) *Store {
	s := &Store{
		st:   DefaultState(),
		subs: make(map[*Subscription]struct{}),
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.clone()
}

// Revision returns the current revision counter.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Revision
}

// update applies fn under the lock. fn reports whether anything changed.
func (s *Store) update(field Field, fn func(st *State) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fn(&s.st) {
		return false
	}
	class := field.Class()
	if class == Heavy {
		s.st.Revision++
	}
	s.publish(Event{Class: class, Field: field, Revision: s.st.Revision})
	return true
}

// SetRotation sets the image rotation. Any multiple of 90 is accepted.
func (s *Store) SetRotation(deg int) error {
	r, err := geom.NormalizeRotation(deg)
	if err != nil {
		s.log.Debug("rotation rejected", "deg", deg, "err", err)
		return err
	}
	s.update(FieldRotation, func(st *State) bool {
		if st.Rotation == r {
			return false
		}
		st.Rotation = r
		return true
	})
	return nil
}

// RotateClockwise turns the image a quarter turn clockwise.
func (s *Store) RotateClockwise() {
	s.update(FieldRotation, func(st *State) bool {
		st.Rotation = st.Rotation.Add(geom.Rot90)
		return true
	})
}

// SetROIEnabled toggles projection of the ROI only.
func (s *Store) SetROIEnabled(on bool) {
	s.update(FieldROIEnabled, func(st *State) bool {
		if st.ROIEnabled == on {
			return false
		}
		st.ROIEnabled = on
		return true
	})
}

// SetROI replaces the ROI. The rectangle is squared to its width and
// clamped inside the image.
func (s *Store) SetROI(r NormalizedRect) {
	r = r.Square()
	s.update(FieldROI, func(st *State) bool {
		if st.ROI == r {
			return false
		}
		st.ROI = r
		return true
	})
}

// MoveROI places the top-left corner of the ROI, keeping its size.
func (s *Store) MoveROI(x, y float64) {
	s.update(FieldROI, func(st *State) bool {
		r := NormalizedRect{X: x, Y: y, W: st.ROI.W, H: st.ROI.H}.Clamp()
		if st.ROI == r {
			return false
		}
		st.ROI = r
		return true
	})
}

// SetMagnifierSize resizes the ROI to v percent of the image, keeping its
// centre where possible. v is clamped to [MinMagnifier, MaxMagnifier].
func (s *Store) SetMagnifierSize(v int) {
	v = clampMagnifier(v)
	s.update(FieldROI, func(st *State) bool {
		r := magnifierRect(st.ROI.Center(), v)
		if st.ROI == r && st.Magnifier == v {
			return false
		}
		st.ROI = r
		st.Magnifier = v
		return true
	})
}

// SetROIRotation sets the ROI rotation. Values are reduced modulo 180 so
// only 0 and 90 remain.
func (s *Store) SetROIRotation(deg int) error {
	n, err := geom.NormalizeRotation(deg)
	if err != nil {
		return err
	}
	r := roiRotation(n)
	s.update(FieldROIRotation, func(st *State) bool {
		if st.ROIRotation == r {
			return false
		}
		st.ROIRotation = r
		return true
	})
	return nil
}

// ToggleROIRotation flips the ROI between 0 and 90 degrees and re-applies the
// current magnifier size.
func (s *Store) ToggleROIRotation() {
	s.update(FieldROIRotation, func(st *State) bool {
		st.ROIRotation = roiRotation(st.ROIRotation + geom.Rot90)
		st.ROI = magnifierRect(st.ROI.Center(), st.Magnifier)
		return true
	})
}

// SetBrightness sets the multiplicative brightness, clamped to
// [MinBrightness, MaxBrightness].
func (s *Store) SetBrightness(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = clamp(v, MinBrightness, MaxBrightness)
	s.update(FieldBrightness, func(st *State) bool {
		if st.Brightness == v {
			return false
		}
		st.Brightness = v
		return true
	})
}

// SetAutoContrast applies or undoes the auto-contrast stretch.
func (s *Store) SetAutoContrast(on bool) {
	s.update(FieldAutoContrast, func(st *State) bool {
		if st.AutoContrast == on {
			return false
		}
		st.AutoContrast = on
		return true
	})
}

// SetDisplayMode selects how the projector places the composite.
func (s *Store) SetDisplayMode(m DisplayMode) error {
	if m < DisplayFit || m > DisplayTile {
		return fmt.Errorf("invalid display mode %d", int(m))
	}
	s.update(FieldDisplayMode, func(st *State) bool {
		if st.DisplayMode == m {
			return false
		}
		st.DisplayMode = m
		return true
	})
	return nil
}

// SetAspect records the projector aspect ratio (width / height).
func (s *Store) SetAspect(a float64) error {
	if !(a > 0) || math.IsInf(a, 0) {
		return fmt.Errorf("invalid aspect ratio %v", a)
	}
	s.update(FieldAspect, func(st *State) bool {
		if st.Aspect == a {
			return false
		}
		st.Aspect = a
		return true
	})
	return nil
}

// SetTool changes the active tool.
func (s *Store) SetTool(t Tool) {
	if t < ToolNone || t > ToolLaser {
		t = ToolNone
	}
	s.update(FieldTool, func(st *State) bool {
		if st.Tool == t {
			return false
		}
		st.Tool = t
		return true
	})
}

// SetStyle changes the colour and thickness of a drawing tool.
func (s *Store) SetStyle(t Tool, style Style) error {
	if !t.Draws() {
		return fmt.Errorf("tool %s has no style", t)
	}
	if !(style.Thickness > 0) || math.IsInf(style.Thickness, 0) {
		return fmt.Errorf("invalid thickness %v", style.Thickness)
	}
	s.update(FieldStyle, func(st *State) bool {
		cur := &st.Pen
		if t == ToolHighlighter {
			cur = &st.Highlighter
		}
		if *cur == style {
			return false
		}
		*cur = style
		return true
	})
	return nil
}

// AddStroke appends a stroke drawn with the active tool. It does nothing
// unless the tool is pen or highlighter and the path has at least two
// points.
func (s *Store) AddStroke(points []geom.Point) bool {
	if len(points) < 2 {
		return false
	}
	pts := make([]geom.Point, len(points))
	copy(pts, points)
	return s.update(FieldStrokes, func(st *State) bool {
		style, ok := st.StyleFor(st.Tool)
		if !ok {
			return false
		}
		stroke := Stroke{Points: pts, Color: style.Color, Thickness: style.Thickness, Tool: st.Tool}
		if !stroke.Valid() {
			return false
		}
		st.Strokes = append(st.Strokes, stroke)
		return true
	})
}

// ClearStrokes removes every stroke. No event is sent when the list was
// already empty.
func (s *Store) ClearStrokes() {
	s.update(FieldStrokes, func(st *State) bool {
		if len(st.Strokes) == 0 {
			return false
		}
		st.Strokes = nil
		return true
	})
}

// SetPointer moves the pointer to a normalized position.
func (s *Store) SetPointer(p geom.Point) {
	if !p.Finite() {
		return
	}
	s.update(FieldPointer, func(st *State) bool {
		if st.PointerVisible && st.Pointer == p {
			return false
		}
		st.Pointer = p
		st.PointerVisible = true
		return true
	})
}

// HidePointer removes the pointer.
func (s *Store) HidePointer() {
	s.update(FieldPointer, func(st *State) bool {
		if !st.PointerVisible {
			return false
		}
		st.PointerVisible = false
		return true
	})
}

// SetPointerStyle changes the pointer glyph.
func (s *Store) SetPointerStyle(p PointerStyle) {
	s.update(FieldPointerStyle, func(st *State) bool {
		if st.PointerStyle == p {
			return false
		}
		st.PointerStyle = p
		return true
	})
}

// Tick advances the pointer animation. The frame counter always moves; an
// event is only sent while the laser tool is active.
func (s *Store) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Frame++
	if s.st.Tool != ToolLaser {
		return
	}
	s.publish(Event{Class: Light, Field: FieldFrame, Revision: s.st.Revision})
}

// ResetTool drops the active tool and hides the pointer, as done when an
// image is (re)loaded.
func (s *Store) ResetTool() {
	s.SetTool(ToolNone)
	s.HidePointer()
}
