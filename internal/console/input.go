package console

import (
	"image"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/surface"
)

// PointerKind is the phase of a preview pointer event.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerPress
	PointerRelease
	// PointerLeave is sent when the preview loses the pointer.
	PointerLeave
)

// PointerEvent is a mouse event on the preview surface. Bounds is the
// surface size at the time of the event.
type PointerEvent struct {
	Kind   PointerKind
	Pos    geom.Point
	Bounds image.Rectangle
}

// Input turns preview pointer events into store mutations: drawing tools
// record strokes over the image, a press on the ROI drags it, and the laser
// follows the pointer inside the letterboxed screen.
type Input struct {
	rec  *canvas.Recorder
	drag surface.Drag
}

// Handle applies ev to store. It reports whether the stroke in progress
// changed and the preview needs a redraw.
func (in *Input) Handle(store *canvas.Store, l surface.Layout, ev PointerEvent) bool {
	switch ev.Kind {
	case PointerPress:
		return in.press(store, l, ev.Pos)
	case PointerMove:
		return in.move(store, l, ev.Pos)
	case PointerRelease:
		return in.release(store, l, ev.Pos)
	case PointerLeave:
		in.Cancel()
		store.HidePointer()
		return true
	}
	return false
}

// Cancel drops any stroke or drag in progress.
func (in *Input) Cancel() {
	if in.rec != nil {
		in.rec.Cancel()
		in.rec = nil
	}
	in.drag.End()
}

// Live returns the normalized stroke in progress, or nil.
func (in *Input) Live() []geom.Point {
	if in.rec == nil || !in.rec.Active() {
		return nil
	}
	return in.rec.Points()
}

func (in *Input) press(store *canvas.Store, l surface.Layout, p geom.Point) bool {
	in.Cancel()
	st := store.Snapshot()
	in.follow(store, st, l, p)
	if st.Tool.Draws() && l.OverImage(p) {
		m, err := l.SurfaceToNormalized()
		if err != nil {
			return false
		}
		in.rec = canvas.NewRecorder(store)
		in.rec.Begin(p, m)
		return true
	}
	in.drag.Begin(st, l.Display, p)
	return false
}

func (in *Input) move(store *canvas.Store, l surface.Layout, p geom.Point) bool {
	st := store.Snapshot()
	in.follow(store, st, l, p)
	if in.rec != nil && in.rec.Active() {
		in.rec.Extend(p)
		return true
	}
	if x, y, ok := in.drag.Move(p); ok {
		store.MoveROI(x, y)
	}
	return false
}

func (in *Input) release(store *canvas.Store, l surface.Layout, p geom.Point) bool {
	if in.rec != nil && in.rec.Active() {
		in.rec.Extend(p)
		in.rec.End()
		in.rec = nil
		return true
	}
	if x, y, ok := in.drag.Move(p); ok {
		store.MoveROI(x, y)
	}
	in.drag.End()
	return false
}

// follow moves the laser pointer, hiding it outside the screen area.
func (in *Input) follow(store *canvas.Store, st canvas.State, l surface.Layout, p geom.Point) {
	if st.Tool != canvas.ToolLaser {
		return
	}
	if q, ok := l.ToScreen(p); ok {
		store.SetPointer(q)
		return
	}
	store.HidePointer()
}
