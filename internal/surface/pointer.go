package surface

import (
	"github.com/fogleman/gg"

	"github.com/example/beamdeck/internal/canvas"
	"github.com/example/beamdeck/internal/geom"
	"github.com/example/beamdeck/internal/theme"
)

// Pointer glyph geometry in surface pixels.
const (
	pointerCore     = 5.0
	pointerHaloBase = 15.0
	pointerHaloGrow = 5.0
)

// PointerRadii returns the halo and core radius for an animation frame. The
// halo pulses over a ten frame cycle.
func PointerRadii(frame uint64) (halo, core float64) {
	return pointerHaloBase + pointerHaloGrow*(1+float64(frame%10)/10), pointerCore
}

// DrawPointer draws the pointer glyph centred on c.
func DrawPointer(dc *gg.Context, c geom.Point, style canvas.PointerStyle, frame uint64, th *theme.Theme) {
	halo, core := PointerRadii(frame)
	if style == canvas.PointerGlow {
		dc.DrawCircle(c.X, c.Y, halo)
		dc.SetColor(th.PointerHalo)
		dc.Fill()
	}
	dc.DrawCircle(c.X, c.Y, core)
	dc.SetColor(th.PointerCore)
	dc.Fill()
}
