package theme

import (
	"image/color"
)

// Theme defines the colours of the preview and projector surfaces and the
// operator panel. Colours are non-premultiplied.
type Theme struct {
	Name string

	// Preview
	Background color.NRGBA // Preview window behind the letterbox
	Letterbox  color.NRGBA // Projector-shaped area on the preview
	Message    color.NRGBA // Text shown when nothing is loaded
	ROIOutline color.NRGBA

	// Pointer glyph
	PointerHalo color.NRGBA
	PointerCore color.NRGBA

	// Projector
	Projector color.NRGBA // Default projector background

	// Operator panel
	PanelAccent color.NRGBA
	PanelText   color.NRGBA
	PanelMuted  color.NRGBA
}

// Default returns the hardcoded default theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:        "default",
		Background:  color.NRGBA{32, 32, 32, 255},
		Letterbox:   color.NRGBA{0, 0, 0, 255},
		Message:     color.NRGBA{221, 221, 221, 255},
		ROIOutline:  color.NRGBA{255, 255, 0, 220},
		PointerHalo: color.NRGBA{255, 0, 0, 50},
		PointerCore: color.NRGBA{255, 100, 100, 255},
		Projector:   color.NRGBA{0, 0, 0, 255},
		PanelAccent: color.NRGBA{255, 215, 0, 255},
		PanelText:   color.NRGBA{238, 238, 238, 255},
		PanelMuted:  color.NRGBA{136, 136, 136, 255},
	}
}
