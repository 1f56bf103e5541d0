package geom

import (
	"errors"
	"fmt"
)

// ErrNotQuarterTurn is returned for angles that are not a multiple of 90.
var ErrNotQuarterTurn = errors.New("rotation must be a multiple of 90 degrees")

// Rotation is a clockwise quarter turn in degrees: 0, 90, 180 or 270.
type Rotation int

const (
	Rot0   Rotation = 0
	Rot90  Rotation = 90
	Rot180 Rotation = 180
	Rot270 Rotation = 270
)

// NormalizeRotation maps any multiple of 90, negative included, into
// [0, 360).
func NormalizeRotation(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrNotQuarterTurn, deg)
	}
	return Rotation(((deg % 360) + 360) % 360), nil
}

// Add returns r+o modulo 360.
func (r Rotation) Add(o Rotation) Rotation {
	return Rotation(((int(r)+int(o))%360 + 360) % 360)
}

// Sub returns r-o modulo 360, always in [0, 360).
func (r Rotation) Sub(o Rotation) Rotation {
	return Rotation(((int(r)-int(o))%360 + 360) % 360)
}

// Swaps reports whether the rotation exchanges width and height.
func (r Rotation) Swaps() bool {
	return r == Rot90 || r == Rot270
}

// Size returns the extent of a w x h box after rotation.
func (r Rotation) Size(w, h int) (int, int) {
	if r.Swaps() {
		return h, w
	}
	return w, h
}

// Degrees returns the angle as a float.
func (r Rotation) Degrees() float64 { return float64(r) }
