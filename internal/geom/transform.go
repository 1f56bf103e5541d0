package geom

// ImageTransform maps source pixel coordinates of a w x h image, shown
// rotated by rot inside display, to display coordinates:
//
//	T(display centre) . R(rot) . S(sx, sy) . T(-w/2, -h/2)
//
// sx and sy are measured along the source axes, so for quarter turns that
// swap the axes the display width scales the source height.
func ImageTransform(display Rect, rot Rotation, w, h float64) Matrix {
	dw, dh := display.W, display.H
	if rot.Swaps() {
		dw, dh = dh, dw
	}
	var sx, sy float64
	if w > 0 {
		sx = dw / w
	}
	if h > 0 {
		sy = dh / h
	}
	c := display.Center()
	return Translate(c.X, c.Y).
		Multiply(Rotate(rot.Degrees())).
		Multiply(Scale(sx, sy)).
		Multiply(Translate(-w/2, -h/2))
}

// NormalizedTransform maps normalized image coordinates ([0,1] on both axes)
// to display coordinates.
func NormalizedTransform(display Rect, rot Rotation, w, h float64) Matrix {
	return ImageTransform(display, rot, w, h).Multiply(Scale(w, h))
}
