package geom

import (
	"errors"
	"math"

	"golang.org/x/image/math/f64"
)

// ErrSingular is returned when a matrix has no inverse.
var ErrSingular = errors.New("matrix is not invertible")

// Matrix is a 2D affine transform stored as a 2x3 row-major matrix:
//
//	| A  B  C |
//	| D  E  F |
//
// mapping (x, y) to (A*x + B*y + C, D*x + E*y + F).
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{A: 1, E: 1}
}

// Translate returns a translation by (x, y).
func Translate(x, y float64) Matrix {
	return Matrix{A: 1, C: x, E: 1, F: y}
}

// Scale returns a scale by (sx, sy) about the origin.
func Scale(sx, sy float64) Matrix {
	return Matrix{A: sx, E: sy}
}

// Rotate returns a rotation by deg degrees. With the y axis pointing down a
// positive angle turns clockwise on screen. Quarter turns are exact.
func Rotate(deg float64) Matrix {
	var sin, cos float64
	switch math.Mod(math.Mod(deg, 360)+360, 360) {
	case 0:
		sin, cos = 0, 1
	case 90:
		sin, cos = 1, 0
	case 180:
		sin, cos = 0, -1
	case 270:
		sin, cos = -1, 0
	default:
		rad := deg * math.Pi / 180
		sin, cos = math.Sin(rad), math.Cos(rad)
	}
	return Matrix{A: cos, B: -sin, D: sin, E: cos}
}

// RotateAbout returns a rotation by deg degrees around c.
func RotateAbout(deg float64, c Point) Matrix {
	return Translate(c.X, c.Y).Multiply(Rotate(deg)).Multiply(Translate(-c.X, -c.Y))
}

// Multiply returns m*o, the transform that applies o first and then m.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		A: m.A*o.A + m.B*o.D,
		B: m.A*o.B + m.B*o.E,
		C: m.A*o.C + m.B*o.F + m.C,
		D: m.D*o.A + m.E*o.D,
		E: m.D*o.B + m.E*o.E,
		F: m.D*o.C + m.E*o.F + m.F,
	}
}

// Apply transforms p.
func (m Matrix) Apply(p Point) Point {
	return Point{X: m.A*p.X + m.B*p.Y + m.C, Y: m.D*p.X + m.E*p.Y + m.F}
}

// ApplyAll transforms every point of ps into a new slice.
func (m Matrix) ApplyAll(ps []Point) []Point {
	out := make([]Point, len(ps))
	for i, p := range ps {
		out[i] = m.Apply(p)
	}
	return out
}

// Determinant of the linear part.
func (m Matrix) Determinant() float64 {
	return m.A*m.E - m.B*m.D
}

// Invert returns the inverse transform or ErrSingular when the linear part
// is degenerate or not finite.
func (m Matrix) Invert() (Matrix, error) {
	det := m.Determinant()
	if math.Abs(det) < 1e-12 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Matrix{}, ErrSingular
	}
	inv := 1 / det
	return Matrix{
		A: m.E * inv,
		B: -m.B * inv,
		C: (m.B*m.F - m.C*m.E) * inv,
		D: -m.D * inv,
		E: m.A * inv,
		F: (m.C*m.D - m.A*m.F) * inv,
	}, nil
}

// ScaleFactor returns the larger of the two axis scale factors, used to
// convert stroke widths between spaces.
func (m Matrix) ScaleFactor() float64 {
	sx := math.Hypot(m.A, m.D)
	sy := math.Hypot(m.B, m.E)
	return math.Max(sx, sy)
}

// Aff3 converts m for use with golang.org/x/image/draw transformers.
func (m Matrix) Aff3() f64.Aff3 {
	return f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
}
