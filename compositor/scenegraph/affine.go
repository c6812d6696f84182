package scenegraph

// Affine is a 2D affine transform, a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// representing x' = a*x + b*y + c, y' = d*x + e*y + f. Adapted from the
// teacher's Matrix (gogpu-gg's matrix.go) down to the operations the
// scene graph actually composes: translate, scale, and multiply.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translate returns a pure translation transform.
func Translate(x, y float64) Affine {
	return Affine{A: 1, C: x, E: 1, F: y}
}

// Scale returns a pure scale transform.
func Scale(x, y float64) Affine {
	return Affine{A: x, E: y}
}

// Multiply composes m with other such that m is applied last: for any
// point p, m.Multiply(other).TransformPoint(p) equals
// m.TransformPoint(other.TransformPoint(p)) — "m after other".
func (m Affine) Multiply(other Affine) Affine {
	return Affine{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// TransformPoint applies the transform to a point.
func (m Affine) TransformPoint(x, y float64) (float64, float64) {
	return m.A*x + m.B*y + m.C, m.D*x + m.E*y + m.F
}

// IsIdentity reports whether m is the identity transform.
func (m Affine) IsIdentity() bool {
	return m == Identity()
}
