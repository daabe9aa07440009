package geom

// Cubic is a cubic Bezier segment from P0 to P3 with control points P1, P2.
type Cubic struct {
	P0 Vec `json:"p0" bson:"p0"`
	P1 Vec `json:"p1" bson:"p1"`
	P2 Vec `json:"p2" bson:"p2"`
	P3 Vec `json:"p3" bson:"p3"`
}

// At evaluates the segment at parameter t in [0, 1]. The endpoints are
// returned exactly for t == 0 and t == 1.
func (c Cubic) At(t float64) Vec {
	switch {
	case t <= 0:
		return c.P0
	case t >= 1:
		return c.P3
	}
	u := 1 - t
	a, b, cc, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return Vec{
		a*c.P0.X + b*c.P1.X + cc*c.P2.X + d*c.P3.X,
		a*c.P0.Y + b*c.P1.Y + cc*c.P2.Y + d*c.P3.Y,
	}
}

// Sample returns n+1 points evenly spaced in t, including both endpoints.
// n < 1 is treated as 1.
func (c Cubic) Sample(n int) []Vec {
	if n < 1 {
		n = 1
	}
	pts := make([]Vec, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = c.At(float64(i) / float64(n))
	}
	return pts
}

// Reverse returns the same curve traversed from P3 to P0.
func (c Cubic) Reverse() Cubic { return Cubic{c.P3, c.P2, c.P1, c.P0} }
