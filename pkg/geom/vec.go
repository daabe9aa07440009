package geom

import "math"

// Vec is a 2-D vector or point in screen space.
type Vec struct {
	X float64 `json:"x" bson:"x" yaml:"x"`
	Y float64 `json:"y" bson:"y" yaml:"y"`
}

// Up is the fallback direction for degenerate normalisation.
var Up = Vec{X: 0, Y: -1}

// V is shorthand for Vec{X: x, Y: y}.
func V(x, y float64) Vec { return Vec{X: x, Y: y} }

func (v Vec) Add(w Vec) Vec { return Vec{v.X + w.X, v.Y + w.Y} }

func (v Vec) Sub(w Vec) Vec { return Vec{v.X - w.X, v.Y - w.Y} }

func (v Vec) Scale(k float64) Vec { return Vec{v.X * k, v.Y * k} }

func (v Vec) Dot(w Vec) float64 { return v.X*w.X + v.Y*w.Y }

// Len returns the Euclidean length of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between the points v and w.
func (v Vec) Dist(w Vec) float64 { return w.Sub(v).Len() }

// Perp returns v rotated by 90 degrees (clockwise on screen).
func (v Vec) Perp() Vec { return Vec{-v.Y, v.X} }

// IsZero reports whether both components are exactly zero.
func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns the unit vector in the direction of v, or [Up] when v
// has zero or non-finite length.
func (v Vec) Normalize() Vec { return v.NormalizeOr(Up) }

// NormalizeOr is like [Vec.Normalize] with a caller-chosen fallback.
func (v Vec) NormalizeOr(fallback Vec) Vec {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return fallback
	}
	return Vec{v.X / l, v.Y / l}
}

// Lerp interpolates linearly between v (t=0) and w (t=1).
func (v Vec) Lerp(w Vec, t float64) Vec {
	return Vec{v.X + (w.X-v.X)*t, v.Y + (w.Y-v.Y)*t}
}

// Polar returns the unit vector at angle radians (0 points right, angles
// grow clockwise on screen).
func Polar(angle float64) Vec {
	return Vec{math.Cos(angle), math.Sin(angle)}
}
