// Package geom provides the 2-D primitives shared by the bubble layout
// components: vectors, sizes, axis-aligned rectangles and cubic Bezier
// segments.
//
// All functions are pure and allocation-free. Screen coordinates follow the
// usual display convention: X grows to the right, Y grows downwards, so
// [Up] is (0, -1).
//
// # Degenerate input
//
// The only failure mode in this package is normalising a zero-length (or
// non-finite) vector. [Vec.Normalize] returns [Up] in that case instead of
// propagating NaN into later computations; [Vec.NormalizeOr] lets callers
// choose a different fallback.
//
// # Collision predicate
//
// Bubble collision uses padded bounding boxes rather than exact shapes:
//
//	dx, dy := a.Overlap(b, padding)
//	if dx > 0 && dy > 0 {
//	    // boxes are closer than padding on both axes
//	}
package geom
