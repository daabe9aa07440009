// Package solver computes non-overlapping bubble positions for one layout
// frame.
//
// # Algorithm
//
// [Solver.Solve] runs three stages over a [Frame]:
//
//  1. Seeding: an item with a carried-over position keeps it, which keeps
//     small updates visually stable. A new item is placed on a golden-angle
//     spiral around its anchor. The spiral index counts how many earlier
//     items share the anchor's neighbourhood, so the first bubble of a
//     cluster sits directly above its anchor and later ones fan out at
//     137.5 degree increments with growing radius.
//
//  2. Relaxation: Gauss-Seidel passes push every overlapping pair apart
//     along the line between their centres by an amount linear in the
//     overlap depth. Obstacles and the viewport boundary push one-sidedly.
//     A pass is only accepted when the overlap energy does not grow;
//     otherwise the step is halved. The loop ends after MaxIterations
//     passes, when the largest displacement of a pass falls below
//     Threshold, or when no overlap remains.
//
//  3. Clamping: every placement is clamped into the viewport minus Margin.
//
// Items with a user offset skip stages 1 and 2: they are placed at
// anchor+offset and only clamped. Pinned items (a bubble being dragged, or
// one that just reappeared on screen) are likewise fixed.
//
// # Determinism
//
// Items are processed in (Priority, ID) order and exactly coincident
// bubbles are separated by a jitter derived from their priorities, so
// identical input produces bit-identical output. Re-solving a converged
// frame with its own output as prior positions changes nothing.
//
// # Failure policy
//
// The solver never fails. When the iteration cap is reached the partial
// result is returned with Converged == false; residual overlap is a visual
// degradation, not an error.
package solver
