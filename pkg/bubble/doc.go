// Package bubble owns the set of annotation bubbles shown over a map and
// drives every layout cycle.
//
// An [Engine] receives ordered (id, priority, payload) entries from the data
// pipeline, viewport notifications from the map and pointer events from the
// user. Each data update runs the same staged pipeline on a private copy of
// the bubble set:
//
//	diff -> retire -> create -> layout -> connectors -> commit
//
// Retirement covers entries that disappeared, entries beyond the retention
// cap and bubbles whose anchor no longer exists. Layout hands non-dragged
// bubbles to the solver, seeded with their previous positions. Bubbles the
// user dragged keep their anchor-relative offset and are only clamped.
//
// # Generations
//
// Every data update is tagged with a ticket from [Engine.Request]. A cycle
// whose ticket is older than the newest request is computed but never
// committed, so a stale layout is never shown. Committed frames carry a
// monotonically increasing generation.
//
// # Concurrency
//
// An Engine is not safe for concurrent use. [Loop] serialises data updates,
// viewport notifications, pointer events and animation-frame ticks onto one
// goroutine in arrival order. [Engine.Request] and [Engine.Frame] are the
// exceptions and may be called from any goroutine.
package bubble
