// Package pkg provides the core libraries for Bubblemap annotation layout.
//
// # Overview
//
// Bubblemap places annotation cards ("bubbles") next to map markers. Each
// bubble points at its marker with a curved tail, stays clear of the other
// bubbles and of the viewport edge, follows its marker while the map pans
// and zooms, and can be dragged by the user. The pkg directory is organized
// into four main areas:
//
//  1. Geometry and layout: [geom], [connector], [solver], [drag], [viewport]
//  2. The engine: [bubble]
//  3. Hosts: [scene], [pipeline], [render], [server]
//  4. Infrastructure: [cache], [archive], [config], [errors],
//     [observability], [buildinfo]
//
// # Architecture
//
// The typical data flow through Bubblemap:
//
//	Scene (markers, viewport, script)
//	         ↓
//	    [scene] map projects markers to screen anchors
//	         ↓
//	    [bubble] engine seeds, solves and connects bubbles
//	         ↓
//	    [bubble.Frame] render model
//	         ↓
//	    SVG/PNG/DOT/JSON output
//
// # Quick Start
//
// Lay out a scene and render the final frame:
//
//	sc, _ := scene.Load("harbour.yaml")
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	sim, _ := runner.Simulate(ctx, sc, pipeline.Options{})
//	artifacts, _ := runner.Render(ctx, sc, sim.Final(), pipeline.Options{
//	    Formats: []string{"svg"},
//	})
//
// Drive an engine from a live host:
//
//	m := scene.NewMap(sc)
//	e := bubble.New(m, bubble.DefaultConfig(), bubble.WithOnFrame(draw))
//	cancel := m.Subscribe(e.ViewportChanged)
//	defer cancel()
//	e.Update(sc.Entries(nil, nil))
//
// # Main Packages
//
// ## Geometry and Layout
//
// [geom] - Vectors, sizes and rectangles in screen space.
//
// [connector] - Tail paths from a bubble edge to its anchor: attachment
// side, base width and the quadratic bend of both edges.
//
// [solver] - Overlap removal. Seeds new bubbles on a spiral around their
// anchor and relaxes overlaps with spring forces until the layout converges
// or the iteration cap is hit. Priorities decide who yields.
//
// [drag] - The press, threshold, drag and release state machine that tells
// clicks from drags.
//
// [viewport] - Anchor sets, viewport change events, debouncing and the
// hide and show hysteresis margins.
//
// ## Engine
//
// [bubble] - The lifecycle manager. Keeps at most 20 bubbles, retires the
// rest, bumps a generation counter on every committed change and hands the
// host a [bubble.Frame] to draw. [bubble.Loop] runs an engine on a ticker.
//
// ## Hosts
//
// [scene] - Scene files (YAML or JSON), a simulated map with a camera and
// a file watcher for live reloading.
//
// [pipeline] - Deterministic replay of a scene's script on a virtual clock
// plus rendering, both cached. Used by the CLI and the HTTP API.
//
// [render] - Frame renderers: [render/svg], [render/raster] (PNG) and
// [render/dot] (Graphviz debug graphs).
//
// [server] - The HTTP API.
//
// ## Infrastructure
//
// [cache] - Frame and artifact cache with file, Redis and null backends.
//
// [archive] - Stored simulation runs, on disk or in MongoDB.
//
// [config] - The TOML configuration file.
//
// [errors] - Coded errors with HTTP status mapping and input validation.
//
// [observability] - Hooks for engine, cache and HTTP metrics.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/solver/...     # Specific package
//	go test -run Example         # Examples only
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/geom
// [connector]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/connector
// [solver]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/solver
// [drag]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/drag
// [viewport]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/viewport
// [bubble]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/bubble
// [bubble.Frame]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/bubble#Frame
// [bubble.Loop]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/bubble#Loop
// [scene]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/scene
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/render
// [render/svg]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/render/svg
// [render/raster]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/render/raster
// [render/dot]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/render/dot
// [server]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/cache
// [archive]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/archive
// [config]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/bubblemap/pkg/buildinfo
package pkg
