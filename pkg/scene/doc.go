// Package scene describes reproducible bubble-map sessions.
//
// A scene is a YAML document (JSON works too, being a YAML subset) with a
// viewport, a camera, point-of-interest markers in world coordinates,
// static obstacle rectangles and an optional script of user actions:
//
//	name: downtown
//	viewport: {width: 1024, height: 768}
//	camera: {x: 0, y: 0, zoom: 1}
//	obstacles:
//	  - {x: 0, y: 0, w: 1024, h: 48}
//	markers:
//	  - {id: cafe, priority: 1, at: {x: 400, y: 300}}
//	  - {id: bakery, priority: 2, at: {x: 430, y: 310}}
//	script:
//	  - update: {}
//	  - pan: {x: -40, y: 0}
//	  - drag: {id: cafe, by: {x: 30, y: -60}}
//	  - wait: 500ms
//
// [Map] plays the part of the host map component: it projects markers
// through the camera, emits pan/zoom/resize notifications and honours the
// pan lock taken while a bubble is dragged. [Watcher] reloads a scene file
// whenever it changes on disk.
package scene
