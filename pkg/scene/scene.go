package scene

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	bmerrors "github.com/matzehuels/bubblemap/pkg/errors"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/observability"
)

// DefaultMarkerRadius is the visual radius of markers that set none.
const DefaultMarkerRadius = 8.0

// MaxScriptSteps bounds the script length of a single scene.
const MaxScriptSteps = 10000

// MaxWait bounds a single wait step.
const MaxWait = 10 * time.Minute

// MaxDragSteps bounds the pointer moves of a single drag step.
const MaxDragSteps = 1000

// Viewport is the visible screen area in pixels.
type Viewport struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Rect returns the viewport as a rectangle at the origin.
func (v Viewport) Rect() geom.Rect { return geom.Rect{W: v.Width, H: v.Height} }

// Camera maps world coordinates to the screen: the world point (X, Y)
// appears at the screen origin and one world unit spans Zoom pixels.
type Camera struct {
	X    float64 `yaml:"x" json:"x"`
	Y    float64 `yaml:"y" json:"y"`
	Zoom float64 `yaml:"zoom,omitempty" json:"zoom,omitempty"`
}

// Project converts a world point to screen space.
func (c Camera) Project(w geom.Vec) geom.Vec {
	return geom.Vec{X: (w.X - c.X) * c.zoom(), Y: (w.Y - c.Y) * c.zoom()}
}

// Unproject converts a screen point to world space.
func (c Camera) Unproject(s geom.Vec) geom.Vec {
	return geom.Vec{X: s.X/c.zoom() + c.X, Y: s.Y/c.zoom() + c.Y}
}

func (c Camera) zoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// Marker is a point of interest in world coordinates.
type Marker struct {
	ID       string         `yaml:"id" json:"id"`
	Priority int            `yaml:"priority" json:"priority"`
	At       geom.Vec       `yaml:"at" json:"at"`
	Radius   float64        `yaml:"radius,omitempty" json:"radius,omitempty"`
	Payload  map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// Scene is a complete session description.
type Scene struct {
	Name         string      `yaml:"name" json:"name"`
	Viewport     Viewport    `yaml:"viewport" json:"viewport"`
	Camera       Camera      `yaml:"camera,omitempty" json:"camera,omitempty"`
	MarkerRadius float64     `yaml:"marker_radius,omitempty" json:"marker_radius,omitempty"`
	Obstacles    []geom.Rect `yaml:"obstacles,omitempty" json:"obstacles,omitempty"`
	Markers      []Marker    `yaml:"markers" json:"markers"`
	Script       []Step      `yaml:"script,omitempty" json:"script,omitempty"`
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	ctx := context.Background()
	start := time.Now()
	observability.Pipeline().OnSceneLoadStart(ctx, path)

	s, err := load(path)
	markers := 0
	if s != nil {
		markers = len(s.Markers)
	}
	observability.Pipeline().OnSceneLoadComplete(ctx, path, markers, time.Since(start), err)
	return s, err
}

func load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bmerrors.Wrap(bmerrors.ErrCodeFileNotFound, err, "scene file %s not found", path)
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a scene document. Unknown fields are
// rejected so that typos in scripts do not pass silently.
func Parse(data []byte) (*Scene, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scene
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, bmerrors.New(bmerrors.ErrCodeInvalidScene, "scene is empty")
		}
		return nil, bmerrors.Wrap(bmerrors.ErrCodeInvalidScene, err, "decode scene")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes the scene as YAML. The output is stable for equal
// scenes, which makes it usable as a cache key source.
func (s *Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks the scene for structural errors.
func (s *Scene) Validate() error {
	if s.Viewport.Width <= 0 || s.Viewport.Height <= 0 {
		return bmerrors.New(bmerrors.ErrCodeInvalidScene, "viewport must have positive size, got %gx%g", s.Viewport.Width, s.Viewport.Height)
	}
	if s.Camera.Zoom < 0 {
		return bmerrors.New(bmerrors.ErrCodeInvalidScene, "camera zoom must not be negative")
	}
	if len(s.Script) > MaxScriptSteps {
		return bmerrors.New(bmerrors.ErrCodeInvalidScene, "script too long (max %d steps)", MaxScriptSteps)
	}

	seen := make(map[string]bool, len(s.Markers))
	for _, m := range s.Markers {
		if err := bmerrors.ValidateID(m.ID); err != nil {
			return err
		}
		if seen[m.ID] {
			return bmerrors.New(bmerrors.ErrCodeInvalidScene, "duplicate marker %q", m.ID)
		}
		seen[m.ID] = true
	}
	for _, o := range s.Obstacles {
		if o.W <= 0 || o.H <= 0 {
			return bmerrors.New(bmerrors.ErrCodeInvalidScene, "obstacle %v has no area", o)
		}
	}
	for i := range s.Script {
		if err := s.Script[i].validate(seen); err != nil {
			return bmerrors.Wrap(bmerrors.ErrCodeInvalidScene, err, "script step %d", i+1)
		}
	}
	return nil
}

// Entries returns the markers as engine entries. With only set, just those
// ids are included; ids in drop are always excluded.
func (s *Scene) Entries(only, drop []string) []bubble.Entry {
	out := make([]bubble.Entry, 0, len(s.Markers))
	for _, m := range s.Markers {
		if len(only) > 0 && !slices.Contains(only, m.ID) {
			continue
		}
		if slices.Contains(drop, m.ID) {
			continue
		}
		e := bubble.Entry{ID: m.ID, Priority: m.Priority}
		if m.Payload != nil {
			e.Payload = m.Payload
		}
		out = append(out, e)
	}
	return out
}

// Marker returns the marker with the given id.
func (s *Scene) Marker(id string) (Marker, bool) {
	for _, m := range s.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}
