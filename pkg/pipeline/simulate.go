package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

// Simulate replays sc against a fresh engine and captures a frame after
// every step. It does not consult any cache; see [Runner.Simulate].
func Simulate(ctx context.Context, sc *scene.Scene, session string, opts Options) (*Simulation, error) {
	opts.SetDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	d := &driver{
		ctx:      ctx,
		sc:       sc,
		m:        scene.NewMap(sc),
		now:      Epoch,
		interval: opts.FrameInterval,
		logger:   logger,
	}
	cfg := opts.EngineConfig()
	cfg.Obstacles = slices.Concat(cfg.Obstacles, sc.Obstacles)
	d.e = bubble.New(d.m, cfg,
		bubble.WithClock(func() time.Time { return d.now }),
		bubble.WithSession(session),
		bubble.WithLogger(logger),
		bubble.WithOnClick(func(id string) { d.clicks = append(d.clicks, id) }),
		bubble.WithOnFrame(func(f bubble.Frame) { d.retired += len(f.Retired) }),
	)
	cancel := d.m.Subscribe(d.e.ViewportChanged)
	defer cancel()

	steps := sc.Script
	if len(steps) == 0 || steps[0].Update == nil {
		d.current = sc.Entries(nil, nil)
		d.e.Update(d.current)
		d.capture(0, scene.KindUpdate, "")
	}
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		note, err := d.run(st)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, st.Kind(), err)
		}
		if note != "" {
			logger.Debug("step skipped", "step", i+1, "kind", st.Kind(), "reason", note)
		}
		d.capture(i+1, st.Kind(), note)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sim := &Simulation{
		Scene:  sc.Name,
		Frames: d.frames,
		Clicks: d.clicks,
		Stats: Stats{
			Steps:   len(steps),
			Retired: d.retired,
			Virtual: d.now.Sub(Epoch),
		},
	}
	for _, f := range d.frames {
		sim.Stats.Iterations += f.Frame.Stats.Iterations
	}
	sim.Stats.Converged = sim.Final().Stats.Converged
	return sim, nil
}

// ctxCheckTicks is how many virtual ticks run between context checks.
const ctxCheckTicks = 64

// driver plays the host application: it owns the map, the virtual clock
// and the current data set.
type driver struct {
	ctx      context.Context
	sc       *scene.Scene
	m        *scene.Map
	e        *bubble.Engine
	now      time.Time
	interval time.Duration
	logger   *log.Logger

	current []bubble.Entry
	frames  []StepFrame
	clicks  []string
	retired int
}

func (d *driver) capture(step int, kind, note string) {
	d.frames = append(d.frames, StepFrame{Step: step, Kind: kind, Note: note, Frame: d.e.Frame()})
}

// advance moves the virtual clock forward by at least dt in frame ticks.
// It stops early when the context is done.
func (d *driver) advance(dt time.Duration) error {
	n := 0
	for elapsed := time.Duration(0); elapsed < dt; elapsed += d.interval {
		if n++; n%ctxCheckTicks == 0 {
			if err := d.ctx.Err(); err != nil {
				return err
			}
		}
		d.now = d.now.Add(d.interval)
		d.e.Tick(d.now)
	}
	return nil
}

// settle lets a pending debounced re-layout fire.
func (d *driver) settle() error {
	return d.advance(d.e.Config().Debounce + d.interval)
}

func (d *driver) run(st scene.Step) (note string, err error) {
	switch {
	case st.Update != nil:
		d.current = d.sc.Entries(st.Update.Only, st.Update.Drop)
		d.e.Update(d.current)
	case st.Pan != nil:
		if !d.m.Pan(*st.Pan) {
			return "pan suspended", nil
		}
		return "", d.settle()
	case st.Zoom != nil:
		at := d.m.Viewport().Center()
		if st.Zoom.At != nil {
			at = *st.Zoom.At
		}
		if !d.m.Zoom(st.Zoom.Factor, at) {
			return "zoom suspended", nil
		}
		return "", d.settle()
	case st.Resize != nil:
		d.m.Resize(st.Resize.Width, st.Resize.Height)
		return "", d.settle()
	case st.Drag != nil:
		return d.drag(st.Drag)
	case st.Click != "":
		v, ok := d.target(st.Click)
		if !ok {
			return "no visible bubble", nil
		}
		c := v.Rect().Center()
		d.e.PointerDown(v.ID, c)
		d.e.PointerUp(v.ID, c)
	case st.Move != nil:
		d.m.Move(st.Move.ID, st.Move.To)
		d.e.Update(d.current)
	case st.Wait != nil:
		return "", d.advance(*st.Wait)
	default:
		return "", fmt.Errorf("empty step")
	}
	return "", nil
}

func (d *driver) target(id string) (bubble.View, bool) {
	v, ok := d.e.Frame().Bubble(id)
	if !ok || v.Hidden {
		return bubble.View{}, false
	}
	return v, true
}

func (d *driver) drag(s *scene.DragStep) (string, error) {
	v, ok := d.target(s.ID)
	if !ok {
		return "no visible bubble", nil
	}
	n := s.Steps
	if n <= 0 {
		n = DefaultDragSteps
	}
	start := v.Rect().Center()
	d.e.PointerDown(s.ID, start)
	var p geom.Vec
	for i := 1; i <= n; i++ {
		if i%ctxCheckTicks == 0 {
			if err := d.ctx.Err(); err != nil {
				d.e.PointerCancel(s.ID)
				return "", err
			}
		}
		p = start.Add(s.By.Scale(float64(i) / float64(n)))
		d.e.PointerMove(s.ID, p)
		d.now = d.now.Add(d.interval)
	}
	d.e.PointerUp(s.ID, p)
	return "", nil
}
