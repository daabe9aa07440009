package bubble

import (
	"cmp"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/bubblemap/pkg/connector"
	"github.com/matzehuels/bubblemap/pkg/drag"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/observability"
	"github.com/matzehuels/bubblemap/pkg/solver"
	"github.com/matzehuels/bubblemap/pkg/viewport"
)

// Engine is the bubble lifecycle manager. See the package documentation
// for the cycle it runs and its concurrency contract.
type Engine struct {
	proj     viewport.Projector
	cfg      Config
	solver   *solver.Solver
	drag     *drag.Controller
	sync     *viewport.Synchronizer
	debounce *viewport.Debouncer

	logger  *log.Logger
	hooks   observability.EngineHooks
	now     func() time.Time
	session string

	onFrame   func(Frame)
	onClick   func(id string)
	onDragEnd func(id string, offset geom.Vec)

	bubbles      []*Bubble
	size         geom.Size
	pendingWidth *float64
	memo         *memo
	stats        Stats

	requested  atomic.Uint64
	applied    uint64
	generation uint64
	frame      atomic.Pointer[Frame]
}

// memo remembers the last solved frame with its outputs fed back as prior
// positions. An identical request reuses the result instead of relaxing
// again.
type memo struct {
	frame  solver.Frame
	result solver.Result
}

// New creates an engine reading anchors and the viewport from proj. When
// proj also implements [drag.PanLock], dragging a bubble suspends the map's
// panning.
func New(proj viewport.Projector, cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		proj:     proj,
		cfg:      cfg,
		solver:   solver.New(cfg.Solver),
		debounce: viewport.NewDebouncer(cfg.Debounce),
		logger:   log.Default(),
		hooks:    observability.Engine(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.session == "" {
		e.session = uuid.NewString()
	}

	var lock drag.PanLock
	if l, ok := proj.(drag.PanLock); ok {
		lock = l
	}
	e.drag = drag.NewController(cfg.DragThreshold, lock)
	e.sync = viewport.NewSynchronizer(proj, cfg.Hysteresis)

	vp := proj.Viewport()
	e.size = SizeFor(cfg.Breakpoints, vp.W)
	e.frame.Store(&Frame{Session: e.session, Viewport: vp, Bubbles: []View{}})
	return e
}

// Session returns the engine's session identifier.
func (e *Engine) Session() string { return e.session }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Size returns the current bubble size class.
func (e *Engine) Size() geom.Size { return e.size }

// Len returns the number of active bubbles, hidden ones included.
func (e *Engine) Len() int { return len(e.bubbles) }

// PanSuspended reports whether a drag currently holds the map's pan lock.
func (e *Engine) PanSuspended() bool { return e.drag.Suspended() > 0 }

// Frame returns the last committed frame. It is safe to call from any
// goroutine.
func (e *Engine) Frame() Frame { return *e.frame.Load() }

// Request reserves a ticket for a data update. Only the update holding the
// newest ticket may commit. It is safe to call from any goroutine.
func (e *Engine) Request() uint64 { return e.requested.Add(1) }

// Update applies a new data set under a fresh ticket.
func (e *Engine) Update(entries []Entry) bool {
	return e.UpdateAt(e.Request(), entries)
}

// UpdateAt applies a new data set under ticket. It reports whether the
// result was committed; a cycle superseded by a newer request is computed
// but discarded.
func (e *Engine) UpdateAt(ticket uint64, entries []Entry) bool {
	if ticket <= e.applied {
		e.supersede(ticket)
		return false
	}
	start := e.now()
	kept, overflow := normalize(entries, e.cfg.MaxBubbles)
	st := e.stage()

	// diff + retire
	want := make(map[string]Entry, len(kept))
	for _, en := range kept {
		want[en.ID] = en
	}
	capped := make(map[string]bool, len(overflow))
	for _, en := range overflow {
		capped[en.ID] = true
	}
	live := st.bubbles[:0]
	for _, b := range st.bubbles {
		if _, ok := want[b.ID]; ok {
			live = append(live, b)
			continue
		}
		reason := ReasonRemoved
		if capped[b.ID] {
			reason = ReasonCap
		}
		st.retire(b, reason)
	}
	st.bubbles = live

	// create
	have := make(map[string]*Bubble, len(st.bubbles))
	for _, b := range st.bubbles {
		have[b.ID] = b
	}
	for _, en := range kept {
		if b, ok := have[en.ID]; ok {
			b.Priority, b.Payload = en.Priority, en.Payload
			continue
		}
		st.bubbles = append(st.bubbles, &Bubble{
			ID:       en.ID,
			Priority: en.Priority,
			Payload:  en.Payload,
			Size:     st.size,
			Drag:     drag.Idle{},
			fresh:    true,
		})
	}
	sortBubbles(st.bubbles)

	stats := e.layout(st)

	if latest := e.requested.Load(); ticket != latest {
		e.supersede(ticket)
		return false
	}
	e.applied = ticket
	e.commit(st, stats, start)
	return true
}

func (e *Engine) supersede(ticket uint64) {
	latest := e.requested.Load()
	e.logger.Debug("discarding superseded update", "ticket", ticket, "latest", latest)
	e.hooks.OnSuperseded(ticket, latest)
}

// ViewportChanged records a map notification. The re-layout runs on the
// first [Engine.Tick] after the debounce window.
func (e *Engine) ViewportChanged(ev viewport.Event) {
	e.debounce.Trigger(e.now())
	if ev.Kind == viewport.Resize {
		w := ev.Viewport.W
		e.pendingWidth = &w
	}
}

// Tick advances the engine to now. It retires orphans and bubbles hidden
// longer than RetireAfter, then runs the debounced re-layout if due. It
// reports whether a frame was committed.
func (e *Engine) Tick(now time.Time) bool {
	committed := e.sweep(now)
	if e.debounce.Due(now) {
		e.resync(e.debounce.Flush())
		committed = true
	}
	return committed
}

// Sync re-lays out every bubble against the current viewport immediately.
func (e *Engine) Sync() { e.resync(0) }

// Resize selects the size class for a new viewport width and re-lays out.
func (e *Engine) Resize(width float64) {
	e.pendingWidth = &width
	e.resync(0)
}

func (e *Engine) resync(coalesced int) {
	start := e.now()
	st := e.stage()
	stats := e.layout(st)
	stats.Coalesced = coalesced
	e.commit(st, stats, start)
}

func (e *Engine) sweep(now time.Time) bool {
	due := func(b *Bubble) bool {
		if b.orphan {
			return true
		}
		return b.Hidden && e.cfg.RetireAfter > 0 && now.Sub(b.hiddenSince) >= e.cfg.RetireAfter
	}
	if !slices.ContainsFunc(e.bubbles, due) {
		return false
	}

	st := e.stage()
	live := st.bubbles[:0]
	for _, b := range st.bubbles {
		switch {
		case b.orphan:
			st.retire(b, ReasonOrphan)
		case due(b):
			st.retire(b, ReasonOffscreen)
		default:
			live = append(live, b)
		}
	}
	st.bubbles = live
	e.commit(st, e.stats, now)
	return true
}

// stage is a private working copy of the bubble set for one cycle.
type stage struct {
	bubbles []*Bubble
	size    geom.Size
	retired []Retirement
	cancels []drag.State
	memo    *memo
}

func (e *Engine) stage() *stage {
	st := &stage{bubbles: make([]*Bubble, len(e.bubbles)), size: e.size}
	for i, b := range e.bubbles {
		st.bubbles[i] = b.clone()
	}
	return st
}

func (st *stage) retire(b *Bubble, r Reason) {
	st.retired = append(st.retired, Retirement{ID: b.ID, Reason: r})
	if b.Dragging() {
		st.cancels = append(st.cancels, b.Drag)
	}
}

// layout places every bubble of st and rebuilds connectors.
func (e *Engine) layout(st *stage) Stats {
	now := e.now()
	vp := e.proj.Viewport()

	if e.pendingWidth != nil {
		if size := SizeFor(e.cfg.Breakpoints, *e.pendingWidth); size != st.size {
			st.size = size
			for _, b := range st.bubbles {
				b.Size = size
			}
		}
	}

	var tracked []viewport.Tracked
	for _, b := range st.bubbles {
		if !b.fresh {
			tracked = append(tracked, viewport.Tracked{
				ID:       b.ID,
				Position: b.Position,
				Anchor:   b.Anchor.Center,
				Offset:   b.UserOffset,
				Dragging: b.Dragging(),
				Hidden:   b.Hidden,
			})
		}
	}
	plan := make(map[string]viewport.Decision, len(tracked))
	for _, d := range e.sync.Plan(tracked) {
		plan[d.ID] = d
	}

	items := make([]solver.Item, 0, len(st.bubbles))
	live := st.bubbles[:0]
	for _, b := range st.bubbles {
		var item *solver.Item
		if b.fresh {
			item = e.place(b, vp, now)
		} else {
			var retire bool
			item, retire = e.follow(b, plan[b.ID], now)
			if retire {
				st.retire(b, ReasonOrphan)
				continue
			}
		}
		if item != nil {
			items = append(items, *item)
		}
		live = append(live, b)
	}
	st.bubbles = live

	f := solver.Frame{Viewport: vp, Obstacles: e.cfg.Obstacles, Items: items}
	var res solver.Result
	if e.memo != nil && sameFrame(e.memo.frame, f) {
		res = e.memo.result
	} else {
		res = e.solver.Solve(f)
	}
	st.memo = &memo{frame: settle(f, res), result: res}

	byID := make(map[string]*Bubble, len(st.bubbles))
	for _, b := range st.bubbles {
		byID[b.ID] = b
	}
	for _, p := range res.Placements {
		byID[p.ID].Position = p.Position
	}
	for _, b := range st.bubbles {
		if !b.orphan {
			b.Connector = connector.Build(b.Anchor.Center, b.Anchor.Radius, b.Rect(), e.cfg.Connector)
		}
	}

	return Stats{Iterations: res.Iterations, Converged: res.Converged, Overlap: res.Overlap}
}

// place handles a bubble created in this cycle.
func (e *Engine) place(b *Bubble, vp geom.Rect, now time.Time) *solver.Item {
	b.fresh = false
	a, ok := e.proj.Anchor(b.ID)
	if !ok {
		b.orphan = true
		hide(b, now)
		return nil
	}
	b.Anchor = a
	if !e.sync.Hysteresis().Visible(vp, a.Center, true) {
		hide(b, now)
		b.Position = e.solver.SpiralSeed(a.Center, b.Size, 0)
		return nil
	}
	return &solver.Item{ID: b.ID, Priority: b.Priority, Anchor: a.Center, Size: b.Size}
}

// follow applies a synchroniser decision to an existing bubble.
func (e *Engine) follow(b *Bubble, d viewport.Decision, now time.Time) (item *solver.Item, retire bool) {
	if d.Action == viewport.Orphan {
		if b.orphan {
			return nil, true
		}
		b.orphan = true
		hide(b, now)
		return nil, false
	}
	b.orphan = false
	b.Anchor = d.Anchor

	it := solver.Item{ID: b.ID, Priority: b.Priority, Anchor: d.Anchor.Center, Size: b.Size}
	switch d.Action {
	case viewport.Hide:
		hide(b, now)
		b.Position = d.Seed
		return nil, false
	case viewport.Hold:
		pin := b.Position
		it.Pin = &pin
	case viewport.Unhide:
		b.Hidden = false
		it.Pin = &d.Seed
	case viewport.Translate:
		off := *b.UserOffset
		it.Offset = &off
	default:
		it.Prior = &d.Seed
	}
	return &it, false
}

func hide(b *Bubble, now time.Time) {
	if !b.Hidden {
		b.Hidden = true
		b.hiddenSince = now
	}
}

func (e *Engine) commit(st *stage, stats Stats, start time.Time) {
	for _, s := range st.cancels {
		e.drag.Cancel(s)
	}
	e.bubbles = st.bubbles
	e.size = st.size
	e.pendingWidth = nil
	if st.memo != nil {
		e.memo = st.memo
	}
	for _, r := range st.retired {
		e.hooks.OnRetire(r.ID, string(r.Reason))
	}
	stats.Duration = e.now().Sub(start)
	e.stats = stats
	e.publish(st.retired)

	e.hooks.OnLayout(e.generation, len(e.bubbles), stats.Iterations, stats.Converged, stats.Duration)
	e.logger.Debug("committed frame",
		"generation", e.generation,
		"bubbles", len(e.bubbles),
		"retired", len(st.retired),
		"iterations", stats.Iterations,
		"converged", stats.Converged)
}

// publish stores and emits a frame for the current bubble set.
func (e *Engine) publish(retired []Retirement) {
	e.generation++
	f := Frame{
		Generation: e.generation,
		Session:    e.session,
		Viewport:   e.proj.Viewport(),
		Bubbles:    make([]View, len(e.bubbles)),
		Retired:    retired,
		Stats:      e.stats,
	}
	for i, b := range e.bubbles {
		v := View{
			ID:        b.ID,
			Priority:  b.Priority,
			Position:  b.Position,
			Size:      b.Size,
			Anchor:    b.Anchor,
			Connector: b.Connector,
			Hidden:    b.Hidden,
			Dragging:  b.Dragging(),
			Payload:   b.Payload,
		}
		if b.UserOffset != nil {
			off := *b.UserOffset
			v.UserOffset = &off
		}
		f.Bubbles[i] = v
	}
	e.frame.Store(&f)
	if e.onFrame != nil {
		e.onFrame(f)
	}
}

func (e *Engine) find(id string) *Bubble {
	for _, b := range e.bubbles {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// normalize sorts entries by (Priority, ID), drops duplicate IDs keeping
// the most important, and splits the result at the retention cap.
func normalize(entries []Entry, max int) (kept, overflow []Entry) {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})
	seen := make(map[string]bool, len(sorted))
	uniq := sorted[:0]
	for _, en := range sorted {
		if !seen[en.ID] {
			seen[en.ID] = true
			uniq = append(uniq, en)
		}
	}
	if len(uniq) <= max {
		return uniq, nil
	}
	return uniq[:max], uniq[max:]
}

func sortBubbles(bs []*Bubble) {
	slices.SortStableFunc(bs, func(a, b *Bubble) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})
}

// settle returns f with every relaxed item's prior replaced by its solved
// position, which is what the next identical request will look like.
func settle(f solver.Frame, r solver.Result) solver.Frame {
	out := f
	out.Items = slices.Clone(f.Items)
	for i := range out.Items {
		it := &out.Items[i]
		if it.Offset != nil || it.Pin != nil {
			continue
		}
		if pos, ok := r.Position(it.ID); ok {
			it.Prior = &pos
		}
	}
	return out
}

func sameFrame(a, b solver.Frame) bool {
	return a.Viewport == b.Viewport &&
		slices.Equal(a.Obstacles, b.Obstacles) &&
		slices.EqualFunc(a.Items, b.Items, func(x, y solver.Item) bool {
			return x.ID == y.ID && x.Priority == y.Priority &&
				x.Anchor == y.Anchor && x.Size == y.Size &&
				sameVec(x.Prior, y.Prior) && sameVec(x.Offset, y.Offset) && sameVec(x.Pin, y.Pin)
		})
}

func sameVec(a, b *geom.Vec) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
