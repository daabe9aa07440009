package bubble

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/viewport"
)

// DefaultFrameInterval is the tick period of a [Loop], one frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Loop runs an Engine on a single goroutine. Every method except Run may
// be called from any goroutine; work is queued and executed in arrival
// order.
type Loop struct {
	engine   *Engine
	tasks    chan func(*Engine)
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewLoop creates a loop for e ticking every interval. A non-positive
// interval uses [DefaultFrameInterval].
func NewLoop(e *Engine, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		engine:   e,
		tasks:    make(chan func(*Engine), 256),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Engine returns the engine driven by the loop. Only [Engine.Frame] and
// [Engine.Request] may be called on it from outside the loop.
func (l *Loop) Engine() *Engine { return l.engine }

// Run processes tasks and ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn(l.engine)
		case <-ticker.C:
			l.engine.Tick(l.engine.now())
		}
	}
}

// Post queues fn to run on the loop goroutine. It reports false once the
// loop has stopped.
func (l *Loop) Post(fn func(*Engine)) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Update queues a data update. The ticket is taken immediately, so an
// update queued later supersedes this one even if this one is already
// being laid out.
func (l *Loop) Update(entries []Entry) bool {
	ticket := l.engine.Request()
	return l.Post(func(e *Engine) { e.UpdateAt(ticket, entries) })
}

// ViewportChanged queues a map notification.
func (l *Loop) ViewportChanged(ev viewport.Event) bool {
	return l.Post(func(e *Engine) { e.ViewportChanged(ev) })
}

// PointerDown queues a press on bubble id.
func (l *Loop) PointerDown(id string, p geom.Vec) bool {
	return l.Post(func(e *Engine) { e.PointerDown(id, p) })
}

// PointerMove queues a pointer move on bubble id.
func (l *Loop) PointerMove(id string, p geom.Vec) bool {
	return l.Post(func(e *Engine) { e.PointerMove(id, p) })
}

// PointerUp queues a release on bubble id.
func (l *Loop) PointerUp(id string, p geom.Vec) bool {
	return l.Post(func(e *Engine) { e.PointerUp(id, p) })
}

// Attach subscribes the loop to a map's motion notifications.
func (l *Loop) Attach(src viewport.Source) (cancel func()) {
	return src.Subscribe(func(ev viewport.Event) { l.ViewportChanged(ev) })
}
