package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/render"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

const (
	panStep    = 40.0
	zoomStep   = 1.25
	tuiChrome  = 3 // title + help + status lines
	tuiMinRows = 5
)

var (
	mapBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	statusStyle    = lipgloss.NewStyle().Foreground(colorGray)
	listDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PlayModel - Interactive map
// =============================================================================

type tickMsg time.Time

// PlayModel is the bubbletea model for exploring a scene interactively.
// The engine is driven from Update only, so it never sees concurrent calls.
type PlayModel struct {
	Scene  *scene.Scene
	Map    *scene.Map
	Engine *bubble.Engine

	Cols, Rows int
	Status     string

	dragging string
	last     string
	interval time.Duration
}

// NewPlayModel creates a play model for sc with an engine laid out
// against m and subscribed to its motion.
func NewPlayModel(sc *scene.Scene, m *scene.Map, cfg bubble.Config, opts ...bubble.Option) *PlayModel {
	pm := &PlayModel{
		Scene:    sc,
		Map:      m,
		Cols:     80,
		Rows:     20,
		interval: bubble.DefaultFrameInterval,
	}
	opts = append(opts, bubble.WithOnClick(pm.OnClick), bubble.WithOnDragEnd(pm.OnDragEnd))
	pm.Engine = bubble.New(m, cfg, opts...)
	m.Subscribe(pm.Engine.ViewportChanged)
	return pm
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *PlayModel) Init() tea.Cmd {
	m.Engine.Update(m.Scene.Entries(nil, nil))
	return tick(m.interval)
}

func (m *PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.Engine.Tick(time.Time(msg))
		return m, tick(m.interval)

	case tea.WindowSizeMsg:
		m.Cols = max(msg.Width-2, 10)
		m.Rows = max(msg.Height-tuiChrome-2, tuiMinRows)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.pan(geom.Vec{X: panStep})
		case "right", "l":
			m.pan(geom.Vec{X: -panStep})
		case "up", "k":
			m.pan(geom.Vec{Y: panStep})
		case "down", "j":
			m.pan(geom.Vec{Y: -panStep})
		case "+", "=":
			m.zoom(zoomStep)
		case "-", "_":
			m.zoom(1 / zoomStep)
		case "r":
			if m.last != "" && m.Engine.ResetOffset(m.last) {
				m.Status = "reset " + m.last
			}
		}

	case tea.MouseMsg:
		m.mouse(msg)
	}
	return m, nil
}

func (m *PlayModel) pan(d geom.Vec) {
	if !m.Map.Pan(d) {
		m.Status = "pan locked while dragging"
	}
}

func (m *PlayModel) zoom(factor float64) {
	if !m.Map.Zoom(factor, m.Map.Viewport().Center()) {
		m.Status = "zoom locked while dragging"
	}
}

func (m *PlayModel) mouse(msg tea.MouseMsg) {
	p := m.toScreen(msg.X-1, msg.Y-2)
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if id, ok := m.Engine.HitTest(p); ok && m.Engine.PointerDown(id, p) {
			m.dragging = id
		}
	case msg.Action == tea.MouseActionMotion && m.dragging != "":
		m.Engine.PointerMove(m.dragging, p)
	case msg.Action == tea.MouseActionRelease && m.dragging != "":
		m.Engine.PointerUp(m.dragging, p)
		m.last, m.dragging = m.dragging, ""
	}
}

// OnClick reports plain clicks in the status line.
func (m *PlayModel) OnClick(id string) { m.Status = "clicked " + id }

// OnDragEnd reports finished drags in the status line.
func (m *PlayModel) OnDragEnd(id string, off geom.Vec) {
	m.Status = fmt.Sprintf("moved %s to %+.0f,%+.0f from its marker", id, off.X, off.Y)
}

// toScreen maps a terminal cell to the centre of the screen area it covers.
func (m *PlayModel) toScreen(col, row int) geom.Vec {
	vp := m.Map.Viewport()
	return geom.Vec{
		X: vp.X + (float64(col)+0.5)*vp.W/float64(m.Cols),
		Y: vp.Y + (float64(row)+0.5)*vp.H/float64(m.Rows),
	}
}

func (m *PlayModel) View() string {
	var b strings.Builder
	f := m.Engine.Frame()

	b.WriteString(StyleTitle.Render(m.title()))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("gen %d · %d/%d visible · zoom %.2f",
		f.Generation, len(f.Visible()), len(f.Bubbles), m.Map.Camera().Zoom)))
	b.WriteString("\n")

	grid := drawFrame(f, m.Scene.Obstacles, m.Map.Viewport(), m.Cols, m.Rows)
	b.WriteString(mapBorderStyle.Render(strings.Join(grid, "\n")))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←↑↓→ pan  +/- zoom  drag bubbles with the mouse  r reset  q quit"))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.Status))
	return b.String()
}

func (m *PlayModel) title() string {
	if m.Scene.Name != "" {
		return m.Scene.Name
	}
	return appName
}

// =============================================================================
// Character canvas
// =============================================================================

type canvas struct {
	cells      [][]rune
	cols, rows int
	vp         geom.Rect
}

func newCanvas(vp geom.Rect, cols, rows int) *canvas {
	c := &canvas{cells: make([][]rune, rows), cols: cols, rows: rows, vp: vp}
	for i := range c.cells {
		c.cells[i] = []rune(strings.Repeat(" ", cols))
	}
	return c
}

// cell maps a screen point to a grid cell.
func (c *canvas) cell(p geom.Vec) (int, int) {
	x := int(math.Floor((p.X - c.vp.X) / c.vp.W * float64(c.cols)))
	y := int(math.Floor((p.Y - c.vp.Y) / c.vp.H * float64(c.rows)))
	return x, y
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.cols && y >= 0 && y < c.rows {
		c.cells[y][x] = r
	}
}

func (c *canvas) fill(r geom.Rect, ch rune) {
	x0, y0 := c.cell(r.Min())
	x1, y1 := c.cell(r.Max())
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c.set(x, y, ch)
		}
	}
}

func (c *canvas) line(a, b geom.Vec, ch rune) {
	n := int(math.Ceil(a.Dist(b) / math.Min(c.vp.W/float64(c.cols), c.vp.H/float64(c.rows))))
	for i := 0; i <= n; i++ {
		x, y := c.cell(a.Lerp(b, float64(i)/float64(max(n, 1))))
		c.set(x, y, ch)
	}
}

func (c *canvas) box(r geom.Rect, label string, heavy bool) {
	x0, y0 := c.cell(r.Min())
	x1, y1 := c.cell(r.Max())
	x1, y1 = max(x1-1, x0+1), max(y1-1, y0+1)
	corners, h, v := []rune("┌┐└┘"), '─', '│'
	if heavy {
		corners, h, v = []rune("╔╗╚╝"), '═', '║'
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, h)
		c.set(x, y1, h)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, v)
		c.set(x1, y, v)
		for x := x0 + 1; x < x1; x++ {
			c.set(x, y, ' ')
		}
	}
	c.set(x0, y0, corners[0])
	c.set(x1, y0, corners[1])
	c.set(x0, y1, corners[2])
	c.set(x1, y1, corners[3])

	inner := x1 - x0 - 1
	if inner <= 0 {
		return
	}
	text := []rune(render.Fit(label, float64(inner)*render.CharWidth))
	y := (y0 + y1) / 2
	x := x0 + 1 + (inner-len(text))/2
	for i, r := range text {
		c.set(x+i, y, r)
	}
}

func (c *canvas) lines() []string {
	out := make([]string, c.rows)
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}

// drawFrame renders f onto a cols×rows character grid covering vp.
func drawFrame(f bubble.Frame, obstacles []geom.Rect, vp geom.Rect, cols, rows int) []string {
	c := newCanvas(vp, cols, rows)
	for _, r := range obstacles {
		c.fill(r, '░')
	}
	visible := f.Visible()
	for _, v := range visible {
		c.line(v.Connector.Base, v.Connector.Tip, '·')
	}
	for _, v := range visible {
		c.box(v.Rect(), render.Label(v), v.Dragging)
	}
	for _, v := range f.Bubbles {
		x, y := c.cell(v.Anchor.Center)
		c.set(x, y, '●')
	}
	return c.lines()
}
