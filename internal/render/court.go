// Package render draws the court and scoreboard from game snapshots.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/fogleman/gg"

	"pong-arena/internal/game"
)

const margin = 24.0

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorWall       = parseHexColor("#8a8fa8")
	colorCenterLine = color.RGBA{255, 255, 255, 60}
	colorPaddle     = parseHexColor("#f5f5ff")
	colorBall       = parseHexColor("#ffd84d")
	colorScore      = color.RGBA{255, 255, 255, 200}
	colorGoal       = [2]color.RGBA{
		game.SideLeft:  {80, 140, 255, 70},
		game.SideRight: {255, 90, 90, 70},
	}
)

// CourtRenderer keeps the latest snapshot and score strings and renders a
// PNG on demand. Rendering only happens when something changed since the
// last encode.
type CourtRenderer struct {
	width, height int

	mu     sync.Mutex
	snap   *game.Snapshot
	scores [2]string
	dirty  bool
	png    []byte

	renders atomic.Uint64
}

// NewCourtRenderer creates a renderer producing width x height images.
func NewCourtRenderer(width, height int) *CourtRenderer {
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	return &CourtRenderer{
		width:  width,
		height: height,
		scores: [2]string{"0", "0"},
		dirty:  true,
	}
}

// Present stores the frame's snapshot. Unchanged frames are ignored.
func (r *CourtRenderer) Present(snap *game.Snapshot, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !changed && r.snap != nil {
		return
	}
	r.snap = snap
	r.dirty = true
}

// SetScore updates one side's scoreboard text.
func (r *CourtRenderer) SetScore(side game.Side, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scores[side] == value {
		return
	}
	r.scores[side] = value
	r.dirty = true
}

// Renders returns how many times the court has been drawn.
func (r *CourtRenderer) Renders() uint64 {
	return r.renders.Load()
}

// WritePNG writes the current court as PNG.
func (r *CourtRenderer) WritePNG(w io.Writer) error {
	r.mu.Lock()
	if r.dirty || r.png == nil {
		dc := r.draw(r.snap, r.scores)
		var buf bytes.Buffer
		if err := dc.EncodePNG(&buf); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("encode court: %w", err)
		}
		r.png = buf.Bytes()
		r.dirty = false
	}
	data := r.png
	r.mu.Unlock()

	_, err := w.Write(data)
	return err
}

// Image renders the current court.
func (r *CourtRenderer) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draw(r.snap, r.scores).Image()
}

// view maps world coordinates into the image, preserving aspect ratio.
type view struct {
	scale  float64
	ox, oy float64
}

func (v view) point(x, y float64) (float64, float64) {
	return v.ox + x*v.scale, v.oy + y*v.scale
}

func (v view) rect(b game.Box) (x, y, w, h float64) {
	x, y = v.point(b.Min[0], b.Min[1])
	return x, y, (b.Max[0] - b.Min[0]) * v.scale, (b.Max[1] - b.Min[1]) * v.scale
}

func (r *CourtRenderer) fit(snap *game.Snapshot) view {
	minX, minY, maxX, maxY := -640.0, -360.0, 640.0, 360.0
	if snap != nil && (len(snap.Walls) > 0 || len(snap.Goals) > 0) {
		minX, minY = math.Inf(1), math.Inf(1)
		maxX, maxY = math.Inf(-1), math.Inf(-1)
		grow := func(b game.Box) {
			minX, minY = math.Min(minX, b.Min[0]), math.Min(minY, b.Min[1])
			maxX, maxY = math.Max(maxX, b.Max[0]), math.Max(maxY, b.Max[1])
		}
		for _, w := range snap.Walls {
			grow(w)
		}
		for _, g := range snap.Goals {
			grow(g.Bounds)
		}
	}

	worldW, worldH := math.Max(maxX-minX, 1), math.Max(maxY-minY, 1)
	scale := math.Min((float64(r.width)-2*margin)/worldW, (float64(r.height)-2*margin)/worldH)
	return view{
		scale: scale,
		ox:    float64(r.width)/2 - (minX+maxX)/2*scale,
		oy:    float64(r.height)/2 - (minY+maxY)/2*scale,
	}
}

func (r *CourtRenderer) draw(snap *game.Snapshot, scores [2]string) *gg.Context {
	r.renders.Add(1)

	dc := gg.NewContext(r.width, r.height)
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	v := r.fit(snap)

	// Center line
	dc.SetColor(colorCenterLine)
	dc.SetLineWidth(2)
	dc.SetDash(12, 12)
	cx, _ := v.point(0, 0)
	dc.DrawLine(cx, margin, cx, float64(r.height)-margin)
	dc.Stroke()
	dc.SetDash()

	r.drawScores(dc, scores)

	if snap == nil {
		return dc
	}

	for _, g := range snap.Goals {
		side, _ := game.ParseSide(g.Side)
		dc.SetColor(colorGoal[side])
		dc.DrawRectangle(v.rect(g.Bounds))
		dc.Fill()
	}

	dc.SetColor(colorWall)
	for _, w := range snap.Walls {
		dc.DrawRectangle(v.rect(w))
		dc.Fill()
	}

	dc.SetColor(colorPaddle)
	for _, p := range snap.Paddles {
		if !p.Present {
			continue
		}
		x, y, w, h := v.rect(p.Bounds)
		dc.DrawRoundedRectangle(x, y, w, h, math.Min(w, h)/3)
		dc.Fill()
	}

	if snap.Ball.Present {
		b := snap.Ball.Bounds
		x, y := v.point((b.Min[0]+b.Max[0])/2, (b.Min[1]+b.Max[1])/2)
		radius := math.Max((b.Max[0]-b.Min[0])/2*v.scale, 2)
		dc.SetColor(colorBall)
		dc.DrawCircle(x, y, radius)
		dc.Fill()
	}

	return dc
}

// drawScores writes both counters in the upper quarter of each half. The
// built-in face is small, so the text is scaled up around its anchor.
func (r *CourtRenderer) drawScores(dc *gg.Context, scores [2]string) {
	dc.SetColor(colorScore)
	y := float64(r.height) / 6
	for side, text := range scores {
		x := float64(r.width) / 4
		if game.Side(side) == game.SideRight {
			x *= 3
		}
		dc.Push()
		dc.ScaleAbout(4, 4, x, y)
		dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
		dc.Pop()
	}
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}
