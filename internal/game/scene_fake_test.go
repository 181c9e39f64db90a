package game

import (
	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/game/spatial"
)

type fakeNode struct {
	name     string
	pos      mgl64.Vec3
	box      spatial.AABB
	children []*fakeNode
}

func (n *fakeNode) Name() string         { return n.name }
func (n *fakeNode) Position() mgl64.Vec3 { return n.pos }
func (n *fakeNode) Bounds() spatial.AABB { return n.box }

func (n *fakeNode) Child(name string) (SceneNode, bool) {
	for _, c := range n.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

func (n *fakeNode) Children() []SceneNode {
	out := make([]SceneNode, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func leaf(name string, cx, cy, w, h float64) *fakeNode {
	center := mgl64.Vec3{cx, cy, 0}
	return &fakeNode{name: name, pos: center, box: spatial.NewAABB(center, mgl64.Vec3{w, h, 16})}
}

func group(name string, children ...*fakeNode) *fakeNode {
	g := &fakeNode{name: name, children: children}
	for i, c := range children {
		if i == 0 {
			g.box = c.box
		} else {
			g.box = g.box.Union(c.box)
		}
	}
	return g
}

func paddleGroup(name, racket string, x, y float64) *fakeNode {
	r := leaf(racket, x, y, 16, 120)
	return &fakeNode{name: name, pos: r.pos, box: r.box, children: []*fakeNode{r}}
}

type fakeScene map[string]*fakeNode

func (s fakeScene) Lookup(name string) (SceneNode, bool) {
	n, ok := s[name]
	if !ok {
		return nil, false
	}
	return n, true
}

func (s fakeScene) add(n *fakeNode) fakeScene {
	if _, ok := s[n.name]; !ok {
		s[n.name] = n
	}
	for _, c := range n.children {
		s.add(c)
	}
	return s
}

// testCourt is a 1280x720 court centered on the origin. Wall inner edges sit
// at y=±340 and paddle rackets are 120 tall.
func testCourt() fakeScene {
	return fakeScene{}.
		add(leaf(NodeBall, 0, 0, 16, 16)).
		add(paddleGroup(NodePlayer, NodeRacket, -600, 0)).
		add(paddleGroup(NodePlayerTwo, NodeRacketTwo, 600, 0)).
		add(leaf(NodeGoalLeft, -650, 0, 20, 680)).
		add(leaf(NodeGoalRight, 650, 0, 20, 680)).
		add(group(NodeWalls,
			leaf("Wall_Top", 0, -350, 1280, 20),
			leaf("Wall_Bottom", 0, 350, 1280, 20)))
}
