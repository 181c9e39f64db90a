package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/game"
	"pong-arena/internal/game/spatial"
)

// Node is one entry of the court tree.
type Node struct {
	name     string
	local    mgl64.Vec3 // relative to parent
	size     mgl64.Vec3
	parent   *Node
	children []*Node
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Position returns the node origin in world space.
func (n *Node) Position() mgl64.Vec3 {
	if n.parent == nil {
		return n.local
	}
	return n.parent.Position().Add(n.local)
}

// Bounds returns the world box of the node and its descendants. A group
// without children is a point at its position.
func (n *Node) Bounds() spatial.AABB {
	box, ok := n.bounds()
	if !ok {
		p := n.Position()
		return spatial.AABB{Min: p, Max: p}
	}
	return box
}

func (n *Node) bounds() (spatial.AABB, bool) {
	var box spatial.AABB
	ok := false
	if n.size != (mgl64.Vec3{}) {
		box = spatial.NewAABB(n.Position(), n.size)
		ok = true
	}
	for _, c := range n.children {
		cb, cok := c.bounds()
		if !cok {
			continue
		}
		if ok {
			box = box.Union(cb)
		} else {
			box, ok = cb, true
		}
	}
	return box, ok
}

// Child finds a descendant by name, depth first.
func (n *Node) Child(name string) (game.SceneNode, bool) {
	if c := n.find(name); c != nil {
		return c, true
	}
	return nil, false
}

func (n *Node) find(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if d := c.find(name); d != nil {
			return d
		}
	}
	return nil
}

// Children returns the direct children.
func (n *Node) Children() []game.SceneNode {
	out := make([]game.SceneNode, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}
