// Package spatial provides the geometry and concurrent containers shared by
// the simulation: axis-aligned boxes, a ranked skip list for the leaderboard
// and a bounded MPSC queue for commands crossing into the game loop.
package spatial

import "github.com/go-gl/mathgl/mgl64"

// AABB is an axis-aligned bounding box. Min <= Max on every axis.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB builds a box from its center and full size.
// Negative size components are treated as zero.
func NewAABB(center, size mgl64.Vec3) AABB {
	half := mgl64.Vec3{
		nonNegative(size[0]) / 2,
		nonNegative(size[1]) / 2,
		nonNegative(size[2]) / 2,
	}
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// Intersects reports whether two boxes overlap. Touching faces count as
// overlap, matching Box3.intersectsBox in the scene tooling.
func (a AABB) Intersects(b AABB) bool {
	return a.Max[0] >= b.Min[0] && a.Min[0] <= b.Max[0] &&
		a.Max[1] >= b.Min[1] && a.Min[1] <= b.Max[1] &&
		a.Max[2] >= b.Min[2] && a.Min[2] <= b.Max[2]
}

// ContainsPoint checks if a point is inside the box (inclusive).
func (a AABB) ContainsPoint(p mgl64.Vec3) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

// Translate returns the box moved by offset.
func (a AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(offset), Max: a.Max.Add(offset)}
}

// Center returns the midpoint of the box.
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Size returns the extent of the box on each axis.
func (a AABB) Size() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// Union returns the smallest box containing both a and b.
func (a AABB) Union(b AABB) AABB {
	var out AABB
	for i := 0; i < 3; i++ {
		out.Min[i] = min(a.Min[i], b.Min[i])
		out.Max[i] = max(a.Max[i], b.Max[i])
	}
	return out
}

// Valid reports whether Min <= Max componentwise.
func (a AABB) Valid() bool {
	return a.Min[0] <= a.Max[0] && a.Min[1] <= a.Max[1] && a.Min[2] <= a.Max[2]
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
