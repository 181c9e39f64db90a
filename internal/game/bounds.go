package game

import "pong-arena/internal/game/spatial"

// BoundsCache holds the current world AABB of every entity. Static boxes
// (walls, goals) are computed once on load; ball and paddle boxes are
// recomputed from position after each move.
type BoundsCache struct {
	Ball    spatial.AABB
	Paddles [2]spatial.AABB
	Goals   [2]spatial.AABB
	Walls   []spatial.AABB

	present [roleCount]bool
}

// Reset rebuilds the cache from a registry.
func (c *BoundsCache) Reset(r *Registry) {
	*c = BoundsCache{}
	for role := RoleBall; role < roleCount; role++ {
		c.present[role] = r.Has(role)
	}

	for i, g := range r.Goals {
		if g != nil {
			c.Goals[i] = g.Bounds()
		}
	}
	c.Walls = make([]spatial.AABB, 0, len(r.Walls))
	for _, w := range r.Walls {
		c.Walls = append(c.Walls, w.Bounds())
	}

	c.RefreshBall(r)
	c.RefreshPaddle(r, SideLeft)
	c.RefreshPaddle(r, SideRight)
}

// Has reports whether role has a box.
func (c *BoundsCache) Has(role Role) bool {
	return c.present[role]
}

// RefreshBall recomputes the ball box.
func (c *BoundsCache) RefreshBall(r *Registry) {
	if r.Ball != nil {
		c.Ball = r.Ball.Bounds()
	}
}

// RefreshPaddle recomputes one paddle box.
func (c *BoundsCache) RefreshPaddle(r *Registry, side Side) {
	if p := r.Paddles[side]; p != nil {
		c.Paddles[side] = p.Bounds()
	}
}
