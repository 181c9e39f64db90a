package game

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/game/spatial"
)

// Role identifies an entity the simulation needs from the scene.
type Role uint8

const (
	RoleBall Role = iota
	RolePaddleLeft
	RolePaddleRight
	RoleGoalLeft
	RoleGoalRight
	RoleWalls
	roleCount
)

var roleNames = [...]string{
	RoleBall:        "ball",
	RolePaddleLeft:  "paddle_left",
	RolePaddleRight: "paddle_right",
	RoleGoalLeft:    "goal_left",
	RoleGoalRight:   "goal_right",
	RoleWalls:       "walls",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "unknown"
}

// Side is a court half. Paddles, goals and score counters are indexed by it.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// ParseSide accepts "left"/"right" and the player aliases "1"/"2".
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "1", "player1":
		return SideLeft, true
	case "right", "2", "player2":
		return SideRight, true
	}
	return SideLeft, false
}

func paddleRole(s Side) Role {
	if s == SideLeft {
		return RolePaddleLeft
	}
	return RolePaddleRight
}

func goalRole(s Side) Role {
	if s == SideLeft {
		return RoleGoalLeft
	}
	return RoleGoalRight
}

// Intent is a paddle's requested vertical direction. Up is toward -Y.
type Intent int8

const (
	IntentUp   Intent = -1
	IntentStop Intent = 0
	IntentDown Intent = 1
)

// Scene node names. A paddle is a group whose child carries the hitbox.
const (
	NodeBall      = "Ball"
	NodePlayer    = "Player"
	NodeRacket    = "Racket"
	NodePlayerTwo = "PlayerTwo"
	NodeRacketTwo = "Racket001"
	NodeGoalLeft  = "Goal_Left"
	NodeGoalRight = "Goal_Right"
	NodeWalls     = "Walls"
)

// SceneNode is a named handle into a loaded court.
type SceneNode interface {
	Name() string
	// Position is the node origin in world space.
	Position() mgl64.Vec3
	// Bounds is the world AABB of the node and its descendants.
	Bounds() spatial.AABB
	Child(name string) (SceneNode, bool)
	Children() []SceneNode
}

// Scene resolves nodes by name.
type Scene interface {
	Lookup(name string) (SceneNode, bool)
}

// Body is a simulated entity: a position plus a box fixed relative to it.
type Body struct {
	Name     string
	Position mgl64.Vec3
	local    spatial.AABB
}

// NewBody captures world bounds relative to position so the box follows
// later moves.
func NewBody(name string, position mgl64.Vec3, bounds spatial.AABB) *Body {
	return &Body{
		Name:     name,
		Position: position,
		local:    bounds.Translate(position.Mul(-1)),
	}
}

// Bounds returns the world AABB at the current position.
func (b *Body) Bounds() spatial.AABB {
	return b.local.Translate(b.Position)
}

// BoundsAt returns the world AABB the body would have at p.
func (b *Body) BoundsAt(p mgl64.Vec3) spatial.AABB {
	return b.local.Translate(p)
}

func bodyFromNode(n SceneNode) *Body {
	return NewBody(n.Name(), n.Position(), n.Bounds())
}

// Registry holds the entities resolved from a scene. Missing roles are nil.
type Registry struct {
	Ball    *Body
	Paddles [2]*Body
	Goals   [2]*Body
	Walls   []*Body
}

// NewRegistry resolves every role in scene. A nil scene yields an empty
// registry.
func NewRegistry(scene Scene) *Registry {
	r := &Registry{}
	if scene == nil {
		return r
	}

	if n, ok := scene.Lookup(NodeBall); ok {
		r.Ball = bodyFromNode(n)
	}
	r.Paddles[SideLeft] = paddleFromScene(scene, NodePlayer, NodeRacket)
	r.Paddles[SideRight] = paddleFromScene(scene, NodePlayerTwo, NodeRacketTwo)
	if n, ok := scene.Lookup(NodeGoalLeft); ok {
		r.Goals[SideLeft] = bodyFromNode(n)
	}
	if n, ok := scene.Lookup(NodeGoalRight); ok {
		r.Goals[SideRight] = bodyFromNode(n)
	}
	if n, ok := scene.Lookup(NodeWalls); ok {
		for _, w := range n.Children() {
			r.Walls = append(r.Walls, bodyFromNode(w))
		}
	}
	return r
}

// paddleFromScene moves the group but collides with the racket child.
func paddleFromScene(scene Scene, group, racket string) *Body {
	g, ok := scene.Lookup(group)
	if !ok {
		if rk, ok := scene.Lookup(racket); ok {
			return bodyFromNode(rk)
		}
		return nil
	}
	if rk, ok := g.Child(racket); ok {
		return NewBody(g.Name(), g.Position(), rk.Bounds())
	}
	return bodyFromNode(g)
}

// Has reports whether role was resolved. Walls count as present when the
// Walls group had at least one child.
func (r *Registry) Has(role Role) bool {
	switch role {
	case RoleBall:
		return r.Ball != nil
	case RolePaddleLeft:
		return r.Paddles[SideLeft] != nil
	case RolePaddleRight:
		return r.Paddles[SideRight] != nil
	case RoleGoalLeft:
		return r.Goals[SideLeft] != nil
	case RoleGoalRight:
		return r.Goals[SideRight] != nil
	case RoleWalls:
		return len(r.Walls) > 0
	}
	return false
}

// Missing lists unresolved roles in declaration order.
func (r *Registry) Missing() []Role {
	var out []Role
	for role := RoleBall; role < roleCount; role++ {
		if !r.Has(role) {
			out = append(out, role)
		}
	}
	return out
}
