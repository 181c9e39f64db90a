package game

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/game/spatial"
)

// ReflectWall inverts the vertical component.
func ReflectWall(direction mgl64.Vec3) mgl64.Vec3 {
	direction[1] = -direction[1]
	return direction
}

// DepartWall reflects direction off wall only while the ball is heading
// into it, judged from the ball center against the wall center. A ball
// already leaving the wall keeps its direction, so it cannot be flipped back
// into the wall on the next overlapping step.
func DepartWall(direction, ball mgl64.Vec3, wall spatial.AABB) mgl64.Vec3 {
	away := ball[1] - wall.Center()[1]
	if away*direction[1] < 0 {
		return ReflectWall(direction)
	}
	return direction
}

// RedirectFromPaddle aims the ball away from the paddle center. The unit
// offset has x and y floored to minDir in magnitude (zero counts as
// positive), z dropped, then the result is scaled to speed.
func RedirectFromPaddle(ball, paddle mgl64.Vec3, minDir, speed float64) mgl64.Vec3 {
	delta := ball.Sub(paddle)
	if l := delta.Len(); l > 0 {
		delta = delta.Mul(1 / l)
	}
	return mgl64.Vec3{
		floorAxis(delta[0], minDir, 1) * speed,
		floorAxis(delta[1], minDir, 1) * speed,
		0,
	}
}

// ServeDirection draws x and y uniformly from [-1, 1], floors each to minDir
// in magnitude keeping its sign (an exact zero stays zero) and scales to
// speed.
func ServeDirection(rng *rand.Rand, minDir, speed float64) mgl64.Vec3 {
	x := rng.Float64()*2 - 1
	y := rng.Float64()*2 - 1
	return mgl64.Vec3{
		floorAxis(x, minDir, 0) * speed,
		floorAxis(y, minDir, 0) * speed,
		0,
	}
}

// floorAxis returns v if |v| >= floor, otherwise sign(v)*floor. zeroSign is
// the sign used when v is exactly zero.
func floorAxis(v, floor, zeroSign float64) float64 {
	if math.Abs(v) >= floor {
		return v
	}
	switch {
	case v > 0:
		return floor
	case v < 0:
		return -floor
	}
	return zeroSign * floor
}
