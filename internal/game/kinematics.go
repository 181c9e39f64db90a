package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/game/spatial"
)

// AdvanceBall moves the ball by one step of its direction.
func AdvanceBall(ball *Body, direction mgl64.Vec3) {
	ball.Position = ball.Position.Add(direction)
}

// hitsWallAhead reports whether box touches a wall whose center lies at or
// beyond fromY in the intent's direction. Walls behind the paddle never block.
func hitsWallAhead(box spatial.AABB, fromY float64, intent Intent, walls []spatial.AABB) bool {
	for _, w := range walls {
		cy := w.Center().Y()
		if intent == IntentUp && cy > fromY {
			continue
		}
		if intent == IntentDown && cy < fromY {
			continue
		}
		if box.Intersects(w) {
			return true
		}
	}
	return false
}

// CanMove tests a full step without moving the paddle.
func CanMove(paddle *Body, intent Intent, step float64, walls []spatial.AABB) bool {
	if intent == IntentStop {
		return true
	}
	next := paddle.Position.Add(mgl64.Vec3{0, float64(intent) * step, 0})
	return !hitsWallAhead(paddle.BoundsAt(next), paddle.Bounds().Center().Y(), intent, walls)
}

// StepPaddle walks the paddle toward position+intent*step one unit at a time,
// testing each unit before committing it, and returns the distance covered.
// The paddle stops short of the first wall it would touch.
func StepPaddle(paddle *Body, intent Intent, step float64, walls []spatial.AABB) float64 {
	if intent == IntentStop || step <= 0 {
		return 0
	}

	fromY := paddle.Bounds().Center().Y()
	moved := 0.0
	for moved < step {
		unit := math.Min(1, step-moved)
		next := paddle.Position.Add(mgl64.Vec3{0, float64(intent) * unit, 0})
		if hitsWallAhead(paddle.BoundsAt(next), fromY, intent, walls) {
			break
		}
		paddle.Position = next
		moved += unit
	}
	return moved
}
