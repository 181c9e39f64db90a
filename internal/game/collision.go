package game

// ContactKind classifies a ball overlap.
type ContactKind uint8

const (
	ContactWall ContactKind = iota
	ContactGoal
	ContactPaddle
)

func (k ContactKind) String() string {
	switch k {
	case ContactWall:
		return "wall"
	case ContactGoal:
		return "goal"
	case ContactPaddle:
		return "paddle"
	}
	return "unknown"
}

// Contact is one ball overlap found in a step. Side is set for goals and
// paddles; Wall indexes BoundsCache.Walls for wall contacts.
type Contact struct {
	Kind ContactKind
	Side Side
	Wall int
}

// Detect appends the ball's contacts to dst[:0] in resolution order: every
// wall, the right goal, the left goal, the left paddle, the right paddle.
// Roles missing from the cache are skipped.
func Detect(dst []Contact, c *BoundsCache) []Contact {
	dst = dst[:0]
	if !c.Has(RoleBall) {
		return dst
	}
	ball := c.Ball

	for i, w := range c.Walls {
		if ball.Intersects(w) {
			dst = append(dst, Contact{Kind: ContactWall, Wall: i})
		}
	}
	if c.Has(RoleGoalRight) && ball.Intersects(c.Goals[SideRight]) {
		dst = append(dst, Contact{Kind: ContactGoal, Side: SideRight})
	}
	if c.Has(RoleGoalLeft) && ball.Intersects(c.Goals[SideLeft]) {
		dst = append(dst, Contact{Kind: ContactGoal, Side: SideLeft})
	}
	if c.Has(RolePaddleLeft) && ball.Intersects(c.Paddles[SideLeft]) {
		dst = append(dst, Contact{Kind: ContactPaddle, Side: SideLeft})
	}
	if c.Has(RolePaddleRight) && ball.Intersects(c.Paddles[SideRight]) {
		dst = append(dst, Contact{Kind: ContactPaddle, Side: SideRight})
	}
	return dst
}
