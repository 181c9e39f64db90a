package game

import (
	"log"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/config"
)

// StepResult reports what one step resolved.
type StepResult struct {
	Contacts []Contact // resolved contacts, in order
	Goal     bool
	GoalSide Side // goal the ball entered, valid when Goal is set
}

// Engine is the pong simulation: ball and paddle kinematics, collision
// detection and resolution, serving and scoring.
//
// Engine is not safe for concurrent use. A Loop owns it; other goroutines
// reach it through Loop.Submit.
type Engine struct {
	cfg      config.PhysicsConfig
	registry *Registry
	bounds   BoundsCache
	loaded   bool

	direction mgl64.Vec3
	intents   [2]Intent
	score     ScoreTracker

	rng  *rand.Rand
	seed int64

	hasChanges bool
	steps      uint64
	warned     [roleCount]bool
	contacts   []Contact

	// Notifications. They run on the owning goroutine and must not block.
	OnScore   func(side Side, value string)
	OnGoal    func(goal Side, score Score)
	OnContact func(c Contact, direction mgl64.Vec3)
	OnServe   func(direction mgl64.Vec3)
}

// NewEngine creates an engine with no scene. A zero seed picks one from the
// clock; the seed is logged so a session can be replayed.
func NewEngine(cfg config.PhysicsConfig, seed int64) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		cfg:      cfg,
		registry: &Registry{},
		rng:      rand.New(rand.NewSource(seed)),
		seed:     seed,
		contacts: make([]Contact, 0, 8),
	}
	e.score.onChange = func(side Side, value string) {
		if e.OnScore != nil {
			e.OnScore(side, value)
		}
	}
	log.Printf("🎲 Engine seed: %d", seed)
	return e
}

// Load resolves entities from scene and resets ball, paddles and score.
// Missing roles are reported once each when a step needs them.
func (e *Engine) Load(scene Scene) {
	e.registry = NewRegistry(scene)
	e.bounds.Reset(e.registry)
	e.loaded = scene != nil
	e.warned = [roleCount]bool{}
	e.direction = mgl64.Vec3{}
	e.intents = [2]Intent{}
	e.score.Reset()
	e.hasChanges = true

	if missing := e.registry.Missing(); len(missing) > 0 {
		log.Printf("⚠️ Scene loaded with missing roles: %v", missing)
	} else {
		log.Printf("🏓 Scene loaded: %d walls", len(e.registry.Walls))
	}
}

func (e *Engine) warnMissing(role Role) {
	if e.warned[role] {
		return
	}
	e.warned[role] = true
	log.Printf("⚠️ No %s in scene, skipping", role)
}

// =============================================================================
// COMMANDS
// =============================================================================

// Move sets a paddle intent after a speculative full-step check. A move that
// would touch a wall ahead is refused and the intent becomes 0.
func (e *Engine) Move(side Side, intent Intent) bool {
	e.hasChanges = true

	p := e.registry.Paddles[side]
	if p == nil {
		e.intents[side] = IntentStop
		e.warnMissing(paddleRole(side))
		return false
	}
	if !CanMove(p, intent, e.cfg.PaddleStep, e.bounds.Walls) {
		e.intents[side] = IntentStop
		return false
	}
	e.intents[side] = intent
	return true
}

// Stop clears a paddle intent.
func (e *Engine) Stop(side Side) {
	e.intents[side] = IntentStop
	e.hasChanges = true
}

// MoveUp moves the left paddle toward -Y.
func (e *Engine) MoveUp() bool { return e.Move(SideLeft, IntentUp) }

// MoveDown moves the left paddle toward +Y.
func (e *Engine) MoveDown() bool { return e.Move(SideLeft, IntentDown) }

// MoveUp2 moves the right paddle toward -Y.
func (e *Engine) MoveUp2() bool { return e.Move(SideRight, IntentUp) }

// MoveDown2 moves the right paddle toward +Y.
func (e *Engine) MoveDown2() bool { return e.Move(SideRight, IntentDown) }

// StopPlayerMovement stops the left paddle.
func (e *Engine) StopPlayerMovement() { e.Stop(SideLeft) }

// StopPlayer2Movement stops the right paddle.
func (e *Engine) StopPlayer2Movement() { e.Stop(SideRight) }

// StartBall serves from the ball's current position.
func (e *Engine) StartBall() {
	e.hasChanges = true
	e.direction = ServeDirection(e.rng, e.cfg.MinDirection, e.cfg.BallSpeed())
	if e.OnServe != nil {
		e.OnServe(e.direction)
	}
}

// ResetScore zeroes both counters.
func (e *Engine) ResetScore() {
	e.hasChanges = true
	e.score.Reset()
}

// =============================================================================
// STEP
// =============================================================================

// Step advances the ball, then the left and right paddles, then detects and
// resolves contacts.
func (e *Engine) Step() StepResult {
	e.steps++

	ball := e.registry.Ball
	if ball != nil {
		if e.direction != (mgl64.Vec3{}) {
			AdvanceBall(ball, e.direction)
			e.bounds.RefreshBall(e.registry)
			e.hasChanges = true
		}
	} else {
		e.warnMissing(RoleBall)
	}

	for _, side := range [...]Side{SideLeft, SideRight} {
		if e.intents[side] == IntentStop {
			continue
		}
		p := e.registry.Paddles[side]
		if p == nil {
			e.warnMissing(paddleRole(side))
			continue
		}
		if StepPaddle(p, e.intents[side], e.cfg.PaddleStep, e.bounds.Walls) > 0 {
			e.bounds.RefreshPaddle(e.registry, side)
			e.hasChanges = true
		}
	}

	if ball == nil {
		return StepResult{}
	}
	for _, side := range [...]Side{SideLeft, SideRight} {
		if e.registry.Goals[side] == nil {
			e.warnMissing(goalRole(side))
		}
	}

	e.contacts = Detect(e.contacts, &e.bounds)
	return e.resolve(e.contacts)
}

// resolve applies contacts in detection order. A goal ends the step: the
// ball has been respawned, so contacts found after it describe a position
// the ball no longer has. A paddle redirect never points the ball into a
// wall it is touching in the same step.
func (e *Engine) resolve(contacts []Contact) StepResult {
	var res StepResult
	center := e.bounds.Ball.Center()
	for _, c := range contacts {
		switch c.Kind {
		case ContactWall:
			e.direction = DepartWall(e.direction, center, e.bounds.Walls[c.Wall])
		case ContactPaddle:
			p := e.registry.Paddles[c.Side]
			e.direction = RedirectFromPaddle(e.registry.Ball.Position, p.Position,
				e.cfg.MinDirection, e.cfg.BallSpeed())
			e.direction = e.departTouchedWalls(contacts, center)
		case ContactGoal:
			res.Contacts = append(res.Contacts, c)
			res.Goal = true
			res.GoalSide = c.Side
			e.emitContact(c)
			e.scoreGoal(c.Side)
			return res
		}
		res.Contacts = append(res.Contacts, c)
		e.emitContact(c)
		e.hasChanges = true
	}
	return res
}

// departTouchedWalls keeps the current direction leaving every wall in
// contacts. Walls sort ahead of paddles, so all of them are known here.
func (e *Engine) departTouchedWalls(contacts []Contact, center mgl64.Vec3) mgl64.Vec3 {
	dir := e.direction
	for _, c := range contacts {
		if c.Kind == ContactWall {
			dir = DepartWall(dir, center, e.bounds.Walls[c.Wall])
		}
	}
	return dir
}

func (e *Engine) emitContact(c Contact) {
	if e.OnContact != nil {
		e.OnContact(c, e.direction)
	}
}

// scoreGoal credits the opposite player, recenters the ball and serves.
func (e *Engine) scoreGoal(goal Side) {
	e.hasChanges = true
	e.score.RecordGoal(goal)

	e.registry.Ball.Position = mgl64.Vec3{}
	e.bounds.RefreshBall(e.registry)
	e.StartBall()

	if e.OnGoal != nil {
		e.OnGoal(goal, e.score.Score())
	}
}

// =============================================================================
// STATE
// =============================================================================

// HasChanges reports whether anything changed since ClearChanges.
func (e *Engine) HasChanges() bool { return e.hasChanges }

// ClearChanges resets the render flag after a frame is presented.
func (e *Engine) ClearChanges() { e.hasChanges = false }

// Loaded reports whether a scene has been loaded.
func (e *Engine) Loaded() bool { return e.loaded }

// Score returns the current counters.
func (e *Engine) Score() Score { return e.score.Score() }

// Direction returns the ball direction; zero before the first serve.
func (e *Engine) Direction() mgl64.Vec3 { return e.direction }

// Intent returns a paddle's committed intent.
func (e *Engine) Intent(side Side) Intent { return e.intents[side] }

// Steps returns how many steps have run.
func (e *Engine) Steps() uint64 { return e.steps }

// Seed returns the RNG seed.
func (e *Engine) Seed() int64 { return e.seed }

// Config returns the physics constants.
func (e *Engine) Config() config.PhysicsConfig { return e.cfg }
