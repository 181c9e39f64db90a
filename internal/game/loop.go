package game

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/config"
	"pong-arena/internal/game/spatial"
)

// FramePresenter receives every host frame. changed reports whether the
// engine marked anything dirty since the previous frame. Present runs on the
// loop goroutine and must return quickly.
type FramePresenter interface {
	Present(snap *Snapshot, changed bool)
}

// StepObserver receives step timings, e.g. for metrics.
type StepObserver interface {
	ObserveStep(d time.Duration, res StepResult)
	ObserveSkip()
}

// LoopStats is a point-in-time view of loop counters.
type LoopStats struct {
	Frames        uint64 `json:"frames"`
	Steps         uint64 `json:"steps"`
	SkippedFrames uint64 `json:"skippedFrames"`
	Commands      uint64 `json:"commands"`
	Rejected      uint64 `json:"rejected"`
	Denied        uint64 `json:"denied"`
	QueueLen      int    `json:"queueLen"`
	Running       bool   `json:"running"`
}

// Loop owns an Engine and drives it the way a display callback would: on
// every host frame it applies queued commands, runs at most one step if the
// frame gate opens, publishes a snapshot and presents the frame.
type Loop struct {
	engine *Engine
	input  *InputBridge
	gate   *FrameGate

	queue *spatial.LockFreeQueue[Command]
	drain []Command

	snapshots   SnapshotBuffer
	walls       []Box
	goals       []GoalSnapshot
	events      *EventLog
	leaderboard *Leaderboard
	seats       *Seats
	holders     [2]string // seats as of the last frame

	presenters     []FramePresenter
	observer       StepObserver
	scoreListeners []func(side Side, value string)
	goalListeners  []func(goal Side, score Score)

	hostInterval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}

	frames   atomic.Uint64
	steps    atomic.Uint64
	skipped  atomic.Uint64
	commands atomic.Uint64
	rejected atomic.Uint64
	denied   atomic.Uint64
}

// NewLoop wires a loop around engine. events may be nil.
func NewLoop(engine *Engine, cfg config.LoopConfig, keys config.InputConfig, events *EventLog) *Loop {
	if cfg.HostRate <= 0 {
		cfg.HostRate = config.DefaultLoop().HostRate
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.DefaultLoop().QueueSize
	}

	l := &Loop{
		engine:       engine,
		gate:         NewFrameGate(cfg.TargetRate),
		queue:        spatial.NewLockFreeQueue[Command](cfg.QueueSize),
		events:       events,
		leaderboard:  NewLeaderboard(),
		seats:        &Seats{},
		hostInterval: time.Second / time.Duration(cfg.HostRate),
	}
	l.drain = make([]Command, l.queue.Cap())
	l.input = NewInputBridge(keys, engine)
	l.input.gate = l.seats.CanDrive

	engine.OnScore = l.handleScore
	engine.OnGoal = l.handleGoal
	engine.OnServe = l.handleServe
	engine.OnContact = l.handleContact
	return l
}

// AddPresenter registers a frame presenter. Call before Start.
func (l *Loop) AddPresenter(p FramePresenter) {
	l.presenters = append(l.presenters, p)
}

// SetObserver registers a step observer. Call before Start.
func (l *Loop) SetObserver(o StepObserver) {
	l.observer = o
}

// OnScore registers a score listener. Call before Start.
func (l *Loop) OnScore(fn func(side Side, value string)) {
	l.scoreListeners = append(l.scoreListeners, fn)
}

// OnGoal registers a goal listener. Call before Start.
func (l *Loop) OnGoal(fn func(goal Side, score Score)) {
	l.goalListeners = append(l.goalListeners, fn)
}

// Start begins the host ticker.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.stopChan = make(chan struct{})
	l.done = make(chan struct{})

	go l.run(l.stopChan, l.done)
	log.Printf("🏓 Game loop started (host %v, step %v)", l.hostInterval, l.gate.Interval())
}

// Stop halts the ticker and waits for the current frame to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	l.running = false
	close(l.stopChan)
	<-l.done
	log.Println("🛑 Game loop stopped")
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.hostInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			l.Frame(now)
		}
	}
}

// Submit queues a command for the next host frame. It returns false when the
// queue is full. Safe for concurrent use.
func (l *Loop) Submit(cmd Command) bool {
	if !l.queue.TryPush(cmd) {
		l.rejected.Add(1)
		return false
	}
	if l.events != nil && cmd.Kind != CmdLoad {
		l.events.EmitSimple(EventTypeCommand, l.steps.Load(), cmd.Source,
			CommandPayload{Action: cmd.Kind.String(), Key: cmd.Key})
	}
	return true
}

// Load queues a scene load.
func (l *Loop) Load(scene Scene) bool {
	return l.Submit(Command{Kind: CmdLoad, Scene: scene})
}

// Frame runs one host frame. It must only be called from the goroutine that
// owns the loop: the ticker goroutine once started, or a test driving the
// loop by hand.
func (l *Loop) Frame(now time.Time) {
	l.frames.Add(1)

	l.syncSeats()
	n := l.queue.DrainTo(l.drain)
	for i := 0; i < n; i++ {
		l.apply(l.drain[i])
		l.drain[i] = Command{}
	}

	if l.gate.Open(now) {
		start := time.Now()
		res := l.engine.Step()
		l.steps.Add(1)
		if l.observer != nil {
			l.observer.ObserveStep(time.Since(start), res)
		}
	} else {
		l.skipped.Add(1)
		if l.observer != nil {
			l.observer.ObserveSkip()
		}
	}

	changed := l.engine.HasChanges()
	snap := l.snapshots.Latest()
	if changed || snap == nil {
		snap = l.capture(now)
		l.snapshots.Publish(snap)
	}
	for _, p := range l.presenters {
		p.Present(snap, changed)
	}
	l.engine.ClearChanges()
}

// syncSeats re-derives key input when a seat changed hands, so keys held
// by someone who lost (or gained) a paddle take effect right away.
func (l *Loop) syncSeats() {
	h := l.seats.Holders()
	if h == l.holders {
		return
	}
	l.holders = h
	l.input.Refresh()
}

func (l *Loop) apply(cmd Command) {
	l.commands.Add(1)

	if side, ok := cmd.Kind.PaddleSide(); ok && !l.seats.CanDrive(side, cmd.User) {
		l.denied.Add(1)
		return
	}

	e := l.engine
	switch cmd.Kind {
	case CmdMoveUp:
		e.MoveUp()
	case CmdMoveDown:
		e.MoveDown()
	case CmdMoveUp2:
		e.MoveUp2()
	case CmdMoveDown2:
		e.MoveDown2()
	case CmdStopPlayer:
		e.StopPlayerMovement()
	case CmdStopPlayer2:
		e.StopPlayer2Movement()
	case CmdStartBall:
		e.StartBall()
	case CmdResetScore:
		e.ResetScore()
		l.emit(EventTypeScoreReset, cmd.Source, e.Score())
	case CmdKeyDown:
		l.input.KeyDown(cmd.Source, cmd.User, cmd.Key)
	case CmdKeyUp:
		l.input.KeyUp(cmd.Source, cmd.Key)
	case CmdReleaseKeys:
		l.input.Release(cmd.Source)
	case CmdLoad:
		e.Load(cmd.Scene)
		l.walls, l.goals = staticBoxes(&e.bounds)
		missing := make([]string, 0)
		for _, r := range e.registry.Missing() {
			missing = append(missing, r.String())
		}
		l.emit(EventTypeSceneLoad, "", SceneLoadPayload{
			Walls:   len(e.registry.Walls),
			Missing: missing,
			Seed:    e.Seed(),
		})
	}
}

func (l *Loop) capture(now time.Time) *Snapshot {
	s := &Snapshot{
		Timestamp: now.UnixMilli(),
		Walls:     l.walls,
		Goals:     l.goals,
	}
	l.engine.Capture(s)
	holders := l.seats.Holders()
	s.Paddles[SideLeft].Player = holders[SideLeft]
	s.Paddles[SideRight].Player = holders[SideRight]
	return s
}

func (l *Loop) emit(t EventType, source string, payload interface{}) {
	if l.events != nil {
		l.events.EmitSimple(t, l.engine.Steps(), source, payload)
	}
}

func (l *Loop) handleScore(side Side, value string) {
	for _, fn := range l.scoreListeners {
		fn(side, value)
	}
}

func (l *Loop) handleGoal(goal Side, score Score) {
	scorer := goal.Opposite()
	player := l.seats.Holder(scorer)
	if player != "" {
		total := l.leaderboard.AddGoals(player, 1)
		log.Printf("⚽ Goal for %s (%s, %d total) %d-%d", scorer, player, total, score.Left, score.Right)
	} else {
		log.Printf("⚽ Goal for %s %d-%d", scorer, score.Left, score.Right)
	}

	l.emit(EventTypeGoal, player, GoalPayload{
		Goal:   goal.String(),
		Scorer: scorer.String(),
		Player: player,
		Left:   score.Left,
		Right:  score.Right,
	})
	for _, fn := range l.goalListeners {
		fn(goal, score)
	}
}

func (l *Loop) handleServe(dir mgl64.Vec3) {
	l.emit(EventTypeServe, "", ServePayload{DX: dir.X(), DY: dir.Y()})
}

func (l *Loop) handleContact(c Contact, dir mgl64.Vec3) {
	switch c.Kind {
	case ContactWall:
		l.emit(EventTypeWallHit, "", ContactPayload{Wall: c.Wall, DX: dir.X(), DY: dir.Y()})
	case ContactPaddle:
		l.emit(EventTypePaddleHit, "", ContactPayload{Side: c.Side.String(), DX: dir.X(), DY: dir.Y()})
	}
}

// =============================================================================
// READERS (safe for concurrent use)
// =============================================================================

// Snapshot returns the latest committed state. Before the first frame it
// returns an empty snapshot.
func (l *Loop) Snapshot() *Snapshot {
	if s := l.snapshots.Latest(); s != nil {
		return s
	}
	return &Snapshot{}
}

// Leaderboard returns the goal leaderboard.
func (l *Loop) Leaderboard() *Leaderboard { return l.leaderboard }

// Seats returns the seat assignments.
func (l *Loop) Seats() *Seats { return l.seats }

// Events returns the event log, possibly nil.
func (l *Loop) Events() *EventLog { return l.events }

// Stats returns loop counters.
func (l *Loop) Stats() LoopStats {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()

	return LoopStats{
		Frames:        l.frames.Load(),
		Steps:         l.steps.Load(),
		SkippedFrames: l.skipped.Load(),
		Commands:      l.commands.Load(),
		Rejected:      l.rejected.Load(),
		Denied:        l.denied.Load(),
		QueueLen:      l.queue.Len(),
		Running:       running,
	}
}
