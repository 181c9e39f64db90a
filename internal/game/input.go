package game

import (
	"sort"

	"pong-arena/internal/config"
)

// Commander is the command surface the input bridge drives.
type Commander interface {
	MoveUp() bool
	MoveDown() bool
	MoveUp2() bool
	MoveDown2() bool
	StopPlayerMovement()
	StopPlayer2Movement()
	StartBall()
}

// inputSource is the held set of one client, e.g. one websocket connection.
type inputSource struct {
	user string
	keys map[string]struct{}
}

// inputView is what the held keys currently ask for.
type inputView struct {
	serve, up1, down1, up2, down2 bool
}

// InputBridge turns held keys into paddle intents. Each source has its own
// held set and intents come from all of them together. Whenever that result
// changes the bridge stops both paddles and re-derives intents from scratch,
// so releasing one of two held keys falls back to the other.
type InputBridge struct {
	keys    config.InputConfig
	sources map[string]*inputSource
	last    inputView
	target  Commander

	// gate decides whether a source's user may drive a side. nil allows all.
	gate func(side Side, user string) bool
}

// NewInputBridge creates a bridge driving target.
func NewInputBridge(keys config.InputConfig, target Commander) *InputBridge {
	return &InputBridge{
		keys:    keys,
		sources: make(map[string]*inputSource),
		target:  target,
	}
}

// KeyDown records key as pressed by source on behalf of user. Repeats are
// ignored. A key another source already holds changes nothing until both
// release it.
func (b *InputBridge) KeyDown(source, user, key string) {
	src := b.sources[source]
	if src == nil {
		src = &inputSource{keys: make(map[string]struct{})}
		b.sources[source] = src
	}
	src.user = user
	if _, ok := src.keys[key]; ok {
		return
	}
	src.keys[key] = struct{}{}
	b.sync()
}

// KeyUp records key as released by source. The key stays held while any
// other source still holds it.
func (b *InputBridge) KeyUp(source, key string) {
	src := b.sources[source]
	if src == nil {
		return
	}
	if _, ok := src.keys[key]; !ok {
		return
	}
	delete(src.keys, key)
	if len(src.keys) == 0 {
		delete(b.sources, source)
	}
	b.sync()
}

// Release drops every key held by source, e.g. when it disconnects.
func (b *InputBridge) Release(source string) {
	if _, ok := b.sources[source]; !ok {
		return
	}
	delete(b.sources, source)
	b.sync()
}

// Refresh re-derives intents even if the held keys did not change. Call it
// when the gate's answers may have changed.
func (b *InputBridge) Refresh() {
	b.last = b.view()
	b.apply(b.last)
}

// Held returns every held key in sorted order.
func (b *InputBridge) Held() []string {
	seen := make(map[string]struct{})
	for _, src := range b.sources {
		for k := range src.keys {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Sources returns how many sources hold at least one key.
func (b *InputBridge) Sources() int { return len(b.sources) }

func (b *InputBridge) allowed(side Side, user string) bool {
	return b.gate == nil || b.gate(side, user)
}

func (b *InputBridge) view() inputView {
	var v inputView
	for _, src := range b.sources {
		v.serve = v.serve || src.holds(b.keys.Serve)
		if b.allowed(SideLeft, src.user) {
			v.up1 = v.up1 || src.holds(b.keys.Up1)
			v.down1 = v.down1 || src.holds(b.keys.Down1)
		}
		if b.allowed(SideRight, src.user) {
			v.up2 = v.up2 || src.holds(b.keys.Up2)
			v.down2 = v.down2 || src.holds(b.keys.Down2)
		}
	}
	return v
}

func (src *inputSource) holds(key string) bool {
	if key == "" {
		return false
	}
	_, ok := src.keys[key]
	return ok
}

func (b *InputBridge) sync() {
	if v := b.view(); v != b.last {
		b.last = v
		b.apply(v)
	}
}

// apply stops both paddles and re-derives everything from v. Serve fires
// whenever the view changes while the serve key is held. Down is applied
// after up, so holding both moves down.
func (b *InputBridge) apply(v inputView) {
	b.target.StopPlayerMovement()
	b.target.StopPlayer2Movement()

	if v.serve {
		b.target.StartBall()
	}
	if v.up2 {
		b.target.MoveUp2()
	}
	if v.down2 {
		b.target.MoveDown2()
	}
	if v.up1 {
		b.target.MoveUp()
	}
	if v.down1 {
		b.target.MoveDown()
	}
}
