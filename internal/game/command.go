package game

// CommandKind enumerates what can be queued for the loop.
type CommandKind uint8

const (
	CmdNone CommandKind = iota
	CmdMoveUp
	CmdMoveDown
	CmdMoveUp2
	CmdMoveDown2
	CmdStopPlayer
	CmdStopPlayer2
	CmdStartBall
	CmdResetScore
	CmdKeyDown
	CmdKeyUp
	CmdReleaseKeys
	CmdLoad
)

var actionNames = map[string]CommandKind{
	"moveUp":              CmdMoveUp,
	"moveDown":            CmdMoveDown,
	"moveUp2":             CmdMoveUp2,
	"moveDown2":           CmdMoveDown2,
	"stopPlayerMovement":  CmdStopPlayer,
	"stopPlayer2Movement": CmdStopPlayer2,
	"startBall":           CmdStartBall,
	"resetScore":          CmdResetScore,
}

// ParseAction maps a command name from the wire to its kind.
func ParseAction(action string) (CommandKind, bool) {
	k, ok := actionNames[action]
	return k, ok
}

// PaddleSide reports which paddle k drives, if any.
func (k CommandKind) PaddleSide() (Side, bool) {
	switch k {
	case CmdMoveUp, CmdMoveDown, CmdStopPlayer:
		return SideLeft, true
	case CmdMoveUp2, CmdMoveDown2, CmdStopPlayer2:
		return SideRight, true
	}
	return SideLeft, false
}

func (k CommandKind) String() string {
	for name, kind := range actionNames {
		if kind == k {
			return name
		}
	}
	switch k {
	case CmdKeyDown:
		return "keydown"
	case CmdKeyUp:
		return "keyup"
	case CmdReleaseKeys:
		return "releaseKeys"
	case CmdLoad:
		return "load"
	}
	return "none"
}

// Command is one queued request. Key is set for key commands, Scene for
// CmdLoad. Source names the originator for the event log; for key
// commands it is the input source whose held set the key belongs to.
// User is the signed-in sender, empty for anonymous clients; it is checked
// against the seats before a paddle moves.
type Command struct {
	Kind   CommandKind
	Key    string
	Scene  Scene
	Source string
	User   string
}
