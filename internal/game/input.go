package game

// InputState is the held-key state sampled once per tick.
type InputState struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// Side identifies a paddle owner.
type Side string

const (
	SideNone   Side = ""
	SidePlayer Side = "Player"
	SideAI     Side = "AI"
)

// ReplayChoice maps the replay keys on the game-over screen to a winning score.
// Only '3', '5' and '7' are replay keys.
func ReplayChoice(key rune) (int, bool) {
	switch key {
	case '3':
		return 3, true
	case '5':
		return 5, true
	case '7':
		return 7, true
	}
	return 0, false
}
