package session

// DefaultMaxTurns bounds History when no explicit limit is configured.
const DefaultMaxTurns = 5

// Turn is one successful query together with a text snapshot of its result.
type Turn struct {
	Query    string
	Snapshot string
}

// History keeps the most recent turns of one conversation. Once full, the
// oldest turn is dropped on every append. It is not safe for concurrent use.
type History struct {
	maxTurns int
	turns    []Turn
}

func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &History{maxTurns: maxTurns}
}

func (h *History) Append(turn Turn) {
	h.turns = append(h.turns, turn)
	if overflow := len(h.turns) - h.maxTurns; overflow > 0 {
		h.turns = append([]Turn(nil), h.turns[overflow:]...)
	}
}

func (h *History) Reset() {
	h.turns = nil
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) Turns() []Turn {
	return append([]Turn(nil), h.turns...)
}

func (h *History) Queries() []string {
	out := make([]string, 0, len(h.turns))
	for _, turn := range h.turns {
		out = append(out, turn.Query)
	}
	return out
}

func (h *History) Snapshots() []string {
	out := make([]string, 0, len(h.turns))
	for _, turn := range h.turns {
		out = append(out, turn.Snapshot)
	}
	return out
}
