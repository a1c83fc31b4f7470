package aggregate

// Transitions is a static adjacency table: current state -> legal next states.
type Transitions[S comparable] map[S][]S

// Allows reports whether `to` is a direct successor of `from`
func (t Transitions[S]) Allows(from, to S) bool {
	allowed, exists := t[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the state
func (t Transitions[S]) IsTerminal(s S) bool {
	return len(t[s]) == 0
}

// Successors returns a copy of the legal next states
func (t Transitions[S]) Successors(s S) []S {
	out := make([]S, len(t[s]))
	copy(out, t[s])
	return out
}
