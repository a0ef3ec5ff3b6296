package memory

// Pure observation-sequence editors. Each takes the entity's current
// sequence and an operation input and returns the next sequence; the
// façade persists the result wholesale so concurrent partial edits never
// race on positions.

// setObservations replaces the sequence with next, order preserved.
func setObservations(_, next []string) []string {
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// addObservations appends toAdd in order. No deduplication: adding an
// observation that already exists produces a repeated entry.
func addObservations(current, toAdd []string) []string {
	out := make([]string, 0, len(current)+len(toAdd))
	out = append(out, current...)
	out = append(out, toAdd...)
	return out
}

// removeObservations drops every occurrence of each value in toRemove,
// preserving the relative order of survivors. Removing an absent value is
// a no-op, which makes the operation idempotent.
func removeObservations(current, toRemove []string) []string {
	if len(toRemove) == 0 {
		out := make([]string, len(current))
		copy(out, current)
		return out
	}
	drop := make(map[string]bool, len(toRemove))
	for _, v := range toRemove {
		drop[v] = true
	}
	out := make([]string, 0, len(current))
	for _, v := range current {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return out
}

// removeAllObservations yields the empty sequence unconditionally.
func removeAllObservations(_, _ []string) []string {
	return []string{}
}
