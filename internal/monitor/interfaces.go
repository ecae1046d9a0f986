package monitor

import "strings"

// InterfaceTracker keeps the display names of the interfaces seen on the
// last poll. A name is never reported as added and removed in the same poll.
type InterfaceTracker struct {
	known  []string
	seeded bool
}

// Seeded reports whether a first sample has been recorded
func (t *InterfaceTracker) Seeded() bool {
	return t.seeded
}

// Known returns a copy of the tracked names
func (t *InterfaceTracker) Known() []string {
	return append([]string(nil), t.known...)
}

// Observe diffs the candidate names against the tracked set and brings the
// tracked set in line. The first call only seeds and reports nothing.
func (t *InterfaceTracker) Observe(candidates []string) (added, removed []string) {
	if !t.seeded {
		t.known = t.known[:0]
		for _, name := range candidates {
			if !contains(t.known, name) {
				t.known = append(t.known, name)
			}
		}
		t.seeded = true
		return nil, nil
	}

	for _, name := range candidates {
		if !contains(t.known, name) {
			added = append(added, name)
			t.known = append(t.known, name)
		}
	}

	kept := t.known[:0]
	for _, name := range t.known {
		if contains(candidates, name) {
			kept = append(kept, name)
		} else {
			removed = append(removed, name)
		}
	}
	t.known = kept

	return added, removed
}

// InterfaceMessage renders a diff as chat text. Empty when nothing changed.
func InterfaceMessage(added, removed []string) string {
	var parts []string

	if len(added) > 0 {
		verb := "is"
		if len(added) > 1 {
			verb = "are"
		}
		parts = append(parts, strings.Join(added, ", ")+" "+verb+" now connected.")
	}

	if len(removed) > 0 {
		verb := "has"
		if len(removed) > 1 {
			verb = "have"
		}
		parts = append(parts, strings.Join(removed, ", ")+" "+verb+" disconnected.")
	}

	return strings.Join(parts, " ")
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}
