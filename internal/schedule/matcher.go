package schedule

import (
	"context"
	"sort"
)

// Matcher infers which weeks carry "the same" activity. Two activities in
// different weeks are the same recurring activity iff their
// (dayName, time, description) tuples are identical, byte for byte. The
// relationship is recomputed on every call; nothing is cached or linked. Two
// unrelated activities that happen to share the tuple are treated as one
// recurring activity — an accepted limitation of value-based identity.
type Matcher struct {
	Store Store
}

// FindMatchingWeeks returns the sorted week numbers containing an activity
// with exactly this time and description on a day named dayName. An empty
// result is a normal answer, not an error.
func (m *Matcher) FindMatchingWeeks(ctx context.Context, timeStr, description, dayName string) ([]int, error) {
	matches, err := m.Store.FindByTuple(ctx, dayName, timeStr, description)
	if err != nil {
		return nil, err
	}
	seen := map[int]struct{}{}
	out := make([]int, 0, len(matches))
	for _, wm := range matches {
		if _, ok := seen[wm.WeekNumber]; ok {
			continue
		}
		seen[wm.WeekNumber] = struct{}{}
		out = append(out, wm.WeekNumber)
	}
	sort.Ints(out)
	return out, nil
}
