// Package availability implements the interval algebra shared by all
// calendar adapters: merging busy/candidate spans into a minimal set and
// walking gaps between busy intervals to find open booking slots.
package availability

import (
	"sort"
	"time"

	"github.com/inkwell/calsync/internal/core"
)

// Merge collapses overlapping and touching slots into a minimal sorted set.
// The result is independent of input order, and merging an already merged
// set returns it unchanged.
func Merge(slots []core.TimeSlot) []core.TimeSlot {
	if len(slots) == 0 {
		return nil
	}

	sorted := make([]core.TimeSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []core.TimeSlot{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		// Touching endpoints merge too.
		if !next.Start.After(last.End) {
			if next.End.After(last.End) {
				last.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// MergeBusy collapses busy intervals from multiple sources into a minimal
// sorted busy set. Free (Available) intervals in the input are ignored: a
// sub-range is only free if no contributing source marks it busy.
func MergeBusy(intervals []core.Interval) []core.Interval {
	var busy []core.TimeSlot
	for _, iv := range intervals {
		if iv.Available {
			continue
		}
		busy = append(busy, core.TimeSlot{Start: iv.Start, End: iv.End})
	}

	merged := Merge(busy)
	out := make([]core.Interval, 0, len(merged))
	for _, s := range merged {
		out = append(out, core.Interval{Start: s.Start, End: s.End, Available: false})
	}
	return out
}

// SlotsBetween walks the gaps between busy intervals inside [start, end)
// and returns every window of exactly duration length that fits. The busy
// set may be unsorted and overlapping; it is merged first.
func SlotsBetween(busy []core.Interval, duration time.Duration, start, end time.Time) []core.TimeSlot {
	if duration <= 0 || !end.After(start) {
		return nil
	}

	var slots []core.TimeSlot
	cursor := start

	for _, iv := range MergeBusy(busy) {
		if !iv.End.After(start) || !end.After(iv.Start) {
			continue
		}
		if iv.Start.Sub(cursor) >= duration {
			slots = append(slots, core.TimeSlot{Start: cursor, End: cursor.Add(duration)})
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
	}

	if end.Sub(cursor) >= duration {
		slots = append(slots, core.TimeSlot{Start: cursor, End: cursor.Add(duration)})
	}
	return slots
}
