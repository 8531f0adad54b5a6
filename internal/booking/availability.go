package booking

import "time"

// NormalizeBlockRange widens a declared block to whole days: start goes to
// 00:00:00 and end to the last nanosecond before the following midnight.
// Timestamps are naive local times throughout the engine.
func NormalizeBlockRange(start, end time.Time) (time.Time, time.Time) {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	e := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999999, end.Location())
	return s, e
}

// IsBlocked reports whether t falls within any block, inclusive on both
// ends. Blocks may overlap; any single hit is enough.
func IsBlocked(blocks []AvailabilityBlock, t time.Time) bool {
	for _, b := range blocks {
		if !t.Before(b.StartTime) && !t.After(b.EndTime) {
			return true
		}
	}
	return false
}

// FilterBlockedSlots drops slots whose start time is blocked, preserving
// input order. Linear in blocks per slot: blocks are sparse compared to
// the slot grid, so filtering at query time beats touching slot rows.
func FilterBlockedSlots(blocks []AvailabilityBlock, slots []Slot) []Slot {
	if len(blocks) == 0 {
		return slots
	}
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !IsBlocked(blocks, s.StartTime) {
			out = append(out, s)
		}
	}
	return out
}
