package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.Local)
}

func TestNormalizeBlockRange(t *testing.T) {
	start, end := NormalizeBlockRange(
		day(2024, time.June, 1, 14, 30),
		day(2024, time.June, 2, 9, 15),
	)

	assert.Equal(t, day(2024, time.June, 1, 0, 0), start)
	assert.Equal(t, time.Date(2024, time.June, 2, 23, 59, 59, 999999999, time.Local), end)
}

func TestIsBlockedInclusiveBounds(t *testing.T) {
	start, end := NormalizeBlockRange(day(2024, time.June, 1, 0, 0), day(2024, time.June, 1, 0, 0))
	blocks := []AvailabilityBlock{{ID: uuid.New(), StartTime: start, EndTime: end}}

	assert.True(t, IsBlocked(blocks, start), "range start is inclusive")
	assert.True(t, IsBlocked(blocks, end), "range end is inclusive")
	assert.True(t, IsBlocked(blocks, day(2024, time.June, 1, 12, 0)))
	assert.False(t, IsBlocked(blocks, day(2024, time.May, 31, 23, 59)))
	assert.False(t, IsBlocked(blocks, day(2024, time.June, 2, 0, 0)))
}

func TestIsBlockedOverlappingBlocks(t *testing.T) {
	s1, e1 := NormalizeBlockRange(day(2024, time.June, 1, 0, 0), day(2024, time.June, 3, 0, 0))
	s2, e2 := NormalizeBlockRange(day(2024, time.June, 2, 0, 0), day(2024, time.June, 4, 0, 0))
	blocks := []AvailabilityBlock{
		{ID: uuid.New(), StartTime: s1, EndTime: e1},
		{ID: uuid.New(), StartTime: s2, EndTime: e2},
	}

	// Overlap is permitted and redundant, any single hit blocks.
	assert.True(t, IsBlocked(blocks, day(2024, time.June, 2, 12, 0)))
	assert.True(t, IsBlocked(blocks, day(2024, time.June, 4, 12, 0)))
	assert.False(t, IsBlocked(blocks, day(2024, time.June, 5, 12, 0)))
}

func TestFilterBlockedSlotsPreservesOrder(t *testing.T) {
	doctorID := uuid.New()
	mkSlot := func(h int) Slot {
		return Slot{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			StartTime: day(2024, time.June, 1, h, 0),
			EndTime:   day(2024, time.June, 1, h, 30),
		}
	}
	slots := []Slot{mkSlot(9), mkSlot(10), mkSlot(11), mkSlot(12)}

	// Block only 10:00-10:59 by declaring a sub-day window directly.
	blocks := []AvailabilityBlock{{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartTime: day(2024, time.June, 1, 10, 0),
		EndTime:   day(2024, time.June, 1, 10, 59),
	}}

	filtered := FilterBlockedSlots(blocks, slots)

	require.Len(t, filtered, 3)
	assert.Equal(t, slots[0].ID, filtered[0].ID)
	assert.Equal(t, slots[2].ID, filtered[1].ID)
	assert.Equal(t, slots[3].ID, filtered[2].ID)
}

func TestFilterBlockedSlotsNoBlocks(t *testing.T) {
	slots := []Slot{{ID: uuid.New(), StartTime: day(2024, time.June, 1, 9, 0)}}
	assert.Equal(t, slots, FilterBlockedSlots(nil, slots))
}
