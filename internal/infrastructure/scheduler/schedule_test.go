package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(10*time.Minute), s.Next(now))
	assert.Equal(t, "@every 10m0s", s.String())
}

func TestDailySchedule_Next(t *testing.T) {
	s := NewDailySchedule(9, 30)

	// Before today's slot: fires today.
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), s.Next(now))

	// Exactly at the slot: fires tomorrow (strictly after).
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), s.Next(at))

	// After the slot: fires tomorrow.
	late := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), s.Next(late))

	assert.Equal(t, "@daily 09:30 UTC", s.String())
}
