package model

import "time"

// Shift is one reading session. Completed studies are scoped to a shift.
type Shift struct {
	StartedAt time.Time
	EndedAt   *time.Time
	ID        string
}

// IsOpen reports whether the shift has not been ended.
func (s Shift) IsOpen() bool {
	return s.EndedAt == nil
}

// CategoryTotal aggregates the studies of one category within a shift.
type CategoryTotal struct {
	Category   string
	Count      int
	TotalValue float64
}

// ShiftSummary aggregates a shift's completed studies.
type ShiftSummary struct {
	Shift      Shift
	ByCategory []CategoryTotal
	Studies    int
	TotalValue float64
	Duration   time.Duration
}
