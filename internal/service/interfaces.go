// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/studyflow/internal/model"
)

// SaveOutcome reports what SaveStudy did with a completed study.
type SaveOutcome int

// Save outcomes.
const (
	// SaveInserted means the accession was new for the shift.
	SaveInserted SaveOutcome = iota
	// SaveUpdated means an existing row was extended with a longer duration.
	SaveUpdated
	// SaveUnchanged means an existing row already had an equal or longer duration.
	SaveUnchanged
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveInserted:
		return "inserted"
	case SaveUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Storage defines the contract for the shift-scoped record store.
type Storage interface {
	// Shift operations
	StartShift(ctx context.Context, at time.Time) (*model.Shift, error)
	EndShift(ctx context.Context, shiftID string, at time.Time) error
	CurrentShift(ctx context.Context) (*model.Shift, error)
	GetShift(ctx context.Context, shiftID string) (*model.Shift, error)
	GetShifts(ctx context.Context, limit int) ([]model.Shift, error)
	GetShiftSummary(ctx context.Context, shiftID string) (*model.ShiftSummary, error)

	// Study operations
	SaveStudy(ctx context.Context, shiftID string, study model.CompletedStudy) (SaveOutcome, error)
	GetStudy(ctx context.Context, shiftID, accession string) (*model.CompletedStudy, error)
	GetStudiesByShift(ctx context.Context, shiftID string) ([]model.CompletedStudy, error)
	GetAccessions(ctx context.Context, shiftID string) ([]string, error)
	IsBatchMember(ctx context.Context, shiftID, accession string) (bool, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
