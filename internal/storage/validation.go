package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/studyflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidStudy     = errors.New("invalid study")
	ErrInvalidTimeRange = errors.New("end time must not be before start time")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateStudy validates a completed study before it is written.
func validateStudy(study *model.CompletedStudy) error {
	if strings.TrimSpace(study.Accession) == "" {
		return fmt.Errorf("%w: missing accession", ErrInvalidStudy)
	}
	if strings.TrimSpace(study.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidStudy)
	}
	if study.StartTime.IsZero() || study.EndTime.IsZero() {
		return fmt.Errorf("%w: missing start or end time", ErrInvalidStudy)
	}
	if study.EndTime.Before(study.StartTime) {
		return fmt.Errorf("%w: %w", ErrInvalidStudy, ErrInvalidTimeRange)
	}
	if study.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidStudy)
	}
	if study.Value < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidStudy)
	}
	return nil
}
