package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/model"
)

// StartShift opens a new shift. Any shift still open is closed at the same instant.
func (s *SQLiteStorage) StartShift(ctx context.Context, at time.Time) (*model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	shift := &model.Shift{
		ID:        uuid.NewString(),
		StartedAt: at.UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE shifts SET ended_at = ? WHERE ended_at IS NULL`, shift.StartedAt); err != nil {
			return fmt.Errorf("failed to close open shifts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shifts (id, started_at) VALUES (?, ?)`, shift.ID, shift.StartedAt); err != nil {
			return fmt.Errorf("failed to insert shift: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shift, nil
}

// EndShift closes the given shift. Ending an already closed shift is a no-op.
func (s *SQLiteStorage) EndShift(ctx context.Context, shiftID string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(shiftID, "shiftID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE shifts SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, at.UTC(), shiftID)
	if err != nil {
		return wrapBusy(fmt.Errorf("failed to end shift: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.GetShift(ctx, shiftID); err != nil {
			return err
		}
	}
	return nil
}

// CurrentShift returns the most recently started open shift.
func (s *SQLiteStorage) CurrentShift(ctx context.Context) (*model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at FROM shifts
		WHERE ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`)
	shift, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNoShift
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current shift: %w", err)
	}
	return shift, nil
}

// GetShift retrieves a shift by ID.
func (s *SQLiteStorage) GetShift(ctx context.Context, shiftID string) (*model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(shiftID, "shiftID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at FROM shifts WHERE id = ?`, shiftID)
	shift, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shift %s: %w", shiftID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return shift, nil
}

// GetShifts returns shifts, newest first. A non-positive limit returns all of them.
func (s *SQLiteStorage) GetShifts(ctx context.Context, limit int) ([]model.Shift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, started_at, ended_at FROM shifts ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var shifts []model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, *shift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shifts: %w", err)
	}
	return shifts, nil
}

// GetShiftSummary aggregates the completed studies of a shift per category.
func (s *SQLiteStorage) GetShiftSummary(ctx context.Context, shiftID string) (*model.ShiftSummary, error) {
	shift, err := s.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(value), 0), COALESCE(SUM(duration_ns), 0)
		FROM studies
		WHERE shift_id = ?
		GROUP BY category
		ORDER BY SUM(value) DESC, category ASC
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := &model.ShiftSummary{Shift: *shift}
	for rows.Next() {
		var total model.CategoryTotal
		var durationNS int64
		if err := rows.Scan(&total.Category, &total.Count, &total.TotalValue, &durationNS); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, total)
		summary.Studies += total.Count
		summary.TotalValue += total.TotalValue
		summary.Duration += time.Duration(durationNS)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shift summary: %w", err)
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*model.Shift, error) {
	var shift model.Shift
	var endedAt sql.NullTime
	if err := row.Scan(&shift.ID, &shift.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		ended := endedAt.Time
		shift.EndedAt = &ended
	}
	return &shift, nil
}
