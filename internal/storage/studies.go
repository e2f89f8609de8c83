package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/studyflow/internal/common"
	"github.com/Veraticus/studyflow/internal/model"
	"github.com/Veraticus/studyflow/internal/service"
)

// SaveStudy records a completed study under its shift. A second emission for the same
// accession replaces the stored row only when its duration is longer; otherwise the
// stored row is left unchanged. Batch constituents are indexed for IsBatchMember.
func (s *SQLiteStorage) SaveStudy(ctx context.Context, shiftID string, study model.CompletedStudy) (service.SaveOutcome, error) {
	if err := validateContext(ctx); err != nil {
		return service.SaveUnchanged, err
	}
	if err := validateString(shiftID, "shiftID"); err != nil {
		return service.SaveUnchanged, err
	}
	if err := validateStudy(&study); err != nil {
		return service.SaveUnchanged, err
	}

	outcome := service.SaveUnchanged
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		outcome, err = s.saveStudyTx(ctx, tx, shiftID, &study)
		return err
	})
	if err != nil {
		return service.SaveUnchanged, err
	}
	return outcome, nil
}

func (s *SQLiteStorage) saveStudyTx(ctx context.Context, q queryable, shiftID string, study *model.CompletedStudy) (service.SaveOutcome, error) {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM shifts WHERE id = ?`, shiftID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return service.SaveUnchanged, fmt.Errorf("shift %s: %w", shiftID, common.ErrNotFound)
	}
	if err != nil {
		return service.SaveUnchanged, fmt.Errorf("failed to check shift: %w", err)
	}

	var storedNS int64
	err = q.QueryRowContext(ctx,
		`SELECT duration_ns FROM studies WHERE shift_id = ? AND accession = ?`,
		shiftID, study.Accession).Scan(&storedNS)

	outcome := service.SaveInserted
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = q.ExecContext(ctx, `
			INSERT INTO studies (
				shift_id, accession, procedure_text, patient_class, category, value,
				start_time, end_time, duration_ns, is_batch
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, shiftID, study.Accession, study.ProcedureText, study.PatientClass, study.Category,
			study.Value, study.StartTime.UTC(), study.EndTime.UTC(), int64(study.Duration), study.IsBatch())
		if err != nil {
			return service.SaveUnchanged, fmt.Errorf("failed to insert study: %w", err)
		}
	case err != nil:
		return service.SaveUnchanged, fmt.Errorf("failed to check existing study: %w", err)
	case int64(study.Duration) <= storedNS:
		return service.SaveUnchanged, nil
	default:
		outcome = service.SaveUpdated
		_, err = q.ExecContext(ctx, `
			UPDATE studies SET
				procedure_text = ?, patient_class = ?, category = ?, value = ?,
				start_time = ?, end_time = ?, duration_ns = ?, is_batch = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE shift_id = ? AND accession = ?
		`, study.ProcedureText, study.PatientClass, study.Category, study.Value,
			study.StartTime.UTC(), study.EndTime.UTC(), int64(study.Duration), study.IsBatch(),
			shiftID, study.Accession)
		if err != nil {
			return service.SaveUnchanged, fmt.Errorf("failed to update study: %w", err)
		}
	}

	if study.IsBatch() {
		for _, member := range study.Accessions {
			if _, err := q.ExecContext(ctx, `
				INSERT OR IGNORE INTO batch_members (shift_id, accession, batch_accession)
				VALUES (?, ?, ?)
			`, shiftID, member, study.Accession); err != nil {
				return service.SaveUnchanged, fmt.Errorf("failed to record batch member %s: %w", member, err)
			}
		}
	}

	return outcome, nil
}

// GetStudy retrieves one completed study by shift and accession.
func (s *SQLiteStorage) GetStudy(ctx context.Context, shiftID, accession string) (*model.CompletedStudy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(shiftID, "shiftID"); err != nil {
		return nil, err
	}
	if err := validateString(accession, "accession"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, studySelect+` WHERE shift_id = ? AND accession = ?`, shiftID, accession)
	study, isBatch, err := scanStudy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("study %s: %w", accession, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study: %w", err)
	}

	if isBatch {
		members, err := s.batchMembers(ctx, shiftID)
		if err != nil {
			return nil, err
		}
		study.Accessions = members[study.Accession]
	}
	return study, nil
}

// GetStudiesByShift returns a shift's completed studies ordered by start time.
func (s *SQLiteStorage) GetStudiesByShift(ctx context.Context, shiftID string) ([]model.CompletedStudy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(shiftID, "shiftID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		studySelect+` WHERE shift_id = ? ORDER BY start_time ASC, accession ASC`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query studies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var studies []model.CompletedStudy
	hasBatch := false
	for rows.Next() {
		study, isBatch, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		hasBatch = hasBatch || isBatch
		studies = append(studies, *study)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating studies: %w", err)
	}

	if hasBatch {
		members, err := s.batchMembers(ctx, shiftID)
		if err != nil {
			return nil, err
		}
		for i := range studies {
			studies[i].Accessions = members[studies[i].Accession]
		}
	}
	return studies, nil
}

// GetAccessions returns every accession recorded in a shift, including batch constituents.
func (s *SQLiteStorage) GetAccessions(ctx context.Context, shiftID string) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(shiftID, "shiftID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT accession FROM studies WHERE shift_id = ? AND is_batch = 0
		UNION
		SELECT accession FROM batch_members WHERE shift_id = ?
		ORDER BY accession
	`, shiftID, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accessions []string
	for rows.Next() {
		var accession string
		if err := rows.Scan(&accession); err != nil {
			return nil, fmt.Errorf("failed to scan accession: %w", err)
		}
		accessions = append(accessions, accession)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accessions: %w", err)
	}
	return accessions, nil
}

// IsBatchMember reports whether the accession was recorded as part of a multi-accession batch.
func (s *SQLiteStorage) IsBatchMember(ctx context.Context, shiftID, accession string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(shiftID, "shiftID"); err != nil {
		return false, err
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM batch_members WHERE shift_id = ? AND accession = ?`,
		shiftID, strings.TrimSpace(accession)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapBusy(fmt.Errorf("failed to check batch member: %w", err))
	}
	return true, nil
}

func (s *SQLiteStorage) batchMembers(ctx context.Context, shiftID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_accession, accession FROM batch_members
		WHERE shift_id = ?
		ORDER BY batch_accession, accession
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	members := make(map[string][]string)
	for rows.Next() {
		var batch, accession string
		if err := rows.Scan(&batch, &accession); err != nil {
			return nil, fmt.Errorf("failed to scan batch member: %w", err)
		}
		members[batch] = append(members[batch], accession)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch members: %w", err)
	}
	return members, nil
}

const studySelect = `
	SELECT accession, procedure_text, patient_class, category, value,
		start_time, end_time, duration_ns, is_batch
	FROM studies`

func scanStudy(row rowScanner) (*model.CompletedStudy, bool, error) {
	var study model.CompletedStudy
	var durationNS int64
	var isBatch bool
	err := row.Scan(
		&study.Accession,
		&study.ProcedureText,
		&study.PatientClass,
		&study.Category,
		&study.Value,
		&study.StartTime,
		&study.EndTime,
		&durationNS,
		&isBatch,
	)
	if err != nil {
		return nil, false, err
	}
	study.Duration = time.Duration(durationNS)
	return &study, isBatch, nil
}
