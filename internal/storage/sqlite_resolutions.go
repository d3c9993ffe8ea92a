package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chis/depsmith/internal/logging"
)

// SaveResolution implements Storage.SaveResolution.
func (s *SQLiteStorage) SaveResolution(ctx context.Context, rec ResolutionRecord) (int64, error) {
	if rec.RunID == "" || rec.Dependency == "" {
		return 0, fmt.Errorf("resolution record needs a run ID and a dependency")
	}
	if rec.ResolvedAt.IsZero() {
		rec.ResolvedAt = time.Now().UTC()
	}

	var errorMsg sql.NullString
	if rec.Error != "" {
		errorMsg = sql.NullString{String: rec.Error, Valid: true}
	}

	var id int64
	err := s.retryWithBackoff(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO resolutions
			(run_id, dependency, main_branch, short_name, kind, ref, commit_id, label, success, error, resolved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.RunID, rec.Dependency, rec.MainBranch, rec.ShortName, rec.Kind, rec.Ref,
			rec.CommitID, rec.Label, rec.Success, errorMsg, rec.ResolvedAt)
		if err != nil {
			return fmt.Errorf("failed to save resolution of %s: %w", rec.Dependency, err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read resolution ID: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.Debug("Saved resolution of %s [%s] -> %s", rec.Dependency, rec.Kind, rec.Ref)
	return id, nil
}

// GetResolutions implements Storage.GetResolutions.
func (s *SQLiteStorage) GetResolutions(ctx context.Context, dependency string, limit int) ([]ResolutionRecord, error) {
	query := appendLimitClause(`SELECT `+resolutionColumns+`
		FROM resolutions
		WHERE dependency = ?
		ORDER BY resolved_at DESC, id DESC`, limit)

	rows, err := s.db.QueryContext(ctx, query, dependency)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions of %s: %w", dependency, err)
	}
	defer rows.Close()

	return scanResolutionRows(rows)
}

// GetAllResolutions implements Storage.GetAllResolutions.
func (s *SQLiteStorage) GetAllResolutions(ctx context.Context, limit int) ([]ResolutionRecord, error) {
	query := appendLimitClause(`SELECT `+resolutionColumns+`
		FROM resolutions
		ORDER BY resolved_at DESC, id DESC`, limit)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	return scanResolutionRows(rows)
}

// GetRun implements Storage.GetRun.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) ([]ResolutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resolutionColumns+`
		FROM resolutions
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanResolutionRows(rows)
}

// LastSuccessful implements Storage.LastSuccessful.
func (s *SQLiteStorage) LastSuccessful(ctx context.Context, dependency, mainBranch string) (ResolutionRecord, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resolutionColumns+`
		FROM resolutions
		WHERE dependency = ? AND main_branch = ? AND success = 1
		ORDER BY resolved_at DESC, id DESC
		LIMIT 1`, dependency, mainBranch)
	if err != nil {
		return ResolutionRecord{}, false, fmt.Errorf("failed to query last resolution of %s: %w", dependency, err)
	}
	defer rows.Close()

	records, err := scanResolutionRows(rows)
	if err != nil {
		return ResolutionRecord{}, false, err
	}
	if len(records) == 0 {
		return ResolutionRecord{}, false, nil
	}
	return records[0], true, nil
}
