package storage

import (
	"database/sql"
	"fmt"
)

const resolutionColumns = `id, run_id, dependency, main_branch, short_name, kind, ref, commit_id, label, success, error, resolved_at`

// scanResolutionRows scans resolution rows into a slice, handling the
// nullable error column.
func scanResolutionRows(rows *sql.Rows) ([]ResolutionRecord, error) {
	records := make([]ResolutionRecord, 0)

	for rows.Next() {
		var rec ResolutionRecord
		var errorMsg sql.NullString

		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Dependency, &rec.MainBranch, &rec.ShortName,
			&rec.Kind, &rec.Ref, &rec.CommitID, &rec.Label, &rec.Success, &errorMsg, &rec.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}

		if errorMsg.Valid {
			rec.Error = errorMsg.String
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolution rows: %w", err)
	}

	return records, nil
}

// appendLimitClause appends a SQL LIMIT clause to the query if limit > 0
func appendLimitClause(query string, limit int) string {
	if limit > 0 {
		return query + fmt.Sprintf(" LIMIT %d", limit)
	}
	return query
}
