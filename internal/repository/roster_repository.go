package repository

import (
	"context"
	"database/sql"
)

// RosterRepo reads the institutional roster.  Roster maintenance happens
// elsewhere; this service only needs the identifiers of students that are
// currently enrolled.
type RosterRepo struct{ DB *sql.DB }

func NewRosterRepo(db *sql.DB) *RosterRepo { return &RosterRepo{DB: db} }

// ListEligibleSubjects returns the IDs of all active students.
func (r *RosterRepo) ListEligibleSubjects(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT subject_id FROM students WHERE is_active = 1 ORDER BY subject_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
