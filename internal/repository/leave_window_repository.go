package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/leave-pass-service/internal/model"
)

// LeaveWindowRepo provides data access to leave_windows and their
// exclusion lists in leave_window_exclusions.  Dates are stored as
// "YYYY-MM-DD" strings and daily times as "HH:MM" so both backends hold
// the same text regardless of their temporal types.
type LeaveWindowRepo struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewLeaveWindowRepo returns a new LeaveWindowRepo bound to the given database.
func NewLeaveWindowRepo(db *sql.DB, clk clockwork.Clock) *LeaveWindowRepo {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &LeaveWindowRepo{db: db, clock: clk}
}

const windowColumns = `id, start_date, end_date, start_time, end_time, created_by, status, created_at`

// Create inserts a new ACTIVE window together with its exclusions in a
// single transaction.  The generated ID and CreatedAt are written back to w.
func (r *LeaveWindowRepo) Create(ctx context.Context, w *model.LeaveWindow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	w.Status = model.WindowActive
	w.CreatedAt = r.clock.Now().UTC()
	const q = `INSERT INTO leave_windows (start_date, end_date, start_time, end_time, created_by, status, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		w.StartDate.Format(model.DateLayout), w.EndDate.Format(model.DateLayout),
		w.StartTime.String(), w.EndTime.String(), w.CreatedBy, string(w.Status), w.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)

	w.Exclusions = dedupe(w.Exclusions)
	if len(w.Exclusions) > 0 {
		query := `INSERT INTO leave_window_exclusions (window_id, subject_id) VALUES `
		args := make([]any, 0, len(w.Exclusions)*2)
		for i, s := range w.Exclusions {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, w.ID, s)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns one window with its exclusions, or ErrNotFound.
func (r *LeaveWindowRepo) GetByID(ctx context.Context, id uint64) (*model.LeaveWindow, error) {
	windows, err := r.query(ctx, `SELECT `+windowColumns+` FROM leave_windows WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, ErrNotFound
	}
	return &windows[0], nil
}

// ListActive returns every ACTIVE window with its exclusions loaded.
func (r *LeaveWindowRepo) ListActive(ctx context.Context) ([]model.LeaveWindow, error) {
	return r.query(ctx, `SELECT `+windowColumns+` FROM leave_windows WHERE status = 'ACTIVE' ORDER BY id`)
}

// List returns all windows, newest first.
func (r *LeaveWindowRepo) List(ctx context.Context) ([]model.LeaveWindow, error) {
	return r.query(ctx, `SELECT `+windowColumns+` FROM leave_windows ORDER BY id DESC`)
}

// MarkExpired moves an ACTIVE window to EXPIRED.  Expiring a window that
// is already EXPIRED returns ErrNotFound.
func (r *LeaveWindowRepo) MarkExpired(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE leave_windows SET status = 'EXPIRED' WHERE id = ? AND status = 'ACTIVE'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LeaveWindowRepo) query(ctx context.Context, q string, args ...any) ([]model.LeaveWindow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	windows := []model.LeaveWindow{}
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		windows = append(windows, *w)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadExclusions(ctx, windows); err != nil {
		return nil, err
	}
	return windows, nil
}

// loadExclusions fills Exclusions for all windows with one query.
func (r *LeaveWindowRepo) loadExclusions(ctx context.Context, windows []model.LeaveWindow) error {
	if len(windows) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(windows))
	placeholders := make([]string, len(windows))
	args := make([]any, len(windows))
	for i := range windows {
		windows[i].Exclusions = []string{}
		index[windows[i].ID] = i
		placeholders[i] = "?"
		args[i] = windows[i].ID
	}
	q := `SELECT window_id, subject_id FROM leave_window_exclusions WHERE window_id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY window_id, subject_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			windowID  uint64
			subjectID string
		)
		if err := rows.Scan(&windowID, &subjectID); err != nil {
			return err
		}
		if i, ok := index[windowID]; ok {
			windows[i].Exclusions = append(windows[i].Exclusions, subjectID)
		}
	}
	return rows.Err()
}

func scanWindow(s scanner) (*model.LeaveWindow, error) {
	var (
		w                  model.LeaveWindow
		startDate, endDate string
		startTime, endTime string
		status             string
	)
	if err := s.Scan(&w.ID, &startDate, &endDate, &startTime, &endTime, &w.CreatedBy, &status, &w.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if w.StartDate, err = time.Parse(model.DateLayout, startDate); err != nil {
		return nil, fmt.Errorf("leave window %d start_date: %w", w.ID, err)
	}
	if w.EndDate, err = time.Parse(model.DateLayout, endDate); err != nil {
		return nil, fmt.Errorf("leave window %d end_date: %w", w.ID, err)
	}
	if w.StartTime, err = model.ParseTimeOfDay(startTime); err != nil {
		return nil, fmt.Errorf("leave window %d: %w", w.ID, err)
	}
	if w.EndTime, err = model.ParseTimeOfDay(endTime); err != nil {
		return nil, fmt.Errorf("leave window %d: %w", w.ID, err)
	}
	if w.Status, err = model.ParseWindowStatus(status); err != nil {
		return nil, fmt.Errorf("leave window %d: %w", w.ID, err)
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}

// dedupe drops empty and repeated subject IDs, keeping first-seen order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

