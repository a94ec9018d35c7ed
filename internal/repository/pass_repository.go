package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/leave-pass-service/internal/database"
	"github.com/iliyamo/leave-pass-service/internal/model"
)

// PassRepo provides data access to the passes table.  Passes are never
// deleted: rows are inserted OPEN and only ever move forward through the
// state machine.  The one-open-pass-per-subject rule is enforced by a
// unique index, so CreateTx fails with ErrConflict even when two callers
// race past their own pre-checks.
type PassRepo struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewPassRepo returns a new PassRepo bound to the given database.  A nil
// clock means the real clock.
func NewPassRepo(db *sql.DB, clk clockwork.Clock) *PassRepo {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &PassRepo{db: db, clock: clk}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning the pre-check and the insert.
func (r *PassRepo) DB() *sql.DB { return r.db }

const passColumns = `id, subject_id, sponsor_id, sponsor_name, purpose, issued_at, expected_return_at, closed_at, status`

// CreateTx inserts p as a new OPEN pass within the provided transaction.
// IssuedAt is set to the current time and the generated ID is written
// back to p.  A second non-terminal pass for the same subject fails with
// ErrConflict.
func (r *PassRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Pass) error {
	p.IssuedAt = r.clock.Now().UTC()
	p.Status = model.PassOpen
	p.ClosedAt = nil

	var expected sql.NullTime
	if p.ExpectedReturnAt != nil {
		expected = sql.NullTime{Time: p.ExpectedReturnAt.UTC(), Valid: true}
	}
	const q = `INSERT INTO passes (subject_id, sponsor_id, sponsor_name, purpose, issued_at, expected_return_at, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.SubjectID, p.SponsorID, p.SponsorName, p.Purpose, p.IssuedAt, expected, string(p.Status))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// FindOpenOrOutTx returns the subject's non-terminal pass, or nil when
// the subject holds none.
func (r *PassRepo) FindOpenOrOutTx(ctx context.Context, tx *sql.Tx, subjectID string) (*model.Pass, error) {
	return findOpenOrOut(ctx, tx, subjectID)
}

// FindOpenOrOut is FindOpenOrOutTx outside a transaction.
func (r *PassRepo) FindOpenOrOut(ctx context.Context, subjectID string) (*model.Pass, error) {
	return findOpenOrOut(ctx, r.db, subjectID)
}

func findOpenOrOut(ctx context.Context, q queryer, subjectID string) (*model.Pass, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM passes WHERE subject_id = ? AND status IN ('OPEN','OUT') LIMIT 1`,
		subjectID)
	p, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID returns a single pass or ErrNotFound.
func (r *PassRepo) GetByID(ctx context.Context, id uint64) (*model.Pass, error) {
	return getPass(ctx, r.db, id)
}

func getPass(ctx context.Context, q queryer, id uint64) (*model.Pass, error) {
	p, err := scanPass(q.QueryRowContext(ctx, `SELECT `+passColumns+` FROM passes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Close marks a non-terminal pass CLOSED and stamps closed_at.  It
// returns ErrNotFound when the pass is missing or already CLOSED; the
// conditional UPDATE makes the transition atomic per row.
func (r *PassRepo) Close(ctx context.Context, id uint64) (*model.Pass, error) {
	now := r.clock.Now().UTC()
	return r.transition(ctx, id,
		`UPDATE passes SET status = 'CLOSED', closed_at = ? WHERE id = ? AND status IN ('OPEN','OUT')`,
		now, id)
}

// MarkOut moves an OPEN pass to OUT.  It returns ErrNotFound when the
// pass is missing or not OPEN.
func (r *PassRepo) MarkOut(ctx context.Context, id uint64) (*model.Pass, error) {
	return r.transition(ctx, id, `UPDATE passes SET status = 'OUT' WHERE id = ? AND status = 'OPEN'`, id)
}

// transition runs a guarded UPDATE and reads the row back in the same
// transaction.
func (r *PassRepo) transition(ctx context.Context, id uint64, update string, args ...any) (p *model.Pass, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, update, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	if p, err = getPass(ctx, tx, id); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return p, nil
}

// ListBySubject returns every pass of a subject, newest first.
func (r *PassRepo) ListBySubject(ctx context.Context, subjectID string) ([]model.Pass, error) {
	return r.list(ctx, `SELECT `+passColumns+` FROM passes WHERE subject_id = ? ORDER BY issued_at DESC, id DESC`, subjectID)
}

// ListOpen returns all OPEN and OUT passes, oldest first.
func (r *PassRepo) ListOpen(ctx context.Context) ([]model.Pass, error) {
	return r.list(ctx, `SELECT `+passColumns+` FROM passes WHERE status IN ('OPEN','OUT') ORDER BY issued_at, id`)
}

// ListOverdue returns non-terminal passes whose expected return time is
// before now.
func (r *PassRepo) ListOverdue(ctx context.Context, now time.Time) ([]model.Pass, error) {
	return r.list(ctx,
		`SELECT `+passColumns+` FROM passes
         WHERE status IN ('OPEN','OUT') AND expected_return_at IS NOT NULL AND expected_return_at < ?
         ORDER BY expected_return_at, id`,
		now.UTC())
}

func (r *PassRepo) list(ctx context.Context, query string, args ...any) ([]model.Pass, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	passes := []model.Pass{}
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return passes, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPass(s scanner) (*model.Pass, error) {
	var (
		p        model.Pass
		expected sql.NullTime
		closed   sql.NullTime
		status   string
	)
	if err := s.Scan(&p.ID, &p.SubjectID, &p.SponsorID, &p.SponsorName, &p.Purpose,
		&p.IssuedAt, &expected, &closed, &status); err != nil {
		return nil, err
	}
	st, err := model.ParsePassStatus(status)
	if err != nil {
		return nil, fmt.Errorf("pass %d: %w", p.ID, err)
	}
	p.Status = st
	p.IssuedAt = p.IssuedAt.UTC()
	if expected.Valid {
		t := expected.Time.UTC()
		p.ExpectedReturnAt = &t
	}
	if closed.Valid {
		t := closed.Time.UTC()
		p.ClosedAt = &t
	}
	return &p, nil
}
