package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leave-pass-service/internal/database"
	"github.com/iliyamo/leave-pass-service/internal/model"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newPassRepo(t *testing.T) (*PassRepo, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClockAt(t0)
	return NewPassRepo(database.SetupTestDatabase(t), clk), clk
}

func create(t *testing.T, r *PassRepo, p *model.Pass) error {
	t.Helper()
	ctx := context.Background()
	tx, err := r.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	if err := r.CreateTx(ctx, tx, p); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newPass(subjectID string) *model.Pass {
	return &model.Pass{SubjectID: subjectID, SponsorID: "7", SponsorName: "Mentor A", Purpose: "clinic visit"}
}

func TestPassRepo_CreateTx(t *testing.T) {
	t.Run("should insert an open pass and round-trip every column", func(t *testing.T) {
		// Arrange
		var (
			sut, _   = newPassRepo(t)
			expected = t0.Add(2 * time.Hour)
			p        = newPass("S1")
		)
		p.ExpectedReturnAt = &expected

		// Act
		err := create(t, sut, p)

		// Assert
		require.NoError(t, err)
		got, err := sut.GetByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "S1", got.SubjectID)
		assert.Equal(t, "7", got.SponsorID)
		assert.Equal(t, "Mentor A", got.SponsorName)
		assert.Equal(t, "clinic visit", got.Purpose)
		assert.Equal(t, model.PassOpen, got.Status)
		assert.True(t, got.IssuedAt.Equal(t0))
		require.NotNil(t, got.ExpectedReturnAt)
		assert.True(t, got.ExpectedReturnAt.Equal(expected))
		assert.Nil(t, got.ClosedAt)
	})

	t.Run("should enforce one non-terminal pass per subject in the store", func(t *testing.T) {
		sut, _ := newPassRepo(t)
		require.NoError(t, create(t, sut, newPass("S1")))

		err := create(t, sut, newPass("S1"))

		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("should reject the second of two transactions that both passed the open check", func(t *testing.T) {
		// Arrange
		var (
			sut, _ = newPassRepo(t)
			ctx    = context.Background()
		)
		sut.DB().SetMaxOpenConns(2)
		held, err := sut.FindOpenOrOut(ctx, "S1")
		require.NoError(t, err)
		require.Nil(t, held, "late transaction's check")
		winner, err := sut.DB().BeginTx(ctx, nil)
		require.NoError(t, err)
		defer func() { _ = winner.Rollback() }()
		late, err := sut.DB().BeginTx(ctx, nil)
		require.NoError(t, err)
		defer func() { _ = late.Rollback() }()
		held, err = sut.FindOpenOrOutTx(ctx, winner, "S1")
		require.NoError(t, err)
		require.Nil(t, held, "winning transaction's check")

		// Act
		require.NoError(t, sut.CreateTx(ctx, winner, newPass("S1")))
		require.NoError(t, winner.Commit())
		err = sut.CreateTx(ctx, late, newPass("S1"))

		// Assert
		assert.ErrorIs(t, err, ErrConflict)
		require.NoError(t, late.Rollback())
		open, err := sut.ListOpen(ctx)
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("should allow a new pass once the previous one is closed", func(t *testing.T) {
		sut, _ := newPassRepo(t)
		first := newPass("S1")
		require.NoError(t, create(t, sut, first))
		_, err := sut.Close(context.Background(), first.ID)
		require.NoError(t, err)

		err = create(t, sut, newPass("S1"))

		assert.NoError(t, err)
	})
}

func TestPassRepo_Transitions(t *testing.T) {
	t.Run("should close once and report not found afterwards", func(t *testing.T) {
		// Arrange
		sut, clk := newPassRepo(t)
		p := newPass("S1")
		require.NoError(t, create(t, sut, p))
		clk.Advance(time.Hour)

		// Act
		closed, err := sut.Close(context.Background(), p.ID)
		_, again := sut.Close(context.Background(), p.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, model.PassClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)
		assert.True(t, closed.ClosedAt.Equal(t0.Add(time.Hour)))
		assert.ErrorIs(t, again, ErrNotFound)
	})

	t.Run("should move only open passes out", func(t *testing.T) {
		sut, _ := newPassRepo(t)
		p := newPass("S1")
		require.NoError(t, create(t, sut, p))

		out, err := sut.MarkOut(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PassOut, out.Status)

		_, err = sut.MarkOut(context.Background(), p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("should report a missing id", func(t *testing.T) {
		sut, _ := newPassRepo(t)

		_, err := sut.GetByID(context.Background(), 42)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = sut.Close(context.Background(), 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPassRepo_Queries(t *testing.T) {
	t.Run("should find the open or out pass of a subject", func(t *testing.T) {
		sut, _ := newPassRepo(t)
		ctx := context.Background()
		none, err := sut.FindOpenOrOut(ctx, "S1")
		require.NoError(t, err)
		assert.Nil(t, none)

		p := newPass("S1")
		require.NoError(t, create(t, sut, p))
		_, err = sut.MarkOut(ctx, p.ID)
		require.NoError(t, err)

		got, err := sut.FindOpenOrOut(ctx, "S1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("should list history newest first and open passes across subjects", func(t *testing.T) {
		// Arrange
		sut, clk := newPassRepo(t)
		ctx := context.Background()
		a := newPass("S1")
		require.NoError(t, create(t, sut, a))
		_, err := sut.Close(ctx, a.ID)
		require.NoError(t, err)
		clk.Advance(time.Minute)
		b := newPass("S1")
		require.NoError(t, create(t, sut, b))
		c := newPass("S2")
		require.NoError(t, create(t, sut, c))

		// Act
		history, err1 := sut.ListBySubject(ctx, "S1")
		open, err2 := sut.ListOpen(ctx)
		empty, err3 := sut.ListBySubject(ctx, "nobody")

		// Assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		require.NoError(t, err3)
		require.Len(t, history, 2)
		assert.Equal(t, []uint64{b.ID, a.ID}, []uint64{history[0].ID, history[1].ID})
		require.Len(t, open, 2)
		assert.Equal(t, []uint64{b.ID, c.ID}, []uint64{open[0].ID, open[1].ID})
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("should list overdue passes only", func(t *testing.T) {
		sut, _ := newPassRepo(t)
		ctx := context.Background()
		due := t0.Add(time.Hour)
		late := newPass("S1")
		late.ExpectedReturnAt = &due
		require.NoError(t, create(t, sut, late))
		require.NoError(t, create(t, sut, newPass("S2"))) // no expected return

		before, err := sut.ListOverdue(ctx, t0.Add(30*time.Minute))
		require.NoError(t, err)
		after, err := sut.ListOverdue(ctx, t0.Add(2*time.Hour))
		require.NoError(t, err)

		assert.Empty(t, before)
		require.Len(t, after, 1)
		assert.Equal(t, late.ID, after[0].ID)
	})
}
