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

func window(start, end string, exclusions ...string) *model.LeaveWindow {
	s, _ := time.Parse(model.DateLayout, start)
	e, _ := time.Parse(model.DateLayout, end)
	return &model.LeaveWindow{
		StartDate:  s,
		EndDate:    e,
		StartTime:  model.TimeOfDay{Hour: 8, Minute: 30},
		EndTime:    model.TimeOfDay{Hour: 17},
		CreatedBy:  "admin-1",
		Exclusions: exclusions,
	}
}

func TestLeaveWindowRepo(t *testing.T) {
	t.Run("should store a window with deduplicated exclusions", func(t *testing.T) {
		// Arrange
		var (
			sut = NewLeaveWindowRepo(database.SetupTestDatabase(t), clockwork.NewFakeClockAt(t0))
			w   = window("2025-03-10", "2025-03-12", "S2", " S3 ", "S2", "")
			ctx = context.Background()
		)

		// Act
		err := sut.Create(ctx, w)

		// Assert
		require.NoError(t, err)
		got, err := sut.GetByID(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "2025-03-10", got.StartDate.Format(model.DateLayout))
		assert.Equal(t, "2025-03-12", got.EndDate.Format(model.DateLayout))
		assert.Equal(t, "08:30", got.StartTime.String())
		assert.Equal(t, "17:00", got.EndTime.String())
		assert.Equal(t, "admin-1", got.CreatedBy)
		assert.Equal(t, model.WindowActive, got.Status)
		assert.Equal(t, []string{"S2", "S3"}, got.Exclusions)
		assert.True(t, got.CreatedAt.Equal(t0))
	})

	t.Run("should list active windows and expire them once", func(t *testing.T) {
		// Arrange
		sut := NewLeaveWindowRepo(database.SetupTestDatabase(t), clockwork.NewFakeClockAt(t0))
		ctx := context.Background()
		a, b := window("2025-03-01", "2025-03-02"), window("2025-03-10", "2025-03-12")
		require.NoError(t, sut.Create(ctx, a))
		require.NoError(t, sut.Create(ctx, b))

		// Act
		require.NoError(t, sut.MarkExpired(ctx, a.ID))
		again := sut.MarkExpired(ctx, a.ID)
		active, err := sut.ListActive(ctx)
		require.NoError(t, err)
		all, err := sut.List(ctx)
		require.NoError(t, err)

		// Assert
		assert.ErrorIs(t, again, ErrNotFound)
		require.Len(t, active, 1)
		assert.Equal(t, b.ID, active[0].ID)
		assert.Empty(t, active[0].Exclusions)
		require.Len(t, all, 2)
		assert.Equal(t, b.ID, all[0].ID, "newest first")
		assert.Equal(t, model.WindowExpired, all[1].Status)
	})

	t.Run("should report a missing window", func(t *testing.T) {
		sut := NewLeaveWindowRepo(database.SetupTestDatabase(t), nil)

		_, err := sut.GetByID(context.Background(), 9)

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRosterRepo(t *testing.T) {
	t.Run("should list active students in order", func(t *testing.T) {
		db := database.SetupTestDatabase(t)
		_, err := db.Exec(`INSERT INTO students (subject_id, full_name, is_active) VALUES
                           ('S3', 'c', 1), ('S1', 'a', 1), ('S2', 'b', 0)`)
		require.NoError(t, err)

		ids, err := NewRosterRepo(db).ListEligibleSubjects(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []string{"S1", "S3"}, ids)
	})
}
