package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leave-pass-service/internal/audit"
	"github.com/iliyamo/leave-pass-service/internal/cache"
	"github.com/iliyamo/leave-pass-service/internal/model"
)

func TestPassService_Grant(t *testing.T) {
	t.Run("should create an open pass", func(t *testing.T) {
		// Arrange
		var (
			f   = newFixture(t)
			ctx = context.Background()
		)

		// Act
		p, err := f.sut.Grant(ctx, grantReq("S1"))

		// Assert
		require.NoError(t, err)
		assert.NotZero(t, p.ID)
		assert.Equal(t, model.PassOpen, p.Status)
		assert.Equal(t, fixtureStart, p.IssuedAt)
		assert.Nil(t, p.ClosedAt)
	})

	t.Run("should reject blank required fields", func(t *testing.T) {
		f := newFixture(t)
		cases := []GrantRequest{
			{SponsorID: "7", SponsorName: "A", Purpose: "p"},
			{SubjectID: "S1", SponsorName: "A", Purpose: "p"},
			{SubjectID: "S1", SponsorID: "7", SponsorName: "   ", Purpose: "p"},
			{SubjectID: "S1", SponsorID: "7", SponsorName: "A", Purpose: "\t"},
		}
		for _, req := range cases {
			_, err := f.sut.Grant(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		}
	})

	t.Run("should reject an expected return time that is not in the future", func(t *testing.T) {
		// Arrange
		var (
			f   = newFixture(t)
			req = grantReq("S1")
			now = fixtureStart
		)
		req.ExpectedReturnAt = &now

		// Act
		_, err := f.sut.Grant(context.Background(), req)

		// Assert
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("should reject a second open pass for the same subject", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		_, err := f.sut.Grant(context.Background(), grantReq("S1"))
		require.NoError(t, err)

		// Act
		_, err = f.sut.Grant(context.Background(), grantReq("S1"))

		// Assert
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("should reject a grant while the subject is out", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.sut.Grant(context.Background(), grantReq("S1"))
		require.NoError(t, err)
		_, err = f.sut.MarkOut(context.Background(), p.ID)
		require.NoError(t, err)

		_, err = f.sut.Grant(context.Background(), grantReq("S1"))

		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("should let exactly one of many concurrent grants succeed", func(t *testing.T) {
		for _, n := range []int{2, 8, 32} {
			// Arrange
			var (
				f         = newFixture(t)
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
				others    []error
			)

			// Act
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.sut.Grant(context.Background(), grantReq("S42"))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, ErrConflict):
						conflicts++
					default:
						others = append(others, err)
					}
				}()
			}
			wg.Wait()

			// Assert
			assert.Empty(t, others, "n=%d", n)
			assert.Equal(t, 1, successes, "n=%d", n)
			assert.Equal(t, n-1, conflicts, "n=%d", n)
			open, err := f.passes.ListOpen(context.Background())
			require.NoError(t, err)
			assert.Len(t, open, 1)
		}
	})

	t.Run("should record a grant audit event", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.sut.Grant(context.Background(), grantReq("S1"))
		require.NoError(t, err)

		events := f.audit.Events()
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionGrant, events[0].Action)
		assert.Equal(t, p.ID, events[0].PassID)
		assert.Equal(t, "S1", events[0].SubjectID)
		assert.Equal(t, "7", events[0].ActorID)
		assert.NotEmpty(t, events[0].ID)
	})
}

func TestPassService_Return(t *testing.T) {
	t.Run("should close an open pass and reject a second return", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		p, err := f.sut.Grant(context.Background(), grantReq("S1"))
		require.NoError(t, err)
		f.clock.Advance(30 * time.Minute)

		// Act
		closed, err := f.sut.Return(context.Background(), p.ID)
		_, again := f.sut.Return(context.Background(), p.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, model.PassClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)
		assert.Equal(t, fixtureStart.Add(30*time.Minute), *closed.ClosedAt)
		assert.ErrorIs(t, again, ErrInvalidState)
	})

	t.Run("should report a missing pass as not found", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.sut.Return(context.Background(), 999)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("should close a pass that is out and name the actor", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.sut.Grant(context.Background(), grantReq("S1"))
		require.NoError(t, err)
		_, err = f.sut.MarkOut(context.Background(), p.ID)
		require.NoError(t, err)

		closed, err := f.sut.Return(WithActor(context.Background(), "guard-3"), p.ID)

		require.NoError(t, err)
		assert.Equal(t, model.PassClosed, closed.Status)
		events := f.audit.Events()
		require.Len(t, events, 3)
		assert.Equal(t, audit.ActionReturn, events[2].Action)
		assert.Equal(t, "guard-3", events[2].ActorID)
	})
}

func TestPassService_MarkOut(t *testing.T) {
	t.Run("should move an open pass out once", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		p, err := f.sut.Grant(context.Background(), grantReq("S1"))
		require.NoError(t, err)

		// Act
		out, err := f.sut.MarkOut(context.Background(), p.ID)
		_, again := f.sut.MarkOut(context.Background(), p.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, model.PassOut, out.Status)
		assert.ErrorIs(t, again, ErrInvalidState)
	})

	t.Run("should refuse to move a closed pass out", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.sut.Grant(context.Background(), grantReq("S1"))
		require.NoError(t, err)
		_, err = f.sut.Return(context.Background(), p.ID)
		require.NoError(t, err)

		_, err = f.sut.MarkOut(context.Background(), p.ID)

		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestPassService_Cache(t *testing.T) {
	t.Run("should reflect a new grant in the subject history", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		ctx := context.Background()
		first, err := f.sut.Grant(ctx, grantReq("S1"))
		require.NoError(t, err)
		_, err = f.sut.Return(ctx, first.ID)
		require.NoError(t, err)
		before, err := f.sut.ListBySubject(ctx, "S1")
		require.NoError(t, err)
		require.Len(t, before, 1)

		// Act
		f.clock.Advance(time.Second)
		second, err := f.sut.Grant(ctx, grantReq("S1"))
		require.NoError(t, err)
		after, err := f.sut.ListBySubject(ctx, "S1")

		// Assert
		require.NoError(t, err)
		require.Len(t, after, 2)
		assert.Equal(t, second.ID, after[0].ID, "newest first")
	})

	t.Run("should serve the open list from cache until a write invalidates it", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		ctx := context.Background()
		p, err := f.sut.Grant(ctx, grantReq("S1"))
		require.NoError(t, err)
		open, err := f.sut.ListOpen(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)

		// Act: a write behind the service's back is not visible while cached
		_, err = f.db.Exec(`UPDATE passes SET status = 'CLOSED' WHERE id = ?`, p.ID)
		require.NoError(t, err)
		cached, err := f.sut.ListOpen(ctx)
		require.NoError(t, err)
		_, err = f.sut.Grant(ctx, grantReq("S2"))
		require.NoError(t, err)
		fresh, err := f.sut.ListOpen(ctx)

		// Assert
		require.NoError(t, err)
		assert.Len(t, cached, 1)
		require.Len(t, fresh, 1)
		assert.Equal(t, "S2", fresh[0].SubjectID)
	})

	t.Run("should reload after the ttl elapses", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.sut.ListOpen(ctx)
		require.NoError(t, err)
		_, err = f.db.Exec(`INSERT INTO passes (subject_id, sponsor_id, sponsor_name, purpose, issued_at, status)
                            VALUES ('S9', '1', 'x', 'y', ?, 'OPEN')`, fixtureStart)
		require.NoError(t, err)

		f.clock.Advance(2 * time.Minute)
		open, err := f.sut.ListOpen(ctx)

		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("should drop a list loaded before a concurrent grant", func(t *testing.T) {
		// Arrange
		var (
			f      = newFixture(t)
			ctx    = context.Background()
			paused = &pausedSet{Cache: f.cache, reached: make(chan struct{}), release: make(chan struct{})}
			sut    = NewPassService(f.passes, WithCache(paused), WithClock(f.clock))
			done   = make(chan []model.Pass, 1)
		)
		go func() {
			list, err := sut.ListBySubject(ctx, "S1")
			assert.NoError(t, err)
			done <- list
		}()
		<-paused.reached

		// Act
		_, err := sut.Grant(ctx, grantReq("S1"))
		require.NoError(t, err)
		close(paused.release)
		stale := <-done
		after, err := sut.ListBySubject(ctx, "S1")

		// Assert
		require.NoError(t, err)
		assert.Empty(t, stale)
		assert.Len(t, after, 1)
	})

	t.Run("should hand each reader its own copy of a cached list", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.sut.Grant(ctx, grantReq("S1"))
		require.NoError(t, err)
		first, err := f.sut.ListOpen(ctx)
		require.NoError(t, err)
		cachedOnce, err := f.sut.ListOpen(ctx)
		require.NoError(t, err)

		first[0].SubjectID = "mutated"
		cachedOnce[0].Purpose = "mutated"
		again, err := f.sut.ListOpen(ctx)

		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, "S1", again[0].SubjectID)
		assert.Equal(t, "clinic visit", again[0].Purpose)
	})
}

// pausedSet holds the first Set until release is closed, after the
// reader has loaded its list but before the cache has stored it.
type pausedSet struct {
	cache.Cache[[]model.Pass]
	once             sync.Once
	reached, release chan struct{}
}

func (c *pausedSet) Set(ctx context.Context, key string, v []model.Pass, ver cache.Version) bool {
	c.once.Do(func() {
		close(c.reached)
		<-c.release
	})
	return c.Cache.Set(ctx, key, v, ver)
}

func TestPassService_ListOverdue(t *testing.T) {
	t.Run("should list only non-terminal passes past their expected return", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		ctx := context.Background()
		soon := fixtureStart.Add(time.Hour)
		later := fixtureStart.Add(5 * time.Hour)
		reqSoon, reqLater, reqClosed := grantReq("S1"), grantReq("S2"), grantReq("S3")
		reqSoon.ExpectedReturnAt = &soon
		reqLater.ExpectedReturnAt = &later
		reqClosed.ExpectedReturnAt = &soon
		overdue, err := f.sut.Grant(ctx, reqSoon)
		require.NoError(t, err)
		_, err = f.sut.Grant(ctx, reqLater)
		require.NoError(t, err)
		closed, err := f.sut.Grant(ctx, reqClosed)
		require.NoError(t, err)
		_, err = f.sut.Return(ctx, closed.ID)
		require.NoError(t, err)

		// Act
		f.clock.Advance(2 * time.Hour)
		got, err := f.sut.ListOverdue(ctx)

		// Assert
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, overdue.ID, got[0].ID)
	})
}

func TestPassService_Scenario(t *testing.T) {
	t.Run("should grant, conflict, return and grant again for S42", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		first, err := f.sut.Grant(ctx, grantReq("S42"))
		require.NoError(t, err)
		assert.Equal(t, model.PassOpen, first.Status)

		_, err = f.sut.Grant(ctx, grantReq("S42"))
		assert.ErrorIs(t, err, ErrConflict)

		closed, err := f.sut.Return(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PassClosed, closed.Status)

		third, err := f.sut.Grant(ctx, grantReq("S42"))
		require.NoError(t, err)
		assert.Equal(t, model.PassOpen, third.Status)
		assert.NotEqual(t, first.ID, third.ID)
	})
}
