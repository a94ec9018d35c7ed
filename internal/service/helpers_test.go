package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leave-pass-service/internal/audit"
	"github.com/iliyamo/leave-pass-service/internal/cache"
	"github.com/iliyamo/leave-pass-service/internal/database"
	"github.com/iliyamo/leave-pass-service/internal/model"
	"github.com/iliyamo/leave-pass-service/internal/repository"
)

// recordingAudit captures audit events in memory.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Record(_ context.Context, ev audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingAudit) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

type fixture struct {
	db      *sql.DB
	clock   *clockwork.FakeClock
	cache   *cache.Local[[]model.Pass]
	audit   *recordingAudit
	passes  *repository.PassRepo
	windows *repository.LeaveWindowRepo
	roster  *repository.RosterRepo
	sut     *PassService
}

var fixtureStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var (
		db  = database.SetupTestDatabase(t)
		clk = clockwork.NewFakeClockAt(fixtureStart)
		f   = &fixture{
			db:      db,
			clock:   clk,
			cache:   cache.NewLocal[[]model.Pass](time.Minute, clk),
			audit:   &recordingAudit{},
			passes:  repository.NewPassRepo(db, clk),
			windows: repository.NewLeaveWindowRepo(db, clk),
			roster:  repository.NewRosterRepo(db),
		}
	)
	f.sut = NewPassService(f.passes,
		WithCache(f.cache),
		WithAudit(f.audit),
		WithClock(clk),
	)
	return f
}

func (f *fixture) addStudents(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.db.Exec(`INSERT INTO students (subject_id, full_name, is_active) VALUES (?, ?, 1)`, id, "Student "+id)
		require.NoError(t, err)
	}
}

func grantReq(subjectID string) GrantRequest {
	return GrantRequest{
		SubjectID:   subjectID,
		SponsorID:   "7",
		SponsorName: "Mentor A",
		Purpose:     "clinic visit",
	}
}
