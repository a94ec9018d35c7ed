// Package service implements the pass lifecycle: granting, returning and
// checkpointing passes, and deriving passes from leave windows.
package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-pass-service/internal/audit"
	"github.com/iliyamo/leave-pass-service/internal/cache"
	"github.com/iliyamo/leave-pass-service/internal/database"
	"github.com/iliyamo/leave-pass-service/internal/metrics"
	"github.com/iliyamo/leave-pass-service/internal/model"
	"github.com/iliyamo/leave-pass-service/internal/repository"
)

// Cache keys shared by readers and writers.
const (
	OpenPassesKey    = "passes:open"
	subjectKeyPrefix = "passes:subject:"
)

// SubjectPassesKey is the cache key of a subject's pass history.
func SubjectPassesKey(subjectID string) string { return subjectKeyPrefix + subjectID }

// GrantRequest carries the inputs of a grant.  ExpectedReturnAt is
// optional but, when set, must lie in the future.
type GrantRequest struct {
	SubjectID        string
	SponsorID        string
	SponsorName      string
	Purpose          string
	ExpectedReturnAt *time.Time
}

// PassService owns the pass state machine.  Every mutation invalidates
// the affected cache keys before it returns, so a read issued after a
// successful write never observes the pre-write list.
type PassService struct {
	passes  *repository.PassRepo
	cache   cache.Cache[[]model.Pass]
	audit   audit.Recorder
	metrics *metrics.Metrics
	clock   clockwork.Clock
	log     *zap.Logger
}

// Option customizes a PassService.
type Option func(*PassService)

func WithCache(c cache.Cache[[]model.Pass]) Option { return func(s *PassService) { s.cache = c } }
func WithAudit(r audit.Recorder) Option             { return func(s *PassService) { s.audit = r } }
func WithMetrics(m *metrics.Metrics) Option         { return func(s *PassService) { s.metrics = m } }
func WithClock(c clockwork.Clock) Option            { return func(s *PassService) { s.clock = c } }
func WithLogger(l *zap.Logger) Option               { return func(s *PassService) { s.log = l } }

// NewPassService wires the service around a pass repository.  Without
// options it caches nothing, audits nothing and uses the real clock.
func NewPassService(passes *repository.PassRepo, opts ...Option) *PassService {
	if passes == nil {
		panic("nil repository passed to NewPassService")
	}
	s := &PassService{
		passes: passes,
		cache:  cache.Nop[[]model.Pass]{},
		clock:  clockwork.NewRealClock(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grant validates req and creates an OPEN pass.  The pre-check and the
// insert share one transaction; the open-subject unique index rejects a
// concurrent duplicate that slipped past the pre-check, and both paths
// surface as ErrConflict.
func (s *PassService) Grant(ctx context.Context, req GrantRequest) (*model.Pass, error) {
	p, err := s.grant(ctx, req)
	if err != nil {
		if err == ErrConflict {
			s.metrics.IncConflict()
		}
		return nil, err
	}
	return p, nil
}

func (s *PassService) grant(ctx context.Context, req GrantRequest) (*model.Pass, error) {
	now := s.clock.Now()
	p := &model.Pass{
		SubjectID:   strings.TrimSpace(req.SubjectID),
		SponsorID:   strings.TrimSpace(req.SponsorID),
		SponsorName: strings.TrimSpace(req.SponsorName),
		Purpose:     strings.TrimSpace(req.Purpose),
	}
	switch {
	case p.SubjectID == "":
		return nil, invalid("subject_id is required")
	case p.SponsorID == "":
		return nil, invalid("sponsor_id is required")
	case p.SponsorName == "":
		return nil, invalid("sponsor_name is required")
	case p.Purpose == "":
		return nil, invalid("purpose is required")
	}
	if req.ExpectedReturnAt != nil {
		if !req.ExpectedReturnAt.After(now) {
			return nil, invalid("expected_return_at must be in the future")
		}
		t := req.ExpectedReturnAt.UTC()
		p.ExpectedReturnAt = &t
	}

	tx, err := s.passes.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, translate("begin grant", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	existing, err := s.passes.FindOpenOrOutTx(ctx, tx, p.SubjectID)
	if err != nil {
		return nil, translate("check open pass", err)
	}
	if existing != nil {
		return nil, ErrConflict
	}
	if err := s.passes.CreateTx(ctx, tx, p); err != nil {
		return nil, translate("create pass", err)
	}
	if err := tx.Commit(); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, translate("commit grant", err)
	}
	committed = true

	s.afterWrite(ctx, p, audit.ActionGrant, p.SponsorID, p.Purpose)
	s.metrics.IncGrant()
	return p, nil
}

// Return closes a pass.  A pass that is already CLOSED, or that another
// caller closed concurrently, yields ErrInvalidState.
func (s *PassService) Return(ctx context.Context, id uint64) (*model.Pass, error) {
	cur, err := s.passes.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get pass", err)
	}
	if !cur.Status.CanTransitionTo(model.PassClosed) {
		return nil, ErrInvalidState
	}
	p, err := s.passes.Close(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrInvalidState
		}
		return nil, translate("close pass", err)
	}
	s.afterWrite(ctx, p, audit.ActionReturn, ActorFrom(ctx), "")
	s.metrics.IncReturn()
	return p, nil
}

// MarkOut records that the holder of an OPEN pass left through the
// checkpoint.
func (s *PassService) MarkOut(ctx context.Context, id uint64) (*model.Pass, error) {
	cur, err := s.passes.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get pass", err)
	}
	if !cur.Status.CanTransitionTo(model.PassOut) {
		return nil, ErrInvalidState
	}
	p, err := s.passes.MarkOut(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrInvalidState
		}
		return nil, translate("mark pass out", err)
	}
	s.afterWrite(ctx, p, audit.ActionOut, ActorFrom(ctx), "")
	s.metrics.IncOut()
	return p, nil
}

// Get returns a single pass.
func (s *PassService) Get(ctx context.Context, id uint64) (*model.Pass, error) {
	p, err := s.passes.GetByID(ctx, id)
	if err != nil {
		return nil, translate("get pass", err)
	}
	return p, nil
}

// ListOpen returns every OPEN or OUT pass, served from cache when fresh.
func (s *PassService) ListOpen(ctx context.Context) ([]model.Pass, error) {
	return s.cached(ctx, OpenPassesKey, func() ([]model.Pass, error) {
		return s.passes.ListOpen(ctx)
	})
}

// ListBySubject returns a subject's passes newest first, served from
// cache when fresh.
func (s *PassService) ListBySubject(ctx context.Context, subjectID string) ([]model.Pass, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, invalid("subject_id is required")
	}
	return s.cached(ctx, SubjectPassesKey(subjectID), func() ([]model.Pass, error) {
		return s.passes.ListBySubject(ctx, subjectID)
	})
}

// ListOverdue returns non-terminal passes past their expected return.
// It is time dependent and never cached.
func (s *PassService) ListOverdue(ctx context.Context) ([]model.Pass, error) {
	out, err := s.passes.ListOverdue(ctx, s.clock.Now())
	if err != nil {
		return nil, translate("list overdue passes", err)
	}
	return out, nil
}

// cached serves key from the cache or loads it.  The version read on the
// miss travels with the fill, so a list loaded before a concurrent write
// is discarded once that write has invalidated the key.  Callers get
// their own copy of the list.
func (s *PassService) cached(ctx context.Context, key string, load func() ([]model.Pass, error)) ([]model.Pass, error) {
	v, ver, ok := s.cache.Get(ctx, key)
	if ok {
		return slices.Clone(v), nil
	}
	v, err := load()
	if err != nil {
		return nil, translate("list passes", err)
	}
	s.cache.Set(ctx, key, slices.Clone(v), ver)
	return v, nil
}

// afterWrite invalidates the cache keys touched by p and emits the audit
// event.  Audit failures are logged and never reach the caller.
func (s *PassService) afterWrite(ctx context.Context, p *model.Pass, action audit.Action, actor, details string) {
	s.cache.Invalidate(ctx, SubjectPassesKey(p.SubjectID), OpenPassesKey)

	if s.audit == nil {
		return
	}
	ev := audit.NewEvent(p.ID, p.SubjectID, actor, action, details, s.clock.Now().UTC())
	if err := s.audit.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("audit record failed",
			zap.Uint64("pass_id", p.ID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
