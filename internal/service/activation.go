package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-pass-service/internal/metrics"
	"github.com/iliyamo/leave-pass-service/internal/model"
)

// WindowStore is the part of the leave window repository the engine uses.
type WindowStore interface {
	ListActive(ctx context.Context) ([]model.LeaveWindow, error)
	MarkExpired(ctx context.Context, id uint64) error
}

// Roster lists the subjects eligible for auto-granted passes.
type Roster interface {
	ListEligibleSubjects(ctx context.Context) ([]string, error)
}

// granter is satisfied by *PassService.
type granter interface {
	grant(ctx context.Context, req GrantRequest) (*model.Pass, error)
}

// ActivationResult summarizes one auto-activation run.
type ActivationResult struct {
	WindowsProcessed int `json:"windows_processed"`
	PassesGranted    int `json:"passes_granted"`
}

// ActivationEngine turns open leave windows into passes.  A run is
// idempotent: subjects that already hold a non-terminal pass are skipped
// through the grant conflict path, so repeated runs inside the same slot
// grant nothing new.
type ActivationEngine struct {
	windows WindowStore
	roster  Roster
	passes  granter
	clock   clockwork.Clock
	loc     *time.Location
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewActivationEngine builds an engine evaluating windows in loc.  A nil
// loc means time.Local.
func NewActivationEngine(windows WindowStore, roster Roster, passes *PassService, loc *time.Location, log *zap.Logger) *ActivationEngine {
	if windows == nil || roster == nil || passes == nil {
		panic("nil dependency passed to NewActivationEngine")
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ActivationEngine{
		windows: windows,
		roster:  roster,
		passes:  passes,
		clock:   passes.clock,
		loc:     loc,
		metrics: passes.metrics,
		log:     log,
	}
}

// RunOnce evaluates every ACTIVE window at the current instant.  Windows
// whose last day has passed are marked EXPIRED.  Windows open right now
// grant a pass to each eligible subject not on their exclusion list.
// Only a failure to list the windows is returned; roster, expiry and
// per-subject failures are logged and skipped.
func (e *ActivationEngine) RunOnce(ctx context.Context) (ActivationResult, error) {
	var res ActivationResult
	now := e.clock.Now().In(e.loc)

	windows, err := e.windows.ListActive(ctx)
	if err != nil {
		err = translate("list active leave windows", err)
		e.metrics.ObserveActivation(0, err)
		return res, err
	}

	var roster []string
	rosterLoaded := false
	for _, w := range windows {
		if w.Elapsed(now) {
			if err := e.windows.MarkExpired(ctx, w.ID); err != nil {
				e.log.Warn("expire leave window failed", zap.Uint64("window_id", w.ID), zap.Error(err))
			} else {
				e.log.Info("leave window expired", zap.Uint64("window_id", w.ID))
			}
			continue
		}
		if !w.OpenAt(now) {
			continue
		}
		res.WindowsProcessed++

		if !rosterLoaded {
			roster, err = e.roster.ListEligibleSubjects(ctx)
			if err != nil {
				e.log.Error("roster unavailable, skipping leave window",
					zap.Uint64("window_id", w.ID), zap.Error(err))
				continue
			}
			rosterLoaded = true
		}
		res.PassesGranted += e.activate(ctx, w, roster)
	}

	e.metrics.ObserveActivation(res.PassesGranted, nil)
	return res, nil
}

func (e *ActivationEngine) activate(ctx context.Context, w model.LeaveWindow, roster []string) int {
	granted := 0
	purpose := fmt.Sprintf("leave window #%d", w.ID)
	for _, subjectID := range roster {
		if w.Excludes(subjectID) {
			continue
		}
		_, err := e.passes.grant(ctx, GrantRequest{
			SubjectID:   subjectID,
			SponsorID:   w.CreatedBy,
			SponsorName: w.CreatedBy,
			Purpose:     purpose,
		})
		switch {
		case err == nil:
			granted++
		case errors.Is(err, ErrConflict):
		default:
			e.log.Warn("auto-activation grant failed",
				zap.Uint64("window_id", w.ID),
				zap.String("subject_id", subjectID),
				zap.Error(err))
		}
	}
	if granted > 0 {
		e.log.Info("leave window activated", zap.Uint64("window_id", w.ID), zap.Int("granted", granted))
	}
	return granted
}
