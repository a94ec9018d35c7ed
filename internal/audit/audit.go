// Package audit records pass activity.  Recording is fire-and-forget: a
// failed or slow audit sink never fails or delays the pass operation
// that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/leave-pass-service/internal/queue"
)

// Action is the kind of pass activity being recorded.
type Action string

const (
	ActionGrant  Action = "GRANT"
	ActionReturn Action = "RETURN"
	ActionOut    Action = "OUT"
)

// Event is one audit record.
type Event struct {
	ID        string
	PassID    uint64
	SubjectID string
	ActorID   string
	Action    Action
	Details   string
	Timestamp time.Time
}

// NewEvent stamps a new event with a random ID.
func NewEvent(passID uint64, subjectID, actorID string, action Action, details string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		PassID:    passID,
		SubjectID: subjectID,
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		Timestamp: at,
	}
}

// Recorder is the audit collaborator consumed by the pass service.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// LogRecorder writes events to the service log.  It is the recorder used
// when no broker is configured.
type LogRecorder struct {
	Log *zap.Logger
}

func (r LogRecorder) Record(_ context.Context, ev Event) error {
	r.Log.Info("pass activity",
		zap.String("event_id", ev.ID),
		zap.Uint64("pass_id", ev.PassID),
		zap.String("subject_id", ev.SubjectID),
		zap.String("actor_id", ev.ActorID),
		zap.String("action", string(ev.Action)),
		zap.String("details", ev.Details),
		zap.Time("timestamp", ev.Timestamp),
	)
	return nil
}

// Publisher is implemented by queue.Publisher.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// QueueRecorder forwards events to the message broker.
type QueueRecorder struct {
	Publisher Publisher
}

func (r QueueRecorder) Record(ctx context.Context, ev Event) error {
	return r.Publisher.Publish(ctx, queue.ActivityEvent{
		EventID:   ev.ID,
		PassID:    ev.PassID,
		SubjectID: ev.SubjectID,
		ActorID:   ev.ActorID,
		Action:    string(ev.Action),
		Details:   ev.Details,
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
	})
}
