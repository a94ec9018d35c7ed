// Package queue defines message payloads exchanged over the message broker.
package queue

// ActivityEvent is published whenever a pass changes state.  It carries
// enough information for downstream consumers (activity log, dashboards,
// notification workers) without querying the primary database.
type ActivityEvent struct {
    EventID   string `json:"event_id"`
    PassID    uint64 `json:"pass_id"`
    SubjectID string `json:"subject_id"`
    ActorID   string `json:"actor_id"`
    Action    string `json:"action"`
    Details   string `json:"details"`
    Timestamp string `json:"timestamp"`
}
