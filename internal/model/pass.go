package model

import (
    "fmt"
    "time"
)

// PassStatus is the lifecycle state of a pass.  The zero value is not a
// valid status; use ParsePassStatus when reading values from storage or
// request bodies.
type PassStatus string

const (
    PassOpen   PassStatus = "OPEN"   // granted, subject still on site
    PassOut    PassStatus = "OUT"    // subject passed the checkpoint
    PassClosed PassStatus = "CLOSED" // subject returned; terminal
)

// ParsePassStatus converts a stored literal into a PassStatus.  Unknown
// literals are rejected so a corrupted row never turns into a valid state.
func ParsePassStatus(s string) (PassStatus, error) {
    st := PassStatus(s)
    if !st.Valid() {
        return "", fmt.Errorf("unknown pass status %q", s)
    }
    return st, nil
}

// Valid reports whether s is one of the three pass states.
func (s PassStatus) Valid() bool {
    switch s {
    case PassOpen, PassOut, PassClosed:
        return true
    }
    return false
}

// NonTerminal reports whether a pass in state s still counts against the
// one-open-pass-per-subject rule.
func (s PassStatus) NonTerminal() bool {
    return s == PassOpen || s == PassOut
}

// CanTransitionTo reports whether the state machine allows s -> next.
// OPEN may move to OUT or CLOSED, OUT may only close, CLOSED is terminal.
func (s PassStatus) CanTransitionTo(next PassStatus) bool {
    switch s {
    case PassOpen:
        return next == PassOut || next == PassClosed
    case PassOut:
        return next == PassClosed
    }
    return false
}

// Pass is a time-bounded egress authorization for one subject.
//
// Fields:
//  ID               – primary key identifier.
//  SubjectID        – roster identifier of the student holding the pass.
//  SponsorID        – identifier of the staff member (or window creator) who granted it.
//  SponsorName      – display name of the sponsor at grant time.
//  Purpose          – free text reason.
//  IssuedAt         – creation timestamp.
//  ExpectedReturnAt – when the subject is expected back (nullable).
//  ClosedAt         – when the pass was returned (nullable).
//  Status           – OPEN, OUT or CLOSED.
type Pass struct {
    ID               uint64     `json:"id"`                 // passes.id
    SubjectID        string     `json:"subject_id"`         // passes.subject_id
    SponsorID        string     `json:"sponsor_id"`         // passes.sponsor_id
    SponsorName      string     `json:"sponsor_name"`       // passes.sponsor_name
    Purpose          string     `json:"purpose"`            // passes.purpose
    IssuedAt         time.Time  `json:"issued_at"`          // passes.issued_at
    ExpectedReturnAt *time.Time `json:"expected_return_at"` // passes.expected_return_at (nullable)
    ClosedAt         *time.Time `json:"closed_at"`          // passes.closed_at (nullable)
    Status           PassStatus `json:"status"`             // passes.status
}
