package model

import (
    "fmt"
    "time"
)

// WindowStatus is the lifecycle state of a leave window.
type WindowStatus string

const (
    WindowActive  WindowStatus = "ACTIVE"
    WindowExpired WindowStatus = "EXPIRED"
)

// ParseWindowStatus converts a stored literal into a WindowStatus.
func ParseWindowStatus(s string) (WindowStatus, error) {
    switch st := WindowStatus(s); st {
    case WindowActive, WindowExpired:
        return st, nil
    }
    return "", fmt.Errorf("unknown leave window status %q", s)
}

// DateLayout is the storage and wire format of leave window dates.
const DateLayout = "2006-01-02"

// TimeOfDay is a wall clock time without a date, minute precision.
type TimeOfDay struct {
    Hour   int
    Minute int
}

// ParseTimeOfDay accepts "15:04" (and "15:04:05", seconds ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
    for _, layout := range []string{"15:04", "15:04:05"} {
        if t, err := time.Parse(layout, s); err == nil {
            return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
        }
    }
    return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

// LeaveWindow is an administrator-defined recurring daily window bounded
// by a date range.  Every subject of the roster that is not listed in
// Exclusions receives a pass while the window is open.
//
// Fields:
//  ID         – primary key identifier.
//  StartDate  – first calendar day of the window (date only).
//  EndDate    – last calendar day of the window (date only, inclusive).
//  StartTime  – daily opening time.
//  EndTime    – daily closing time (inclusive).
//  CreatedBy  – administrator who created the window; used as sponsor.
//  Status     – ACTIVE or EXPIRED.
//  Exclusions – subject IDs not eligible for auto-granted passes.
//  CreatedAt  – creation timestamp.
type LeaveWindow struct {
    ID         uint64       // leave_windows.id
    StartDate  time.Time    // leave_windows.start_date
    EndDate    time.Time    // leave_windows.end_date
    StartTime  TimeOfDay    // leave_windows.start_time
    EndTime    TimeOfDay    // leave_windows.end_time
    CreatedBy  string       // leave_windows.created_by
    Status     WindowStatus // leave_windows.status
    Exclusions []string     // leave_window_exclusions.subject_id
    CreatedAt  time.Time    // leave_windows.created_at
}

// Excludes reports whether subjectID is in the window's exclusion set.
func (w LeaveWindow) Excludes(subjectID string) bool {
    for _, s := range w.Exclusions {
        if s == subjectID {
            return true
        }
    }
    return false
}

// Elapsed reports whether the last day of the window is over at now.
// Dates are interpreted in now's location.
func (w LeaveWindow) Elapsed(now time.Time) bool {
    return dayOf(now).After(dayOf(w.EndDate, now.Location()))
}

// OpenAt reports whether now falls inside the date range and inside the
// daily [StartTime, EndTime] slot.  A slot whose end is before its start
// is treated as empty.
func (w LeaveWindow) OpenAt(now time.Time) bool {
    today := dayOf(now)
    if today.Before(dayOf(w.StartDate, now.Location())) || today.After(dayOf(w.EndDate, now.Location())) {
        return false
    }
    m := now.Hour()*60 + now.Minute()
    return m >= w.StartTime.minutes() && m <= w.EndTime.minutes()
}

// dayOf truncates t to midnight.  When loc is given the calendar date of
// t is kept but placed in loc, so stored dates compare against local days.
func dayOf(t time.Time, loc ...*time.Location) time.Time {
    l := t.Location()
    if len(loc) > 0 && loc[0] != nil {
        l = loc[0]
    }
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, l)
}
