package model

import "time"

// RawHeartbeat is a heartbeat as delivered by the Wakapi API. Both fields are
// optional; upstream data is not trusted.
type RawHeartbeat struct {
	Time    *float64 `json:"time"`
	Project *string  `json:"project"`
}

// HeartbeatEntry is a sanitized heartbeat with an integer epoch-second time.
// Project is nil for untagged heartbeats.
type HeartbeatEntry struct {
	Time    int64
	Project *string
}

// Session is a contiguous block of activity on a single project.
type Session struct {
	Start   int64   `json:"start"`
	End     int64   `json:"end"`
	Seconds int64   `json:"seconds"`
	Project *string `json:"project"`
}

// DaySessions pairs a calendar date with the sessions found on it.
type DaySessions struct {
	Date     time.Time `json:"date"`
	Sessions []Session `json:"sessions"`
}

// ProjectName returns the project or "" when the session is untagged.
func (s Session) ProjectName() string {
	if s.Project == nil {
		return ""
	}
	return *s.Project
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to a copy of f.
func FloatPtr(f float64) *float64 { return &f }
