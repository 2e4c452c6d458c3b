package storage

import (
	"time"
)

// EventKind is the lifecycle event recorded for a unit
type EventKind string

const (
	EventOpened  EventKind = "opened"
	EventFailed  EventKind = "failed"
	EventStopped EventKind = "stopped"
	EventError   EventKind = "error"
)

// Session is one run of the ground station
type Session struct {
	ID        int64      `json:"id"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Hostname  string     `json:"hostname"`
	Config    *string    `json:"config,omitempty"`  // Configuration in JSON format
	Summary   *string    `json:"summary,omitempty"` // Shutdown counters in JSON format
}

// Event is a lifecycle event of a unit within a session
type Event struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"sessionID"`
	Timestamp time.Time `json:"timestamp"`
	Unit      string    `json:"unit"`
	Kind      EventKind `json:"kind"`
	Detail    *string   `json:"detail,omitempty"`
}
