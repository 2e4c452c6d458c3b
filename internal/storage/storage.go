// Package storage keeps a journal of ground station sessions and the
// lifecycle events of their units. Telemetry values are never stored.
package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
)

// Journal records sessions and unit lifecycle events. Implementations must be
// safe for concurrent use.
type Journal interface {
	// CreateSession starts a new session and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - config: Optional configuration of the run. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, config any) (sessionID int64, err error)

	// RecordEvent appends a lifecycle event of a unit to the session.
	// An empty detail is stored as NULL.
	RecordEvent(ctx context.Context, sessionID int64, unit string, kind EventKind, detail string) error

	// EndSession marks the session as finished and stores the optional
	// summary. Ending a session twice keeps the first end time.
	EndSession(ctx context.Context, sessionID int64, summary any) error

	// Session retrieves a session by its ID.
	Session(ctx context.Context, id int64) (*Session, error)

	// Events returns the events of a session in the order they were recorded.
	Events(ctx context.Context, sessionID int64) ([]Event, error)

	// Close releases database resources. It is safe to call more than once.
	Close() error
}
