package telemetry

import (
	"sync"
	"time"

	"github.com/roman-kulish/ground-station/internal/attitude"
)

// Provider gives read access to a consistent view of the latest telemetry
type Provider interface {
	Snapshot() Snapshot
}

// Snapshot is a consistent copy of the telemetry state at one instant
type Snapshot struct {
	Roll       float64   // Roll relative to the calibration baseline, degrees
	Pitch      float64   // Pitch relative to the calibration baseline, degrees
	Yaw        float64   // Absolute heading as received, degrees
	Position   string    // Human-readable position line, empty until the first fix
	AttitudeAt time.Time // Time of the last attitude update
	PositionAt time.Time // Time of the last position update
}

// Store is the single shared telemetry cell. Attitude and position writers
// update disjoint fields; the compositor reads whole snapshots. The
// calibration baseline lives under the same lock so that capturing it and
// applying the first relative reading are observed as one update.
type Store struct {
	mu         sync.RWMutex
	snap       Snapshot
	calibrator attitude.Calibrator

	now func() time.Time
}

// NewStore creates a store with zero attitude and an empty position
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// ApplyAttitude calibrates r against the session baseline and stores the
// relative angles. It returns the stored reading and whether r established
// the baseline.
func (s *Store) ApplyAttitude(r attitude.Reading) (attitude.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, first := s.calibrator.Apply(r)
	s.snap.Roll = rel.Roll
	s.snap.Pitch = rel.Pitch
	s.snap.Yaw = rel.Yaw
	s.snap.AttitudeAt = s.now()

	return rel, first
}

// SetPosition replaces the position display string
func (s *Store) SetPosition(display string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Position = display
	s.snap.PositionAt = s.now()
}

// Baseline returns the calibration baseline
func (s *Store) Baseline() attitude.Baseline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calibrator.Baseline()
}
