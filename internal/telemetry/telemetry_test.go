package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roman-kulish/ground-station/internal/attitude"
)

func TestStore_Defaults(t *testing.T) {
	s := NewStore()

	if diff := cmp.Diff(Snapshot{}, s.Snapshot()); diff != "" {
		t.Errorf("expected zero snapshot (-want +got):\n%s", diff)
	}
	if s.Baseline().Calibrated {
		t.Errorf("expected store to start uncalibrated")
	}
}

func TestStore_ApplyAttitude(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, first := s.ApplyAttitude(attitude.Reading{Roll: 10, Pitch: 5, Yaw: 90}); !first {
		t.Fatalf("expected first reading to calibrate")
	}
	s.ApplyAttitude(attitude.Reading{Roll: 25, Pitch: -5, Yaw: 95})

	want := Snapshot{Roll: 15, Pitch: -10, Yaw: 95, AttitudeAt: fixed}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	b := s.Baseline()
	if !b.Calibrated || b.RollZero != 10 || b.PitchZero != 5 {
		t.Errorf("unexpected baseline %+v", b)
	}
}

func TestStore_FieldsAreIndependent(t *testing.T) {
	s := NewStore()

	s.SetPosition("GPS: somewhere")
	s.ApplyAttitude(attitude.Reading{Roll: 1, Pitch: 1, Yaw: 1})
	s.ApplyAttitude(attitude.Reading{Roll: 2, Pitch: 3, Yaw: 4})

	got := s.Snapshot()
	want := Snapshot{Roll: 1, Pitch: 2, Yaw: 4, Position: "GPS: somewhere"}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Snapshot{}, "AttitudeAt", "PositionAt")); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	s.SetPosition("GPS: elsewhere")
	if got := s.Snapshot(); got.Roll != 1 || got.Position != "GPS: elsewhere" {
		t.Errorf("position write disturbed attitude: %+v", got)
	}
}

// Concurrent writers and a reader: every snapshot must carry a roll/pitch pair
// written by the same update (pitch is always twice roll in this test).
func TestStore_SnapshotsAreNotTorn(t *testing.T) {
	s := NewStore()
	s.ApplyAttitude(attitude.Reading{}) // baseline at zero

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := float64(i % 1000)
			s.ApplyAttitude(attitude.Reading{Roll: v, Pitch: 2 * v, Yaw: v})
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			s.SetPosition("GPS: moving")
		}
	}()

	for i := 0; i < 10_000; i++ {
		snap := s.Snapshot()
		if snap.Pitch != 2*snap.Roll {
			close(stop)
			wg.Wait()
			t.Fatalf("torn snapshot: roll=%v pitch=%v", snap.Roll, snap.Pitch)
		}
	}

	close(stop)
	wg.Wait()
}
