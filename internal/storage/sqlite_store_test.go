package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestJournal(t *testing.T) *SqliteJournal {
	t.Helper()

	j := NewSqliteJournal(filepath.Join(t.TempDir(), "journal.sqlite"))
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestSqliteJournal_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)

	config := map[string]any{"attitudePort": 5002}
	id, err := j.CreateSession(ctx, config)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if id <= 0 {
		t.Fatalf("unexpected session id %d", id)
	}

	events := []struct {
		unit   string
		kind   EventKind
		detail string
	}{
		{"attitude", EventOpened, ""},
		{"video", EventFailed, "ffmpeg not found in PATH"},
		{"attitude", EventStopped, ""},
	}
	for _, ev := range events {
		if err = j.RecordEvent(ctx, id, ev.unit, ev.kind, ev.detail); err != nil {
			t.Fatalf("recording event: %v", err)
		}
	}

	if err = j.EndSession(ctx, id, map[string]uint64{"frames": 0}); err != nil {
		t.Fatalf("ending session: %v", err)
	}

	sess, err := j.Session(ctx, id)
	if err != nil {
		t.Fatalf("reading session: %v", err)
	}
	if sess.EndTime == nil {
		t.Errorf("expected end time to be set")
	}
	if sess.Config == nil || *sess.Config != `{"attitudePort":5002}` {
		t.Errorf("unexpected config %v", sess.Config)
	}
	if sess.Summary == nil || *sess.Summary != `{"frames":0}` {
		t.Errorf("unexpected summary %v", sess.Summary)
	}

	got, err := j.Events(ctx, id)
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}

	detail := "ffmpeg not found in PATH"
	want := []Event{
		{SessionID: id, Unit: "attitude", Kind: EventOpened},
		{SessionID: id, Unit: "video", Kind: EventFailed, Detail: &detail},
		{SessionID: id, Unit: "attitude", Kind: EventStopped},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Event{}, "ID", "Timestamp")); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestSqliteJournal_EndSessionKeepsFirstEndTime(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t)

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return first }

	id, err := j.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if err = j.EndSession(ctx, id, nil); err != nil {
		t.Fatalf("ending session: %v", err)
	}

	j.now = func() time.Time { return first.Add(time.Hour) }
	if err = j.EndSession(ctx, id, "again"); err != nil {
		t.Fatalf("ending session twice: %v", err)
	}

	sess, err := j.Session(ctx, id)
	if err != nil {
		t.Fatalf("reading session: %v", err)
	}
	if sess.EndTime == nil || !sess.EndTime.Equal(first) {
		t.Errorf("expected end time %v, got %v", first, sess.EndTime)
	}
	if sess.Summary != nil || sess.Config != nil {
		t.Errorf("expected empty config and summary, got %v and %v", sess.Config, sess.Summary)
	}
}

func TestSqliteJournal_CloseIsIdempotent(t *testing.T) {
	j := NewSqliteJournal(filepath.Join(t.TempDir(), "unused.sqlite"))
	if err := j.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
