// Package station runs the ingestion and video units of a ground station
// session and shuts them down in a coordinated way.
package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/ground-station/internal/storage"
)

// DefaultShutdownTimeout bounds the wait for units to stop
const DefaultShutdownTimeout = 5 * time.Second

const journalTimeout = 2 * time.Second

// ErrNoUnits is returned by Run when no unit could be opened
var ErrNoUnits = errors.New("no units to run")

// Unit is an independent loop of the session
type Unit interface {
	// Name identifies the unit in logs and in the journal.
	Name() string

	// Open acquires the unit's resources. A failure disables only this unit.
	Open(ctx context.Context) error

	// Run blocks until the unit stops. Stopping on request or at the end of
	// its input is not an error.
	Run(ctx context.Context) error

	// Wake asks a running unit to stop and unblocks any pending receive.
	Wake()

	// Close releases the unit's resources. It must be safe to call on a unit
	// that was never opened.
	Close() error
}

// Counter is implemented by units that report counters at shutdown
type Counter interface {
	Counters() map[string]uint64
}

// Display is the lifecycle of the display sink
type Display interface {
	Start(ctx context.Context) error
	Stop() error
}

// WithLogger sets the logger for the orchestrator
func WithLogger(logger *slog.Logger) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithDisplay sets the display sink that is started before and stopped after the units
func WithDisplay(display Display) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.display = display
	}
}

// WithJournal records the session and unit lifecycle events
func WithJournal(journal storage.Journal, config any) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.journal = journal
		o.journalConfig = config
	}
}

// WithShutdownTimeout sets how long to wait for units to stop
func WithShutdownTimeout(timeout time.Duration) func(*Orchestrator) {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.shutdownTimeout = timeout
		}
	}
}

// WithDuration stops the session after d, zero runs until cancelled
func WithDuration(d time.Duration) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.duration = d
	}
}

// Orchestrator starts every unit as an independent goroutine sharing the
// same telemetry state, and releases all resources exactly once on every
// exit path.
type Orchestrator struct {
	units   []Unit
	display Display
	logger  *slog.Logger

	journal       storage.Journal
	journalConfig any
	sessionID     int64

	shutdownTimeout time.Duration
	duration        time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool

	releaseOnce sync.Once
	releaseErr  error
}

// NewOrchestrator creates an orchestrator for units
func NewOrchestrator(units []Unit, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		units:           units,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		shutdownTimeout: DefaultShutdownTimeout,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run opens the units, runs them until ctx is cancelled, Stop is called, the
// duration elapses or every unit has finished, and then shuts them down.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	if len(o.units) == 0 {
		return ErrNoUnits
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if o.duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, o.duration)
		defer cancelTimeout()
	}

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.cancel = cancel
	o.mu.Unlock()

	o.beginSession(ctx)
	defer func() {
		if rErr := o.release(); rErr != nil {
			err = errors.Join(err, rErr)
		}
	}()

	if o.display != nil {
		if err = o.display.Start(ctx); err != nil {
			return fmt.Errorf("starting display: %w", err)
		}
	}

	var opened []Unit
	for _, unit := range o.units {
		if err := unit.Open(ctx); err != nil {
			o.logger.Error(fmt.Sprintf("unit disabled: %s", err.Error()), slog.String("unit", unit.Name()))
			o.record(unit.Name(), storage.EventFailed, err.Error())
			continue
		}

		o.record(unit.Name(), storage.EventOpened, "")
		opened = append(opened, unit)
	}

	if len(opened) == 0 {
		return ErrNoUnits
	}
	if len(opened) < len(o.units) {
		o.logger.Warn("running in degraded mode", slog.Int("units", len(opened)), slog.Int("configured", len(o.units)))
	}

	var g errgroup.Group
	var running sync.Map
	var remaining atomic.Int32
	remaining.Store(int32(len(opened)))

	for _, unit := range opened {
		running.Store(unit.Name(), struct{}{})

		g.Go(func() error {
			defer running.Delete(unit.Name())
			defer remaining.Add(-1)

			err := unit.Run(ctx)
			if err != nil {
				o.logger.Error(err.Error(), slog.String("unit", unit.Name()))
				o.record(unit.Name(), storage.EventError, err.Error())
				return fmt.Errorf("%s: %w", unit.Name(), err)
			}

			o.logger.Info("unit stopped", slog.String("unit", unit.Name()))
			o.record(unit.Name(), storage.EventStopped, "")
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err = <-done:
		o.logger.Info("all units finished")
		return err

	case <-ctx.Done():
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		o.logger.Info("session duration elapsed", slog.Duration("duration", o.duration))
	} else {
		o.logger.Info("shutting down")
	}

	for _, unit := range opened {
		unit.Wake()
	}

	timer := time.NewTimer(o.shutdownTimeout)
	defer timer.Stop()

	select {
	case err = <-done:
		return err

	case <-timer.C:
		var names []string
		running.Range(func(key, _ any) bool {
			names = append(names, key.(string))
			return true
		})
		sort.Strings(names)

		return fmt.Errorf("%d unit(s) did not stop within %s: %s", remaining.Load(), o.shutdownTimeout, strings.Join(names, ", "))
	}
}

// Stop requests the shutdown of a running session. It is safe to call at any time.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopped = true
	if o.cancel != nil {
		o.cancel()
	}
}

// release closes every unit and the display exactly once, including units
// that failed to open.
func (o *Orchestrator) release() error {
	o.releaseOnce.Do(func() {
		var errs []error

		for _, unit := range o.units {
			if err := unit.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", unit.Name(), err))
			}
		}

		if o.display != nil {
			if err := o.display.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stopping display: %w", err))
			}
		}

		summary := o.summary()
		o.endSession(summary)

		o.releaseErr = errors.Join(errs...)
	})

	return o.releaseErr
}

// summary logs the unit counters and returns them
func (o *Orchestrator) summary() map[string]map[string]uint64 {
	summary := make(map[string]map[string]uint64)

	for _, unit := range o.units {
		c, ok := unit.(Counter)
		if !ok {
			continue
		}

		counters := c.Counters()
		summary[unit.Name()] = counters

		keys := make([]string, 0, len(counters))
		for k := range counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		attrs := make([]any, 0, len(keys)+1)
		attrs = append(attrs, slog.String("unit", unit.Name()))
		for _, k := range keys {
			if k == "bytes" {
				attrs = append(attrs, slog.String(k, humanize.Bytes(counters[k])))
			} else {
				attrs = append(attrs, slog.String(k, humanize.Comma(int64(counters[k]))))
			}
		}

		o.logger.Info("unit summary", attrs...)
	}

	return summary
}

func (o *Orchestrator) beginSession(ctx context.Context) {
	if o.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()

	id, err := o.journal.CreateSession(ctx, o.journalConfig)
	if err != nil {
		o.logger.Warn(fmt.Sprintf("journal disabled: %s", err.Error()))
		o.journal = nil
		return
	}

	o.sessionID = id
	o.logger.Info("session started", slog.Int64("session", id))
}

func (o *Orchestrator) record(unit string, kind storage.EventKind, detail string) {
	if o.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := o.journal.RecordEvent(ctx, o.sessionID, unit, kind, detail); err != nil {
		o.logger.Warn(fmt.Sprintf("recording event: %s", err.Error()), slog.String("unit", unit))
	}
}

func (o *Orchestrator) endSession(summary any) {
	if o.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := o.journal.EndSession(ctx, o.sessionID, summary); err != nil {
		o.logger.Warn(fmt.Sprintf("ending session: %s", err.Error()))
		return
	}

	o.reportSession(ctx)
}

// reportSession logs the journaled session as it was stored
func (o *Orchestrator) reportSession(ctx context.Context) {
	session, err := o.journal.Session(ctx, o.sessionID)
	if err != nil {
		o.logger.Warn(fmt.Sprintf("reading session: %s", err.Error()))
		return
	}

	events, err := o.journal.Events(ctx, o.sessionID)
	if err != nil {
		o.logger.Warn(fmt.Sprintf("reading session events: %s", err.Error()))
		return
	}

	var failed []string
	for _, ev := range events {
		if ev.Kind == storage.EventFailed || ev.Kind == storage.EventError {
			failed = append(failed, ev.Unit)
		}
	}

	attrs := []any{
		slog.Int64("session", session.ID),
		slog.Int("events", len(events)),
	}
	if session.EndTime != nil {
		attrs = append(attrs, slog.Duration("duration", session.EndTime.Sub(session.StartTime).Round(time.Millisecond)))
	}
	if len(failed) > 0 {
		attrs = append(attrs, slog.String("failed", strings.Join(failed, ", ")))
	}

	o.logger.Info("session ended", attrs...)
}
