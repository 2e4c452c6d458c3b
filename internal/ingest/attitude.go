package ingest

import (
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/roman-kulish/ground-station/internal/attitude"
)

// AttitudeWriter folds an absolute reading into the telemetry state
type AttitudeWriter interface {
	ApplyAttitude(r attitude.Reading) (attitude.Reading, bool)
}

// AttitudeHandler turns IMU text records into calibrated attitude updates
type AttitudeHandler struct {
	store  AttitudeWriter
	logger *slog.Logger

	applied   atomic.Uint64
	discarded atomic.Uint64
}

// NewAttitudeHandler creates a handler writing into store
func NewAttitudeHandler(store AttitudeWriter, logger *slog.Logger) *AttitudeHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AttitudeHandler{store: store, logger: logger}
}

// HandleText parses one record; records with fewer than three numbers are dropped
func (h *AttitudeHandler) HandleText(text string) {
	line := strings.TrimSpace(text)
	if line == "" {
		return
	}

	r, ok := attitude.ParseLine(line)
	if !ok {
		h.discarded.Add(1)
		h.logger.Debug("discarding attitude record", slog.String("line", line))
		return
	}

	rel, first := h.store.ApplyAttitude(r)
	h.applied.Add(1)

	if first {
		h.logger.Info("attitude calibrated",
			slog.Float64("rollZero", r.Roll),
			slog.Float64("pitchZero", r.Pitch))
		return
	}

	h.logger.Debug("attitude",
		slog.Float64("roll", rel.Roll),
		slog.Float64("pitch", rel.Pitch),
		slog.Float64("yaw", rel.Yaw))
}

// Counts returns the number of applied and discarded records
func (h *AttitudeHandler) Counts() (applied, discarded uint64) {
	return h.applied.Load(), h.discarded.Load()
}

// Counters reports the handler counters
func (h *AttitudeHandler) Counters() map[string]uint64 {
	applied, discarded := h.Counts()
	return map[string]uint64{"applied": applied, "discarded": discarded}
}
