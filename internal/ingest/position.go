package ingest

import (
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/roman-kulish/ground-station/internal/position"
)

// PositionWriter replaces the position display line
type PositionWriter interface {
	SetPosition(display string)
}

// PositionHandler splits GPS datagrams into sentences and publishes a display
// line for every sentence that passes the display filter.
type PositionHandler struct {
	store  PositionWriter
	logger *slog.Logger

	applied  atomic.Uint64
	ignored  atomic.Uint64
	fallback atomic.Uint64
}

// NewPositionHandler creates a handler writing into store
func NewPositionHandler(store PositionWriter, logger *slog.Logger) *PositionHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PositionHandler{store: store, logger: logger}
}

// HandleText processes every sentence of a datagram in order
func (h *PositionHandler) HandleText(text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h.handleSentence(line)
	}
}

func (h *PositionHandler) handleSentence(line string) {
	if !position.Accepted(line) {
		h.ignored.Add(1)
		return
	}

	fix := position.Parse(line)
	switch f := fix.(type) {
	case position.RawLine:
		h.fallback.Add(1)
		h.logger.Debug("unparsed position sentence", slog.String("line", line), slog.Any("error", f.Err))
	case position.OtherSentence:
		h.logger.Debug("position sentence without display data", slog.String("kind", f.Kind))
	}

	h.store.SetPosition(position.Describe(fix))
	h.applied.Add(1)
}

// Counts returns the number of displayed, ignored and unparsed sentences
func (h *PositionHandler) Counts() (applied, ignored, fallback uint64) {
	return h.applied.Load(), h.ignored.Load(), h.fallback.Load()
}

// Counters reports the handler counters
func (h *PositionHandler) Counters() map[string]uint64 {
	applied, ignored, fallback := h.Counts()
	return map[string]uint64{"applied": applied, "ignored": ignored, "fallback": fallback}
}
