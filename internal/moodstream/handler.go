package moodstream

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mood-orchestrator/internal/platform/metrics"
)

// Handler exposes stream endpoints using go-chi.
type Handler struct {
	sched   *Scheduler
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Scheduler, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording
// (e.g. in tests).
func NewHandler(sched *Scheduler, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{sched: sched, log: log, metrics: m}
}

// GetStream handles GET /stream. Returns the published stream state.
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	state := h.sched.Snapshot()
	if state.StreamID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// StartStream handles POST /stream/start. Cold-starts a fresh stream and
// returns it with its first segment ready to play.
func (h *Handler) StartStream(w http.ResponseWriter, r *http.Request) {
	state := h.sched.Start(r.Context())
	h.log.Info("stream started", slog.String("stream_id", state.StreamID))
	h.writeJSON(w, http.StatusOK, state)
}

// UpdatePosition handles POST /stream/position.
// Body: { "index": 2 }.
func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid position body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	state, err := h.sched.Advance(body.Index)
	if err != nil {
		if errors.Is(err, ErrIndexOutOfRange) {
			h.log.Debug("position rejected", slog.Int("index", body.Index), slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.log.Error("position update failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// NextStream handles POST /stream/next. Switches to the buffered next
// stream; 409 when no segment has been buffered yet.
func (h *Handler) NextStream(w http.ResponseWriter, r *http.Request) {
	state, err := h.sched.SwitchToNext(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoBufferedSegment) {
			h.log.Info("next stream unavailable", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusConflict)
			return
		}
		h.log.Error("stream switch failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.log.Info("stream switched", slog.String("stream_id", state.StreamID))
	h.writeJSON(w, http.StatusOK, state)
}

// RefreshStream handles PUT /stream/refresh. Regenerates the stream from
// scratch, bypassing the response cache.
func (h *Handler) RefreshStream(w http.ResponseWriter, r *http.Request) {
	state := h.sched.Refresh(r.Context())
	h.log.Info("stream refreshed", slog.String("stream_id", state.StreamID))
	h.writeJSON(w, http.StatusOK, state)
}

// RegenerateScent handles POST /stream/scent. Regenerates only the current
// segment's scent and icon fields. 404 before any stream exists.
func (h *Handler) RegenerateScent(w http.ResponseWriter, r *http.Request) {
	if h.sched.Snapshot().StreamID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	state := h.sched.RegenerateScent(r.Context())
	h.writeJSON(w, http.StatusOK, state)
}

// RegenerateMusic handles POST /stream/music. Regenerates only the current
// segment's music and wind fields. 404 before any stream exists.
func (h *Handler) RegenerateMusic(w http.ResponseWriter, r *http.Request) {
	if h.sched.Snapshot().StreamID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	state := h.sched.RegenerateMusic(r.Context())
	h.writeJSON(w, http.StatusOK, state)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("response encode failed", slog.String("error", err.Error()))
	}
}
