package moodstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mood-orchestrator/internal/platform/metrics"
)

// State is the scheduler's lifecycle phase.
type State string

const (
	StateColdStart            State = "cold_start"
	StateSteady               State = "steady"
	StateBackgroundGenerating State = "background_generating"
	StateTransitioning        State = "transitioning"
	StateRefreshing           State = "refreshing"
)

// EventType labels a scheduler lifecycle event.
type EventType string

const (
	EventColdStartReady  EventType = "coldStartReady"
	EventBackgroundReady EventType = "backgroundReady"
	EventAutoGenerated   EventType = "autoGenerated"
	EventTransitioned    EventType = "transitioned"
	EventRefreshed       EventType = "refreshed"
)

// Event announces a stream change to interested consumers.
type Event struct {
	Type     EventType `json:"type"`
	StreamID string    `json:"streamId"`
	Segments int       `json:"segments"`
}

// ErrNoBufferedSegment is returned by SwitchToNext when no seed segment has
// been buffered yet, typically because background generation is still running.
var ErrNoBufferedSegment = errors.New("no buffered segment for next stream")

// ErrIndexOutOfRange is returned by Advance for a position outside the stream.
var ErrIndexOutOfRange = errors.New("segment index out of range")

// DefaultBatchSize is how many segments one background generation produces.
// The last one is buffered as the seed for the next stream.
const DefaultBatchSize = 3

// DefaultAutogenThreshold is the remaining-segment count at which playback
// advancing triggers a background generation.
const DefaultAutogenThreshold = 3

// Scheduler owns the stream: it is the only mutator of segments, position,
// and stream identity. Generation runs single-flight; a stream replacement
// (transition or refresh) bumps an epoch so a stale in-flight batch still
// lands in the cache but is never published.
type Scheduler struct {
	pipeline         *Pipeline
	log              *slog.Logger
	metrics          *metrics.Metrics
	batchSize        int
	autogenThreshold int
	now              func() time.Time

	generating atomic.Bool
	epoch      atomic.Int64

	events chan Event

	mu       sync.RWMutex
	state    State
	stream   Stream
	buffered *Segment
}

// NewScheduler wires a scheduler. Metrics may be nil.
func NewScheduler(pipeline *Pipeline, batchSize, autogenThreshold int, met *metrics.Metrics, log *slog.Logger) *Scheduler {
	if batchSize < 2 {
		batchSize = DefaultBatchSize
	}
	if autogenThreshold < 1 {
		autogenThreshold = DefaultAutogenThreshold
	}
	return &Scheduler{
		pipeline:         pipeline,
		log:              log,
		metrics:          met,
		batchSize:        batchSize,
		autogenThreshold: autogenThreshold,
		now:              time.Now,
		events:           make(chan Event, 16),
		state:            StateColdStart,
	}
}

// Events exposes the lifecycle event channel. Sends never block; events are
// dropped when the consumer lags.
func (s *Scheduler) Events() <-chan Event { return s.events }

// Snapshot returns a read-only copy of the published stream.
func (s *Scheduler) Snapshot() StreamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segs := make([]Segment, len(s.stream.Segments))
	copy(segs, s.stream.Segments)
	return StreamState{
		StreamID:     s.stream.ID,
		Segments:     segs,
		CurrentIndex: s.stream.CurrentIndex,
	}
}

// State reports the current lifecycle phase.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start performs a cold start: one segment is generated and published so
// playback can begin immediately, then a background generation extends the
// stream. Calling Start on a running scheduler begins a fresh stream.
func (s *Scheduler) Start(ctx context.Context) StreamState {
	epoch := s.epoch.Add(1)

	seed := s.safeGenerate(ctx, GenerateRequest{Scope: ScopeStream, BatchSize: 1})
	chained, err := Chain(seed[:1], s.now().UnixMilli())
	if err != nil {
		// unreachable: safeGenerate never returns an empty batch
		chained = seed
	}

	s.mu.Lock()
	s.stream = Stream{
		ID:           uuid.NewString(),
		Segments:     chained,
		CurrentIndex: 0,
		CreatedAt:    s.now(),
	}
	s.buffered = nil
	s.state = StateSteady
	id := s.stream.ID
	s.mu.Unlock()

	s.updateGauge()
	s.emit(Event{Type: EventColdStartReady, StreamID: id, Segments: 1})
	s.log.Info("cold start published", slog.String("streamId", id))

	go s.generateInBackground(context.WithoutCancel(ctx), epoch, EventBackgroundReady)

	return s.Snapshot()
}

// Advance moves the playback position. When few unplayed segments remain it
// triggers a background generation so the stream never runs dry.
func (s *Scheduler) Advance(index int) (StreamState, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.stream.Segments) {
		s.mu.Unlock()
		return StreamState{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s.stream.Segments))
	}
	s.stream.CurrentIndex = index
	remaining := len(s.stream.Segments) - 1 - index
	s.mu.Unlock()

	if remaining <= s.autogenThreshold {
		go s.generateInBackground(context.Background(), s.epoch.Load(), EventAutoGenerated)
	}
	return s.Snapshot(), nil
}

// SwitchToNext replaces the stream with a new one seeded by the buffered
// segment, then extends it in the background. Fails when nothing is buffered.
func (s *Scheduler) SwitchToNext(ctx context.Context) (StreamState, error) {
	s.mu.Lock()
	if s.buffered == nil {
		s.mu.Unlock()
		return StreamState{}, ErrNoBufferedSegment
	}
	seed := *s.buffered
	s.buffered = nil
	s.state = StateTransitioning
	s.mu.Unlock()

	epoch := s.epoch.Add(1)

	chained, err := Chain([]Segment{seed}, s.now().UnixMilli())
	if err != nil {
		return StreamState{}, err
	}

	s.mu.Lock()
	s.stream = Stream{
		ID:           uuid.NewString(),
		Segments:     chained,
		CurrentIndex: 0,
		CreatedAt:    s.now(),
	}
	s.state = StateSteady
	id := s.stream.ID
	s.mu.Unlock()

	s.updateGauge()
	s.emit(Event{Type: EventTransitioned, StreamID: id, Segments: 1})
	s.log.Info("switched to buffered stream", slog.String("streamId", id))

	go s.generateInBackground(context.WithoutCancel(ctx), epoch, EventBackgroundReady)

	return s.Snapshot(), nil
}

// Refresh discards the stream and synchronously generates a fresh one,
// bypassing the cache read. Any in-flight background batch becomes stale.
func (s *Scheduler) Refresh(ctx context.Context) StreamState {
	epoch := s.epoch.Add(1)

	s.mu.Lock()
	s.state = StateRefreshing
	s.mu.Unlock()

	batch := s.safeGenerate(ctx, GenerateRequest{
		Scope:      ScopeStream,
		BatchSize:  s.batchSize,
		ForceFresh: true,
	})

	publish := batch
	var buffered *Segment
	if len(batch) > 1 {
		publish = batch[:len(batch)-1]
		last := batch[len(batch)-1]
		buffered = &last
	}
	chained, err := Chain(publish, s.now().UnixMilli())
	if err != nil {
		chained = publish
	}

	s.mu.Lock()
	stale := s.epoch.Load() != epoch
	if !stale {
		s.stream = Stream{
			ID:           uuid.NewString(),
			Segments:     chained,
			CurrentIndex: 0,
			CreatedAt:    s.now(),
		}
		s.buffered = buffered
		s.state = StateSteady
	}
	id := s.stream.ID
	n := len(s.stream.Segments)
	s.mu.Unlock()

	if !stale {
		s.updateGauge()
		s.emit(Event{Type: EventRefreshed, StreamID: id, Segments: n})
		s.log.Info("stream refreshed", slog.String("streamId", id), slog.Int("segments", n))
	}
	return s.Snapshot()
}

// GenerateBackground runs one guarded background generation synchronously.
// Returns false when another generation already holds the flight slot.
func (s *Scheduler) GenerateBackground(ctx context.Context) bool {
	return s.generateGuarded(ctx, s.epoch.Load(), EventBackgroundReady)
}

// RegenerateScent replaces the current segment's scent and icons, keeping
// everything else, including timing, untouched.
func (s *Scheduler) RegenerateScent(ctx context.Context) StreamState {
	return s.regenerateCurrent(ctx, ScopeScent)
}

// RegenerateMusic replaces the current segment's music and wind. The new
// track's duration differs, so the tail of the stream is re-chained to stay
// gapless.
func (s *Scheduler) RegenerateMusic(ctx context.Context) StreamState {
	return s.regenerateCurrent(ctx, ScopeMusic)
}

func (s *Scheduler) regenerateCurrent(ctx context.Context, scope Scope) StreamState {
	s.mu.RLock()
	if len(s.stream.Segments) == 0 {
		s.mu.RUnlock()
		return s.Snapshot()
	}
	idx := s.stream.CurrentIndex
	current := s.stream.Segments[idx]
	streamID := s.stream.ID
	s.mu.RUnlock()

	patched := s.safeGenerate(ctx, GenerateRequest{
		Scope:        scope,
		BatchSize:    1,
		SegmentIndex: idx,
		Current:      &current,
	})

	s.mu.Lock()
	// the patch was built from this stream's segment and carries its
	// timing; a refresh or transition mid-flight replaces the stream, and
	// splicing the patch into the successor would break contiguity
	if s.stream.ID != streamID || idx >= len(s.stream.Segments) {
		s.mu.Unlock()
		s.log.Debug("discarding stale scoped patch", slog.String("streamId", streamID))
		return s.Snapshot()
	}
	s.stream.Segments[idx] = patched[0]
	if scope == ScopeMusic {
		if rechained, err := Chain(s.stream.Segments[idx:], s.stream.Segments[idx].StartTime); err == nil {
			copy(s.stream.Segments[idx:], rechained)
		}
	}
	s.mu.Unlock()

	return s.Snapshot()
}

func (s *Scheduler) generateInBackground(ctx context.Context, epoch int64, event EventType) {
	s.generateGuarded(ctx, epoch, event)
}

// generateGuarded produces a batch of batchSize segments: all but the last
// extend the live stream, the last is buffered as the next stream's seed.
// Single-flight; a concurrent call returns immediately.
func (s *Scheduler) generateGuarded(ctx context.Context, epoch int64, event EventType) bool {
	if !s.generating.CompareAndSwap(false, true) {
		return false
	}
	defer s.generating.Store(false)

	s.mu.Lock()
	if s.state == StateSteady {
		s.state = StateBackgroundGenerating
	}
	s.mu.Unlock()

	batch := s.safeGenerate(ctx, GenerateRequest{Scope: ScopeStream, BatchSize: s.batchSize})

	extend := batch
	var buffered *Segment
	if len(batch) > 1 {
		extend = batch[:len(batch)-1]
		last := batch[len(batch)-1]
		buffered = &last
	}

	s.mu.Lock()
	if s.state == StateBackgroundGenerating {
		s.state = StateSteady
	}
	if s.epoch.Load() != epoch {
		// the stream was replaced mid-flight; the batch is already cached
		// for the next matching request, but must not extend the new stream
		s.mu.Unlock()
		s.log.Debug("discarding stale background batch")
		return true
	}
	start := LastEndTime(s.stream.Segments, s.now().UnixMilli())
	chained, err := Chain(extend, start)
	if err == nil {
		s.stream.Segments = append(s.stream.Segments, chained...)
	}
	if buffered != nil {
		s.buffered = buffered
	}
	id := s.stream.ID
	n := len(s.stream.Segments)
	s.mu.Unlock()

	s.updateGauge()
	s.emit(Event{Type: event, StreamID: id, Segments: n})
	s.log.Info("background batch appended",
		slog.String("streamId", id),
		slog.Int("appended", len(extend)),
		slog.Bool("buffered", buffered != nil))
	return true
}

// safeGenerate shields the scheduler from a panicking pipeline stage: on
// panic the built-in default batch is served instead.
func (s *Scheduler) safeGenerate(ctx context.Context, req GenerateRequest) (out []Segment) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("generation panicked, serving defaults", slog.Any("panic", r))
			if s.metrics != nil {
				s.metrics.IncGenerationFailures()
			}
			if req.Current != nil {
				out = []Segment{*req.Current}
				return
			}
			n := req.BatchSize
			if n <= 0 {
				n = 1
			}
			out, _ = s.pipeline.fromDefaults(n)
		}
	}()
	return s.pipeline.Generate(ctx, req)
}

func (s *Scheduler) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("event dropped, consumer lagging", slog.String("type", string(ev.Type)))
	}
}

func (s *Scheduler) updateGauge() {
	if s.metrics == nil {
		return
	}
	s.mu.RLock()
	n := len(s.stream.Segments)
	s.mu.RUnlock()
	s.metrics.SetStreamSegments(n)
}
