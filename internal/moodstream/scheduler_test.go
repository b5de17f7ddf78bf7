package moodstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScheduler(endpoint string, batchSize, threshold int) *Scheduler {
	return NewScheduler(newTestPipeline(endpoint), batchSize, threshold, nil, testLogger())
}

func waitEvent(t *testing.T, s *Scheduler, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func assertContiguous(t *testing.T, segs []Segment) {
	t.Helper()
	for i := 1; i < len(segs); i++ {
		want := segs[i-1].StartTime + segs[i-1].DurationMs
		if segs[i].StartTime != want {
			t.Errorf("segment %d: start %d, want %d", i, segs[i].StartTime, want)
		}
	}
}

func TestScheduler_cold_start_publishes_one_segment_immediately(t *testing.T) {
	s := newTestScheduler("", DefaultBatchSize, DefaultAutogenThreshold)

	state := s.Start(context.Background())
	if state.StreamID == "" {
		t.Fatal("expected a stream id")
	}
	if len(state.Segments) != 1 {
		t.Fatalf("cold start must publish exactly one segment, got %d", len(state.Segments))
	}
	if state.CurrentIndex != 0 {
		t.Errorf("expected index 0, got %d", state.CurrentIndex)
	}
	if state.Segments[0].StartTime <= 0 {
		t.Error("cold start segment must be chained to wall time")
	}
	waitEvent(t, s, EventColdStartReady)
}

func TestScheduler_background_extends_and_buffers(t *testing.T) {
	s := newTestScheduler("", 3, DefaultAutogenThreshold)

	first := s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)

	state := s.Snapshot()
	// 1 cold-start segment + (batch of 3 with the last one buffered)
	if len(state.Segments) != 3 {
		t.Fatalf("expected 3 published segments, got %d", len(state.Segments))
	}
	if state.StreamID != first.StreamID {
		t.Error("background generation must not change the stream id")
	}
	assertContiguous(t, state.Segments)

	s.mu.RLock()
	buffered := s.buffered
	s.mu.RUnlock()
	if buffered == nil {
		t.Fatal("expected the last batch segment to be buffered")
	}
}

func TestScheduler_switch_without_buffer(t *testing.T) {
	s := newTestScheduler("", DefaultBatchSize, DefaultAutogenThreshold)
	if _, err := s.SwitchToNext(context.Background()); !errors.Is(err, ErrNoBufferedSegment) {
		t.Fatalf("expected ErrNoBufferedSegment, got %v", err)
	}
}

func TestScheduler_switch_to_next_starts_new_stream(t *testing.T) {
	s := newTestScheduler("", 3, DefaultAutogenThreshold)
	first := s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)

	state, err := s.SwitchToNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.StreamID == first.StreamID {
		t.Error("switch must mint a new stream id")
	}
	if len(state.Segments) != 1 || state.CurrentIndex != 0 {
		t.Errorf("new stream must start from the buffered segment: %d segments, index %d",
			len(state.Segments), state.CurrentIndex)
	}
	waitEvent(t, s, EventTransitioned)

	// the new stream gets extended too
	waitEvent(t, s, EventBackgroundReady)
	if got := len(s.Snapshot().Segments); got != 3 {
		t.Errorf("expected new stream extended to 3 segments, got %d", got)
	}
}

func TestScheduler_advance_triggers_generation_near_end(t *testing.T) {
	s := newTestScheduler("", 5, 1)
	s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)
	// 1 + 4 published segments

	state, err := s.Advance(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.CurrentIndex != 3 {
		t.Errorf("expected index 3, got %d", state.CurrentIndex)
	}

	waitEvent(t, s, EventAutoGenerated)
	state = s.Snapshot()
	if len(state.Segments) != 9 {
		t.Errorf("expected 9 segments after auto generation, got %d", len(state.Segments))
	}
	assertContiguous(t, state.Segments)
}

func TestScheduler_advance_out_of_range(t *testing.T) {
	s := newTestScheduler("", DefaultBatchSize, DefaultAutogenThreshold)
	s.Start(context.Background())

	if _, err := s.Advance(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange for -1, got %v", err)
	}
	if _, err := s.Advance(99); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange for 99, got %v", err)
	}
}

func TestScheduler_single_flight(t *testing.T) {
	s := newTestScheduler("", DefaultBatchSize, DefaultAutogenThreshold)
	s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)

	s.generating.Store(true)
	if s.GenerateBackground(context.Background()) {
		t.Error("a held flight slot must reject a second generation")
	}
	s.generating.Store(false)
	if !s.GenerateBackground(context.Background()) {
		t.Error("generation must run once the slot is free")
	}
}

func TestScheduler_stale_batch_not_published(t *testing.T) {
	s := newTestScheduler("", 3, DefaultAutogenThreshold)
	s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)

	before := s.Snapshot()
	// a batch started before the last stream replacement carries an old epoch
	s.generateGuarded(context.Background(), s.epoch.Load()-1, EventBackgroundReady)

	after := s.Snapshot()
	if len(after.Segments) != len(before.Segments) {
		t.Errorf("stale batch must not extend the stream: %d -> %d segments",
			len(before.Segments), len(after.Segments))
	}
}

func TestScheduler_refresh_resets_stream(t *testing.T) {
	s := newTestScheduler("", 3, DefaultAutogenThreshold)
	first := s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)

	_, _ = s.Advance(1)
	state := s.Refresh(context.Background())

	if state.StreamID == first.StreamID {
		t.Error("refresh must mint a new stream id")
	}
	if state.CurrentIndex != 0 {
		t.Errorf("refresh must reset position, got index %d", state.CurrentIndex)
	}
	if len(state.Segments) != 2 {
		t.Errorf("expected 2 published segments (batch of 3, one buffered), got %d", len(state.Segments))
	}
	assertContiguous(t, state.Segments)
	waitEvent(t, s, EventRefreshed)

	s.mu.RLock()
	buffered := s.buffered
	s.mu.RUnlock()
	if buffered == nil {
		t.Error("refresh must buffer a next-stream seed")
	}
}

func TestScheduler_regenerate_scent_keeps_timing(t *testing.T) {
	// scoped requests get a Citrus scent, everything else Woody, so the
	// regeneration is observable against the cold-start segment
	var scoped atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gen := segmentMap("#A1B2C3", 25)
		if scoped.Load() {
			gen["scent"] = map[string]any{"type": "Citrus", "name": "Bergamot", "level": 7, "intervalMin": 20}
		} else {
			gen["scent"] = map[string]any{"type": "Woody", "name": "Cedar", "level": 4, "intervalMin": 10}
		}
		content, _ := json.Marshal(map[string]any{"segments": []map[string]any{gen}})
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": string(content)}}},
		})
	}))
	defer srv.Close()

	s := newTestScheduler(srv.URL, 3, DefaultAutogenThreshold)
	before := s.Start(context.Background())
	scoped.Store(true)

	state := s.RegenerateScent(context.Background())
	seg := state.Segments[0]
	if seg.Scent.Type != "Citrus" || seg.Scent.Name != "Bergamot" {
		t.Errorf("scent not regenerated: %+v", seg.Scent)
	}
	if seg.StartTime != before.Segments[0].StartTime || seg.DurationMs != before.Segments[0].DurationMs {
		t.Error("scent regeneration must not change segment timing")
	}
	if seg.Music.TrackID != before.Segments[0].Music.TrackID {
		t.Error("scent regeneration must not touch music")
	}
}

// A refresh while a scoped regeneration is waiting on the completion
// service replaces the stream; the patch was built from the old stream's
// segment and must not be spliced into the new one.
func TestScheduler_refresh_during_scoped_regeneration_drops_patch(t *testing.T) {
	var blockNext atomic.Bool
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if blockNext.CompareAndSwap(true, false) {
			entered <- struct{}{}
			<-release
		}
		content, _ := json.Marshal(map[string]any{"segments": []map[string]any{segmentMap("#A1B2C3", 25)}})
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": string(content)}}},
		})
	}))
	defer srv.Close()

	s := newTestScheduler(srv.URL, 3, DefaultAutogenThreshold)
	var clockMs atomic.Int64
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_000 + clockMs.Load()) }

	old := s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)

	blockNext.Store(true)
	done := make(chan StreamState, 1)
	go func() { done <- s.RegenerateScent(context.Background()) }()
	<-entered

	clockMs.Store(60_000)
	refreshed := s.Refresh(context.Background())
	close(release)
	<-done

	state := s.Snapshot()
	if state.StreamID != refreshed.StreamID {
		t.Fatalf("expected the refreshed stream to survive, got %q vs %q", state.StreamID, refreshed.StreamID)
	}
	if state.Segments[0].StartTime != refreshed.Segments[0].StartTime {
		t.Errorf("stale scoped patch overwrote the refreshed stream: start %d, want %d (old stream started at %d)",
			state.Segments[0].StartTime, refreshed.Segments[0].StartTime, old.Segments[0].StartTime)
	}
	assertContiguous(t, state.Segments)
}

// Two rapid position advances near the end of the stream must produce
// exactly one completion call: the second trigger finds the flight slot
// held and yields.
func TestScheduler_rapid_advances_generate_once(t *testing.T) {
	var calls atomic.Int64
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// call 1 is the cold start, call 2 the first background batch;
		// anything after that is an advance-triggered generation
		if calls.Add(1) >= 3 {
			entered <- struct{}{}
			<-release
		}
		content, _ := json.Marshal(map[string]any{"segments": []map[string]any{
			segmentMap("#A1B2C3", 25), segmentMap("#A1B2C3", 25), segmentMap("#A1B2C3", 25),
		}})
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": string(content)}}},
		})
	}))
	defer srv.Close()

	s := newTestScheduler(srv.URL, 3, DefaultAutogenThreshold)
	// advance the clock per generation so every request carries a fresh
	// fingerprint and reaches the completion service instead of the cache
	var tick atomic.Int64
	s.pipeline.now = func() time.Time {
		return time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC).Add(time.Duration(tick.Add(1)) * time.Hour)
	}

	s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)
	if calls.Load() != 2 {
		t.Fatalf("setup: expected 2 completion calls, got %d", calls.Load())
	}

	if _, err := s.Advance(1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := s.Advance(2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	<-entered
	// give the losing trigger time to hit the flight-slot guard
	time.Sleep(100 * time.Millisecond)
	close(release)
	waitEvent(t, s, EventAutoGenerated)

	if calls.Load() != 3 {
		t.Errorf("expected exactly one completion call for two rapid triggers, got %d", calls.Load()-2)
	}
}

func TestScheduler_regenerate_music_rechains_tail(t *testing.T) {
	var calls atomic.Int64
	srv := newCompletionServer(t, &calls, segmentMap("#A1B2C3", 60))
	defer srv.Close()

	s := newTestScheduler(srv.URL, 3, DefaultAutogenThreshold)
	s.Start(context.Background())
	waitEvent(t, s, EventBackgroundReady)

	state := s.RegenerateMusic(context.Background())
	if state.Segments[0].Music.TrackID != 60 {
		t.Errorf("music not regenerated: %+v", state.Segments[0].Music)
	}
	assertContiguous(t, state.Segments)
}
