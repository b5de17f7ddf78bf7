package moodstream

import (
	"errors"
	"testing"
)

func TestChain_contiguous(t *testing.T) {
	segs := []Segment{
		{DurationMs: 180000},
		{DurationMs: 210000},
		{DurationMs: 195000},
	}
	chained, err := Chain(segs, 1_700_000_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chained[0].StartTime != 1_700_000_000_000 {
		t.Errorf("first start: got %d", chained[0].StartTime)
	}
	for i := 1; i < len(chained); i++ {
		want := chained[i-1].StartTime + chained[i-1].DurationMs
		if chained[i].StartTime != want {
			t.Errorf("segment %d: start %d, want %d", i, chained[i].StartTime, want)
		}
	}
}

func TestChain_does_not_mutate_input(t *testing.T) {
	segs := []Segment{{DurationMs: 1000}, {DurationMs: 2000}}
	if _, err := Chain(segs, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if segs[0].StartTime != 0 || segs[1].StartTime != 0 {
		t.Errorf("input slice was mutated: %+v", segs)
	}
}

func TestChain_empty(t *testing.T) {
	if _, err := Chain(nil, 0); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestLastEndTime(t *testing.T) {
	if got := LastEndTime(nil, 42); got != 42 {
		t.Errorf("empty stream: got %d, want fallback 42", got)
	}
	segs := []Segment{{StartTime: 100, DurationMs: 50}, {StartTime: 150, DurationMs: 70}}
	if got := LastEndTime(segs, 0); got != 220 {
		t.Errorf("got %d, want 220", got)
	}
}

func TestDefaultBatch_cycles_and_isolates(t *testing.T) {
	batch := DefaultBatch(6)
	if len(batch) != 6 {
		t.Fatalf("expected 6 segments, got %d", len(batch))
	}
	if batch[0].MoodLabel != batch[4].MoodLabel {
		t.Errorf("expected template cycling, got %q vs %q", batch[0].MoodLabel, batch[4].MoodLabel)
	}
	batch[0].Background.IconKeys[0] = "mutated"
	if defaultTemplates[0].Background.IconKeys[0] == "mutated" {
		t.Error("template icon slice is shared with the returned batch")
	}
	if got := DefaultBatch(0); len(got) != 1 {
		t.Errorf("non-positive n: expected 1 segment, got %d", len(got))
	}
}
