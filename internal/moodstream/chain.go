package moodstream

import "errors"

// ErrEmptyBatch is returned when Chain is given zero segments. That is a
// programming error upstream; callers keep the previous known-good stream.
var ErrEmptyBatch = errors.New("cannot chain an empty segment batch")

// Chain assigns gapless start times: segments[0] starts at start, and each
// subsequent segment starts where the previous one ends, using the resolved
// track durations. Pure; the input slice is not modified.
func Chain(segments []Segment, start int64) ([]Segment, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyBatch
	}
	out := make([]Segment, len(segments))
	t := start
	for i, seg := range segments {
		seg.StartTime = t
		t += seg.DurationMs
		out[i] = seg
	}
	return out, nil
}

// LastEndTime returns the end of the final segment, or fallback for an
// empty stream.
func LastEndTime(segments []Segment, fallback int64) int64 {
	if len(segments) == 0 {
		return fallback
	}
	last := segments[len(segments)-1]
	return last.StartTime + last.DurationMs
}
