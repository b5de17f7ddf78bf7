package moodstream

import "time"

// Segment is one timed unit of the experience stream: lighting, scent,
// music, and a background-animation descriptor. A Segment is immutable once
// chained into a stream; only its position in playback changes.
type Segment struct {
	// StartTime is ms since epoch, assigned by Chain, never by the generator.
	StartTime int64 `json:"startTime"`
	// DurationMs comes from the resolved track's real playback length.
	DurationMs int64 `json:"durationMs"`

	MoodLabel    string `json:"moodLabel"`
	MoodColorHex string `json:"moodColorHex"`

	Lighting   Lighting   `json:"lighting"`
	Scent      Scent      `json:"scent"`
	Music      Music      `json:"music"`
	Background Background `json:"background"`
}

// Lighting is the lighting-device portion of a segment.
type Lighting struct {
	BrightnessPct int `json:"brightnessPct"` // 0..100
	ColorTempK    int `json:"colorTempK"`    // 2000..6500
}

// Scent is the scent-device portion of a segment.
type Scent struct {
	Type        string `json:"type"` // closed set, see completion.ScentTypes
	Name        string `json:"name"`
	Level       int    `json:"level"`       // 1..10
	IntervalMin int    `json:"intervalMin"` // one of 5,10,15,20,25,30
}

// Music is the speaker portion of a segment, including the resolved track.
type Music struct {
	TrackID   int   `json:"trackId"` // catalog range; repaired by the resolver
	VolumePct int   `json:"volumePct"`
	FadeInMs  int64 `json:"fadeInMs"`
	FadeOutMs int64 `json:"fadeOutMs"`

	Track ResolvedTrack `json:"track"`
}

// ResolvedTrack is concrete playable metadata from the music catalog.
type ResolvedTrack struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"durationMs"`
	AudioURL   string `json:"audioUrl"`
	ImageURL   string `json:"imageUrl"`
}

// Background describes the generative background animation.
type Background struct {
	IconKeys  []string  `json:"iconKeys"` // 1..4 keys from the closed catalog
	Wind      Wind      `json:"wind"`
	Animation Animation `json:"animation"`
}

// Wind is the particle wind descriptor.
type Wind struct {
	DirectionDeg int     `json:"directionDeg"` // 0..360
	SpeedUnits   float64 `json:"speedUnits"`   // 0..10
}

// Animation is the icon animation descriptor.
type Animation struct {
	SpeedUnits  float64 `json:"speedUnits"`  // 0..10
	IconOpacity float64 `json:"iconOpacity"` // 0..1
}

// Stream is an ordered, append-only sequence of time-contiguous segments
// sharing an identity. Only the scheduler mutates it.
type Stream struct {
	ID           string
	Segments     []Segment
	CurrentIndex int
	CreatedAt    time.Time
}

// StreamState is the published, read-only view handed to consumers.
type StreamState struct {
	StreamID     string    `json:"streamId"`
	Segments     []Segment `json:"segments"`
	CurrentIndex int       `json:"currentIndex"`
}

// Fingerprint is the cache key: the tuple of context fields that makes two
// generation requests interchangeable. The stress index is bucketed into
// bands of 20 so minor drift still hits the cache.
type Fingerprint struct {
	MoodLabel  string
	MusicGenre string
	ScentType  string
	HourOfDay  int
	Season     string
	StressBand int
	// SegmentIndex distinguishes scoped single-segment regenerations;
	// -1 for a full-batch request.
	SegmentIndex int
}

// StressBand buckets a raw stress index for fingerprinting.
func StressBand(stressIndex float64) int {
	if stressIndex < 0 {
		return 0
	}
	if stressIndex > 100 {
		return 100
	}
	return int(stressIndex/20) * 20
}

// SeasonOf maps a month to a season name used in prompts and fingerprints.
func SeasonOf(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Autumn"
	}
}
