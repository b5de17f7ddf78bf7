package moodstream

// defaultTemplates are the built-in segments served when every generation
// tier fails. Track IDs point at known catalog entries; colors are distinct
// so even the degraded stream avoids visual monotony.
var defaultTemplates = []Segment{
	{
		MoodLabel:    "Quiet Drift",
		MoodColorHex: "#6B8E9F",
		Lighting:     Lighting{BrightnessPct: 45, ColorTempK: 3200},
		Scent:        Scent{Type: "Woody", Name: "Cedar", Level: 4, IntervalMin: 15},
		Music:        Music{TrackID: 10, VolumePct: 60, FadeInMs: 750, FadeOutMs: 750},
		Background: Background{
			IconKeys:  []string{"cloud_soft", "leaf_gentle"},
			Wind:      Wind{DirectionDeg: 180, SpeedUnits: 3},
			Animation: Animation{SpeedUnits: 4, IconOpacity: 0.6},
		},
	},
	{
		MoodLabel:    "Warm Window",
		MoodColorHex: "#E8C07D",
		Lighting:     Lighting{BrightnessPct: 60, ColorTempK: 2800},
		Scent:        Scent{Type: "Floral", Name: "Rose", Level: 5, IntervalMin: 15},
		Music:        Music{TrackID: 50, VolumePct: 65, FadeInMs: 750, FadeOutMs: 750},
		Background: Background{
			IconKeys:  []string{"window_light", "candle_warm", "coffee_mug"},
			Wind:      Wind{DirectionDeg: 150, SpeedUnits: 2},
			Animation: Animation{SpeedUnits: 3, IconOpacity: 0.7},
		},
	},
	{
		MoodLabel:    "Evening Shore",
		MoodColorHex: "#4F7CAC",
		Lighting:     Lighting{BrightnessPct: 40, ColorTempK: 4000},
		Scent:        Scent{Type: "Fresh", Name: "Sea Salt", Level: 4, IntervalMin: 20},
		Music:        Music{TrackID: 30, VolumePct: 55, FadeInMs: 1000, FadeOutMs: 1000},
		Background: Background{
			IconKeys:  []string{"wave_slow", "moon_calm"},
			Wind:      Wind{DirectionDeg: 220, SpeedUnits: 4},
			Animation: Animation{SpeedUnits: 4, IconOpacity: 0.65},
		},
	},
	{
		MoodLabel:    "Deep Forest",
		MoodColorHex: "#3E6B4F",
		Lighting:     Lighting{BrightnessPct: 35, ColorTempK: 3600},
		Scent:        Scent{Type: "Herbal", Name: "Pine Needle", Level: 6, IntervalMin: 10},
		Music:        Music{TrackID: 42, VolumePct: 60, FadeInMs: 750, FadeOutMs: 750},
		Background: Background{
			IconKeys:  []string{"forest_deep", "fog_mist", "breeze_wind"},
			Wind:      Wind{DirectionDeg: 90, SpeedUnits: 5},
			Animation: Animation{SpeedUnits: 5, IconOpacity: 0.55},
		},
	},
}

// DefaultBatch returns n built-in segments, cycling the templates when n
// exceeds them. Like generated batches, the result still needs track
// resolution and chaining.
func DefaultBatch(n int) []Segment {
	if n <= 0 {
		n = 1
	}
	out := make([]Segment, n)
	for i := range out {
		seg := defaultTemplates[i%len(defaultTemplates)]
		seg.Background.IconKeys = append([]string(nil), seg.Background.IconKeys...)
		out[i] = seg
	}
	return out
}
