package moodstream

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"mood-orchestrator/internal/completion"
)

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Soft-field defaults applied when a creative field is out of its domain.
const (
	defaultBrightnessPct = 50
	defaultColorTempK    = 4000
	defaultScentType     = "Floral"
	defaultScentName     = "Rose"
	defaultScentLevel    = 5
	defaultScentInterval = 15
	defaultVolumePct     = 70
	defaultFadeMs        = 750
	defaultWindDirection = 180
	defaultWindSpeed     = 5
	defaultAnimSpeed     = 5
	defaultIconOpacity   = 0.7
)

// alternativeColors replaces colors duplicated three or more times across a
// batch so the rendered stream never looks monotonous.
var alternativeColors = []string{
	"#FFD700", "#FFA500", "#8B4513", "#A0522D", "#228B22", "#32CD32",
	"#9370DB", "#8A2BE2", "#FF6347", "#FF8C00", "#FF69B4", "#FF1493",
	"#008080", "#20B2AA", "#DC143C", "#B22222", "#FFB6C1", "#DDA0DD",
	"#F0E68C", "#98D8C8", "#FF7F50", "#6A5ACD",
}

// ValidationError describes why a batch was rejected as a whole.
type ValidationError struct {
	SegmentIndex int
	Field        string
	Reason       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("segment %d: field %s: %s", e.SegmentIndex, e.Field, e.Reason)
}

// Raw decode layer. Fields are decoded loosely and coerced per category:
// required (hard failure when absent), string enum (default on mismatch),
// and numeric range (clamped).
type rawBatch struct {
	Segments []rawSegment `json:"segments"`
}

type rawSegment struct {
	MoodAlias    any            `json:"moodAlias"`
	MoodColorHex any            `json:"moodColorHex"`
	Lighting     *rawLighting   `json:"lighting"`
	Scent        *rawScent      `json:"scent"`
	Music        *rawMusic      `json:"music"`
	Background   *rawBackground `json:"background"`
}

type rawLighting struct {
	BrightnessPct any `json:"brightnessPct"`
	ColorTempK    any `json:"colorTempK"`
}

type rawScent struct {
	Type        any `json:"type"`
	Name        any `json:"name"`
	Level       any `json:"level"`
	IntervalMin any `json:"intervalMin"`
}

type rawMusic struct {
	TrackID   any `json:"trackId"`
	VolumePct any `json:"volumePct"`
	FadeInMs  any `json:"fadeInMs"`
	FadeOutMs any `json:"fadeOutMs"`
}

type rawBackground struct {
	IconKeys  []any         `json:"iconKeys"`
	Wind      *rawWind      `json:"wind"`
	Animation *rawAnimation `json:"animation"`
}

type rawWind struct {
	DirectionDeg any `json:"directionDeg"`
	SpeedUnits   any `json:"speedUnits"`
}

type rawAnimation struct {
	SpeedUnits  any `json:"speedUnits"`
	IconOpacity any `json:"iconOpacity"`
}

// ValidateBatch parses, type-checks, range-clamps, and defaults a raw
// completion into canonical segments. The batch is atomic: a missing
// required field or an invalid mood color on any segment rejects all of
// them. Soft failures (out-of-enum strings, out-of-range numerics, bad
// music IDs) are repaired per field. The returned segments still lack
// StartTime, DurationMs, and the resolved track; those are filled by the
// resolver and chainer.
func ValidateBatch(raw json.RawMessage) ([]Segment, error) {
	var batch rawBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, &ValidationError{SegmentIndex: -1, Field: "segments", Reason: "unparseable JSON: " + err.Error()}
	}
	if len(batch.Segments) == 0 {
		return nil, &ValidationError{SegmentIndex: -1, Field: "segments", Reason: "empty batch"}
	}

	segments := make([]Segment, 0, len(batch.Segments))
	for i, rs := range batch.Segments {
		seg, err := validateSegment(i, rs)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	fixDuplicateColors(segments)
	return segments, nil
}

func validateSegment(index int, rs rawSegment) (Segment, error) {
	label, ok := asNonEmptyString(rs.MoodAlias)
	if !ok {
		return Segment{}, &ValidationError{SegmentIndex: index, Field: "moodAlias", Reason: "required string missing"}
	}

	color, ok := asNonEmptyString(rs.MoodColorHex)
	if !ok || !hexColorRe.MatchString(color) {
		return Segment{}, &ValidationError{SegmentIndex: index, Field: "moodColorHex", Reason: "must match #RRGGBB"}
	}

	if rs.Lighting == nil {
		return Segment{}, &ValidationError{SegmentIndex: index, Field: "lighting", Reason: "required object missing"}
	}
	if rs.Scent == nil {
		return Segment{}, &ValidationError{SegmentIndex: index, Field: "scent", Reason: "required object missing"}
	}
	if rs.Music == nil {
		return Segment{}, &ValidationError{SegmentIndex: index, Field: "music", Reason: "required object missing"}
	}
	if rs.Background == nil {
		return Segment{}, &ValidationError{SegmentIndex: index, Field: "background", Reason: "required object missing"}
	}

	seg := Segment{
		MoodLabel:    label,
		MoodColorHex: color,
		Lighting: Lighting{
			BrightnessPct: clampInt(rs.Lighting.BrightnessPct, 0, 100, defaultBrightnessPct),
			ColorTempK:    clampInt(rs.Lighting.ColorTempK, 2000, 6500, defaultColorTempK),
		},
		Scent: Scent{
			Type:        enumString(rs.Scent.Type, completion.ScentTypes, defaultScentType),
			Name:        stringOr(rs.Scent.Name, defaultScentName),
			Level:       clampInt(rs.Scent.Level, 1, 10, defaultScentLevel),
			IntervalMin: intervalOr(rs.Scent.IntervalMin, defaultScentInterval),
		},
		Music: Music{
			// 0 is outside the catalog range; the resolver substitutes
			// its fallback track, so a hallucinated ID never fails the batch.
			TrackID:   intOr(rs.Music.TrackID, 0),
			VolumePct: clampInt(rs.Music.VolumePct, 0, 100, defaultVolumePct),
			FadeInMs:  fadeMs(rs.Music.FadeInMs),
			FadeOutMs: fadeMs(rs.Music.FadeOutMs),
		},
		Background: Background{
			IconKeys: iconKeys(rs.Background.IconKeys),
		},
	}

	if rs.Background.Wind != nil {
		seg.Background.Wind = Wind{
			DirectionDeg: clampInt(rs.Background.Wind.DirectionDeg, 0, 360, defaultWindDirection),
			SpeedUnits:   clampFloat(rs.Background.Wind.SpeedUnits, 0, 10, defaultWindSpeed),
		}
	} else {
		seg.Background.Wind = Wind{DirectionDeg: defaultWindDirection, SpeedUnits: defaultWindSpeed}
	}

	if rs.Background.Animation != nil {
		seg.Background.Animation = Animation{
			SpeedUnits:  clampFloat(rs.Background.Animation.SpeedUnits, 0, 10, defaultAnimSpeed),
			IconOpacity: clampFloat(rs.Background.Animation.IconOpacity, 0, 1, defaultIconOpacity),
		}
	} else {
		seg.Background.Animation = Animation{SpeedUnits: defaultAnimSpeed, IconOpacity: defaultIconOpacity}
	}

	return seg, nil
}

// fixDuplicateColors rewrites colors that appear three or more times,
// keeping the first occurrence and drawing replacements from the
// alternative palette. At most one repeat of any color survives.
func fixDuplicateColors(segments []Segment) {
	occurrences := make(map[string][]int)
	for i, seg := range segments {
		key := strings.ToLower(seg.MoodColorHex)
		occurrences[key] = append(occurrences[key], i)
	}

	used := func(color string) bool {
		lc := strings.ToLower(color)
		for _, seg := range segments {
			if strings.ToLower(seg.MoodColorHex) == lc {
				return true
			}
		}
		return false
	}

	next := 0
	for _, indices := range occurrences {
		if len(indices) < 3 {
			continue
		}
		for _, idx := range indices[1:] {
			for next < len(alternativeColors) && used(alternativeColors[next]) {
				next++
			}
			if next >= len(alternativeColors) {
				return
			}
			segments[idx].MoodColorHex = alternativeColors[next]
			next++
		}
	}
}

// --- loose coercion helpers ---

func asNonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func stringOr(v any, fallback string) string {
	if s, ok := asNonEmptyString(v); ok {
		return s
	}
	return fallback
}

func enumString(v any, allowed []string, fallback string) string {
	s, ok := asNonEmptyString(v)
	if !ok {
		return fallback
	}
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a
		}
	}
	return fallback
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func clampInt(v any, min, max, fallback int) int {
	f, ok := asFloat(v)
	if !ok || math.IsNaN(f) {
		return fallback
	}
	n := int(math.Round(f))
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func clampFloat(v any, min, max, fallback float64) float64 {
	f, ok := asFloat(v)
	if !ok || math.IsNaN(f) {
		return fallback
	}
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}

func intOr(v any, fallback int) int {
	f, ok := asFloat(v)
	if !ok || math.IsNaN(f) {
		return fallback
	}
	return int(math.Round(f))
}

func intervalOr(v any, fallback int) int {
	n := intOr(v, fallback)
	for _, valid := range completion.ScentIntervals {
		if n == valid {
			return n
		}
	}
	return fallback
}

// fadeMs repairs a fade duration. Models occasionally answer in seconds;
// anything under 100 is treated as seconds and scaled to ms.
func fadeMs(v any) int64 {
	f, ok := asFloat(v)
	if !ok || math.IsNaN(f) {
		return defaultFadeMs
	}
	if f > 0 && f < 100 {
		f *= 1000
	}
	if f < 0 {
		return 0
	}
	if f > 5000 {
		return 5000
	}
	return int64(math.Round(f))
}

func iconKeys(raw []any) []string {
	known := make(map[string]bool, len(completion.IconKeys))
	for _, k := range completion.IconKeys {
		known[k] = true
	}
	keys := make([]string, 0, 4)
	for _, v := range raw {
		s, ok := asNonEmptyString(v)
		if !ok {
			continue
		}
		s = strings.ToLower(s)
		if known[s] {
			keys = append(keys, s)
		}
		if len(keys) == 4 {
			break
		}
	}
	if len(keys) == 0 {
		keys = append(keys, completion.DefaultIconKey)
	}
	return keys
}
