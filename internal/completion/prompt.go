package completion

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"mood-orchestrator/internal/prediction"
)

// Focus narrows a scoped regeneration to a subset of segment fields.
type Focus string

const (
	FocusNone  Focus = ""
	FocusScent Focus = "scent"
	FocusMusic Focus = "music"
)

// PromptInput is the semantic content of one generation request. The same
// fields feed the cache fingerprint, so two requests with equal inputs are
// interchangeable.
type PromptInput struct {
	MoodLabel  string
	MusicGenre string
	ScentType  string
	HourOfDay  int
	Season     string

	StressAvg        float64
	StressRecent     float64
	SleepScore       float64
	SleepDurationMin float64
	TempC            float64
	HumidityPct      float64
	RainType         int
	Sky              int
	Laughter         int
	Sigh             int
	Crying           int

	GenreWeights map[string]float64
	ScentWeights map[string]float64
	TagWeights   map[string]float64

	Genres []string
	Focus  Focus
}

// BuildPrompt renders the deterministic prompt for one batch of n segments.
// With a prediction it embeds the predictor payload verbatim and asks for a
// current-to-future emotional transition; without one it falls back to the
// context-only template, which carries the icon catalog and the
// distinct-color rule.
func BuildPrompt(in PromptInput, pred *prediction.Prediction, n int) string {
	if pred != nil {
		return buildPredictionPrompt(in, pred, n)
	}
	return buildContextPrompt(in, n)
}

func buildPredictionPrompt(in PromptInput, pred *prediction.Prediction, n int) string {
	predJSON, _ := json.Marshal(pred)

	var b strings.Builder
	b.WriteString("You design ambient mood segments (lighting, scent, music, background animation).\n\n")
	writeContextBlock(&b, in)
	fmt.Fprintf(&b, "\nEmotion prediction (verbatim from the prediction service):\n%s\n", predJSON)
	fmt.Fprintf(&b, "\nProduce exactly %d segments that move the user from the current emotional state to the predicted future state, in order.\n", n)
	writeOutputRules(&b, in)
	return b.String()
}

func buildContextPrompt(in PromptInput, n int) string {
	var b strings.Builder
	b.WriteString("You design ambient mood segments (lighting, scent, music, background animation).\n\n")
	writeContextBlock(&b, in)
	fmt.Fprintf(&b, "\nAllowed background icon keys: %s\n", strings.Join(IconKeys, ", "))
	fmt.Fprintf(&b, "\nProduce exactly %d segments fitting this context.\n", n)
	b.WriteString("Give each segment a distinct moodColorHex; repeat a color at most once across the whole batch.\n")
	writeOutputRules(&b, in)
	return b.String()
}

func writeContextBlock(b *strings.Builder, in PromptInput) {
	fmt.Fprintf(b, "Current mood: %s | genre: %s | scent: %s\n", in.MoodLabel, in.MusicGenre, in.ScentType)
	fmt.Fprintf(b, "Time: hour %d, season %s\n", in.HourOfDay, in.Season)
	fmt.Fprintf(b, "Stress: avg %.0f, recent %.0f | Sleep: score %.0f, %.0f min\n",
		in.StressAvg, in.StressRecent, in.SleepScore, in.SleepDurationMin)
	fmt.Fprintf(b, "Weather: %.1fC, %.0f%% humidity, rain type %d, sky %d\n",
		in.TempC, in.HumidityPct, in.RainType, in.Sky)
	fmt.Fprintf(b, "Emotion counters: laughter %d, sigh %d, crying %d\n", in.Laughter, in.Sigh, in.Crying)

	if s := weightSummary(in.GenreWeights); s != "" {
		fmt.Fprintf(b, "Genre preference weights: %s\n", s)
	}
	if s := weightSummary(in.ScentWeights); s != "" {
		fmt.Fprintf(b, "Scent preference weights: %s\n", s)
	}
	if s := weightSummary(in.TagWeights); s != "" {
		fmt.Fprintf(b, "Tag preference weights: %s\n", s)
	}
}

func writeOutputRules(b *strings.Builder, in PromptInput) {
	if len(in.Genres) > 0 {
		genres := append([]string(nil), in.Genres...)
		sort.Strings(genres)
		fmt.Fprintf(b, "Music catalog genres: %s; trackId is an integer 10-69.\n", strings.Join(genres, ", "))
	}
	switch in.Focus {
	case FocusScent:
		b.WriteString("Change only the scent and background icon fields; keep every other field consistent with the current segment.\n")
	case FocusMusic:
		b.WriteString("Change only the music and background wind fields; keep every other field consistent with the current segment.\n")
	}
	b.WriteString("Respond with a single JSON object matching the provided schema.")
}

// weightSummary renders the top five weights, highest first, in a stable
// order so identical inputs produce identical prompts.
func weightSummary(weights map[string]float64) string {
	if len(weights) == 0 {
		return ""
	}
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if weights[names[i]] != weights[names[j]] {
			return weights[names[i]] > weights[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > 5 {
		names = names[:5]
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s:%.2f", name, weights[name])
	}
	return strings.Join(parts, ", ")
}
