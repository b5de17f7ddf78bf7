package completion

import (
	"strings"
	"testing"

	"mood-orchestrator/internal/prediction"
)

func promptInput() PromptInput {
	return PromptInput{
		MoodLabel:    "Rainy Calm",
		MusicGenre:   "Lofi",
		ScentType:    "Woody",
		HourOfDay:    21,
		Season:       "Winter",
		StressAvg:    40,
		StressRecent: 55,
		GenreWeights: map[string]float64{"Lofi": 0.8, "Jazz": 0.5},
		Genres:       []string{"Lofi", "Jazz", "Ambient"},
	}
}

func TestBuildPrompt_embeds_prediction_verbatim(t *testing.T) {
	pred := &prediction.Prediction{
		CurrentID:          1,
		CurrentTitle:       "stressed",
		CurrentDescription: "high recent stress",
		FutureID:           4,
		FutureTitle:        "calm",
		FutureDescription:  "settling down",
		InferenceTime:      "2026-01-10T21:00:00Z",
	}

	prompt := BuildPrompt(promptInput(), pred, 3)
	for _, want := range []string{"stressed", "settling down", "2026-01-10T21:00:00Z", "exactly 3 segments"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prediction prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "distinct moodColorHex") {
		t.Error("prediction prompt should not carry the context-only color rule")
	}
}

func TestBuildPrompt_context_only_template(t *testing.T) {
	prompt := BuildPrompt(promptInput(), nil, 3)

	if !strings.Contains(prompt, "distinct moodColorHex") {
		t.Error("context-only prompt must carry the anti-duplication color rule")
	}
	for _, key := range []string{"leaf_gentle", "candle_warm", "meditation_pose"} {
		if !strings.Contains(prompt, key) {
			t.Errorf("context-only prompt missing icon key %q", key)
		}
	}
	if !strings.Contains(prompt, "trackId is an integer 10-69") {
		t.Error("context-only prompt missing track catalog hint")
	}
}

func TestBuildPrompt_deterministic(t *testing.T) {
	in := promptInput()
	a := BuildPrompt(in, nil, 3)
	b := BuildPrompt(in, nil, 3)
	if a != b {
		t.Error("identical inputs must produce identical prompts")
	}
}

func TestBuildPrompt_focus_instructions(t *testing.T) {
	in := promptInput()
	in.Focus = FocusScent
	if !strings.Contains(BuildPrompt(in, nil, 1), "only the scent") {
		t.Error("scent focus instruction missing")
	}
	in.Focus = FocusMusic
	if !strings.Contains(BuildPrompt(in, nil, 1), "only the music") {
		t.Error("music focus instruction missing")
	}
}

func TestWeightSummary_orders_and_caps(t *testing.T) {
	s := weightSummary(map[string]float64{
		"a": 0.1, "b": 0.9, "c": 0.5, "d": 0.4, "e": 0.3, "f": 0.2,
	})
	if !strings.HasPrefix(s, "b:0.90") {
		t.Errorf("highest weight should lead: %s", s)
	}
	if strings.Contains(s, "a:") {
		t.Errorf("summary should cap at five entries: %s", s)
	}
}
