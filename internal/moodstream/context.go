package moodstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// StressSignal is the stress portion of a biometric snapshot.
type StressSignal struct {
	Avg    float64 `json:"avg"`
	Recent float64 `json:"recent"`
}

// SleepSignal is the most recent sleep summary.
type SleepSignal struct {
	Score       float64 `json:"score"`
	DurationMin float64 `json:"durationMin"`
}

// WeatherSignal is the current weather observation.
type WeatherSignal struct {
	TempC       float64 `json:"tempC"`
	HumidityPct float64 `json:"humidityPct"`
	RainType    int     `json:"rainType"`
	Sky         int     `json:"sky"`
}

// EmotionCounts are accumulated detected emotion events since last reset.
type EmotionCounts struct {
	Laughter int `json:"laughter"`
	Sigh     int `json:"sigh"`
	Crying   int `json:"crying"`
}

// PreferenceWeights are the user's standing learned preferences.
type PreferenceWeights struct {
	Scent map[string]float64 `json:"scent"`
	Genre map[string]float64 `json:"genre"`
	Tag   map[string]float64 `json:"tag"`
}

// MoodSummary is the user's current mood as last published.
type MoodSummary struct {
	Label      string `json:"label"`
	MusicGenre string `json:"musicGenre"`
	ScentType  string `json:"scentType"`
	ColorHex   string `json:"colorHex"`
}

// ContextSnapshot is the normalized input to one generation: biometric and
// weather signals, preference weights, and the current mood summary.
type ContextSnapshot struct {
	Stress      StressSignal      `json:"stress"`
	Sleep       SleepSignal       `json:"sleep"`
	Weather     WeatherSignal     `json:"weather"`
	Emotions    EmotionCounts     `json:"emotionCounts"`
	Preferences PreferenceWeights `json:"preferenceWeights"`
	CurrentMood MoodSummary       `json:"currentMood"`
	ObservedAt  time.Time         `json:"observedAt"`
}

// Normalized returns a copy with every optional sub-object defaulted, so
// downstream stages never need nil or empty checks. Pure transformation,
// no failure modes.
func (c ContextSnapshot) Normalized() ContextSnapshot {
	out := c
	if out.Preferences.Scent == nil {
		out.Preferences.Scent = map[string]float64{}
	}
	if out.Preferences.Genre == nil {
		out.Preferences.Genre = map[string]float64{}
	}
	if out.Preferences.Tag == nil {
		out.Preferences.Tag = map[string]float64{}
	}
	if out.CurrentMood.Label == "" {
		out.CurrentMood.Label = "Neutral"
	}
	if out.CurrentMood.MusicGenre == "" {
		out.CurrentMood.MusicGenre = "Ambient"
	}
	if out.CurrentMood.ScentType == "" {
		out.CurrentMood.ScentType = "Floral"
	}
	if out.CurrentMood.ColorHex == "" {
		out.CurrentMood.ColorHex = "#E6F3FF"
	}
	if out.ObservedAt.IsZero() {
		out.ObservedAt = time.Now()
	}
	return out
}

// ContextProvider supplies the context snapshot for a generation. The
// implementation is chosen once at construction: live signals in
// production, a fixture in tests and demo setups.
type ContextProvider interface {
	Snapshot(ctx context.Context) (ContextSnapshot, error)
}

// LiveContextProvider fetches the snapshot from the signals service.
type LiveContextProvider struct {
	endpoint string
	client   *http.Client
	log      *slog.Logger
}

// NewLiveContextProvider returns a provider reading from the given
// signals endpoint.
func NewLiveContextProvider(endpoint string, log *slog.Logger) *LiveContextProvider {
	return &LiveContextProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// Snapshot implements ContextProvider.
func (p *LiveContextProvider) Snapshot(ctx context.Context) (ContextSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/api/signals", nil)
	if err != nil {
		return ContextSnapshot{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return ContextSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ContextSnapshot{}, &statusError{status: resp.StatusCode}
	}

	var snap ContextSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return ContextSnapshot{}, err
	}
	return snap.Normalized(), nil
}

type statusError struct{ status int }

func (e *statusError) Error() string { return "signals service returned " + http.StatusText(e.status) }

// FixtureContextProvider returns a fixed snapshot. Used when no signals
// endpoint is configured and in tests.
type FixtureContextProvider struct {
	Fixed ContextSnapshot
}

// Snapshot implements ContextProvider.
func (p *FixtureContextProvider) Snapshot(context.Context) (ContextSnapshot, error) {
	return p.Fixed.Normalized(), nil
}
