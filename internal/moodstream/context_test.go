package moodstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalized_fills_defaults(t *testing.T) {
	snap := ContextSnapshot{}.Normalized()

	if snap.CurrentMood.Label != "Neutral" || snap.CurrentMood.MusicGenre != "Ambient" {
		t.Errorf("mood defaults missing: %+v", snap.CurrentMood)
	}
	if snap.CurrentMood.ScentType != "Floral" || snap.CurrentMood.ColorHex != "#E6F3FF" {
		t.Errorf("mood defaults missing: %+v", snap.CurrentMood)
	}
	if snap.Preferences.Scent == nil || snap.Preferences.Genre == nil || snap.Preferences.Tag == nil {
		t.Error("preference maps must be non-nil after normalization")
	}
	if snap.ObservedAt.IsZero() {
		t.Error("observedAt must be filled")
	}
}

func TestNormalized_keeps_existing_values(t *testing.T) {
	snap := ContextSnapshot{
		CurrentMood: MoodSummary{Label: "Cozy", MusicGenre: "Jazz", ScentType: "Woody", ColorHex: "#112233"},
	}.Normalized()

	if snap.CurrentMood.Label != "Cozy" || snap.CurrentMood.MusicGenre != "Jazz" {
		t.Errorf("existing mood overwritten: %+v", snap.CurrentMood)
	}
}

func TestLiveContextProvider_snapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/signals" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ContextSnapshot{
			Stress:      StressSignal{Avg: 42, Recent: 55},
			CurrentMood: MoodSummary{Label: "Tense"},
		})
	}))
	defer srv.Close()

	p := NewLiveContextProvider(srv.URL, testLogger())
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Stress.Recent != 55 || snap.CurrentMood.Label != "Tense" {
		t.Errorf("snapshot not decoded: %+v", snap)
	}
	if snap.CurrentMood.MusicGenre != "Ambient" {
		t.Error("snapshot must be normalized")
	}
}

func TestLiveContextProvider_error_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewLiveContextProvider(srv.URL, testLogger())
	if _, err := p.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestFixtureContextProvider(t *testing.T) {
	p := &FixtureContextProvider{Fixed: ContextSnapshot{Stress: StressSignal{Recent: 30}}}
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Stress.Recent != 30 || snap.CurrentMood.Label != "Neutral" {
		t.Errorf("fixture not normalized: %+v", snap)
	}
}
