package prediction

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func validResponse() map[string]any {
	return map[string]any{
		"current_id":          2,
		"current_title":       "neutral",
		"current_description": "steady baseline",
		"future_id":           4,
		"future_title":        "calm",
		"future_description":  "winding down",
		"inference_time":      time.Now().UTC().Format(time.RFC3339),
	}
}

func TestPredict_success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request decode: %v", err)
		}
		json.NewEncoder(w).Encode(validResponse())
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL}, testLogger())
	pred, ok := g.Predict(context.Background(), Request{RecentStress: 90, SleepScore: 40})
	if !ok {
		t.Fatal("expected prediction to be available")
	}
	if pred.CurrentTitle != "neutral" || pred.FutureID != 4 {
		t.Errorf("unexpected prediction %+v", pred)
	}
}

func TestPredict_unconfigured_short_circuits(t *testing.T) {
	g := New(Config{}, testLogger())
	if _, ok := g.Predict(context.Background(), Request{}); ok {
		t.Error("unconfigured gateway should be unavailable")
	}
	if g.Configured() {
		t.Error("Configured should be false without an endpoint")
	}
}

func TestPredict_non_2xx_is_unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL}, testLogger())
	if _, ok := g.Predict(context.Background(), Request{}); ok {
		t.Error("500 response should be unavailable")
	}
}

func TestPredict_missing_required_field(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := validResponse()
		delete(resp, "future_description")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL}, testLogger())
	if _, ok := g.Predict(context.Background(), Request{}); ok {
		t.Error("response missing future_description should be unavailable")
	}
}

func TestPredict_bad_inference_time(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := validResponse()
		resp["inference_time"] = "yesterday-ish"
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL}, testLogger())
	if _, ok := g.Predict(context.Background(), Request{}); ok {
		t.Error("non-ISO8601 inference_time should invalidate the response")
	}
}

func TestPredict_timeout_is_unavailable(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	g := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, testLogger())
	start := time.Now()
	if _, ok := g.Predict(context.Background(), Request{}); ok {
		t.Error("timed-out call should be unavailable")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, call took %v", elapsed)
	}
}

func TestPredict_malformed_payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	g := New(Config{Endpoint: srv.URL}, testLogger())
	if _, ok := g.Predict(context.Background(), Request{}); ok {
		t.Error("unparseable body should be unavailable")
	}
}
