package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout is the hard cap on one prediction call.
const DefaultTimeout = 30 * time.Second

// Config holds the predictor endpoint settings. An empty Endpoint disables
// the gateway entirely: Predict short-circuits to unavailable without I/O.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Request is the wire format sent to the emotion predictor.
type Request struct {
	AvgStress     float64 `json:"avg_stress"`
	RecentStress  float64 `json:"recent_stress"`
	SleepScore    float64 `json:"sleep_score"`
	SleepDuration float64 `json:"sleep_duration"`
	Temp          float64 `json:"temp"`
	Humidity      float64 `json:"humidity"`
	RainType      int     `json:"rain_type"`
	Sky           int     `json:"sky"`
	Laughter      int     `json:"laughter"`
	Sigh          int     `json:"sigh"`
	Crying        int     `json:"crying"`
}

// Prediction is the predictor's current/future emotion estimate.
type Prediction struct {
	CurrentID          int    `json:"current_id"`
	CurrentTitle       string `json:"current_title"`
	CurrentDescription string `json:"current_description"`
	FutureID           int    `json:"future_id"`
	FutureTitle        string `json:"future_title"`
	FutureDescription  string `json:"future_description"`
	InferenceTime      string `json:"inference_time"`
}

// Gateway calls the external emotion predictor. It never returns an error:
// a timeout, transport failure, non-2xx status, or malformed payload all
// report unavailable, and the caller falls back to the context-only prompt.
type Gateway struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// New returns a Gateway for the given config. A zero Timeout uses DefaultTimeout.
func New(cfg Config, log *slog.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{},
		log:    log,
	}
}

// Configured reports whether a predictor endpoint is set.
func (g *Gateway) Configured() bool {
	return g.cfg.Endpoint != ""
}

// Predict issues one prediction RPC. The second return is false when the
// prediction is unavailable for any reason.
func (g *Gateway) Predict(ctx context.Context, req Request) (*Prediction, bool) {
	if !g.Configured() {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		g.log.Error("prediction request marshal failed", slog.String("error", err.Error()))
		return nil, false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint+"/api/predict", bytes.NewReader(body))
	if err != nil {
		g.log.Error("prediction request build failed", slog.String("error", err.Error()))
		return nil, false
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.log.Warn("predictor unreachable", slog.String("error", err.Error()))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Warn("predictor returned error status", slog.Int("status", resp.StatusCode))
		return nil, false
	}

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		g.log.Warn("predictor response not parseable", slog.String("error", err.Error()))
		return nil, false
	}

	if err := validate(&pred); err != nil {
		g.log.Warn("predictor response failed validation", slog.String("error", err.Error()))
		return nil, false
	}

	return &pred, true
}

// validate checks the required fields of a predictor response. A missing
// string, or a non-ISO8601 inference_time, invalidates the whole response.
func validate(p *Prediction) error {
	if p.CurrentTitle == "" {
		return errMissingField("current_title")
	}
	if p.CurrentDescription == "" {
		return errMissingField("current_description")
	}
	if p.FutureTitle == "" {
		return errMissingField("future_title")
	}
	if p.FutureDescription == "" {
		return errMissingField("future_description")
	}
	if p.InferenceTime == "" {
		return errMissingField("inference_time")
	}
	if _, err := time.Parse(time.RFC3339, p.InferenceTime); err != nil {
		return errBadField{field: "inference_time", cause: err}
	}
	return nil
}

type errMissingField string

func (e errMissingField) Error() string { return "missing required field: " + string(e) }

type errBadField struct {
	field string
	cause error
}

func (e errBadField) Error() string { return "invalid field " + e.field + ": " + e.cause.Error() }
